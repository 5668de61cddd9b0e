// Package device defines the authorization record kept for every known
// peripheral.
//
// A Device is a plain value. The store fills the derived fields (Key and
// Stored) when it reads a record back; callers never persist them.
//
// Enumerations marshal to lowercase names through encoding.TextMarshaler so
// that the record file and the external property map share one spelling:
//
//	type:   host, peripheral
//	status: disconnected, connecting, connected, authorizing, autherror, authorized
//	policy: default, manual, auto
//	key:    missing, have
package device
