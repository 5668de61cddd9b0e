// Package export converts device records and store errors for the
// daemon's external interface.
//
// The RPC layer publishes each device as a flat set of named properties
// and reports failures as gRPC status errors. This package owns both
// conversions so the wire never sees store internals:
//
//	props := export.Properties(dev)        // map for generic property encoders
//	st, err := export.Struct(dev)          // google.protobuf.Struct
//	return nil, export.Status(err)         // store error -> gRPC status
//
// KindOf reverses Status, so a client can recover the store error kind
// from a status it received.
package export
