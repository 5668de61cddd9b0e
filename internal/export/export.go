// ABOUTME: External representation of device records and store errors
// ABOUTME: Records become property maps or protobuf Structs; error kinds become gRPC codes

package export

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/boltd/internal/device"
	"github.com/2389/boltd/internal/store"
)

// Property names of an exported device.
const (
	PropUID       = "uid"
	PropName      = "name"
	PropVendor    = "vendor"
	PropType      = "type"
	PropStatus    = "status"
	PropParent    = "parent"
	PropSysPath   = "syspath"
	PropConnTime  = "conntime"
	PropAuthTime  = "authtime"
	PropStored    = "stored"
	PropPolicy    = "policy"
	PropKey       = "key"
	PropStoreTime = "storetime"
	PropLabel     = "label"
)

// Properties returns the exported properties of dev. Enum values are
// rendered by name.
func Properties(dev device.Device) map[string]any {
	return map[string]any{
		PropUID:       dev.UID,
		PropName:      dev.Name,
		PropVendor:    dev.Vendor,
		PropType:      dev.Type.String(),
		PropStatus:    dev.Status.String(),
		PropParent:    dev.Parent,
		PropSysPath:   dev.SysPath,
		PropConnTime:  dev.ConnTime,
		PropAuthTime:  dev.AuthTime,
		PropStored:    dev.Stored,
		PropPolicy:    dev.Policy.String(),
		PropKey:       dev.Key.String(),
		PropStoreTime: dev.StoreTime,
		PropLabel:     dev.Label,
	}
}

// Struct encodes dev as a google.protobuf.Struct.
func Struct(dev device.Device) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(Properties(dev))
	if err != nil {
		return nil, fmt.Errorf("encoding device %s: %w", dev.UID, err)
	}
	return s, nil
}

var kindCodes = map[store.Kind]codes.Code{
	store.KindNotFound: codes.NotFound,
	store.KindBadKey:   codes.FailedPrecondition,
	store.KindBadData:  codes.DataLoss,
	store.KindIO:       codes.Internal,
	store.KindInvalid:  codes.InvalidArgument,
}

// Code returns the gRPC code for a store error kind.
func Code(kind store.Kind) codes.Code {
	if c, ok := kindCodes[kind]; ok {
		return c
	}
	return codes.Unknown
}

// Status converts a store error into a gRPC status error. Errors that
// already carry a status are returned unchanged.
func Status(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(Code(store.KindOf(err)), err.Error())
}

// KindOf recovers the store error kind from a gRPC status error.
func KindOf(err error) store.Kind {
	st, ok := status.FromError(err)
	if !ok {
		return store.KindOf(err)
	}
	for kind, c := range kindCodes {
		if c == st.Code() {
			return kind
		}
	}
	return store.KindFailed
}
