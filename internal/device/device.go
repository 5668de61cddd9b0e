// ABOUTME: Device authorization record: identity, policy, topology hints, timestamps
// ABOUTME: Key state and Stored are derived by the store on read, never persisted

package device

// Unknown is used for display fields that were never reported.
const Unknown = "unknown"

// Timestamp attribute names, shared with the store.
const (
	ConnTime  = "conntime"
	AuthTime  = "authtime"
	StoreTime = "storetime"
)

// Device is the authorization record of one peripheral (or host).
// Timestamps are Unix seconds; zero means absent.
type Device struct {
	UID     string
	Name    string
	Vendor  string
	Type    Type
	Status  Status
	Parent  string
	SysPath string
	Label   string

	ConnTime  uint64
	AuthTime  uint64
	StoreTime uint64

	Policy Policy

	// Derived on read.
	Key    KeyState
	Stored bool
}

// New returns a disconnected peripheral with display defaults applied.
func New(uid string) Device {
	return Device{
		UID:    uid,
		Name:   Unknown,
		Vendor: Unknown,
		Type:   TypePeripheral,
		Status: StatusDisconnected,
	}
}

// WithDefaults fills empty display fields with Unknown.
func (d Device) WithDefaults() Device {
	if d.Name == "" {
		d.Name = Unknown
	}
	if d.Vendor == "" {
		d.Vendor = Unknown
	}
	return d
}

// Times returns the timestamp attributes that are set, keyed by name.
func (d Device) Times() map[string]uint64 {
	times := make(map[string]uint64, 3)
	for name, v := range map[string]uint64{
		ConnTime:  d.ConnTime,
		AuthTime:  d.AuthTime,
		StoreTime: d.StoreTime,
	} {
		if v != 0 {
			times[name] = v
		}
	}
	return times
}

// SetTime sets the named timestamp. It reports false for unknown names.
func (d *Device) SetTime(name string, v uint64) bool {
	switch name {
	case ConnTime:
		d.ConnTime = v
	case AuthTime:
		d.AuthTime = v
	case StoreTime:
		d.StoreTime = v
	default:
		return false
	}
	return true
}

// HasKey reports whether the store holds a secret for the device.
func (d Device) HasKey() bool {
	return d.Key == KeyHave
}
