// ABOUTME: Enumerations used by device records (type, status, policy, key state)
// ABOUTME: Each enum round-trips through its lowercase text name

package device

import "fmt"

// Type distinguishes the host controller from attached peripherals.
type Type int

// The zero value is TypePeripheral.
const (
	TypePeripheral Type = iota
	TypeHost
)

var typeNames = []string{"peripheral", "host"}

func (t Type) String() string { return enumString(typeNames, int(t)) }

// ParseType converts a type name to a Type.
func ParseType(s string) (Type, error) {
	v, err := enumParse(typeNames, "type", s)
	return Type(v), err
}

func (t Type) MarshalText() ([]byte, error) { return enumMarshal(typeNames, "type", int(t)) }

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Status is the last known connection state of a device.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusAuthorizing
	StatusAuthError
	StatusAuthorized
)

var statusNames = []string{"disconnected", "connecting", "connected", "authorizing", "autherror", "authorized"}

func (s Status) String() string { return enumString(statusNames, int(s)) }

// ParseStatus converts a status name to a Status.
func ParseStatus(s string) (Status, error) {
	v, err := enumParse(statusNames, "status", s)
	return Status(v), err
}

func (s Status) MarshalText() ([]byte, error) { return enumMarshal(statusNames, "status", int(s)) }

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// IsAuthorized reports whether the device was granted access.
func (s Status) IsAuthorized() bool {
	return s == StatusAuthorized
}

// Policy controls whether future connections are authorized automatically.
type Policy int

const (
	PolicyDefault Policy = iota
	PolicyManual
	PolicyAuto
)

var policyNames = []string{"default", "manual", "auto"}

func (p Policy) String() string { return enumString(policyNames, int(p)) }

// ParsePolicy converts a policy name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	v, err := enumParse(policyNames, "policy", s)
	return Policy(v), err
}

func (p Policy) MarshalText() ([]byte, error) { return enumMarshal(policyNames, "policy", int(p)) }

func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// KeyState tells whether a secret is stored for a device.
type KeyState int

const (
	KeyMissing KeyState = iota
	KeyHave
)

var keyStateNames = []string{"missing", "have"}

func (k KeyState) String() string { return enumString(keyStateNames, int(k)) }

// ParseKeyState converts a key state name to a KeyState.
func ParseKeyState(s string) (KeyState, error) {
	v, err := enumParse(keyStateNames, "key state", s)
	return KeyState(v), err
}

func (k KeyState) MarshalText() ([]byte, error) {
	return enumMarshal(keyStateNames, "key state", int(k))
}

func (k *KeyState) UnmarshalText(b []byte) error {
	v, err := ParseKeyState(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

func enumString(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("unknown(%d)", v)
	}
	return names[v]
}

func enumParse(names []string, what, s string) (int, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", what, s)
}

func enumMarshal(names []string, what string, v int) ([]byte, error) {
	if v < 0 || v >= len(names) {
		return nil, fmt.Errorf("invalid %s value %d", what, v)
	}
	return []byte(names[v]), nil
}
