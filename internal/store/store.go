// ABOUTME: Device store mapping identities to authorization records and secrets
// ABOUTME: Records, timestamps, and keys live side by side but have independent lifecycles

package store

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/2389/boltd/internal/device"
	"github.com/2389/boltd/internal/key"
	"github.com/2389/boltd/internal/random"
)

// Reserved attribute names.
const (
	RecordAttr = "device"
	KeyAttr    = "key"
)

// timeAttrs are read into a Device by GetDevice, in this order.
var timeAttrs = []string{device.ConnTime, device.AuthTime, device.StoreTime}

// DeviceStore is the interface the daemon's service layer programs against.
// Store is the filesystem implementation; MockStore is an in-memory one for
// tests of callers.
type DeviceStore interface {
	// Records
	PutDevice(dev device.Device, policy device.Policy, k *key.Key) error
	GetDevice(id string) (device.Device, error)
	DelDevice(id string) error
	ListDevices() ([]string, error)
	Forget(id string) error

	// Keys
	PutKey(id string, k *key.Key) error
	CreateKey(id string, src random.Source) (*key.Key, error)
	GetKey(id string) (*key.Key, error)
	HaveKey(id string) device.KeyState
	DelKey(id string) error

	// Timestamps
	GetTime(id, name string) (uint64, error)
	PutTime(id, name string, v uint64) error
	PutTimes(id string, times []Time) error
	GetTimes(id string, refs []TimeRef) error
	DelTime(id, name string) error
	DelTimes(id string, names []string) error
}

var (
	_ DeviceStore = (*Store)(nil)
	_ DeviceStore = (*MockStore)(nil)
)

// Store persists device records and keys below a root directory.
//
// Layout:
//
//	<root>/devices/<uid>/device     primary record (YAML)
//	<root>/devices/<uid>/key        secret, mode 0600
//	<root>/devices/<uid>/<time>     one file per timestamp attribute
//
// Store performs no locking. The daemon serializes callers.
type Store struct {
	attrs  *Attrs
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used by the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With("component", "store")
	}
}

// Open opens (or creates) a store rooted at root.
func Open(root string, opts ...Option) (*Store, error) {
	attrs, err := NewAttrs(root)
	if err != nil {
		return nil, err
	}

	s := &Store{
		attrs:  attrs,
		logger: slog.Default().With("component", "store"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Debug("device store opened", "path", root)
	return s, nil
}

// Attrs exposes the underlying attribute store.
func (s *Store) Attrs() *Attrs {
	return s.attrs
}

// recordFile is the on-disk shape of the primary record. Pointer fields are
// required; a record missing any of them is corrupt.
type recordFile struct {
	UID     string         `yaml:"uid"`
	Name    string         `yaml:"name"`
	Vendor  string         `yaml:"vendor"`
	Type    *device.Type   `yaml:"type"`
	Status  device.Status  `yaml:"status"`
	Parent  string         `yaml:"parent,omitempty"`
	SysPath string         `yaml:"syspath,omitempty"`
	Label   string         `yaml:"label,omitempty"`
	Policy  *device.Policy `yaml:"policy"`
}

func encodeRecord(dev device.Device, policy device.Policy) ([]byte, error) {
	dev = dev.WithDefaults()
	rec := recordFile{
		UID:     dev.UID,
		Name:    dev.Name,
		Vendor:  dev.Vendor,
		Type:    &dev.Type,
		Status:  dev.Status,
		Parent:  dev.Parent,
		SysPath: dev.SysPath,
		Label:   dev.Label,
		Policy:  &policy,
	}
	return yaml.Marshal(&rec)
}

func decodeRecord(id string, data []byte) (device.Device, error) {
	var rec recordFile
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return device.Device{}, fmt.Errorf("parsing record: %w", err)
	}
	switch {
	case rec.UID == "":
		return device.Device{}, fmt.Errorf("record has no uid")
	case rec.UID != id:
		return device.Device{}, fmt.Errorf("record uid %q does not match %q", rec.UID, id)
	case rec.Type == nil:
		return device.Device{}, fmt.Errorf("record has no type")
	case rec.Policy == nil:
		return device.Device{}, fmt.Errorf("record has no policy")
	}

	dev := device.Device{
		UID:     rec.UID,
		Name:    rec.Name,
		Vendor:  rec.Vendor,
		Type:    *rec.Type,
		Status:  rec.Status,
		Parent:  rec.Parent,
		SysPath: rec.SysPath,
		Label:   rec.Label,
		Policy:  *rec.Policy,
	}
	return dev.WithDefaults(), nil
}

// PutDevice stores dev under dev.UID with the given policy. When k is not
// nil it is saved as the device key first. Non-zero timestamps in dev are
// written as individual attributes; zero ones leave stored timestamps alone.
// The primary record is written last.
func (s *Store) PutDevice(dev device.Device, policy device.Policy, k *key.Key) error {
	const op = "put device"
	id := dev.UID
	if err := checkID(op, id); err != nil {
		return err
	}

	data, err := encodeRecord(dev, policy)
	if err != nil {
		return newError(KindInvalid, op, id, RecordAttr, err)
	}

	if k != nil {
		if err := s.saveKey(op, id, k); err != nil {
			return err
		}
	}

	var times []Attr
	for _, name := range timeAttrs {
		if v, ok := dev.Times()[name]; ok {
			times = append(times, Attr{Name: name, Value: encodeUint64(v)})
		}
	}
	if err := s.attrs.PutAttrs(id, times); err != nil {
		return withOp(err, op)
	}

	if err := s.attrs.PutAttr(id, RecordAttr, data); err != nil {
		return withOp(err, op)
	}

	s.logger.Debug("stored device", "uid", id, "policy", policy, "with_key", k != nil)
	return nil
}

// GetDevice loads the record stored for id. Key and Stored are filled in.
// A missing record is KindNotFound; an empty or malformed one is KindBadData.
func (s *Store) GetDevice(id string) (device.Device, error) {
	const op = "get device"

	data, err := s.attrs.GetAttr(id, RecordAttr)
	if err != nil {
		return device.Device{}, withOp(err, op)
	}

	dev, err := decodeRecord(id, data)
	if err != nil {
		s.logger.Warn("corrupt device record", "uid", id, "error", err)
		return device.Device{}, newError(KindBadData, op, id, RecordAttr, err)
	}

	for _, name := range timeAttrs {
		v, err := s.attrs.GetUint64(id, name)
		switch {
		case err == nil:
			dev.SetTime(name, v)
		case IsNotFound(err):
		default:
			s.logger.Warn("ignoring unreadable timestamp", "uid", id, "name", name, "error", err)
		}
	}

	dev.Key = s.HaveKey(id)
	dev.Stored = true
	return dev, nil
}

// DelDevice removes the record and its attributes. The key, if any, is kept.
func (s *Store) DelDevice(id string) error {
	const op = "delete device"
	if err := checkID(op, id); err != nil {
		return err
	}
	if _, err := os.Stat(s.attrs.path(id, RecordAttr)); err != nil {
		return fsError(op, id, RecordAttr, err)
	}

	names, err := s.attrs.Names(id)
	if err != nil {
		return withOp(err, op)
	}
	var others []string
	for _, name := range names {
		if name != RecordAttr && name != KeyAttr {
			others = append(others, name)
		}
	}
	if err := s.attrs.DelAttrs(id, others); err != nil {
		return withOp(err, op)
	}

	// Removing the record is the commit point of the deletion.
	if err := s.attrs.DelAttr(id, RecordAttr); err != nil {
		return withOp(err, op)
	}

	if err := s.attrs.removeDirIfEmpty(id); err != nil {
		return fsError(op, id, "", err)
	}

	s.logger.Debug("deleted device", "uid", id)
	return nil
}

// ListDevices returns the identities that have a stored record, sorted.
func (s *Store) ListDevices() ([]string, error) {
	ids, err := s.attrs.Identities()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, id := range ids {
		if s.attrs.HasAttr(id, RecordAttr) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Forget removes everything stored for id: record, timestamps, and key.
func (s *Store) Forget(id string) error {
	if err := s.attrs.RemoveIdentity(id); err != nil {
		return withOp(err, "forget device")
	}
	s.logger.Debug("forgot device", "uid", id)
	return nil
}

// withOp relabels a store error with the caller-visible operation.
func withOp(err error, op string) error {
	if se, ok := err.(*Error); ok {
		cp := *se
		cp.Op = op
		return &cp
	}
	return err
}
