// ABOUTME: Mock DeviceStore implementation for testing
// ABOUTME: Keeps records, keys, and timestamps in memory with the same error kinds as Store

package store

import (
	"errors"
	"sort"
	"sync"

	"github.com/2389/boltd/internal/device"
	"github.com/2389/boltd/internal/key"
	"github.com/2389/boltd/internal/random"
)

type mockRecord struct {
	dev    device.Device
	policy device.Policy
}

// MockStore is an in-memory DeviceStore implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	records map[string]mockRecord        // keyed by uid
	keys    map[string][]byte            // keyed by uid
	times   map[string]map[string]uint64 // keyed by uid, then timestamp name
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		records: make(map[string]mockRecord),
		keys:    make(map[string][]byte),
		times:   make(map[string]map[string]uint64),
	}
}

func mockNotFound(op, id, name string) error {
	return newError(KindNotFound, op, id, name, errors.New("no such entry"))
}

// PutDevice stores a copy of dev.
func (m *MockStore) PutDevice(dev device.Device, policy device.Policy, k *key.Key) error {
	const op = "put device"
	if err := checkID(op, dev.UID); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if k != nil {
		m.keys[dev.UID] = k.Bytes()
	}
	for name, v := range dev.Times() {
		m.setTimeLocked(dev.UID, name, v)
	}

	// Derived fields and timestamps are not part of the record itself.
	rec := dev.WithDefaults()
	rec.ConnTime, rec.AuthTime, rec.StoreTime = 0, 0, 0
	rec.Key, rec.Stored = device.KeyMissing, false
	m.records[dev.UID] = mockRecord{dev: rec, policy: policy}
	return nil
}

// GetDevice returns a copy of the stored record.
func (m *MockStore) GetDevice(id string) (device.Device, error) {
	const op = "get device"
	if err := checkID(op, id); err != nil {
		return device.Device{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return device.Device{}, mockNotFound(op, id, RecordAttr)
	}
	dev := rec.dev
	dev.Policy = rec.policy
	for name, v := range m.times[id] {
		dev.SetTime(name, v)
	}
	if _, ok := m.keys[id]; ok {
		dev.Key = device.KeyHave
	}
	dev.Stored = true
	return dev, nil
}

// DelDevice removes the record and timestamps of id, keeping its key.
func (m *MockStore) DelDevice(id string) error {
	const op = "delete device"
	if err := checkID(op, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return mockNotFound(op, id, RecordAttr)
	}
	delete(m.records, id)
	delete(m.times, id)
	return nil
}

// ListDevices returns the stored identities, sorted.
func (m *MockStore) ListDevices() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Forget removes everything stored for id.
func (m *MockStore) Forget(id string) error {
	const op = "forget device"
	if err := checkID(op, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, hasRecord := m.records[id]
	_, hasKey := m.keys[id]
	_, hasTimes := m.times[id]
	if !hasRecord && !hasKey && !hasTimes {
		return mockNotFound(op, id, "")
	}
	delete(m.records, id)
	delete(m.keys, id)
	delete(m.times, id)
	return nil
}

// PutKey stores a copy of k for id.
func (m *MockStore) PutKey(id string, k *key.Key) error {
	const op = "put key"
	if err := checkID(op, id); err != nil {
		return err
	}
	if k == nil {
		return newError(KindInvalid, op, id, KeyAttr, errNilKey)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.keys[id] = k.Bytes()
	return nil
}

// CreateKey generates and stores a key for id.
func (m *MockStore) CreateKey(id string, src random.Source) (*key.Key, error) {
	const op = "create key"
	if err := checkID(op, id); err != nil {
		return nil, err
	}
	k, err := key.Generate(src)
	if err != nil {
		return nil, newError(KindFailed, op, id, KeyAttr, err)
	}
	if err := m.PutKey(id, k); err != nil {
		return nil, err
	}
	return k, nil
}

// GetKey returns the stored key of id. Keys loaded back are never fresh.
func (m *MockStore) GetKey(id string) (*key.Key, error) {
	const op = "get key"
	if err := checkID(op, id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.keys[id]
	if !ok {
		return nil, mockNotFound(op, id, KeyAttr)
	}
	k, err := key.FromBytes(b)
	if err != nil {
		return nil, newError(KindBadKey, op, id, KeyAttr, err)
	}
	return k, nil
}

// HaveKey reports whether a key is stored for id.
func (m *MockStore) HaveKey(id string) device.KeyState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.keys[id]; ok {
		return device.KeyHave
	}
	return device.KeyMissing
}

// DelKey removes the key of id.
func (m *MockStore) DelKey(id string) error {
	const op = "delete key"
	if err := checkID(op, id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.keys[id]; !ok {
		return mockNotFound(op, id, KeyAttr)
	}
	delete(m.keys, id)
	return nil
}

// GetTime returns one timestamp.
func (m *MockStore) GetTime(id, name string) (uint64, error) {
	const op = "get time"
	if err := checkTimeName(op, id, name); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.times[id][name]
	if !ok {
		return 0, mockNotFound(op, id, name)
	}
	return v, nil
}

// PutTime stores one timestamp.
func (m *MockStore) PutTime(id, name string, v uint64) error {
	return m.PutTimes(id, []Time{{Name: name, Value: v}})
}

// PutTimes stores timestamps after validating every name.
func (m *MockStore) PutTimes(id string, times []Time) error {
	const op = "put times"
	if err := checkID(op, id); err != nil {
		return err
	}
	for _, t := range times {
		if err := checkTimeName(op, id, t.Name); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range times {
		m.setTimeLocked(id, t.Name, t.Value)
	}
	return nil
}

func (m *MockStore) setTimeLocked(id, name string, v uint64) {
	if m.times[id] == nil {
		m.times[id] = make(map[string]uint64)
	}
	m.times[id][name] = v
}

// GetTimes fills the slots of refs, failing on the first missing timestamp.
func (m *MockStore) GetTimes(id string, refs []TimeRef) error {
	if err := checkID("get times", id); err != nil {
		return err
	}
	for _, ref := range refs {
		v, err := m.GetTime(id, ref.Name)
		if err != nil {
			return withOp(err, "get times")
		}
		if ref.Value != nil {
			*ref.Value = v
		}
	}
	return nil
}

// DelTime removes one timestamp.
func (m *MockStore) DelTime(id, name string) error {
	const op = "delete time"
	if err := checkTimeName(op, id, name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.times[id][name]; !ok {
		return mockNotFound(op, id, name)
	}
	delete(m.times[id], name)
	return nil
}

// DelTimes removes timestamps, ignoring missing ones.
func (m *MockStore) DelTimes(id string, names []string) error {
	const op = "delete times"
	if err := checkID(op, id); err != nil {
		return err
	}
	for _, name := range names {
		if err := checkTimeName(op, id, name); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range names {
		delete(m.times[id], name)
	}
	return nil
}

