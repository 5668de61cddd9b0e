// ABOUTME: Shared behavior tests run against both Store and MockStore
// ABOUTME: Keeps the in-memory implementation honest about error kinds and lifecycles

package store

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/boltd/internal/device"
)

var errNoEntropy = errors.New("no entropy")

type brokenSource struct{}

func (brokenSource) Fill([]byte) error { return errNoEntropy }

func deviceStores() map[string]func(t *testing.T) DeviceStore {
	return map[string]func(t *testing.T) DeviceStore{
		"filesystem": func(t *testing.T) DeviceStore { return setupTestStore(t) },
		"mock":       func(t *testing.T) DeviceStore { return NewMockStore() },
	}
}

func TestDeviceStore_Behavior(t *testing.T) {
	for name, newStore := range deviceStores() {
		t.Run(name, func(t *testing.T) {
			t.Run("round trip", func(t *testing.T) {
				s := newStore(t)
				uid := uuid.NewString()

				dev := laptop(uid)
				dev.Status = device.StatusAuthorized
				dev.ConnTime = 10
				require.NoError(t, s.PutDevice(dev, device.PolicyManual, nil))

				got, err := s.GetDevice(uid)
				require.NoError(t, err)
				assert.Equal(t, "Laptop", got.Name)
				assert.Equal(t, device.StatusAuthorized, got.Status)
				assert.Equal(t, device.PolicyManual, got.Policy)
				assert.Equal(t, uint64(10), got.ConnTime)
				assert.Equal(t, device.KeyMissing, got.Key)
				assert.True(t, got.Stored)
			})

			t.Run("missing device", func(t *testing.T) {
				s := newStore(t)
				_, err := s.GetDevice("transmogrifier")
				assert.Equal(t, KindNotFound, KindOf(err))
				assert.Equal(t, KindNotFound, KindOf(s.DelDevice("transmogrifier")))
				assert.Equal(t, KindNotFound, KindOf(s.DelKey("sesamoeffnedich")))
				assert.Equal(t, KindNotFound, KindOf(s.Forget("sesamoeffnedich")))
			})

			t.Run("key lifecycle", func(t *testing.T) {
				s := newStore(t)
				uid := uuid.NewString()

				k, err := s.CreateKey(uid, &seqSource{})
				require.NoError(t, err)
				assert.True(t, k.Fresh())
				assert.Equal(t, device.KeyHave, s.HaveKey(uid))

				loaded, err := s.GetKey(uid)
				require.NoError(t, err)
				assert.True(t, k.Equal(loaded))
				assert.False(t, loaded.Fresh())

				// a key without a record is not a listed device
				ids, err := s.ListDevices()
				require.NoError(t, err)
				assert.NotContains(t, ids, uid)

				require.NoError(t, s.DelKey(uid))
				assert.Equal(t, device.KeyMissing, s.HaveKey(uid))
			})

			t.Run("create key without entropy", func(t *testing.T) {
				s := newStore(t)
				uid := uuid.NewString()

				_, err := s.CreateKey(uid, brokenSource{})
				require.Error(t, err)
				assert.Equal(t, KindFailed, KindOf(err))
				assert.ErrorIs(t, err, errNoEntropy)
				assert.Equal(t, device.KeyMissing, s.HaveKey(uid))
			})

			t.Run("del device keeps key", func(t *testing.T) {
				s := newStore(t)
				uid := uuid.NewString()

				require.NoError(t, s.PutDevice(laptop(uid), device.PolicyAuto, newTestKey(t)))
				require.NoError(t, s.DelDevice(uid))
				assert.Equal(t, device.KeyHave, s.HaveKey(uid))
				assert.ErrorIs(t, s.DelDevice(uid), ErrNotFound)
			})

			t.Run("times", func(t *testing.T) {
				s := newStore(t)
				uid := uuid.NewString()

				require.NoError(t, s.PutTimes(uid, []Time{
					{Name: device.AuthTime, Value: 574423871},
					{Name: device.ConnTime, Value: 574416000},
				}))

				var auth, conn uint64
				require.NoError(t, s.GetTimes(uid, []TimeRef{
					{Name: device.AuthTime, Value: &auth},
					{Name: device.ConnTime, Value: &conn},
				}))
				assert.Equal(t, uint64(574423871), auth)
				assert.Equal(t, uint64(574416000), conn)

				require.NoError(t, s.DelTimes(uid, []string{device.AuthTime, device.StoreTime}))
				_, err := s.GetTime(uid, device.AuthTime)
				assert.Equal(t, KindNotFound, KindOf(err))
				assert.Equal(t, KindNotFound, KindOf(s.DelTime(uid, device.AuthTime)))
			})

			t.Run("reserved time names", func(t *testing.T) {
				s := newStore(t)
				uid := uuid.NewString()

				for _, name := range []string{"", RecordAttr, KeyAttr, "../key"} {
					assert.Equal(t, KindInvalid, KindOf(s.PutTime(uid, name, 1)), "name %q", name)
					_, err := s.GetTime(uid, name)
					assert.Equal(t, KindInvalid, KindOf(err), "name %q", name)
				}
			})

			t.Run("batch calls validate the identity", func(t *testing.T) {
				s := newStore(t)

				assert.Equal(t, KindInvalid, KindOf(s.PutTimes("../x", nil)))
				assert.Equal(t, KindInvalid, KindOf(s.GetTimes("../x", nil)))
				assert.Equal(t, KindInvalid, KindOf(s.DelTimes("../x", []string{})))
			})

			t.Run("nil key", func(t *testing.T) {
				s := newStore(t)
				uid := uuid.NewString()

				assert.Equal(t, KindInvalid, KindOf(s.PutKey(uid, nil)))
				assert.Equal(t, device.KeyMissing, s.HaveKey(uid))
			})

			t.Run("forget", func(t *testing.T) {
				s := newStore(t)
				uid := uuid.NewString()

				require.NoError(t, s.PutDevice(laptop(uid), device.PolicyAuto, newTestKey(t)))
				require.NoError(t, s.PutTime(uid, device.StoreTime, 3))
				require.NoError(t, s.Forget(uid))

				_, err := s.GetDevice(uid)
				assert.ErrorIs(t, err, ErrNotFound)
				assert.Equal(t, device.KeyMissing, s.HaveKey(uid))
				_, err = s.GetTime(uid, device.StoreTime)
				assert.ErrorIs(t, err, ErrNotFound)
			})
		})
	}
}
