// ABOUTME: Tests for timestamp attributes
// ABOUTME: Covers single and batch updates and how unreadable timestamps are reported

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/boltd/internal/device"
)

func TestStore_Times(t *testing.T) {
	store := setupTestStore(t)
	uid := "399d33cb-c9cf-4273-8f92-9445437e0b43"

	dev := laptop(uid)
	dev.AuthTime = 574423871
	dev.ConnTime = 574416000
	require.NoError(t, store.PutDevice(dev, device.PolicyAuto, nil))

	got, err := store.GetDevice(uid)
	require.NoError(t, err)
	assert.Equal(t, uint64(574423871), got.AuthTime)
	assert.Equal(t, uint64(574416000), got.ConnTime)
	assert.Zero(t, got.StoreTime)

	v, err := store.GetTime(uid, device.AuthTime)
	require.NoError(t, err)
	assert.Equal(t, uint64(574423871), v)

	require.NoError(t, store.PutTimes(uid, []Time{
		{Name: device.AuthTime, Value: 9207120},
	}))

	got, err = store.GetDevice(uid)
	require.NoError(t, err)
	assert.Equal(t, uint64(9207120), got.AuthTime)
	assert.Equal(t, uint64(574416000), got.ConnTime, "conntime was not part of the batch")

	require.NoError(t, store.DelTime(uid, device.ConnTime))
	_, err = store.GetTime(uid, device.ConnTime)
	assert.ErrorIs(t, err, ErrNotFound)

	// removing one timestamp leaves the others alone
	v, err = store.GetTime(uid, device.AuthTime)
	require.NoError(t, err)
	assert.Equal(t, uint64(9207120), v)

	// the batch form ignores the already removed conntime
	require.NoError(t, store.DelTimes(uid, []string{device.AuthTime, device.ConnTime}))
	_, err = store.GetTime(uid, device.AuthTime)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = store.GetDevice(uid)
	require.NoError(t, err)
	assert.Zero(t, got.ConnTime)
	assert.Zero(t, got.AuthTime)
}

func TestStore_PutTimeDoesNotTouchRecord(t *testing.T) {
	store := setupTestStore(t)
	uid := uuid.NewString()

	require.NoError(t, store.PutDevice(laptop(uid), device.PolicyAuto, nil))

	recordPath := filepath.Join(store.Attrs().Dir(uid), RecordAttr)
	before, err := os.ReadFile(recordPath)
	require.NoError(t, err)

	require.NoError(t, store.PutTime(uid, device.StoreTime, 77))

	after, err := os.ReadFile(recordPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStore_CustomTimeName(t *testing.T) {
	store := setupTestStore(t)
	uid := uuid.NewString()

	require.NoError(t, store.PutTime(uid, "lastseen", 123))

	v, err := store.GetTime(uid, "lastseen")
	require.NoError(t, err)
	assert.Equal(t, uint64(123), v)

	require.NoError(t, store.DelTime(uid, "lastseen"))
	_, err = store.GetTime(uid, "lastseen")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PutTimesValidatesBeforeWriting(t *testing.T) {
	store := setupTestStore(t)
	uid := uuid.NewString()

	err := store.PutTimes(uid, []Time{
		{Name: device.ConnTime, Value: 1},
		{Name: KeyAttr, Value: 2},
	})
	assert.Equal(t, KindInvalid, KindOf(err))

	_, err = store.GetTime(uid, device.ConnTime)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_GetTimesMissing(t *testing.T) {
	store := setupTestStore(t)
	uid := uuid.NewString()

	require.NoError(t, store.PutTime(uid, device.ConnTime, 5))

	var conn, auth uint64
	err := store.GetTimes(uid, []TimeRef{
		{Name: device.ConnTime, Value: &conn},
		{Name: device.AuthTime, Value: &auth},
	})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestStore_DelTimesIgnoresMissing(t *testing.T) {
	store := setupTestStore(t)
	uid := uuid.NewString()

	require.NoError(t, store.PutTime(uid, device.ConnTime, 5))
	require.NoError(t, store.DelTimes(uid, []string{device.AuthTime, device.ConnTime, device.StoreTime}))

	_, err := store.GetTime(uid, device.ConnTime)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UnreadableTimestamp(t *testing.T) {
	store := setupTestStore(t)
	uid := uuid.NewString()

	dev := laptop(uid)
	dev.AuthTime = 50
	require.NoError(t, store.PutDevice(dev, device.PolicyAuto, nil))

	path := filepath.Join(store.Attrs().Dir(uid), device.ConnTime)
	require.NoError(t, os.WriteFile(path, []byte("yesterday"), 0644))

	_, err := store.GetTime(uid, device.ConnTime)
	assert.Equal(t, KindBadData, KindOf(err))

	// the device itself is still readable, the bad timestamp reads as unset
	got, err := store.GetDevice(uid)
	require.NoError(t, err)
	assert.Zero(t, got.ConnTime)
	assert.Equal(t, uint64(50), got.AuthTime)
}

func TestStore_DelTimesAbortsOnOtherErrors(t *testing.T) {
	store := setupTestStore(t)
	uid := uuid.NewString()

	require.NoError(t, store.PutTime(uid, device.ConnTime, 574416000))
	require.NoError(t, os.MkdirAll(filepath.Join(store.Attrs().Dir(uid), device.AuthTime, "child"), 0755))

	err := store.DelTimes(uid, []string{device.AuthTime, device.ConnTime})
	require.Error(t, err)
	assert.Equal(t, KindIO, KindOf(err))

	v, err := store.GetTime(uid, device.ConnTime)
	require.NoError(t, err)
	assert.Equal(t, uint64(574416000), v)
}
