// ABOUTME: Tests for bolt-store commands against a temporary store
// ABOUTME: Drives the app directly and inspects its output

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/boltd/internal/config"
	"github.com/2389/boltd/internal/device"
	"github.com/2389/boltd/internal/store"
)

type fixedSource struct{}

func (fixedSource) Fill(buf []byte) error {
	for i := range buf {
		buf[i] = byte(i)
	}
	return nil
}

func setupTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(t.TempDir(), store.WithLogger(logger))
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return &app{
		store: st,
		src:   fixedSource{},
		out:   out,
		now:   func() time.Time { return time.Unix(1700000000, 0) },
	}, out
}

func TestEnrollAndInfo(t *testing.T) {
	a, out := setupTestApp(t)
	uid := "fbc83890-e9bf-45e5-a777-b3728490989c"

	err := a.run("enroll", []string{uid, "--name", "Laptop", "--vendor", "GNOME.org", "--policy", "auto", "--key"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Enrolled "+uid)

	dev, err := a.store.GetDevice(uid)
	require.NoError(t, err)
	assert.Equal(t, device.PolicyAuto, dev.Policy)
	assert.Equal(t, device.KeyHave, dev.Key)
	assert.Equal(t, uint64(1700000000), dev.StoreTime)

	out.Reset()
	require.NoError(t, a.run("info", []string{uid}))
	assert.Contains(t, out.String(), "GNOME.org")
	assert.Contains(t, out.String(), "fingerprint:")
	assert.Contains(t, out.String(), "2023-11-14T22:13:20Z")

	out.Reset()
	require.NoError(t, a.run("info", []string{uid, "--json"}))
	var props map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &props))
	assert.Equal(t, "Laptop", props["name"])
	assert.Equal(t, "auto", props["policy"])
}

func TestEnroll_New(t *testing.T) {
	a, _ := setupTestApp(t)

	require.NoError(t, a.run("enroll", []string{"--new", "--name", "Dock"}))

	ids, err := a.store.ListDevices()
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Len(t, ids[0], 36)
}

func TestEnroll_BadArgs(t *testing.T) {
	a, _ := setupTestApp(t)

	assert.Error(t, a.run("enroll", nil))
	assert.Error(t, a.run("enroll", []string{"abc", "--policy", "sometimes"}))
	assert.Error(t, a.run("enroll", []string{"abc", "--name"}))
	assert.Error(t, a.run("enroll", []string{"abc", "--bogus"}))
}

func TestList(t *testing.T) {
	a, out := setupTestApp(t)

	require.NoError(t, a.run("list", nil))
	assert.Contains(t, out.String(), "(no devices)")

	require.NoError(t, a.run("enroll", []string{"dev-b", "--name", "Bravo"}))
	require.NoError(t, a.run("enroll", []string{"dev-a", "--name", "Alpha"}))

	out.Reset()
	require.NoError(t, a.run("list", nil))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "dev-a"))
	assert.True(t, strings.HasPrefix(lines[2], "dev-b"))
}

func TestKeyCommands(t *testing.T) {
	a, out := setupTestApp(t)

	require.NoError(t, a.run("key", []string{"gen", "dev"}))
	require.NoError(t, a.run("key", []string{"show", "dev"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines[len(lines)-1], 64)

	require.NoError(t, a.run("key", []string{"rm", "dev"}))

	err := a.run("key", []string{"show", "dev"})
	assert.Equal(t, exitNotFound, exitCode(err))
}

func TestTimesCommands(t *testing.T) {
	a, out := setupTestApp(t)

	require.NoError(t, a.run("times", []string{"set", "dev", "authtime=574423871", "conntime=now"}))

	v, err := a.store.GetTime("dev", device.ConnTime)
	require.NoError(t, err)
	assert.Equal(t, uint64(1700000000), v)

	require.NoError(t, a.run("times", []string{"dev"}))
	assert.Contains(t, out.String(), "574423871")
	assert.Regexp(t, `storetime:\s+-`, out.String())

	require.NoError(t, a.run("times", []string{"rm", "dev", "authtime", "storetime"}))
	_, err = a.store.GetTime("dev", device.AuthTime)
	assert.True(t, store.IsNotFound(err))

	assert.Error(t, a.run("times", []string{"set", "dev", "authtime"}))
	assert.Error(t, a.run("times", []string{"set", "dev", "key=1"}))
}

func TestForget(t *testing.T) {
	a, _ := setupTestApp(t)

	require.NoError(t, a.run("enroll", []string{"dev", "--key"}))
	require.NoError(t, a.run("forget", []string{"dev"}))

	err := a.run("forget", []string{"dev"})
	assert.Equal(t, exitNotFound, exitCode(err))
	assert.Equal(t, exitNotFound, exitCode(a.run("info", []string{"dev"})))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitNotFound, exitCode(&store.Error{Kind: store.KindNotFound}))
	assert.Equal(t, exitFailure, exitCode(&store.Error{Kind: store.KindBadData}))
}

func TestFormatProperty(t *testing.T) {
	assert.Equal(t, "-", formatProperty(uint64(0)))
	assert.Equal(t, "574416000 (1988-03-15T08:00:00Z)", formatProperty(uint64(574416000)))
	assert.Equal(t, "18446744073709551615", formatProperty(uint64(math.MaxUint64)))
	assert.Equal(t, "-", formatProperty(""))
	assert.Equal(t, "true", formatProperty(true))
}

func TestEnroll_NewUsesConfiguredSource(t *testing.T) {
	a, _ := setupTestApp(t)

	require.NoError(t, a.run("enroll", []string{"--new"}))

	ids, err := a.store.ListDevices()
	require.NoError(t, err)
	require.Len(t, ids, 1)
	// fixedSource yields 00 01 02 ..., stamped as a version 4 uuid
	assert.Equal(t, "00010203-0405-4607-8809-0a0b0c0d0e0f", ids[0])
}

func TestList_AuthorizedStatus(t *testing.T) {
	a, out := setupTestApp(t)

	dev := device.New("dev")
	dev.Status = device.StatusAuthorized
	require.NoError(t, a.store.PutDevice(dev, device.PolicyAuto, nil))

	require.NoError(t, a.run("list", nil))
	assert.Contains(t, out.String(), "authorized")
}

func TestParseTimes(t *testing.T) {
	now := func() time.Time { return time.Unix(42, 0) }

	times, err := parseTimes([]string{"authtime=7", "conntime=now"}, now)
	require.NoError(t, err)
	assert.Equal(t, []store.Time{
		{Name: "authtime", Value: 7},
		{Name: "conntime", Value: 42},
	}, times)

	for _, bad := range []string{"authtime", "=5", "authtime=-1", "authtime=soon"} {
		_, err := parseTimes([]string{bad}, now)
		assert.Error(t, err, bad)
	}
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	logger.Info("hidden")
	logger.With("component", "store").Warn("corrupt device record", "uid", "abc")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "corrupt device record")
	assert.Contains(t, buf.String(), "component=")
	assert.Contains(t, buf.String(), "uid=")

	buf.Reset()
	logger = setupLogger(config.LoggingConfig{Level: "debug", Format: "json"}, &buf)
	logger.Debug("stored device", "uid", "abc")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "stored device", rec["msg"])
	assert.Equal(t, "abc", rec["uid"])
}
