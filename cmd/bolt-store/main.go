// ABOUTME: Entry point for bolt-store, an offline admin tool for the boltd device store
// ABOUTME: Lists, inspects, enrolls, and forgets devices and manages their keys and timestamps

package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/2389/boltd/internal/config"
	"github.com/2389/boltd/internal/device"
	"github.com/2389/boltd/internal/export"
	"github.com/2389/boltd/internal/key"
	"github.com/2389/boltd/internal/random"
	"github.com/2389/boltd/internal/store"
)

// Version is set at build time.
var version = "dev"

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitNotFound = 2
)

// app carries what every command needs.
type app struct {
	store store.DeviceStore
	src   random.Source
	out   io.Writer
	now   func() time.Time
}

func main() {
	args := os.Args[1:]

	configPath, explicit := config.DefaultPath(), false
	if len(args) >= 2 && (args[0] == "-c" || args[0] == "--config") {
		configPath, explicit = args[1], true
		args = args[2:]
	}

	if len(args) < 1 {
		printUsage()
		os.Exit(exitFailure)
	}

	switch args[0] {
	case "help", "-h", "--help":
		printUsage()
		return
	case "version", "--version":
		fmt.Printf("bolt-store %s\n", version)
		return
	}

	var (
		cfg *config.Config
		err error
	)
	if explicit {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadOrDefault(configPath)
	}
	if err != nil {
		color.Red("Error: loading config: %v\n", err)
		os.Exit(exitFailure)
	}

	logger := setupLogger(cfg.Logging, os.Stderr)

	st, err := store.Open(cfg.Store.Path, store.WithLogger(logger))
	if err != nil {
		color.Red("Error: opening store: %v\n", err)
		os.Exit(exitFailure)
	}

	a := &app{
		store: st,
		src:   &random.DeviceSource{Path: cfg.Random.Device},
		out:   os.Stdout,
		now:   time.Now,
	}

	if err := a.run(args[0], args[1:]); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func printUsage() {
	yellow := color.New(color.FgYellow)

	fmt.Println("Usage: bolt-store [-c config] <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  list                              List stored devices")
	fmt.Println("  info <uid> [--json]               Show a stored device")
	fmt.Println("  enroll <uid>|--new [options]      Store a device record")
	fmt.Println("      --name NAME --vendor VENDOR --policy default|manual|auto")
	fmt.Println("      --label LABEL --type host|peripheral --key")
	fmt.Println("  forget <uid>                      Remove record, timestamps, and key")
	fmt.Println("  key gen <uid>                     Generate and store a new key")
	fmt.Println("  key show <uid>                    Show the key fingerprint")
	fmt.Println("  key rm <uid>                      Remove the key")
	fmt.Println("  times <uid>                       Show timestamps")
	fmt.Println("  times set <uid> name=value...     Set timestamps (unix seconds or 'now')")
	fmt.Println("  times rm <uid> name...            Remove timestamps")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Printf("  %-33s Config file (default %s)\n", config.EnvConfig, "$XDG_CONFIG_HOME/boltd/config.yaml")
}

// exitCode maps a store error kind to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case store.IsNotFound(err):
		return exitNotFound
	default:
		return exitFailure
	}
}

func (a *app) run(cmd string, args []string) error {
	switch cmd {
	case "list":
		return a.cmdList()
	case "info":
		return a.cmdInfo(args)
	case "enroll":
		return a.cmdEnroll(args)
	case "forget":
		return a.cmdForget(args)
	case "key":
		return a.cmdKey(args)
	case "times":
		return a.cmdTimes(args)
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// cmdList prints one row per stored device.
func (a *app) cmdList() error {
	ids, err := a.store.ListDevices()
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		fmt.Fprintln(a.out, "(no devices)")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UID\tNAME\tVENDOR\tPOLICY\tKEY\tSTATUS")

	for _, id := range ids {
		dev, err := a.store.GetDevice(id)
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\t\t\t\t\n", id, color.RedString("<%s>", store.KindOf(err)))
			continue
		}
		status := dev.Status.String()
		if dev.Status.IsAuthorized() {
			status = color.GreenString(status)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			dev.UID, dev.Name, dev.Vendor, dev.Policy, dev.Key, status)
	}
	return w.Flush()
}

// cmdInfo prints all exported properties of one device.
func (a *app) cmdInfo(args []string) error {
	var uid string
	asJSON := false
	for _, arg := range args {
		switch arg {
		case "--json":
			asJSON = true
		default:
			uid = arg
		}
	}
	if uid == "" {
		return fmt.Errorf("usage: info <uid> [--json]")
	}

	dev, err := a.store.GetDevice(uid)
	if err != nil {
		return err
	}

	if asJSON {
		s, err := export.Struct(dev)
		if err != nil {
			return err
		}
		data, err := protojson.MarshalOptions{Multiline: true}.Marshal(s)
		if err != nil {
			return fmt.Errorf("encoding device: %w", err)
		}
		fmt.Fprintln(a.out, string(data))
		return nil
	}

	props := export.Properties(dev)
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "%s:\t%s\n", name, formatProperty(props[name]))
	}
	if dev.HasKey() {
		if k, err := a.store.GetKey(uid); err == nil {
			fmt.Fprintf(w, "fingerprint:\t%s\n", k.Fingerprint())
		}
	}
	return w.Flush()
}

func formatProperty(v any) string {
	switch v := v.(type) {
	case uint64:
		if v == 0 {
			return "-"
		}
		if v > math.MaxInt64 {
			return strconv.FormatUint(v, 10)
		}
		return fmt.Sprintf("%d (%s)", v, time.Unix(int64(v), 0).UTC().Format(time.RFC3339))
	case string:
		if v == "" {
			return "-"
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}

// cmdEnroll stores a device record, optionally with a new key.
func (a *app) cmdEnroll(args []string) error {
	var (
		uid     string
		withKey bool
		dev     = device.New("")
		policy  = device.PolicyDefault
	)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		next := func() (string, error) {
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s requires a value", arg)
			}
			i++
			return args[i], nil
		}

		var err error
		switch arg {
		case "--new":
			id, err := uuid.NewRandomFromReader(random.Reader(a.src))
			if err != nil {
				return fmt.Errorf("generating uid: %w", err)
			}
			uid = id.String()
		case "--key":
			withKey = true
		case "--name":
			dev.Name, err = next()
		case "--vendor":
			dev.Vendor, err = next()
		case "--label":
			dev.Label, err = next()
		case "--policy":
			var v string
			if v, err = next(); err == nil {
				policy, err = device.ParsePolicy(v)
			}
		case "--type":
			var v string
			if v, err = next(); err == nil {
				dev.Type, err = device.ParseType(v)
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return fmt.Errorf("unknown option: %s", arg)
			}
			uid = arg
		}
		if err != nil {
			return err
		}
	}

	if uid == "" {
		return fmt.Errorf("usage: enroll <uid>|--new [--name N] [--vendor V] [--policy P] [--key]")
	}
	dev.UID = uid
	dev.StoreTime = uint64(a.now().Unix())

	var k *key.Key
	if withKey {
		var err error
		if k, err = key.Generate(a.src); err != nil {
			return err
		}
	}

	if err := a.store.PutDevice(dev, policy, k); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Fprintf(a.out, "✓ Enrolled %s\n", uid)
	fmt.Fprintf(a.out, "  Name:    %s\n", dev.Name)
	fmt.Fprintf(a.out, "  Vendor:  %s\n", dev.Vendor)
	fmt.Fprintf(a.out, "  Policy:  %s\n", policy)
	if k != nil {
		fmt.Fprintf(a.out, "  Key:     %s\n", k.Fingerprint())
	}
	return nil
}

func (a *app) cmdForget(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: forget <uid>")
	}
	if err := a.store.Forget(args[0]); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(a.out, "✓ Forgot %s\n", args[0])
	return nil
}

func (a *app) cmdKey(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: key gen|show|rm <uid>")
	}
	sub, uid := args[0], args[1]

	switch sub {
	case "gen":
		k, err := a.store.CreateKey(uid, a.src)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(a.out, "✓ Generated key %s\n", k.Fingerprint())
	case "show":
		k, err := a.store.GetKey(uid)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, k.Fingerprint())
	case "rm":
		if err := a.store.DelKey(uid); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(a.out, "✓ Removed key of %s\n", uid)
	default:
		return fmt.Errorf("unknown key command: %s", sub)
	}
	return nil
}

var knownTimes = []string{device.ConnTime, device.AuthTime, device.StoreTime}

func (a *app) cmdTimes(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: times <uid> | times set <uid> name=value... | times rm <uid> name...")
	}

	switch args[0] {
	case "set":
		if len(args) < 3 {
			return fmt.Errorf("usage: times set <uid> name=value...")
		}
		times, err := parseTimes(args[2:], a.now)
		if err != nil {
			return err
		}
		return a.store.PutTimes(args[1], times)
	case "rm":
		if len(args) < 3 {
			return fmt.Errorf("usage: times rm <uid> name...")
		}
		return a.store.DelTimes(args[1], args[2:])
	}

	uid := args[0]
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, name := range knownTimes {
		v, err := a.store.GetTime(uid, name)
		switch {
		case err == nil:
			fmt.Fprintf(w, "%s:\t%s\n", name, formatProperty(v))
		case store.IsNotFound(err):
			fmt.Fprintf(w, "%s:\t-\n", name)
		default:
			fmt.Fprintf(w, "%s:\t%s\n", name, color.RedString("<%s>", store.KindOf(err)))
		}
	}
	return w.Flush()
}

// parseTimes parses name=value pairs; value is unix seconds or "now".
func parseTimes(args []string, now func() time.Time) ([]store.Time, error) {
	times := make([]store.Time, 0, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid timestamp %q, want name=value", arg)
		}
		var v uint64
		if value == "now" {
			v = uint64(now().Unix())
		} else {
			var err error
			if v, err = strconv.ParseUint(value, 10, 64); err != nil {
				return nil, fmt.Errorf("invalid timestamp %q: %w", arg, err)
			}
		}
		times = append(times, store.Time{Name: name, Value: v})
	}
	return times, nil
}
