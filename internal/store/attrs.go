// ABOUTME: Crash-safe per-identity attribute storage, one small file per attribute
// ABOUTME: Batch deletion tolerates missing attributes; every write is temp file + rename

package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/2389/boltd/internal/atomicfile"
)

const (
	devicesDir = "devices"

	// AttrMode is the permission of non-secret attribute files.
	AttrMode os.FileMode = 0644

	dirMode os.FileMode = 0755
)

// Attr is a named attribute value for batch writes.
type Attr struct {
	Name  string
	Value []byte
}

// AttrRef names an attribute and the slot a batch read stores it in.
type AttrRef struct {
	Name  string
	Value *[]byte
}

// Attrs stores named attributes under <root>/devices/<identity>/<name>.
// It performs no locking; callers serialize writers.
type Attrs struct {
	base string
}

// NewAttrs returns an attribute store rooted at root. The devices directory
// is created if missing.
func NewAttrs(root string) (*Attrs, error) {
	base := filepath.Join(root, devicesDir)
	if err := os.MkdirAll(base, dirMode); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &Attrs{base: base}, nil
}

// Dir returns the directory holding an identity's attributes.
func (a *Attrs) Dir(id string) string {
	return filepath.Join(a.base, id)
}

func (a *Attrs) path(id, name string) string {
	return filepath.Join(a.base, id, name)
}

// PutAttr atomically creates or replaces an attribute, creating the identity
// directory if needed.
func (a *Attrs) PutAttr(id, name string, value []byte) error {
	return a.putFile("put attribute", id, name, value, AttrMode)
}

func (a *Attrs) putFile(op, id, name string, value []byte, mode os.FileMode) error {
	if err := checkNames(op, id, name); err != nil {
		return err
	}
	if err := os.MkdirAll(a.Dir(id), dirMode); err != nil {
		return fsError(op, id, "", err)
	}
	if err := atomicfile.Write(a.path(id, name), value, mode); err != nil {
		return fsError(op, id, name, err)
	}
	return nil
}

// GetAttr reads an attribute.
func (a *Attrs) GetAttr(id, name string) ([]byte, error) {
	const op = "get attribute"
	if err := checkNames(op, id, name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(a.path(id, name))
	if err != nil {
		return nil, fsError(op, id, name, err)
	}
	return data, nil
}

// DelAttr removes an attribute.
func (a *Attrs) DelAttr(id, name string) error {
	const op = "delete attribute"
	if err := checkNames(op, id, name); err != nil {
		return err
	}
	if err := os.Remove(a.path(id, name)); err != nil {
		return fsError(op, id, name, err)
	}
	return nil
}

// HasAttr reports whether an attribute exists. It never fails.
func (a *Attrs) HasAttr(id, name string) bool {
	if checkNames("", id, name) != nil {
		return false
	}
	fi, err := os.Stat(a.path(id, name))
	return err == nil && fi.Mode().IsRegular()
}

// PutAttrs writes attributes in order and stops at the first failure.
// Attributes written before the failure are not rolled back.
func (a *Attrs) PutAttrs(id string, attrs []Attr) error {
	for _, attr := range attrs {
		if err := a.PutAttr(id, attr.Name, attr.Value); err != nil {
			return err
		}
	}
	return nil
}

// GetAttrs reads attributes into their slots and stops at the first failure.
// Slots are unspecified when an error is returned.
func (a *Attrs) GetAttrs(id string, refs []AttrRef) error {
	for _, ref := range refs {
		v, err := a.GetAttr(id, ref.Name)
		if err != nil {
			return err
		}
		if ref.Value != nil {
			*ref.Value = v
		}
	}
	return nil
}

// DelAttrs removes attributes, ignoring ones that do not exist. Any other
// error aborts the batch.
func (a *Attrs) DelAttrs(id string, names []string) error {
	for _, name := range names {
		if err := a.DelAttr(id, name); err != nil && !IsNotFound(err) {
			return err
		}
	}
	return nil
}

// PutUint64 stores v as decimal text.
func (a *Attrs) PutUint64(id, name string, v uint64) error {
	return a.PutAttr(id, name, encodeUint64(v))
}

// GetUint64 reads a decimal attribute. Empty or non-numeric content is
// reported as KindBadData.
func (a *Attrs) GetUint64(id, name string) (uint64, error) {
	data, err := a.GetAttr(id, name)
	if err != nil {
		return 0, err
	}
	v, err := decodeUint64(data)
	if err != nil {
		return 0, newError(KindBadData, "get attribute", id, name, err)
	}
	return v, nil
}

// HasIdentity reports whether an identity directory exists.
func (a *Attrs) HasIdentity(id string) bool {
	if checkID("", id) != nil {
		return false
	}
	fi, err := os.Stat(a.Dir(id))
	return err == nil && fi.IsDir()
}

// RemoveIdentity deletes an identity directory with everything in it.
func (a *Attrs) RemoveIdentity(id string) error {
	const op = "remove identity"
	if err := checkID(op, id); err != nil {
		return err
	}
	if !a.HasIdentity(id) {
		return newError(KindNotFound, op, id, "", fs.ErrNotExist)
	}
	if err := os.RemoveAll(a.Dir(id)); err != nil {
		return fsError(op, id, "", err)
	}
	return nil
}

// Identities lists identity directories in lexical order.
func (a *Attrs) Identities() ([]string, error) {
	entries, err := os.ReadDir(a.base)
	if err != nil {
		return nil, fsError("list identities", "", "", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && !atomicfile.IsTemp(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// Names lists the attributes stored for an identity in lexical order.
// Temporary files left behind by an interrupted write are skipped.
func (a *Attrs) Names(id string) ([]string, error) {
	const op = "list attributes"
	if err := checkID(op, id); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(a.Dir(id))
	if err != nil {
		return nil, fsError(op, id, "", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && !atomicfile.IsTemp(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// removeDirIfEmpty drops an identity directory once nothing is left in it.
// Leftover temp files from interrupted writes do not keep it alive.
func (a *Attrs) removeDirIfEmpty(id string) error {
	dir := a.Dir(id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if !atomicfile.IsTemp(e.Name()) {
			return nil
		}
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// checkID validates an identity.
func checkID(op, id string) error {
	if err := checkName(id); err != nil {
		return newError(KindInvalid, op, id, "", fmt.Errorf("identity: %w", err))
	}
	return nil
}

// checkNames validates an identity and an attribute name. Both are required.
func checkNames(op, id, name string) error {
	if err := checkID(op, id); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return newError(KindInvalid, op, id, name, fmt.Errorf("attribute: %w", err))
	}
	return nil
}

func checkName(s string) error {
	switch {
	case s == "":
		return errors.New("empty name")
	case s == "." || s == "..":
		return fmt.Errorf("reserved name %q", s)
	case strings.ContainsAny(s, `/\`) || strings.ContainsRune(s, 0):
		return fmt.Errorf("name %q contains a path separator", s)
	case atomicfile.IsTemp(s):
		return fmt.Errorf("name %q starts with %q", s, atomicfile.TempPrefix)
	}
	return nil
}

func encodeUint64(v uint64) []byte {
	return strconv.AppendUint(nil, v, 10)
}

func decodeUint64(data []byte) (uint64, error) {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return 0, errors.New("empty value")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", s, err)
	}
	return v, nil
}
