// ABOUTME: Error kinds reported by the attribute and device stores
// ABOUTME: Absence, key corruption, data corruption, and I/O failures never share a kind

package store

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/2389/boltd/internal/key"
)

// Kind classifies store errors.
type Kind int

const (
	KindFailed   Kind = iota // unclassified failure
	KindNotFound             // identity, attribute, or key does not exist
	KindBadKey               // key file exists but is malformed
	KindBadData              // attribute exists but cannot be parsed
	KindIO                   // underlying filesystem failure
	KindInvalid              // malformed identity or attribute name
)

var kindNames = map[Kind]string{
	KindFailed:   "failed",
	KindNotFound: "not found",
	KindBadKey:   "bad key",
	KindBadData:  "bad data",
	KindIO:       "i/o error",
	KindInvalid:  "invalid argument",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its kind.
var (
	ErrFailed   = errors.New("failed")
	ErrNotFound = errors.New("not found")
	ErrBadKey   = errors.New("bad key")
	ErrBadData  = errors.New("bad data")
	ErrIO       = errors.New("i/o error")
	ErrInvalid  = errors.New("invalid argument")
)

var kindSentinels = map[Kind]error{
	KindFailed:   ErrFailed,
	KindNotFound: ErrNotFound,
	KindBadKey:   ErrBadKey,
	KindBadData:  ErrBadData,
	KindIO:       ErrIO,
	KindInvalid:  ErrInvalid,
}

// Error is the error type returned by every store operation.
type Error struct {
	Kind Kind
	Op   string // operation, e.g. "get device"
	ID   string // device identity, if any
	Name string // attribute name, if any
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.ID != "" {
		b.WriteString(" ")
		b.WriteString(e.ID)
	}
	if e.Name != "" {
		b.WriteString("/")
		b.WriteString(e.Name)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the kind of err. Errors not produced by the store are
// KindFailed; nil is KindFailed as well and should not be passed.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindFailed
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func newError(kind Kind, op, id, name string, err error) *Error {
	return &Error{Kind: kind, Op: op, ID: id, Name: name, Err: err}
}

// fsError classifies a filesystem or key error.
func fsError(op, id, name string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}

	kind := KindIO
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = KindNotFound
	case errors.Is(err, key.ErrBadKey):
		kind = KindBadKey
	}
	return newError(kind, op, id, name, err)
}
