// ABOUTME: Device key persistence on top of the attribute directory layout
// ABOUTME: Keys are saved and loaded through package key; deleting one never touches the record

package store

import (
	"errors"
	"os"

	"github.com/2389/boltd/internal/device"
	"github.com/2389/boltd/internal/key"
	"github.com/2389/boltd/internal/random"
)

var errNilKey = errors.New("nil key")

func (s *Store) keyPath(id string) string {
	return s.attrs.path(id, KeyAttr)
}

func (s *Store) saveKey(op, id string, k *key.Key) error {
	if err := checkID(op, id); err != nil {
		return err
	}
	if err := os.MkdirAll(s.attrs.Dir(id), dirMode); err != nil {
		return fsError(op, id, "", err)
	}
	if err := k.Save(s.keyPath(id)); err != nil {
		return fsError(op, id, KeyAttr, err)
	}
	return nil
}

// PutKey stores k as the key of id, replacing any previous key.
func (s *Store) PutKey(id string, k *key.Key) error {
	const op = "put key"
	if k == nil {
		return newError(KindInvalid, op, id, KeyAttr, errNilKey)
	}
	if err := s.saveKey(op, id, k); err != nil {
		return err
	}
	s.logger.Debug("stored key", "uid", id, "key", k.String())
	return nil
}

// CreateKey generates a key from src and stores it for id.
func (s *Store) CreateKey(id string, src random.Source) (*key.Key, error) {
	const op = "create key"
	if err := checkID(op, id); err != nil {
		return nil, err
	}
	k, err := key.Generate(src)
	if err != nil {
		return nil, newError(KindFailed, op, id, KeyAttr, err)
	}
	if err := s.saveKey(op, id, k); err != nil {
		return nil, err
	}
	s.logger.Debug("created key", "uid", id, "key", k.String())
	return k, nil
}

// GetKey loads the key of id. A missing key is KindNotFound, a corrupt one
// KindBadKey.
func (s *Store) GetKey(id string) (*key.Key, error) {
	const op = "get key"
	if err := checkID(op, id); err != nil {
		return nil, err
	}
	k, err := key.Load(s.keyPath(id))
	if err != nil {
		return nil, fsError(op, id, KeyAttr, err)
	}
	return k, nil
}

// HaveKey reports whether a well-formed key is stored for id. Unreadable
// keys count as missing.
func (s *Store) HaveKey(id string) device.KeyState {
	if checkID("", id) != nil {
		return device.KeyMissing
	}
	if _, err := key.Load(s.keyPath(id)); err != nil {
		return device.KeyMissing
	}
	return device.KeyHave
}

// DelKey removes the key of id. The record, if any, is kept.
func (s *Store) DelKey(id string) error {
	const op = "delete key"
	if err := checkID(op, id); err != nil {
		return err
	}
	if err := os.Remove(s.keyPath(id)); err != nil {
		return fsError(op, id, KeyAttr, err)
	}
	if err := s.attrs.removeDirIfEmpty(id); err != nil {
		return fsError(op, id, "", err)
	}
	s.logger.Debug("deleted key", "uid", id)
	return nil
}
