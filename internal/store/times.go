// ABOUTME: Timestamp attributes (conntime, authtime, storetime, ...) for stored devices
// ABOUTME: Each timestamp is its own file so updating one never disturbs the others

package store

import "fmt"

// Time is a named timestamp for batch writes.
type Time struct {
	Name  string
	Value uint64
}

// TimeRef names a timestamp and the slot a batch read stores it in.
type TimeRef struct {
	Name  string
	Value *uint64
}

func checkTimeName(op, id, name string) error {
	if err := checkNames(op, id, name); err != nil {
		return err
	}
	if name == RecordAttr || name == KeyAttr {
		return newError(KindInvalid, op, id, name, fmt.Errorf("%q is reserved", name))
	}
	return nil
}

// GetTime reads one timestamp.
func (s *Store) GetTime(id, name string) (uint64, error) {
	const op = "get time"
	if err := checkTimeName(op, id, name); err != nil {
		return 0, err
	}
	v, err := s.attrs.GetUint64(id, name)
	if err != nil {
		return 0, withOp(err, op)
	}
	return v, nil
}

// PutTime writes one timestamp.
func (s *Store) PutTime(id, name string, v uint64) error {
	return s.PutTimes(id, []Time{{Name: name, Value: v}})
}

// PutTimes writes timestamps in order. All names are validated before
// anything is written; the first write failure aborts the batch.
func (s *Store) PutTimes(id string, times []Time) error {
	const op = "put times"
	if err := checkID(op, id); err != nil {
		return err
	}
	attrs := make([]Attr, 0, len(times))
	for _, t := range times {
		if err := checkTimeName(op, id, t.Name); err != nil {
			return err
		}
		attrs = append(attrs, Attr{Name: t.Name, Value: encodeUint64(t.Value)})
	}
	if err := s.attrs.PutAttrs(id, attrs); err != nil {
		return withOp(err, op)
	}
	s.logger.Debug("stored times", "uid", id, "count", len(times))
	return nil
}

// GetTimes reads timestamps into their slots, failing on the first missing or
// unparsable one. Slots are unspecified when an error is returned.
func (s *Store) GetTimes(id string, refs []TimeRef) error {
	const op = "get times"
	if err := checkID(op, id); err != nil {
		return err
	}
	for _, ref := range refs {
		if err := checkTimeName(op, id, ref.Name); err != nil {
			return err
		}
	}
	for _, ref := range refs {
		v, err := s.attrs.GetUint64(id, ref.Name)
		if err != nil {
			return withOp(err, op)
		}
		if ref.Value != nil {
			*ref.Value = v
		}
	}
	return nil
}

// DelTime removes one timestamp. A missing timestamp is KindNotFound.
func (s *Store) DelTime(id, name string) error {
	const op = "delete time"
	if err := checkTimeName(op, id, name); err != nil {
		return err
	}
	if err := s.attrs.DelAttr(id, name); err != nil {
		return withOp(err, op)
	}
	return nil
}

// DelTimes removes timestamps, ignoring ones that do not exist. Any other
// error aborts the batch.
func (s *Store) DelTimes(id string, names []string) error {
	const op = "delete times"
	if err := checkID(op, id); err != nil {
		return err
	}
	for _, name := range names {
		if err := checkTimeName(op, id, name); err != nil {
			return err
		}
	}
	if err := s.attrs.DelAttrs(id, names); err != nil {
		return withOp(err, op)
	}
	return nil
}
