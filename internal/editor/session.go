// internal/editor/session.go
// Editing session for a single content item. The session holds a working
// copy; the backing store is untouched until Save commits.
package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vitrine/internal/content"
	"vitrine/internal/schema"
	"vitrine/internal/store"
)

var (
	ErrClosed        = errors.New("editor: session is closed")
	ErrSaveInFlight  = errors.New("editor: a save is already in progress")
	ErrUnknownField  = errors.New("editor: field not in category schema")
	ErrInvalidNumber = errors.New("editor: value is not a number")
)

// State is the lifecycle phase of an editing session.
type State int

const (
	StateClosed State = iota
	StateLoaded
	StateEditing
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	default:
		return "closed"
	}
}

// Session edits one item. It is not safe for concurrent use; one session
// belongs to one editing request.
type Session struct {
	state   State
	item    content.Item
	fields  []schema.Field
	working map[string]any
}

// Open starts a session over a loaded item. The working copy is a shallow
// copy of the item's schema fields, with list coercion applied once here
// at the read boundary.
func Open(item content.Item) (*Session, error) {
	fields, err := schema.ForCategory(item.Category)
	if err != nil {
		return nil, err
	}

	working := make(map[string]any, len(fields))
	for _, f := range fields {
		working[f.Name] = schema.ReadValue(item.Raw, f)
	}

	return &Session{
		state:   StateLoaded,
		item:    item,
		fields:  fields,
		working: working,
	}, nil
}

// State returns the session's current lifecycle phase.
func (s *Session) State() State { return s.state }

// Item returns the item the session was opened on.
func (s *Session) Item() content.Item { return s.item }

// Fields returns the category's editable field definitions.
func (s *Session) Fields() []schema.Field { return s.fields }

// Value reads a field from the working copy.
func (s *Session) Value(name string) (any, bool) {
	v, ok := s.working[name]
	return v, ok
}

// SetField updates one field of the working copy. A value that fails the
// field's validation leaves the prior value in place and reports the
// error; the session stays editable either way.
func (s *Session) SetField(name string, value any) error {
	if err := s.editable(); err != nil {
		return err
	}

	field, ok := fieldByName(s.fields, name)
	if !ok {
		return fmt.Errorf("%w: %q in %s", ErrUnknownField, name, s.item.Category)
	}

	switch {
	case field.IsList():
		s.working[name] = schema.CoerceList(value)
	case field.Kind == schema.Number:
		if value == nil {
			s.working[name] = nil
			break
		}
		n, parsed := schema.ParseNumber(value)
		if !parsed {
			return fmt.Errorf("%w: field %q", ErrInvalidNumber, name)
		}
		s.working[name] = n
	default:
		s.working[name] = value
	}

	s.state = StateEditing
	return nil
}

// Apply sets several fields at once, collecting per-field errors without
// aborting the rest. Validation here is best-effort, not a gate.
func (s *Session) Apply(changes map[string]any) []error {
	var errs []error
	for name, value := range changes {
		if err := s.SetField(name, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// AddListEntry appends an entry to a list field of the working copy.
func (s *Session) AddListEntry(name, entry string) error {
	if err := s.editable(); err != nil {
		return err
	}
	field, ok := fieldByName(s.fields, name)
	if !ok || !field.IsList() {
		return fmt.Errorf("%w: %q is not a list field", ErrUnknownField, name)
	}
	list := schema.CoerceList(s.working[name])
	s.working[name] = append(list, entry)
	s.state = StateEditing
	return nil
}

// RemoveListEntry deletes the entry at index from a list field. An index
// out of range is ignored.
func (s *Session) RemoveListEntry(name string, index int) error {
	if err := s.editable(); err != nil {
		return err
	}
	field, ok := fieldByName(s.fields, name)
	if !ok || !field.IsList() {
		return fmt.Errorf("%w: %q is not a list field", ErrUnknownField, name)
	}
	list := schema.CoerceList(s.working[name])
	if index < 0 || index >= len(list) {
		return nil
	}
	s.working[name] = append(list[:index:index], list[index+1:]...)
	s.state = StateEditing
	return nil
}

// Save commits the working copy as one row update against the item's
// backing table and closes the session. On failure the session returns to
// Editing so nothing typed is lost. A second save while one is in flight
// is rejected.
func (s *Session) Save(ctx context.Context, db content.Backend) (content.Item, error) {
	switch s.state {
	case StateSaving:
		return content.Item{}, ErrSaveInFlight
	case StateClosed:
		return content.Item{}, ErrClosed
	}
	s.state = StateSaving

	patch := schema.BuildPatch(s.fields, s.working)
	if !tableLacksUpdatedAt(s.item.Table) {
		patch["updated_at"] = time.Now().UTC()
	}

	if err := db.Update(ctx, s.item.Table, s.item.ID, patch); err != nil {
		s.state = StateEditing
		return content.Item{}, err
	}

	merged := make(store.Record, len(s.item.Raw)+len(patch))
	for k, v := range s.item.Raw {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}

	s.state = StateClosed
	return content.Normalize(merged, s.item.Category, s.item.Table), nil
}

// Close abandons the session without writing.
func (s *Session) Close() { s.state = StateClosed }

func (s *Session) editable() error {
	switch s.state {
	case StateSaving:
		return ErrSaveInFlight
	case StateClosed:
		return ErrClosed
	}
	return nil
}

func fieldByName(fields []schema.Field, name string) (schema.Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return schema.Field{}, false
}

// team_members predates the updated_at column.
func tableLacksUpdatedAt(table string) bool {
	return table == "team_members"
}
