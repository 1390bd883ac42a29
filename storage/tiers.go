package storage

import (
	"fmt"

	"github.com/fulldump/replica/record"
)

// Tiers holds the three record collections of a service: persisted Items
// keyed by identifier, unsaved Temps keyed by temp id and editable Clones
// keyed by whichever of both the original uses.
type Tiers struct {
	IdField string
	Items   *Map
	Temps   *Map
	Clones  *Map
}

func NewTiers(idField string) *Tiers {
	t := &Tiers{
		IdField: idField,
	}

	t.Items = NewMap(func(r *record.Record) (string, bool) {
		id, ok := r.ID(idField)
		if !ok {
			return "", false
		}
		return record.Key(id), true
	})
	t.Items.BeforeWrite = unflagClone

	t.Temps = NewMap(func(r *record.Record) (string, bool) {
		tempID := r.TempID()
		return tempID, tempID != ""
	})
	t.Temps.BeforeWrite = unflagClone

	t.Clones = NewMap(func(r *record.Record) (string, bool) {
		return r.Key(idField)
	})
	t.Clones.BeforeWrite = func(r *record.Record) {
		if !r.IsClone() {
			r.SetClone(true)
		}
	}

	return t
}

func unflagClone(r *record.Record) {
	if r.IsClone() {
		r.SetClone(false)
	}
}

// Add dispatches r to its tier: clones to Clones, temps that just got an
// identifier are migrated from Temps to Items, identified records to Items
// and the rest to Temps.
func (t *Tiers) Add(r *record.Record) (*record.Record, error) {

	if r.IsClone() {
		return t.Clones.Merge(r)
	}

	id, hasID := r.ID(t.IdField)
	tempID := r.TempID()

	switch {
	case hasID && tempID != "":
		return t.migrate(r, record.Key(id), tempID)
	case hasID:
		return t.Items.Merge(r)
	case tempID != "":
		return t.Temps.Merge(r)
	}

	return t.Items.Merge(r)
}

func (t *Tiers) migrate(r *record.Record, key, tempID string) (*record.Record, error) {

	temp, wasTemp := t.Temps.Remove(tempID)

	if clone, ok := t.Clones.Remove(tempID); ok {
		id, _ := r.ID(t.IdField)
		clone.Set(t.IdField, id)
		if _, err := t.Clones.Set(clone); err != nil {
			return nil, err
		}
	}

	if !wasTemp || temp == r {
		return t.Items.Merge(r)
	}

	if t.Items.Has(key) {
		// the item arrived first (created event), it stays the stored one and
		// the temp only learns its id
		temp.Assign(r.Document())
		return t.Items.Merge(r)
	}

	// keep the identity of the temp so whoever holds it sees the promotion
	temp.Assign(r.Document())
	return t.Items.Set(temp)
}

// Original returns the stored Item or Temp r refers to, nil if none.
func (t *Tiers) Original(r *record.Record) *record.Record {
	if id, ok := r.ID(t.IdField); ok {
		if item, found := t.Items.Get(record.Key(id)); found {
			return item
		}
	}
	if tempID := r.TempID(); tempID != "" {
		if temp, found := t.Temps.Get(tempID); found {
			return temp
		}
	}
	return nil
}

// Clone returns an editable deep copy of item stored in Clones. The item is
// stored first if it was never seen. With useExisting an already existing
// clone is returned instead of a fresh one.
func (t *Tiers) Clone(item *record.Record, data map[string]any, useExisting bool) (*record.Record, error) {

	key, ok := item.Key(t.IdField)
	if !ok {
		return nil, fmt.Errorf("clone: %w", record.ErrMissingIdentifier)
	}

	original := t.Original(item)
	if original == nil {
		toStore := item
		if item.IsClone() {
			toStore = item.Copy()
			toStore.SetClone(false)
		}
		stored, err := t.Add(toStore)
		if err != nil {
			return nil, fmt.Errorf("clone: %w", err)
		}
		original = stored
	}

	if useExisting {
		if existing, found := t.Clones.Get(key); found {
			if len(data) > 0 {
				existing.Assign(data)
			}
			return existing, nil
		}
	}

	clone := original.Copy()
	clone.SetClone(true)
	if len(data) > 0 {
		clone.Assign(data)
	}

	return t.Clones.Set(clone)
}

// Commit copies item fields, plus data, onto the stored original and returns
// it. A temp whose clone gained an identifier is promoted to Items.
func (t *Tiers) Commit(item *record.Record, data map[string]any) (*record.Record, error) {

	fields := item.Fields()
	for k, v := range data {
		fields[k] = v
	}
	fields = record.CloneFields(fields)

	original := t.Original(item)
	if original == nil {
		fresh := item.Copy()
		fresh.SetClone(false)
		fresh.Assign(fields)
		return t.Add(fresh)
	}

	original.Assign(fields)
	if tempID := item.TempID(); tempID != "" && original.TempID() == "" {
		original.SetTempID(tempID)
	}

	return t.Add(original)
}

// Reset overwrites the clone of item with the fields of the stored original,
// dropping fields only present in the clone. The clone is created if it does
// not exist.
func (t *Tiers) Reset(item *record.Record, data map[string]any) (*record.Record, error) {

	key, ok := item.Key(t.IdField)
	if !ok {
		return nil, fmt.Errorf("reset: %w", record.ErrMissingIdentifier)
	}

	clone, exists := t.Clones.Get(key)
	original := t.Original(item)
	if !exists || original == nil {
		return t.Clone(item, data, false)
	}

	clone.Replace(original.Wire())
	if len(data) > 0 {
		clone.Assign(data)
	}

	return clone, nil
}

// Remove deletes r from the tiers holding it. A clone is removed from Clones
// only, a temp from Temps only, anything else from every tier.
func (t *Tiers) Remove(r *record.Record) bool {

	if r.IsClone() {
		key, ok := r.Key(t.IdField)
		if !ok {
			return false
		}
		_, removed := t.Clones.Remove(key)
		return removed
	}

	tempID := r.TempID()

	id, hasID := r.ID(t.IdField)
	if !hasID {
		if tempID == "" {
			return false
		}
		_, removed := t.Temps.Remove(tempID)
		return removed
	}

	key := record.Key(id)
	removed := false
	for _, m := range []*Map{t.Items, t.Temps, t.Clones} {
		if _, ok := m.Remove(key); ok {
			removed = true
		}
		if tempID == "" {
			continue
		}
		if _, ok := m.Remove(tempID); ok {
			removed = true
		}
	}

	return removed
}

func (t *Tiers) Clear() {
	t.Items.Clear()
	t.Temps.Clear()
	t.Clones.Clear()
}
