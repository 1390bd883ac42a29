package record

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	jsonv2 "github.com/go-json-experiment/json"
)

// Reserved field names. They never live inside the field bag, they are
// modeled as first class attributes and only appear in Document().
const (
	TempIDField  = "__tempId"
	IsCloneField = "__isClone"
	IsTempField  = "__isTemp"
)

var ErrMissingIdentifier = errors.New("missing identifier")

// Record is a document held by the local store. Stored records are mutated in
// place so every holder of the pointer observes the change.
type Record struct {
	mutex   *sync.RWMutex
	fields  map[string]any
	tempID  string
	isClone bool
	version uint64
}

// New builds a record from a field bag. Reserved keys found in fields are
// moved to their attributes; __isTemp is derived and dropped.
func New(fields map[string]any) *Record {
	r := &Record{
		mutex:  &sync.RWMutex{},
		fields: make(map[string]any, len(fields)),
	}
	for key, value := range fields {
		r.setLocked(key, value)
	}
	return r
}

func (r *Record) setLocked(key string, value any) {
	switch key {
	case TempIDField:
		if s, ok := value.(string); ok {
			r.tempID = s
		}
	case IsCloneField:
		if b, ok := value.(bool); ok {
			r.isClone = b
		}
	case IsTempField:
		// derived
	default:
		r.fields[key] = value
	}
}

func (r *Record) touch() {
	atomic.AddUint64(&r.version, 1)
}

// Version is incremented on every mutation.
func (r *Record) Version() uint64 {
	return atomic.LoadUint64(&r.version)
}

func (r *Record) Get(key string) (any, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	switch key {
	case TempIDField:
		return r.tempID, r.tempID != ""
	case IsCloneField:
		return r.isClone, true
	}
	value, ok := r.fields[key]
	return value, ok
}

func (r *Record) Set(key string, value any) {
	r.mutex.Lock()
	r.setLocked(key, value)
	r.mutex.Unlock()
	r.touch()
}

func (r *Record) Delete(key string) {
	r.mutex.Lock()
	delete(r.fields, key)
	r.mutex.Unlock()
	r.touch()
}

// Assign shallow merges fields into the record. The clone flag is never
// copied and an empty temp id never overwrites an existing one.
func (r *Record) Assign(fields map[string]any) {
	r.mutex.Lock()
	for key, value := range fields {
		switch key {
		case IsCloneField:
			continue
		case TempIDField:
			if s, _ := value.(string); s == "" {
				continue
			}
		}
		r.setLocked(key, value)
	}
	r.mutex.Unlock()
	r.touch()
}

// Replace sets the field bag to exactly fields, keeping temp id and clone
// flag.
func (r *Record) Replace(fields map[string]any) {
	r.mutex.Lock()
	r.fields = make(map[string]any, len(fields))
	for key, value := range fields {
		if key == IsCloneField || key == TempIDField || key == IsTempField {
			continue
		}
		r.fields[key] = value
	}
	r.mutex.Unlock()
	r.touch()
}

// Fields returns a shallow copy of the field bag, without reserved fields.
func (r *Record) Fields() map[string]any {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	fields := make(map[string]any, len(r.fields))
	for key, value := range r.fields {
		fields[key] = value
	}
	return fields
}

// Wire returns an independent copy of the field bag, ready to be sent to a
// remote service.
func (r *Record) Wire() map[string]any {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return CloneFields(r.fields)
}

// Document is the in-memory representation used for matching: the field bag
// plus the reserved fields that are set.
func (r *Record) Document() map[string]any {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	doc := make(map[string]any, len(r.fields)+2)
	for key, value := range r.fields {
		doc[key] = value
	}
	if r.tempID != "" {
		doc[TempIDField] = r.tempID
	}
	if r.isClone {
		doc[IsCloneField] = true
	}
	return doc
}

func (r *Record) MarshalJSON() ([]byte, error) {
	return jsonv2.Marshal(r.Document(), jsonv2.Deterministic(true))
}

func (r *Record) TempID() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.tempID
}

func (r *Record) SetTempID(tempID string) {
	r.mutex.Lock()
	r.tempID = tempID
	r.mutex.Unlock()
	r.touch()
}

func (r *Record) IsClone() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.isClone
}

func (r *Record) SetClone(isClone bool) {
	r.mutex.Lock()
	r.isClone = isClone
	r.mutex.Unlock()
	r.touch()
}

// ID returns the identifier stored under idField.
func (r *Record) ID(idField string) (any, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	id, ok := r.fields[idField]
	if !ok || id == nil {
		return nil, false
	}
	return id, true
}

// IsTemp is true when the record has no identifier yet.
func (r *Record) IsTemp(idField string) bool {
	_, ok := r.ID(idField)
	return !ok
}

// Key returns the storage key of the record: its identifier or, lacking one,
// its temp id.
func (r *Record) Key(idField string) (string, bool) {
	if id, ok := r.ID(idField); ok {
		return Key(id), true
	}
	if tempID := r.TempID(); tempID != "" {
		return tempID, true
	}
	return "", false
}

// Copy returns a deep, independent copy including temp id and clone flag.
func (r *Record) Copy() *Record {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return &Record{
		mutex:   &sync.RWMutex{},
		fields:  CloneFields(r.fields),
		tempID:  r.tempID,
		isClone: r.isClone,
	}
}

// Key normalizes an identifier into a map key, so 3, int64(3) and 3.0 (as
// decoded from JSON) address the same record.
func Key(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(id)
}
