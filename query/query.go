package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fulldump/replica/record"
)

var ErrInvalidQuery = errors.New("invalid query")

// Filter keys are not part of the predicate, they shape the result.
const (
	KeySort   = "$sort"
	KeyLimit  = "$limit"
	KeySkip   = "$skip"
	KeySelect = "$select"
)

var FilterKeys = []string{KeySort, KeyLimit, KeySkip, KeySelect}

var DefaultOperators = []string{
	"$in", "$nin", "$lt", "$lte", "$gt", "$gte", "$ne", "$or", "$and",
	"$exists", "$eq", "$mod", "$all", "$not", "$size", "$type", "$regex",
	"$options", "$where", "$elemMatch",
	"$like", "$notLike", "$notlike", "$ilike", "$iLike", "$notILike",
}

// CustomFilter receives the items that survived previous custom filters, the
// raw argument of its key and the whole query.
type CustomFilter func(items []*record.Record, arg any, query map[string]any) []*record.Record

type Options struct {
	IdField string

	// Whitelist adds operators to the default ones.
	Whitelist []string

	// CustomFilters are top level query keys resolved before the predicate.
	CustomFilters map[string]CustomFilter
}

type Result struct {
	Total int              `json:"total"`
	Limit int              `json:"limit"`
	Skip  int              `json:"skip"`
	Data  []*record.Record `json:"data"`
}

type Engine struct {
	idField       string
	allowed       map[string]bool
	customFilters map[string]CustomFilter
}

func NewEngine(options Options) *Engine {
	if options.IdField == "" {
		options.IdField = "id"
	}

	e := &Engine{
		idField: options.IdField,
		allowed: map[string]bool{},
		customFilters: map[string]CustomFilter{
			"$fuzzy": Fuzzy,
		},
	}
	for _, op := range DefaultOperators {
		e.allowed[op] = true
	}
	for _, op := range options.Whitelist {
		e.allowed[op] = true
	}
	for key, filter := range options.CustomFilters {
		e.customFilters[key] = filter
	}

	return e
}

// Split separates filter keys ($sort, $limit, $skip, $select) from the rest
// of the query.
func Split(q map[string]any) (filters, rest map[string]any) {
	filters = map[string]any{}
	rest = map[string]any{}
	for key, value := range q {
		if isFilterKey(key) {
			filters[key] = value
			continue
		}
		rest[key] = value
	}
	return
}

func isFilterKey(key string) bool {
	for _, k := range FilterKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Compile validates q and returns its predicate. Filter keys and custom
// filter keys are ignored.
func (e *Engine) Compile(q map[string]any) (Predicate, error) {
	_, rest := Split(q)
	for key := range e.customFilters {
		delete(rest, key)
	}
	return compile(rest, e.allowed)
}

// Run evaluates q over values and returns the sorted, sliced and selected
// result. Total counts every match before slicing.
func (e *Engine) Run(values []*record.Record, q map[string]any) (*Result, error) {

	filters, _ := Split(q)

	matched, err := e.match(values, q)
	if err != nil {
		return nil, err
	}

	if sortValue, ok := filters[KeySort]; ok && sortValue != nil {
		keys, err := ParseSort(sortValue)
		if err != nil {
			return nil, err
		}
		SortRecords(matched, keys)
	}

	result := &Result{
		Total: len(matched),
		Limit: len(matched),
		Data:  matched,
	}

	if v, ok := filters[KeySkip]; ok {
		skip, err := toInt(v)
		if err != nil || skip < 0 {
			return nil, fmt.Errorf("%w: invalid $skip '%v'", ErrInvalidQuery, v)
		}
		result.Skip = skip
	}
	if v, ok := filters[KeyLimit]; ok {
		limit, err := toInt(v)
		if err != nil || limit < 0 {
			return nil, fmt.Errorf("%w: invalid $limit '%v'", ErrInvalidQuery, v)
		}
		result.Limit = limit
	}

	from := min(result.Skip, len(matched))
	to := min(from+result.Limit, len(matched))
	result.Data = matched[from:to]

	if v, ok := filters[KeySelect]; ok && v != nil {
		fields, err := toStrings(v)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid $select: %s", ErrInvalidQuery, err.Error())
		}
		result.Data = Select(result.Data, fields, e.idField)
	}

	return result, nil
}

// Count returns how many values match q, ignoring $limit and $skip.
func (e *Engine) Count(values []*record.Record, q map[string]any) (int, error) {
	matched, err := e.match(values, q)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (e *Engine) match(values []*record.Record, q map[string]any) ([]*record.Record, error) {

	predicate, err := e.Compile(q)
	if err != nil {
		return nil, err
	}

	items := values
	keys := make([]string, 0, len(e.customFilters))
	for key := range e.customFilters {
		if _, ok := q[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		items = e.customFilters[key](items, q[key], q)
	}

	matched := make([]*record.Record, 0, len(items))
	for _, item := range items {
		if predicate(item.Document()) {
			matched = append(matched, item)
		}
	}

	return matched, nil
}

// Select returns copies of records holding only fields plus the identifier
// and temp id.
func Select(records []*record.Record, fields []string, idField string) []*record.Record {
	keep := append([]string{idField}, fields...)
	selected := make([]*record.Record, len(records))
	for i, r := range records {
		c := r.Copy()
		c.Replace(record.Pick(c.Fields(), keep))
		selected[i] = c
	}
	return selected
}

// Clean returns a copy of q without the filter keys.
func Clean(q map[string]any) map[string]any {
	_, rest := Split(q)
	return rest
}

func toStrings(v any) ([]string, error) {
	switch s := v.(type) {
	case []string:
		return s, nil
	case string:
		return strings.Split(s, ","), nil
	}
	items, ok := toSlice(v)
	if !ok {
		return nil, fmt.Errorf("expected list of fields, got %T", v)
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected field name, got %T", item)
		}
		result = append(result, s)
	}
	return result, nil
}
