package service

import (
	"github.com/fulldump/replica/pending"
	"github.com/fulldump/replica/query"
	"github.com/fulldump/replica/record"
	"github.com/fulldump/replica/remote"
)

// Params tune a single service call.
type Params struct {
	Query map[string]any

	// Qid names the query for pagination state and the response cache.
	Qid string

	// Temps and Clones apply to store reads.
	Temps  bool
	Clones bool

	// SkipStore keeps the response out of the local store.
	SkipStore bool

	// SkipRequestIfExists resolves a get from the store when possible.
	SkipRequestIfExists bool

	// Diff forces diffing on (or off) for patch. Clones are diffed unless
	// it is explicitly false.
	Diff *bool
	// DiffKeys restricts diffing to these fields.
	DiffKeys []string
	// With fields are always sent, changed or not.
	With []string
	// Eager applies the diff to the stored original before the remote call.
	// Defaults to true.
	Eager *bool

	// PreserveSsr keeps the ssr flag of an already cached page.
	PreserveSsr bool
}

func Bool(b bool) *bool {
	return &b
}

func (p Params) remoteParams() remote.Params {
	return remote.Params{Query: p.Query}
}

// Call is the context shared by the stages of a service call.
type Call struct {
	Method pending.Method
	ID     any
	Params Params

	// Record is the input of create, update and patch.
	Record *record.Record
	// Data is what is sent to the remote service.
	Data map[string]any

	// Raw responses, set by the remote call or by a stage answering in its
	// place.
	RawPage   *remote.Page
	RawRecord map[string]any

	// Results as returned to the caller.
	Page   *query.Result
	Result *record.Record
	Count  int

	tempID string
}

func (c *Call) key() (string, bool) {
	if c.ID == nil {
		return "", false
	}
	return record.Key(c.ID), true
}
