package pagination

import (
	"fmt"
	"sync"
	"time"

	jsonv2 "github.com/go-json-experiment/json"

	"github.com/fulldump/replica/query"
	"github.com/fulldump/replica/record"
)

const DefaultQid = "default"

type PageParams struct {
	Limit int `json:"'$limit'"`
	Skip  int `json:"'$skip'"`
}

type PageInfo struct {
	PageParams PageParams
	IDs        []any
	QueriedAt  time.Time
	Ssr        bool
}

type QueryState struct {
	Total       int
	QueryParams map[string]any
	Pages       map[string]*PageInfo
}

// QueryInfo locates a page in the cache.
type QueryInfo struct {
	Qid         string
	QueryID     string
	QueryParams map[string]any
	PageID      string
	PageParams  PageParams
}

type qidState struct {
	queries    map[string]*QueryState
	mostRecent *QueryInfo
}

// Response is the part of a find response the cache needs.
type Response struct {
	Data  []*record.Record
	Total int
	Limit int
	Skip  int
}

type UpdateParams struct {
	Qid         string
	Query       map[string]any
	Response    Response
	PreserveSsr bool
	Ssr         bool
}

// Cache remembers, per qid and query fingerprint, the ids returned for each
// page of a paginated find.
type Cache struct {
	mutex   *sync.RWMutex
	idField string
	qids    map[string]*qidState
	now     func() time.Time
}

func NewCache(idField string) *Cache {
	if idField == "" {
		idField = "id"
	}
	return &Cache{
		mutex:   &sync.RWMutex{},
		idField: idField,
		qids:    map[string]*qidState{},
		now:     time.Now,
	}
}

// Fingerprint is the canonical serialization of v, map keys sorted.
func Fingerprint(v any) (string, error) {
	data, err := jsonv2.Marshal(v, jsonv2.Deterministic(true))
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return string(data), nil
}

// GetQueryInfo computes the query and page ids of a find. Limit and skip are
// taken from the response when given, otherwise from the query.
func GetQueryInfo(qid string, q map[string]any, response *Response) (*QueryInfo, error) {
	if qid == "" {
		qid = DefaultQid
	}

	queryParams := map[string]any{}
	for key, value := range q {
		if key == query.KeyLimit || key == query.KeySkip {
			continue
		}
		queryParams[key] = value
	}

	queryID, err := Fingerprint(queryParams)
	if err != nil {
		return nil, err
	}

	pageParams := PageParams{}
	if response != nil {
		pageParams.Limit = response.Limit
		pageParams.Skip = response.Skip
	} else {
		pageParams.Limit = intOf(q[query.KeyLimit])
		pageParams.Skip = intOf(q[query.KeySkip])
	}

	pageID, err := Fingerprint(pageParams)
	if err != nil {
		return nil, err
	}

	return &QueryInfo{
		Qid:         qid,
		QueryID:     queryID,
		QueryParams: queryParams,
		PageID:      pageID,
		PageParams:  pageParams,
	}, nil
}

func intOf(v any) int {
	n, _ := record.ToFloat(v)
	return int(n)
}

// Update stores the ids and total of a find response. The ssr flag survives
// when PreserveSsr is set and the page was already flagged.
func (c *Cache) Update(params UpdateParams) (*QueryInfo, error) {

	info, err := GetQueryInfo(params.Qid, params.Query, &params.Response)
	if err != nil {
		return nil, err
	}

	ids := make([]any, 0, len(params.Response.Data))
	for _, r := range params.Response.Data {
		if id, ok := r.ID(c.idField); ok {
			ids = append(ids, id)
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	state, ok := c.qids[info.Qid]
	if !ok {
		state = &qidState{queries: map[string]*QueryState{}}
		c.qids[info.Qid] = state
	}

	queryState, ok := state.queries[info.QueryID]
	if !ok {
		queryState = &QueryState{
			QueryParams: info.QueryParams,
			Pages:       map[string]*PageInfo{},
		}
		state.queries[info.QueryID] = queryState
	}
	queryState.Total = params.Response.Total

	ssr := params.Ssr
	if previous, exists := queryState.Pages[info.PageID]; exists && params.PreserveSsr && previous.Ssr {
		ssr = true
	}

	queryState.Pages[info.PageID] = &PageInfo{
		PageParams: info.PageParams,
		IDs:        ids,
		QueriedAt:  c.now(),
		Ssr:        ssr,
	}
	state.mostRecent = info

	return info, nil
}

// Lookup returns a copy of the cached query and page for info, nil when
// unknown.
func (c *Cache) Lookup(info *QueryInfo) (*QueryState, *PageInfo) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	state, ok := c.qids[info.Qid]
	if !ok {
		return nil, nil
	}
	queryState, ok := state.queries[info.QueryID]
	if !ok {
		return nil, nil
	}

	result := &QueryState{
		Total:       queryState.Total,
		QueryParams: queryState.QueryParams,
		Pages:       make(map[string]*PageInfo, len(queryState.Pages)),
	}
	for id, page := range queryState.Pages {
		result.Pages[id] = page.copy()
	}
	return result, result.Pages[info.PageID]
}

func (p *PageInfo) copy() *PageInfo {
	result := *p
	result.IDs = append([]any(nil), p.IDs...)
	return &result
}

// Has tells if the page described by qid and query was already fetched.
func (c *Cache) Has(qid string, q map[string]any) bool {
	info, err := GetQueryInfo(qid, q, nil)
	if err != nil {
		return false
	}
	_, page := c.Lookup(info)
	return page != nil
}

func (c *Cache) MostRecent(qid string) *QueryInfo {
	if qid == "" {
		qid = DefaultQid
	}
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if state, ok := c.qids[qid]; ok {
		return state.mostRecent
	}
	return nil
}

// UnflagSsr clears the ssr flag of a page once the client fetched it itself.
func (c *Cache) UnflagSsr(info *QueryInfo) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	state, ok := c.qids[info.Qid]
	if !ok {
		return
	}
	if queryState, ok := state.queries[info.QueryID]; ok {
		if page, ok := queryState.Pages[info.PageID]; ok {
			page.Ssr = false
		}
	}
}

// Clear forgets everything cached for qid.
func (c *Cache) Clear(qid string) {
	if qid == "" {
		qid = DefaultQid
	}
	c.mutex.Lock()
	delete(c.qids, qid)
	c.mutex.Unlock()
}

func (c *Cache) ClearAll() {
	c.mutex.Lock()
	c.qids = map[string]*qidState{}
	c.mutex.Unlock()
}

// ExtendedInfo is a cached page resolved against the live store.
type ExtendedInfo struct {
	Info      *QueryInfo
	Total     int
	Page      *PageInfo
	Items     []*record.Record
	IsExpired bool
}

// ExtendedInfo maps the ids of a cached page to the records lookup still
// knows about, dropping the missing ones. A page older than maxAge is
// reported expired, zero means it never expires.
func (c *Cache) ExtendedInfo(info *QueryInfo, lookup func(id any) *record.Record, maxAge time.Duration) *ExtendedInfo {

	queryState, page := c.Lookup(info)
	if page == nil {
		return nil
	}

	items := make([]*record.Record, 0, len(page.IDs))
	for _, id := range page.IDs {
		if r := lookup(id); r != nil {
			items = append(items, r)
		}
	}

	return &ExtendedInfo{
		Info:      info,
		Total:     queryState.Total,
		Page:      page,
		Items:     items,
		IsExpired: maxAge > 0 && c.now().Sub(page.QueriedAt) > maxAge,
	}
}
