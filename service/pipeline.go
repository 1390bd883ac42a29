package service

import (
	"context"
	"fmt"

	"github.com/golang/glog"

	"github.com/fulldump/replica/hooks"
	"github.com/fulldump/replica/pagination"
	"github.com/fulldump/replica/pending"
	"github.com/fulldump/replica/query"
	"github.com/fulldump/replica/record"
	"github.com/fulldump/replica/remote"
	"github.com/fulldump/replica/store"
)

// normalizeParams detaches the query from the caller, validates it and fills
// the default $limit and $skip of a find.
func (s *Service) normalizeParams(next hooks.Handler[*Call]) hooks.Handler[*Call] {
	return func(ctx context.Context, c *Call) error {
		c.Params.Query = record.CloneFields(c.Params.Query)
		if c.Params.Query == nil {
			c.Params.Query = map[string]any{}
		}
		if c.Method == pending.Find || c.Method == pending.Count {
			if _, err := s.store.Engine().Compile(c.Params.Query); err != nil {
				return err
			}
		}
		if c.Method == pending.Find {
			if _, ok := c.Params.Query[query.KeyLimit]; !ok {
				c.Params.Query[query.KeyLimit] = s.options.DefaultLimit
			}
			if _, ok := c.Params.Query[query.KeySkip]; !ok {
				c.Params.Query[query.KeySkip] = 0
			}
		}
		return next(ctx, c)
	}
}

func (s *Service) trackPending(next hooks.Handler[*Call]) hooks.Handler[*Call] {
	return func(ctx context.Context, c *Call) error {

		key, hasKey := c.key()
		if !hasKey && c.tempID != "" {
			key, hasKey = c.tempID, true
		}
		byID := hasKey && c.Method != pending.Get

		s.pending.SetPending(c.Method, true)
		if byID {
			s.pending.SetPendingByID(key, c.Method, true)
		}
		defer func() {
			s.pending.SetPending(c.Method, false)
			if byID {
				s.pending.SetPendingByID(key, c.Method, false)
			}
		}()

		return next(ctx, c)
	}
}

// eventLocks keeps the echo of update, patch and remove from being applied
// while the call is in flight.
func (s *Service) eventLocks(next hooks.Handler[*Call]) hooks.Handler[*Call] {
	return func(ctx context.Context, c *Call) error {

		key, hasKey := c.key()
		switch c.Method {
		case pending.Update, pending.Patch, pending.Remove:
		default:
			hasKey = false
		}
		if !hasKey {
			return next(ctx, c)
		}

		event := pending.EventFor(c.Method)
		s.locks.Toggle(key, event)
		defer s.locks.Clear(key, event)

		return next(ctx, c)
	}
}

// syncStore merges successful responses into the store.
func (s *Service) syncStore(next hooks.Handler[*Call]) hooks.Handler[*Call] {
	return func(ctx context.Context, c *Call) error {

		err := next(ctx, c)
		if err != nil {
			return err
		}

		switch c.Method {
		case pending.Count:
			return nil
		case pending.Find:
			return s.storePage(c)
		case pending.Remove:
			return s.storeRemoval(c)
		}

		if c.RawRecord == nil {
			return nil
		}

		r := record.New(record.CloneFields(c.RawRecord))
		if c.Method == pending.Create && c.tempID != "" {
			r.SetTempID(c.tempID)
		}

		if c.Params.SkipStore {
			c.Result = r
			return nil
		}

		save := s.store.CreateInStore
		if c.Method == pending.Update {
			save = s.store.ReplaceInStore
		}
		stored, err := save(r)
		if err != nil {
			return fmt.Errorf("store %s response: %w", c.Method, err)
		}
		c.Result = stored

		return nil
	}
}

func (s *Service) storePage(c *Call) error {

	if c.RawPage == nil {
		return nil
	}

	data := make([]*record.Record, 0, len(c.RawPage.Data))
	for _, row := range c.RawPage.Data {
		r := record.New(record.CloneFields(row))
		if !c.Params.SkipStore {
			stored, err := s.store.CreateInStore(r)
			if err != nil {
				return fmt.Errorf("store find response: %w", err)
			}
			r = stored
		}
		data = append(data, r)
	}

	c.Page = &query.Result{
		Total: c.RawPage.Total,
		Limit: c.RawPage.Limit,
		Skip:  c.RawPage.Skip,
		Data:  data,
	}

	if c.RawPage.Paginated && !c.Params.SkipStore {
		_, err := s.pagination.Update(pagination.UpdateParams{
			Qid:   c.Params.Qid,
			Query: c.Params.Query,
			Response: pagination.Response{
				Data:  data,
				Total: c.RawPage.Total,
				Limit: c.RawPage.Limit,
				Skip:  c.RawPage.Skip,
			},
			PreserveSsr: c.Params.PreserveSsr,
			Ssr:         s.options.Ssr,
		})
		if err != nil {
			glog.Warningf("[service] pagination not updated: %s", err.Error())
		}
	}

	return nil
}

func (s *Service) storeRemoval(c *Call) error {

	if c.RawRecord == nil {
		return nil
	}

	r := record.New(record.CloneFields(c.RawRecord))
	c.Result = r
	if c.Params.SkipStore {
		return nil
	}

	var target any = r
	if r.IsTemp(s.options.IdField) {
		target = c.ID
	}
	removed, err := s.store.RemoveFromStore(target, store.Params{})
	if err != nil {
		return fmt.Errorf("evict removed record: %w", err)
	}
	if len(removed) > 0 {
		c.Result = removed[0]
	}

	return nil
}

// normalizeFind gives plain list responses the shape of a page.
func (s *Service) normalizeFind(next hooks.Handler[*Call]) hooks.Handler[*Call] {
	return func(ctx context.Context, c *Call) error {

		err := next(ctx, c)
		if err != nil || c.Method != pending.Find || c.RawPage == nil || c.RawPage.Paginated {
			return err
		}

		page := c.RawPage
		page.Total = len(page.Data)
		page.Limit = page.Total
		if n, ok := record.ToFloat(c.Params.Query[query.KeyLimit]); ok {
			page.Limit = int(n)
		}
		page.Skip = 0
		if n, ok := record.ToFloat(c.Params.Query[query.KeySkip]); ok {
			page.Skip = int(n)
		}

		return nil
	}
}

func (s *Service) skipGetIfExists(next hooks.Handler[*Call]) hooks.Handler[*Call] {
	return func(ctx context.Context, c *Call) error {

		if c.Method != pending.Get || !c.Params.SkipRequestIfExists {
			return next(ctx, c)
		}

		stored, err := s.store.GetFromStore(c.ID, store.Params{Query: c.Params.Query})
		if err != nil {
			return err
		}
		if stored == nil {
			return next(ctx, c)
		}

		c.Result = stored
		return nil
	}
}

// patchDiffing sends only the changed fields of a patch. An empty diff
// resolves to the input record without calling the remote service.
func (s *Service) patchDiffing(next hooks.Handler[*Call]) hooks.Handler[*Call] {
	return func(ctx context.Context, c *Call) error {

		if c.Method != pending.Patch || c.Record == nil {
			return next(ctx, c)
		}

		diffing := c.Record.IsClone()
		if c.Params.Diff != nil {
			diffing = *c.Params.Diff
		}
		if !diffing {
			return next(ctx, c)
		}

		original := s.store.Original(c.Record)
		if original == nil || original == c.Record {
			return next(ctx, c)
		}

		wire := c.Record.Wire()
		diff := record.Diff(original.Wire(), wire, c.Params.DiffKeys)
		toPatch := record.Pick(wire, c.Params.With)
		for k, v := range diff {
			toPatch[k] = v
		}

		if len(toPatch) == 0 {
			glog.V(2).Infof("[service] patch of '%v' skipped, nothing changed", c.ID)
			c.Result = c.Record
			return nil
		}
		c.Data = toPatch

		eager := c.Params.Eager == nil || *c.Params.Eager
		if !eager || len(diff) == 0 {
			return next(ctx, c)
		}

		snapshot := original.Wire()
		if _, err := s.store.PatchInStore(original, diff, store.Params{}); err != nil {
			return fmt.Errorf("eager update: %w", err)
		}

		err := next(ctx, c)
		if err != nil {
			glog.V(2).Infof("[service] patch of '%v' failed, rolling back eager update", c.ID)
			s.store.RestoreFields(original, snapshot)
		}
		return err
	}
}

// qidCache answers finds and gets named by a qid from the response cache.
// On the server every response is cached, on the client a hit is evicted
// shortly after.
func (s *Service) qidCache(next hooks.Handler[*Call]) hooks.Handler[*Call] {
	return func(ctx context.Context, c *Call) error {

		if c.Params.Qid == "" || (c.Method != pending.Find && c.Method != pending.Get) {
			return next(ctx, c)
		}

		key := qidKey(c)
		if entry, ok := s.qids.Get(key); ok {
			c.RawPage = entry.Page
			c.RawRecord = entry.Record
			if !s.options.Ssr {
				s.qids.Expire(key, s.options.QidCacheTTL)
			}
			return nil
		}

		err := next(ctx, c)
		if err != nil || !s.options.Ssr {
			return err
		}

		s.qids.Set(key, QidEntry{Page: c.RawPage, Record: c.RawRecord})
		return nil
	}
}

func qidKey(c *Call) string {
	if c.Method == pending.Get {
		return fmt.Sprintf("%s:%s:%s", c.Params.Qid, c.Method, record.Key(c.ID))
	}
	return fmt.Sprintf("%s:%s", c.Params.Qid, c.Method)
}

// callRemote is the innermost handler.
func (s *Service) callRemote(ctx context.Context, c *Call) error {

	params := c.Params.remoteParams()

	var err error
	switch c.Method {
	case pending.Find:
		c.RawPage, err = s.remote.Find(ctx, params)
		if err == nil && c.RawPage == nil {
			c.RawPage = &remote.Page{Data: []map[string]any{}}
		}
	case pending.Count:
		var page *remote.Page
		page, err = s.remote.Find(ctx, params)
		if err == nil && page != nil {
			c.Count = len(page.Data)
			if page.Paginated {
				c.Count = page.Total
			}
		}
	case pending.Get:
		c.RawRecord, err = s.remote.Get(ctx, c.ID, params)
	case pending.Create:
		c.RawRecord, err = s.remote.Create(ctx, c.Data, params)
	case pending.Update:
		c.RawRecord, err = s.remote.Update(ctx, c.ID, c.Data, params)
	case pending.Patch:
		c.RawRecord, err = s.remote.Patch(ctx, c.ID, c.Data, params)
	case pending.Remove:
		c.RawRecord, err = s.remote.Remove(ctx, c.ID, params)
	default:
		err = fmt.Errorf("unknown method '%s'", c.Method)
	}

	return err
}
