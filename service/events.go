package service

import (
	"github.com/golang/glog"

	"github.com/fulldump/replica/pending"
	"github.com/fulldump/replica/record"
	"github.com/fulldump/replica/remote"
	"github.com/fulldump/replica/store"
)

func (s *Service) listen() {
	s.offMutex.Lock()
	defer s.offMutex.Unlock()

	for _, event := range remote.Events {
		event := event
		if filter, overridden := s.options.HandleEvents[event]; overridden && filter == nil {
			continue
		}
		off := s.remote.On(event, func(data map[string]any) {
			s.HandleEvent(event, data)
		})
		s.offs = append(s.offs, off)
	}
}

// HandleEvent applies a push event to the store: removed evicts the record,
// the rest merge it. Events locked by an in flight local mutation are
// ignored.
func (s *Service) HandleEvent(event string, data map[string]any) {

	r := record.New(record.CloneFields(data))
	id, ok := r.ID(s.options.IdField)
	if !ok {
		glog.Warningf("[service] %s event without '%s' ignored", event, s.options.IdField)
		return
	}

	key := record.Key(id)
	if s.locks.IsLocked(key, pending.Event(event)) {
		glog.V(2).Infof("[service] %s event for '%s' suppressed by lock", event, key)
		return
	}

	if filter := s.options.HandleEvents[event]; filter != nil && !filter(data) {
		return
	}

	if event == remote.EventRemoved {
		if _, err := s.store.RemoveFromStore(r, store.Params{}); err != nil {
			glog.Warningf("[service] %s event for '%s': %s", event, key, err.Error())
		}
		return
	}

	save := s.store.CreateInStore
	if event == remote.EventUpdated {
		save = s.store.ReplaceInStore
	}
	if _, err := save(r); err != nil {
		glog.Warningf("[service] %s event for '%s': %s", event, key, err.Error())
	}
}
