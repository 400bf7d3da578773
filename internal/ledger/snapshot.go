package ledger

import (
	"sort"

	"github.com/usestring/apirecord/pkg/value"
)

// Snapshot is a consistent copy of every slot of one operation. Slices hold
// values in arrival order and are owned by the caller.
type Snapshot struct {
	Key     Key
	Tag     string
	Version uint64

	RequestBodies []value.Value
	Responses     map[int][]value.Value
	PathParams    []value.Object
	QueryParams   []value.Object
}

// StatusCodes returns the observed response status codes in ascending order.
func (s *Snapshot) StatusCodes() []int {
	codes := make([]int, 0, len(s.Responses))
	for code := range s.Responses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// Empty reports whether the snapshot holds no observations.
func (s *Snapshot) Empty() bool {
	return len(s.RequestBodies) == 0 && len(s.Responses) == 0 &&
		len(s.PathParams) == 0 && len(s.QueryParams) == 0
}

// Snapshot copies the slots of (endpoint, method) under one read lock.
// The second result is false when the operation is unknown.
func (l *Ledger) Snapshot(endpoint, method string) (*Snapshot, bool) {
	key := NewKey(endpoint, method)

	l.mu.RLock()
	defer l.mu.RUnlock()

	version, known := l.versions[key]
	if !known {
		return nil, false
	}

	snap := &Snapshot{
		Key:       key,
		Tag:       l.tags[key],
		Version:   version,
		Responses: make(map[int][]value.Value),
	}

	bm, ok := l.idxOperation[key]
	if !ok {
		return snap, true
	}

	// bitmap iteration is ascending, which is arrival order
	it := bm.Iterator()
	for it.HasNext() {
		obs := l.entries[it.Next()]
		switch obs.Slot.Kind {
		case SlotRequestBody:
			snap.RequestBodies = append(snap.RequestBodies, obs.Value)
		case SlotResponseBody:
			snap.Responses[obs.Slot.Status] = append(snap.Responses[obs.Slot.Status], obs.Value)
		case SlotPathParams:
			snap.PathParams = append(snap.PathParams, obs.Value.(value.Object))
		case SlotQueryParams:
			snap.QueryParams = append(snap.QueryParams, obs.Value.(value.Object))
		}
	}
	return snap, true
}
