// Package ledger stores observed values per (endpoint, method, slot) in
// arrival order.
//
// Observations live in one append-only slice indexed by sequence number.
// Roaring bitmaps index sequence numbers per operation and per slot, so a
// snapshot of one operation is a single ordered bitmap walk.
package ledger

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/usestring/apirecord/pkg/value"
)

// ErrInvalidObservation is returned by Record for values or keys outside the
// accepted alphabet.
var ErrInvalidObservation = value.ErrInvalidObservation

// Key identifies an operation. Method is stored upper-case.
type Key struct {
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`
}

// NewKey normalises the method of an operation key.
func NewKey(endpoint, method string) Key {
	return Key{Endpoint: endpoint, Method: strings.ToUpper(method)}
}

func (k Key) String() string {
	return k.Method + " " + k.Endpoint
}

// Observation is one recorded value. It is never mutated after Record returns.
type Observation struct {
	Seq   uint32
	Key   Key
	Slot  Slot
	Value value.Value
}

// Operation summarises one operation in the ledger.
type Operation struct {
	Key
	Tag          string `json:"tag,omitempty"`
	Observations int    `json:"observations"`
	Version      uint64 `json:"version"`
}

type slotKey struct {
	key  Key
	slot Slot
}

// Ledger is the append-only observation store. The zero value is not usable;
// construct with New. All methods are safe for concurrent use.
type Ledger struct {
	mu sync.RWMutex

	entries []*Observation

	// Inverted indexes over sequence numbers
	idxOperation map[Key]*roaring.Bitmap
	idxSlot      map[slotKey]*roaring.Bitmap

	tags     map[Key]string
	versions map[Key]uint64
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		entries:      make([]*Observation, 0, 256),
		idxOperation: make(map[Key]*roaring.Bitmap),
		idxSlot:      make(map[slotKey]*roaring.Bitmap),
		tags:         make(map[Key]string),
		versions:     make(map[Key]uint64),
	}
}

// Record appends v to the slot of (endpoint, method). Parameter slots only
// accept objects. The value is validated and copied before it is stored.
func (l *Ledger) Record(endpoint, method string, slot Slot, v value.Value) (Observation, error) {
	if endpoint == "" {
		return Observation{}, fmt.Errorf("%w: empty endpoint", ErrInvalidObservation)
	}
	if strings.TrimSpace(method) == "" {
		return Observation{}, fmt.Errorf("%w: empty method", ErrInvalidObservation)
	}
	if err := slot.Validate(); err != nil {
		return Observation{}, err
	}
	if err := value.Validate(v); err != nil {
		return Observation{}, err
	}
	if slot.isParams() {
		if _, ok := v.(value.Object); !ok {
			return Observation{}, fmt.Errorf("%w: %s requires an object, got %s", ErrInvalidObservation, slot, v.Kind())
		}
	}

	key := NewKey(endpoint, method)

	l.mu.Lock()
	defer l.mu.Unlock()

	if uint64(len(l.entries)) > math.MaxUint32 {
		return Observation{}, fmt.Errorf("ledger full: %d observations", len(l.entries))
	}
	obs := &Observation{
		Seq:   uint32(len(l.entries)),
		Key:   key,
		Slot:  slot,
		Value: value.Clone(v),
	}
	l.entries = append(l.entries, obs)

	addToIndex(l.idxOperation, key, obs.Seq)
	addToIndex(l.idxSlot, slotKey{key: key, slot: slot}, obs.Seq)
	l.versions[key]++

	return *obs, nil
}

func addToIndex[K comparable](idx map[K]*roaring.Bitmap, key K, seq uint32) {
	bm, ok := idx[key]
	if !ok {
		bm = roaring.New()
		idx[key] = bm
	}
	bm.Add(seq)
}

// SetTag records the grouping tag of an operation. It also registers the
// operation, so it is listed even before its first observation.
func (l *Ledger) SetTag(endpoint, method, tag string) {
	key := NewKey(endpoint, method)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tags[key] == tag {
		if _, ok := l.versions[key]; ok {
			return
		}
	}
	l.tags[key] = tag
	l.versions[key]++
}

// Len returns the total number of observations.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Version returns a counter that changes whenever the operation gains an
// observation or a new tag. Unknown operations report zero.
func (l *Ledger) Version(endpoint, method string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.versions[NewKey(endpoint, method)]
}

// Operations lists every known operation ordered by endpoint, then method.
func (l *Ledger) Operations() []Operation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ops := make([]Operation, 0, len(l.versions))
	for key, version := range l.versions {
		op := Operation{Key: key, Tag: l.tags[key], Version: version}
		if bm, ok := l.idxOperation[key]; ok {
			op.Observations = int(bm.GetCardinality())
		}
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Endpoint != ops[j].Endpoint {
			return ops[i].Endpoint < ops[j].Endpoint
		}
		return ops[i].Method < ops[j].Method
	})
	return ops
}

// Values returns the observations of one slot in arrival order.
func (l *Ledger) Values(endpoint, method string, slot Slot) []value.Value {
	l.mu.RLock()
	defer l.mu.RUnlock()

	bm, ok := l.idxSlot[slotKey{key: NewKey(endpoint, method), slot: slot}]
	if !ok {
		return nil
	}
	out := make([]value.Value, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, l.entries[it.Next()].Value)
	}
	return out
}
