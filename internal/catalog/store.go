package catalog

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/usestring/apirecord/internal/ledger"
)

// DefaultCacheSize is the number of fragments a Store keeps by default.
const DefaultCacheSize = 256

type cachedFragment struct {
	version  uint64
	fragment *OperationFragment
}

// Store memoises assembled fragments per operation. An entry is reused only
// while the ledger version of its operation is unchanged. Returned fragments
// are shared and must not be modified.
type Store struct {
	ledger *ledger.Ledger
	opts   *Options
	cache  *lru.Cache[ledger.Key, cachedFragment]
}

// NewStore creates a store over l holding at most size fragments.
func NewStore(l *ledger.Ledger, size int, opts *Options) (*Store, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	c, err := lru.New[ledger.Key, cachedFragment](size)
	if err != nil {
		return nil, err
	}
	return &Store{ledger: l, opts: opts, cache: c}, nil
}

// Fragment returns the fragment of (endpoint, method), assembling it when
// the cached one is stale. The second result is false for unknown operations.
func (s *Store) Fragment(endpoint, method string) (*OperationFragment, bool) {
	key := ledger.NewKey(endpoint, method)

	if cached, ok := s.cache.Get(key); ok && cached.version == s.ledger.Version(endpoint, method) {
		return cached.fragment, true
	}

	snap, ok := s.ledger.Snapshot(endpoint, method)
	if !ok {
		return nil, false
	}
	frag := Assemble(snap, s.opts)
	s.cache.Add(key, cachedFragment{version: snap.Version, fragment: frag})
	return frag, true
}

// Entry pairs an operation with its fragment.
type Entry struct {
	Key      ledger.Key
	Fragment *OperationFragment
}

// Fragments returns the fragment of every operation in ledger order.
func (s *Store) Fragments() []Entry {
	ops := s.ledger.Operations()
	out := make([]Entry, 0, len(ops))
	for _, op := range ops {
		if frag, ok := s.Fragment(op.Endpoint, op.Method); ok {
			out = append(out, Entry{Key: op.Key, Fragment: frag})
		}
	}
	return out
}

// Len returns the number of cached fragments.
func (s *Store) Len() int {
	return s.cache.Len()
}
