// Package mock provides a test double for the records.Store interface.
//
// Use Store to return pre-canned search results without a live database and
// to verify which queries were issued.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/socialsync/pkg/records"
)

// SearchCall records a single invocation of Search.
type SearchCall struct {
	Ctx   context.Context
	Query string
	K     int
	Kind  records.Kind
}

// Store is a mock implementation of records.Store.
type Store struct {
	mu sync.Mutex

	// SearchResults is returned by Search. If SearchResultsByKind has an
	// entry for the requested kind, that entry takes precedence.
	SearchResults []string

	// SearchResultsByKind maps a kind to its canned results.
	SearchResultsByKind map[records.Kind][]string

	// SearchErr, if non-nil, is returned as the error from Search.
	SearchErr error

	// IndexErr, if non-nil, is returned as the error from IndexBlock.
	IndexErr error

	// SearchCalls records every call to Search in order.
	SearchCalls []SearchCall

	// Indexed records every block passed to IndexBlock in order.
	Indexed []records.Block
}

// Search records the call and returns the canned results, capped at k.
func (s *Store) Search(ctx context.Context, query string, k int, kind records.Kind) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SearchCalls = append(s.SearchCalls, SearchCall{Ctx: ctx, Query: query, K: k, Kind: kind})
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	results := s.SearchResults
	if byKind, ok := s.SearchResultsByKind[kind]; ok {
		results = byKind
	}
	if len(results) > k {
		results = results[:k]
	}
	cp := make([]string, len(results))
	copy(cp, results)
	return cp, nil
}

// IndexBlock records the block and returns IndexErr.
func (s *Store) IndexBlock(ctx context.Context, block records.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Indexed = append(s.Indexed, block)
	return s.IndexErr
}

// Reset clears all recorded calls. Thread-safe.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SearchCalls = nil
	s.Indexed = nil
}

var _ records.Store = (*Store)(nil)
