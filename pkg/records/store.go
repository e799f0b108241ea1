// Package records defines the retrieval store for the raw text blocks the
// agent recommends from: event descriptions scraped from listing sources and
// profile-building questions.
//
// Blocks are opaque to the store. Retrieval ranks them by semantic similarity
// to a free-text query and returns their verbatim content, preserving line
// breaks and formatting, so callers can both display a block and use it as a
// dedup fingerprint.
package records

import "context"

// Kind partitions the corpus so event searches never surface questions and
// vice versa.
type Kind string

const (
	// KindEvent marks a block describing a single event.
	KindEvent Kind = "event"
	// KindQuestion marks a block holding a profile-building question.
	KindQuestion Kind = "question"
)

// Block is a single indexed text block.
type Block struct {
	// ID uniquely identifies the block. Re-indexing a block with the same ID
	// replaces it.
	ID string
	// Kind selects the corpus partition the block belongs to.
	Kind Kind
	// Content is the verbatim block text, including internal newlines.
	Content string
}

// Store retrieves and indexes text blocks by semantic similarity.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Search returns the content of the k blocks of the given kind most
	// similar to query, most similar first. Fewer than k results (including
	// none) is not an error.
	Search(ctx context.Context, query string, k int, kind Kind) ([]string, error)

	// IndexBlock embeds and upserts a block into the corpus.
	IndexBlock(ctx context.Context, block Block) error
}
