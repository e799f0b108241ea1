// Package ingest loads raw corpus files into the record store. Two file
// layouts are understood: event listings separated by dashed divider lines,
// and profile packs where each entry starts with a "Tribe:" header and
// carries a "Next Question:" line.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrWong99/socialsync/pkg/records"
)

// eventDivider separates event blocks in raw listing files.
const eventDivider = "------------------------------------------------"

// SplitEvents breaks a raw listing file into event blocks. Chunks without an
// "Event:" line are discarded.
func SplitEvents(raw string) []string {
	var blocks []string
	for _, chunk := range strings.Split(raw, eventDivider) {
		chunk = strings.TrimSpace(chunk)
		if strings.Contains(chunk, "Event:") {
			blocks = append(blocks, chunk)
		}
	}
	return blocks
}

// SplitQuestions breaks a profile pack into question blocks. Each block runs
// from one "Tribe:" header to the next; blocks missing a "Next Question:"
// line are discarded.
func SplitQuestions(raw string) []string {
	var blocks []string
	for _, chunk := range splitBefore(raw, "Tribe:") {
		chunk = strings.TrimSpace(chunk)
		if strings.Contains(chunk, "Tribe:") && strings.Contains(chunk, "Next Question:") {
			blocks = append(blocks, chunk)
		}
	}
	return blocks
}

// splitBefore splits s at each occurrence of marker, keeping the marker at
// the start of each following piece. A marker at position 0 does not produce
// an empty leading piece.
func splitBefore(s, marker string) []string {
	var pieces []string
	for s != "" {
		idx := strings.Index(s[1:], marker)
		if idx < 0 {
			return append(pieces, s)
		}
		pieces = append(pieces, s[:idx+1])
		s = s[idx+1:]
	}
	return pieces
}

// BlockID derives a stable identifier from block content, so re-running the
// ingest over the same corpus replaces blocks instead of duplicating them.
func BlockID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:16])
}

// Stats summarises one ingest run.
type Stats struct {
	Files     int
	Events    int
	Questions int
}

// Dir ingests every .txt file under dir into store. Files whose name
// contains "profiles" are treated as question packs, everything else as
// event listings.
func Dir(ctx context.Context, store records.Store, dir string) (Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Stats{}, fmt.Errorf("ingest: read dir: %w", err)
	}

	var stats Stats
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return stats, fmt.Errorf("ingest: read %s: %w", entry.Name(), err)
		}
		stats.Files++

		if strings.Contains(entry.Name(), "profiles") {
			blocks := SplitQuestions(string(raw))
			if err := indexAll(ctx, store, blocks, records.KindQuestion); err != nil {
				return stats, err
			}
			stats.Questions += len(blocks)
			slog.Info("ingested question pack", "file", entry.Name(), "blocks", len(blocks))
		} else {
			blocks := SplitEvents(string(raw))
			if err := indexAll(ctx, store, blocks, records.KindEvent); err != nil {
				return stats, err
			}
			stats.Events += len(blocks)
			slog.Info("ingested event listing", "file", entry.Name(), "blocks", len(blocks))
		}
	}
	return stats, nil
}

func indexAll(ctx context.Context, store records.Store, blocks []string, kind records.Kind) error {
	for _, content := range blocks {
		block := records.Block{ID: BlockID(content), Kind: kind, Content: content}
		if err := store.IndexBlock(ctx, block); err != nil {
			return fmt.Errorf("ingest: index %s block %s: %w", kind, block.ID, err)
		}
	}
	return nil
}
