package agent

import (
	"context"
	"strings"

	"github.com/MrWong99/socialsync/pkg/records"
)

// questionPrefix marks the usable question text inside an indexed question
// block. Blocks without the prefix are used whole.
const questionPrefix = "Next Question:"

// QuestionPicker pulls profile-building questions from the record store,
// skipping questions the session already asked.
type QuestionPicker struct {
	store records.Store

	// K is how many candidate blocks to retrieve per pick. Default: 5.
	K int
}

// NewQuestionPicker creates a picker over the question partition of store.
func NewQuestionPicker(store records.Store) *QuestionPicker {
	return &QuestionPicker{store: store, K: 5}
}

// Next returns the first retrieved question not yet asked in sess, recording
// it in the asked log, or "" when the store has nothing new. The caller must
// hold the session lock.
func (p *QuestionPicker) Next(ctx context.Context, sess *Session, query string) (string, error) {
	k := p.K
	if k <= 0 {
		k = 5
	}
	blocks, err := p.store.Search(ctx, query, k, records.KindQuestion)
	if err != nil {
		return "", err
	}

	for _, block := range blocks {
		q := extractQuestion(block)
		if q == "" {
			continue
		}
		if sess.markAsked(q) {
			return q, nil
		}
	}
	return "", nil
}

// extractQuestion returns the first line after the "Next Question:" prefix
// with quote characters removed, so a quoted question and its bare form
// dedup as the same entry. Blocks without the prefix are used whole, under
// the same first-line rule.
func extractQuestion(block string) string {
	text := block
	if idx := strings.Index(block, questionPrefix); idx >= 0 {
		text = block[idx+len(questionPrefix):]
	}
	text = strings.TrimSpace(text)
	if line, _, found := strings.Cut(text, "\n"); found {
		text = line
	}
	return strings.TrimSpace(strings.ReplaceAll(text, `"`, ""))
}
