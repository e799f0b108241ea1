package agent

import "strings"

// Branch is the state the dialogue controller resolves to for one turn. It
// is recomputed from every fresh model reply, never carried across turns.
type Branch string

const (
	// BranchCelebrating marks a send-off reply: the user settled on an
	// event and the conversation should stop.
	BranchCelebrating Branch = "celebrating"

	// BranchSearching marks a reply carrying the search trigger token.
	BranchSearching Branch = "searching"

	// BranchConversing is the default conversational branch.
	BranchConversing Branch = "conversing"
)

// ClassifierConfig holds the token sets driving reply classification. The
// exact lists are deployment configuration; zero values select the defaults
// below.
type ClassifierConfig struct {
	// SearchToken is the literal marker the model emits to request a search.
	SearchToken string

	// CelebrationTokens mark a reply as a send-off when any is present.
	CelebrationTokens []string

	// ContinuationTokens veto a celebration when any is present. The search
	// token is always treated as a continuation marker in addition to these.
	ContinuationTokens []string
}

// Default token sets. Matching is case-insensitive substring containment,
// so "?" matches any question.
var (
	defaultCelebrationTokens  = []string{"have", "great", "enjoy", "awesome"}
	defaultContinuationTokens = []string{"more", "?"}
)

// DefaultSearchToken is the marker the built-in persona instructs the model
// to emit.
const DefaultSearchToken = "SEARCH_ACTION"

// withDefaults fills zero-value fields with the default token sets.
func (c ClassifierConfig) withDefaults() ClassifierConfig {
	if c.SearchToken == "" {
		c.SearchToken = DefaultSearchToken
	}
	if len(c.CelebrationTokens) == 0 {
		c.CelebrationTokens = defaultCelebrationTokens
	}
	if len(c.ContinuationTokens) == 0 {
		c.ContinuationTokens = defaultContinuationTokens
	}
	return c
}

// Classify resolves the branch for a model reply. The celebration check
// runs first: a send-off with no continuation marker stops the conversation
// before the search trigger is even considered, so stop semantics dominate
// and a satisfied user cannot be dragged into an endless search loop.
func (c ClassifierConfig) Classify(reply string) Branch {
	c = c.withDefaults()
	upper := strings.ToUpper(reply)

	celebrating := containsAny(upper, c.CelebrationTokens)
	continuing := strings.Contains(upper, strings.ToUpper(c.SearchToken)) ||
		containsAny(upper, c.ContinuationTokens)

	if celebrating && !continuing {
		return BranchCelebrating
	}
	if strings.Contains(upper, strings.ToUpper(c.SearchToken)) {
		return BranchSearching
	}
	return BranchConversing
}

// ExtractQuery pulls the search query out of a reply carrying the search
// token. A bold-markup variant of the token is normalised first. When the
// token appears without the ":" form, the query is the reply with all token
// occurrences removed.
func (c ClassifierConfig) ExtractQuery(reply string) string {
	c = c.withDefaults()
	token := c.SearchToken

	clean := strings.ReplaceAll(reply, "**"+token+":**", token+":")

	if idx := strings.Index(clean, token+":"); idx >= 0 {
		return strings.TrimSpace(clean[idx+len(token)+1:])
	}
	return strings.TrimSpace(strings.ReplaceAll(clean, token, ""))
}

// StripControlToken removes every line containing the search token from
// text. The model occasionally echoes the control token into user-visible
// prose; those lines must never reach the user.
func (c ClassifierConfig) StripControlToken(text string) string {
	c = c.withDefaults()
	upperToken := strings.ToUpper(c.SearchToken)

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.Contains(strings.ToUpper(line), upperToken) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func containsAny(upper string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(upper, strings.ToUpper(tok)) {
			return true
		}
	}
	return false
}
