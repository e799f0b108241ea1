package agent

import (
	"strings"
	"testing"
	"time"
)

func TestBasePersona(t *testing.T) {
	now := time.Date(2025, time.March, 14, 18, 30, 0, 0, time.UTC)
	persona := basePersona(now)

	if !strings.Contains(persona, "Current Date: 2025-03-14.") {
		t.Error("persona is missing the formatted current date")
	}
	// The reveal instruction tells the model the exact command shape. It has
	// to survive into the prompt verbatim, quoted rather than fenced.
	if !strings.Contains(persona, `"SEARCH_ACTION: [concise keywords + city sector/area]"`) {
		t.Error("persona is missing the search command instruction")
	}
	if strings.Contains(persona, "`") {
		t.Error("persona should not contain backtick fences")
	}
}
