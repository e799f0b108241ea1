package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	profilemock "github.com/MrWong99/socialsync/pkg/profile/mock"
	"github.com/MrWong99/socialsync/pkg/provider/llm"
	llmmock "github.com/MrWong99/socialsync/pkg/provider/llm/mock"
	"github.com/MrWong99/socialsync/pkg/records"
	recordsmock "github.com/MrWong99/socialsync/pkg/records/mock"
)

const (
	blockJazz = "Event: Jazz Night\nDate: 2025-05-01\nSource: http://x.com/e?id=5"
	blockRave = "Event: Warehouse Rave\nDate: 2025-05-02\nLocation: Sector 3"
	blockMic  = "Event: Open Mic\nDate: 2025-05-03"
)

func newTestController(oracle llm.Provider, store records.Store, profiles *profilemock.Store) (*Controller, *Registry) {
	reg := NewRegistry("persona", nil)
	if profiles == nil {
		return NewController(oracle, store, nil, reg, nil, Config{}, nil), reg
	}
	return NewController(oracle, store, profiles, reg, nil, Config{}, nil), reg
}

func TestTurn_Conversational(t *testing.T) {
	oracle := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "If tonight had a flavor, spicy or sweet?"}},
	}
	store := &recordsmock.Store{}
	ctrl, reg := newTestController(oracle, store, nil)

	resp, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "hey"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "If tonight had a flavor, spicy or sweet?" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.MissionComplete {
		t.Error("mission_complete should be false on a conversational turn")
	}
	if len(resp.Events) != 0 {
		t.Errorf("events = %d, want 0", len(resp.Events))
	}
	if len(store.SearchCalls) != 0 {
		t.Errorf("store searched %d times, want 0", len(store.SearchCalls))
	}

	// Transcript: persona, user, assistant. The reminder must be gone.
	sess := reg.GetOrCreate(context.Background(), "s1", "")
	msgs := sess.transcript.Messages()
	if len(msgs) != 3 {
		t.Fatalf("transcript has %d messages, want 3: %+v", len(msgs), msgs)
	}
	if msgs[0].Role != llm.RoleSystem {
		t.Errorf("first message role = %q, want system", msgs[0].Role)
	}
	if msgs[2].Role != llm.RoleAssistant {
		t.Errorf("last message role = %q, want assistant", msgs[2].Role)
	}

	// The oracle saw the transient reminder as the final message.
	sent := oracle.CompleteCalls[0].Req.Messages
	if sent[len(sent)-1].Content != reminderPrompt {
		t.Error("oracle call did not carry the reminder as its tail message")
	}
}

func TestTurn_Celebration(t *testing.T) {
	oracle := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "Awesome choice! Have a blast! 🎆"}},
	}
	store := &recordsmock.Store{SearchResults: []string{blockJazz}}
	ctrl, reg := newTestController(oracle, store, nil)

	resp, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "perfect, I'll go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.MissionComplete {
		t.Error("mission_complete should be true on a celebration")
	}
	if len(store.SearchCalls) != 0 {
		t.Error("record store must not be queried on a celebration turn")
	}
	if resp.Text != "Awesome choice! Have a blast! 🎆" {
		t.Errorf("text = %q, want verbatim send-off", resp.Text)
	}

	// The send-off is not appended; the transcript ends on the user turn.
	sess := reg.GetOrCreate(context.Background(), "s1", "")
	msgs := sess.transcript.Messages()
	if msgs[len(msgs)-1].Role != llm.RoleUser {
		t.Errorf("transcript tail role = %q, want user", msgs[len(msgs)-1].Role)
	}
}

func TestTurn_SearchShowsAtMostTwo(t *testing.T) {
	oracle := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{
			{Content: "SEARCH_ACTION: jazz old town"},
			{Content: "Found some gems, thoughts?"},
		},
	}
	store := &recordsmock.Store{SearchResults: []string{blockJazz, blockRave, blockMic, "Event: Fourth", "Event: Fifth"}}
	ctrl, reg := newTestController(oracle, store, nil)

	resp, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "surprise me"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(resp.Events))
	}
	if resp.Events[0].Title != "Jazz Night" || resp.Events[1].Title != "Warehouse Rave" {
		t.Errorf("events = %+v", resp.Events)
	}
	if !resp.MissionComplete {
		t.Error("mission_complete should be true after showing events")
	}
	if resp.Text != "Found some gems, thoughts?" {
		t.Errorf("text = %q, want follow-up", resp.Text)
	}

	// Retrieval asks for more than it shows, with the anchored query.
	call := store.SearchCalls[0]
	if call.K != 5 {
		t.Errorf("search k = %d, want 5", call.K)
	}
	if call.Kind != records.KindEvent {
		t.Errorf("search kind = %q, want event", call.Kind)
	}
	if call.Query != "Event in Bucharest: jazz old town" {
		t.Errorf("search query = %q", call.Query)
	}

	// Permanent markers stay; the reminder does not.
	sess := reg.GetOrCreate(context.Background(), "s1", "")
	msgs := sess.transcript.Messages()
	var markers int
	for _, m := range msgs {
		if m.Content == searchExecutedMarker || m.Content == statusFirstBatch {
			markers++
		}
		if m.Content == reminderPrompt {
			t.Error("transient reminder leaked into the transcript")
		}
	}
	if markers != 2 {
		t.Errorf("permanent markers = %d, want 2", markers)
	}
}

func TestTurn_SearchDedupAcrossTurns(t *testing.T) {
	oracle := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{
			{Content: "SEARCH_ACTION: jazz"},
			{Content: "First batch, thoughts?"},
			{Content: "SEARCH_ACTION: jazz again"},
			{Content: "More options, better?"},
		},
	}
	store := &recordsmock.Store{SearchResults: []string{blockJazz, blockRave, blockMic}}
	ctrl, _ := newTestController(oracle, store, nil)

	first, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "find jazz"})
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	second, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "what else?"})
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	if len(first.Events) != 2 {
		t.Fatalf("first turn events = %d, want 2", len(first.Events))
	}
	// Only the third block is fresh on the second turn.
	if len(second.Events) != 1 || second.Events[0].Title != "Open Mic" {
		t.Fatalf("second turn events = %+v, want only Open Mic", second.Events)
	}
}

func TestTurn_SearchExhausted(t *testing.T) {
	oracle := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{
			{Content: "SEARCH_ACTION: jazz"},
			{Content: "First batch, thoughts?"},
			{Content: "SEARCH_ACTION: jazz"},
		},
	}
	store := &recordsmock.Store{SearchResults: []string{blockJazz, blockRave}}
	ctrl, _ := newTestController(oracle, store, nil)

	if _, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "find jazz"}); err != nil {
		t.Fatalf("turn 1: %v", err)
	}

	resp, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "more"})
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if resp.Text != exhaustedMessage {
		t.Errorf("text = %q, want exhausted message", resp.Text)
	}
	if resp.MissionComplete {
		t.Error("mission_complete should stay false when out of matches")
	}
	if len(resp.Events) != 0 {
		t.Errorf("events = %d, want 0", len(resp.Events))
	}
	// No follow-up completion on the exhausted path: two search turns cost
	// three oracle calls in total, not four.
	if len(oracle.CompleteCalls) != 3 {
		t.Errorf("oracle calls = %d, want 3", len(oracle.CompleteCalls))
	}
}

func TestTurn_OracleFailureIsFatal(t *testing.T) {
	oracle := &llmmock.Provider{CompleteErr: errors.New("quota exceeded")}
	ctrl, reg := newTestController(oracle, &recordsmock.Store{}, nil)

	_, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "hi"})
	if err == nil {
		t.Fatal("expected turn failure when the primary completion fails")
	}

	// The reminder must still have been popped.
	sess := reg.GetOrCreate(context.Background(), "s1", "")
	for _, m := range sess.transcript.Messages() {
		if m.Content == reminderPrompt {
			t.Fatal("reminder leaked after a failed completion")
		}
	}
}

func TestTurn_RetrievalFailureIsFatal(t *testing.T) {
	oracle := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "SEARCH_ACTION: jazz"}},
	}
	store := &recordsmock.Store{SearchErr: errors.New("db down")}
	ctrl, _ := newTestController(oracle, store, nil)

	if _, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "go"}); err == nil {
		t.Fatal("expected turn failure when retrieval fails")
	}
}

func TestTurn_StripsEchoedControlToken(t *testing.T) {
	oracle := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{
			{Content: "Let me think\nSEARCH_ACTION: jazz"},
			{Content: "Check these!\nSEARCH_ACTION: leftover"},
		},
	}
	store := &recordsmock.Store{SearchResults: []string{blockJazz}}
	ctrl, _ := newTestController(oracle, store, nil)

	resp, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(resp.Text, "SEARCH_ACTION") {
		t.Errorf("control token leaked into outgoing text: %q", resp.Text)
	}
	if resp.Text != "Check these!" {
		t.Errorf("text = %q, want 'Check these!'", resp.Text)
	}
}

func TestTurn_ProfileContextInjectedOnce(t *testing.T) {
	oracle := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{
			{Content: "hello!"}, {Content: "NO"},
			{Content: "hello again!"}, {Content: "NO"},
		},
	}
	profiles := profilemock.NewStore()
	profiles.Seed("ana@example.com", "pw", "Ana", "Enjoys chill acoustic sets.")
	ctrl, reg := newTestController(oracle, &recordsmock.Store{}, profiles)

	for i := 0; i < 2; i++ {
		if _, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "hi", Email: "ana@example.com"}); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}

	sess := reg.GetOrCreate(context.Background(), "s1", "")
	msgs := sess.transcript.Messages()

	var contextCount int
	for _, m := range msgs {
		if strings.Contains(m.Content, "Enjoys chill acoustic sets.") {
			contextCount++
		}
	}
	if contextCount != 1 {
		t.Fatalf("profile context appears %d times, want exactly 1", contextCount)
	}
	if !strings.Contains(msgs[1].Content, "Enjoys chill acoustic sets.") {
		t.Error("profile context should be the second system message")
	}
	// The store is consulted once when the session is created, not per turn.
	if profiles.GetCalls != 1 {
		t.Errorf("profile store reads = %d, want 1", profiles.GetCalls)
	}
}

func TestTurn_ProfileGateNoSkipsSummary(t *testing.T) {
	oracle := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{
			{Content: "what's the vibe?"},
			{Content: "NO"},
		},
	}
	profiles := profilemock.NewStore()
	profiles.Seed("ana@example.com", "pw", "Ana", "")
	ctrl, _ := newTestController(oracle, &recordsmock.Store{}, profiles)

	resp, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "tomorrow", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.NewVibe != "" {
		t.Errorf("new_vibe = %q, want empty", resp.NewVibe)
	}
	// Exactly two calls: the turn and the gate. No summarization.
	if len(oracle.CompleteCalls) != 2 {
		t.Errorf("oracle calls = %d, want 2", len(oracle.CompleteCalls))
	}
	if len(profiles.SummaryWrites) != 0 {
		t.Errorf("summary writes = %d, want 0", len(profiles.SummaryWrites))
	}
}

func TestTurn_ProfileUpdateWritesSummary(t *testing.T) {
	oracle := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{
			{Content: "love that for you"},
			{Content: "YES"},
			{Content: `"Enjoys underground techno and late nights."`},
		},
	}
	profiles := profilemock.NewStore()
	profiles.Seed("ana@example.com", "pw", "Ana", "")
	ctrl, reg := newTestController(oracle, &recordsmock.Store{}, profiles)

	resp, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "I live for techno", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.NewVibe != "Enjoys underground techno and late nights." {
		t.Errorf("new_vibe = %q (quotes must be stripped)", resp.NewVibe)
	}

	p, _ := profiles.Get(context.Background(), "ana@example.com")
	if p.TasteSummary != "Enjoys underground techno and late nights." {
		t.Errorf("persisted summary = %q", p.TasteSummary)
	}

	// The summarization directive must not remain in the transcript.
	sess := reg.GetOrCreate(context.Background(), "s1", "")
	for _, m := range sess.transcript.Messages() {
		if m.Content == summarizationPrompt {
			t.Fatal("summarization directive leaked into the transcript")
		}
	}
}

func TestTurn_ProfileSubFlowFailureDoesNotFailTurn(t *testing.T) {
	oracle := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "sounds fun!"}},
		CompleteErrOnCall: 2,
		CompleteErrOnce:   errors.New("gate timeout"),
	}
	profiles := profilemock.NewStore()
	profiles.Seed("ana@example.com", "pw", "Ana", "")
	ctrl, _ := newTestController(oracle, &recordsmock.Store{}, profiles)

	resp, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "I like jazz", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("turn must survive a profile sub-flow failure, got: %v", err)
	}
	if resp.Text != "sounds fun!" {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.NewVibe != "" {
		t.Errorf("new_vibe = %q, want empty", resp.NewVibe)
	}
}

func TestReset(t *testing.T) {
	oracle := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "hi"}},
	}
	ctrl, reg := newTestController(oracle, &recordsmock.Store{}, nil)

	if _, err := ctrl.Turn(context.Background(), TurnRequest{SessionID: "s1", Message: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("sessions = %d, want 1", reg.Len())
	}

	ctrl.Reset(context.Background(), "s1")
	if reg.Len() != 0 {
		t.Fatalf("sessions after reset = %d, want 0", reg.Len())
	}

	// Resetting an unknown id is a no-op success and creates nothing.
	ctrl.Reset(context.Background(), "ghost")
	if reg.Len() != 0 {
		t.Fatalf("sessions after unknown reset = %d, want 0", reg.Len())
	}
}
