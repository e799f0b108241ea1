package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/socialsync/internal/event"
	"github.com/MrWong99/socialsync/internal/observe"
	"github.com/MrWong99/socialsync/pkg/profile"
	"github.com/MrWong99/socialsync/pkg/provider/llm"
	"github.com/MrWong99/socialsync/pkg/records"
)

// Config tunes the per-turn state machine. Zero values select the defaults
// noted per field.
type Config struct {
	// Classifier holds the token sets for reply classification.
	Classifier ClassifierConfig

	// RetrieveK is how many candidate events to request per search, fetched
	// above the display count so dedup filtering has headroom. Default: 5.
	RetrieveK int

	// ShowLimit is the maximum number of unseen events displayed per search.
	// Default: 2.
	ShowLimit int

	// OracleTimeout bounds a single model call. Default: 60s.
	OracleTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.RetrieveK <= 0 {
		c.RetrieveK = 5
	}
	if c.ShowLimit <= 0 {
		c.ShowLimit = 2
	}
	if c.OracleTimeout <= 0 {
		c.OracleTimeout = 60 * time.Second
	}
	return c
}

// TurnRequest is one user message addressed to a session.
type TurnRequest struct {
	// SessionID selects (or creates) the conversation.
	SessionID string

	// Message is the user's utterance.
	Message string

	// Email identifies a registered user. Empty for anonymous sessions;
	// profile context injection and taste updates are skipped.
	Email string
}

// TurnResponse is the assembled outcome of one turn.
type TurnResponse struct {
	// Text is the user-visible reply, control tokens stripped.
	Text string `json:"text"`

	// Events holds the structured events surfaced this turn, at most the
	// configured show limit.
	Events []event.Event `json:"events"`

	// MissionComplete reports whether the agent considers the search
	// settled for this turn.
	MissionComplete bool `json:"mission_complete"`

	// NewVibe carries a freshly written taste summary, empty when the
	// profile was not updated.
	NewVibe string `json:"new_vibe,omitempty"`
}

// Controller drives one conversation turn: oracle invocation, reply
// classification, retrieval with dedup, and the profile-update sub-flow.
//
// Controller is safe for concurrent use; per-session state is serialized by
// the session lock.
type Controller struct {
	oracle   llm.Provider
	store    records.Store
	profiles profile.Store
	registry *Registry
	picker   *QuestionPicker
	cfg      Config
	metrics  *observe.Metrics
}

// NewController wires a controller. profiles, picker, and metrics may be nil
// to disable profile persistence, question suggestions, and instrumentation
// respectively.
func NewController(oracle llm.Provider, store records.Store, profiles profile.Store, registry *Registry, picker *QuestionPicker, cfg Config, metrics *observe.Metrics) *Controller {
	return &Controller{
		oracle:   oracle,
		store:    store,
		profiles: profiles,
		registry: registry,
		picker:   picker,
		cfg:      cfg.withDefaults(),
		metrics:  metrics,
	}
}

// Turn executes one full conversation turn. A failure of the primary model
// call (or of retrieval and the follow-up call on the search branch) is
// fatal to the turn; profile sub-flow failures are logged and swallowed.
func (c *Controller) Turn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	logger := observe.Logger(ctx)

	// The stored taste context is only consulted when the session does not
	// exist yet; existing sessions already carry it.
	sess, ok := c.registry.Get(req.SessionID)
	if !ok {
		sess = c.registry.GetOrCreate(ctx, req.SessionID, c.profileContext(ctx, req.Email))
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.transcript.Append(llm.RoleUser, req.Message)

	// The reminder rides along for exactly one completion and is popped on
	// every exit path.
	var reply string
	err := sess.transcript.WithTransient(reminderPrompt, func(messages []llm.Message) error {
		var err error
		reply, err = c.complete(ctx, messages, "turn")
		return err
	})
	if err != nil {
		return nil, err
	}

	resp := &TurnResponse{}
	branch := c.cfg.Classifier.Classify(reply)

	switch branch {
	case BranchCelebrating:
		// The send-off is used verbatim and the record store is not
		// touched. The reply is deliberately not appended: the transcript
		// ends on the user's confirmation.
		resp.Text = reply
		resp.MissionComplete = true

	case BranchSearching:
		if err := c.runSearch(ctx, sess, reply, resp); err != nil {
			return nil, err
		}

	default:
		text := reply
		if c.picker != nil && !strings.Contains(reply, "?") {
			q, err := c.picker.Next(ctx, sess, req.Message)
			if err != nil {
				logger.Warn("question pick failed", "error", err)
			} else if q != "" {
				text = reply + "\n\n" + q
			}
		}
		sess.transcript.Append(llm.RoleAssistant, text)
		resp.Text = text
	}

	// Taste assessment runs on every turn for known users so updates land
	// immediately. Failures never fail the turn.
	if req.Email != "" && c.profiles != nil {
		resp.NewVibe = c.updateProfile(ctx, sess, req.Email, req.Message)
	}

	resp.Text = c.cfg.Classifier.StripControlToken(resp.Text)

	if c.metrics != nil {
		c.metrics.RecordTurn(ctx, string(branch))
	}
	return resp, nil
}

// Reset discards the session for id. Unknown ids are a no-op success.
func (c *Controller) Reset(ctx context.Context, id string) {
	c.registry.Reset(ctx, id)
}

// runSearch executes the search branch: query extraction, retrieval, dedup
// against the session's seen set, and the follow-up completion whose
// markers stay in the transcript permanently.
func (c *Controller) runSearch(ctx context.Context, sess *Session, reply string, resp *TurnResponse) error {
	query := c.cfg.Classifier.ExtractQuery(reply)

	start := time.Now()
	blocks, err := c.store.Search(ctx, searchQueryPrefix(query), c.cfg.RetrieveK, records.KindEvent)
	if c.metrics != nil {
		c.metrics.RetrievalDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("agent: retrieve events: %w", err)
	}

	var fresh []string
	for _, block := range blocks {
		if sess.seen(block) {
			continue
		}
		fresh = append(fresh, block)
		if len(fresh) == c.cfg.ShowLimit {
			break
		}
	}

	if len(fresh) == 0 {
		sess.retryCount++
		observe.Logger(ctx).Info("search exhausted", "query", query, "misses", sess.retryCount)
		resp.Text = exhaustedMessage
		return nil
	}

	sess.retryCount = 0
	for _, block := range fresh {
		sess.markSeen(block)
		resp.Events = append(resp.Events, event.Parse(block))
	}

	// Both markers stay in the transcript as durable context for future
	// turns; only the reminder in Turn is transient.
	sess.transcript.Append(llm.RoleAssistant, searchExecutedMarker)
	status := statusFirstBatch
	if len(sess.seenEvents) > c.cfg.ShowLimit {
		status = statusMoreBatch
	}
	sess.transcript.Append(llm.RoleSystem, status)

	followUp, err := c.complete(ctx, sess.transcript.Messages(), "follow_up")
	if err != nil {
		return err
	}
	sess.transcript.Append(llm.RoleAssistant, followUp)

	resp.Text = followUp
	resp.MissionComplete = true
	return nil
}

// profileContext loads the stored taste summary for email, formatted as a
// context prompt, or "" when unavailable. Lookup failures only cost the
// context injection, never the turn.
func (c *Controller) profileContext(ctx context.Context, email string) string {
	if email == "" || c.profiles == nil {
		return ""
	}
	p, err := c.profiles.Get(ctx, email)
	if err != nil {
		observe.Logger(ctx).Warn("profile lookup failed", "error", err)
		return ""
	}
	if p == nil || p.TasteSummary == "" {
		return ""
	}
	return profileContextPrompt(p.TasteSummary)
}

// complete performs one model call with the configured timeout, recording
// latency and error metrics under the given stage label.
func (c *Controller) complete(ctx context.Context, messages []llm.Message, stage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.OracleTimeout)
	defer cancel()

	start := time.Now()
	resp, err := c.oracle.Complete(ctx, llm.CompletionRequest{Messages: messages})
	if c.metrics != nil {
		c.metrics.OracleDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordOracleError(ctx, stage)
		}
		return "", fmt.Errorf("agent: oracle %s: %w", stage, err)
	}
	if resp == nil {
		if c.metrics != nil {
			c.metrics.RecordOracleError(ctx, stage)
		}
		return "", fmt.Errorf("agent: oracle %s: empty response", stage)
	}
	return resp.Content, nil
}
