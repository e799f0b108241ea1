package agent

import (
	"context"
	"strings"

	"github.com/MrWong99/socialsync/internal/observe"
	"github.com/MrWong99/socialsync/pkg/provider/llm"
)

// updateProfile runs the two-call taste assessment for a known user: a
// relevance gate over the user's last message, then a summarization pass
// that overwrites the stored taste summary. The calls are sequential and
// never reordered; the gate must pass before summarization is attempted.
//
// Every failure is recoverable: the parent turn succeeds with an empty
// summary. The caller must hold the session lock.
func (c *Controller) updateProfile(ctx context.Context, sess *Session, email, userMessage string) string {
	logger := observe.Logger(ctx)

	// Gate: the transcript minus its tail entry plus the analysis prompt.
	// The tail is excluded so the gate judges the user's message, not the
	// assistant's fresh reply.
	messages := sess.transcript.Messages()
	if len(messages) > 1 {
		messages = messages[:len(messages)-1]
	}
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: vibeCheckPrompt(userMessage)})

	gateReply, err := c.complete(ctx, messages, "profile_gate")
	if err != nil {
		logger.Warn("taste assessment gate failed", "error", err)
		c.recordProfileUpdate(ctx, "gate_failed")
		return ""
	}
	if !strings.Contains(strings.ToUpper(strings.TrimSpace(gateReply)), "YES") {
		c.recordProfileUpdate(ctx, "skipped")
		return ""
	}

	// Summarize over the real transcript; the directive is transient.
	var summary string
	err = sess.transcript.WithTransient(summarizationPrompt, func(messages []llm.Message) error {
		reply, err := c.complete(ctx, messages, "profile_summary")
		if err != nil {
			return err
		}
		summary = strings.TrimSpace(strings.ReplaceAll(reply, `"`, ""))
		return nil
	})
	if err != nil {
		logger.Warn("taste summarization failed", "error", err)
		c.recordProfileUpdate(ctx, "summary_failed")
		return ""
	}

	if err := c.profiles.SetTasteSummary(ctx, email, summary); err != nil {
		logger.Warn("taste summary persist failed", "error", err)
		c.recordProfileUpdate(ctx, "persist_failed")
		return ""
	}

	logger.Info("profile updated", "email", email)
	c.recordProfileUpdate(ctx, "updated")
	return summary
}

func (c *Controller) recordProfileUpdate(ctx context.Context, status string) {
	if c.metrics != nil {
		c.metrics.RecordProfileUpdate(ctx, status)
	}
}
