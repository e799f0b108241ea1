// Package agent implements the conversational core of SocialSync: session
// transcripts, the per-turn dialogue controller, reply classification, and
// the profile-update sub-flow.
package agent

import (
	"fmt"

	"github.com/MrWong99/socialsync/pkg/provider/llm"
)

// Transcript is the ordered message log of one session. The first message is
// always the base persona system message and is never removed. Transcript is
// not safe for concurrent use; the owning Session serializes access.
type Transcript struct {
	messages []llm.Message
}

// NewTranscript creates a transcript seeded with the persona system message.
func NewTranscript(persona string) *Transcript {
	return &Transcript{
		messages: []llm.Message{{Role: llm.RoleSystem, Content: persona}},
	}
}

// Append adds a message to the tail of the transcript.
func (t *Transcript) Append(role, content string) {
	t.messages = append(t.messages, llm.Message{Role: role, Content: content})
}

// Messages returns a copy of the transcript contents.
func (t *Transcript) Messages() []llm.Message {
	return append([]llm.Message(nil), t.messages...)
}

// Len returns the number of messages in the transcript.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// pop removes and returns the tail message. The persona message cannot be
// popped.
func (t *Transcript) pop() (llm.Message, error) {
	if len(t.messages) <= 1 {
		return llm.Message{}, fmt.Errorf("transcript: pop would remove the persona message")
	}
	last := t.messages[len(t.messages)-1]
	t.messages = t.messages[:len(t.messages)-1]
	return last, nil
}

// WithTransient appends a system message, runs fn against the augmented
// transcript, and removes the message again. Removal happens on every exit
// path, including when fn returns an error, so a transient message can never
// leak into the durable conversation.
func (t *Transcript) WithTransient(content string, fn func(messages []llm.Message) error) error {
	t.Append(llm.RoleSystem, content)
	defer func() {
		_, _ = t.pop()
	}()
	return fn(t.Messages())
}
