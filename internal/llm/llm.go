// Package llm defines the backend-neutral conversation types shared by the
// generative model clients.
package llm

import (
	"context"
	"errors"
)

// Role is the speaker of a Turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ErrEmptyPrompt is returned when there is nothing to send.
var ErrEmptyPrompt = errors.New("llm: empty prompt")

// Turn is one message of a conversation.
type Turn struct {
	Role Role
	Text string
}

// Generator streams a reply for prompt, continuing history, and returns the
// accumulated text once the stream ends.
type Generator interface {
	StreamReply(ctx context.Context, history []Turn, prompt string) (string, error)
}

// DefaultSystemInstruction is used when none is configured.
const DefaultSystemInstruction = `You are the information assistant of BEXCO, the Busan Exhibition and Convention Center.
Answer briefly and directly. When the user attached file contents, base your answer on them.
If you do not know the answer, say so and suggest contacting the venue.`
