package engine

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/term"
	"github.com/halgrim/noema/internal/thought"
)

var (
	// ErrPromptNotFound means no pending user_prompt exists for the id.
	ErrPromptNotFound = errors.New("prompt not found")

	// ErrNothingWaiting means the prompt was resolved but no thought was
	// waiting on it; the prompt is closed anyway.
	ErrNothingWaiting = errors.New("no thought waiting on prompt")
)

// Respond completes the suspend/resume protocol for a prompt: the response
// text becomes a new input thought parented to the waiting thought, the
// prompt closes, and the waiting thought returns to pending with a
// positive belief update for the successful resumption. The in-memory
// store writes cannot fail individually, so once both lookups succeed
// the mutations below are applied together and the protocol never
// resumes half the state.
func (e *Engine) Respond(promptID, text string) error {
	prompt, ok := e.thoughts.Get(promptID)
	if !ok || prompt.Kind != thought.KindUserPrompt {
		return fmt.Errorf("%w: %s", ErrPromptNotFound, promptID)
	}
	if prompt.Status != thought.StatusPending {
		return fmt.Errorf("%w: %s already %s", ErrPromptNotFound, promptID, prompt.Status)
	}

	var waiting *thought.Thought
	for _, t := range e.thoughts.ByStatus(thought.StatusWaiting) {
		if t.Metadata.WaitingFor == promptID {
			waiting = t
			break
		}
	}

	if waiting == nil {
		// Close the prompt so it cannot be answered twice, but report that
		// nothing resumed.
		closed := prompt.Clone()
		closed.Status = thought.StatusDone
		closed.Metadata.Error = "resolved with no waiting thought"
		e.thoughts.Update(closed)
		e.logger.Warn("prompt answered but nothing was waiting",
			zap.String("prompt", promptID))
		return fmt.Errorf("%w: %s", ErrNothingWaiting, promptID)
	}

	response := thought.NewChild(waiting, thought.KindInput, term.Atom{Name: text})
	response.Metadata.ResponseTo = promptID
	response.Metadata.Tags = []string{"user-response"}
	e.thoughts.Add(response)

	closed := prompt.Clone()
	closed.Status = thought.StatusDone
	e.thoughts.Update(closed)

	resumed := waiting.Clone()
	resumed.Status = thought.StatusPending
	resumed.Metadata.WaitingFor = ""
	resumed.Belief.Update(true)
	e.thoughts.Update(resumed)

	e.logger.Info("prompt answered, thought resumed",
		zap.String("prompt", promptID),
		zap.String("resumed", waiting.ID),
		zap.String("response", response.ID))
	return nil
}
