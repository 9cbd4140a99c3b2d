package quest

import (
	"errors"
	"fmt"
)

// ErrLocationRequired means a step completion was attempted without a
// location fix. No RPC call is made in that case.
var ErrLocationRequired = errors.New("quest: location required to complete a step")

// ErrQuestNotFound means neither the detail fetch nor the list fallback
// produced a quest with the requested ID.
var ErrQuestNotFound = errors.New("quest: quest not found")

// ErrNotCompleted means a rating was attempted before the quest finished.
var ErrNotCompleted = errors.New("quest: quest is not completed")

// StepCompletionError wraps a fatal failure of the complete_step call.
// No local state is mutated; the caller must re-resolve progress before
// retrying, since remote state is the sole truth.
type StepCompletionError struct {
	QuestID string
	StepID  string
	Err     error
}

func (e *StepCompletionError) Error() string {
	return fmt.Sprintf("quest: complete step %s of quest %s: %v", e.StepID, e.QuestID, e.Err)
}

func (e *StepCompletionError) Unwrap() error { return e.Err }

// StartError wraps a failed start_quest call. Local state is unchanged.
type StartError struct {
	QuestID string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("quest: start quest %s: %v", e.QuestID, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// FinalizationError wraps a failed complete_quest call issued after the
// last step was reported done. The quest stays Active so the caller
// retains a retry path.
type FinalizationError struct {
	QuestID string
	Err     error
}

func (e *FinalizationError) Error() string {
	return fmt.Sprintf("quest: finalize quest %s: %v", e.QuestID, e.Err)
}

func (e *FinalizationError) Unwrap() error { return e.Err }
