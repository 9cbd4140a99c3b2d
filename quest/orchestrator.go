package quest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wayfarergame/wayfarer/rpc"
	"go.uber.org/zap"
)

// Orchestrator drives one player through one quest instance:
// start, advance step by step, finalize, rate. All mutating operations are
// remote; the orchestrator keeps only a cached status that must be treated
// as stale after every mutation. It provides no mutual exclusion: the
// integrating layer serializes calls for the same quest instance.
type Orchestrator struct {
	gw      rpc.Gateway
	engine  *Engine
	logger  *zap.Logger
	session *rpc.Session

	questID string
	status  QuestStatus
	rated   bool
	rewards *CompletionRewards
}

// NewOrchestrator creates an orchestrator for a single quest instance.
func NewOrchestrator(gw rpc.Gateway, session *rpc.Session, questID string, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		gw:      gw,
		engine:  NewEngine(gw, logger),
		logger:  logger,
		session: session,
		questID: questID,
		status:  StatusAvailable,
	}
}

// Status returns the cached quest status. Advisory only.
func (o *Orchestrator) Status() QuestStatus { return o.status }

// Rated reports whether a rating was submitted for this instance.
func (o *Orchestrator) Rated() bool { return o.rated }

// Start begins the quest. On success the cached status moves to Active and
// the caller must re-resolve quest detail: the start_quest response does
// not carry the step list or current step. On failure no local state
// changes.
func (o *Orchestrator) Start(ctx context.Context) error {
	_, err := o.gw.Call(ctx, o.session, "start_quest", map[string]string{"quest_id": o.questID})
	if err != nil {
		return &StartError{QuestID: o.questID, Err: err}
	}
	o.status = StatusActive
	o.logger.Info("quest started", zap.String("quest_id", o.questID))
	return nil
}

// Advance completes one step. When the server reports the final step done,
// the quest is finalized immediately with a separate complete_quest call.
// A finalization failure leaves the status Active and surfaces a
// *FinalizationError; the returned outcome is still valid and Finalize
// may be retried.
func (o *Orchestrator) Advance(ctx context.Context, step QuestStep, sub StepSubmission) (StepOutcome, error) {
	outcome, err := o.engine.CompleteStep(ctx, o.session, o.questID, step, sub)
	if err != nil {
		return StepOutcome{}, err
	}
	if outcome.QuestCompleted {
		if err := o.Finalize(ctx); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

// Finalize issues complete_quest and captures the rewards. Kept public so
// a failed finalization can be retried without redoing the last step; the
// server did not advance the quest status either.
func (o *Orchestrator) Finalize(ctx context.Context) error {
	raw, err := o.gw.Call(ctx, o.session, "complete_quest", map[string]string{"quest_id": o.questID})
	if err != nil {
		return &FinalizationError{QuestID: o.questID, Err: err}
	}
	var rewards CompletionRewards
	if err := json.Unmarshal(raw, &rewards); err != nil {
		return &FinalizationError{QuestID: o.questID, Err: fmt.Errorf("decode rewards: %w", err)}
	}
	o.rewards = &rewards
	o.status = StatusCompleted
	o.logger.Info("quest completed",
		zap.String("quest_id", o.questID),
		zap.Int("xp", rewards.XP),
		zap.Bool("level_up", rewards.LevelUp),
	)
	return nil
}

// Rewards returns the completion rewards exactly once. The second call
// reports false: rewards are consumed by the presentation layer and
// discarded.
func (o *Orchestrator) Rewards() (CompletionRewards, bool) {
	if o.rewards == nil {
		return CompletionRewards{}, false
	}
	r := *o.rewards
	o.rewards = nil
	return r, true
}

// Rate submits the player's feedback. Allowed only after the quest
// completed. A server-side duplicate rejection surfaces as a plain RPC
// error; the orchestrator does not special-case it.
func (o *Orchestrator) Rate(ctx context.Context, sub RatingSubmission) error {
	if o.status != StatusCompleted {
		return ErrNotCompleted
	}
	if err := sub.Validate(); err != nil {
		return err
	}
	payload := map[string]interface{}{
		"questId":          o.questID,
		"overallRating":    sub.Overall,
		"difficultyRating": sub.Difficulty,
		"funRating":        sub.Fun,
	}
	if sub.Feedback != "" {
		payload["feedbackText"] = sub.Feedback
	}
	if _, err := o.gw.Call(ctx, o.session, "submit_rating", payload); err != nil {
		return err
	}
	o.rated = true
	return nil
}
