package quest

import (
	"fmt"
	"sort"
)

// QuestStatus is the lifecycle state of a (user, quest) pair. The remote
// service owns the transition; the client only caches it. Transitions are
// monotonic: no backward moves.
type QuestStatus string

const (
	StatusAvailable QuestStatus = "available"
	StatusActive    QuestStatus = "active"
	StatusCompleted QuestStatus = "completed"
	StatusAbandoned QuestStatus = "abandoned"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// QuestStep is one ordered sub-task of a quest. Immutable once fetched.
type QuestStep struct {
	ID              string    `json:"id"`
	Number          int       `json:"step_number"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	SuccessCriteria string    `json:"success_criteria,omitempty"`
	Hint            string    `json:"hint,omitempty"`
	Target          *Location `json:"target,omitempty"`
}

// ItemReward is a single item granted on quest completion.
type ItemReward struct {
	ItemID string `json:"item_id"`
	Qty    int    `json:"qty"`
}

// QuestDefinition is a location-anchored multi-step challenge.
// Immutable once fetched; authored on the server.
type QuestDefinition struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	Location         Location     `json:"location"`
	RadiusM          float64      `json:"radius_m"`
	Difficulty       int          `json:"difficulty"` // 1-3
	XPReward         int          `json:"xp_reward"`
	CoinReward       int          `json:"coin_reward"`
	ItemRewards      []ItemReward `json:"item_rewards,omitempty"`
	EstimatedMinutes int          `json:"estimated_minutes"`
	Steps            []QuestStep  `json:"steps"`
}

// sortSteps orders steps by step number. Step numbers are unique, 1-based,
// and contiguous within a quest; ordering here shields callers from wire
// ordering quirks.
func sortSteps(steps []QuestStep) {
	sort.Slice(steps, func(i, j int) bool { return steps[i].Number < steps[j].Number })
}

// UserQuestProgress is the caller's progress against one quest. The server
// is the sole writer; every local copy is advisory and must be re-resolved
// after any mutating call.
type UserQuestProgress struct {
	Status          QuestStatus `json:"status"`
	CurrentStep     int         `json:"current_step"` // 0 = no step completed yet
	ProgressPercent int         `json:"progress_percent"`
}

// progressPercent derives completion percentage from step counts.
func progressPercent(currentStep, totalSteps int) int {
	if totalSteps <= 0 {
		return 0
	}
	if currentStep >= totalSteps {
		return 100
	}
	return currentStep * 100 / totalSteps
}

// StepState is the derived, display-only state of a step. It is never
// stored; the server enforces real ordering.
type StepState string

const (
	StepLocked    StepState = "locked"
	StepCurrent   StepState = "current"
	StepCompleted StepState = "completed"
)

// StepStateOf derives a step's state from the cached progress.
func StepStateOf(progress UserQuestProgress, stepNumber int) StepState {
	switch {
	case progress.Status == StatusCompleted:
		return StepCompleted
	case stepNumber <= progress.CurrentStep:
		return StepCompleted
	case progress.Status != StatusActive:
		return StepLocked
	case stepNumber == progress.CurrentStep+1:
		return StepCurrent
	default:
		return StepLocked
	}
}

// StepSubmission is the transient input to one step-completion attempt.
// It is not persisted client-side beyond the attempt.
type StepSubmission struct {
	Photo    []byte    // raw image bytes, uploaded best-effort
	Text     string    // free-text response
	Location *Location // required; server verifies proximity
}

// CompletionRewards is the result of finishing a quest. Read-once: the
// presentation layer consumes it and it is discarded.
type CompletionRewards struct {
	XP       int      `json:"xp_reward"`
	Coins    int      `json:"coin_reward"`
	LevelUp  bool     `json:"level_up"`
	NewLevel int      `json:"new_level"`
	RankUp   bool     `json:"rank_up"`
	NewRank  string   `json:"new_rank"`
	Badges   []string `json:"badges,omitempty"`
}

// RatingSubmission is the player's feedback on a completed quest.
// The server is the source of truth for duplicate prevention.
type RatingSubmission struct {
	Overall    int
	Difficulty int
	Fun        int
	Feedback   string
}

const maxFeedbackLen = 500

// Validate checks local bounds before the submission touches the network.
func (r RatingSubmission) Validate() error {
	for _, v := range []struct {
		name  string
		value int
	}{
		{"overall", r.Overall},
		{"difficulty", r.Difficulty},
		{"fun", r.Fun},
	} {
		if v.value < 1 || v.value > 5 {
			return fmt.Errorf("quest: %s rating must be 1-5, got %d", v.name, v.value)
		}
	}
	if len(r.Feedback) > maxFeedbackLen {
		return fmt.Errorf("quest: feedback exceeds %d characters", maxFeedbackLen)
	}
	return nil
}
