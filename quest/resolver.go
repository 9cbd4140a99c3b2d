package quest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wayfarergame/wayfarer/rpc"
	"go.uber.org/zap"
)

// Source tags which fetch path produced a QuestView, so normalization is
// exhaustive and callers never branch on it for correctness.
type Source string

const (
	// SourceDetail means get_quest_detail succeeded: steps and the
	// caller's progress are populated.
	SourceDetail Source = "detail"
	// SourceListFallback means the quest came from the available-quests
	// list: steps are empty and progress is the zero value.
	SourceListFallback Source = "list_fallback"
)

// QuestView is the normalized result of resolving a quest: definition plus
// the caller's progress, regardless of which RPC shape produced it.
type QuestView struct {
	Quest    QuestDefinition
	Progress UserQuestProgress
	Source   Source
}

// Resolver fetches a quest's full definition and the caller's progress.
// Read-only: resolving never mutates remote state.
type Resolver struct {
	gw     rpc.Gateway
	logger *zap.Logger
}

// NewResolver creates a Resolver over the given gateway.
func NewResolver(gw rpc.Gateway, logger *zap.Logger) *Resolver {
	return &Resolver{gw: gw, logger: logger}
}

type detailResult struct {
	Success   bool               `json:"success"`
	Quest     *QuestDefinition   `json:"quest"`
	Steps     []QuestStep        `json:"steps"`
	UserQuest *UserQuestProgress `json:"userQuest"`
}

type listResult struct {
	Success bool              `json:"success"`
	Quests  []QuestDefinition `json:"quests"`
}

// Resolve returns the quest's normalized view. It tries the detailed fetch
// first; on any gateway failure it falls back to the available-quests list
// and matches by ID, in which case steps and per-user progress are absent.
// Context cancellation propagates instead of triggering the fallback.
func (r *Resolver) Resolve(ctx context.Context, session *rpc.Session, questID string) (*QuestView, error) {
	view, err := r.resolveDetail(ctx, session, questID)
	if err == nil {
		return view, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if !errors.Is(err, ErrQuestNotFound) {
		r.logger.Warn("quest detail fetch failed, falling back to list",
			zap.String("quest_id", questID),
			zap.Error(err),
		)
	}
	return r.resolveFromList(ctx, session, questID)
}

func (r *Resolver) resolveDetail(ctx context.Context, session *rpc.Session, questID string) (*QuestView, error) {
	raw, err := r.gw.Call(ctx, session, "get_quest_detail", map[string]string{"questId": questID})
	if err != nil {
		return nil, err
	}
	var res detailResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("quest: decode quest detail: %w", err)
	}
	if res.Quest == nil || res.Quest.ID != questID {
		return nil, ErrQuestNotFound
	}

	def := *res.Quest
	if len(res.Steps) > 0 {
		def.Steps = res.Steps
	}
	sortSteps(def.Steps)

	progress := UserQuestProgress{Status: StatusAvailable}
	if res.UserQuest != nil {
		progress = *res.UserQuest
	}
	progress.ProgressPercent = progressPercent(progress.CurrentStep, len(def.Steps))

	return &QuestView{Quest: def, Progress: progress, Source: SourceDetail}, nil
}

func (r *Resolver) resolveFromList(ctx context.Context, session *rpc.Session, questID string) (*QuestView, error) {
	raw, err := r.gw.Call(ctx, session, "get_available_quests", map[string]interface{}{})
	if err != nil {
		return nil, err
	}
	var res listResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("quest: decode quest list: %w", err)
	}
	for _, q := range res.Quests {
		if q.ID != questID {
			continue
		}
		def := q
		def.Steps = nil
		return &QuestView{
			Quest:    def,
			Progress: UserQuestProgress{Status: StatusAvailable},
			Source:   SourceListFallback,
		}, nil
	}
	return nil, ErrQuestNotFound
}

// Nearby lists quests around a coordinate. Thin read used by discovery
// screens; shares the list RPC with the resolver fallback.
func (r *Resolver) Nearby(ctx context.Context, session *rpc.Session, loc Location, maxDistanceKm float64) ([]QuestDefinition, error) {
	payload := map[string]interface{}{
		"latitude":      loc.Latitude,
		"longitude":     loc.Longitude,
		"maxDistanceKm": maxDistanceKm,
	}
	raw, err := r.gw.Call(ctx, session, "get_available_quests", payload)
	if err != nil {
		return nil, err
	}
	var res listResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("quest: decode quest list: %w", err)
	}
	return res.Quests, nil
}
