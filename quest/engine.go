package quest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/wayfarergame/wayfarer/rpc"
	"go.uber.org/zap"
)

// StepOutcome is the result of one step-completion attempt.
type StepOutcome struct {
	// QuestCompleted is true when the server reports this was the final
	// step. The engine does not finalize the quest itself; that is a
	// separate complete_quest call owned by the orchestrator, so the
	// server computes final rewards exactly once.
	QuestCompleted bool
	// MediaURL is the remote URL of the uploaded photo, when the upload
	// succeeded.
	MediaURL string
	// MediaSkipped is true when a photo or text was supplied but its
	// upload or submission failed. Best-effort: never fatal.
	MediaSkipped bool
	// SkipReason describes why media was skipped.
	SkipReason string
}

// mediaResult tags the outcome of a best-effort media call so the engine's
// control flow has no exception-style branching.
type mediaResult struct {
	URL     string
	Skipped bool
	Reason  string
}

// Engine advances a quest through its ordered steps. It holds no state of
// its own: the server is the sole authority on step ordering and proximity,
// and the engine forwards every attempt regardless of the locally derived
// step state, which is display-only.
type Engine struct {
	gw     rpc.Gateway
	logger *zap.Logger
}

// NewEngine creates a step progression engine over the given gateway.
func NewEngine(gw rpc.Gateway, logger *zap.Logger) *Engine {
	return &Engine{gw: gw, logger: logger}
}

type completeStepResult struct {
	Success        bool   `json:"success"`
	QuestCompleted bool   `json:"questCompleted"`
	Error          string `json:"error"`
}

// CompleteStep runs one step-completion attempt:
// photo upload (best-effort), media submission (best-effort), then the
// fatal complete_step call. A missing location fails before any RPC.
//
// Callers must serialize CompleteStep calls for the same quest instance;
// the engine provides no mutual exclusion.
func (e *Engine) CompleteStep(ctx context.Context, session *rpc.Session, questID string, step QuestStep, sub StepSubmission) (StepOutcome, error) {
	if sub.Location == nil {
		return StepOutcome{}, ErrLocationRequired
	}

	media := e.uploadPhoto(ctx, session, questID, step.ID, sub.Photo)
	if media.URL != "" || sub.Text != "" {
		if res := e.submitMedia(ctx, session, questID, step.ID, media.URL, sub.Text); res.Skipped {
			media.Skipped = true
			media.Reason = res.Reason
		}
	}

	payload := map[string]interface{}{
		"questId":   questID,
		"stepId":    step.ID,
		"latitude":  sub.Location.Latitude,
		"longitude": sub.Location.Longitude,
	}
	raw, err := e.gw.Call(ctx, session, "complete_step", payload)
	if err != nil {
		return StepOutcome{}, &StepCompletionError{QuestID: questID, StepID: step.ID, Err: err}
	}
	var res completeStepResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return StepOutcome{}, &StepCompletionError{
			QuestID: questID,
			StepID:  step.ID,
			Err:     fmt.Errorf("decode result: %w", err),
		}
	}

	return StepOutcome{
		QuestCompleted: res.QuestCompleted,
		MediaURL:       media.URL,
		MediaSkipped:   media.Skipped,
		SkipReason:     media.Reason,
	}, nil
}

// uploadPhoto pushes the image bytes to the server and returns the remote
// URL. Failures are swallowed: a lost attachment must not block progress.
func (e *Engine) uploadPhoto(ctx context.Context, session *rpc.Session, questID, stepID string, photo []byte) mediaResult {
	if len(photo) == 0 {
		return mediaResult{}
	}
	payload := map[string]string{
		"imageBase64": base64.StdEncoding.EncodeToString(photo),
		"questId":     questID,
		"stepId":      stepID,
	}
	raw, err := e.gw.Call(ctx, session, "upload_photo", payload)
	if err != nil {
		e.logger.Warn("photo upload failed, continuing without attachment",
			zap.String("quest_id", questID),
			zap.String("step_id", stepID),
			zap.Error(err),
		)
		return mediaResult{Skipped: true, Reason: err.Error()}
	}
	var res struct {
		Success bool   `json:"success"`
		URL     string `json:"url"`
	}
	if err := json.Unmarshal(raw, &res); err != nil || res.URL == "" {
		e.logger.Warn("photo upload returned no URL, continuing without attachment",
			zap.String("quest_id", questID),
			zap.String("step_id", stepID),
		)
		return mediaResult{Skipped: true, Reason: "upload returned no url"}
	}
	return mediaResult{URL: res.URL}
}

// submitMedia attaches the uploaded photo URL and/or text to the step.
// Best-effort like the upload itself.
func (e *Engine) submitMedia(ctx context.Context, session *rpc.Session, questID, stepID, mediaURL, text string) mediaResult {
	mediaType := "text"
	if mediaURL != "" {
		mediaType = "photo"
	}
	payload := map[string]interface{}{
		"questId":   questID,
		"stepId":    stepID,
		"mediaType": mediaType,
	}
	if mediaURL != "" {
		payload["mediaUrl"] = mediaURL
	}
	if text != "" {
		payload["textContent"] = text
	}
	if _, err := e.gw.Call(ctx, session, "submit_step_media", payload); err != nil {
		e.logger.Warn("step media submission failed, continuing",
			zap.String("quest_id", questID),
			zap.String("step_id", stepID),
			zap.Error(err),
		)
		return mediaResult{Skipped: true, Reason: err.Error()}
	}
	return mediaResult{URL: mediaURL}
}
