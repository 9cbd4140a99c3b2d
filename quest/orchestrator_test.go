package quest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarergame/wayfarer/rpc"
	"github.com/wayfarergame/wayfarer/testutil"
)

func newOrchestrator(t *testing.T, gw *testutil.FakeGateway) *Orchestrator {
	t.Helper()
	return NewOrchestrator(gw, testutil.NewSession(t), "q1", nopLogger())
}

func TestStart_Success(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("start_quest", map[string]interface{}{"success": true})
	o := newOrchestrator(t, gw)

	require.NoError(t, o.Start(context.Background()))
	assert.Equal(t, StatusActive, o.Status())

	calls := gw.CallsTo("start_quest")
	require.Len(t, calls, 1)
	assert.Equal(t, "q1", calls[0].Payload["quest_id"])
}

func TestStart_Failure_NoPartialTransition(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Fail("start_quest", &rpc.ServerError{Procedure: "start_quest", Message: "already active"})
	o := newOrchestrator(t, gw)

	err := o.Start(context.Background())
	var startErr *StartError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, StatusAvailable, o.Status())
}

// Scenario A: three steps, first one completed. Progress advances and the
// orchestrator stays Active.
func TestAdvance_MidQuest(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("start_quest", map[string]interface{}{"success": true})
	gw.Respond("complete_step", map[string]interface{}{"success": true, "questCompleted": false})
	o := newOrchestrator(t, gw)
	require.NoError(t, o.Start(context.Background()))

	outcome, err := o.Advance(context.Background(), QuestStep{ID: "s1", Number: 1}, StepSubmission{Location: here})
	require.NoError(t, err)
	assert.False(t, outcome.QuestCompleted)
	assert.Equal(t, StatusActive, o.Status())
	assert.Empty(t, gw.CallsTo("complete_quest"))

	_, ok := o.Rewards()
	assert.False(t, ok)
}

// Scenario B: last step done → complete_quest fires immediately, rewards
// captured, status Completed.
func TestAdvance_FinalStepFinalizes(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("start_quest", map[string]interface{}{"success": true})
	gw.Respond("complete_step", map[string]interface{}{"success": true, "questCompleted": true})
	gw.Respond("complete_quest", map[string]interface{}{
		"success": true, "xp_reward": 250, "level_up": true, "new_level": 7,
	})
	o := newOrchestrator(t, gw)
	require.NoError(t, o.Start(context.Background()))

	outcome, err := o.Advance(context.Background(), QuestStep{ID: "s3", Number: 3}, StepSubmission{Location: here})
	require.NoError(t, err)
	assert.True(t, outcome.QuestCompleted)
	assert.Equal(t, StatusCompleted, o.Status())
	require.Len(t, gw.CallsTo("complete_quest"), 1)

	rewards, ok := o.Rewards()
	require.True(t, ok)
	assert.Equal(t, 250, rewards.XP)
	assert.True(t, rewards.LevelUp)
	assert.Equal(t, 7, rewards.NewLevel)
}

// Scenario C: complete_quest fails after the final step → status stays
// Active and Finalize can be retried.
func TestAdvance_FinalizationFailure_Retryable(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("start_quest", map[string]interface{}{"success": true})
	gw.Respond("complete_step", map[string]interface{}{"success": true, "questCompleted": true})
	gw.Fail("complete_quest", &rpc.NetworkError{Op: "complete_quest", Err: context.DeadlineExceeded})
	o := newOrchestrator(t, gw)
	require.NoError(t, o.Start(context.Background()))

	outcome, err := o.Advance(context.Background(), QuestStep{ID: "s3", Number: 3}, StepSubmission{Location: here})
	var finErr *FinalizationError
	require.ErrorAs(t, err, &finErr)
	assert.True(t, outcome.QuestCompleted)
	assert.Equal(t, StatusActive, o.Status())

	// The failed call left a queued retry path; script a success and retry.
	gw.Respond("complete_quest", map[string]interface{}{"success": true, "xp_reward": 250})
	require.NoError(t, o.Finalize(context.Background()))
	assert.Equal(t, StatusCompleted, o.Status())

	rewards, ok := o.Rewards()
	require.True(t, ok)
	assert.Equal(t, 250, rewards.XP)
}

func TestAdvance_StepFailurePropagates(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("start_quest", map[string]interface{}{"success": true})
	gw.Fail("complete_step", &rpc.ServerError{Procedure: "complete_step", Message: "out of order"})
	o := newOrchestrator(t, gw)
	require.NoError(t, o.Start(context.Background()))

	_, err := o.Advance(context.Background(), QuestStep{ID: "s2", Number: 2}, StepSubmission{Location: here})
	var stepErr *StepCompletionError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StatusActive, o.Status())
}

func TestRewards_ReadOnce(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("complete_quest", map[string]interface{}{"success": true, "xp_reward": 100})
	o := newOrchestrator(t, gw)
	require.NoError(t, o.Finalize(context.Background()))

	first, ok := o.Rewards()
	require.True(t, ok)
	assert.Equal(t, 100, first.XP)

	_, ok = o.Rewards()
	assert.False(t, ok)
}

func TestRate_BeforeCompletion(t *testing.T) {
	gw := testutil.NewFakeGateway()
	o := newOrchestrator(t, gw)

	err := o.Rate(context.Background(), RatingSubmission{Overall: 5, Difficulty: 3, Fun: 4})
	assert.ErrorIs(t, err, ErrNotCompleted)
	assert.Empty(t, gw.Calls)
}

func TestRate_AfterCompletion(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("complete_quest", map[string]interface{}{"success": true, "xp_reward": 100})
	gw.Respond("submit_rating", map[string]interface{}{"success": true})
	o := newOrchestrator(t, gw)
	require.NoError(t, o.Finalize(context.Background()))

	sub := RatingSubmission{Overall: 5, Difficulty: 2, Fun: 4, Feedback: "lovely route"}
	require.NoError(t, o.Rate(context.Background(), sub))
	assert.True(t, o.Rated())

	calls := gw.CallsTo("submit_rating")
	require.Len(t, calls, 1)
	assert.Equal(t, "q1", calls[0].Payload["questId"])
	assert.Equal(t, float64(5), calls[0].Payload["overallRating"])
	assert.Equal(t, "lovely route", calls[0].Payload["feedbackText"])
}

func TestRate_InvalidSubmission_NoRPC(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("complete_quest", map[string]interface{}{"success": true})
	o := newOrchestrator(t, gw)
	require.NoError(t, o.Finalize(context.Background()))

	err := o.Rate(context.Background(), RatingSubmission{Overall: 9, Difficulty: 3, Fun: 3})
	assert.Error(t, err)
	assert.Empty(t, gw.CallsTo("submit_rating"))
}

// Duplicate rating rejection is an ordinary server error, not a special case.
func TestRate_DuplicateRejectedByServer(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("complete_quest", map[string]interface{}{"success": true})
	gw.Respond("submit_rating", map[string]interface{}{"success": true})
	gw.Fail("submit_rating", &rpc.ServerError{Procedure: "submit_rating", Message: "already rated"})
	o := newOrchestrator(t, gw)
	require.NoError(t, o.Finalize(context.Background()))

	sub := RatingSubmission{Overall: 4, Difficulty: 2, Fun: 4}
	require.NoError(t, o.Rate(context.Background(), sub))

	err := o.Rate(context.Background(), sub)
	var serverErr *rpc.ServerError
	require.ErrorAs(t, err, &serverErr)
}
