package party_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarergame/wayfarer/party"
	"github.com/wayfarergame/wayfarer/rpc"
	"github.com/wayfarergame/wayfarer/testutil"
	"go.uber.org/zap"
)

func TestCreate(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("create_party", map[string]interface{}{
		"success": true,
		"party": map[string]interface{}{
			"id":   "party-1",
			"code": "ABCD12",
			"members": []map[string]interface{}{
				{"user_id": "u1", "username": "alice", "role": "leader", "online": true},
			},
			"is_leader": true,
		},
	})

	c := party.NewClient(gw, zap.NewNop())
	p, err := c.Create(context.Background(), testutil.NewSession(t))
	require.NoError(t, err)

	assert.Equal(t, "party-1", p.ID)
	assert.Equal(t, "ABCD12", p.Code)
	assert.True(t, p.IsLeader)
	require.Len(t, p.Members, 1)
	assert.Equal(t, "alice", p.Members[0].Username)
}

func TestJoin_SendsCode(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("join_party", map[string]interface{}{
		"success": true,
		"party": map[string]interface{}{
			"id": "party-1", "code": "ABCD12",
			"members": []map[string]interface{}{
				{"user_id": "u1", "username": "alice", "role": "leader", "online": true},
				{"user_id": "u2", "username": "bob", "role": "member", "online": true},
			},
			"is_leader": false,
		},
	})

	c := party.NewClient(gw, zap.NewNop())
	p, err := c.Join(context.Background(), testutil.NewSession(t), "ABCD12")
	require.NoError(t, err)

	// Leadership comes from the server, never from member-list position.
	assert.False(t, p.IsLeader)
	calls := gw.CallsTo("join_party")
	require.Len(t, calls, 1)
	assert.Equal(t, "ABCD12", calls[0].Payload["code"])
}

func TestGet_NotInParty(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Respond("get_party", map[string]interface{}{"success": true, "party": nil})

	c := party.NewClient(gw, zap.NewNop())
	p, err := c.Get(context.Background(), testutil.NewSession(t))
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestLeave_PropagatesServerError(t *testing.T) {
	gw := testutil.NewFakeGateway()
	gw.Fail("leave_party", &rpc.ServerError{Procedure: "leave_party", StatusCode: 400, Message: "not in a party"})

	c := party.NewClient(gw, zap.NewNop())
	err := c.Leave(context.Background(), testutil.NewSession(t))

	var serverErr *rpc.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "leave_party", serverErr.Procedure)
}
