package party

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wayfarergame/wayfarer/rpc"
	"go.uber.org/zap"
)

// Member is one player in a party.
type Member struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Online   bool   `json:"online"`
}

// Party is the caller's current party. IsLeader is reported by the server
// for the calling user; the client never reconstructs leadership from the
// member list.
type Party struct {
	ID       string   `json:"id"`
	Code     string   `json:"code"`
	Members  []Member `json:"members"`
	IsLeader bool     `json:"is_leader"`
}

// Client performs party operations over the RPC gateway. All state lives
// on the server; every returned Party is a snapshot.
type Client struct {
	gw     rpc.Gateway
	logger *zap.Logger
}

// NewClient creates a party Client.
func NewClient(gw rpc.Gateway, logger *zap.Logger) *Client {
	return &Client{gw: gw, logger: logger}
}

type partyResult struct {
	Success bool   `json:"success"`
	Party   *Party `json:"party"`
}

// Create makes a new party with the caller as leader and returns it,
// including the join code to share.
func (c *Client) Create(ctx context.Context, session *rpc.Session) (*Party, error) {
	return c.callForParty(ctx, session, "create_party", map[string]string{})
}

// Join adds the caller to the party identified by the join code.
func (c *Client) Join(ctx context.Context, session *rpc.Session, code string) (*Party, error) {
	return c.callForParty(ctx, session, "join_party", map[string]string{"code": code})
}

// Get returns the caller's current party, or nil when not in one.
func (c *Client) Get(ctx context.Context, session *rpc.Session) (*Party, error) {
	raw, err := c.gw.Call(ctx, session, "get_party", map[string]string{})
	if err != nil {
		return nil, err
	}
	var res partyResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("party: decode party: %w", err)
	}
	return res.Party, nil
}

// Leave removes the caller from their current party.
func (c *Client) Leave(ctx context.Context, session *rpc.Session) error {
	_, err := c.gw.Call(ctx, session, "leave_party", map[string]string{})
	return err
}

func (c *Client) callForParty(ctx context.Context, session *rpc.Session, procedure string, payload map[string]string) (*Party, error) {
	raw, err := c.gw.Call(ctx, session, procedure, payload)
	if err != nil {
		return nil, err
	}
	var res partyResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("party: decode %s result: %w", procedure, err)
	}
	if res.Party == nil {
		return nil, fmt.Errorf("party: %s returned no party", procedure)
	}
	c.logger.Debug("party updated",
		zap.String("party_id", res.Party.ID),
		zap.Int("members", len(res.Party.Members)),
	)
	return res.Party, nil
}
