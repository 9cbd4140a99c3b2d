package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wayfarergame/wayfarer/rpc"
)

// Item is one inventory entry. The server owns quantities; every listing
// is a snapshot.
type Item struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Quantity   int       `json:"quantity"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Client reads and consumes inventory items over the RPC gateway.
type Client struct {
	gw rpc.Gateway
}

// NewClient creates an inventory Client.
func NewClient(gw rpc.Gateway) *Client {
	return &Client{gw: gw}
}

// List returns the caller's inventory.
func (c *Client) List(ctx context.Context, session *rpc.Session) ([]Item, error) {
	raw, err := c.gw.Call(ctx, session, "get_inventory", map[string]string{})
	if err != nil {
		return nil, err
	}
	var res struct {
		Success bool   `json:"success"`
		Items   []Item `json:"items"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("inventory: decode items: %w", err)
	}
	return res.Items, nil
}

// Use consumes one unit of an item and returns the remaining quantity.
func (c *Client) Use(ctx context.Context, session *rpc.Session, itemID string) (int, error) {
	raw, err := c.gw.Call(ctx, session, "use_item", map[string]string{"itemId": itemID})
	if err != nil {
		return 0, err
	}
	var res struct {
		Success   bool `json:"success"`
		Remaining int  `json:"remaining"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return 0, fmt.Errorf("inventory: decode use result: %w", err)
	}
	return res.Remaining, nil
}
