package api

import (
	"context"

	"github.com/floatdeck/datasync/internal/model"
)

// GetOrders fetches the current orders snapshot.
func (c *Client) GetOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := c.get(ctx, "/api/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetFloatLists fetches validated float-screening results per group.
func (c *Client) GetFloatLists(ctx context.Context) (map[string][]model.FloatResult, error) {
	var lists map[string][]model.FloatResult
	if err := c.get(ctx, "/api/float-lists", nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// GetToplists fetches toplist rows per group.
func (c *Client) GetToplists(ctx context.Context) (map[string][]model.ToplistRow, error) {
	var lists map[string][]model.ToplistRow
	if err := c.get(ctx, "/api/toplists", nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// GetBuyFeed fetches the buy-signal feed snapshot, newest first.
func (c *Client) GetBuyFeed(ctx context.Context) ([]model.BuySignal, error) {
	var feed []model.BuySignal
	if err := c.get(ctx, "/api/buy-feed", nil, &feed); err != nil {
		return nil, err
	}
	return feed, nil
}

// triggerModeData is the /api/trigger-mode data shape.
type triggerModeData struct {
	Mode string `json:"mode"`
}

// GetTriggerMode fetches the auxiliary trigger-mode setting.
func (c *Client) GetTriggerMode(ctx context.Context) (string, error) {
	var data triggerModeData
	if err := c.get(ctx, "/api/trigger-mode", nil, &data); err != nil {
		return "", err
	}
	return data.Mode, nil
}
