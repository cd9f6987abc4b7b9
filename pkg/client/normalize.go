package client

import (
	"context"
	"time"
)

// Worker is the unified node/worker shape analyzers consume regardless of
// whether the deployment is Stream (already this shape) or Edge (normalized
// from its fleet/node vocabulary).
type Worker struct {
	ID          string                 `json:"id"`
	Group       string                 `json:"group"`
	Status      string                 `json:"status"`
	LastMsgTime int64                  `json:"lastMsgTime"`
	Metrics     map[string]interface{} `json:"metrics,omitempty"`
}

// edgeNode is the raw shape returned by /api/v1/edge/nodes.
type edgeNode struct {
	ID       string                 `json:"id"`
	Fleet    string                 `json:"fleet"`
	Status   string                 `json:"status"`
	LastSeen string                 `json:"lastSeen"`
	Metrics  map[string]interface{} `json:"metrics,omitempty"`
}

// normalizeEdgeNode maps an Edge node's fleet/disconnected vocabulary onto
// the unified Worker shape: status connected→healthy, disconnected→unhealthy;
// fleet→group; lastSeen ISO-8601 → lastMsgTime milliseconds since epoch.
// Numeric metric units are passed through unchanged, as reported.
func normalizeEdgeNode(n edgeNode) Worker {
	status := n.Status
	switch n.Status {
	case "connected":
		status = "healthy"
	case "disconnected":
		status = "unhealthy"
	}
	var lastMs int64
	if t, err := time.Parse(time.RFC3339, n.LastSeen); err == nil {
		lastMs = t.UnixMilli()
	}
	return Worker{
		ID:          n.ID,
		Group:       n.Fleet,
		Status:      status,
		LastMsgTime: lastMs,
		Metrics:     n.Metrics,
	}
}

// Workers returns the deployment's node list in the unified Worker shape,
// fetching /api/v1/edge/nodes and normalizing when the product is Edge, or
// /api/v1/master/workers directly otherwise.
func (c *Client) Workers(ctx context.Context) ([]Worker, error) {
	if c.IsEdge() {
		var nodes []edgeNode
		if err := c.Get(ctx, "/api/v1/edge/nodes", false, &nodes); err != nil {
			return nil, err
		}
		out := make([]Worker, len(nodes))
		for i, n := range nodes {
			out[i] = normalizeEdgeNode(n)
		}
		return out, nil
	}
	var workers []Worker
	if err := c.Get(ctx, "/api/v1/master/workers", false, &workers); err != nil {
		return nil, err
	}
	return workers, nil
}
