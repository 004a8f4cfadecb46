// Package potatomesh provides a client for the PotatoMesh telemetry API.
package potatomesh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/l5yth/potato-mesh/internal/metrics"
	"github.com/l5yth/potato-mesh/internal/models"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 16 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("potatomesh: %s %s returned %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client is a PotatoMesh API client. Node metadata is cached for the
// lifetime of the client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	mu    sync.RWMutex
	nodes map[string]models.Node
}

// NewClient creates a new PotatoMesh client. baseURL may be a bare origin
// ("https://potatomesh.net") or already end in "/api".
func NewClient(baseURL string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		nodes:      make(map[string]models.Node),
	}
}

// APIBase returns the API root with exactly one "/api" suffix.
func (c *Client) APIBase() string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	if strings.HasSuffix(trimmed, "/api") {
		return trimmed
	}
	return trimmed + "/api"
}

// MessagesURL returns the messages endpoint.
func (c *Client) MessagesURL() string {
	return c.APIBase() + "/messages"
}

// NodeURL returns the node endpoint for a bare hex id.
func (c *Client) NodeURL(hexID string) string {
	return c.APIBase() + "/nodes/" + url.PathEscape(hexID)
}

// HealthCheck is a basic liveness check against the version endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint := strings.TrimRight(c.baseURL, "/") + "/version"
	if _, err := c.get(ctx, "health", endpoint); err != nil {
		return err
	}
	c.logger.Info().Str("base_url", c.baseURL).Msg("PotatoMesh API healthy")
	return nil
}

// FetchMessages retrieves messages according to plan.
func (c *Client) FetchMessages(ctx context.Context, plan models.FetchPlan) ([]models.Message, error) {
	query := url.Values{}
	if plan.Limit != nil {
		query.Set("limit", strconv.FormatUint(uint64(*plan.Limit), 10))
	}
	if plan.Since != nil {
		query.Set("since", strconv.FormatUint(*plan.Since, 10))
	}
	endpoint := c.MessagesURL()
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	body, err := c.get(ctx, "messages", endpoint)
	if err != nil {
		return nil, err
	}

	var msgs []models.Message
	if err := json.Unmarshal(body, &msgs); err != nil {
		return nil, fmt.Errorf("potatomesh: decode messages: %w", err)
	}

	// Without a node id there is no puppet to post as.
	kept := msgs[:0]
	for _, msg := range msgs {
		if strings.TrimSpace(msg.NodeID) == "" {
			metrics.MessagesSkipped.WithLabelValues("malformed").Inc()
			c.logger.Warn().Uint64("message_id", msg.ID).Msg("Dropping message without node_id")
			continue
		}
		kept = append(kept, msg)
	}
	return kept, nil
}

// GetNode returns metadata for a node id such as "!67fc83cb". Results are
// cached by the id without its leading sigil. Concurrent misses for the same
// id may both hit the API; the last write wins.
func (c *Client) GetNode(ctx context.Context, nodeID string) (*models.Node, error) {
	hexID := strings.TrimLeft(nodeID, "!")

	c.mu.RLock()
	cached, ok := c.nodes[hexID]
	c.mu.RUnlock()
	if ok {
		return &cached, nil
	}

	body, err := c.get(ctx, "node", c.NodeURL(hexID))
	if err != nil {
		return nil, err
	}

	var node models.Node
	if err := json.Unmarshal(body, &node); err != nil {
		return nil, fmt.Errorf("potatomesh: decode node %s: %w", hexID, err)
	}
	if node.LongName == "" {
		return nil, fmt.Errorf("potatomesh: node %s has no long_name", hexID)
	}

	c.mu.Lock()
	c.nodes[hexID] = node
	c.mu.Unlock()

	return &node, nil
}

// CachedNodes returns the number of cached node entries.
func (c *Client) CachedNodes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}

// get performs a GET request and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, operation, endpoint string) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.UpstreamLatency.WithLabelValues("potatomesh", operation).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("potatomesh: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("potatomesh: GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("potatomesh: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method:     http.MethodGet,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       snippet(body),
		}
	}
	return body, nil
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
