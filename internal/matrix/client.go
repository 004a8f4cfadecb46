// Package matrix is a minimal Matrix client-server API client that acts on
// behalf of an application service and its puppet users.
package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/l5yth/potato-mesh/internal/metrics"
)

const maxResponseBytes = 1 << 20

// Config holds the appservice credentials and target room.
type Config struct {
	Homeserver string
	ASToken    string
	ServerName string
	RoomID     string
}

// Client talks to the homeserver with the appservice token, masquerading as
// puppet users through the user_id query parameter.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a Matrix appservice client.
func NewClient(cfg Config, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.Homeserver, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// HealthCheck verifies the homeserver answers the versions endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.doRequest(ctx, "versions", http.MethodGet, "/_matrix/client/versions", nil, nil); err != nil {
		return fmt.Errorf("matrix: homeserver versions check: %w", err)
	}
	c.logger.Info().Str("homeserver", c.baseURL).Msg("Matrix homeserver healthy")
	return nil
}

type registerRequest struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// EnsureUserRegistered registers the puppet localpart through the appservice
// registration flow. An already registered user is not an error.
func (c *Client) EnsureUserRegistered(ctx context.Context, localpart string) error {
	query := url.Values{"kind": {"user"}}
	_, err := c.doRequest(ctx, "register", http.MethodPost, "/_matrix/client/v3/register", query, registerRequest{
		Type:     "m.login.application_service",
		Username: localpart,
	})
	if IsError(err, ErrCodeUserInUse) {
		return nil
	}
	return err
}

// SetDisplayName sets the puppet's global display name.
func (c *Client) SetDisplayName(ctx context.Context, userID, displayName string) error {
	path := "/_matrix/client/v3/profile/" + url.PathEscape(userID) + "/displayname"
	_, err := c.doRequest(ctx, "displayname", http.MethodPut, path, asUser(userID), map[string]string{
		"displayname": displayName,
	})
	return err
}

// EnsureUserJoinedRoom joins the puppet to the configured room. Joining a
// room the user is already in succeeds.
func (c *Client) EnsureUserJoinedRoom(ctx context.Context, userID string) error {
	path := "/_matrix/client/v3/rooms/" + url.PathEscape(c.cfg.RoomID) + "/join"
	if _, err := c.doRequest(ctx, "join", http.MethodPost, path, asUser(userID), struct{}{}); err != nil {
		return fmt.Errorf("matrix: join %s as %s: %w", c.cfg.RoomID, userID, err)
	}
	return nil
}

// MessageContent is an m.room.message event body with an HTML rendition.
type MessageContent struct {
	MsgType       string `json:"msgtype"`
	Body          string `json:"body"`
	Format        string `json:"format"`
	FormattedBody string `json:"formatted_body"`
}

type sendResponse struct {
	EventID string `json:"event_id"`
}

// SendFormattedMessageAs sends an m.text message into the configured room as
// userID and returns the event id. Each call uses a fresh transaction id.
func (c *Client) SendFormattedMessageAs(ctx context.Context, userID, body, formattedBody string) (string, error) {
	txnID := ulid.Make().String()
	path := "/_matrix/client/v3/rooms/" + url.PathEscape(c.cfg.RoomID) +
		"/send/m.room.message/" + url.PathEscape(txnID)

	respBody, err := c.doRequest(ctx, "send", http.MethodPut, path, asUser(userID), MessageContent{
		MsgType:       "m.text",
		Body:          body,
		Format:        "org.matrix.custom.html",
		FormattedBody: formattedBody,
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Str("txn_id", txnID).Msg("failed to send message")
		return "", fmt.Errorf("matrix: send as %s: %w", userID, err)
	}

	var resp sendResponse
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &resp); err != nil {
			c.logger.Debug().Err(err).Msg("send response was not JSON")
		}
	}
	return resp.EventID, nil
}

func asUser(userID string) url.Values {
	return url.Values{"user_id": {userID}}
}

// doRequest performs an authenticated request and returns the body of a 2xx
// response. Non-2xx responses are returned as *Error.
func (c *Client) doRequest(ctx context.Context, operation, method, path string, query url.Values, requestBody any) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.UpstreamLatency.WithLabelValues("matrix", operation).Observe(time.Since(start).Seconds())
	}()

	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", c.cfg.ASToken)
	requestURL := c.baseURL + path + "?" + query.Encode()

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("matrix: encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("matrix: create request: %w", err)
	}
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The URL carries the token; report the path only.
		return nil, fmt.Errorf("matrix: %s %s: %w", method, path, unwrapURLError(err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("matrix: read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	matrixErr := &Error{StatusCode: resp.StatusCode}
	if jsonErr := json.Unmarshal(respBody, matrixErr); jsonErr != nil || matrixErr.Code == "" {
		matrixErr.Code = ""
		matrixErr.Message = strings.TrimSpace(string(respBody))
	}
	return nil, matrixErr
}

func unwrapURLError(err error) error {
	if urlErr, ok := err.(*url.Error); ok { //nolint:errorlint // strip the URL, keep the cause
		return urlErr.Err
	}
	return err
}
