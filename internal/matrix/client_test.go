package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Body   string
}

type fakeHomeserver struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	response string
}

func (f *fakeHomeserver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Body:   string(body),
	})
	status, response := f.status, f.response
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	if response == "" {
		response = "{}"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(response))
}

func (f *fakeHomeserver) respond(status int, response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.response = status, response
}

func (f *fakeHomeserver) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, hs *fakeHomeserver) *Client {
	t.Helper()
	srv := httptest.NewServer(hs)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		Homeserver: srv.URL + "/",
		ASToken:    "AS_TOKEN",
		ServerName: "example.org",
		RoomID:     "!roomid:example.org",
	}, srv.Client(), zerolog.Nop())
}

func TestHealthCheck(t *testing.T) {
	hs := &fakeHomeserver{response: `{"versions":["v1.11"]}`}
	c := newTestClient(t, hs)

	require.NoError(t, c.HealthCheck(context.Background()))
	req := hs.last(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/_matrix/client/versions", req.Path)

	hs.respond(http.StatusInternalServerError, "")
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestEnsureUserRegistered(t *testing.T) {
	hs := &fakeHomeserver{}
	c := newTestClient(t, hs)

	require.NoError(t, c.EnsureUserRegistered(context.Background(), "potato_deadbeef"))
	req := hs.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/_matrix/client/v3/register", req.Path)
	assert.Equal(t, []string{"user"}, req.Query["kind"])
	assert.Equal(t, []string{"AS_TOKEN"}, req.Query["access_token"])
	assert.JSONEq(t, `{"type":"m.login.application_service","username":"potato_deadbeef"}`, req.Body)
}

func TestEnsureUserRegistered_UserInUseIsNotAnError(t *testing.T) {
	hs := &fakeHomeserver{
		status:   http.StatusBadRequest,
		response: `{"errcode":"M_USER_IN_USE","error":"User ID already taken."}`,
	}
	c := newTestClient(t, hs)

	assert.NoError(t, c.EnsureUserRegistered(context.Background(), "potato_deadbeef"))
}

func TestEnsureUserRegistered_OtherErrorsSurface(t *testing.T) {
	hs := &fakeHomeserver{
		status:   http.StatusForbidden,
		response: `{"errcode":"M_EXCLUSIVE","error":"outside namespace"}`,
	}
	c := newTestClient(t, hs)

	err := c.EnsureUserRegistered(context.Background(), "someone")
	require.Error(t, err)
	assert.True(t, IsError(err, ErrCodeExclusive))

	var matrixErr *Error
	require.True(t, errors.As(err, &matrixErr))
	assert.Equal(t, http.StatusForbidden, matrixErr.StatusCode)
}

func TestSetDisplayName(t *testing.T) {
	hs := &fakeHomeserver{}
	c := newTestClient(t, hs)

	require.NoError(t, c.SetDisplayName(context.Background(), "@potato_deadbeef:example.org", "Potato Node (PN)"))
	req := hs.last(t)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/_matrix/client/v3/profile/@potato_deadbeef:example.org/displayname", req.Path)
	assert.Equal(t, []string{"@potato_deadbeef:example.org"}, req.Query["user_id"])
	assert.JSONEq(t, `{"displayname":"Potato Node (PN)"}`, req.Body)
}

func TestEnsureUserJoinedRoom(t *testing.T) {
	hs := &fakeHomeserver{response: `{"room_id":"!roomid:example.org"}`}
	c := newTestClient(t, hs)

	require.NoError(t, c.EnsureUserJoinedRoom(context.Background(), "@potato_deadbeef:example.org"))
	req := hs.last(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/_matrix/client/v3/rooms/!roomid:example.org/join", req.Path)
	assert.Equal(t, []string{"@potato_deadbeef:example.org"}, req.Query["user_id"])
	assert.Equal(t, []string{"AS_TOKEN"}, req.Query["access_token"])
}

func TestEnsureUserJoinedRoom_Failure(t *testing.T) {
	hs := &fakeHomeserver{status: http.StatusForbidden, response: `not json`}
	c := newTestClient(t, hs)

	err := c.EnsureUserJoinedRoom(context.Background(), "@potato_deadbeef:example.org")
	require.Error(t, err)

	var matrixErr *Error
	require.True(t, errors.As(err, &matrixErr))
	assert.Equal(t, http.StatusForbidden, matrixErr.StatusCode)
	assert.Equal(t, "not json", matrixErr.Message)
	assert.NotContains(t, err.Error(), "AS_TOKEN")
}

func TestSendFormattedMessageAs(t *testing.T) {
	hs := &fakeHomeserver{response: `{"event_id":"$abc"}`}
	c := newTestClient(t, hs)

	eventID, err := c.SendFormattedMessageAs(context.Background(), "@potato_deadbeef:example.org",
		"`[868][MF]` Ping", "<code>[868][MF]</code> Ping")
	require.NoError(t, err)
	assert.Equal(t, "$abc", eventID)

	req := hs.last(t)
	assert.Equal(t, http.MethodPut, req.Method)
	prefix := "/_matrix/client/v3/rooms/!roomid:example.org/send/m.room.message/"
	require.True(t, strings.HasPrefix(req.Path, prefix), req.Path)
	firstTxn := strings.TrimPrefix(req.Path, prefix)
	assert.NotEmpty(t, firstTxn)
	assert.Equal(t, []string{"@potato_deadbeef:example.org"}, req.Query["user_id"])

	var content MessageContent
	require.NoError(t, json.Unmarshal([]byte(req.Body), &content))
	assert.Equal(t, MessageContent{
		MsgType:       "m.text",
		Body:          "`[868][MF]` Ping",
		Format:        "org.matrix.custom.html",
		FormattedBody: "<code>[868][MF]</code> Ping",
	}, content)

	_, err = c.SendFormattedMessageAs(context.Background(), "@potato_deadbeef:example.org", "a", "a")
	require.NoError(t, err)
	secondTxn := strings.TrimPrefix(hs.last(t).Path, prefix)
	assert.NotEqual(t, firstTxn, secondTxn, "transaction ids must be unique")
}

func TestSendFormattedMessageAs_Failure(t *testing.T) {
	hs := &fakeHomeserver{
		status:   http.StatusForbidden,
		response: `{"errcode":"M_FORBIDDEN","error":"not in room"}`,
	}
	c := newTestClient(t, hs)

	_, err := c.SendFormattedMessageAs(context.Background(), "@potato_deadbeef:example.org", "a", "a")
	require.Error(t, err)
	assert.True(t, IsError(err, ErrCodeForbidden))
}
