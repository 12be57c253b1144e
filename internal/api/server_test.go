package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maaaruch/reactionpoll-bot/internal/api/handlers"
	"github.com/maaaruch/reactionpoll-bot/internal/domain"
)

type staticPolls []domain.Poll

func (s staticPolls) Get(id string) (domain.Poll, bool) {
	for _, p := range s {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Poll{}, false
}

func (s staticPolls) All() []domain.Poll { return s }

func testPolls() staticPolls {
	return staticPolls{
		{ID: "1", MessageID: "m1", ChannelID: "c1", CreatedBy: "alice", Status: domain.StatusActive, MaxVotesPerUser: 1, AllowedOptions: domain.NewOptionSet("👍", "👎"), Kind: domain.KindStandalone},
		{ID: "2", MessageID: "m2", ChannelID: "c2", CreatedBy: "bob", Status: domain.StatusFrozen, AllowedOptions: domain.NewOptionSet("<:yes:42>"), Kind: domain.KindAttached},
	}
}

func get(t *testing.T, path string) (int, []byte) {
	t.Helper()
	app := NewFiber(testPolls(), "secret")
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestVerify(t *testing.T) {
	t.Parallel()

	code, _ := get(t, "/api/v1/polls")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = get(t, "/api/v1/polls?key=wrong")
	assert.Equal(t, http.StatusUnauthorized, code)

	app := NewFiber(testPolls(), "")
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/polls?key=x", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestListPolls(t *testing.T) {
	t.Parallel()

	code, body := get(t, "/api/v1/polls?key=secret")
	require.Equal(t, http.StatusOK, code)

	var out struct {
		Data []handlers.PollView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Data, 2)
	assert.Equal(t, []string{"👍", "👎"}, out.Data[0].AllowedOptions)
	assert.Equal(t, "frozen", out.Data[1].Status)

	code, body = get(t, "/api/v1/polls?key=secret&channel=c2")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Data, 1)
	assert.Equal(t, "attached", out.Data[0].Kind)
}

func TestGetPoll(t *testing.T) {
	t.Parallel()

	code, body := get(t, "/api/v1/polls/1?key=secret")
	require.Equal(t, http.StatusOK, code)
	var out struct {
		Data handlers.PollView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "alice", out.Data.CreatedBy)
	assert.Equal(t, 1, out.Data.MaxVotesPerUser)

	code, _ = get(t, "/api/v1/polls/9?key=secret")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSystemInfo(t *testing.T) {
	t.Parallel()

	code, body := get(t, "/api/v1/system/info?key=secret")
	require.Equal(t, http.StatusOK, code)
	var out struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.EqualValues(t, 2, out.Data["polls"])
	assert.EqualValues(t, 1, out.Data["frozen_polls"])
}
