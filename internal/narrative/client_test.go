package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_StreamsDeltas(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, part := range []string{
			deltaLine("大盘"),
			`data: {"choices":[{"delta":{"con`, // split record
			`tent":"震荡"}}]}` + "\n",
			"data: garbage\n",
			deltaLine("偏弱"),
			"data: [DONE]\n",
		} {
			_, _ = w.Write([]byte(part))
			flusher.Flush()
		}
	}))
	defer srv.Close()

	c := NewClient("sk-test", WithBaseURL(srv.URL+"/"))
	seq, err := c.Stream(context.Background(), Request{System: "sys", User: "usr"})
	require.NoError(t, err)

	var out []string
	for d, err := range seq {
		require.NoError(t, err)
		out = append(out, d)
	}
	assert.Equal(t, []string{"大盘", "震荡", "偏弱"}, out)

	assert.Equal(t, DefaultModel, got.Model)
	assert.True(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "sys"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "usr"}, got.Messages[1])
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer srv.Close()

	c := NewClient("bad", WithBaseURL(srv.URL), WithModel("deepseek-reasoner"))
	_, err := c.Stream(context.Background(), Request{User: "x"})
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Contains(t, se.Error(), "401")
	assert.Contains(t, se.Error(), "invalid key")
}

func TestClient_ModelOverride(t *testing.T) {
	c := NewClient("k", WithModel("deepseek-reasoner"), WithModel(""))
	assert.Equal(t, "deepseek-reasoner", c.Model())
}
