package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NahoooMac/wedhabesha-sub006/internal/chat"
	"github.com/NahoooMac/wedhabesha-sub006/internal/creds"
	"github.com/NahoooMac/wedhabesha-sub006/internal/retry"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL:     srv.URL,
		Credentials: creds.Static{Value: "tok-123"},
		Timeout:     2 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("[]"))
	}))
	// Rebuild with a trailing slash on the same server.
	client2, err := NewClient(Config{BaseURL: client.baseURL + "/", Credentials: creds.Static{}})
	require.NoError(t, err)

	_, err = client2.ListThreads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/threads", gotPath)
}

func TestListThreads(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/threads", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode([]chat.Thread{
			{ID: "t1", CounterpartName: "Bloom Florists", UnreadCount: 2},
			{ID: "t2", CounterpartName: "Abel Catering"},
		})
	}))

	threads, err := client.ListThreads(context.Background())
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "t1", threads[0].ID)
	assert.Equal(t, 2, threads[0].UnreadCount)
}

func TestListMessagesEscapesThreadID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/threads/t%2F1/messages", r.URL.EscapedPath())
		w.Write([]byte("[]"))
	}))

	_, err := client.ListMessages(context.Background(), "t/1")
	require.NoError(t, err)
}

func TestSendMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/threads/t1/messages", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req SendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Body)
		assert.Equal(t, chat.KindText, req.Kind)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(chat.Message{ID: "m-42", ThreadID: "t1", Body: req.Body})
	}))

	msg, err := client.SendMessage(context.Background(), "t1", SendMessageRequest{Body: "hello", Kind: chat.KindText})
	require.NoError(t, err)
	assert.Equal(t, "m-42", msg.ID)
}

func TestMarkThreadRead(t *testing.T) {
	var called bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/threads/t1/read", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.MarkThreadRead(context.Background(), "t1"))
	assert.True(t, called)
}

func TestMarkMessageRead(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/messages/m1/read", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.MarkMessageRead(context.Background(), "m1"))
}

func TestDeleteMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/messages/m1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.DeleteMessage(context.Background(), "m1"))
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   retry.Class
	}{
		{"unauthorized is session expired", 401, `{"error":"token expired"}`, retry.ClassSessionExpired},
		{"forbidden is session expired", 403, "", retry.ClassSessionExpired},
		{"unprocessable is validation", 422, `{"error":"body required"}`, retry.ClassValidation},
		{"server error is transient", 500, "oops", retry.ClassTransient},
		{"bad gateway is transient", 502, "", retry.ClassTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := client.ListThreads(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.want, retry.ClassOf(err))
		})
	}
}

func TestErrorBodyDetailSurfaces(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"body required"}`))
	}))

	_, err := client.SendMessage(context.Background(), "t1", SendMessageRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body required")
}

func TestNoTokenOmitsAuthHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte("[]"))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL, Credentials: creds.Env{Key: "VENDORCHAT_TEST_TOKEN_UNSET"}})
	require.NoError(t, err)

	_, err = client.ListThreads(context.Background())
	require.NoError(t, err)
}

func TestNetworkFailureIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.ListThreads(context.Background())
	require.Error(t, err)
	assert.Equal(t, retry.ClassTransient, retry.ClassOf(err))
	assert.True(t, retry.Retryable(err))
}
