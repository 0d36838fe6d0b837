// ABOUTME: Tests for HTTPTransport against an httptest server
// ABOUTME: Checks the request shape, headers, and error mapping

package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransport_PostsChatRequest(t *testing.T) {
	var got ChatRequest
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"type\":\"done\"}\n\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	manager := 42
	tr := &HTTPTransport{BaseURL: srv.URL + "/", Token: "tok"}
	body, err := tr.Open(t.Context(), ChatRequest{
		Messages:  []ChatMessage{{Role: "user", Content: "hi"}},
		ManagerID: &manager,
	})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data: {\"type\":\"done\"}\n\n", string(data))
	require.NotNil(t, got.ManagerID)
	assert.Equal(t, 42, *got.ManagerID)
	assert.Equal(t, "hi", got.Messages[0].Content)
}

func TestHTTPTransport_OmitsOptionalFields(t *testing.T) {
	data, err := json.Marshal(ChatRequest{Messages: []ChatMessage{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"messages":[{"role":"user","content":"hi"}]}`, string(data))
}

func TestHTTPTransport_StatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"json error body", http.StatusBadRequest, `{"error":"messages required"}`, "messages required"},
		{"plain body", http.StatusBadGateway, "upstream down\n", "upstream down"},
		{"empty body", http.StatusInternalServerError, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			tr := &HTTPTransport{BaseURL: srv.URL}
			_, err := tr.Open(t.Context(), ChatRequest{})
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.message, se.Message)
		})
	}
}

func TestHTTPTransport_EmptySuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := &HTTPTransport{BaseURL: srv.URL}
	_, err := tr.Open(t.Context(), ChatRequest{})
	assert.ErrorIs(t, err, ErrNoBody)
}

func TestStatusError_Message(t *testing.T) {
	assert.Equal(t, "chat request failed with status 500", (&StatusError{StatusCode: 500}).Error())
	assert.Equal(t, "chat request failed with status 429: slow down",
		(&StatusError{StatusCode: 429, Message: "slow down"}).Error())
}
