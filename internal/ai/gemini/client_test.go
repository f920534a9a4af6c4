package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("test-key", "gemini-1.5-pro")
	c.baseURL = srv.URL
	return c
}

func TestGenerateContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-1.5-pro:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)

		_ = json.NewEncoder(w).Encode(Response{Candidates: []Candidate{{
			Content: Content{Role: "model", Parts: []Part{{Text: "bon"}, {Text: "jour"}}},
		}}})
	})

	resp, err := client.GenerateContent(context.Background(), &Request{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: "hello"}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "bonjour", resp.Text())
}

func TestGenerateContentAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "status": "RESOURCE_EXHAUSTED", "message": "quota exceeded"}}`))
	})

	_, err := client.GenerateContent(context.Background(), &Request{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.Code)
	assert.Contains(t, apiErr.Message, "quota exceeded")
	assert.True(t, apiErr.Transient())
}

func TestGenerateContentNonJSONError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream broke"))
	})

	_, err := client.GenerateContent(context.Background(), &Request{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Code)
	assert.True(t, apiErr.Transient())
}

func TestTransientClassification(t *testing.T) {
	assert.True(t, (&APIError{Code: 429}).Transient())
	assert.True(t, (&APIError{Code: 503}).Transient())
	assert.False(t, (&APIError{Code: 400}).Transient())
	assert.False(t, (&APIError{Code: 404}).Transient())
}

func TestResponseTextEmpty(t *testing.T) {
	var resp Response
	assert.Empty(t, resp.Text())
}
