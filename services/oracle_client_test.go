package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPOracleClientSubmit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/requests", r.URL.Path)
		require.Equal(t, "Bearer oracle-secret", r.Header.Get("Authorization"))

		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		var body VerificationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, uint(4), body.BountyID)
		require.Equal(t, "ada_tw", body.TwitterID)

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"request_id":"abc-123"}`))
	}))
	defer srv.Close()

	client := NewHTTPOracleClient(srv.URL, "oracle-secret")
	client.Backoff = time.Millisecond

	id, err := client.Submit(testContext(t), VerificationRequest{BountyID: 4, RequestIndex: 1, Applicant: "u1", TwitterID: "ada_tw", ExternalRef: "x"})
	require.NoError(t, err)
	require.Equal(t, "abc-123", id)
	require.Equal(t, int32(2), calls.Load())
}

func TestHTTPOracleClientSubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unknown external ref"}`))
	}))
	defer srv.Close()

	client := NewHTTPOracleClient(srv.URL, "")
	client.Backoff = time.Millisecond

	_, err := client.Submit(testContext(t), VerificationRequest{BountyID: 1})
	require.Error(t, err)
}

func TestHTTPOracleClientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/requests/abc-123", r.URL.Path)
		_, _ = w.Write([]byte(`{"fulfilled":true,"result":true}`))
	}))
	defer srv.Close()

	client := NewHTTPOracleClient(srv.URL, "")
	status, err := client.Status(testContext(t), "abc-123")
	require.NoError(t, err)
	require.Equal(t, "abc-123", status.RequestID)
	require.True(t, status.Fulfilled)
	require.True(t, status.Result)
}

func TestHTTPOracleClientSubmitBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPOracleClient(srv.URL, "")
	client.Backoff = time.Millisecond
	client.SubmitBudget = 50 * time.Millisecond

	start := time.Now()
	_, err := client.Submit(testContext(t), VerificationRequest{BountyID: 1})
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
}
