package accounting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPrecheck_FreeTrialUser_SkipsCall(t *testing.T) {
	var called atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
	}))
	defer server.Close()

	client := New(server.URL, time.Second, zap.NewNop())
	err := client.Precheck(context.Background(), FreeTrialUserID, 100)
	require.NoError(t, err)
	assert.False(t, called.Load())
}

func TestPrecheck_SufficientBalance_Succeeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(precheckResponse{RemainingTokens: 500})
	}))
	defer server.Close()

	client := New(server.URL, time.Second, zap.NewNop())
	err := client.Precheck(context.Background(), "paid-user-1", 100)
	assert.NoError(t, err)
}

func TestPrecheck_InsufficientBalance_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(precheckResponse{RemainingTokens: 10})
	}))
	defer server.Close()

	client := New(server.URL, time.Second, zap.NewNop())
	err := client.Precheck(context.Background(), "paid-user-1", 100)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestPrecheck_TransportFailure_IsFatalForPaidUser(t *testing.T) {
	client := New("http://127.0.0.1:1", 50*time.Millisecond, zap.NewNop())
	err := client.Precheck(context.Background(), "paid-user-1", 100)
	assert.Error(t, err)
}

func TestPrecheck_NoBaseURL_Disabled(t *testing.T) {
	client := New("", time.Second, zap.NewNop())
	err := client.Precheck(context.Background(), "paid-user-1", 999999)
	assert.NoError(t, err)
}

func TestDeduct_FailureDoesNotPanic(t *testing.T) {
	client := New("http://127.0.0.1:1", 50*time.Millisecond, zap.NewNop())
	client.Deduct("paid-user-1", 42)
	time.Sleep(150 * time.Millisecond)
}

func TestDeduct_SendsRequestAsynchronously(t *testing.T) {
	done := make(chan struct{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req deductRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.UserID == "paid-user-1" && req.Tokens == 42 {
			done <- struct{}{}
		}
	}))
	defer server.Close()

	client := New(server.URL, time.Second, zap.NewNop())
	client.Deduct("paid-user-1", 42)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deduction request was not received")
	}
}
