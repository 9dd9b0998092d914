package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitChallengeProgressDecodesResponse(t *testing.T) {
	var gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"correct": true, "user_progress": {"user_id": "u1", "hearts": 5, "points": 30}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	result, err := client.SubmitChallengeProgress(context.Background(), "tok", "ch1", "opt1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.Correct {
		t.Error("Expected correct verdict")
	}
	if result.UserProgress == nil || result.UserProgress.Points != 30 {
		t.Errorf("Unexpected user progress: %+v", result.UserProgress)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Expected bearer header, got %q", gotAuth)
	}
	if gotBody != `{"challenge":"ch1","selected_option":"opt1"}` {
		t.Errorf("Unexpected request body: %s", gotBody)
	}
}

func TestDomainErrorMapping(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{"hearts code", http.StatusBadRequest, `{"error": "hearts"}`, ErrHearts},
		{"practice code", http.StatusBadRequest, `{"error": "practice"}`, ErrPractice},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, time.Second)
			_, err := client.SubmitChallengeProgress(context.Background(), "tok", "ch1", "opt1")
			if !errors.Is(err, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, err)
			}
			if IsRetryable(err) {
				t.Error("Domain errors must not be retryable")
			}
		})
	}
}

func TestUnrecognizedFailureBecomesBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.ReduceHearts(context.Background(), "tok", "ch1")

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("Expected BackendError, got %v", err)
	}
	if be.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", be.StatusCode)
	}
	if !IsRetryable(err) {
		t.Error("5xx should be retryable")
	}
}

func TestMalformedResponseFailsLoudly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"challenge_progress": {}}`)) // no correct field
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.SubmitChallengeProgress(context.Background(), "tok", "ch1", "opt1")

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("Decode errors must not be retryable")
	}
}

func TestMissingTokenFailsBeforeAnyRequest(t *testing.T) {
	var called int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&called, 1)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.SubmitChallengeProgress(context.Background(), "", "ch1", "opt1")
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("Expected ErrMissingToken, got %v", err)
	}
	if atomic.LoadInt32(&called) != 0 {
		t.Error("Request must not be attempted without a token")
	}
}

func TestFetchUserProgressRetriesTransientFailures(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"user_id": "u1", "hearts": 4, "points": 120}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	snap, err := client.FetchUserProgress(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if snap.Hearts != 4 || snap.Points != 120 {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
}

func TestTimeoutSurfacesAsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, 20*time.Millisecond)
	_, err := client.ReduceHearts(context.Background(), "tok", "ch1")
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !IsRetryable(err) {
		t.Error("Timeouts should be retryable")
	}
}
