package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"practice-service/internal/models"
)

const (
	// DefaultTimeout bounds every backend call; a timeout is treated like
	// any other transient failure.
	DefaultTimeout = 12 * time.Second

	fetchMaxRetries = 2
	fetchBaseDelay  = 250 * time.Millisecond
	fetchMaxDelay   = 2 * time.Second
)

// Client talks to the learning backend's practice API. It owns no state
// beyond the base URL and the HTTP client; the bearer token is supplied
// per call because it belongs to the learner, not the service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// ChallengeProgressResult is the decoded challenge-progress response. The
// backend verifies the selected option and upserts progress in one call.
type ChallengeProgressResult struct {
	Correct           bool
	ChallengeProgress json.RawMessage
	UserProgress      *models.UserProgress
}

type challengeProgressResponse struct {
	Correct           *bool                `json:"correct"`
	ChallengeProgress json.RawMessage      `json:"challenge_progress"`
	UserProgress      *models.UserProgress `json:"user_progress"`
}

// SubmitChallengeProgress posts the learner's selected option. A 400 with a
// domain code maps to ErrHearts or ErrPractice.
func (c *Client) SubmitChallengeProgress(ctx context.Context, token, challengeID, optionID string) (*ChallengeProgressResult, error) {
	body := map[string]string{
		"challenge":       challengeID,
		"selected_option": optionID,
	}
	var resp challengeProgressResponse
	if err := c.do(ctx, token, http.MethodPost, "/practice/challenge-progress/", body, &resp); err != nil {
		return nil, err
	}
	if resp.Correct == nil {
		return nil, &DecodeError{Endpoint: "/practice/challenge-progress/", Reason: "missing correct field"}
	}
	return &ChallengeProgressResult{
		Correct:           *resp.Correct,
		ChallengeProgress: resp.ChallengeProgress,
		UserProgress:      resp.UserProgress,
	}, nil
}

// HeartsResult is the decoded reduce-hearts / refill-hearts response.
type HeartsResult struct {
	Success      bool
	UserProgress *models.UserProgress
}

type heartsResponse struct {
	Success *bool                `json:"success"`
	Data    *models.UserProgress `json:"data"`
}

// ReduceHearts spends one heart for an incorrect answer.
func (c *Client) ReduceHearts(ctx context.Context, token, challengeID string) (*HeartsResult, error) {
	body := map[string]string{"challenge_id": challengeID}
	return c.heartsCall(ctx, token, "/practice/reduce-hearts/", body)
}

// RefillHearts restores hearts to the maximum (shop / subscription flows).
func (c *Client) RefillHearts(ctx context.Context, token string) (*HeartsResult, error) {
	return c.heartsCall(ctx, token, "/practice/refill-hearts/", map[string]string{})
}

func (c *Client) heartsCall(ctx context.Context, token, path string, body any) (*HeartsResult, error) {
	var resp heartsResponse
	if err := c.do(ctx, token, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if resp.Success == nil {
		return nil, &DecodeError{Endpoint: path, Reason: "missing success field"}
	}
	return &HeartsResult{Success: *resp.Success, UserProgress: resp.Data}, nil
}

// UpdateActiveCourse switches the learner's active course and returns the
// updated snapshot.
func (c *Client) UpdateActiveCourse(ctx context.Context, token string, course models.Course) (*models.UserProgress, error) {
	body := map[string]models.Course{"active_course": course}
	var snap models.UserProgress
	if err := c.do(ctx, token, http.MethodPut, "/practice/user-progress/", body, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// FetchUserProgress loads the snapshot at session start. Idempotent, so
// transient failures are retried with backoff.
func (c *Client) FetchUserProgress(ctx context.Context, token string) (*models.UserProgress, error) {
	var snap models.UserProgress
	err := c.doWithRetry(ctx, func() error {
		snap = models.UserProgress{}
		return c.do(ctx, token, http.MethodGet, "/practice/user-progress/", nil, &snap)
	})
	if err != nil {
		return nil, err
	}
	if snap.UserID == "" {
		return nil, &DecodeError{Endpoint: "/practice/user-progress/", Reason: "missing user_id field"}
	}
	return &snap, nil
}

// FetchLesson loads a lesson's ordered challenge list.
func (c *Client) FetchLesson(ctx context.Context, token, lessonID string) (*models.Lesson, error) {
	var lesson models.Lesson
	err := c.doWithRetry(ctx, func() error {
		lesson = models.Lesson{}
		return c.do(ctx, token, http.MethodGet, "/practice/lessons/"+lessonID+"/", nil, &lesson)
	})
	if err != nil {
		return nil, err
	}
	if lesson.ID == "" {
		return nil, &DecodeError{Endpoint: "/practice/lessons/", Reason: "missing id field"}
	}
	return &lesson, nil
}

// do executes one request and decodes the response. 400 bodies carrying a
// recognized domain code map to the matching sentinel error.
func (c *Client) do(ctx context.Context, token, method, path string, body, out any) error {
	if token == "" {
		return ErrMissingToken
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapFailure(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &DecodeError{Endpoint: path, Reason: err.Error()}
	}
	return nil
}

func (c *Client) mapFailure(status int, raw []byte) error {
	if status == http.StatusBadRequest {
		var domain struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &domain); err == nil {
			switch domain.Error {
			case backendCodeHearts:
				return ErrHearts
			case backendCodePractice:
				return ErrPractice
			}
		}
	}
	return &BackendError{StatusCode: status, Body: string(raw)}
}

// doWithRetry retries transient failures of idempotent calls with
// exponential backoff and jitter. Mutations never go through here.
func (c *Client) doWithRetry(ctx context.Context, call func() error) error {
	var lastErr error
	for attempt := 0; attempt <= fetchMaxRetries; attempt++ {
		lastErr = call()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) || attempt == fetchMaxRetries {
			return lastErr
		}

		delay := fetchBaseDelay * time.Duration(1<<attempt)
		if delay > fetchMaxDelay {
			delay = fetchMaxDelay
		}
		delay += time.Duration(rand.Int63n(int64(delay/2) + 1))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
