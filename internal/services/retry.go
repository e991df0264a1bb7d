package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/desertthunder/freshweekly/internal/shared"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
	maxRetryAfter     = 30 * time.Second
)

// doWithRetry sends req, retrying transport errors, 429 and 5xx responses up to maxRetries times.
//
// The final response is returned as is so callers can inspect its status.
// Every attempt waits on the rate limiter first.
func (s *SpotifyService) doWithRetry(client *http.Client, req *http.Request) (*http.Response, error) {
	attempts := max(s.maxRetries, 0) + 1
	backoff := s.baseBackoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	ctx := req.Context()
	for attempt := range attempts {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to reset request body: %w", err)
			}
			req.Body = body
		}

		resp, err := client.Do(req)
		retryAfter, retry := shouldRetry(resp, err)
		if !retry || attempt == attempts-1 {
			return resp, err
		}

		if err != nil {
			s.logger.Warn("retrying spotify request", "attempt", attempt+1, "max", attempts, "path", req.URL.Path, "error", err)
		} else {
			s.logger.Warn("retrying spotify request", "attempt", attempt+1, "max", attempts, "path", req.URL.Path, "status", resp.StatusCode)
			resp.Body.Close()
		}

		delay := backoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			delay = retryAfter
		}
		if err := sleepWithContext(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: request failed after %d attempts", shared.ErrAPIRequest, attempts)
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, false
		}
		return 0, true
	}
	if resp == nil {
		return 0, false
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}
	return 0, false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return min(time.Duration(seconds)*time.Second, maxRetryAfter)
	}

	if when, err := http.ParseTime(header); err == nil {
		if until := time.Until(when); until > 0 {
			return min(until, maxRetryAfter)
		}
	}
	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
