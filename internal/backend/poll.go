package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// ProgressFunc is invoked once per polling lap, before the status request of
// that lap is issued. Callers typically use it to animate a 'processing...'
// message. The lap count starts at 0.
type ProgressFunc func(lap int)

// statusEnvelope extracts the status field of a task or case status response.
// Extraction tasks report 'status', cases report 'final_status'.
type statusEnvelope struct {
	Status      string `json:"status"`
	FinalStatus string `json:"final_status"`
}

func (envelope *statusEnvelope) value() string {
	if envelope.Status != "" {
		return envelope.Status
	}
	return envelope.FinalStatus
}

// pollTask repeatedly queries the given status endpoint until a terminal
// status is observed or the task timeout elapses.
// The poll spacing starts at the minimum interval and grows by factor 1.5
// after every lap, capped at the maximum interval. Server errors (5xx) during
// polling are logged and tolerated; any other failure stops polling
// immediately. On timeout a TaskTimeoutError is returned so that callers can
// tell 'still unresolved' apart from 'finished and failed'.
func (client *Client) pollTask(ctx context.Context, path string, identity Identity, progress ProgressFunc) ([]byte, error) {
	interval := client.minInterval
	deadline := client.now().Add(client.taskTimeout)
	lap := 0

	for client.now().Before(deadline) {
		if progress != nil {
			progress(lap)
		}

		body, err := client.do(ctx, http.MethodGet, path, identity, requestOptions{})
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.IsServerError() {
				log.Warn().Str("path", path).Int("status", apiErr.StatusCode).Dur("retry_in", interval).Msg("server error while polling task status, retrying")
			} else {
				return nil, err
			}
		} else {
			envelope := new(statusEnvelope)
			if err := json.Unmarshal(body, envelope); err != nil {
				return nil, &ClientError{Op: "decode task status", Err: err}
			}
			if client.isTerminal(envelope.value()) {
				log.Info().Str("path", path).Str("status", envelope.value()).Msg("task reached a terminal status")
				return body, nil
			}
		}

		if err := client.sleep(ctx, interval); err != nil {
			return nil, err
		}
		lap++
		interval = nextInterval(interval, client.maxInterval)
	}

	return nil, &TaskTimeoutError{Path: path, Timeout: client.taskTimeout}
}

// nextInterval grows the poll interval by factor 1.5, capped at max
func nextInterval(current, max time.Duration) time.Duration {
	next := current + current/2
	if next > max {
		return max
	}
	return next
}
