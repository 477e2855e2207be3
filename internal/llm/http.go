package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SendJSON posts body as JSON to url and returns the raw response body and
// status code. A non-2xx status is returned as an error wrapping ErrHTTPStatus
// together with the body.
func SendJSON(ctx context.Context, client *http.Client, rawURL string, body any, headers map[string]string, log zerolog.Logger) ([]byte, int, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	reqID := uuid.New().String()
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		log.Error().Str("req_id", reqID).Err(err).Msg("Failed to encode request")
		return nil, 0, fmt.Errorf("encode json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(bs))
	if err != nil {
		log.Error().Str("req_id", reqID).Err(err).Msg("Failed to build request")
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	// Query strings may carry API keys.
	endpoint := req.URL.Host + req.URL.Path
	log.Debug().
		Str("req_id", reqID).
		Str("endpoint", endpoint).
		Int("content_length", len(bs)).
		Msg("Sending LLM request")

	resp, err := client.Do(req)
	if err != nil {
		err = redactURLError(err)
		log.Error().
			Str("req_id", reqID).
			Err(err).
			Dur("elapsed", time.Since(start)).
			Msg("LLM request failed")
		return nil, 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Str("req_id", reqID).Err(err).Msg("Failed to close response body")
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	log.Debug().
		Str("req_id", reqID).
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Dur("elapsed", time.Since(start)).
		Msg("Received LLM response")

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}
	return raw, resp.StatusCode, nil
}

// redactURLError drops the query string from a transport error's URL.
func redactURLError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	if u, perr := url.Parse(urlErr.URL); perr == nil {
		u.RawQuery = ""
		u.Fragment = ""
		urlErr.URL = u.String()
	} else {
		urlErr.URL = "[redacted]"
	}
	return err
}
