package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// maxErrorBody limits how much of an error response body is carried in errors
const maxErrorBody = 2048

// requestOptions carries the call-specific parts of one dispatched request
type requestOptions struct {
	query    url.Values
	jsonBody interface{}
	form     *multipartForm
}

// multipartForm is a multipart/form-data body built into memory up front so
// that the automatic re-authentication retry can replay it
type multipartForm struct {
	contentType string
	body        []byte
}

// buildMultipart builds a multipart form body with a single file field and
// additional plain fields
func buildMultipart(fileField, filename string, content []byte, fields map[string]string) (*multipartForm, error) {
	buf := new(bytes.Buffer)
	writer := multipart.NewWriter(buf)

	part, err := writer.CreateFormFile(fileField, filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	return &multipartForm{
		contentType: writer.FormDataContentType(),
		body:        buf.Bytes(),
	}, nil
}

// do performs one backend request with automatic credential attachment and
// exactly one re-authentication retry.
// A 401 on a request that carried an Authorization header is treated as a
// stale-token failure: the cached token is dropped, a fresh credential is
// resolved and the request is replayed once. A second 401 is surfaced as an
// AuthError. The single-retry rule prevents re-login loops against a
// permanently invalid credential.
func (client *Client) do(ctx context.Context, method, path string, identity Identity, opts requestOptions) ([]byte, error) {
	body, contentType, err := encodeBody(opts)
	if err != nil {
		return nil, &ClientError{Op: "encode request body", Err: err}
	}

	requestID := uuid.NewString()
	logger := log.With().Str("request_id", requestID).Str("method", method).Str("path", path).Logger()
	logger.Debug().Msg("dispatching backend request")

	headers, err := client.auth.Headers(ctx, identity)
	if err != nil {
		return nil, err
	}

	status, responseBody, carriedAuth, err := client.attempt(ctx, method, path, headers, contentType, body, opts.query)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && carriedAuth {
		// Stale-token race: the cached token was valid when read but has been
		// invalidated by the server since.
		logger.Warn().Msg("backend returned 401 for an authenticated request, re-authenticating once")
		client.auth.Invalidate(identity)

		headers, err = client.auth.Headers(ctx, identity)
		if err != nil {
			return nil, err
		}
		status, responseBody, _, err = client.attempt(ctx, method, path, headers, contentType, body, opts.query)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, &AuthError{StatusCode: status, Message: "request rejected after re-authentication"}
		}
	}

	if status >= 200 && status < 300 {
		return responseBody, nil
	}

	err = classifyResponse(status, responseBody)
	logger.Error().Int("status", status).Err(err).Msg("backend request failed")
	return nil, err
}

// attempt issues the request exactly once and reads the full response body.
// carriedAuth reports whether the request was sent with an Authorization
// header, which the caller needs to tell a stale-token failure apart from a
// plain unauthenticated rejection.
func (client *Client) attempt(ctx context.Context, method, path string, headers http.Header, contentType string, body []byte, query url.Values) (int, []byte, bool, error) {
	target := client.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, false, &ClientError{Op: "build request", Err: err}
	}
	for name, values := range headers {
		for _, value := range values {
			request.Header.Add(name, value)
		}
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	request.Header.Set("Accept", "application/json")
	carriedAuth := request.Header.Get("Authorization") != ""

	response, err := client.http.Do(request)
	if err != nil {
		return 0, nil, carriedAuth, &NetworkError{Op: method, URL: target, Err: err}
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, nil, carriedAuth, &NetworkError{Op: method, URL: target, Err: err}
	}
	return response.StatusCode, responseBody, carriedAuth, nil
}

func encodeBody(opts requestOptions) ([]byte, string, error) {
	if opts.form != nil {
		return opts.form.body, opts.form.contentType, nil
	}
	if opts.jsonBody != nil {
		encoded, err := json.Marshal(opts.jsonBody)
		if err != nil {
			return nil, "", err
		}
		return encoded, "application/json", nil
	}
	return nil, "", nil
}

// classifyResponse maps a non-2xx response to the error taxonomy
func classifyResponse(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized:
		// An anonymous request was rejected; there is no stale token to
		// refresh, so this is a straightforward authentication failure.
		return &AuthError{StatusCode: status, Message: truncate(body)}
	case status == http.StatusUnprocessableEntity:
		return parseValidationError(body)
	default:
		return &APIError{StatusCode: status, Body: truncate(body)}
	}
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(bytes.TrimSpace(body))
}
