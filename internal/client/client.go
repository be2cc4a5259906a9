// Package client is a small HTTP client for the enrollment API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"example.com/extracurricular/internal/api"
	"example.com/extracurricular/internal/domain"
)

// APIError is returned when the server answers with an error envelope.
type APIError struct {
	Status int
	Type   string
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Type, e.Detail)
}

// Unwrap maps well-known server errors back to domain sentinels.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound && e.Detail == domain.ErrActivityNotFound.Error():
		return domain.ErrActivityNotFound
	case e.Detail == domain.ErrAlreadySignedUp.Error():
		return domain.ErrAlreadySignedUp
	case e.Detail == domain.ErrActivityFull.Error():
		return domain.ErrActivityFull
	case e.Detail == domain.ErrInvalidParticipant.Error():
		return domain.ErrInvalidParticipant
	}
	return nil
}

// Client calls the enrollment API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New returns a Client for baseURL. A nil httpClient has no timeout of its own;
// deadlines come from the context passed to each call.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must include scheme and host", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: u, http: httpClient}, nil
}

// List returns every activity keyed by name.
func (c *Client) List(ctx context.Context) (api.ActivitiesResponse, error) {
	var out api.ActivitiesResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint("activities"), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SignUp enrolls email in activity and returns the server's confirmation.
func (c *Client) SignUp(ctx context.Context, activity, email string) (string, error) {
	return c.mutate(ctx, http.MethodPost, activity, "signup", email)
}

// Unregister removes email from activity and returns the server's confirmation.
func (c *Client) Unregister(ctx context.Context, activity, email string) (string, error) {
	return c.mutate(ctx, http.MethodDelete, activity, "unregister", email)
}

func (c *Client) mutate(ctx context.Context, method, activity, action, email string) (string, error) {
	u := c.endpoint("activities", activity, action)
	u.RawQuery = url.Values{"email": []string{email}}.Encode()

	var out api.MessageResponse
	if err := c.do(ctx, method, u, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) endpoint(segments ...string) *url.URL {
	u := *c.baseURL
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.RawPath = c.baseURL.EscapedPath() + "/" + strings.Join(escaped, "/")
	u.Path = c.baseURL.Path + "/" + strings.Join(segments, "/")
	return &u
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if method != http.MethodGet {
		// Lets the server replay the answer if this exact request is retried.
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope api.ErrorResponse
		if json.Unmarshal(body, &envelope) == nil {
			apiErr.Type, apiErr.Detail = envelope.Type, envelope.Detail
		} else {
			apiErr.Detail = strings.TrimSpace(string(body))
		}
		return apiErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsNotFound reports whether err means the activity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrActivityNotFound)
}
