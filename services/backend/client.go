// Package backend is the HTTP client for the external API that owns all
// business logic. The portal only ever reads success/failure off it; no
// call here mutates the session store.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/darasa-dev/portal/core"
)

// APIError is a definite answer from the backend (4xx/5xx with a message
// payload), as opposed to not reaching it at all.
type APIError struct {
	Status  int
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// Denied reports whether the backend refused the request itself rather
// than failing on it; the login flow uses this to tell a bad credential
// from an outage.
func (e *APIError) Denied() bool {
	return e.Status >= 400 && e.Status < 500
}

// IsUnavailable reports whether err means the backend could not be
// reached; such failures surface as transient notifications and never
// change session state.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	_, isAPI := errors.Cause(err).(*APIError)
	return !isAPI
}

type Client struct {
	baseURL string
	http    *http.Client
	token   func() string // bearer supplier; empty when unauthenticated
}

func NewClient(conf *core.Config, token func() string) *Client {
	return &Client{
		baseURL: strings.TrimRight(conf.Backend.BaseURL, "/"),
		http:    &http.Client{Timeout: conf.Backend.Timeout},
		token:   token,
	}
}

// do performs one JSON round-trip. A reachable backend answering with a
// non-2xx status yields an *APIError; anything else is a transport error.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "encoding %s %s body", method, path)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "building %s %s", method, path)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "calling %s %s", method, path)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: res.StatusCode}
		data, _ := ioutil.ReadAll(res.Body)
		_ = json.Unmarshal(data, apiErr) // keep the bare status on a non-JSON body
		return apiErr
	}

	if out != nil {
		if err = json.NewDecoder(res.Body).Decode(out); err != nil {
			return errors.Wrapf(err, "decoding %s %s response", method, path)
		}
	}
	return nil
}
