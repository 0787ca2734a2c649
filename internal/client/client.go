// Package client talks to a running gatehouse server on behalf of an
// operator.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gatehouse/gatehouse/internal/gatehouse/types"
)

const triggerPath = "/api/trigger_door"

var ErrUnreachable = errors.New("could not reach server")

type Outcome int

const (
	OutcomeSent Outcome = iota
	OutcomeUnauthorized
	OutcomeServerError
)

type Result struct {
	Outcome    Outcome
	StatusCode int
}

func (r Result) Message() string {
	switch r.Outcome {
	case OutcomeSent:
		return "command sent: the door should open shortly"
	case OutcomeUnauthorized:
		return "authorization error: the door secret was rejected"
	default:
		return fmt.Sprintf("server error: status %d", r.StatusCode)
	}
}

type Client struct {
	base *url.URL
	http *http.Client
}

func New(baseURL string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("server url %q: want http(s)://host[:port]", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: u, http: hc}, nil
}

// TriggerDoor asks the server to arm a door-open command. Transport
// failures wrap ErrUnreachable; any HTTP response is reported through
// Result.
func (c *Client) TriggerDoor(ctx context.Context, secret string) (Result, error) {
	body, err := json.Marshal(types.TriggerRequest{Secret: secret})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath(triggerPath).String(), bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w %s: %w", ErrUnreachable, c.base.Host, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	res := Result{StatusCode: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusOK:
		res.Outcome = OutcomeSent
	case http.StatusForbidden:
		res.Outcome = OutcomeUnauthorized
	default:
		res.Outcome = OutcomeServerError
	}
	return res, nil
}
