// Package transliterate converts Chinese script variants to one canonical
// script through a remote conversion service.
package transliterate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/wander/internal/logger"
	"github.com/MrSnakeDoc/wander/internal/retry"
	"github.com/MrSnakeDoc/wander/internal/utils"
)

// ErrEmptyConversion is returned when the service answers success with no text.
var ErrEmptyConversion = errors.New("empty conversion result")

// Error is a failed conversion.
type Error struct {
	Status int // HTTP status, 0 for transport failures
	Code   int // service code, 0 when the service did not answer
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Code != 0:
		return fmt.Sprintf("transliterate: service code %d", e.Code)
	case e.Status != 0:
		return fmt.Sprintf("transliterate: status %d", e.Status)
	default:
		return fmt.Sprintf("transliterate: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode lets the retry predicate classify the failure.
// A service-level code is final.
func (e *Error) StatusCode() int {
	if e.Code != 0 {
		return http.StatusUnprocessableEntity
	}
	return e.Status
}

type convertRequest struct {
	Text      string `json:"text"`
	Converter string `json:"converter"`
}

type convertResponse struct {
	Code int `json:"code"`
	Data struct {
		Text string `json:"text"`
	} `json:"data"`
}

// ClientOptions configures a Client.
type ClientOptions struct {
	URL        string // POST endpoint
	Converter  string // target script, ex: "Traditional"
	Timeout    time.Duration
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Policy     retry.Policy
	Logger     logger.Logger
}

// Client calls the conversion service.
type Client struct {
	url       string
	converter string
	http      *http.Client
	limiter   *rate.Limiter
	policy    retry.Policy
	log       logger.Logger
}

func NewClient(opts ClientOptions) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		url:       opts.URL,
		converter: opts.Converter,
		http:      hc,
		limiter:   opts.Limiter,
		policy:    opts.Policy,
		log:       log,
	}
}

// Converter names the target script.
func (c *Client) Converter() string { return c.converter }

// Convert returns text in the target script.
func (c *Client) Convert(ctx context.Context, text string) (string, error) {
	return retry.Do(ctx, c.policy, func(ctx context.Context) (string, error) {
		return c.convertOnce(ctx, text)
	})
}

func (c *Client) convertOnce(ctx context.Context, text string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &Error{Err: err}
		}
	}

	body, err := json.Marshal(convertRequest{Text: text, Converter: c.converter})
	if err != nil {
		return "", &Error{Status: http.StatusBadRequest, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Status: http.StatusBadRequest, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Err: err}
	}
	defer utils.DrainClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Err: err}
	}
	var out convertResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", &Error{Status: http.StatusOK, Err: err}
	}
	if out.Code != 0 {
		return "", &Error{Status: http.StatusOK, Code: out.Code}
	}
	if strings.TrimSpace(out.Data.Text) == "" && strings.TrimSpace(text) != "" {
		return "", &Error{Status: http.StatusOK, Err: ErrEmptyConversion}
	}
	return out.Data.Text, nil
}
