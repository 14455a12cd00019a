// Package gateway is the single point of contact with the remote attractions API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/wander/internal/domain"
	"github.com/MrSnakeDoc/wander/internal/logger"
	"github.com/MrSnakeDoc/wander/internal/retry"
	"github.com/MrSnakeDoc/wander/internal/utils"
)

// Operation names, used in errors, logs and progress events.
const (
	OpFetchAttractions = "fetch_attractions"
	OpLogin            = "login"
	OpSignup           = "signup"
	OpCheckAuth        = "check_auth"
	OpAddBookmark      = "add_bookmark"
	OpRemoveBookmark   = "remove_bookmark"
	OpGetBookmarks     = "get_bookmarks"
)

const maxErrorBody = 16 << 10

// TokenSource yields the current session token, "" when logged out.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// AuthResult is returned by Login and Signup.
type AuthResult struct {
	UserID   int
	Token    string
	Username string
}

// Policies holds the retry budget of each family of operations.
type Policies struct {
	Fetch    retry.Policy // attraction listing
	Read     retry.Policy // auth check, bookmark list
	Auth     retry.Policy // login, signup
	Bookmark retry.Policy // bookmark add, remove
}

// ProgressFunc receives retry progress of a named operation.
type ProgressFunc func(op string, p retry.Progress)

// Options configures a Client.
type Options struct {
	BaseURL    string        // ex: "https://api.example.com/v1"
	Timeout    time.Duration // per attempt, ignored when HTTPClient is set
	HTTPClient *http.Client
	Tokens     TokenSource
	Limiter    *rate.Limiter // optional outbound pacing
	Policies   Policies
	OnProgress ProgressFunc // optional
	Logger     logger.Logger
}

// Client talks to the remote API.
type Client struct {
	base       *url.URL
	http       *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	policies   Policies
	onProgress ProgressFunc
	log        logger.Logger
}

// New builds a Client. It fails on an unparsable base URL.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base url %q", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &Client{
		base:       base,
		http:       hc,
		tokens:     tokens,
		limiter:    opts.Limiter,
		policies:   opts.Policies,
		onProgress: opts.OnProgress,
		log:        log,
	}, nil
}

// FetchAttractions returns one page of the listing.
func (c *Client) FetchAttractions(ctx context.Context, q domain.AttractionQuery) (*domain.Page, error) {
	params := url.Values{}
	setInt(params, "page", q.Page)
	setInt(params, "limit", q.Limit)
	setString(params, "search", q.Search)
	setString(params, "category", q.Category)
	setString(params, "sort", q.Sort)
	setString(params, "order", q.Order)

	var resp listResponse
	err := retry.Run(ctx, c.policy(OpFetchAttractions, c.policies.Fetch), func(ctx context.Context) error {
		resp = listResponse{}
		return c.do(ctx, call{
			op:     OpFetchAttractions,
			method: http.MethodGet,
			path:   "/attractions",
			query:  params,
			out:    &resp,
		})
	})
	if err != nil {
		return nil, err
	}
	return mapPage(resp, q), nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	return c.authenticate(ctx, OpLogin, "/auth/login", username, password)
}

// Signup creates an account and returns its session token.
func (c *Client) Signup(ctx context.Context, username, password string) (*AuthResult, error) {
	return c.authenticate(ctx, OpSignup, "/auth/signup", username, password)
}

func (c *Client) authenticate(ctx context.Context, op, path, username, password string) (*AuthResult, error) {
	body := credentialsRequest{Username: username, Password: password}

	var resp authResponse
	err := retry.Run(ctx, c.policy(op, c.policies.Auth), func(ctx context.Context) error {
		resp = authResponse{}
		return c.do(ctx, call{
			op:          op,
			method:      http.MethodPost,
			path:        path,
			body:        body,
			out:         &resp,
			credentials: true,
		})
	})
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &Error{Kind: KindRemoteFailure, Op: op, Status: http.StatusOK, Message: "response carries no token"}
	}
	return mapAuth(resp, username), nil
}

// CheckAuth returns the user ID bound to the current token, nil when the
// client holds no token or the remote rejects it.
func (c *Client) CheckAuth(ctx context.Context) (*int, error) {
	if c.tokens.Token() == "" {
		return nil, nil
	}

	var resp checkResponse
	err := retry.Run(ctx, c.policy(OpCheckAuth, c.policies.Read), func(ctx context.Context) error {
		resp = checkResponse{}
		return c.do(ctx, call{
			op:     OpCheckAuth,
			method: http.MethodGet,
			path:   "/auth/check",
			out:    &resp,
			auth:   true,
		})
	})
	if errors.Is(err, ErrAuthRequired) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resp.UserID, nil
}

// AddBookmark bookmarks an attraction for the current user.
func (c *Client) AddBookmark(ctx context.Context, id int) (string, error) {
	return c.mutateBookmark(ctx, OpAddBookmark, http.MethodPost, id)
}

// RemoveBookmark removes a bookmark of the current user.
func (c *Client) RemoveBookmark(ctx context.Context, id int) (string, error) {
	return c.mutateBookmark(ctx, OpRemoveBookmark, http.MethodDelete, id)
}

func (c *Client) mutateBookmark(ctx context.Context, op, method string, id int) (string, error) {
	var resp statusResponse
	err := retry.Run(ctx, c.policy(op, c.policies.Bookmark), func(ctx context.Context) error {
		resp = statusResponse{}
		return c.do(ctx, call{
			op:     op,
			method: method,
			path:   "/bookmarks/" + strconv.Itoa(id),
			out:    &resp,
			auth:   true,
		})
	})
	if err != nil {
		return "", err
	}
	if resp.Status == "" {
		resp.Status = "ok"
	}
	return resp.Status, nil
}

// GetBookmarks returns the bookmarked attraction IDs of the current user.
func (c *Client) GetBookmarks(ctx context.Context) ([]int, error) {
	var resp bookmarksResponse
	err := retry.Run(ctx, c.policy(OpGetBookmarks, c.policies.Read), func(ctx context.Context) error {
		resp = bookmarksResponse{}
		return c.do(ctx, call{
			op:     OpGetBookmarks,
			method: http.MethodGet,
			path:   "/bookmarks",
			out:    &resp,
			auth:   true,
		})
	})
	if err != nil {
		return nil, err
	}
	return mapBookmarkIDs(resp), nil
}

func (c *Client) policy(op string, p retry.Policy) retry.Policy {
	return p.WithProgress(func(pr retry.Progress) {
		c.log.Warn("remote call failed, retrying",
			logger.String("op", op),
			logger.Int("attempt", pr.Attempt),
			logger.Int("total_attempts", pr.TotalAttempts),
			logger.Duration("next_retry_in", pr.Delay),
			logger.Error(pr.Err))
		if c.onProgress != nil {
			c.onProgress(op, pr)
		}
	})
}

// call describes one HTTP exchange.
type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	out    any

	auth        bool // a token is mandatory
	credentials bool // 401 means bad credentials, not a missing session
}

func (c *Client) do(ctx context.Context, cl call) error {
	token := c.tokens.Token()
	if cl.auth && token == "" {
		return &Error{Kind: KindAuthRequired, Op: cl.op, Message: "login required"}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Error{Kind: KindRemoteFailure, Op: cl.op, Message: "request not sent", Err: err}
		}
	}

	req, err := c.newRequest(ctx, cl, token)
	if err != nil {
		return &Error{Kind: KindValidationFailure, Op: cl.op, Status: http.StatusBadRequest, Message: "invalid request", Err: err}
	}
	requestID := req.Header.Get("X-Request-ID")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("remote call transport failure",
			logger.String("op", cl.op),
			logger.String("request_id", requestID),
			logger.Error(err))
		return &Error{Kind: KindRemoteFailure, Op: cl.op, Message: "remote unreachable", Err: err}
	}
	defer utils.DrainClose(resp.Body)

	c.log.Debug("remote call",
		logger.String("op", cl.op),
		logger.String("method", cl.method),
		logger.String("path", cl.path),
		logger.String("request_id", requestID),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(cl, resp)
	}

	if cl.out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindRemoteFailure, Op: cl.op, Message: "truncated response", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, cl.out); err != nil {
		return &Error{Kind: KindRemoteFailure, Op: cl.op, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, cl call, token string) (*http.Request, error) {
	u := *c.base
	u.Path = c.base.Path + cl.path
	if len(cl.query) > 0 {
		u.RawQuery = cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// classify turns a non-2xx response into a gateway error.
func classify(cl call, resp *http.Response) error {
	msg := readErrorMessage(resp.Body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	status := resp.StatusCode
	switch {
	case status == http.StatusUnauthorized && !cl.credentials:
		return &Error{Kind: KindAuthRequired, Op: cl.op, Status: status, Message: msg}
	case status >= 500:
		return &Error{Kind: KindRemoteFailure, Op: cl.op, Status: status, Message: msg}
	default:
		return &Error{Kind: KindValidationFailure, Op: cl.op, Status: status, Message: msg}
	}
}

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return ""
	}
	var body errorResponse
	if json.Unmarshal(data, &body) == nil {
		return firstNonEmpty(body.Error, body.Message)
	}
	return strings.TrimSpace(string(data))
}

func setInt(v url.Values, key string, n int) {
	if n > 0 {
		v.Set(key, strconv.Itoa(n))
	}
}

func setString(v url.Values, key, s string) {
	if s != "" {
		v.Set(key, s)
	}
}
