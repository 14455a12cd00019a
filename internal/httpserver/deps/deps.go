package deps

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/wander/internal/controller"
	"github.com/MrSnakeDoc/wander/internal/logger"
)

// Controller is the set of user intents exposed over HTTP.
type Controller interface {
	Initialize(ctx context.Context) error
	Input(text string)
	Search(ctx context.Context, text string) error
	SelectCategory(ctx context.Context, category string) error
	LoadMore(ctx context.Context) error
	SetBookmarksOnly(ctx context.Context, on bool) error
	ToggleBookmark(ctx context.Context, id int) error
	Login(ctx context.Context, username, password string) error
	Signup(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	RetryLast(ctx context.Context) error
	DismissNotice(ctx context.Context)
	View(ctx context.Context) controller.View
}

// Pinger reports whether a backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EventStream serves the WebSocket event stream.
type EventStream interface {
	http.Handler
	Clients() int
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time // for testing, defaults to time.Now
	AllowedHosts   []string         // Host headers allowed to access the server
	AllowedCIDRS   []string         // IPs allowed to access readyz/infra endpoints
	TrustProxy     bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	AuthRateBurst  int              // burst of the login/signup limiter
	AuthRatePerMin int              // refill of the login/signup limiter
	Controller     Controller       // list state owner
	Background     context.Context  // lifetime of tasks started by /api/init, defaults to a detached request context
	Events         EventStream      // nil disables /api/events
	Redis          Pinger           // nil when no redis is configured
	StaticDir      string           // UI bundle, "" disables static serving
}
