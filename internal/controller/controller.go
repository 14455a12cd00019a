// Package controller owns the list state of the attraction directory and
// drives it from user intents: typing, category picks, paging, the
// bookmarks-only filter and authentication.
package controller

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/wander/internal/bookmarks"
	"github.com/MrSnakeDoc/wander/internal/domain"
	"github.com/MrSnakeDoc/wander/internal/gateway"
	"github.com/MrSnakeDoc/wander/internal/logger"
	"github.com/MrSnakeDoc/wander/internal/render"
	"github.com/MrSnakeDoc/wander/internal/scheduler"
	"github.com/MrSnakeDoc/wander/internal/session"
)

// Gateway is the part of the remote API the controller calls directly.
type Gateway interface {
	FetchAttractions(ctx context.Context, q domain.AttractionQuery) (*domain.Page, error)
	Login(ctx context.Context, username, password string) (*gateway.AuthResult, error)
	Signup(ctx context.Context, username, password string) (*gateway.AuthResult, error)
	CheckAuth(ctx context.Context) (*int, error)
}

// Bookmarks is the bookmark mirror.
type Bookmarks interface {
	Reload(ctx context.Context) error
	Add(ctx context.Context, id int) error
	Remove(ctx context.Context, id int) error
	RefreshIfStale(ctx context.Context) error
	Stale() bool
	Has(id int) bool
	Snapshot() bookmarks.Set
	Count() int
	Clear()
	Materialize(ctx context.Context) ([]domain.Attraction, error)
}

// Sessions holds the authenticated identity.
type Sessions interface {
	Authenticated() bool
	Current() (session.Session, bool)
	Begin(ctx context.Context, s session.Session) error
	End(ctx context.Context) error
	Restore(ctx context.Context) (*session.Session, error)
	SetUserID(ctx context.Context, id int)
}

// Normalizer maps text to the key used for local substring matching.
type Normalizer interface {
	Key(ctx context.Context, text string) string
}

// Publisher receives every new view.
type Publisher interface {
	Publish(kind string, payload any)
}

// EventView is the publisher kind of view updates.
const EventView = "view"

const (
	DefaultPageSize        = 20
	DefaultPreviewSize     = 3
	DefaultPreviewInterval = 10 * time.Second
	DefaultSearchDebounce  = 500 * time.Millisecond
)

// Options configures a Controller.
type Options struct {
	Gateway    Gateway
	Bookmarks  Bookmarks
	Sessions   Sessions
	Normalizer Normalizer // optional, folding only when nil
	Publisher  Publisher  // optional
	Clock      scheduler.Clock
	Logger     logger.Logger

	PageSize        int
	PreviewSize     int
	PreviewInterval time.Duration
	SearchDebounce  time.Duration

	// Intn returns a random int in [0, n). Defaults to math/rand.
	Intn func(n int) int
}

// View is everything the UI paints.
type View struct {
	Mode          domain.Mode  `json:"mode"`
	Search        string       `json:"search"`
	Category      string       `json:"category"`
	BookmarksOnly bool         `json:"bookmarks_only"`
	Page          int          `json:"page"`
	HasMore       bool         `json:"has_more"`
	Authenticated bool         `json:"authenticated"`
	Username      string       `json:"username,omitempty"`
	BookmarkCount int          `json:"bookmark_count"`
	Notice        *Notice      `json:"notice,omitempty"`
	LoginPrompt   *LoginPrompt `json:"login_prompt,omitempty"`
	List          render.View  `json:"list"`

	// Items are the visible attractions, in display order.
	Items []domain.Attraction `json:"-"`
}

// Controller is the single owner of the list state.
// Network calls run outside the lock; each list operation carries a
// generation number and its result is dropped when a newer one started.
type Controller struct {
	gw    Gateway
	marks Bookmarks
	sess  Sessions
	norm  Normalizer
	pub   Publisher
	log   logger.Logger
	intn  func(n int) int

	pageSize    int
	previewSize int

	debounce *scheduler.Debouncer
	preview  *scheduler.Periodic

	mu           sync.Mutex
	bg           context.Context
	mode         domain.Mode
	list         domain.ListState
	gen          uint64
	loading      bool
	scanning     bool // a bookmarks-only materialization is in flight
	previewItems []domain.Attraction
	previewPages int
	marked       []domain.Attraction // materialized bookmarks, unfiltered
	notice       *Notice
	prompt       *LoginPrompt
	retryOp      func(ctx context.Context) error

	// serializes snapshot+publish so subscribers see views in order
	pubMu sync.Mutex
}

// New builds a controller in Idle mode. Call Initialize before use.
func New(opts Options) *Controller {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if opts.PreviewSize < 1 {
		opts.PreviewSize = DefaultPreviewSize
	}
	if opts.PreviewInterval == 0 {
		opts.PreviewInterval = DefaultPreviewInterval
	}
	if opts.SearchDebounce <= 0 {
		opts.SearchDebounce = DefaultSearchDebounce
	}
	if opts.Clock == nil {
		opts.Clock = scheduler.RealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.Intn == nil {
		opts.Intn = rand.Intn
	}

	c := &Controller{
		gw:          opts.Gateway,
		marks:       opts.Bookmarks,
		sess:        opts.Sessions,
		norm:        opts.Normalizer,
		pub:         opts.Publisher,
		log:         opts.Logger,
		intn:        opts.Intn,
		pageSize:    opts.PageSize,
		previewSize: opts.PreviewSize,
		debounce:    scheduler.NewDebouncer(opts.Clock, opts.SearchDebounce),
		bg:          context.Background(),
		mode:        domain.ModeIdle,
	}
	c.preview = scheduler.NewPeriodic("preview-rotation", opts.PreviewInterval, opts.Clock, opts.Logger,
		func(ctx context.Context) {
			if err := c.RotatePreview(ctx); err != nil {
				c.log.Debug("preview rotation failed", logger.Error(err))
			}
		})
	return c
}

// Initialize restores and verifies the persisted session, loads the
// bookmarks of a verified user, then enters Idle with the preview rotation.
// ctx also bounds the background tasks started here.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	c.bg = ctx
	c.mu.Unlock()

	c.verifySession(ctx)
	c.enterIdle(ctx)
	return nil
}

// VerifySession re-checks the current token with the remote. The session
// is destroyed when the remote rejects it. Used by the periodic check.
func (c *Controller) VerifySession(ctx context.Context) {
	if !c.sess.Authenticated() {
		return
	}
	if !c.checkAuth(ctx) {
		c.sessionLost(ctx)
		return
	}
	c.publish(ctx)
}

func (c *Controller) verifySession(ctx context.Context) {
	s, err := c.sess.Restore(ctx)
	if err != nil {
		c.log.Warn("failed to restore session", logger.Error(err))
		return
	}
	if s == nil {
		c.marks.Clear()
		return
	}
	if !c.checkAuth(ctx) {
		_ = c.sess.End(ctx)
		c.marks.Clear()
		return
	}
	if err := c.marks.Reload(ctx); err != nil {
		c.log.Warn("failed to load bookmarks", logger.Error(err))
	}
}

// checkAuth reports whether the session should be kept. A remote that
// cannot be reached does not invalidate the session.
func (c *Controller) checkAuth(ctx context.Context) bool {
	id, err := c.gw.CheckAuth(ctx)
	if err != nil {
		c.log.Warn("auth check failed, keeping session", logger.Error(err))
		return true
	}
	if id == nil {
		c.log.Info("session token rejected")
		return false
	}
	c.sess.SetUserID(ctx, *id)
	return true
}

// Close stops the background tasks.
func (c *Controller) Close() {
	c.debounce.Cancel()
	c.preview.Stop()
}

// Input records a keystroke in the search box. The search runs once the
// input has been quiet for the debounce window; each keystroke invalidates
// the pending one.
func (c *Controller) Input(text string) {
	c.debounce.Trigger(func() {
		if err := c.runDebounced(text); err != nil {
			c.log.Debug("debounced search failed", logger.Error(err))
		}
	})
}

// runDebounced is the fired debounce call. It must not cancel the debouncer:
// a keystroke may already have scheduled the next one.
func (c *Controller) runDebounced(text string) error {
	c.mu.Lock()
	ctx := c.bg
	c.mu.Unlock()
	return c.search(ctx, text)
}

// Search applies text as the search filter right away.
// A pending debounced input is dropped.
func (c *Controller) Search(ctx context.Context, text string) error {
	c.debounce.Cancel()
	return c.search(ctx, text)
}

func (c *Controller) search(ctx context.Context, text string) error {
	return c.applyFilter(ctx, func(f *domain.Filter) { f.Text = strings.TrimSpace(text) })
}

// SelectCategory filters by category, "" clears it.
func (c *Controller) SelectCategory(ctx context.Context, category string) error {
	return c.applyFilter(ctx, func(f *domain.Filter) { f.Category = strings.TrimSpace(category) })
}

// SetBookmarksOnly toggles the bookmarks-only view. It needs a session.
func (c *Controller) SetBookmarksOnly(ctx context.Context, on bool) error {
	if on && !c.sess.Authenticated() {
		c.mu.Lock()
		c.list.BookmarksOnly = false
		c.prompt = &LoginPrompt{Reason: PromptBookmarksOnly, Message: "Log in to see your bookmarks."}
		c.mu.Unlock()
		c.publish(ctx)
		return ErrAuthRequired
	}
	return c.applyFilter(ctx, func(f *domain.Filter) { f.BookmarksOnly = on })
}

func (c *Controller) applyFilter(ctx context.Context, change func(f *domain.Filter)) error {
	c.mu.Lock()
	prev := c.list.Filter()
	next := prev
	change(&next)
	next = clean(next)
	action := Decide(prev, next)
	c.list.FilterText = next.Text
	c.list.FilterCategory = next.Category
	c.list.BookmarksOnly = next.BookmarksOnly
	c.mu.Unlock()

	c.log.Debug("filter changed",
		logger.String("action", action.String()),
		logger.String("search", next.Text),
		logger.String("category", next.Category),
		logger.Bool("bookmarks_only", next.BookmarksOnly))

	switch action {
	case ActionIdle:
		c.enterIdle(ctx)
		return nil
	case ActionFetch:
		if next.BookmarksOnly {
			return c.materialize(ctx)
		}
		return c.fetchFirstPage(ctx, next)
	case ActionLocalFilter, ActionNormalizedScan:
		return c.refilterBookmarks(ctx, next)
	default:
		c.publish(ctx)
		return nil
	}
}

// beginLocked starts a list operation and returns its generation.
// The preview rotation stops and its items are discarded.
func (c *Controller) beginLocked() uint64 {
	c.gen++
	c.mode = domain.ModeSearching
	c.loading = true
	c.scanning = false
	c.notice = nil
	c.retryOp = nil
	c.previewItems = nil
	c.preview.Stop()
	return c.gen
}

func (c *Controller) fetchFirstPage(ctx context.Context, f domain.Filter) error {
	c.mu.Lock()
	gen := c.beginLocked()
	c.marked = nil
	c.mu.Unlock()
	c.publish(ctx)

	page, err := c.gw.FetchAttractions(ctx, domain.AttractionQuery{
		Page:     1,
		Limit:    c.pageSize,
		Search:   f.Text,
		Category: f.Category,
	})

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug("dropping superseded search result", logger.String("search", f.Text))
		return nil
	}
	c.loading = false
	c.mode = domain.ModeResults
	if err != nil {
		// prior items stay; an empty list is shown when there were none
		if c.list.Items == nil {
			c.list.Items = []domain.Attraction{}
		}
		c.failLocked(gateway.OpFetchAttractions, err, func(ctx context.Context) error {
			return c.fetchFirstPage(ctx, f)
		})
		c.mu.Unlock()
		c.afterFailure(ctx, err)
		return err
	}
	c.list.Items = page.Items
	c.list.Page = 1
	c.list.HasMore = !page.Pagination.IsLast(len(page.Items))
	c.list.IsSearchActive = f.IsSearch()
	c.mu.Unlock()

	c.publish(ctx)
	return nil
}

// LoadMore appends the next page of the current results.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != domain.ModeResults || !c.list.HasMore || c.loading {
		c.mu.Unlock()
		return nil
	}
	gen := c.gen
	f := c.list.Filter()
	next := c.list.Page + 1
	c.mode = domain.ModeSearching
	c.loading = true
	c.notice = nil
	c.mu.Unlock()
	c.publish(ctx)

	page, err := c.gw.FetchAttractions(ctx, domain.AttractionQuery{
		Page:     next,
		Limit:    c.pageSize,
		Search:   f.Text,
		Category: f.Category,
	})

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	c.loading = false
	c.mode = domain.ModeResults
	if err != nil {
		c.failLocked(gateway.OpFetchAttractions, err, c.LoadMore)
		c.mu.Unlock()
		c.afterFailure(ctx, err)
		return err
	}
	c.list.Items = appendUnique(c.list.Items, page.Items)
	c.list.Page = next
	c.list.HasMore = !page.Pagination.IsLast(len(page.Items))
	c.mu.Unlock()

	c.publish(ctx)
	return nil
}

// materialize scans the listing for the bookmarked records. Sub-filters
// changed while the scan runs do not supersede it: the filter current when
// the scan lands is the one applied.
func (c *Controller) materialize(ctx context.Context) error {
	c.mu.Lock()
	gen := c.beginLocked()
	c.scanning = true
	c.mu.Unlock()
	c.publish(ctx)

	if err := c.marks.RefreshIfStale(ctx); err != nil {
		c.log.Warn("bookmark refresh failed, using local mirror", logger.Error(err))
	}
	items, err := c.marks.Materialize(ctx)
	if err != nil {
		c.mu.Lock()
		if gen == c.gen {
			c.scanning = false
			c.loading = false
			c.mode = domain.ModeBookmarksOnly
			c.list.Items = []domain.Attraction{}
			c.list.HasMore = false
			c.failLocked(gateway.OpFetchAttractions, err, c.materialize)
		}
		c.mu.Unlock()
		c.afterFailure(ctx, err)
		return err
	}
	// bookmarks removed during the scan
	items = c.stillMarked(items)

	for {
		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return nil
		}
		f := c.list.Filter()
		c.mu.Unlock()

		visible := c.filterLocal(ctx, items, f)

		c.mu.Lock()
		if gen != c.gen {
			c.mu.Unlock()
			return nil
		}
		if c.list.Filter() != f {
			c.mu.Unlock()
			continue
		}
		c.scanning = false
		c.marked = items
		c.showBookmarksLocked(visible, f)
		c.mu.Unlock()
		break
	}

	c.publish(ctx)
	return nil
}

func (c *Controller) stillMarked(items []domain.Attraction) []domain.Attraction {
	out := items[:0:0]
	for _, a := range items {
		if c.marks.Has(a.ID) {
			out = append(out, a)
		}
	}
	return out
}

func (c *Controller) refilterBookmarks(ctx context.Context, f domain.Filter) error {
	c.mu.Lock()
	if c.scanning {
		// the running scan picks up f when it lands
		c.mu.Unlock()
		c.publish(ctx)
		return nil
	}
	c.gen++
	gen := c.gen
	src := append([]domain.Attraction(nil), c.marked...)
	c.mu.Unlock()

	visible := c.filterLocal(ctx, src, f)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	c.showBookmarksLocked(visible, f)
	c.mu.Unlock()

	c.publish(ctx)
	return nil
}

func (c *Controller) showBookmarksLocked(visible []domain.Attraction, f domain.Filter) {
	c.loading = false
	c.mode = domain.ModeBookmarksOnly
	c.list.Items = visible
	c.list.Page = 1
	c.list.HasMore = false
	c.list.IsSearchActive = f.IsSearch()
}

// filterLocal keeps the items matching f. Text matching goes through the
// normalizer so script variants of the same name match.
func (c *Controller) filterLocal(ctx context.Context, items []domain.Attraction, f domain.Filter) []domain.Attraction {
	out := make([]domain.Attraction, 0, len(items))
	category := domain.Fold(f.Category)
	query := c.key(ctx, f.Text)

	for _, a := range items {
		if category != "" && domain.Fold(a.Category) != category {
			continue
		}
		if query != "" && !strings.Contains(c.key(ctx, domain.SearchableText(a)), query) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (c *Controller) key(ctx context.Context, text string) string {
	if text == "" {
		return ""
	}
	if c.norm == nil {
		return domain.Fold(text)
	}
	return c.norm.Key(ctx, text)
}

func (c *Controller) enterIdle(ctx context.Context) {
	c.mu.Lock()
	c.gen++
	c.mode = domain.ModeIdle
	c.loading = false
	c.scanning = false
	c.list = domain.ListState{}
	c.marked = nil
	bg := c.bg
	c.mu.Unlock()

	if err := c.RotatePreview(ctx); err != nil {
		c.log.Debug("preview fetch failed", logger.Error(err))
		c.publish(ctx)
	}
	c.preview.Restart(bg)
}

// RotatePreview replaces the idle preview with random attractions.
// It does nothing outside Idle, and its result is dropped if the user
// started something meanwhile.
func (c *Controller) RotatePreview(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != domain.ModeIdle {
		c.mu.Unlock()
		return nil
	}
	gen := c.gen
	page := 1
	if c.previewPages > 1 {
		page = 1 + c.intn(c.previewPages)
	}
	c.mu.Unlock()

	p, err := c.gw.FetchAttractions(ctx, domain.AttractionQuery{Page: page, Limit: c.previewSize * 4})
	if err != nil {
		return err
	}

	c.mu.Lock()
	if gen != c.gen || c.mode != domain.ModeIdle {
		c.mu.Unlock()
		return nil
	}
	c.previewPages = p.Pagination.TotalPages
	c.previewItems = c.pick(p.Items, c.previewSize)
	c.mu.Unlock()

	c.publish(ctx)
	return nil
}

func (c *Controller) pick(items []domain.Attraction, n int) []domain.Attraction {
	pool := append([]domain.Attraction(nil), items...)
	for i := len(pool) - 1; i > 0; i-- {
		j := c.intn(i + 1)
		pool[i], pool[j] = pool[j], pool[i]
	}
	if len(pool) > n {
		pool = pool[:n]
	}
	return pool
}

// ToggleBookmark flips the bookmark of an attraction. Without a session
// nothing is sent: a login prompt is raised and the click is forgotten.
func (c *Controller) ToggleBookmark(ctx context.Context, id int) error {
	if !c.sess.Authenticated() {
		c.mu.Lock()
		c.prompt = &LoginPrompt{Reason: PromptBookmark, Message: "Log in to bookmark attractions."}
		c.mu.Unlock()
		c.publish(ctx)
		return ErrAuthRequired
	}
	if c.marks.Has(id) {
		return c.setBookmark(ctx, id, false)
	}
	return c.setBookmark(ctx, id, true)
}

func (c *Controller) setBookmark(ctx context.Context, id int, on bool) error {
	var err error
	op := gateway.OpAddBookmark
	if on {
		err = c.marks.Add(ctx, id)
	} else {
		op = gateway.OpRemoveBookmark
		err = c.marks.Remove(ctx, id)
	}

	if err != nil {
		c.mu.Lock()
		c.failLocked(op, err, func(ctx context.Context) error { return c.setBookmark(ctx, id, on) })
		c.mu.Unlock()
		c.afterFailure(ctx, err)
		return err
	}

	if !on {
		c.mu.Lock()
		if c.mode == domain.ModeBookmarksOnly {
			c.marked = withoutID(c.marked, id)
			c.list.Items = withoutID(c.list.Items, id)
		}
		c.mu.Unlock()
	}
	c.publish(ctx)
	return nil
}

// Login authenticates and loads the user's bookmarks.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	return c.authenticate(ctx, gateway.OpLogin, c.gw.Login, username, password)
}

// Signup creates an account and logs into it.
func (c *Controller) Signup(ctx context.Context, username, password string) error {
	return c.authenticate(ctx, gateway.OpSignup, c.gw.Signup, username, password)
}

type authFunc func(ctx context.Context, username, password string) (*gateway.AuthResult, error)

func (c *Controller) authenticate(ctx context.Context, op string, call authFunc, username, password string) error {
	username = strings.TrimSpace(username)
	if field := missingField(username, password); field != "" {
		c.mu.Lock()
		c.notice = &Notice{Kind: NoticeValidation, Op: op, Field: field, Message: field + " is required"}
		c.mu.Unlock()
		c.publish(ctx)
		return ErrInvalidInput
	}

	res, err := call(ctx, username, password)
	if err != nil {
		c.mu.Lock()
		if gateway.KindOf(err) == gateway.KindValidationFailure {
			c.notice = validationNotice(op, credentialField(err), err)
			c.retryOp = nil
		} else {
			c.notice = remoteNotice(op)
			c.retryOp = func(ctx context.Context) error { return c.authenticate(ctx, op, call, username, password) }
		}
		c.mu.Unlock()
		c.publish(ctx)
		return err
	}

	if err := c.sess.Begin(ctx, session.Session{UserID: res.UserID, Token: res.Token, Username: res.Username}); err != nil {
		c.log.Warn("session not persisted", logger.Error(err))
	}
	if err := c.marks.Reload(ctx); err != nil {
		c.log.Warn("failed to load bookmarks after login", logger.Error(err))
	}

	c.mu.Lock()
	c.prompt = nil
	c.notice = nil
	c.retryOp = nil
	c.mu.Unlock()

	c.publish(ctx)
	return nil
}

func missingField(username, password string) string {
	switch {
	case username == "":
		return "username"
	case password == "":
		return "password"
	default:
		return ""
	}
}

// Logout destroys the session and forgets the bookmarks.
func (c *Controller) Logout(ctx context.Context) error {
	if err := c.sess.End(ctx); err != nil {
		c.log.Warn("failed to clear persisted session", logger.Error(err))
	}
	c.marks.Clear()
	return c.leaveBookmarks(ctx)
}

// sessionLost handles a token the remote no longer accepts.
func (c *Controller) sessionLost(ctx context.Context) {
	_ = c.sess.End(ctx)
	c.marks.Clear()

	c.mu.Lock()
	c.prompt = &LoginPrompt{Reason: PromptSessionLost, Message: "Your session has expired. Please log in again."}
	c.notice = nil
	c.retryOp = nil
	c.mu.Unlock()

	if err := c.leaveBookmarks(ctx); err != nil {
		c.log.Debug("failed to leave bookmarks view", logger.Error(err))
	}
}

func (c *Controller) leaveBookmarks(ctx context.Context) error {
	c.mu.Lock()
	on := c.list.BookmarksOnly
	c.mu.Unlock()
	if !on {
		c.publish(ctx)
		return nil
	}
	return c.applyFilter(ctx, func(f *domain.Filter) { f.BookmarksOnly = false })
}

// failLocked records a failed operation as a notice.
func (c *Controller) failLocked(op string, err error, retry func(ctx context.Context) error) {
	switch gateway.KindOf(err) {
	case gateway.KindAuthRequired:
		c.notice = nil
		c.retryOp = nil
	case gateway.KindValidationFailure:
		c.notice = validationNotice(op, "", err)
		c.retryOp = nil
	default:
		if errors.Is(err, context.Canceled) {
			return
		}
		c.notice = remoteNotice(op)
		c.retryOp = retry
	}
	c.log.Warn("operation failed", logger.String("op", op), logger.Error(err))
}

// afterFailure publishes the failure, ending the session first when the
// remote rejected the token.
func (c *Controller) afterFailure(ctx context.Context, err error) {
	if errors.Is(err, gateway.ErrAuthRequired) {
		c.sessionLost(ctx)
		return
	}
	c.publish(ctx)
}

// RetryLast reruns the operation behind the current retryable notice.
func (c *Controller) RetryLast(ctx context.Context) error {
	c.mu.Lock()
	op := c.retryOp
	c.retryOp = nil
	c.notice = nil
	c.mu.Unlock()

	if op == nil {
		c.publish(ctx)
		return nil
	}
	return op(ctx)
}

// DismissNotice hides the current notice and login prompt.
func (c *Controller) DismissNotice(ctx context.Context) {
	c.mu.Lock()
	c.notice = nil
	c.prompt = nil
	c.retryOp = nil
	c.mu.Unlock()
	c.publish(ctx)
}

// View returns the current view. A bookmark mirror left stale by an
// earlier failure is refreshed first.
func (c *Controller) View(ctx context.Context) View {
	c.refreshStale(ctx)
	return c.snapshot()
}

func (c *Controller) refreshStale(ctx context.Context) {
	if c.sess.Authenticated() && c.marks.Stale() {
		if err := c.marks.RefreshIfStale(ctx); err != nil {
			c.log.Debug("stale bookmarks not refreshed", logger.Error(err))
		}
	}
}

func (c *Controller) snapshot() View {
	marks := c.marks.Snapshot()
	s, authenticated := c.sess.Current()

	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.list.Items
	if c.mode == domain.ModeIdle {
		items = c.previewItems
	}
	items = append([]domain.Attraction(nil), items...)

	v := View{
		Mode:          c.mode,
		Search:        c.list.FilterText,
		Category:      c.list.FilterCategory,
		BookmarksOnly: c.list.BookmarksOnly,
		Page:          c.list.Page,
		HasMore:       c.list.HasMore,
		Authenticated: authenticated,
		Username:      s.Username,
		BookmarkCount: len(marks),
		Items:         items,
		List: render.Render(items, render.Context{
			Bookmarked:     marks,
			BookmarkCount:  len(marks),
			BookmarksOnly:  c.list.BookmarksOnly,
			FilterText:     c.list.FilterText,
			FilterCategory: c.list.FilterCategory,
			HasMore:        c.list.HasMore,
			Loading:        c.loading,
		}),
	}
	if c.notice != nil {
		n := *c.notice
		v.Notice = &n
	}
	if c.prompt != nil {
		p := *c.prompt
		v.LoginPrompt = &p
	}
	return v
}

func (c *Controller) publish(ctx context.Context) {
	if c.pub == nil {
		return
	}
	c.refreshStale(ctx)

	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	c.pub.Publish(EventView, c.snapshot())
}

func appendUnique(dst, src []domain.Attraction) []domain.Attraction {
	seen := make(map[int]struct{}, len(dst))
	for _, a := range dst {
		seen[a.ID] = struct{}{}
	}
	out := append([]domain.Attraction(nil), dst...)
	for _, a := range src {
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

func withoutID(items []domain.Attraction, id int) []domain.Attraction {
	out := make([]domain.Attraction, 0, len(items))
	for _, a := range items {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}
