package controller

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/wander/internal/bookmarks"
	"github.com/MrSnakeDoc/wander/internal/domain"
	"github.com/MrSnakeDoc/wander/internal/gateway"
	"github.com/MrSnakeDoc/wander/internal/scheduler/clocktest"
	"github.com/MrSnakeDoc/wander/internal/session"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fetchCall struct {
	q  domain.AttractionQuery
	at time.Time
}

// fakeGateway serves a fixed catalog and records every call.
type fakeGateway struct {
	mu    sync.Mutex
	clock *clocktest.Clock

	catalog  []domain.Attraction
	results  map[string][]domain.Attraction // per search text, overrides the catalog
	fetchErr error
	gates    map[string]chan struct{}
	started  chan string
	fetches  []fetchCall

	checkID  *int
	checkErr error
	loginErr error
	logins   int

	marks      map[int]struct{}
	markErr    error
	markWrites int
	markReads  int
	// when set, GetBookmarks signals markStarted then waits on markGate
	markGate    chan struct{}
	markStarted chan struct{}
}

func newFakeGateway(clock *clocktest.Clock, catalog ...domain.Attraction) *fakeGateway {
	return &fakeGateway{
		clock:   clock,
		catalog: catalog,
		results: map[string][]domain.Attraction{},
		gates:   map[string]chan struct{}{},
		started: make(chan string, 4),
		marks:   map[int]struct{}{},
	}
}

func (g *fakeGateway) FetchAttractions(_ context.Context, q domain.AttractionQuery) (*domain.Page, error) {
	g.mu.Lock()
	g.fetches = append(g.fetches, fetchCall{q: q, at: g.clock.Now()})
	err := g.fetchErr
	gate := g.gates[q.Search]
	items, override := g.results[q.Search]
	if !override {
		items = g.filterLocked(q)
	}
	g.mu.Unlock()

	if gate != nil {
		g.started <- q.Search
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return paginate(items, q), nil
}

func (g *fakeGateway) filterLocked(q domain.AttractionQuery) []domain.Attraction {
	var out []domain.Attraction
	for _, a := range g.catalog {
		if q.Category != "" && a.Category != q.Category {
			continue
		}
		if q.Search != "" && !strings.Contains(a.Title, q.Search) && a.City != q.Search {
			continue
		}
		out = append(out, a)
	}
	return out
}

func paginate(items []domain.Attraction, q domain.AttractionQuery) *domain.Page {
	limit := q.Limit
	if limit <= 0 {
		limit = len(items) + 1
	}
	page := max(q.Page, 1)
	start := min((page-1)*limit, len(items))
	end := min(start+limit, len(items))
	return &domain.Page{
		Items: append([]domain.Attraction(nil), items[start:end]...),
		Pagination: domain.Pagination{
			Page:       page,
			Limit:      q.Limit,
			Total:      len(items),
			TotalPages: (len(items) + limit - 1) / limit,
		},
	}
}

func (g *fakeGateway) Login(_ context.Context, username, _ string) (*gateway.AuthResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logins++
	if g.loginErr != nil {
		return nil, g.loginErr
	}
	return &gateway.AuthResult{UserID: 1, Token: "tok", Username: username}, nil
}

func (g *fakeGateway) Signup(ctx context.Context, username, password string) (*gateway.AuthResult, error) {
	return g.Login(ctx, username, password)
}

func (g *fakeGateway) CheckAuth(context.Context) (*int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checkID, g.checkErr
}

func (g *fakeGateway) GetBookmarks(context.Context) ([]int, error) {
	g.mu.Lock()
	g.markReads++
	if g.markErr != nil {
		g.mu.Unlock()
		return nil, g.markErr
	}
	out := make([]int, 0, len(g.marks))
	for id := range g.marks {
		out = append(out, id)
	}
	gate, started := g.markGate, g.markStarted
	g.mu.Unlock()

	if gate != nil {
		started <- struct{}{}
		<-gate
	}
	return out, nil
}

func (g *fakeGateway) AddBookmark(_ context.Context, id int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.markWrites++
	if g.markErr != nil {
		return "", g.markErr
	}
	g.marks[id] = struct{}{}
	return "added", nil
}

func (g *fakeGateway) RemoveBookmark(_ context.Context, id int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.markWrites++
	if g.markErr != nil {
		return "", g.markErr
	}
	delete(g.marks, id)
	return "removed", nil
}

// searchFetches returns the fetches issued for a search or category.
func (g *fakeGateway) searchFetches() []fetchCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []fetchCall
	for _, f := range g.fetches {
		if f.q.Search != "" || f.q.Category != "" {
			out = append(out, f)
		}
	}
	return out
}

func (g *fakeGateway) fetchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.fetches)
}

func (g *fakeGateway) previewFetches() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, f := range g.fetches {
		if f.q.Search == "" && f.q.Category == "" && f.q.Limit == DefaultPreviewSize*4 {
			n++
		}
	}
	return n
}

// fakeNormalizer converts a few simplified characters to traditional.
type fakeNormalizer struct{}

var toTraditional = strings.NewReplacer("宫", "宮", "长", "長", "达", "達", "岭", "嶺")

func (fakeNormalizer) Key(_ context.Context, text string) string {
	return domain.Fold(toTraditional.Replace(text))
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	views  []View
}

func (p *recordingPublisher) Publish(kind string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, kind)
	if v, ok := payload.(View); ok {
		p.views = append(p.views, v)
	}
}

func (p *recordingPublisher) lastView() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.views[len(p.views)-1]
}

// gatedSessions blocks the first Current call after arm until release.
type gatedSessions struct {
	Sessions
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (s *gatedSessions) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
	s.entered = make(chan struct{})
	s.release = make(chan struct{})
}

func (s *gatedSessions) Current() (session.Session, bool) {
	s.mu.Lock()
	armed, entered, release := s.armed, s.entered, s.release
	s.armed = false
	s.mu.Unlock()
	if armed {
		close(entered)
		<-release
	}
	return s.Sessions.Current()
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type harness struct {
	c     *Controller
	gw    *fakeGateway
	gated *gatedSessions
	sess  *session.Manager
	store *session.MemoryStore
	marks *bookmarks.Reconciler
	clock *clocktest.Clock
	pub   *recordingPublisher
}

func newHarness(t *testing.T, catalog ...domain.Attraction) *harness {
	t.Helper()
	clock := clocktest.New(epoch)
	gw := newFakeGateway(clock, catalog...)
	store := session.NewMemoryStore()
	sess := session.NewManager(store, nil)
	marks := bookmarks.New(gw, gw, bookmarks.Options{PageSize: 50, MaxPages: 5})
	pub := &recordingPublisher{}
	gated := &gatedSessions{Sessions: sess}

	c := New(Options{
		Gateway:    gw,
		Bookmarks:  marks,
		Sessions:   gated,
		Normalizer: fakeNormalizer{},
		Publisher:  pub,
		Clock:      clock,
		PageSize:   20,
		Intn:       func(int) int { return 0 },
	})
	t.Cleanup(c.Close)

	return &harness{c: c, gw: gw, gated: gated, sess: sess, store: store, marks: marks, clock: clock, pub: pub}
}

func (h *harness) init(t *testing.T) {
	t.Helper()
	require.NoError(t, h.c.Initialize(context.Background()))
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	require.NoError(t, h.c.Login(context.Background(), "ada", "secret"))
}

func (h *harness) view() View {
	return h.c.View(context.Background())
}

func titles(items []domain.Attraction) []string {
	out := make([]string, 0, len(items))
	for _, a := range items {
		out = append(out, a.Title)
	}
	return out
}

func idsOf(items []domain.Attraction) []int {
	out := make([]int, 0, len(items))
	for _, a := range items {
		out = append(out, a.ID)
	}
	return out
}

func remoteDown() error {
	return &gateway.Error{Kind: gateway.KindRemoteFailure, Op: gateway.OpFetchAttractions, Status: 503, Message: "unavailable"}
}

func authRejected(op string) error {
	return &gateway.Error{Kind: gateway.KindAuthRequired, Op: op, Status: 401, Message: "token expired"}
}

func catalog() []domain.Attraction {
	return []domain.Attraction{
		{ID: 1, Title: "故宫博物院", Category: "museum", City: "北京"},
		{ID: 2, Title: "八达岭长城", Category: "park", City: "北京"},
		{ID: 3, Title: "天坛公园", Category: "park", City: "北京"},
		{ID: 4, Title: "外滩", Category: "landmark", City: "上海"},
		{ID: 5, Title: "西湖", Category: "park", City: "杭州"},
	}
}
