// Package bookmarks keeps the local mirror of the user's bookmarked IDs in
// step with the remote, and materializes full records for them.
package bookmarks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MrSnakeDoc/wander/internal/domain"
	"github.com/MrSnakeDoc/wander/internal/logger"
)

// Remote is the bookmark part of the gateway.
type Remote interface {
	GetBookmarks(ctx context.Context) ([]int, error)
	AddBookmark(ctx context.Context, id int) (string, error)
	RemoveBookmark(ctx context.Context, id int) (string, error)
}

// Lister is the listing part of the gateway.
type Lister interface {
	FetchAttractions(ctx context.Context, q domain.AttractionQuery) (*domain.Page, error)
}

// Set is a set of attraction IDs.
type Set map[int]struct{}

// Has reports membership.
func (s Set) Has(id int) bool {
	_, ok := s[id]
	return ok
}

const (
	DefaultPageSize = 50
	DefaultMaxPages = 20
)

// Options configures a Reconciler.
type Options struct {
	PageSize int // page size of the materialization scan
	MaxPages int // page ceiling of the materialization scan
	Logger   logger.Logger
}

// Reconciler owns the bookmark mirror. Every other component reads snapshots.
type Reconciler struct {
	remote Remote
	lister Lister

	pageSize int
	maxPages int
	log      logger.Logger

	// mutations run one at a time so each one's reload observes it
	mutate sync.Mutex

	mu    sync.RWMutex
	ids   Set
	stale bool
	epoch uint64 // bumped by Clear; results fetched for an older epoch are dropped
}

func New(remote Remote, lister Lister, opts Options) *Reconciler {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxPages < 1 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	return &Reconciler{
		remote:   remote,
		lister:   lister,
		pageSize: opts.PageSize,
		maxPages: opts.MaxPages,
		log:      opts.Logger,
		ids:      Set{},
	}
}

// Reload replaces the mirror with the remote set.
// On failure the mirror is left untouched and marked stale. A reload that
// completes after Clear is discarded.
func (r *Reconciler) Reload(ctx context.Context) error {
	epoch := r.currentEpoch()
	ids, err := r.remote.GetBookmarks(ctx)
	if err != nil {
		r.mu.Lock()
		if epoch == r.epoch {
			r.stale = true
		}
		r.mu.Unlock()
		return fmt.Errorf("reload bookmarks: %w", err)
	}

	next := make(Set, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	r.mu.Lock()
	if epoch != r.epoch {
		r.mu.Unlock()
		r.log.Debug("dropping bookmark reload of a cleared mirror")
		return nil
	}
	r.ids = next
	r.stale = false
	r.mu.Unlock()

	r.log.Debug("bookmarks reloaded", logger.Int("count", len(next)))
	return nil
}

// Add bookmarks id remotely then reloads the mirror.
func (r *Reconciler) Add(ctx context.Context, id int) error {
	return r.apply(ctx, id, true)
}

// Remove removes the bookmark remotely then reloads the mirror.
func (r *Reconciler) Remove(ctx context.Context, id int) error {
	return r.apply(ctx, id, false)
}

// Toggle flips the bookmark state of id and returns the new state.
func (r *Reconciler) Toggle(ctx context.Context, id int) (bool, error) {
	if r.Has(id) {
		return false, r.Remove(ctx, id)
	}
	return true, r.Add(ctx, id)
}

func (r *Reconciler) apply(ctx context.Context, id int, add bool) error {
	r.mutate.Lock()
	defer r.mutate.Unlock()

	epoch := r.currentEpoch()
	var err error
	if add {
		_, err = r.remote.AddBookmark(ctx, id)
	} else {
		_, err = r.remote.RemoveBookmark(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("update bookmark %d: %w", id, err)
	}

	if err := r.Reload(ctx); err != nil {
		// The remote accepted the change; mirror it locally and try again later.
		r.mu.Lock()
		if epoch != r.epoch {
			r.mu.Unlock()
			return nil
		}
		if add {
			r.ids[id] = struct{}{}
		} else {
			delete(r.ids, id)
		}
		r.stale = true
		r.mu.Unlock()

		r.log.Warn("bookmark reload after update failed, mirror marked stale",
			logger.Int("id", id),
			logger.Error(err))
	}
	return nil
}

// RefreshIfStale reloads the mirror when a previous reload failed.
func (r *Reconciler) RefreshIfStale(ctx context.Context) error {
	if !r.Stale() {
		return nil
	}
	return r.Reload(ctx)
}

// Stale reports whether the mirror may have drifted from the remote.
func (r *Reconciler) Stale() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stale
}

func (r *Reconciler) currentEpoch() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.epoch
}

func (r *Reconciler) Has(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ids.Has(id)
}

// Snapshot returns a copy of the mirror.
func (r *Reconciler) Snapshot() Set {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make(Set, len(r.ids))
	for id := range r.ids {
		cp[id] = struct{}{}
	}
	return cp
}

// IDs returns the mirror as a sorted slice.
func (r *Reconciler) IDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (r *Reconciler) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// Clear empties the mirror. Called when the identity goes away.
func (r *Reconciler) Clear() {
	r.mu.Lock()
	r.ids = Set{}
	r.stale = false
	r.epoch++
	r.mu.Unlock()
}

// Materialize returns the full records of the bookmarked IDs, in listing order.
//
// The listing API has no batch lookup, so this pages through it from page 1
// and stops when every ID is found, a page is empty or last, or the page
// ceiling is reached.
func (r *Reconciler) Materialize(ctx context.Context) ([]domain.Attraction, error) {
	target := r.Snapshot()
	if len(target) == 0 {
		return []domain.Attraction{}, nil
	}

	found := make(map[int]struct{}, len(target))
	out := make([]domain.Attraction, 0, len(target))
	fetched := 0

	for page := 1; page <= r.maxPages; page++ {
		p, err := r.lister.FetchAttractions(ctx, domain.AttractionQuery{Page: page, Limit: r.pageSize})
		if err != nil {
			return nil, fmt.Errorf("materialize bookmarks (page %d): %w", page, err)
		}
		fetched++

		if len(p.Items) == 0 {
			break
		}
		for _, a := range p.Items {
			if !target.Has(a.ID) {
				continue
			}
			if _, dup := found[a.ID]; dup {
				continue
			}
			found[a.ID] = struct{}{}
			out = append(out, a)
		}

		if len(found) == len(target) || p.Pagination.IsLast(len(p.Items)) {
			break
		}
	}

	if missing := len(target) - len(found); missing > 0 {
		r.log.Debug("bookmarks not found in listing",
			logger.Int("missing", missing),
			logger.Int("pages", fetched))
	}
	return out, nil
}
