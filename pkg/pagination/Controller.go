package pagination

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

const (
	DefaultItemsPerPage = 20
)

/*
Action describes what a call to RequestMore did.
*/
type Action int

const (
	ActionNone Action = iota
	ActionReveal
	ActionFetch
)

func (a Action) String() string {
	switch a {
	case ActionReveal:
		return "reveal"
	case ActionFetch:
		return "fetch"
	default:
		return "none"
	}
}

/*
FetchFunc retrieves the next page from the backing store. offset is the
number of items fetched so far. It returns the new items and whether the
store may have more after them.
*/
type FetchFunc[T any] func(ctx context.Context, offset int) ([]T, bool, error)

type ControllerConfig[T any] struct {
	Items        []T
	ItemsPerPage int
	HasMore      bool
	Fetch        FetchFunc[T]
}

/*
Controller reveals a fetched sequence a page at a time. The rendered
window is always a prefix of the fetched items. Remote fetches happen
only when everything fetched is already shown, and never overlap.
*/
type Controller[T any] struct {
	fetch        FetchFunc[T]
	itemsPerPage int
	loading      atomic.Bool

	mu            sync.Mutex
	items         []T
	renderedCount int
	hasMore       bool
}

func NewController[T any](config ControllerConfig[T]) *Controller[T] {
	if config.ItemsPerPage <= 0 {
		config.ItemsPerPage = DefaultItemsPerPage
	}

	c := &Controller[T]{
		fetch:        config.Fetch,
		itemsPerPage: config.ItemsPerPage,
		items:        append([]T(nil), config.Items...),
		hasMore:      config.HasMore,
	}

	c.renderedCount = min(c.itemsPerPage, len(c.items))
	return c
}

/*
RequestMore takes the cheapest action available: reveal already fetched
items, otherwise fetch another page if the store has more and no fetch is
running, otherwise nothing. Fetched items are appended but not revealed;
the next call reveals them.
*/
func (c *Controller[T]) RequestMore(ctx context.Context) (Action, error) {
	c.mu.Lock()

	if c.renderedCount < len(c.items) {
		c.renderedCount = min(c.renderedCount+c.itemsPerPage, len(c.items))
		c.mu.Unlock()
		return ActionReveal, nil
	}

	if !c.hasMore || c.fetch == nil {
		c.mu.Unlock()
		return ActionNone, nil
	}

	if !c.loading.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return ActionNone, nil
	}

	offset := len(c.items)
	c.mu.Unlock()

	defer c.loading.Store(false)

	fetched, hasMore, err := c.fetch(ctx, offset)

	if err != nil {
		return ActionFetch, fmt.Errorf("error fetching items at offset %d: %w", offset, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Sync or Reset ran while fetching; the page no longer lines up.
	if len(c.items) != offset {
		return ActionNone, nil
	}

	c.items = append(c.items, fetched...)
	c.hasMore = hasMore

	return ActionFetch, nil
}

/*
Sync replaces the fetched sequence, for example after the backing store
pushed a fresh snapshot. The rendered count is clamped to the new length.
*/
func (c *Controller[T]) Sync(items []T, hasMore bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append([]T(nil), items...)
	c.hasMore = hasMore
	c.renderedCount = min(c.renderedCount, len(c.items))
}

// Reset drops everything fetched and marks the store as having more.
func (c *Controller[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.renderedCount = 0
	c.hasMore = true
}

func (c *Controller[T]) Visible() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]T(nil), c.items[:c.renderedCount]...)
}

func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]T(nil), c.items...)
}

func (c *Controller[T]) RenderedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.renderedCount
}

func (c *Controller[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

func (c *Controller[T]) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hasMore
}

func (c *Controller[T]) IsLoading() bool {
	return c.loading.Load()
}

// CanRequestMore reports whether RequestMore would do anything right now.
func (c *Controller[T]) CanRequestMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.renderedCount < len(c.items) {
		return true
	}

	return c.hasMore && c.fetch != nil && !c.loading.Load()
}

func (c *Controller[T]) PercentageLoaded(totalKnown float64) float64 {
	return PercentageLoaded(c.RenderedCount(), totalKnown)
}

/*
PercentageLoaded reports shown/totalKnown as a percentage in [0, 100].
A total that is not finite or not positive is unknown and reports 100.
*/
func PercentageLoaded(shown int, totalKnown float64) float64 {
	if math.IsNaN(totalKnown) || math.IsInf(totalKnown, 0) || totalKnown <= 0 {
		return 100
	}

	if shown <= 0 {
		return 0
	}

	return math.Min(100, float64(shown)/totalKnown*100)
}
