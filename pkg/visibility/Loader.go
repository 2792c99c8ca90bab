package visibility

import (
	"context"
	"log/slog"
	"sync"

	"github.com/adampresley/weddingshare/pkg/imagecache"
)

const (
	DefaultWarmupCount = 10
)

type State int

const (
	Unseen State = iota
	InView
	Loaded
)

func (s State) String() string {
	switch s {
	case InView:
		return "in-view"
	case Loaded:
		return "loaded"
	default:
		return "unseen"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

/*
Preloader is the part of the image cache the loader depends on.
*/
type Preloader interface {
	Preload(ctx context.Context, url string) (*imagecache.Image, error)
	PreloadMany(ctx context.Context, urls []string) ([]*imagecache.Image, error)
}

type Source struct {
	ID  string
	URL string
}

/*
Item is a snapshot of one tracked element. When Fallback is set the
managed load failed and the renderer should load URL itself.
*/
type Item struct {
	ID       string
	URL      string
	State    State
	Fallback bool
	Image    *imagecache.Image
}

type LoaderConfig struct {
	Cache       Preloader
	Observer    Observer
	WarmupCount int
	OnChange    func(item Item)
}

/*
Loader defers image work until an item is about to be seen. Each item
moves Unseen -> InView on its first qualifying intersection (and is no
longer observed), then InView -> Loaded when the cache resolves.
*/
type Loader struct {
	cache       Preloader
	observer    Observer
	warmupCount int
	onChange    func(item Item)

	mu      sync.Mutex
	ctx     context.Context
	items   map[string]*Item
	order   []string
	mounted bool
	wg      sync.WaitGroup
}

func NewLoader(config LoaderConfig) *Loader {
	// Negative disables warm-up, zero means the default.
	if config.WarmupCount == 0 {
		config.WarmupCount = DefaultWarmupCount
	} else if config.WarmupCount < 0 {
		config.WarmupCount = 0
	}

	return &Loader{
		cache:       config.Cache,
		observer:    config.Observer,
		warmupCount: config.WarmupCount,
		onChange:    config.OnChange,
		items:       map[string]*Item{},
	}
}

/*
Mount starts tracking sources and warms the cache for the first
WarmupCount of them regardless of visibility.
*/
func (l *Loader) Mount(ctx context.Context, sources []Source) {
	l.mu.Lock()
	l.ctx = context.WithoutCancel(ctx)
	l.mounted = true
	l.mu.Unlock()

	l.Add(sources)

	warm := []string{}

	for index, source := range sources {
		if index >= l.warmupCount {
			break
		}

		warm = append(warm, source.URL)
	}

	if len(warm) == 0 {
		return
	}

	l.wg.Add(1)

	go func() {
		defer l.wg.Done()

		if _, err := l.cache.PreloadMany(l.ctx, warm); err != nil {
			slog.Debug("warm-up preload did not complete", "count", len(warm), "error", err)
		}
	}()
}

/*
Add starts observing more sources. Sources already tracked are ignored.
*/
func (l *Loader) Add(sources []Source) {
	added := []string{}

	l.mu.Lock()

	if !l.mounted {
		l.mu.Unlock()
		return
	}

	for _, source := range sources {
		if _, ok := l.items[source.ID]; ok {
			continue
		}

		l.items[source.ID] = &Item{ID: source.ID, URL: source.URL, State: Unseen}
		l.order = append(l.order, source.ID)
		added = append(added, source.ID)
	}

	l.mu.Unlock()

	for _, id := range added {
		l.observer.Observe(id, l.onIntersect)
	}
}

/*
Unmount disconnects the observer. Loads still in flight complete, but
they no longer change item state.
*/
func (l *Loader) Unmount() {
	l.mu.Lock()
	l.mounted = false
	l.mu.Unlock()

	l.observer.Disconnect()
}

// Wait blocks until every load started by this loader has settled.
func (l *Loader) Wait() {
	l.wg.Wait()
}

func (l *Loader) State(id string) State {
	l.mu.Lock()
	defer l.mu.Unlock()

	if item, ok := l.items[id]; ok {
		return item.State
	}

	return Unseen
}

func (l *Loader) Item(id string) (Item, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if item, ok := l.items[id]; ok {
		return *item, true
	}

	return Item{}, false
}

// Snapshot returns every tracked item in the order it was added.
func (l *Loader) Snapshot() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]Item, 0, len(l.order))

	for _, id := range l.order {
		result = append(result, *l.items[id])
	}

	return result
}

func (l *Loader) onIntersect(intersection Intersection) {
	if !intersection.IsIntersecting {
		return
	}

	l.mu.Lock()

	item, ok := l.items[intersection.ID]

	if !l.mounted || !ok || item.State != Unseen {
		l.mu.Unlock()
		return
	}

	item.State = InView
	url := item.URL
	ctx := l.ctx
	snapshot := *item
	l.wg.Add(1)

	l.mu.Unlock()

	l.observer.Unobserve(intersection.ID)
	l.notify(snapshot)

	go l.load(ctx, intersection.ID, url)
}

func (l *Loader) load(ctx context.Context, id, url string) {
	defer l.wg.Done()

	img, err := l.cache.Preload(ctx, url)

	l.mu.Lock()

	item, ok := l.items[id]

	if !l.mounted || !ok {
		l.mu.Unlock()
		return
	}

	if err != nil {
		slog.Debug("falling back to unmanaged image load", "id", id, "url", url, "error", err)
		item.Fallback = true
	} else {
		item.State = Loaded
		item.Image = img
	}

	snapshot := *item
	l.mu.Unlock()

	l.notify(snapshot)
}

func (l *Loader) notify(item Item) {
	if l.onChange != nil {
		l.onChange(item)
	}
}
