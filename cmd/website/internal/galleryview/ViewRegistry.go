package galleryview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/adampresley/weddingshare/pkg/pagination"
	"github.com/adampresley/weddingshare/pkg/services"
	"github.com/adampresley/weddingshare/pkg/visibility"
	"github.com/google/uuid"
)

var (
	ErrViewNotFound = fmt.Errorf("gallery view not found")
)

type ViewRegistryConfig struct {
	Cache         visibility.Preloader
	FetchPageSize int
	IdleTimeout   time.Duration
	ItemsPerPage  int
	PhotoService  services.PhotoServicer
	RootMargin    float64
	Threshold     float64
	WarmupCount   int
}

/*
ViewRegistry keeps every open gallery view in memory. Views that have not
been touched for IdleTimeout are closed by the cleanup routine.
*/
type ViewRegistry struct {
	cache         visibility.Preloader
	fetchPageSize int
	geometry      visibility.GeometryObserverConfig
	idleTimeout   time.Duration
	itemsPerPage  int
	photoService  services.PhotoServicer
	warmupCount   int
	now           func() time.Time

	mu    sync.Mutex
	views map[string]*ViewSession

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	wg            sync.WaitGroup
}

func NewViewRegistry(config ViewRegistryConfig) *ViewRegistry {
	if config.FetchPageSize <= 0 {
		config.FetchPageSize = 60
	}

	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 30 * time.Minute
	}

	return &ViewRegistry{
		cache:         config.Cache,
		fetchPageSize: config.FetchPageSize,
		geometry: visibility.GeometryObserverConfig{
			RootMargin: config.RootMargin,
			Threshold:  config.Threshold,
		},
		idleTimeout:  config.IdleTimeout,
		itemsPerPage: config.ItemsPerPage,
		photoService: config.PhotoService,
		warmupCount:  config.WarmupCount,
		now:          time.Now,
		views:        map[string]*ViewSession{},
	}
}

/*
Create opens a view over a gallery, or one chapter of it. The first page
is fetched before returning and the first revealed photos are warmed.
*/
func (r *ViewRegistry) Create(ctx context.Context, galleryID, chapterID string) (*ViewSession, error) {
	var (
		err     error
		photos  []models.Photo
		hasMore bool
		total   int
	)

	fetch := func(ctx context.Context, offset int) ([]models.Photo, bool, error) {
		return r.photoService.GetPhotoPage(galleryID, chapterID, offset, r.fetchPageSize)
	}

	if photos, hasMore, err = fetch(ctx, 0); err != nil {
		return nil, fmt.Errorf("error fetching first page of gallery %s: %w", galleryID, err)
	}

	if total, err = r.photoService.CountPhotos(galleryID, chapterID); err != nil {
		slog.Error("error counting photos, progress will be reported as unknown", "galleryID", galleryID, "error", err)
		total = 0
	}

	observer := visibility.NewReportObserver()

	view := &ViewSession{
		ID:        uuid.NewString(),
		GalleryID: galleryID,
		ChapterID: chapterID,
		controller: pagination.NewController(pagination.ControllerConfig[models.Photo]{
			Items:        photos,
			ItemsPerPage: r.itemsPerPage,
			HasMore:      hasMore,
			Fetch:        fetch,
		}),
		loader: visibility.NewLoader(visibility.LoaderConfig{
			Cache:       r.cache,
			Observer:    observer,
			WarmupCount: r.warmupCount,
		}),
		observer: observer,
		geometry: r.geometry,
		total:    total,
		lastUsed: r.now(),
	}

	view.loader.Mount(ctx, toSources(view.controller.Visible()))

	r.mu.Lock()
	r.views[view.ID] = view
	r.mu.Unlock()

	slog.Debug("gallery view opened", "viewID", view.ID, "galleryID", galleryID, "chapterID", chapterID, "fetched", len(photos))
	return view, nil
}

func (r *ViewRegistry) Get(id string) (*ViewSession, error) {
	r.mu.Lock()
	view, ok := r.views[id]
	r.mu.Unlock()

	if !ok {
		return nil, ErrViewNotFound
	}

	view.touch(r.now())
	return view, nil
}

func (r *ViewRegistry) Remove(id string) bool {
	r.mu.Lock()
	view, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()

	if ok {
		view.Close()
	}

	return ok
}

func (r *ViewRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.views)
}

// Prune closes views idle longer than the timeout and returns how many.
func (r *ViewRegistry) Prune() int {
	expired := []*ViewSession{}
	now := r.now()

	r.mu.Lock()

	for id, view := range r.views {
		if view.idleSince(now) > r.idleTimeout {
			expired = append(expired, view)
			delete(r.views, id)
		}
	}

	r.mu.Unlock()

	for _, view := range expired {
		view.Close()
	}

	return len(expired)
}

func (r *ViewRegistry) StartCleanupRoutine(interval time.Duration) {
	r.stopCleanup = make(chan struct{})
	r.cleanupTicker = time.NewTicker(interval)

	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		for {
			select {
			case <-r.cleanupTicker.C:
				if removed := r.Prune(); removed > 0 {
					slog.Info("closed idle gallery views", "removed", removed)
				}

			case <-r.stopCleanup:
				r.cleanupTicker.Stop()
				return
			}
		}
	}()
}

/*
StopCleanupRoutine stops pruning and closes every remaining view.
*/
func (r *ViewRegistry) StopCleanupRoutine() {
	if r.cleanupTicker != nil {
		close(r.stopCleanup)
		r.wg.Wait()
	}

	r.mu.Lock()
	views := r.views
	r.views = map[string]*ViewSession{}
	r.mu.Unlock()

	for _, view := range views {
		view.Close()
	}
}
