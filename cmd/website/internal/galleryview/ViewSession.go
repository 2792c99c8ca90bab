package galleryview

import (
	"context"
	"sync"
	"time"

	"github.com/adampresley/weddingshare/cmd/website/internal/viewmodels"
	"github.com/adampresley/weddingshare/pkg/models"
	"github.com/adampresley/weddingshare/pkg/pagination"
	"github.com/adampresley/weddingshare/pkg/visibility"
)

/*
ViewSession is the server side of one browser's scroll through a gallery.
The pagination controller owns which photos are revealed; every revealed
photo is handed to the visibility loader, which preloads its thumbnail
once the browser reports it near the viewport.
*/
type ViewSession struct {
	ID        string
	GalleryID string
	ChapterID string

	controller *pagination.Controller[models.Photo]
	loader     *visibility.Loader
	observer   *visibility.ReportObserver
	geometry   visibility.GeometryObserverConfig
	total      int

	mu       sync.Mutex
	lastUsed time.Time
}

func (v *ViewSession) RequestMore(ctx context.Context) (pagination.Action, error) {
	action, err := v.controller.RequestMore(ctx)

	if action == pagination.ActionReveal {
		v.loader.Add(toSources(v.controller.Visible()))
	}

	return action, err
}

// ReportVisible returns how many of ids were still waiting to be seen.
func (v *ViewSession) ReportVisible(ids []string) int {
	return v.observer.Report(ids...)
}

/*
ReportBounds is for clients that send element geometry instead of ids.
Elements within the root margin of viewport that meet the threshold are
reported as visible.
*/
func (v *ViewSession) ReportBounds(viewport visibility.Rect, bounds map[string]visibility.Rect) int {
	geometry := visibility.NewGeometryObserver(v.geometry)
	hits := []string{}

	for id, rect := range bounds {
		geometry.SetBounds(id, rect)
		geometry.Observe(id, func(intersection visibility.Intersection) {
			hits = append(hits, intersection.ID)
		})
	}

	geometry.Update(viewport)
	geometry.Disconnect()

	return v.observer.Report(hits...)
}

func (v *ViewSession) Close() {
	v.loader.Unmount()
}

func (v *ViewSession) Wait() {
	v.loader.Wait()
}

func (v *ViewSession) touch(now time.Time) {
	v.mu.Lock()
	v.lastUsed = now
	v.mu.Unlock()
}

func (v *ViewSession) idleSince(now time.Time) time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()

	return now.Sub(v.lastUsed)
}

func (v *ViewSession) Snapshot(urls viewmodels.MediaURLs) viewmodels.View {
	visible := v.controller.Visible()

	result := viewmodels.View{
		ID:            v.ID,
		GalleryID:     v.GalleryID,
		ChapterID:     v.ChapterID,
		Items:         make([]viewmodels.ViewItem, 0, len(visible)),
		RenderedCount: len(visible),
		Fetched:       v.controller.Len(),
		Total:         v.total,
		HasMore:       v.controller.HasMore(),
		IsLoading:     v.controller.IsLoading(),
		CanLoadMore:   v.controller.CanRequestMore(),
		Progress:      pagination.PercentageLoaded(len(visible), float64(v.total)),
	}

	for _, photo := range visible {
		viewItem := viewmodels.ViewItem{
			Photo: viewmodels.NewPhoto(photo, urls),
			State: visibility.Unseen.String(),
		}

		if item, ok := v.loader.Item(photo.ID); ok {
			viewItem.State = item.State.String()
			viewItem.Fallback = item.Fallback
		}

		result.Items = append(result.Items, viewItem)
	}

	return result
}

func toSources(photos []models.Photo) []visibility.Source {
	result := make([]visibility.Source, 0, len(photos))

	for _, photo := range photos {
		result = append(result, visibility.Source{
			ID:  photo.ID,
			URL: photo.StorageKey,
		})
	}

	return result
}
