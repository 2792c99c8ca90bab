package galleryview

import (
	"log/slog"
	"net/http"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/weddingshare/cmd/website/internal/viewmodels"
	"github.com/adampresley/weddingshare/pkg/pagination"
	"github.com/adampresley/weddingshare/pkg/visibility"
)

type GalleryViewControllerConfig struct {
	MediaURLs viewmodels.MediaURLs
	Registry  *ViewRegistry
	Settings  viewmodels.Settings
}

type GalleryViewController struct {
	mediaURLs viewmodels.MediaURLs
	registry  *ViewRegistry
	settings  viewmodels.Settings
}

func NewGalleryViewController(config GalleryViewControllerConfig) GalleryViewController {
	return GalleryViewController{
		mediaURLs: config.MediaURLs,
		registry:  config.Registry,
		settings:  config.Settings,
	}
}

/*
POST /api/galleries/{code}/views
*/
func (c GalleryViewController) CreateView(w http.ResponseWriter, r *http.Request) {
	var (
		err  error
		view *ViewSession
	)

	gallery := viewmodels.GetGalleryFromContext(r)

	if gallery == nil {
		viewmodels.WriteMessage(w, http.StatusNotFound, "gallery not found")
		return
	}

	request := viewmodels.CreateViewRequest{}

	if r.ContentLength != 0 {
		if err = viewmodels.ReadJSON(r, &request); err != nil {
			viewmodels.WriteMessage(w, http.StatusBadRequest, "invalid request")
			return
		}
	}

	if view, err = c.registry.Create(r.Context(), gallery.ID, request.ChapterID); err != nil {
		slog.Error("error creating gallery view", "error", err, "galleryID", gallery.ID)
		viewmodels.WriteUnexpectedError(w)
		return
	}

	viewmodels.WriteJSON(w, http.StatusCreated, view.Snapshot(c.mediaURLs))
}

/*
GET /api/views/{id}
*/
func (c GalleryViewController) GetView(w http.ResponseWriter, r *http.Request) {
	view, ok := c.getView(w, r)

	if !ok {
		return
	}

	viewmodels.WriteJSON(w, http.StatusOK, view.Snapshot(c.mediaURLs))
}

/*
POST /api/views/{id}/more
*/
func (c GalleryViewController) RequestMore(w http.ResponseWriter, r *http.Request) {
	view, ok := c.getView(w, r)

	if !ok {
		return
	}

	action, err := view.RequestMore(r.Context())
	snapshot := view.Snapshot(c.mediaURLs)
	snapshot.Action = action.String()

	if err != nil {
		slog.Error("error loading more photos", "error", err, "viewID", view.ID, "galleryID", view.GalleryID)

		snapshot.IsError = true
		snapshot.Message = "Could not load more photos. Please try again."
		viewmodels.WriteJSON(w, http.StatusBadGateway, snapshot)
		return
	}

	if action == pagination.ActionNone && snapshot.IsLoading {
		snapshot.Message = "already loading"
	}

	viewmodels.WriteJSON(w, http.StatusOK, snapshot)
}

/*
POST /api/views/{id}/visible
*/
func (c GalleryViewController) ReportVisible(w http.ResponseWriter, r *http.Request) {
	view, ok := c.getView(w, r)

	if !ok {
		return
	}

	request := viewmodels.VisibleRequest{}

	if err := viewmodels.ReadJSON(r, &request); err != nil {
		viewmodels.WriteMessage(w, http.StatusBadRequest, "invalid request")
		return
	}

	accepted := view.ReportVisible(request.IDs)

	if request.Viewport != nil && len(request.Bounds) > 0 {
		bounds := make(map[string]visibility.Rect, len(request.Bounds))

		for id, rect := range request.Bounds {
			bounds[id] = toRect(rect)
		}

		accepted += view.ReportBounds(toRect(*request.Viewport), bounds)
	}

	viewmodels.WriteJSON(w, http.StatusOK, viewmodels.VisibleReported{
		Accepted: accepted,
	})
}

/*
GET /api/settings
*/
func (c GalleryViewController) Settings(w http.ResponseWriter, r *http.Request) {
	viewmodels.WriteJSON(w, http.StatusOK, c.settings)
}

/*
DELETE /api/views/{id}
*/
func (c GalleryViewController) DeleteView(w http.ResponseWriter, r *http.Request) {
	view, ok := c.getView(w, r)

	if !ok {
		return
	}

	c.registry.Remove(view.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (c GalleryViewController) getView(w http.ResponseWriter, r *http.Request) (*ViewSession, bool) {
	id := httphelpers.GetFromRequest[string](r, "id")
	view, err := c.registry.Get(id)

	if err != nil {
		viewmodels.WriteMessage(w, http.StatusNotFound, "view not found")
		return nil, false
	}

	if !viewmodels.HasGalleryAccess(r, view.GalleryID) {
		viewmodels.WriteAccessRequired(w)
		return nil, false
	}

	return view, true
}

func toRect(rect viewmodels.Rect) visibility.Rect {
	return visibility.Rect{
		X:      rect.X,
		Y:      rect.Y,
		Width:  rect.Width,
		Height: rect.Height,
	}
}
