package viewmodels

type CreateViewRequest struct {
	ChapterID string `json:"chapterId"`
}

type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

/*
VisibleRequest carries either the ids the browser saw, or the viewport
and element bounds for the server to evaluate.
*/
type VisibleRequest struct {
	IDs      []string        `json:"ids"`
	Viewport *Rect           `json:"viewport,omitempty"`
	Bounds   map[string]Rect `json:"bounds,omitempty"`
}

type ViewItem struct {
	Photo

	State    string `json:"state"`
	Fallback bool   `json:"fallback"`
}

/*
View is one browser's progress through a gallery. Items holds the
revealed window only; Fetched counts everything pulled from the store.
*/
type View struct {
	BaseViewModel

	ID            string     `json:"id"`
	GalleryID     string     `json:"galleryId"`
	ChapterID     string     `json:"chapterId,omitempty"`
	Action        string     `json:"action,omitempty"`
	Items         []ViewItem `json:"items"`
	RenderedCount int        `json:"renderedCount"`
	Fetched       int        `json:"fetched"`
	Total         int        `json:"total"`
	HasMore       bool       `json:"hasMore"`
	IsLoading     bool       `json:"isLoading"`
	CanLoadMore   bool       `json:"canLoadMore"`
	Progress      float64    `json:"progress"`
}

type Settings struct {
	BasePath     string  `json:"basePath"`
	ItemsPerPage int     `json:"itemsPerPage"`
	RootMargin   float64 `json:"rootMargin"`
	Threshold    float64 `json:"threshold"`
}

type VisibleReported struct {
	BaseViewModel

	Accepted int `json:"accepted"`
}
