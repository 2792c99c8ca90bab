package visibility

import (
	"sync"
)

const (
	DefaultRootMargin = 150.0
	DefaultThreshold  = 0.1
)

type Intersection struct {
	ID             string
	Ratio          float64
	IsIntersecting bool
}

/*
Observer watches items and calls back when they intersect the viewport.
Implementations may call back from any goroutine.
*/
type Observer interface {
	Observe(id string, callback func(Intersection))
	Unobserve(id string)
	Disconnect()
}

type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (r Rect) Expand(margin float64) Rect {
	return Rect{
		X:      r.X - margin,
		Y:      r.Y - margin,
		Width:  r.Width + margin*2,
		Height: r.Height + margin*2,
	}
}

func (r Rect) Area() float64 {
	return r.Width * r.Height
}

func (r Rect) Intersect(other Rect) (Rect, bool) {
	x1 := max(r.X, other.X)
	y1 := max(r.Y, other.Y)
	x2 := min(r.X+r.Width, other.X+other.Width)
	y2 := min(r.Y+r.Height, other.Y+other.Height)

	if x2 < x1 || y2 < y1 {
		return Rect{}, false
	}

	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}, true
}

type GeometryObserverConfig struct {
	RootMargin float64
	Threshold  float64
}

/*
GeometryObserver computes intersections from element bounds against a
viewport grown by RootMargin on every side. An element counts once the
visible share of its area reaches Threshold.
*/
type GeometryObserver struct {
	rootMargin float64
	threshold  float64

	mu        sync.Mutex
	bounds    map[string]Rect
	callbacks map[string]func(Intersection)
}

func NewGeometryObserver(config GeometryObserverConfig) *GeometryObserver {
	if config.RootMargin < 0 {
		config.RootMargin = 0
	}

	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}

	return &GeometryObserver{
		rootMargin: config.RootMargin,
		threshold:  config.Threshold,
		bounds:     map[string]Rect{},
		callbacks:  map[string]func(Intersection){},
	}
}

func (o *GeometryObserver) SetBounds(id string, bounds Rect) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.bounds[id] = bounds
}

func (o *GeometryObserver) Observe(id string, callback func(Intersection)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.callbacks[id] = callback
}

func (o *GeometryObserver) Unobserve(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.callbacks, id)
}

func (o *GeometryObserver) Disconnect() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.callbacks = map[string]func(Intersection){}
}

/*
Update evaluates every observed element against viewport and calls back
for those that intersect. Callbacks run after the lock is released.
*/
func (o *GeometryObserver) Update(viewport Rect) {
	type hit struct {
		callback     func(Intersection)
		intersection Intersection
	}

	hits := []hit{}
	root := viewport.Expand(o.rootMargin)

	o.mu.Lock()

	for id, callback := range o.callbacks {
		bounds, ok := o.bounds[id]

		if !ok {
			continue
		}

		ratio := intersectionRatio(bounds, root)

		if ratio <= 0 || ratio < o.threshold {
			continue
		}

		hits = append(hits, hit{
			callback:     callback,
			intersection: Intersection{ID: id, Ratio: ratio, IsIntersecting: true},
		})
	}

	o.mu.Unlock()

	for _, h := range hits {
		h.callback(h.intersection)
	}
}

func intersectionRatio(element, root Rect) float64 {
	overlap, ok := element.Intersect(root)

	if !ok {
		return 0
	}

	if element.Area() == 0 {
		return 1
	}

	return overlap.Area() / element.Area()
}

/*
ReportObserver is driven by a remote client that already knows what is on
screen (a browser's IntersectionObserver posting element ids). Reported ids
are treated as fully intersecting.
*/
type ReportObserver struct {
	mu        sync.Mutex
	callbacks map[string]func(Intersection)
}

func NewReportObserver() *ReportObserver {
	return &ReportObserver{
		callbacks: map[string]func(Intersection){},
	}
}

func (o *ReportObserver) Observe(id string, callback func(Intersection)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.callbacks[id] = callback
}

func (o *ReportObserver) Unobserve(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.callbacks, id)
}

func (o *ReportObserver) Disconnect() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.callbacks = map[string]func(Intersection){}
}

// Report returns how many of ids were being observed.
func (o *ReportObserver) Report(ids ...string) int {
	callbacks := []func(Intersection){}
	reported := []string{}

	o.mu.Lock()

	for _, id := range ids {
		if callback, ok := o.callbacks[id]; ok {
			callbacks = append(callbacks, callback)
			reported = append(reported, id)
		}
	}

	o.mu.Unlock()

	for index, callback := range callbacks {
		callback(Intersection{ID: reported[index], Ratio: 1, IsIntersecting: true})
	}

	return len(callbacks)
}
