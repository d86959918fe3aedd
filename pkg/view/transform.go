// Package view holds the pan/zoom state applied to a rendered diagram.
//
// The state is presentation only: it never affects what is rendered, and
// it is reset whenever the displayed artifact changes identity. Every
// transition clamps its inputs instead of rejecting them.
package view

import (
	"fmt"
	"math"
)

const (
	// MinZoom and MaxZoom bound the zoom factor.
	MinZoom = 0.1
	MaxZoom = 5.0

	// ZoomStep is the factor applied by ZoomIn and ZoomOut.
	ZoomStep = 1.2

	// Wheel factors for scrolling down (out) and up (in).
	WheelOut = 0.9
	WheelIn  = 1.1
)

// Transform is the zoom and pan applied to the artifact.
// A content point p is displayed at Pan + Zoom*p.
type Transform struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"pan_x"`
	PanY float64 `json:"pan_y"`
}

// Default returns the identity transform.
func Default() Transform {
	return Transform{Zoom: 1}
}

// Percent returns the zoom as a rounded percentage, e.g. 120.
func (t Transform) Percent() int {
	return int(math.Round(t.Zoom * 100))
}

// CSS returns the transform as a CSS transform value.
func (t Transform) CSS() string {
	return fmt.Sprintf("translate(%gpx, %gpx) scale(%g)", t.PanX, t.PanY, t.Zoom)
}

// Point is a pointer position in display coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Controller applies zoom and drag input to a Transform.
// It is not safe for concurrent use; owners serialize access.
type Controller struct {
	t        Transform
	dragging bool
	origin   Point // pointer position at drag start
	panStart Point // pan at drag start
}

// NewController returns a controller holding the default transform.
func NewController() *Controller {
	return &Controller{t: Default()}
}

// Transform returns the current transform.
func (c *Controller) Transform() Transform { return c.t }

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool { return c.dragging }

// ZoomIn multiplies the zoom by ZoomStep.
func (c *Controller) ZoomIn() { c.ZoomBy(ZoomStep, nil) }

// ZoomOut divides the zoom by ZoomStep.
func (c *Controller) ZoomOut() { c.ZoomBy(1/ZoomStep, nil) }

// ZoomBy multiplies the zoom by factor. When anchor is non-nil the content
// under the anchor stays in place. Non-positive or non-finite factors are
// ignored.
func (c *Controller) ZoomBy(factor float64, anchor *Point) {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return
	}
	old := c.t.Zoom
	next := clamp(old*factor, MinZoom, MaxZoom)
	if anchor != nil && old > 0 {
		ratio := next / old
		c.t.PanX = anchor.X - (anchor.X-c.t.PanX)*ratio
		c.t.PanY = anchor.Y - (anchor.Y-c.t.PanY)*ratio
	}
	c.t.Zoom = next
}

// Wheel zooms for a scroll delta: positive deltaY zooms out.
func (c *Controller) Wheel(deltaY float64, anchor *Point) {
	if deltaY > 0 {
		c.ZoomBy(WheelOut, anchor)
		return
	}
	c.ZoomBy(WheelIn, anchor)
}

// Reset restores the default transform and ends any drag.
func (c *Controller) Reset() {
	c.t = Default()
	c.dragging = false
}

// BeginDrag starts a drag at p.
func (c *Controller) BeginDrag(p Point) {
	c.dragging = true
	c.origin = p
	c.panStart = Point{X: c.t.PanX, Y: c.t.PanY}
}

// DragTo moves the pan by the pointer displacement since BeginDrag.
// It does nothing when no drag is active.
func (c *Controller) DragTo(p Point) {
	if !c.dragging || !finite(p.X) || !finite(p.Y) {
		return
	}
	c.t.PanX = c.panStart.X + (p.X - c.origin.X)
	c.t.PanY = c.panStart.Y + (p.Y - c.origin.Y)
}

// EndDrag stops the drag. Calling it again is harmless.
func (c *Controller) EndDrag() {
	c.dragging = false
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
