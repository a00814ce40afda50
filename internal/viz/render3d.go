package viz

import (
	"math"

	"github.com/san-kum/phasefield/internal/dynamo"
)

// Camera is an orthographic view of the field: nodes are rotated about the
// field center and scaled so the whole extent fits the screen. Terminal cells
// are about twice as tall as wide, so x is stretched by Aspect.
type Camera struct {
	Center     dynamo.Vec3
	Extent     float64
	RotX, RotY float64
	Zoom       float64
	Aspect     float64
}

// NewCamera frames the box [lo, hi].
func NewCamera(lo, hi dynamo.Vec3) *Camera {
	span := hi.Sub(lo)
	c := &Camera{
		Center: lo.Add(hi).Scale(0.5),
		Extent: span.Norm() / 2,
		Zoom:   1,
		Aspect: 2,
	}
	if span.Z == 0 {
		c.Extent = math.Max(span.X, span.Y) / 2
	}
	if !(c.Extent > 0) {
		c.Extent = 1
	}
	return c
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

func (c *Camera) rotate(p dynamo.Vec3) dynamo.Vec3 {
	sx, cx := math.Sincos(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	sy, cy := math.Sincos(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	return p
}

func (c *Camera) unrotate(p dynamo.Vec3) dynamo.Vec3 {
	sy, cy := math.Sincos(-c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	sx, cx := math.Sincos(-c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	return p
}

// scale returns screen units per world unit along y for a w x h screen.
func (c *Camera) scale(w, h int) float64 {
	half := math.Min(float64(w)/(2*c.Aspect), float64(h)/2)
	return c.Zoom * math.Max(half-0.5, 0.5) / c.Extent
}

// Project maps p to a cell and its depth. ok is false off screen.
func (c *Camera) Project(p dynamo.Vec3, w, h int) (x, y int, depth float64, ok bool) {
	r := c.rotate(p.Sub(c.Center))
	s := c.scale(w, h)
	x = int(math.Round(float64(w-1)/2 + r.X*s*c.Aspect))
	y = int(math.Round(float64(h-1)/2 - r.Y*s))
	return x, y, r.Z, x >= 0 && x < w && y >= 0 && y < h
}

// Unproject returns the world point at cell (x, y) on the view plane
// through the field center.
func (c *Camera) Unproject(x, y, w, h int) dynamo.Vec3 {
	s := c.scale(w, h)
	r := dynamo.Vec3{
		X: (float64(x) - float64(w-1)/2) / (s * c.Aspect),
		Y: (float64(h-1)/2 - float64(y)) / s,
	}
	return c.unrotate(r).Add(c.Center)
}
