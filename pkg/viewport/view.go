// Package viewport maps arm-space points onto the dashboard canvas: an
// oblique orthographic projection plus the numerically calibrated gains
// that turn screen-pixel drags back into work-plane deltas.
package viewport

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-armdeck/pkg/kinematics"
)

// Default view placement, as fractions of the canvas size. The scale fits
// the arm's full reach inside the viewport.
const (
	centerXFrac = 0.50
	centerYFrac = 0.52
	scaleFrac   = 0.17

	DefaultAzimuth   = -60.0
	DefaultElevation = 30.0
)

// Orbit sensitivity and the elevation stop that keeps the tilt away from
// the degenerate poles.
const (
	azimuthPerPixel   = 0.5
	elevationPerPixel = 0.3
	elevationLimit    = 89.0
)

// Point is a canvas position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// View holds the oblique projection parameters: view angles in degrees
// plus the orthographic screen mapping.
type View struct {
	Azimuth   float64 `json:"azimuth"`
	Elevation float64 `json:"elevation"`
	Scale     float64 `json:"scale"`
	CenterX   float64 `json:"cx"`
	CenterY   float64 `json:"cy"`
}

// NewView returns the default view for a canvas of the given pixel size.
func NewView(width, height float64) View {
	return View{
		Azimuth:   DefaultAzimuth,
		Elevation: DefaultElevation,
		Scale:     width * scaleFrac,
		CenterX:   width * centerXFrac,
		CenterY:   height * centerYFrac,
	}
}

// Project maps a world point to canvas pixels: spin about the vertical
// axis by the azimuth, tilt by the elevation, then scale onto the canvas
// with the vertical axis flipped for screen coordinates. The origin
// always lands on the view center.
func (v View) Project(p mgl64.Vec3) Point {
	ca := math.Cos(kinematics.Radians(v.Azimuth))
	sa := math.Sin(kinematics.Radians(v.Azimuth))
	ce := math.Cos(kinematics.Radians(v.Elevation))
	se := math.Sin(kinematics.Radians(v.Elevation))

	rx := ca*p.X() - sa*p.Y()
	ry := sa*p.X() + ca*p.Y()
	rz := p.Z()

	ex := rx
	ey := ce*ry - se*rz

	return Point{
		X: v.CenterX + v.Scale*ex,
		Y: v.CenterY - v.Scale*ey,
	}
}

// Orbit rotates the view by a mouse delta, clamping the elevation short
// of the poles.
func (v View) Orbit(dx, dy float64) View {
	v.Azimuth += dx * azimuthPerPixel
	v.Elevation = clamp(v.Elevation-dy*elevationPerPixel, -elevationLimit, elevationLimit)
	return v
}

func clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
