// Package geom holds the integer and fractional geometry types shared by the
// layout engines, the workspace and the render composition.
package geom

import "math"

// Point is a location in logical (or, where stated, physical) pixels.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Add returns p translated by o.
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// Sub returns p translated by -o.
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Size is a width/height pair.
type Size struct {
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

// IsEmpty reports whether either dimension is not positive.
func (s Size) IsEmpty() bool {
	return s.W <= 0 || s.H <= 0
}

// Rect represents a window position and size
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// FromLocSize builds a Rect out of a location and a size.
func FromLocSize(loc Point, size Size) Rect {
	return Rect{X: loc.X, Y: loc.Y, Width: size.W, Height: size.H}
}

// Loc returns the top-left corner.
func (r Rect) Loc() Point {
	return Point{X: r.X, Y: r.Y}
}

// Size returns the dimensions.
func (r Rect) Size() Size {
	return Size{W: r.Width, H: r.Height}
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether p lies inside r (right/bottom edges excluded).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Translate moves the rectangle by d.
func (r Rect) Translate(d Point) Rect {
	r.X += d.X
	r.Y += d.Y
	return r
}

// Local returns r with its location reset to the origin.
func (r Rect) Local() Rect {
	return Rect{Width: r.Width, Height: r.Height}
}

// Intersect returns the overlapping area of r and o, and false if they do not
// overlap.
func (r Rect) Intersect(o Rect) (Rect, bool) {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.X+r.Width, o.X+o.Width)
	y2 := min(r.Y+r.Height, o.Y+o.Height)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}, false
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}, true
}

// Center returns the rectangle of size s centered inside r.
func (r Rect) Center(s Size) Rect {
	return Rect{
		X:      r.X + (r.Width-s.W)/2,
		Y:      r.Y + (r.Height-s.H)/2,
		Width:  s.W,
		Height: s.H,
	}
}

// ToPhysical converts a logical rectangle into physical pixels at the given
// fractional scale, rounding to the nearest pixel.
func (r Rect) ToPhysical(scale float64) Rect {
	return Rect{
		X:      int(math.Round(float64(r.X) * scale)),
		Y:      int(math.Round(float64(r.Y) * scale)),
		Width:  int(math.Round(float64(r.Width) * scale)),
		Height: int(math.Round(float64(r.Height) * scale)),
	}
}

// Scale is a per-axis scaling factor.
type Scale struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScaleBetween returns the per-axis factor that maps from onto to. Empty
// sources yield an identity scale.
func ScaleBetween(from, to Size) Scale {
	if from.IsEmpty() {
		return Scale{X: 1, Y: 1}
	}
	return Scale{
		X: float64(to.W) / float64(from.W),
		Y: float64(to.H) / float64(from.H),
	}
}

// RescalePoint maps p, expressed relative to an area of size from, onto an area
// of size to. Each axis is floored.
func RescalePoint(p Point, from, to Size) Point {
	if from.IsEmpty() {
		return p
	}
	return Point{
		X: int(math.Floor(float64(p.X) * float64(to.W) / float64(from.W))),
		Y: int(math.Floor(float64(p.Y) * float64(to.H) / float64(from.H))),
	}
}
