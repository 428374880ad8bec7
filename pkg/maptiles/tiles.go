// Package maptiles turns a geographic view into a character-cell grid:
// slippy-map tile math, tile fetching, pixel classification, and a render
// cache. It is a coarse approximation by design, not a pixel-accurate map.
package maptiles

import "math"

// TileIndex converts a coordinate to the containing slippy-map tile at
// the given zoom (the standard Mercator asinh/tan relation).
func TileIndex(lat, lon float64, zoom int) (int, int) {
	latRad := lat * math.Pi / 180
	n := math.Exp2(float64(zoom))
	x := int((lon + 180.0) / 360.0 * n)
	y := int((1.0 - math.Asinh(math.Tan(latRad))/math.Pi) / 2.0 * n)
	return x, y
}

// TileOrigin is the inverse: the north-west corner of tile (x, y).
// Fractional tile coordinates are accepted, so (x+0.5, y+0.5) yields the
// tile center.
func TileOrigin(x, y float64, zoom int) (float64, float64) {
	n := math.Exp2(float64(zoom))
	lon := x/n*360.0 - 180.0
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*y/n)))
	lat := latRad * 180 / math.Pi
	return lat, lon
}

// TileBounds returns the NW and SE corners of the tile containing the
// coordinate at the given zoom.
func TileBounds(lat, lon float64, zoom int) (top, left, bottom, right float64) {
	x, y := TileIndex(lat, lon, zoom)
	top, left = TileOrigin(float64(x), float64(y), zoom)
	bottom, right = TileOrigin(float64(x+1), float64(y+1), zoom)
	return top, left, bottom, right
}

// ShiftTile moves the center by whole tiles and returns the new center
// (the middle of the destination tile). Used for cursor pan-at-edge.
func ShiftTile(lat, lon float64, zoom, dx, dy int) (float64, float64) {
	x, y := TileIndex(lat, lon, zoom)
	return TileOrigin(float64(x+dx)+0.5, float64(y+dy)+0.5, zoom)
}

// ZoomForSpan picks a zoom level from the angular span of a node bounding
// box: larger span, lower zoom. A near-zero span means all nodes sit in
// one spot, so use a fixed close-up zoom.
func ZoomForSpan(latSpan, lonSpan, degenerate float64, degenerateZoom, minZoom, maxZoom int) int {
	span := math.Max(math.Abs(latSpan), math.Abs(lonSpan))
	if span < degenerate {
		return degenerateZoom
	}
	z := int(8 - math.Log2(span))
	if z < minZoom {
		z = minZoom
	}
	if z > maxZoom {
		z = maxZoom
	}
	return z
}

// RoundCoord rounds to the cache precision (4 decimals ≈ 11 m), enough to
// deduplicate visually identical views without unbounded cache growth.
func RoundCoord(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
