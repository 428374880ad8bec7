package state

import (
	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	"github.com/SAMS0N1TE/meshtui/pkg/maptiles"
)

func (s *State) ZoomIn() {
	if s.Map.Zoom < domain.MaxZoom {
		s.Map.Zoom++
		s.invalidateTiles()
	}
}

func (s *State) ZoomOut() {
	if s.Map.Zoom > domain.MinZoom {
		s.Map.Zoom--
		s.invalidateTiles()
	}
}

// SetMapSize adjusts the viewport, clamping the cursor back inside.
func (s *State) SetMapSize(w, h int) {
	if w < 1 || h < 1 {
		return
	}
	s.Map.Width = w
	s.Map.Height = h
	if s.Map.CursorX >= w {
		s.Map.CursorX = w - 1
	}
	if s.Map.CursorY >= h {
		s.Map.CursorY = h - 1
	}
}

// MoveCursor moves the cursor one cell; pushing past the viewport edge
// pans the view by one whole tile and wraps the cursor to the far side.
func (s *State) MoveCursor(dx, dy int) {
	nx := s.Map.CursorX + dx
	ny := s.Map.CursorY + dy

	switch {
	case nx < 0:
		s.panTile(-1, 0)
		s.Map.CursorX = s.Map.Width - 2
	case nx >= s.Map.Width:
		s.panTile(1, 0)
		s.Map.CursorX = 1
	default:
		s.Map.CursorX = nx
	}

	switch {
	case ny < 0:
		s.panTile(0, -1)
		s.Map.CursorY = s.Map.Height - 2
	case ny >= s.Map.Height:
		s.panTile(0, 1)
		s.Map.CursorY = 1
	default:
		s.Map.CursorY = ny
	}
}

func (s *State) panTile(dx, dy int) {
	s.Map.CenterLat, s.Map.CenterLon = maptiles.ShiftTile(
		s.Map.CenterLat, s.Map.CenterLon, s.Map.Zoom, dx, dy)
	s.invalidateTiles()
}

// CenterOnCursor re-centers the view on the coordinate under the cursor.
func (s *State) CenterOnCursor() {
	top, left, bottom, right := maptiles.TileBounds(s.Map.CenterLat, s.Map.CenterLon, s.Map.Zoom)
	latRange := top - bottom
	lonRange := right - left
	if s.Map.Width < 2 || s.Map.Height < 2 {
		return
	}

	s.Map.CenterLat = top - float64(s.Map.CursorY)/float64(s.Map.Height-1)*latRange
	s.Map.CenterLon = left + float64(s.Map.CursorX)/float64(s.Map.Width-1)*lonRange
	s.centerCursor()
	s.invalidateTiles()
}

// CenterOnNode jumps to a positioned node; nodes without a position are
// ignored.
func (s *State) CenterOnNode(num uint32) {
	n, ok := s.Nodes[num]
	if !ok || n.Position == nil {
		return
	}
	s.Map.CenterLat = n.Position.Lat
	s.Map.CenterLon = n.Position.Lon
	s.centerCursor()
	s.invalidateTiles()
}

// RecenterAll frames every positioned node: center on the bounding-box
// midpoint, zoom derived from the angular span.
func (s *State) RecenterAll() {
	nodes := s.PositionedNodes()
	if len(nodes) == 0 {
		return
	}

	minLat, maxLat := nodes[0].Position.Lat, nodes[0].Position.Lat
	minLon, maxLon := nodes[0].Position.Lon, nodes[0].Position.Lon
	for _, n := range nodes[1:] {
		p := n.Position
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
		if p.Lon < minLon {
			minLon = p.Lon
		}
		if p.Lon > maxLon {
			maxLon = p.Lon
		}
	}

	s.Map.CenterLat = (minLat + maxLat) / 2
	s.Map.CenterLon = (minLon + maxLon) / 2
	s.Map.Zoom = maptiles.ZoomForSpan(
		maxLat-minLat, maxLon-minLon,
		domain.DegenerateSpanDeg, domain.DegenerateSpanZoom,
		domain.MinZoom, domain.MaxZoom)
	s.centerCursor()
	s.invalidateTiles()
}

func (s *State) CyclePalette() {
	s.Map.Palette = (s.Map.Palette + 1) % len(maptiles.Palettes)
	s.invalidateTiles()
}

func (s *State) CycleSource() {
	count := 1
	if s.tiles != nil {
		count = s.tiles.SourceCount()
	}
	if count < 1 {
		count = 1
	}
	s.Map.Source = (s.Map.Source + 1) % count
	s.invalidateTiles()
}

func (s *State) centerCursor() {
	s.Map.CursorX = s.Map.Width / 2
	s.Map.CursorY = s.Map.Height / 2
}
