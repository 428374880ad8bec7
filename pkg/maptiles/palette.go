package maptiles

// CellClass drives both the glyph choice and the UI color.
type CellClass int

const (
	ClassLand CellClass = iota
	ClassWater
	ClassPark
	ClassRoad
	ClassBuilding
	ClassNode
	ClassSelf
	ClassCursor
	ClassError
)

// Cell is one character cell of a rendered map grid.
type Cell struct {
	Rune  rune
	Class CellClass
}

// Grid is a rendered map: Grid[y][x].
type Grid [][]Cell

// Palette maps terrain classes to glyphs.
type Palette struct {
	Name     string
	Water    rune
	Land     rune
	Park     rune
	Road     rune
	Building rune
}

func (p Palette) runeFor(class CellClass) rune {
	switch class {
	case ClassWater:
		return p.Water
	case ClassPark:
		return p.Park
	case ClassRoad:
		return p.Road
	case ClassBuilding:
		return p.Building
	default:
		return p.Land
	}
}

var Palettes = []Palette{
	{Name: "Simple", Water: '≈', Land: '.', Park: '"', Road: '=', Building: '#'},
	{Name: "Blocks", Water: '█', Land: '░', Park: '▒', Road: '▓', Building: '█'},
	{Name: "Lines", Water: '~', Land: '`', Park: ';', Road: '-', Building: '+'},
	{Name: "High Contrast", Water: ' ', Land: '░', Park: '▒', Road: '▓', Building: '█'},
}

// Source is a tile server. Template takes zoom/x/y.
type Source struct {
	Name     string
	Template string
}

var Sources = []Source{
	{Name: "OpenStreetMap", Template: "https://tile.openstreetmap.org/%d/%d/%d.png"},
	{Name: "OpenTopoMap", Template: "https://tile.opentopomap.org/%d/%d/%d.png"},
	{Name: "Carto Light", Template: "https://basemaps.cartocdn.com/light_all/%d/%d/%d.png"},
}

const (
	NodeMarkerRune   = '●'
	SelfMarkerRune   = '★'
	CursorMarkerRune = '+'
)

// classifyPixel sorts an averaged RGB sample into a terrain class using
// fixed hue/brightness dominance heuristics tuned for street-map tiles.
func classifyPixel(r, g, b uint8) CellClass {
	intensity := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	switch {
	case b > r && b > g && b > 120:
		return ClassWater
	case g > r && g > b && g > 100:
		return ClassPark
	case r > 200 && g > 150 && b < 100:
		return ClassRoad
	case absDiff(r, g) < 20 && absDiff(g, b) < 20 && intensity > 50:
		return ClassBuilding
	default:
		return ClassLand
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
