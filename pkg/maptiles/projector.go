package maptiles

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	"github.com/SAMS0N1TE/meshtui/pkg/logger"
)

// View is everything that selects a base grid.
type View struct {
	Lat     float64
	Lon     float64
	Zoom    int
	Palette int
	Source  int
}

// Marker is a positioned node to overlay.
type Marker struct {
	Num  uint32
	Lat  float64
	Lon  float64
	Self bool
}

// CacheKey deduplicates renders: coordinates are rounded so that views
// differing only beyond the 4th decimal hit the same entry.
type CacheKey struct {
	Zoom    int
	Lat     float64
	Lon     float64
	Palette int
	Source  int
	W       int
	H       int
}

// FetchRecorder counts tile lookups by result: "hit", "fetched", "error".
type FetchRecorder interface {
	TileFetch(result string)
}

// Projector owns the tile fetch pipeline and the render cache. The cache
// is purely a performance optimization; clearing it at any time is safe.
type Projector struct {
	client  *http.Client
	sources []Source
	record  FetchRecorder

	mu    sync.Mutex
	cache map[CacheKey]Grid

	logger zerolog.Logger
}

func NewProjector() *Projector {
	return NewProjectorWithClient(&http.Client{Timeout: domain.DefaultTileTimeout})
}

func NewProjectorWithClient(client *http.Client) *Projector {
	return &Projector{
		client:  client,
		sources: Sources,
		cache:   make(map[CacheKey]Grid),
		logger:  logger.ComponentLogger("map-projector"),
	}
}

// SetSources overrides the tile source table (tests point it at a local
// httptest server).
func (p *Projector) SetSources(sources []Source) {
	p.sources = sources
}

// SetRecorder wires an optional fetch counter.
func (p *Projector) SetRecorder(r FetchRecorder) {
	p.record = r
}

func (p *Projector) recordFetch(result string) {
	if p.record != nil {
		p.record.TileFetch(result)
	}
}

// SourceCount reports how many tile sources can be cycled through.
func (p *Projector) SourceCount() int {
	return len(p.sources)
}

// InvalidateCache drops all cached grids.
func (p *Projector) InvalidateCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = make(map[CacheKey]Grid)
}

// Key computes the cache key for a view at the given dimensions.
func Key(v View, w, h int) CacheKey {
	return CacheKey{
		Zoom:    v.Zoom,
		Lat:     RoundCoord(v.Lat),
		Lon:     RoundCoord(v.Lon),
		Palette: v.Palette,
		Source:  v.Source,
		W:       w,
		H:       h,
	}
}

// Render produces the final grid: cached base terrain, node markers, then
// the cursor drawn last so it wins ties. cursorX/cursorY < 0 hides the
// cursor. Fetch or decode failures yield a placeholder grid, never an
// error.
func (p *Projector) Render(v View, markers []Marker, cursorX, cursorY, w, h int) Grid {
	base, err := p.baseGrid(v, w, h)
	if err != nil {
		p.logger.Error().Err(err).
			Int("zoom", v.Zoom).
			Float64("lat", v.Lat).
			Float64("lon", v.Lon).
			Msg("map render failed")
		return errorGrid(w, h, err)
	}

	grid := cloneGrid(base)
	p.overlayMarkers(grid, v, markers, w, h)

	if cursorY >= 0 && cursorY < h && cursorX >= 0 && cursorX < w {
		grid[cursorY][cursorX] = Cell{Rune: CursorMarkerRune, Class: ClassCursor}
	}
	return grid
}

func (p *Projector) baseGrid(v View, w, h int) (Grid, error) {
	key := Key(v, w, h)

	p.mu.Lock()
	if g, ok := p.cache[key]; ok {
		p.mu.Unlock()
		p.recordFetch("hit")
		return g, nil
	}
	p.mu.Unlock()

	img, err := p.fetchTile(v)
	if err != nil {
		p.recordFetch("error")
		return nil, err
	}
	p.recordFetch("fetched")

	palette := Palettes[v.Palette%len(Palettes)]
	grid := rasterize(img, palette, w, h)

	p.mu.Lock()
	p.cache[key] = grid
	p.mu.Unlock()
	return grid, nil
}

func (p *Projector) fetchTile(v View) (image.Image, error) {
	src := p.sources[v.Source%len(p.sources)]
	x, y := TileIndex(v.Lat, v.Lon, v.Zoom)
	url := fmt.Sprintf(src.Template, v.Zoom, x, y)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", domain.TileUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tile server returned %s", resp.Status)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tile decode: %w", err)
	}

	p.logger.Debug().Str("source", src.Name).Str("url", url).Msg("tile fetched")
	return img, nil
}

// rasterize block-averages the tile into w×h samples and classifies each.
func rasterize(img image.Image, palette Palette, w, h int) Grid {
	bounds := img.Bounds()
	iw := bounds.Dx()
	ih := bounds.Dy()

	grid := make(Grid, h)
	for cy := 0; cy < h; cy++ {
		row := make([]Cell, w)
		for cx := 0; cx < w; cx++ {
			x0 := bounds.Min.X + cx*iw/w
			x1 := bounds.Min.X + (cx+1)*iw/w
			y0 := bounds.Min.Y + cy*ih/h
			y1 := bounds.Min.Y + (cy+1)*ih/h
			if x1 <= x0 {
				x1 = x0 + 1
			}
			if y1 <= y0 {
				y1 = y0 + 1
			}

			var rs, gs, bs, n uint64
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					r, g, b, _ := img.At(x, y).RGBA()
					rs += uint64(r >> 8)
					gs += uint64(g >> 8)
					bs += uint64(b >> 8)
					n++
				}
			}
			class := classifyPixel(uint8(rs/n), uint8(gs/n), uint8(bs/n))
			row[cx] = Cell{Rune: palette.runeFor(class), Class: class}
		}
		grid[cy] = row
	}
	return grid
}

func (p *Projector) overlayMarkers(grid Grid, v View, markers []Marker, w, h int) {
	top, left, bottom, right := TileBounds(v.Lat, v.Lon, v.Zoom)
	latRange := top - bottom
	lonRange := right - left
	if latRange == 0 || lonRange == 0 {
		return
	}

	for _, m := range markers {
		cx := int((m.Lon - left) / lonRange * float64(w))
		cy := int((top - m.Lat) / latRange * float64(h))
		if cy < 0 || cy >= h || cx < 0 || cx >= w {
			continue
		}
		cell := Cell{Rune: NodeMarkerRune, Class: ClassNode}
		if m.Self {
			cell = Cell{Rune: SelfMarkerRune, Class: ClassSelf}
		}
		grid[cy][cx] = cell
	}
}

func cloneGrid(g Grid) Grid {
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = make([]Cell, len(row))
		copy(out[i], row)
	}
	return out
}

func errorGrid(w, h int, err error) Grid {
	grid := make(Grid, h)
	for y := range grid {
		row := make([]Cell, w)
		for x := range row {
			row[x] = Cell{Rune: ' ', Class: ClassError}
		}
		grid[y] = row
	}
	msg := []rune(fmt.Sprintf("map unavailable: %v", err))
	if h > 0 {
		for x := 0; x < w && x < len(msg); x++ {
			grid[0][x] = Cell{Rune: msg[x], Class: ClassError}
		}
	}
	return grid
}
