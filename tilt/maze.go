package tilt

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/paulmach/orb"
)

// Cell is one maze cell. A wall flag is true while the wall stands; the
// flag on a shared side always agrees with the neighbor's record. North is
// the low-Y side, south the high-Y side.
type Cell struct {
	North, South, East, West bool

	visited bool
}

// Maze is a perfect maze over a Width x Height grid laid out on a physical
// sheet: every cell is reachable from every other cell by exactly one path.
// The grid is carved once and never mutated afterwards, so it is safe to
// share by reference with the simulator and the renderers; use Regenerated
// to obtain a new layout instead of re-carving a shared instance.
type Maze struct {
	Width, Height         int
	CellWidth, CellHeight float64
	WallThickness         float64
	Seed                  int64

	cells []Cell
}

// WallBox is an axis-aligned wall volume in sheet space: a 2D footprint
// plus a vertical extent, for the external mesh builder and the renderers.
type WallBox struct {
	Bound  orb.Bound
	Z0, Z1 float64
}

// NewMaze allocates a maze grid over the given sheet. All walls start
// present; call Generate to carve the passages.
func NewMaze(width, height int, sheetWidth, sheetHeight, wallThickness float64) (*Maze, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("maze dimensions must be positive, got %dx%d", width, height)
	}
	if sheetWidth <= 0 || sheetHeight <= 0 {
		return nil, fmt.Errorf("sheet dimensions must be positive, got %gx%g", sheetWidth, sheetHeight)
	}

	m := &Maze{
		Width:         width,
		Height:        height,
		CellWidth:     sheetWidth / float64(width),
		CellHeight:    sheetHeight / float64(height),
		WallThickness: wallThickness,
		cells:         make([]Cell, width*height),
	}
	for i := range m.cells {
		m.cells[i] = Cell{North: true, South: true, East: true, West: true}
	}
	return m, nil
}

// At returns the cell at grid position (x, y), clamping out-of-range
// indices to the nearest edge cell.
func (m *Maze) At(x, y int) *Cell {
	if x < 0 {
		x = 0
	}
	if x >= m.Width {
		x = m.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= m.Height {
		y = m.Height - 1
	}
	return &m.cells[y*m.Width+x]
}

// CellIndexAt maps a sheet-space position to the grid cell containing it,
// clamped to the grid bounds.
func (m *Maze) CellIndexAt(x, y float64) (int, int) {
	gx := int(x / m.CellWidth)
	gy := int(y / m.CellHeight)
	if gx < 0 {
		gx = 0
	}
	if gx >= m.Width {
		gx = m.Width - 1
	}
	if gy < 0 {
		gy = 0
	}
	if gy >= m.Height {
		gy = m.Height - 1
	}
	return gx, gy
}

// SheetWidth returns the total maze width in sheet units.
func (m *Maze) SheetWidth() float64 {
	return float64(m.Width) * m.CellWidth
}

// SheetHeight returns the total maze height in sheet units.
func (m *Maze) SheetHeight() float64 {
	return float64(m.Height) * m.CellHeight
}

// Generate carves a perfect maze with randomized depth-first search. A wall
// is only removed when stepping into an unvisited cell, so exactly
// Width*Height-1 walls fall and the open-passage graph is a spanning tree:
// connected, acyclic, every cell reachable.
//
// seed 0 seeds from the wall clock; any other value is reproducible.
func (m *Maze) Generate(seed int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	m.Seed = seed
	rng := rand.New(rand.NewSource(seed))

	// Restore all walls so regeneration starts from a clean grid.
	for i := range m.cells {
		m.cells[i] = Cell{North: true, South: true, East: true, West: true}
	}

	type pos struct{ x, y int }
	stack := []pos{{0, 0}}
	m.At(0, 0).visited = true

	// Neighbor order: south, east, north, west.
	dirs := [4][2]int{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]

		var neighbors []pos
		for _, d := range dirs {
			nx, ny := cur.x+d[0], cur.y+d[1]
			if nx >= 0 && nx < m.Width && ny >= 0 && ny < m.Height && !m.At(nx, ny).visited {
				neighbors = append(neighbors, pos{nx, ny})
			}
		}

		if len(neighbors) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		next := neighbors[rng.Intn(len(neighbors))]
		c := m.At(cur.x, cur.y)
		n := m.At(next.x, next.y)

		switch {
		case next.x > cur.x:
			c.East, n.West = false, false
		case next.x < cur.x:
			c.West, n.East = false, false
		case next.y > cur.y:
			c.South, n.North = false, false
		case next.y < cur.y:
			c.North, n.South = false, false
		}

		n.visited = true
		stack = append(stack, next)
	}
}

// Regenerated carves a fresh maze with the same geometry from seed, leaving
// the receiver untouched. Readers still holding the old maze keep seeing a
// consistent grid.
func (m *Maze) Regenerated(seed int64) *Maze {
	next := &Maze{
		Width:         m.Width,
		Height:        m.Height,
		CellWidth:     m.CellWidth,
		CellHeight:    m.CellHeight,
		WallThickness: m.WallThickness,
		cells:         make([]Cell, m.Width*m.Height),
	}
	next.Generate(seed)
	return next
}

// WallBoxes derives the standing wall volumes in sheet space: the four
// border slabs, then for each cell its north and west walls (shared walls
// emitted once), plus east on the last column and south on the last row.
func (m *Maze) WallBoxes(wallHeight float64) []WallBox {
	t := m.WallThickness
	w := m.SheetWidth()
	h := m.SheetHeight()

	box := func(minX, minY, maxX, maxY float64) WallBox {
		return WallBox{
			Bound: orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}},
			Z0:    0,
			Z1:    wallHeight,
		}
	}

	boxes := []WallBox{
		box(0, 0, w, t),   // north border
		box(0, h-t, w, h), // south border
		box(0, 0, t, h),   // west border
		box(w-t, 0, w, h), // east border
	}

	for gy := 0; gy < m.Height; gy++ {
		for gx := 0; gx < m.Width; gx++ {
			c := m.At(gx, gy)

			x0 := float64(gx) * m.CellWidth
			y0 := float64(gy) * m.CellHeight
			x1 := x0 + m.CellWidth
			y1 := y0 + m.CellHeight

			if c.North {
				boxes = append(boxes, box(x0, y0, x1, y0+t))
			}
			if c.West {
				boxes = append(boxes, box(x0, y0, x0+t, y1))
			}
			if gx == m.Width-1 && c.East {
				boxes = append(boxes, box(x1-t, y0, x1, y1))
			}
			if gy == m.Height-1 && c.South {
				boxes = append(boxes, box(x0, y1-t, x1, y1))
			}
		}
	}

	return boxes
}

// OpenPassages counts the removed walls, counting each shared opening once.
func (m *Maze) OpenPassages() int {
	n := 0
	for gy := 0; gy < m.Height; gy++ {
		for gx := 0; gx < m.Width; gx++ {
			c := m.At(gx, gy)
			if gx+1 < m.Width && !c.East {
				n++
			}
			if gy+1 < m.Height && !c.South {
				n++
			}
		}
	}
	return n
}
