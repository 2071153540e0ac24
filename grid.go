package main

import (
	"fmt"
	"math"
	"math/rand"
)

// TileKind is the closed tagged variant of tile contents (spec §3). Mirror
// orientation is deliberately absent — the source's two competing tile
// vocabularies are collapsed to the single-kind, face-based reflection
// model per spec §9's explicit direction.
type TileKind int

const (
	TileWalkable TileKind = iota
	TileGenerator
	TileWall
	TileMirror
	TileHole
	// TileBoundary is a synthetic sentinel never stored in the grid; it is
	// what out-of-bounds reads resolve to.
	TileBoundary
)

func (k TileKind) String() string {
	switch k {
	case TileWalkable:
		return "walkable"
	case TileGenerator:
		return "generator"
	case TileWall:
		return "wall"
	case TileMirror:
		return "mirror"
	case TileHole:
		return "hole"
	case TileBoundary:
		return "boundary"
	default:
		return "unknown"
	}
}

// Blocking reports whether this tile kind stops movement and beams.
func (k TileKind) Blocking() bool {
	return k == TileWall || k == TileMirror || k == TileHole || k == TileBoundary
}

// Capturable reports whether this tile kind can carry an owner.
func (k TileKind) Capturable() bool {
	return k == TileWalkable || k == TileGenerator
}

// TileCoord is a compact grid coordinate, used as a map key in memory
// (spec §9: "key tile maps by a compact (i16,i16) pair").
type TileCoord struct {
	X, Y int16
}

// Key renders the "x,y" wire encoding spec §9 asks to preserve for client
// compatibility.
func (c TileCoord) Key() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

const (
	GridWidth  = 50
	GridHeight = 50
)

// Grid is the static (per-match) tile layout.
type Grid struct {
	Width, Height int
	tiles         []TileKind
	Generators    []TileCoord
	SpawnPoints   [4]TileCoord
}

// At returns the tile kind at (x,y), resolving out-of-bounds reads to the
// boundary sentinel (spec §3).
func (g *Grid) At(x, y int) TileKind {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return TileBoundary
	}
	return g.tiles[y*g.Width+x]
}

func (g *Grid) set(x, y int, k TileKind) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return
	}
	g.tiles[y*g.Width+x] = k
}

// AtCoord is a TileCoord-typed convenience wrapper around At.
func (g *Grid) AtCoord(c TileCoord) TileKind {
	return g.At(int(c.X), int(c.Y))
}

// NewOwnershipMap seeds the ownership map with every capturable tile,
// unowned, satisfying the invariant that ownership keys are exactly the
// capturable subset of the grid (spec §3).
func (g *Grid) NewOwnershipMap() map[TileCoord]string {
	owners := make(map[TileCoord]string, g.Width*g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			k := g.tiles[y*g.Width+x]
			if k.Capturable() {
				owners[TileCoord{int16(x), int16(y)}] = ""
			}
		}
	}
	return owners
}

// CapturableCount returns the total number of walkable+generator tiles,
// the denominator for end-of-match scoring (spec §4.8).
func (g *Grid) CapturableCount() int {
	n := 0
	for _, k := range g.tiles {
		if k.Capturable() {
			n++
		}
	}
	return n
}

// GenerateGrid builds a new 50x50 map (spec §4.1), retrying only on failed
// spawn-to-spawn connectivity. Grounded on the random-walk-obstacle idiom
// of Mikko-Finell-mine-and-die's world_random.go / obstacles.go, adapted
// to a discrete tile grid instead of continuous obstacle rectangles.
func GenerateGrid(rng *rand.Rand) *Grid {
	for attempt := 0; attempt < 50; attempt++ {
		g := generateOnce(rng)
		if g.spawnsConnected() {
			return g
		}
	}
	// Practically unreachable given the generation rules below leave wide
	// forced-walkable corridors around every spawn, but never loop forever.
	return generateOnce(rng)
}

func generateOnce(rng *rand.Rand) *Grid {
	const w, h = GridWidth, GridHeight
	g := &Grid{Width: w, Height: h, tiles: make([]TileKind, w*h)}

	// 1. Fill with walkable.
	for i := range g.tiles {
		g.tiles[i] = TileWalkable
	}

	// 2. Outer ring of wall.
	for x := 0; x < w; x++ {
		g.set(x, 0, TileWall)
		g.set(x, h-1, TileWall)
	}
	for y := 0; y < h; y++ {
		g.set(0, y, TileWall)
		g.set(w-1, y, TileWall)
	}

	// 3. Place 8-12 generators, pairwise distance >= 15, up to 1000 total
	// rejection attempts, accepting fewer on exhaustion.
	target := 8 + rng.Intn(5)
	attempts := 0
	for len(g.Generators) < target && attempts < 1000 {
		attempts++
		gx := 10 + rng.Intn(w-21)
		gy := 10 + rng.Intn(h-21)
		ok := true
		for _, o := range g.Generators {
			dx := float64(gx - int(o.X))
			dy := float64(gy - int(o.Y))
			if math.Hypot(dx, dy) < 15 {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		g.set(gx, gy, TileGenerator)
		g.Generators = append(g.Generators, TileCoord{int16(gx), int16(gy)})
	}

	// 4. Wall clusters: seed, random-walk grow, walkable-only, distance
	// from every generator >= 3.
	clusterCount := 15 + rng.Intn(11)
	for c := 0; c < clusterCount; c++ {
		sx := 5 + rng.Intn(w-11)
		sy := 5 + rng.Intn(h-11)
		size := 3 + rng.Intn(8)
		cx, cy := sx, sy
		placed := 0
		for placed < size {
			if g.At(cx, cy) == TileWalkable && farFromGenerators(g, cx, cy, 3) {
				g.set(cx, cy, TileWall)
				placed++
			}
			switch rng.Intn(4) {
			case 0:
				cx++
			case 1:
				cx--
			case 2:
				cy++
			case 3:
				cy--
			}
			if cx < 1 {
				cx = 1
			} else if cx > w-2 {
				cx = w - 2
			}
			if cy < 1 {
				cy = 1
			} else if cy > h-2 {
				cy = h - 2
			}
		}
	}

	// 5. Holes: walkable tiles, generator distance >= 5, up to 100
	// attempts per hole.
	holeCount := 5 + rng.Intn(6)
	for i := 0; i < holeCount; i++ {
		for attempt := 0; attempt < 100; attempt++ {
			hx := rng.Intn(w)
			hy := rng.Intn(h)
			if g.At(hx, hy) == TileWalkable && farFromGenerators(g, hx, hy, 5) {
				g.set(hx, hy, TileHole)
				break
			}
		}
	}

	// 6. Convert 30% of walls to mirrors.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if g.At(x, y) == TileWall && rng.Float64() < 0.3 {
				g.set(x, y, TileMirror)
			}
		}
	}

	// 7. Spawn points at corners, m=10.
	const m = 10
	g.SpawnPoints = [4]TileCoord{
		{m, m},
		{int16(w - 1 - m), m},
		{m, int16(h - 1 - m)},
		{int16(w - 1 - m), int16(h - 1 - m)},
	}

	// 8. Force clearing around every spawn to walkable.
	for _, sp := range g.SpawnPoints {
		for dy := -5; dy <= 5; dy++ {
			for dx := -5; dx <= 5; dx++ {
				g.set(int(sp.X)+dx, int(sp.Y)+dy, TileWalkable)
			}
		}
	}

	return g
}

func farFromGenerators(g *Grid, x, y int, minDist float64) bool {
	for _, o := range g.Generators {
		dx := float64(x - int(o.X))
		dy := float64(y - int(o.Y))
		if math.Hypot(dx, dy) < minDist {
			return false
		}
	}
	return true
}

// spawnsConnected flood-fills from the first spawn over {walkable,
// generator} and checks every other spawn is reached (spec §4.1 step 9,
// invariant I1).
func (g *Grid) spawnsConnected() bool {
	start := g.SpawnPoints[0]
	visited := make([]bool, g.Width*g.Height)
	queue := []TileCoord{start}
	visited[int(start.Y)*g.Width+int(start.X)] = true

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		neighbors := [4]TileCoord{
			{cur.X + 1, cur.Y}, {cur.X - 1, cur.Y},
			{cur.X, cur.Y + 1}, {cur.X, cur.Y - 1},
		}
		for _, n := range neighbors {
			if int(n.X) < 0 || int(n.Y) < 0 || int(n.X) >= g.Width || int(n.Y) >= g.Height {
				continue
			}
			idx := int(n.Y)*g.Width + int(n.X)
			if visited[idx] {
				continue
			}
			if !g.AtCoord(n).Capturable() {
				continue
			}
			visited[idx] = true
			queue = append(queue, n)
		}
	}

	for _, sp := range g.SpawnPoints[1:] {
		if !visited[int(sp.Y)*g.Width+int(sp.X)] {
			return false
		}
	}
	return true
}
