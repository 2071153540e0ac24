package main

import "math"

const (
	beamSpeedNormal = 15.0
	beamSpeedBoost  = 30.0
	beamMaxLifetime = 10.0
	beamMuzzleGap   = 0.6
	beamMirrorPush  = 0.1
	beamEdgeInset   = 1e-2
	beamMaxTraverse = 500
)

// Beam is a moving capture ray fired by a player (spec §3).
type Beam struct {
	ID           string
	OwnerID      string
	Color        string
	X, Y         float64
	DirX, DirY   float64
	Speed        float64
	TimeAlive    float64
	PiercingUsed bool
	Active       bool
}

// tileRound maps a continuous coordinate to the tile whose centered span
// [v-0.5, v+0.5] contains it (spec §3).
func tileRound(v float64) int {
	return int(math.Floor(v + 0.5))
}

// SpawnBeam produces a single beam from a shooter's position and desired
// direction, or nil if the muzzle is blocked (spec §4.2). The caller is
// responsible for the energy-deduction-before-muzzle-check ordering
// (spec §9 open question) — that lives in match.go's shoot handler.
func SpawnBeam(px, py, dx, dy float64, boosted bool, ownerID, color string, grid *Grid) *Beam {
	dx, dy = Normalize(dx, dy, 1e-3, 1, 0)

	mx := px + beamMuzzleGap*dx
	my := py + beamMuzzleGap*dy
	tile := grid.At(tileRound(mx), tileRound(my))
	if tile == TileWall || tile == TileHole || tile == TileBoundary {
		return nil
	}

	speed := beamSpeedNormal
	if boosted {
		speed = beamSpeedBoost
	}
	return &Beam{
		ID:      shortID(),
		OwnerID: ownerID,
		Color:   color,
		X:       px,
		Y:       py,
		DirX:    dx,
		DirY:    dy,
		Speed:   speed,
		Active:  true,
	}
}

// SpawnMultishot fires three beams at theta, theta+pi/12, theta-pi/12,
// discarding any that are muzzle-blocked (spec §4.2).
func SpawnMultishot(px, py, dx, dy float64, boosted bool, ownerID, color string, grid *Grid) []*Beam {
	dx, dy = Normalize(dx, dy, 1e-3, 1, 0)
	theta := math.Atan2(dy, dx)
	angles := [3]float64{theta, theta + math.Pi/12, theta - math.Pi/12}

	beams := make([]*Beam, 0, 3)
	for _, a := range angles {
		b := SpawnBeam(px, py, math.Cos(a), math.Sin(a), boosted, ownerID, color, grid)
		if b != nil {
			beams = append(beams, b)
		}
	}
	return beams
}

// traverseTiles walks every tile the segment (x0,y0)->(x1,y1) enters, in
// order, using a DDA that never skips a tile even at shallow angles. Ties
// on a simultaneous X/Y crossing step diagonally (spec §4.2 step 3).
//
// Tile i spans [i-0.5, i+0.5) (spec §3), the same convention rayTileEntry
// and tileRound use, so traversal is done in coordinates shifted by +0.5
// (where tile i spans the plain [i, i+1) a floor/DDA expects) and mapped
// back through tileRound-equivalent indices.
func traverseTiles(x0, y0, x1, y1 float64) []TileCoord {
	ux0, uy0 := x0+0.5, y0+0.5
	ux1, uy1 := x1+0.5, y1+0.5
	ix, iy := int(math.Floor(ux0)), int(math.Floor(uy0))
	dx := ux1 - ux0
	dy := uy1 - uy0

	tiles := make([]TileCoord, 0, 8)
	tiles = append(tiles, TileCoord{int16(ix), int16(iy)})
	if dx == 0 && dy == 0 {
		return tiles
	}

	stepX, stepY := 0, 0
	tMaxX, tMaxY := math.Inf(1), math.Inf(1)
	tDeltaX, tDeltaY := math.Inf(1), math.Inf(1)

	if dx > 0 {
		stepX = 1
		tDeltaX = 1 / dx
		tMaxX = (float64(ix+1) - ux0) / dx
	} else if dx < 0 {
		stepX = -1
		tDeltaX = 1 / -dx
		tMaxX = (ux0 - float64(ix)) / -dx
	}
	if dy > 0 {
		stepY = 1
		tDeltaY = 1 / dy
		tMaxY = (float64(iy+1) - uy0) / dy
	} else if dy < 0 {
		stepY = -1
		tDeltaY = 1 / -dy
		tMaxY = (uy0 - float64(iy)) / -dy
	}

	for len(tiles) < beamMaxTraverse {
		if tMaxX >= 1 && tMaxY >= 1 {
			break
		}
		switch {
		case tMaxX < tMaxY:
			ix += stepX
			tMaxX += tDeltaX
		case tMaxY < tMaxX:
			iy += stepY
			tMaxY += tDeltaY
		default:
			ix += stepX
			iy += stepY
			tMaxX += tDeltaX
			tMaxY += tDeltaY
		}
		tiles = append(tiles, TileCoord{int16(ix), int16(iy)})
	}
	return tiles
}

// tileFace identifies which side of a tile's bounding square a ray entered.
type tileFace int

const (
	faceNone tileFace = iota
	faceLeft
	faceRight
	faceTop
	faceBottom
)

// rayTileEntry finds the smallest positive t at which the ray from
// (x0,y0) in direction (dirX,dirY) crosses into tile (tx,ty)'s bounding
// square, and which face it crossed (spec §4.2 step 5, mirror branch).
func rayTileEntry(x0, y0, dirX, dirY float64, tx, ty int) (face tileFace, ex, ey float64, ok bool) {
	txmin, txmax := float64(tx)-0.5, float64(tx)+0.5
	tymin, tymax := float64(ty)-0.5, float64(ty)+0.5

	txEnter, txExit := math.Inf(-1), math.Inf(1)
	if dirX != 0 {
		t1 := (txmin - x0) / dirX
		t2 := (txmax - x0) / dirX
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		txEnter, txExit = t1, t2
	} else if x0 < txmin || x0 > txmax {
		return faceNone, 0, 0, false
	}

	tyEnter, tyExit := math.Inf(-1), math.Inf(1)
	if dirY != 0 {
		t1 := (tymin - y0) / dirY
		t2 := (tymax - y0) / dirY
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tyEnter, tyExit = t1, t2
	} else if y0 < tymin || y0 > tymax {
		return faceNone, 0, 0, false
	}

	tEnter := math.Max(txEnter, tyEnter)
	tExit := math.Min(txExit, tyExit)
	if tEnter > tExit || tExit < 0 {
		return faceNone, 0, 0, false
	}
	if tEnter < 0 {
		tEnter = 0
	}

	ex = x0 + dirX*tEnter
	ey = y0 + dirY*tEnter

	if txEnter >= tyEnter {
		if dirX > 0 {
			face = faceLeft
		} else {
			face = faceRight
		}
	} else {
		if dirY > 0 {
			face = faceTop
		} else {
			face = faceBottom
		}
	}
	return face, ex, ey, true
}

// beamOutcome is the result of advancing one beam for one tick.
type beamOutcome struct {
	captured []TileCoord
	ended    bool
}

// UpdateBeam advances a beam by dt against the grid, tagging every
// capturable tile it crosses with capture (applied immediately, spec §4.2
// step 6) and resolving wall/mirror/hole/boundary collisions (step 5).
func UpdateBeam(b *Beam, dt float64, grid *Grid, piercing bool, capture func(TileCoord)) {
	if !b.Active {
		return
	}
	if b.TimeAlive+dt >= beamMaxLifetime {
		b.Active = false
		b.TimeAlive = beamMaxLifetime
		return
	}

	nx := b.X + b.DirX*b.Speed*dt
	ny := b.Y + b.DirY*b.Speed*dt

	path := traverseTiles(b.X, b.Y, nx, ny)

	collisionIdx := -1
	var collisionKind TileKind
	for i, tc := range path {
		k := grid.AtCoord(tc)
		switch k {
		case TileWalkable, TileGenerator:
			capture(tc)
		case TileWall, TileMirror:
			collisionIdx = i
			collisionKind = k
		case TileHole, TileBoundary:
			collisionIdx = i
			collisionKind = k
		}
		if collisionIdx >= 0 {
			break
		}
	}

	if collisionIdx < 0 {
		b.X, b.Y = nx, ny
		b.TimeAlive += dt
		return
	}

	tc := path[collisionIdx]
	switch collisionKind {
	case TileHole, TileBoundary:
		b.Active = false
		b.TimeAlive += dt
		return
	case TileWall:
		if piercing && !b.PiercingUsed {
			b.PiercingUsed = true
			b.X, b.Y = nx, ny
			b.TimeAlive += dt
			return
		}
		face, ex, ey, ok := rayTileEntry(b.X, b.Y, b.DirX, b.DirY, int(tc.X), int(tc.Y))
		if !ok {
			// Degenerate (started inside the tile); stop in place.
			b.Active = false
			b.TimeAlive += dt
			return
		}
		ex, ey = insetFromFace(face, ex, ey, beamEdgeInset)
		b.X, b.Y = ex, ey
		b.Active = false
		b.TimeAlive += dt
		return
	case TileMirror:
		face, ex, ey, ok := rayTileEntry(b.X, b.Y, b.DirX, b.DirY, int(tc.X), int(tc.Y))
		if !ok {
			b.Active = false
			b.TimeAlive += dt
			return
		}
		newDirX, newDirY := b.DirX, b.DirY
		if face == faceLeft || face == faceRight {
			newDirX = -newDirX
		} else {
			newDirY = -newDirY
		}
		afterX := ex + newDirX*beamMirrorPush
		afterY := ey + newDirY*beamMirrorPush
		if grid.At(tileRound(afterX), tileRound(afterY)).Blocking() {
			b.X, b.Y = ex, ey
			b.Active = false
			b.TimeAlive += dt
			return
		}
		b.DirX, b.DirY = newDirX, newDirY
		b.X, b.Y = afterX, afterY
		b.TimeAlive += dt
		return
	}
}

// insetFromFace nudges an entry point 1e-2 back toward the tile the beam
// came from, so the stopped beam doesn't sit exactly on the boundary.
func insetFromFace(face tileFace, x, y, inset float64) (float64, float64) {
	switch face {
	case faceLeft:
		return x - inset, y
	case faceRight:
		return x + inset, y
	case faceTop:
		return x, y - inset
	case faceBottom:
		return x, y + inset
	default:
		return x, y
	}
}
