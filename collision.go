package main

import "math"

// CheckCollision reports whether two circles overlap, used for coin-drop
// pickup radius checks (spec §4.5).
func CheckCollision(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	dist2 := dx*dx + dy*dy
	radSum := r1 + r2
	return dist2 <= radSum*radSum
}

// circleRectOverlap reports whether a circle at (cx,cy) with radius r
// overlaps the axis-aligned tile square centered on (tx,ty) spanning
// [tx-0.5, tx+0.5] (spec §3).
func circleRectOverlap(cx, cy, r float64, tx, ty int) bool {
	minX, maxX := float64(tx)-0.5, float64(tx)+0.5
	minY, maxY := float64(ty)-0.5, float64(ty)+0.5

	nearestX := math.Max(minX, math.Min(cx, maxX))
	nearestY := math.Max(minY, math.Min(cy, maxY))

	return Dist2(cx, cy, nearestX, nearestY) <= r*r
}

// circleOverlapsBlocking reports whether a circle of radius r centered at
// (cx,cy) overlaps any blocking tile in the window of tiles it could
// possibly reach, floor(c±r)±1 in each axis (spec §4.3's swept collision
// step — the extra tile of padding on each side covers the case where
// floor(c+r) undercounts because frac(c+r) sits near 0). Grounded on
// Mikko-Finell-mine-and-die/server/obstacles.go's circleRectOverlap,
// generalized from a fixed obstacle list to a scan over the grid window
// under the circle.
func circleOverlapsBlocking(cx, cy, r float64, grid *Grid) bool {
	minX := int(math.Floor(cx-r)) - 1
	maxX := int(math.Floor(cx+r)) + 1
	minY := int(math.Floor(cy-r)) - 1
	maxY := int(math.Floor(cy+r)) + 1

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if !grid.At(x, y).Blocking() {
				continue
			}
			if circleRectOverlap(cx, cy, r, x, y) {
				return true
			}
		}
	}
	return false
}
