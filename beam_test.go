package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func emptyGrid(w, h int) *Grid {
	tiles := make([]TileKind, w*h)
	return &Grid{Width: w, Height: h, tiles: tiles}
}

func TestTileRound(t *testing.T) {
	assert.Equal(t, 5, tileRound(5.0))
	assert.Equal(t, 5, tileRound(5.4))
	assert.Equal(t, 6, tileRound(5.5))
	assert.Equal(t, 4, tileRound(3.6))
}

func TestSpawnBeamBlockedByWallAtMuzzle(t *testing.T) {
	g := emptyGrid(10, 10)
	g.set(6, 5, TileWall)
	b := SpawnBeam(5, 5, 1, 0, false, "p1", "#EF4444", g)
	assert.Nil(t, b)
}

func TestSpawnBeamNormalSpeed(t *testing.T) {
	g := emptyGrid(10, 10)
	b := SpawnBeam(5, 5, 1, 0, false, "p1", "#EF4444", g)
	if assert.NotNil(t, b) {
		assert.Equal(t, beamSpeedNormal, b.Speed)
		assert.True(t, b.Active)
		assert.Equal(t, "p1", b.OwnerID)
	}
}

func TestSpawnBeamBoostedSpeed(t *testing.T) {
	g := emptyGrid(10, 10)
	b := SpawnBeam(5, 5, 1, 0, true, "p1", "#EF4444", g)
	if assert.NotNil(t, b) {
		assert.Equal(t, beamSpeedBoost, b.Speed)
	}
}

func TestSpawnMultishotFiresThreeAngles(t *testing.T) {
	g := emptyGrid(20, 20)
	beams := SpawnMultishot(10, 10, 1, 0, false, "p1", "#EF4444", g)
	assert.Len(t, beams, 3)
}

func TestTraverseTilesStraightLine(t *testing.T) {
	tiles := traverseTiles(0.5, 0.5, 3.5, 0.5)
	assert.Contains(t, tiles, TileCoord{0, 0})
	assert.Contains(t, tiles, TileCoord{1, 0})
	assert.Contains(t, tiles, TileCoord{2, 0})
	assert.Contains(t, tiles, TileCoord{3, 0})
}

func TestTraverseTilesNeverSkipsAtShallowAngle(t *testing.T) {
	// A near-horizontal ray with a slight vertical component must still
	// visit every intervening tile, never jumping diagonally over one.
	tiles := traverseTiles(0.5, 0.5, 10.5, 1.5)
	seen := make(map[TileCoord]bool, len(tiles))
	for _, tc := range tiles {
		seen[tc] = true
	}
	for x := int16(0); x <= 10; x++ {
		found := seen[TileCoord{x, 0}] || seen[TileCoord{x, 1}]
		assert.True(t, found, "column %d not visited", x)
	}
}

func TestUpdateBeamStopsAtWall(t *testing.T) {
	g := emptyGrid(10, 10)
	g.set(7, 5, TileWall)
	b := &Beam{X: 5, Y: 5, DirX: 1, DirY: 0, Speed: beamSpeedNormal, Active: true}
	captured := map[TileCoord]bool{}
	for i := 0; i < 20 && b.Active; i++ {
		UpdateBeam(b, 1.0/20.0, g, false, func(tc TileCoord) { captured[tc] = true })
	}
	assert.False(t, b.Active)
	assert.Less(t, b.X, 7.0)
	assert.True(t, captured[TileCoord{5, 5}] || captured[TileCoord{6, 5}])
}

func TestUpdateBeamCapturesWalkableTilesCrossed(t *testing.T) {
	g := emptyGrid(20, 20)
	b := &Beam{X: 5, Y: 5, DirX: 1, DirY: 0, Speed: beamSpeedNormal, Active: true}
	captured := map[TileCoord]bool{}
	UpdateBeam(b, 0.5, g, false, func(tc TileCoord) { captured[tc] = true })
	assert.True(t, captured[TileCoord{5, 5}])
}

// TestUpdateBeamMirrorReflectsHorizontalDirection reproduces the mirror
// bounce scenario: a beam traveling in +X reflects to -X off a mirror tile
// on a vertical face, per spec's face-based single-mirror-kind model
// (DESIGN.md open question 2).
func TestUpdateBeamMirrorReflectsHorizontalDirection(t *testing.T) {
	g := emptyGrid(20, 20)
	g.set(10, 5, TileMirror)
	b := &Beam{X: 5, Y: 5, DirX: 1, DirY: 0, Speed: beamSpeedNormal, Active: true}
	for i := 0; i < 40 && b.Active; i++ {
		UpdateBeam(b, 1.0/20.0, g, false, func(TileCoord) {})
		if b.DirX < 0 {
			break
		}
	}
	assert.Equal(t, -1.0, b.DirX)
	assert.True(t, b.Active)
}

// TestUpdateBeamMirrorBounceScenarioTwo reproduces spec §8 scenario 2
// literally: mirror at (5,5), beam from (2.0,5.0) dir (1,0) speed 15,
// dt=0.05. Reflection must leave DirX==-1 and the beam active near
// (4.4,5.0) within 0.11.
func TestUpdateBeamMirrorBounceScenarioTwo(t *testing.T) {
	g := emptyGrid(20, 20)
	g.set(5, 5, TileMirror)
	b := &Beam{X: 2.0, Y: 5.0, DirX: 1, DirY: 0, Speed: beamSpeedNormal, Active: true}
	for i := 0; i < 40 && b.Active; i++ {
		UpdateBeam(b, 0.05, g, false, func(TileCoord) {})
		if b.DirX < 0 {
			break
		}
	}
	assert.Equal(t, -1.0, b.DirX)
	assert.True(t, b.Active)
	assert.InDelta(t, 4.4, b.X, 0.11)
	assert.InDelta(t, 5.0, b.Y, 0.11)
}

func TestUpdateBeamPiercingPassesThroughOneWall(t *testing.T) {
	g := emptyGrid(20, 20)
	g.set(7, 5, TileWall)
	b := &Beam{X: 5, Y: 5, DirX: 1, DirY: 0, Speed: beamSpeedNormal, Active: true}
	crossedWall := false
	for i := 0; i < 40 && b.Active; i++ {
		UpdateBeam(b, 1.0/20.0, g, true, func(TileCoord) {})
		if b.X > 7 {
			crossedWall = true
			break
		}
	}
	assert.True(t, crossedWall, "piercing beam should cross the first wall")
}

func TestUpdateBeamExpiresAtMaxLifetime(t *testing.T) {
	g := emptyGrid(200, 20)
	b := &Beam{X: 5, Y: 5, DirX: 1, DirY: 0, Speed: beamSpeedNormal, Active: true}
	for i := 0; i < 300 && b.Active; i++ {
		UpdateBeam(b, 0.1, g, false, func(TileCoord) {})
	}
	assert.False(t, b.Active)
	assert.Equal(t, beamMaxLifetime, b.TimeAlive)
}

func TestUpdateBeamStopsAtHole(t *testing.T) {
	g := emptyGrid(10, 10)
	g.set(7, 5, TileHole)
	b := &Beam{X: 5, Y: 5, DirX: 1, DirY: 0, Speed: beamSpeedNormal, Active: true}
	for i := 0; i < 20 && b.Active; i++ {
		UpdateBeam(b, 1.0/20.0, g, false, func(TileCoord) {})
	}
	assert.False(t, b.Active)
}
