package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTileKindBlockingAndCapturable(t *testing.T) {
	assert.False(t, TileWalkable.Blocking())
	assert.True(t, TileWalkable.Capturable())

	assert.False(t, TileGenerator.Blocking())
	assert.True(t, TileGenerator.Capturable())

	for _, k := range []TileKind{TileWall, TileMirror, TileHole, TileBoundary} {
		assert.True(t, k.Blocking(), "%s should block", k)
		assert.False(t, k.Capturable(), "%s should not be capturable", k)
	}
}

func TestTileCoordKey(t *testing.T) {
	c := TileCoord{X: 3, Y: -2}
	assert.Equal(t, "3,-2", c.Key())
}

func TestGridAtOutOfBoundsIsBoundary(t *testing.T) {
	g := &Grid{Width: 5, Height: 5, tiles: make([]TileKind, 25)}
	assert.Equal(t, TileBoundary, g.At(-1, 0))
	assert.Equal(t, TileBoundary, g.At(0, -1))
	assert.Equal(t, TileBoundary, g.At(5, 0))
	assert.Equal(t, TileBoundary, g.At(0, 5))
}

func TestGridNewOwnershipMapCoversOnlyCapturable(t *testing.T) {
	g := &Grid{Width: 2, Height: 1, tiles: []TileKind{TileWalkable, TileWall}}
	owners := g.NewOwnershipMap()
	assert.Len(t, owners, 1)
	owner, ok := owners[TileCoord{0, 0}]
	assert.True(t, ok)
	assert.Equal(t, "", owner)
	_, ok = owners[TileCoord{1, 0}]
	assert.False(t, ok)
}

func TestGridCapturableCount(t *testing.T) {
	g := &Grid{Width: 3, Height: 1, tiles: []TileKind{TileWalkable, TileGenerator, TileWall}}
	assert.Equal(t, 2, g.CapturableCount())
}

// TestGenerateGridSpawnsConnected exercises the invariant that every corner
// spawn is reachable from every other over {walkable, generator} tiles
// (spec invariant I1), across several random seeds.
func TestGenerateGridSpawnsConnected(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		g := GenerateGrid(rng)
		assert.True(t, g.spawnsConnected(), "seed %d: spawns not connected", seed)
	}
}

func TestGenerateGridHasOuterWallRing(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	g := GenerateGrid(rng)
	for x := 0; x < g.Width; x++ {
		assert.Equal(t, TileWall, g.At(x, 0))
		assert.Equal(t, TileWall, g.At(x, g.Height-1))
	}
	for y := 0; y < g.Height; y++ {
		assert.Equal(t, TileWall, g.At(0, y))
		assert.Equal(t, TileWall, g.At(g.Width-1, y))
	}
}

func TestGenerateGridSpawnAreasAreClear(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	g := GenerateGrid(rng)
	for _, sp := range g.SpawnPoints {
		assert.Equal(t, TileWalkable, g.AtCoord(sp))
	}
}

func TestGenerateGridHasGenerators(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := GenerateGrid(rng)
	assert.GreaterOrEqual(t, len(g.Generators), 8)
	assert.LessOrEqual(t, len(g.Generators), 12)
}
