package main

import "math/rand"

const (
	coinPickupRadius  = 1.0
	maxCoinDrops      = 10
	coinSpawnBaseProb = 0.05

	incomeBase          = 1.0
	incomePerGenerator  = 3.0
)

// CoinDropKind is one of the three weighted drop tiers (spec §3).
type CoinDropKind string

const (
	CoinBronze CoinDropKind = "bronze"
	CoinSilver CoinDropKind = "silver"
	CoinGold   CoinDropKind = "gold"
)

var coinValues = map[CoinDropKind]int{
	CoinBronze: 10,
	CoinSilver: 25,
	CoinGold:   50,
}

var coinTelegraphSeconds = map[CoinDropKind]float64{
	CoinBronze: 3,
	CoinSilver: 5,
	CoinGold:   7,
}

// CoinDrop is a spawned (or telegraphed) pile of coins on the ground.
// Grounded on the teacher's pickup.go (NewPickup/Update/Alive shape),
// generalized from a single health-orb type to three weighted tiers with a
// telegraph delay instead of an expiry timer.
type CoinDrop struct {
	ID          string
	Kind        CoinDropKind
	Value       int
	X, Y        float64
	SpawnAtTick uint64
	Spawned     bool
	Collected   bool
}

// rollCoinKind picks bronze/silver/gold with 60/30/10 weights.
func rollCoinKind(rng *rand.Rand) CoinDropKind {
	r := rng.Float64()
	switch {
	case r < 0.60:
		return CoinBronze
	case r < 0.90:
		return CoinSilver
	default:
		return CoinGold
	}
}

// MaybeSpawnCoinDrop independently rolls a spawn each tick, with probability
// coinSpawnBaseProb/ticksPerSecond, refusing when the soft cap is already
// reached (spec §4.5; spec §9 open question: no eviction of stale drops).
func MaybeSpawnCoinDrop(rng *rand.Rand, tick uint64, ticksPerSecond float64, grid *Grid, existing int) *CoinDrop {
	if existing >= maxCoinDrops {
		return nil
	}
	if rng.Float64() >= coinSpawnBaseProb/ticksPerSecond {
		return nil
	}
	kind := rollCoinKind(rng)
	x := 10 + rng.Float64()*float64(grid.Width-21)
	y := 10 + rng.Float64()*float64(grid.Height-21)
	telegraph := coinTelegraphSeconds[kind]
	return &CoinDrop{
		ID:          shortID(),
		Kind:        kind,
		Value:       coinValues[kind],
		X:           x,
		Y:           y,
		SpawnAtTick: tick + uint64(telegraph*ticksPerSecond),
	}
}

// UpdateTelegraph flips Spawned once the drop's telegraph period elapses.
func (d *CoinDrop) UpdateTelegraph(tick uint64) {
	if !d.Spawned && tick >= d.SpawnAtTick {
		d.Spawned = true
	}
}

// GeneratorIncome computes one tick's passive+generator coin income for a
// player owning ownedGenerators generator tiles (spec §4.5).
func GeneratorIncome(ownedGenerators int, dt float64) float64 {
	return (incomeBase + incomePerGenerator*float64(ownedGenerators)) * dt
}
