package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuyPowerupInvalidType(t *testing.T) {
	p := &Player{Coins: 1000}
	err := BuyPowerup(p, PowerupType("nonexistent"))
	assert.ErrorIs(t, err, ErrInvalidPowerup)
}

func TestBuyPowerupNotEnoughCoins(t *testing.T) {
	p := &Player{Coins: 5}
	err := BuyPowerup(p, PowerupSpeed)
	assert.ErrorIs(t, err, ErrNotEnoughCoins)
	assert.Equal(t, 5, p.Coins)
}

func TestBuyPowerupStackableChargesEscalatingCost(t *testing.T) {
	p := &Player{Coins: 1000}
	assert.NoError(t, BuyPowerup(p, PowerupSpeed))
	assert.Equal(t, 1, p.SpeedStacks)
	assert.Equal(t, 1000-15, p.Coins)

	assert.NoError(t, BuyPowerup(p, PowerupSpeed))
	assert.Equal(t, 2, p.SpeedStacks)
	assert.Equal(t, 1000-15-25, p.Coins)
}

func TestBuyPowerupOneShotCannotBeRepurchased(t *testing.T) {
	p := &Player{Coins: 1000}
	assert.NoError(t, BuyPowerup(p, PowerupMultishot))
	assert.True(t, p.HasMultishot)
	assert.Equal(t, 1000-40, p.Coins)

	err := BuyPowerup(p, PowerupMultishot)
	assert.ErrorIs(t, err, ErrAlreadyOwned)
	assert.Equal(t, 1000-40, p.Coins)
}

func TestBuyPowerupPiercingAndBeamSpeedFlatCosts(t *testing.T) {
	p := &Player{Coins: 100}
	assert.NoError(t, BuyPowerup(p, PowerupPiercing))
	assert.True(t, p.HasPiercing)
	assert.Equal(t, 65, p.Coins)

	assert.NoError(t, BuyPowerup(p, PowerupBeamSpeed))
	assert.True(t, p.HasBeamSpeed)
	assert.Equal(t, 35, p.Coins)
}

func TestBuyPowerupExactCostSucceeds(t *testing.T) {
	p := &Player{Coins: 15}
	assert.NoError(t, BuyPowerup(p, PowerupSpeed))
	assert.Equal(t, 0, p.Coins)
}
