package main

import "errors"

// Membership errors (spec §7).
var (
	ErrMatchNotFound  = errors.New("match_not_found")
	ErrNotInGame      = errors.New("not_in_game")
	ErrMatchFull      = errors.New("match_full")
	ErrGameInProgress = errors.New("game_in_progress")
	ErrAlreadyJoined  = errors.New("already_joined")
)

// Authorization errors.
var ErrNotHost = errors.New("not_host")

// State errors.
var (
	ErrGameAlreadyStarted = errors.New("game_already_started")
	ErrNotEnoughPlayers   = errors.New("not_enough_players")
	ErrGameNotPlaying     = errors.New("game_not_playing")
)

// Resource errors.
var (
	ErrNotEnoughEnergy = errors.New("not_enough_energy")
	ErrNotEnoughCoins  = errors.New("not_enough_coins")
	ErrAlreadyOwned    = errors.New("already_owned")
	ErrInvalidPowerup  = errors.New("invalid_powerup")
)
