package main

import "encoding/json"

// Client -> server message kinds (spec §6.1).
const (
	MsgInput      = "input"
	MsgShoot      = "shoot"
	MsgBuyPowerup = "buy_powerup"
	MsgStartGame  = "start_game"
	MsgJoin       = "join"
)

// Server -> client message kinds (spec §6.1).
const (
	MsgPlayerJoined    = "player_joined"
	MsgPlayerLeft      = "player_left"
	MsgGameStarted     = "game_started"
	MsgStateDelta      = "state_delta"
	MsgBeamFired       = "beam_fired"
	MsgBeamEnded       = "beam_ended"
	MsgCoinTelegraph   = "coin_telegraph"
	MsgCoinSpawned     = "coin_spawned"
	MsgCoinCollected   = "coin_collected"
	MsgPowerupBought   = "powerup_purchased"
	MsgGameEnded       = "game_ended"
	MsgJoinedFullState = "joined"
	MsgError           = "error"
)

// Envelope wraps all outgoing messages with a type tag, grounded on the
// teacher's protocol.go Envelope.
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope decodes incoming messages in a single pass, deferring payload
// decoding via json.RawMessage exactly as the teacher's InEnvelope does.
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// ErrorMsg carries a typed failure reason as a plain string (spec §7:
// "clients see typed reasons as strings").
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// --- inbound payloads ---

type InputMsg struct {
	W bool `json:"w"`
	A bool `json:"a"`
	S bool `json:"s"`
	D bool `json:"d"`
}

type ShootMsg struct {
	DirectionX float64 `json:"direction_x"`
	DirectionY float64 `json:"direction_y"`
}

type BuyPowerupMsg struct {
	Type string `json:"type"`
}

type JoinMsg struct {
	Name      string `json:"name"`
	AvatarRef string `json:"avatar_ref"`
}

// --- outbound payloads ---

// PlayerFullState is the complete wire record of a player, used for
// player_joined, join responses, and game_ended.
type PlayerFullState struct {
	UserID    string  `json:"user_id"`
	Name      string  `json:"name"`
	AvatarRef string  `json:"avatar_ref"`
	Color     string  `json:"color"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Energy    float64 `json:"energy"`
	Coins     int     `json:"coins"`
	MaxEnergy float64 `json:"max_energy"`
	GlowRadius float64 `json:"glow_radius"`
	Stacks    StacksState `json:"stacks"`
	Flags     FlagsState  `json:"flags"`
}

type StacksState struct {
	Speed  int `json:"speed"`
	Radius int `json:"radius"`
	Energy int `json:"energy"`
}

type FlagsState struct {
	Multishot bool `json:"multishot"`
	Piercing  bool `json:"piercing"`
	BeamSpeed bool `json:"beam_speed"`
}

// playerToFullState converts live Player state to its wire record.
func playerToFullState(p *Player) PlayerFullState {
	return PlayerFullState{
		UserID:     p.UserID,
		Name:       p.Name,
		AvatarRef:  p.AvatarRef,
		Color:      p.Color,
		X:          round2(p.X),
		Y:          round2(p.Y),
		Energy:     round2(p.Energy),
		Coins:      p.Coins,
		MaxEnergy:  round2(p.MaxEnergy()),
		GlowRadius: round2(p.GlowRadius()),
		Stacks:     StacksState{Speed: p.SpeedStacks, Radius: p.RadiusStacks, Energy: p.EnergyStacks},
		Flags:      FlagsState{Multishot: p.HasMultishot, Piercing: p.HasPiercing, BeamSpeed: p.HasBeamSpeed},
	}
}

// PlayerDelta is the per-tick subset of player state broadcast in
// state_delta (spec §6.1's players map).
type PlayerDelta struct {
	X          float64     `json:"x"`
	Y          float64     `json:"y"`
	Energy     float64     `json:"energy"`
	Coins      int         `json:"coins"`
	MaxEnergy  float64     `json:"max_energy"`
	GlowRadius float64     `json:"glow_radius"`
	Stacks     StacksState `json:"stacks"`
	Flags      FlagsState  `json:"flags"`
}

func playerToDelta(p *Player) PlayerDelta {
	full := playerToFullState(p)
	return PlayerDelta{
		X: full.X, Y: full.Y, Energy: full.Energy, Coins: full.Coins,
		MaxEnergy: full.MaxEnergy, GlowRadius: full.GlowRadius,
		Stacks: full.Stacks, Flags: full.Flags,
	}
}

// BeamState is the wire record of a beam.
type BeamState struct {
	ID           string  `json:"id"`
	OwnerID      string  `json:"owner_user_id"`
	Color        string  `json:"color"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	DirX         float64 `json:"dir_x"`
	DirY         float64 `json:"dir_y"`
	Speed        float64 `json:"speed"`
	PiercingUsed bool    `json:"piercing_used"`
}

func beamToState(b *Beam) BeamState {
	return BeamState{
		ID:           b.ID,
		OwnerID:      b.OwnerID,
		Color:        b.Color,
		X:            round2(b.X),
		Y:            round2(b.Y),
		DirX:         round3(b.DirX),
		DirY:         round3(b.DirY),
		Speed:        b.Speed,
		PiercingUsed: b.PiercingUsed,
	}
}

// CoinDropState is the wire record of a coin drop.
type CoinDropState struct {
	ID      string  `json:"id"`
	Kind    string  `json:"kind"`
	Value   int     `json:"value"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Spawned bool    `json:"spawned"`
}

func coinDropToState(d *CoinDrop) CoinDropState {
	return CoinDropState{
		ID:      d.ID,
		Kind:    string(d.Kind),
		Value:   d.Value,
		X:       round2(d.X),
		Y:       round2(d.Y),
		Spawned: d.Spawned,
	}
}

type PlayerLeftMsg struct {
	UserID string `json:"user_id"`
}

type GameStartedMsg struct {
	TimeRemainingMs *int64 `json:"time_remaining_ms"`
}

// StateDeltaMsg is broadcast every tick (spec §6.1). Tiles maps "x,y" to
// the new owner's user id, or "" for tiles that became unowned — only
// tiles whose owner changed this tick are present.
type StateDeltaMsg struct {
	Tick              uint64                 `json:"tick"`
	ServerTimestampMs int64                  `json:"server_timestamp_ms"`
	TimeRemainingMs   *int64                 `json:"time_remaining_ms,omitempty"`
	Players           map[string]PlayerDelta `json:"players"`
	Beams             []BeamState            `json:"beams"`
	Tiles             map[string]string      `json:"tiles"`
}

type BeamEndedMsg struct {
	ID string `json:"id"`
}

type CoinCollectedMsg struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

type PowerupPurchasedMsg struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
}

type GameEndedMsg struct {
	WinnerID *string                    `json:"winner_id"`
	Scores   map[string]float64         `json:"scores"`
	Players  map[string]PlayerFullState `json:"players"`
}

// JoinResponse is the full state sent to a client immediately after a
// successful join (spec §6.1).
type JoinResponse struct {
	MatchID           string                     `json:"match_id"`
	Code              string                     `json:"code"`
	Status            string                     `json:"status"`
	HostID            string                     `json:"host_id"`
	IsSolo            bool                       `json:"is_solo"`
	GridSize          int                        `json:"grid_size"`
	MapTiles          map[string]string          `json:"map_tiles"`
	TileOwners        map[string]string          `json:"tile_owners"`
	Generators        []string                   `json:"generators"`
	SpawnPoints       []string                   `json:"spawn_points"`
	Players           map[string]PlayerFullState `json:"players"`
	Beams             []BeamState                `json:"beams"`
	CoinDrops         []CoinDropState            `json:"coin_drops"`
	Tick              uint64                     `json:"tick"`
	ServerTimestampMs int64                      `json:"server_timestamp_ms"`
}
