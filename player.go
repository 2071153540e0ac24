package main

const (
	PlayerRadius    = 0.4
	BaseSpeed       = 5.0
	BaseMaxEnergy   = 100.0
	BaseEnergyRegen = 10.0
	BaseGlowRadius  = 1.5

	MaxCoins = 300

	// ShootEnergyCost is not given a numeric value anywhere in spec §3/§4.2 —
	// only that a shot is dropped when energy is insufficient and that
	// energy is debited before the muzzle-blocked check (spec §9). Picked a
	// value that lets a full-energy player fire steadily without either
	// trivializing or crippling beam spam; see DESIGN.md open question 5.
	ShootEnergyCost = 8.0

	speedStackBonus  = 0.15
	radiusStackBonus = 0.25
	energyStackBonus = 25.0
	energyRegenBonus = 2.5
)

// PlayerColors are assigned by join order mod 4 (spec §3).
var PlayerColors = [4]string{"#EF4444", "#3B82F6", "#22C55E", "#F59E0B"}

// Player is one participant's live state within a match (spec §3).
type Player struct {
	UserID    string
	Name      string
	AvatarRef string
	Color     string
	JoinIndex int

	X, Y   float64
	VX, VY float64

	Energy    float64
	Coins     int
	coinAccum float64

	SpeedStacks  int
	RadiusStacks int
	EnergyStacks int

	HasMultishot bool
	HasPiercing  bool
	HasBeamSpeed bool

	InputW, InputA, InputS, InputD bool
}

// NewPlayer creates a player at the given spawn point, joining at joinIndex.
func NewPlayer(userID, name, avatarRef string, joinIndex int, spawn TileCoord) *Player {
	p := &Player{
		UserID:    userID,
		Name:      name,
		AvatarRef: avatarRef,
		Color:     PlayerColors[joinIndex%4],
		JoinIndex: joinIndex,
		X:         float64(spawn.X),
		Y:         float64(spawn.Y),
	}
	p.Energy = p.MaxEnergy()
	return p
}

// SpeedMultiplier, MaxEnergy, EnergyRegen, GlowRadius are the derived
// stats of spec §3.
func (p *Player) SpeedMultiplier() float64 {
	return 1 + speedStackBonus*float64(p.SpeedStacks)
}

func (p *Player) MaxEnergy() float64 {
	return BaseMaxEnergy + energyStackBonus*float64(p.EnergyStacks)
}

func (p *Player) EnergyRegen() float64 {
	return BaseEnergyRegen + energyRegenBonus*float64(p.EnergyStacks)
}

func (p *Player) GlowRadius() float64 {
	return BaseGlowRadius + radiusStackBonus*float64(p.RadiusStacks)
}

// SetInput overwrites the live input vector (spec §4.7: "the last-seen
// input vector is what drives movement").
func (p *Player) SetInput(w, a, s, d bool) {
	p.InputW, p.InputA, p.InputS, p.InputD = w, a, s, d
}

// intendedDirection combines the four input booleans into a unit (or
// diagonal-normalized) direction vector (spec §4.3).
func (p *Player) intendedDirection() (float64, float64) {
	var dx, dy float64
	if p.InputD {
		dx++
	}
	if p.InputA {
		dx--
	}
	if p.InputS {
		dy++
	}
	if p.InputW {
		dy--
	}
	if dx != 0 && dy != 0 {
		const inv45 = 0.7071067811865476 // 1/sqrt(2)
		dx *= inv45
		dy *= inv45
	}
	return dx, dy
}

// Move applies axis-decomposed swept collision against the grid (spec
// §4.3), clamps the player inside the map, and regenerates energy.
func (p *Player) Move(dt float64, grid *Grid) {
	dx, dy := p.intendedDirection()
	speed := BaseSpeed * p.SpeedMultiplier()
	p.VX = dx * speed
	p.VY = dy * speed

	proposedX := p.X + p.VX*dt
	if !circleOverlapsBlocking(proposedX, p.Y, PlayerRadius, grid) {
		p.X = proposedX
	}
	proposedY := p.Y + p.VY*dt
	if !circleOverlapsBlocking(p.X, proposedY, PlayerRadius, grid) {
		p.Y = proposedY
	}

	maxX := float64(grid.Width) - 1 - PlayerRadius
	maxY := float64(grid.Height) - 1 - PlayerRadius
	p.X = Clamp(p.X, PlayerRadius, maxX)
	p.Y = Clamp(p.Y, PlayerRadius, maxY)

	p.Energy = Clamp(p.Energy+p.EnergyRegen()*dt, 0, p.MaxEnergy())
}

// CanAffordShot reports whether the player has enough energy to fire.
func (p *Player) CanAffordShot() bool {
	return p.Energy >= ShootEnergyCost
}

// DebitShotEnergy deducts the shot cost. Called unconditionally before the
// muzzle-blocked check per spec §9's preserved open question.
func (p *Player) DebitShotEnergy() {
	p.Energy = Clamp(p.Energy-ShootEnergyCost, 0, p.MaxEnergy())
}

// AddCoins adds value, clamped to the 300-coin hard cap (spec §3).
func (p *Player) AddCoins(v int) {
	p.Coins = ClampInt(p.Coins+v, 0, MaxCoins)
}

// AddCoinIncome accrues a fractional per-tick income value (spec §4.5's
// generator income, which is far below 1 coin/tick at the 50ms tick rate)
// into a running remainder, crediting whole coins via AddCoins once the
// remainder crosses 1.
func (p *Player) AddCoinIncome(v float64) {
	p.coinAccum += v
	whole := int(p.coinAccum)
	if whole > 0 {
		p.coinAccum -= float64(whole)
		p.AddCoins(whole)
	}
}
