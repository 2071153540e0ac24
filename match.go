package main

import (
	"log"
	"math"
	"math/rand"
	"time"
)

// Match status values (spec §3, §4.7).
const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

const (
	defaultTickInterval = 50 * time.Millisecond
	minPlayersMulti     = 2
	minPlayersSolo      = 1
	maxPlayers          = 4
	postGameLinger      = 60 * time.Second
	matchDuration       = 5 * time.Minute
)

// MatchState is one match's isolated, single-threaded actor (spec §5). All
// mutation happens on the goroutine running Run; every other method is a
// thin wrapper that posts a command onto the inbox and, for reply-bearing
// calls, waits on a private reply channel. Grounded on the teacher's
// game.go (tick loop shape, mutex-guarded Game generalized here to a
// channel-mailbox per spec §9's actor-model mapping) and hub.go's
// register/unregister channel idiom.
type MatchState struct {
	ID     string
	Code   string
	HostID string
	IsSolo bool

	status string

	grid      *Grid
	owners    map[TileCoord]string
	players   map[string]*Player
	joinOrder []string
	beams     []*Beam
	coinDrops []*CoinDrop

	tick            uint64
	timeRemainingMs int64 // < 0 means infinite (solo)
	lastTick        time.Time
	startedAt       time.Time
	createdAt       time.Time
	tickInterval    time.Duration

	rng *rand.Rand

	inbox  chan any
	stopCh chan struct{}
	stopped bool

	pubsub    *PubSub
	repo      *Repository
	telemetry *Telemetry

	// onStop, if set, is called once after the actor loop exits, letting a
	// registry drop its handle for an actor that stopped itself (a solo
	// finish, or the last player leaving a waiting match).
	onStop func()
}

// NewMatch constructs a waiting-state match with a freshly generated grid.
// tickInterval of 0 falls back to defaultTickInterval (50ms, spec §4.7).
func NewMatch(id, code, hostID string, isSolo bool, pubsub *PubSub, repo *Repository, telemetry *Telemetry, tickInterval time.Duration) *MatchState {
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}
	rng := rand.New(rand.NewSource(int64(len(id))*2654435761 + time.Now().UnixNano()))
	return &MatchState{
		ID:              id,
		Code:            code,
		HostID:          hostID,
		IsSolo:          isSolo,
		status:          StatusWaiting,
		grid:            GenerateGrid(rng),
		players:         make(map[string]*Player),
		rng:             rng,
		inbox:           make(chan any, 256),
		stopCh:          make(chan struct{}),
		pubsub:          pubsub,
		repo:            repo,
		telemetry:       telemetry,
		timeRemainingMs: -1,
		createdAt:       time.Now(),
		tickInterval:    tickInterval,
	}
}

func (m *MatchState) initOwners() {
	m.owners = m.grid.NewOwnershipMap()
}

// --- command types posted to the inbox ---

type cmdJoin struct {
	userID, name, avatarRef string
	reply                   chan joinResult
}
type joinResult struct {
	resp JoinResponse
	err  error
}
type cmdLeave struct{ userID string }
type cmdInput struct {
	userID          string
	w, a, s, d      bool
}
type cmdShoot struct {
	userID     string
	dx, dy     float64
}
type cmdBuyPowerup struct {
	userID string
	ptype  PowerupType
	reply  chan error
}
type cmdStartGame struct {
	userID string
	reply  chan error
}
type cmdSnapshot struct {
	reply chan matchSnapshot
}

// matchSnapshot is a point-in-time read of actor state for callers outside
// the actor goroutine (the registry's janitor), obtained the same way any
// other caller talks to the actor: post to the inbox, wait on a reply.
type matchSnapshot struct {
	status    string
	createdAt time.Time
}

// --- public actor API ---

// Start runs the actor loop in a new goroutine.
func (m *MatchState) Start() {
	m.initOwners()
	go m.run()
}

func (m *MatchState) run() {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()
	defer func() {
		if m.onStop != nil {
			m.onStop()
		}
	}()
	for {
		select {
		case raw := <-m.inbox:
			m.dispatch(raw)
		case now := <-ticker.C:
			if m.status == StatusPlaying {
				m.onTick(now)
			}
		case <-m.stopCh:
			return
		}
	}
}

func (m *MatchState) dispatch(raw any) {
	switch cmd := raw.(type) {
	case cmdJoin:
		resp, err := m.handleJoin(cmd.userID, cmd.name, cmd.avatarRef)
		cmd.reply <- joinResult{resp, err}
	case cmdLeave:
		m.handleLeave(cmd.userID)
	case cmdInput:
		m.handleInput(cmd.userID, cmd.w, cmd.a, cmd.s, cmd.d)
	case cmdShoot:
		m.handleShoot(cmd.userID, cmd.dx, cmd.dy)
	case cmdBuyPowerup:
		cmd.reply <- m.handleBuyPowerup(cmd.userID, cmd.ptype)
	case cmdStartGame:
		cmd.reply <- m.handleStartGame(cmd.userID)
	case cmdSnapshot:
		cmd.reply <- matchSnapshot{status: m.status, createdAt: m.createdAt}
	}
}

// Join posts a join command and blocks for the response.
func (m *MatchState) Join(userID, name, avatarRef string) (JoinResponse, error) {
	reply := make(chan joinResult, 1)
	m.inbox <- cmdJoin{userID, name, avatarRef, reply}
	res := <-reply
	return res.resp, res.err
}

// Leave posts a fire-and-forget leave command.
func (m *MatchState) Leave(userID string) {
	select {
	case m.inbox <- cmdLeave{userID}:
	case <-m.stopCh:
	}
}

// Input posts a fire-and-forget movement input update.
func (m *MatchState) Input(userID string, w, a, s, d bool) {
	select {
	case m.inbox <- cmdInput{userID, w, a, s, d}:
	case <-m.stopCh:
	}
}

// Shoot posts a fire-and-forget shoot request.
func (m *MatchState) Shoot(userID string, dx, dy float64) {
	select {
	case m.inbox <- cmdShoot{userID, dx, dy}:
	case <-m.stopCh:
	}
}

// BuyPowerup posts a purchase command and blocks for the result.
func (m *MatchState) BuyPowerup(userID string, ptype PowerupType) error {
	reply := make(chan error, 1)
	select {
	case m.inbox <- cmdBuyPowerup{userID, ptype, reply}:
	case <-m.stopCh:
		return ErrMatchNotFound
	}
	return <-reply
}

// StartGame posts a start_game command and blocks for the result.
func (m *MatchState) StartGame(userID string) error {
	reply := make(chan error, 1)
	select {
	case m.inbox <- cmdStartGame{userID, reply}:
	case <-m.stopCh:
		return ErrMatchNotFound
	}
	return <-reply
}

// Snapshot returns a point-in-time read of the actor's status and age,
// used by the registry's janitor. Returns the zero value if the actor has
// already stopped.
func (m *MatchState) Snapshot() matchSnapshot {
	reply := make(chan matchSnapshot, 1)
	select {
	case m.inbox <- cmdSnapshot{reply}:
	case <-m.stopCh:
		return matchSnapshot{status: StatusFinished, createdAt: m.createdAt}
	}
	select {
	case s := <-reply:
		return s
	case <-m.stopCh:
		return matchSnapshot{status: StatusFinished, createdAt: m.createdAt}
	}
}

// Stop terminates the actor loop. Safe to call more than once.
func (m *MatchState) Stop() {
	if m.stopped {
		return
	}
	m.stopped = true
	close(m.stopCh)
}

// --- handlers (run only on the actor goroutine) ---

func (m *MatchState) handleJoin(userID, name, avatarRef string) (JoinResponse, error) {
	if p, ok := m.players[userID]; ok {
		_ = p
		return m.joinResponse(), nil // (R1) idempotent rejoin, current state
	}
	if m.status != StatusWaiting {
		return JoinResponse{}, ErrGameInProgress
	}
	if len(m.players) >= maxPlayers {
		return JoinResponse{}, ErrMatchFull
	}
	idx := len(m.joinOrder)
	spawn := m.grid.SpawnPoints[idx%4]
	p := NewPlayer(userID, name, avatarRef, idx, spawn)
	m.players[userID] = p
	m.joinOrder = append(m.joinOrder, userID)

	m.broadcast(MsgPlayerJoined, playerToFullState(p))
	return m.joinResponse(), nil
}

func (m *MatchState) joinResponse() JoinResponse {
	players := make(map[string]PlayerFullState, len(m.players))
	for uid, p := range m.players {
		players[uid] = playerToFullState(p)
	}
	mapTiles := make(map[string]string, m.grid.Width*m.grid.Height)
	for y := 0; y < m.grid.Height; y++ {
		for x := 0; x < m.grid.Width; x++ {
			tc := TileCoord{int16(x), int16(y)}
			mapTiles[tc.Key()] = m.grid.AtCoord(tc).String()
		}
	}
	tileOwners := make(map[string]string, len(m.owners))
	for tc, uid := range m.owners {
		tileOwners[tc.Key()] = uid
	}
	generators := make([]string, len(m.grid.Generators))
	for i, g := range m.grid.Generators {
		generators[i] = g.Key()
	}
	spawnPoints := make([]string, len(m.grid.SpawnPoints))
	for i, s := range m.grid.SpawnPoints {
		spawnPoints[i] = s.Key()
	}
	beams := make([]BeamState, 0, len(m.beams))
	for _, b := range m.beams {
		beams = append(beams, beamToState(b))
	}
	drops := make([]CoinDropState, 0, len(m.coinDrops))
	for _, d := range m.coinDrops {
		drops = append(drops, coinDropToState(d))
	}
	return JoinResponse{
		MatchID: m.ID, Code: m.Code, Status: m.status, HostID: m.HostID, IsSolo: m.IsSolo,
		GridSize: m.grid.Width, MapTiles: mapTiles, TileOwners: tileOwners,
		Generators: generators, SpawnPoints: spawnPoints,
		Players: players, Beams: beams, CoinDrops: drops,
		Tick: m.tick, ServerTimestampMs: time.Now().UnixMilli(),
	}
}

func (m *MatchState) handleLeave(userID string) {
	if _, ok := m.players[userID]; !ok {
		return
	}
	delete(m.players, userID)
	for i, uid := range m.joinOrder {
		if uid == userID {
			m.joinOrder = append(m.joinOrder[:i], m.joinOrder[i+1:]...)
			break
		}
	}
	m.broadcast(MsgPlayerLeft, PlayerLeftMsg{UserID: userID})

	if m.status == StatusWaiting && len(m.players) == 0 {
		if m.repo != nil {
			if err := m.repo.FinishMatch(m.ID, nil, nil, nil); err != nil {
				log.Printf("[match %s] finish-on-empty error: %v", m.ID, err)
			}
		}
		m.status = StatusFinished
		m.pubsub.RemoveTopic(m.ID)
		m.Stop()
	}
}

func (m *MatchState) handleInput(userID string, w, a, s, d bool) {
	p, ok := m.players[userID]
	if !ok {
		return
	}
	p.SetInput(w, a, s, d)
}

func (m *MatchState) handleShoot(userID string, dx, dy float64) {
	if m.status != StatusPlaying {
		return
	}
	p, ok := m.players[userID]
	if !ok {
		return
	}
	if !p.CanAffordShot() {
		return // (spec §7) not_enough_energy is a silent drop
	}
	// Energy is debited before the muzzle-blocked check (spec §9 open
	// question 1, preserved deliberately).
	p.DebitShotEnergy()

	var spawned []*Beam
	if p.HasMultishot {
		spawned = SpawnMultishot(p.X, p.Y, dx, dy, p.HasBeamSpeed, p.UserID, p.Color, m.grid)
	} else if b := SpawnBeam(p.X, p.Y, dx, dy, p.HasBeamSpeed, p.UserID, p.Color, m.grid); b != nil {
		spawned = []*Beam{b}
	}
	for _, b := range spawned {
		m.beams = append(m.beams, b)
		m.broadcast(MsgBeamFired, beamToState(b))
	}
}

func (m *MatchState) handleBuyPowerup(userID string, ptype PowerupType) error {
	if m.status != StatusPlaying {
		return ErrGameNotPlaying
	}
	p, ok := m.players[userID]
	if !ok {
		return ErrNotInGame
	}
	if err := BuyPowerup(p, ptype); err != nil {
		return err
	}
	m.broadcast(MsgPowerupBought, PowerupPurchasedMsg{UserID: userID, Type: string(ptype)})
	if m.telemetry != nil {
		m.telemetry.Track(EvtPowerupPurchase, m.ID, userID, string(ptype))
	}
	return nil
}

func (m *MatchState) handleStartGame(userID string) error {
	if m.status != StatusWaiting {
		return ErrGameAlreadyStarted
	}
	if userID != m.HostID {
		return ErrNotHost
	}
	minPlayers := minPlayersMulti
	if m.IsSolo {
		minPlayers = minPlayersSolo
	}
	if len(m.players) < minPlayers {
		return ErrNotEnoughPlayers
	}

	m.status = StatusPlaying
	m.startedAt = time.Now()
	m.lastTick = m.startedAt
	if m.IsSolo {
		m.timeRemainingMs = -1
	} else {
		m.timeRemainingMs = matchDuration.Milliseconds()
	}
	if m.repo != nil {
		if err := m.repo.UpdateStatus(m.ID, StatusPlaying); err != nil {
			log.Printf("[match %s] persist playing status error: %v", m.ID, err)
		}
	}
	if m.telemetry != nil {
		m.telemetry.Track(EvtMatchStart, m.ID, userID, "")
	}
	var trm *int64
	if m.timeRemainingMs >= 0 {
		trm = &m.timeRemainingMs
	}
	m.broadcast(MsgGameStarted, GameStartedMsg{TimeRemainingMs: trm})
	return nil
}

// setOwner records an ownership change and marks the tile as changed for
// this tick's delta.
func (m *MatchState) setOwner(tc TileCoord, uid string, changed map[TileCoord]struct{}) {
	if m.owners[tc] == uid {
		return
	}
	m.owners[tc] = uid
	changed[tc] = struct{}{}
}

// onTick runs the full per-tick pipeline of spec §4.7.
func (m *MatchState) onTick(now time.Time) {
	dt := now.Sub(m.lastTick).Seconds()
	m.lastTick = now
	m.tick++

	if !m.IsSolo {
		m.timeRemainingMs -= m.tickInterval.Milliseconds()
		if m.timeRemainingMs <= 0 {
			m.finish()
			return
		}
	}

	changed := make(map[TileCoord]struct{})

	// (4) move + collide + regen
	for _, uid := range m.joinOrder {
		m.players[uid].Move(dt, m.grid)
	}

	// (5) glow capture, insertion order over the players map
	for _, uid := range m.joinOrder {
		p := m.players[uid]
		m.applyGlowCapture(p, changed)
	}

	// (6) advance beams
	var endedIDs []string
	live := m.beams[:0]
	for _, b := range m.beams {
		piercing := false
		if owner, ok := m.players[b.OwnerID]; ok {
			piercing = owner.HasPiercing
		}
		UpdateBeam(b, dt, m.grid, piercing, func(tc TileCoord) {
			m.setOwner(tc, b.OwnerID, changed)
		})
		if b.Active {
			live = append(live, b)
		} else {
			endedIDs = append(endedIDs, b.ID)
		}
	}
	m.beams = live
	for _, id := range endedIDs {
		m.broadcast(MsgBeamEnded, BeamEndedMsg{ID: id})
	}

	// (7) economy income
	for _, uid := range m.joinOrder {
		p := m.players[uid]
		owned := m.countOwnedGenerators(uid)
		p.AddCoinIncome(GeneratorIncome(owned, dt))
	}

	// (8) coin drop spawn + telegraph
	if drop := MaybeSpawnCoinDrop(m.rng, m.tick, float64(time.Second/m.tickInterval), m.grid, len(m.coinDrops)); drop != nil {
		m.coinDrops = append(m.coinDrops, drop)
		m.broadcast(MsgCoinTelegraph, coinDropToState(drop))
	}
	for _, d := range m.coinDrops {
		wasSpawned := d.Spawned
		d.UpdateTelegraph(m.tick)
		if d.Spawned && !wasSpawned {
			m.broadcast(MsgCoinSpawned, coinDropToState(d))
		}
	}

	// (9) pickups
	m.resolvePickups()

	// (10)/(11) diff + broadcast
	m.broadcastDelta(changed)
}

func (m *MatchState) applyGlowCapture(p *Player, changed map[TileCoord]struct{}) {
	radius := p.GlowRadius()
	ceil := int(math.Ceil(radius))
	px, py := int(math.Floor(p.X)), int(math.Floor(p.Y))
	for dy := -ceil; dy <= ceil; dy++ {
		for dx := -ceil; dx <= ceil; dx++ {
			if math.Sqrt(float64(dx*dx+dy*dy)) > radius {
				continue
			}
			tc := TileCoord{int16(px + dx), int16(py + dy)}
			if _, capturable := m.owners[tc]; !capturable {
				continue
			}
			m.setOwner(tc, p.UserID, changed)
		}
	}
}

func (m *MatchState) countOwnedGenerators(userID string) int {
	n := 0
	for _, g := range m.grid.Generators {
		if m.owners[g] == userID {
			n++
		}
	}
	return n
}

func (m *MatchState) resolvePickups() {
	remaining := m.coinDrops[:0]
	for _, d := range m.coinDrops {
		if !d.Spawned || d.Collected {
			remaining = append(remaining, d)
			continue
		}
		var qualifying []*Player
		for _, uid := range m.joinOrder {
			p := m.players[uid]
			if CheckCollision(p.X, p.Y, 0, d.X, d.Y, coinPickupRadius) {
				qualifying = append(qualifying, p)
			}
		}
		if len(qualifying) == 0 {
			remaining = append(remaining, d)
			continue
		}
		share := d.Value / len(qualifying)
		for _, p := range qualifying {
			p.AddCoins(share)
			m.broadcast(MsgCoinCollected, CoinCollectedMsg{ID: d.ID, UserID: p.UserID})
			if m.telemetry != nil {
				m.telemetry.Track(EvtCoinCollected, m.ID, p.UserID, string(d.Kind))
			}
		}
		d.Collected = true
	}
	m.coinDrops = remaining
}

func (m *MatchState) broadcastDelta(changed map[TileCoord]struct{}) {
	players := make(map[string]PlayerDelta, len(m.players))
	for uid, p := range m.players {
		players[uid] = playerToDelta(p)
	}
	beams := make([]BeamState, 0, len(m.beams))
	for _, b := range m.beams {
		beams = append(beams, beamToState(b))
	}
	tiles := make(map[string]string, len(changed))
	for tc := range changed {
		tiles[tc.Key()] = m.owners[tc]
	}
	var trm *int64
	if !m.IsSolo {
		trm = &m.timeRemainingMs
	}
	delta := StateDeltaMsg{
		Tick: m.tick, ServerTimestampMs: time.Now().UnixMilli(),
		TimeRemainingMs: trm, Players: players, Beams: beams, Tiles: tiles,
	}
	framed, err := encodeBinaryDelta(delta)
	if err != nil {
		log.Printf("[match %s] binary delta encode error: %v", m.ID, err)
		return
	}
	m.pubsub.Publish(m.ID, framed)
}

// finish computes final scores, persists the outcome, and schedules actor
// termination 60 s later (spec §4.7/§4.8).
func (m *MatchState) finish() {
	m.status = StatusFinished
	total := m.grid.CapturableCount()
	scores := make(map[string]float64, len(m.players))
	fullPlayers := make(map[string]PlayerFullState, len(m.players))
	var winnerID *string
	best := -1.0
	for uid, p := range m.players {
		owned := 0
		for _, o := range m.owners {
			if o == uid {
				owned++
			}
		}
		score := 0.0
		if total > 0 {
			score = math.Round(100*float64(owned)/float64(total)*10) / 10
		}
		scores[uid] = score
		fullPlayers[uid] = playerToFullState(p)
		if score > best {
			best = score
			id := uid
			winnerID = &id
		}
	}
	if len(m.players) == 0 {
		winnerID = nil
	}

	if m.repo != nil {
		finalState := m.joinResponse()
		if err := m.repo.FinishMatch(m.ID, winnerID, finalState, scores); err != nil {
			log.Printf("[match %s] finish persistence error: %v", m.ID, err)
		}
	}
	if m.telemetry != nil {
		m.telemetry.Track(EvtMatchEnd, m.ID, "", "")
	}
	m.broadcast(MsgGameEnded, GameEndedMsg{WinnerID: winnerID, Scores: scores, Players: fullPlayers})
	m.pubsub.RemoveTopic(m.ID)

	time.AfterFunc(postGameLinger, m.Stop)
}

// broadcast marshals and fans an event out to the match's topic.
func (m *MatchState) broadcast(msgType string, data interface{}) {
	body, err := encodeEnvelope(Envelope{T: msgType, Data: data})
	if err != nil {
		log.Printf("[match %s] encode error for %s: %v", m.ID, msgType, err)
		return
	}
	m.pubsub.Publish(m.ID, body)
}
