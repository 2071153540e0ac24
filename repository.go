package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	_ "modernc.org/sqlite"
)

// Repository is the durable relational store adapter spec §1 treats as an
// external collaborator and §6.2/§6.3 specifies the interface of. Grounded
// on the teacher's database.go (OpenDB/migrate/prepared Exec-QueryRow
// style, WAL pragma), reshaped from a PvP kill/death/xp schema to the
// matches/match_players schema of §6.2.
type Repository struct {
	conn *sql.DB
}

// MatchRow mirrors one row of the matches table.
type MatchRow struct {
	ID         string
	Code       string
	HostID     string
	Status     string
	IsPublic   bool
	IsSolo     bool
	WinnerID   sql.NullString
	FinalState sql.NullString
	PlayerCount int
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// OpenRepository opens (or creates) the SQLite database backing match
// persistence.
func OpenRepository(path string) (*Repository, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}
	r := &Repository{conn: conn}
	if err := r.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) Close() error {
	return r.conn.Close()
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		host_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'waiting',
		is_public INTEGER NOT NULL DEFAULT 0,
		is_solo INTEGER NOT NULL DEFAULT 0,
		winner_id TEXT,
		final_state TEXT,
		inserted_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS match_players (
		match_id TEXT NOT NULL REFERENCES matches(id),
		user_id TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		score INTEGER NOT NULL DEFAULT 0,
		joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (match_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL,
		display_name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS telemetry_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		match_id TEXT,
		user_id TEXT,
		detail TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status);
	CREATE INDEX IF NOT EXISTS idx_matches_code ON matches(code);
	CREATE INDEX IF NOT EXISTS idx_match_players_user ON match_players(user_id);
	`
	_, err := r.conn.Exec(schema)
	return err
}

// UserRow mirrors one row of the users table.
type UserRow struct {
	ID          string
	Username    string
	PassHash    string
	DisplayName string
}

// CreateUser inserts a new account, minting the opaque UserID the auth
// adapter hands back to the socket (spec §1's identity stand-in).
func (r *Repository) CreateUser(id, username, passHash, displayName string) error {
	_, err := r.conn.Exec(
		`INSERT INTO users (id, username, pass_hash, display_name) VALUES (?, ?, ?, ?)`,
		id, username, passHash, displayName,
	)
	return err
}

// UsernameExists reports whether a username is already registered.
func (r *Repository) UsernameExists(username string) (bool, error) {
	var count int
	err := r.conn.QueryRow(`SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&count)
	return count > 0, err
}

// GetUserByUsername looks up an account by username, returning (nil, nil)
// if no such account exists.
func (r *Repository) GetUserByUsername(username string) (*UserRow, error) {
	var u UserRow
	err := r.conn.QueryRow(
		`SELECT id, username, pass_hash, display_name FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.PassHash, &u.DisplayName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func generateJoinCode(rng *rand.Rand) string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = joinCodeAlphabet[rng.Intn(len(joinCodeAlphabet))]
	}
	return string(b)
}

// codeInUse reports whether a code is held by any non-finished match
// (spec §6.2: unique among non-finished matches).
func (r *Repository) codeInUse(code string) (bool, error) {
	var count int
	err := r.conn.QueryRow(`SELECT COUNT(*) FROM matches WHERE code = ? AND status != 'finished'`, code).Scan(&count)
	return count > 0, err
}

// CreateMatch inserts a new waiting match with a freshly generated,
// collision-checked join code (spec §6.2/§6.3).
func (r *Repository) CreateMatch(id, hostID string, isPublic, isSolo bool) (*MatchRow, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var code string
	for attempt := 0; attempt < 20; attempt++ {
		candidate := generateJoinCode(rng)
		inUse, err := r.codeInUse(candidate)
		if err != nil {
			return nil, err
		}
		if !inUse {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, fmt.Errorf("could not allocate a unique join code")
	}

	_, err := r.conn.Exec(
		`INSERT INTO matches (id, code, host_id, status, is_public, is_solo) VALUES (?, ?, ?, 'waiting', ?, ?)`,
		id, code, hostID, isPublic, isSolo,
	)
	if err != nil {
		return nil, err
	}
	return &MatchRow{ID: id, Code: code, HostID: hostID, Status: StatusWaiting, IsPublic: isPublic, IsSolo: isSolo}, nil
}

// AddPlayer records a player's participation row, color assigned by join
// order by the caller (spec §6.3).
func (r *Repository) AddPlayer(matchID, userID, color string) error {
	_, err := r.conn.Exec(
		`INSERT INTO match_players (match_id, user_id, color) VALUES (?, ?, ?)
		 ON CONFLICT(match_id, user_id) DO NOTHING`,
		matchID, userID, color,
	)
	return err
}

// GetMatchByCode looks up a joinable match by its six-letter code,
// returning (nil, nil) if no non-finished match holds it.
func (r *Repository) GetMatchByCode(code string) (*MatchRow, error) {
	var m MatchRow
	err := r.conn.QueryRow(
		`SELECT id, code, host_id, status, is_public, is_solo FROM matches WHERE code = ? AND status != 'finished'`,
		code,
	).Scan(&m.ID, &m.Code, &m.HostID, &m.Status, &m.IsPublic, &m.IsSolo)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateStatus transitions a match's persisted status.
func (r *Repository) UpdateStatus(id, status string) error {
	_, err := r.conn.Exec(`UPDATE matches SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}

// ListAvailable returns joinable matches (spec §6.3:
// status=waiting ∧ is_public ∧ ¬is_solo ∧ player_count ≥ 1).
func (r *Repository) ListAvailable() ([]MatchRow, error) {
	rows, err := r.conn.Query(`
		SELECT m.id, m.code, m.host_id, m.status, m.is_public, m.is_solo, m.inserted_at, m.updated_at,
			(SELECT COUNT(*) FROM match_players mp WHERE mp.match_id = m.id) AS player_count
		FROM matches m
		WHERE m.status = 'waiting' AND m.is_public = 1 AND m.is_solo = 0
		HAVING player_count >= 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MatchRow
	for rows.Next() {
		var m MatchRow
		if err := rows.Scan(&m.ID, &m.Code, &m.HostID, &m.Status, &m.IsPublic, &m.IsSolo, &m.InsertedAt, &m.UpdatedAt, &m.PlayerCount); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// FinishMatch persists the match-end outcome: winner, opaque final state
// blob, and per-player final scores (spec §6.2/§6.3).
func (r *Repository) FinishMatch(id string, winnerID *string, finalState interface{}, scores map[string]float64) error {
	tx, err := r.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var blob sql.NullString
	if finalState != nil {
		data, err := json.Marshal(finalState)
		if err != nil {
			return err
		}
		blob = sql.NullString{String: string(data), Valid: true}
	}
	var winner sql.NullString
	if winnerID != nil {
		winner = sql.NullString{String: *winnerID, Valid: true}
	}

	_, err = tx.Exec(
		`UPDATE matches SET status = 'finished', winner_id = ?, final_state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		winner, blob, id,
	)
	if err != nil {
		return err
	}

	for uid, score := range scores {
		if _, err := tx.Exec(
			`UPDATE match_players SET score = ? WHERE match_id = ? AND user_id = ?`,
			int(score), id, uid,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CleanupStaleMatches force-finishes matches the janitor has deemed
// abandoned (spec §4.9).
func (r *Repository) CleanupStaleMatches(waitingMaxAge, playingMaxAge time.Duration) (int, error) {
	res, err := r.conn.Exec(`
		UPDATE matches SET status = 'finished', updated_at = CURRENT_TIMESTAMP
		WHERE (status = 'waiting' AND inserted_at <= datetime('now', ?))
		   OR (status = 'playing' AND inserted_at <= datetime('now', ?))`,
		fmt.Sprintf("-%d seconds", int(waitingMaxAge.Seconds())),
		fmt.Sprintf("-%d seconds", int(playingMaxAge.Seconds())),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// LeaderboardEntry is one row of the read-only leaderboard (supplemented
// feature, grounded on the teacher's GetLeaderboard).
type LeaderboardEntry struct {
	UserID        string  `json:"user_id"`
	TotalScore    float64 `json:"total_score"`
	MatchesPlayed int     `json:"matches_played"`
}

// GetLeaderboard ranks players by total score across finished matches.
func (r *Repository) GetLeaderboard(limit int) ([]LeaderboardEntry, error) {
	rows, err := r.conn.Query(`
		SELECT mp.user_id, SUM(mp.score) AS total, COUNT(*) AS played
		FROM match_players mp
		JOIN matches m ON m.id = mp.match_id
		WHERE m.status = 'finished'
		GROUP BY mp.user_id
		ORDER BY total DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.TotalScore, &e.MatchesPlayed); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// GetSetting reads a persisted key-value setting, returning "" if absent.
func (r *Repository) GetSetting(key string) string {
	var value string
	err := r.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

// SetSetting upserts a persisted key-value setting.
func (r *Repository) SetSetting(key, value string) error {
	_, err := r.conn.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
