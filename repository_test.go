package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arena.db")
	repo, err := OpenRepository(path)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateMatchAssignsSixLetterCode(t *testing.T) {
	repo := newTestRepo(t)
	row, err := repo.CreateMatch("m1", "host1", true, false)
	assert.NoError(t, err)
	assert.Len(t, row.Code, 6)
	assert.Equal(t, StatusWaiting, row.Status)
}

func TestCreateMatchCodesAreUniqueAmongNonFinished(t *testing.T) {
	repo := newTestRepo(t)
	row1, err := repo.CreateMatch("m1", "host1", true, false)
	assert.NoError(t, err)
	row2, err := repo.CreateMatch("m2", "host2", true, false)
	assert.NoError(t, err)
	assert.NotEqual(t, row1.Code, row2.Code)
}

func TestGetMatchByCodeFindsAndMissesCorrectly(t *testing.T) {
	repo := newTestRepo(t)
	row, err := repo.CreateMatch("m1", "host1", true, false)
	assert.NoError(t, err)

	found, err := repo.GetMatchByCode(row.Code)
	assert.NoError(t, err)
	if assert.NotNil(t, found) {
		assert.Equal(t, row.ID, found.ID)
	}

	missing, err := repo.GetMatchByCode("ZZZZZZ")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAddPlayerIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CreateMatch("m1", "host1", true, false)
	assert.NoError(t, err)

	assert.NoError(t, repo.AddPlayer("m1", "u1", "#EF4444"))
	assert.NoError(t, repo.AddPlayer("m1", "u1", "#EF4444"))
}

func TestListAvailableFiltersToPublicWaitingWithPlayers(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CreateMatch("m1", "host1", true, false)
	assert.NoError(t, err)
	_, err = repo.CreateMatch("m2", "host2", false, false)
	assert.NoError(t, err)
	_, err = repo.CreateMatch("m3", "host3", true, true)
	assert.NoError(t, err)

	assert.NoError(t, repo.AddPlayer("m1", "u1", "#EF4444"))
	assert.NoError(t, repo.AddPlayer("m2", "u2", "#EF4444"))
	assert.NoError(t, repo.AddPlayer("m3", "u3", "#EF4444"))

	rows, err := repo.ListAvailable()
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, "m1", rows[0].ID)
}

func TestListAvailableExcludesEmptyMatches(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CreateMatch("m1", "host1", true, false)
	assert.NoError(t, err)

	rows, err := repo.ListAvailable()
	assert.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFinishMatchPersistsWinnerAndScores(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CreateMatch("m1", "host1", true, false)
	assert.NoError(t, err)
	assert.NoError(t, repo.AddPlayer("m1", "u1", "#EF4444"))
	assert.NoError(t, repo.AddPlayer("m1", "u2", "#3B82F6"))

	winner := "u1"
	err = repo.FinishMatch("m1", &winner, map[string]int{"tick": 100}, map[string]float64{"u1": 75.5, "u2": 24.5})
	assert.NoError(t, err)

	row, err := repo.GetMatchByCode(mustCode(t, repo, "m1"))
	assert.NoError(t, err)
	assert.Nil(t, row) // finished matches are excluded from GetMatchByCode
}

func mustCode(t *testing.T, repo *Repository, matchID string) string {
	t.Helper()
	var code string
	err := repo.conn.QueryRow(`SELECT code FROM matches WHERE id = ?`, matchID).Scan(&code)
	assert.NoError(t, err)
	return code
}

func TestCleanupStaleMatchesFinishesOldWaitingRows(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CreateMatch("m1", "host1", true, false)
	assert.NoError(t, err)
	_, err = repo.conn.Exec(`UPDATE matches SET inserted_at = datetime('now', '-1 hour') WHERE id = 'm1'`)
	assert.NoError(t, err)

	n, err := repo.CleanupStaleMatches(30*time.Minute, 60*time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	found, err := repo.GetMatchByCode(mustCode(t, repo, "m1"))
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestSettingsRoundTripAndUpsert(t *testing.T) {
	repo := newTestRepo(t)
	assert.Equal(t, "", repo.GetSetting("jwt_secret"))

	assert.NoError(t, repo.SetSetting("jwt_secret", "abc123"))
	assert.Equal(t, "abc123", repo.GetSetting("jwt_secret"))

	assert.NoError(t, repo.SetSetting("jwt_secret", "xyz789"))
	assert.Equal(t, "xyz789", repo.GetSetting("jwt_secret"))
}

func TestUserRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	exists, err := repo.UsernameExists("nova")
	assert.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, repo.CreateUser("u1", "nova", "hashed", "Nova"))

	exists, err = repo.UsernameExists("nova")
	assert.NoError(t, err)
	assert.True(t, exists)

	u, err := repo.GetUserByUsername("nova")
	assert.NoError(t, err)
	if assert.NotNil(t, u) {
		assert.Equal(t, "u1", u.ID)
		assert.Equal(t, "hashed", u.PassHash)
	}

	missing, err := repo.GetUserByUsername("ghost")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
