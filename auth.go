package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	jwtExpiry      = 7 * 24 * time.Hour
	bcryptCost     = 12
	minPasswordLen = 4
	minUsernameLen = 2
	maxUsernameLen = 16

	// Login attempts refill at one every loginRefillInterval, capped at
	// loginBurst outstanding attempts per IP.
	loginRefillInterval = 6 * time.Second
	loginBurst           = 10
)

// Auth is the thin external-collaborator stand-in spec §1 calls for: mint
// an opaque UserID + display name for a connecting socket. Grounded on the
// teacher's auth.go for the register/login/bcrypt shape, but the session
// token is a typed jwt.Claims struct rather than a bare jwt.MapClaims, and
// the login limiter is a token bucket (grounded on
// Vitadek-OwnWorld's getLimiter/rate.NewLimiter, other_examples) rather
// than the teacher's fixed-window counter.
type Auth struct {
	db        *Repository
	jwtSecret []byte

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// sessionClaims is the token payload. Embedding jwt.RegisteredClaims gives
// the exp/iat handling and time-skew leeway for free instead of hand-rolling
// them as raw map entries; DisplayName rides alongside as a custom field.
type sessionClaims struct {
	DisplayName string `json:"dn"`
	jwt.RegisteredClaims
}

// NewAuth creates a new Auth handler, loading or minting the HMAC secret
// used to sign session tokens. envSecret, when non-empty, is the
// ARENA_JWT_SECRET value from config.go and takes precedence over the
// settings-table-persisted secret (so a deployer can pin or rotate the
// signing key without touching the database).
func NewAuth(db *Repository, envSecret string) *Auth {
	return &Auth{
		db:        db,
		jwtSecret: loadOrCreateSecret(db, envSecret),
		limiters:  make(map[string]*rate.Limiter),
	}
}

// loadOrCreateSecret prefers envSecret when set, else loads the JWT secret
// from the settings table, or generates and persists a new one if none
// exists.
func loadOrCreateSecret(db *Repository, envSecret string) []byte {
	if envSecret != "" {
		return []byte(envSecret)
	}
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			log.Printf("warning: could not persist JWT secret: %v", err)
		}
	}
	return secret
}

// Register mints a new UserID for a username/password pair and returns a
// signed session token.
func (a *Auth) Register(username, password, displayName string) (string, string, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = username
	}

	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return "", "", fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return "", "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	exists, err := a.db.UsernameExists(username)
	if err != nil {
		return "", "", fmt.Errorf("database error")
	}
	if exists {
		return "", "", fmt.Errorf("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", "", fmt.Errorf("internal error")
	}

	userID := newID()
	if err := a.db.CreateUser(userID, username, string(hash), displayName); err != nil {
		return "", "", fmt.Errorf("failed to create account")
	}

	token, err := a.generateToken(userID, displayName)
	if err != nil {
		return "", "", fmt.Errorf("internal error")
	}
	return userID, token, nil
}

// Login authenticates a user and returns (UserID, token).
func (a *Auth) Login(username, password, ip string) (string, string, error) {
	if !a.allowLoginAttempt(ip) {
		return "", "", fmt.Errorf("too many login attempts, try again later")
	}

	user, err := a.db.GetUserByUsername(username)
	if err != nil {
		return "", "", fmt.Errorf("database error")
	}
	if user == nil {
		return "", "", fmt.Errorf("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PassHash), []byte(password)); err != nil {
		return "", "", fmt.Errorf("invalid username or password")
	}

	token, err := a.generateToken(user.ID, user.DisplayName)
	if err != nil {
		return "", "", fmt.Errorf("internal error")
	}
	return user.ID, token, nil
}

// ValidateToken validates a JWT and returns (UserID, displayName, error).
func (a *Auth) ValidateToken(tokenStr string) (string, string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", "", err
	}
	if !token.Valid {
		return "", "", fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return "", "", fmt.Errorf("invalid token claims")
	}
	return claims.Subject, claims.DisplayName, nil
}

func (a *Auth) generateToken(userID, displayName string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// allowLoginAttempt draws from a per-IP token bucket rather than a fixed
// reset-window counter, so a burst of failures early in the window doesn't
// give an attacker a clean slate the moment the window rolls over.
func (a *Auth) allowLoginAttempt(ip string) bool {
	a.limiterMu.Lock()
	limiter, ok := a.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(loginRefillInterval), loginBurst)
		a.limiters[ip] = limiter
	}
	a.limiterMu.Unlock()
	return limiter.Allow()
}

// GenerateGuestName mints a display name for sockets that skip registration
// entirely (spec §1 treats a guest join as valid), drawing four random
// adjective/noun-free hex digits rather than a fixed-width byte slice so the
// visible tag length can grow independently of the entropy budget.
func GenerateGuestName() string {
	suffix := make([]byte, 4)
	rand.Read(suffix)
	return "Guest-" + hex.EncodeToString(suffix)[:5]
}

// GuestUserID mints an opaque UserID for a guest connection with no
// backing account row.
func GuestUserID() string {
	return newID()
}
