package main

import (
	"encoding/json"
	"net/http"
	"strings"
)

// lobby.go is the thin REST-adjacent stand-in spec §1 puts explicitly out
// of scope ("HTTP REST endpoints for listing/creating/joining... exist
// only as adapters around the core"). It does the minimum needed to
// create a match row, start its actor, and hand a client the match_id to
// open a WebSocket against — no auth middleware, no pagination, no
// content negotiation.

type createMatchRequest struct {
	HostID   string `json:"host_id"`
	IsPublic bool   `json:"is_public"`
	IsSolo   bool   `json:"is_solo"`
}

type createMatchResponse struct {
	MatchID string `json:"match_id"`
	Code    string `json:"code"`
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// registerLobbyRoutes wires the create/list/join-by-code REST-adjacent
// operations of spec §6.3 onto the given mux.
func registerLobbyRoutes(mux *http.ServeMux, hub *Hub) {
	mux.HandleFunc("/matches", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handleCreateMatch(w, r, hub)
		case http.MethodGet:
			handleListMatches(w, r, hub)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/matches/lookup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleLookupMatch(w, r, hub)
	})

	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleRegister(w, r, hub)
	})

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		handleLogin(w, r, hub)
	})

	mux.HandleFunc("/matches/qr", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		code := normalizeCode(r.URL.Query().Get("code"))
		if code == "" {
			http.Error(w, "code is required", http.StatusBadRequest)
			return
		}
		png, err := joinCodeQR(code, 256)
		if err != nil {
			http.Error(w, "could not render QR code", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})
}

func handleLookupMatch(w http.ResponseWriter, r *http.Request, hub *Hub) {
	code := normalizeCode(r.URL.Query().Get("code"))
	if code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}
	row, err := hub.repo.GetMatchByCode(code)
	if err != nil {
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	if row == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	hub.registry.Start(row.ID, row.Code, row.HostID, row.IsSolo)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(createMatchResponse{MatchID: row.ID, Code: row.Code})
}

func handleCreateMatch(w http.ResponseWriter, r *http.Request, hub *Hub) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.HostID == "" {
		req.HostID = GuestUserID()
	}

	id := newID()
	row, err := hub.repo.CreateMatch(id, req.HostID, req.IsPublic, req.IsSolo)
	if err != nil {
		http.Error(w, "could not create match", http.StatusInternalServerError)
		return
	}
	hub.registry.Start(row.ID, row.Code, row.HostID, row.IsSolo)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(createMatchResponse{MatchID: row.ID, Code: row.Code})
}

func handleListMatches(w http.ResponseWriter, r *http.Request, hub *Hub) {
	rows, err := hub.repo.ListAvailable()
	if err != nil {
		http.Error(w, "could not list matches", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rows)
}

// handleRegister mints an account and a session token so a client can open
// the WebSocket endpoint with ?token= instead of falling back to a guest
// identity (spec §1: OAuth/user-record login is an external collaborator,
// this is its minimal stand-in).
func handleRegister(w http.ResponseWriter, r *http.Request, hub *Hub) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	userID, token, err := hub.auth.Register(req.Username, req.Password, req.DisplayName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authResponse{UserID: userID, Token: token})
}

// handleLogin authenticates an existing account and returns a fresh token.
func handleLogin(w http.ResponseWriter, r *http.Request, hub *Hub) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	userID, token, err := hub.auth.Login(req.Username, req.Password, extractIP(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authResponse{UserID: userID, Token: token})
}

// normalizeCode uppercases and trims a user-entered join code before a
// lookup, matching the alphabet generateJoinCode draws from.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
