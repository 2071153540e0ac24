package main

import (
	"log"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SetupRoutes configures the HTTP mux: the WebSocket upgrade endpoint plus
// the lobby and auth REST-adjacent routes registerLobbyRoutes wires up.
// Spec §1 puts a client renderer out of scope, so there is no static-file
// or SPA serving (dropped entirely from the teacher).
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	registerLobbyRoutes(mux, hub)

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		matchID := r.URL.Query().Get("match_id")
		if matchID == "" {
			http.Error(w, "match_id is required", http.StatusBadRequest)
			return
		}
		if !hub.registry.Exists(matchID) {
			http.Error(w, "match not found", http.StatusNotFound)
			return
		}

		userID, name := identifyConnection(hub, r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade error: %v", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip, userID, name, matchID)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	return mux
}

// identifyConnection resolves a socket's identity from an optional bearer
// token, minting a guest identity when absent or invalid (spec §1: the
// lobby just needs an opaque UserID + display name).
func identifyConnection(hub *Hub, r *http.Request) (userID, name string) {
	token := r.URL.Query().Get("token")
	if token != "" && hub.auth != nil {
		if uid, displayName, err := hub.auth.ValidateToken(token); err == nil {
			return uid, displayName
		}
	}
	return GuestUserID(), GenerateGuestName()
}
