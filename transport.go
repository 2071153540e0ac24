package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
	maxNameLen        = 16
)

// Client is one WebSocket connection, joined to at most one match at a
// time. Grounded on the teacher's client.go (ReadPump/WritePump shape,
// send-channel + 0xFF binary marker convention, rate limiting), reshaped
// from the teacher's session/controller model onto a single match
// reference plus the UserID minted by Auth.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string

	userID    string
	name      string
	avatarRef string
	matchID   string
	sub       chan []byte

	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client bound to an already-authenticated or
// guest identity and the match named in the connection's URL path.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr, userID, name, matchID string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
		userID:     userID,
		name:       name,
		matchID:    matchID,
	}
}

// ReadPump reads and dispatches messages from the socket until it closes.
func (c *Client) ReadPump() {
	defer func() {
		c.leaveMatch()
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		c.handleMessage(message)
	}
}

// WritePump drains the send channel to the socket and keeps the
// connection alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case data, ok := <-c.subChan():
			if !ok {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			var err error
			if len(data) > 0 && data[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, data[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, data)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// subChan returns the client's current match subscription channel, or a
// nil channel (which blocks forever in a select) when not subscribed to
// one, so WritePump's select never fires spuriously.
func (c *Client) subChan() chan []byte {
	if c.sub == nil {
		return nil
	}
	return c.sub
}

// SendJSON marshals and enqueues a message for the client's own send
// channel (used for direct replies, as opposed to match broadcasts which
// arrive over sub).
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// handleMessage decodes the envelope and dispatches by kind (spec §6.1).
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	switch env.T {
	case MsgJoin:
		c.handleJoinMsg(env.D)
	case MsgInput:
		c.handleInputMsg(env.D)
	case MsgShoot:
		c.handleShootMsg(env.D)
	case MsgBuyPowerup:
		c.handleBuyPowerupMsg(env.D)
	case MsgStartGame:
		c.handleStartGameMsg()
	}
}

func (c *Client) handleJoinMsg(data json.RawMessage) {
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	name := msg.Name
	if name == "" {
		name = c.name
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}

	match := c.hub.registry.Lookup(c.matchID)
	if match == nil {
		c.sendError(ErrMatchNotFound.Error())
		return
	}
	resp, err := match.Join(c.userID, name, msg.AvatarRef)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.name = name
	c.avatarRef = msg.AvatarRef
	c.sub = c.hub.pubsub.Subscribe(c.matchID)
	c.SendJSON(Envelope{T: MsgJoinedFullState, Data: resp})
}

func (c *Client) handleInputMsg(data json.RawMessage) {
	if c.matchID == "" {
		return
	}
	var msg InputMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	match := c.hub.registry.Lookup(c.matchID)
	if match == nil {
		return
	}
	match.Input(c.userID, msg.W, msg.A, msg.S, msg.D)
}

func (c *Client) handleShootMsg(data json.RawMessage) {
	if c.matchID == "" {
		return
	}
	var msg ShootMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	match := c.hub.registry.Lookup(c.matchID)
	if match == nil {
		return
	}
	match.Shoot(c.userID, msg.DirectionX, msg.DirectionY)
}

func (c *Client) handleBuyPowerupMsg(data json.RawMessage) {
	if c.matchID == "" {
		return
	}
	var msg BuyPowerupMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	match := c.hub.registry.Lookup(c.matchID)
	if match == nil {
		c.sendError(ErrMatchNotFound.Error())
		return
	}
	if err := match.BuyPowerup(c.userID, PowerupType(msg.Type)); err != nil {
		c.sendError(err.Error())
	}
}

func (c *Client) handleStartGameMsg() {
	if c.matchID == "" {
		return
	}
	match := c.hub.registry.Lookup(c.matchID)
	if match == nil {
		c.sendError(ErrMatchNotFound.Error())
		return
	}
	if err := match.StartGame(c.userID); err != nil {
		c.sendError(err.Error())
	}
}

// leaveMatch tells the client's match the socket is gone and drops the
// pubsub subscription.
func (c *Client) leaveMatch() {
	if c.matchID == "" {
		return
	}
	if match := c.hub.registry.Lookup(c.matchID); match != nil {
		match.Leave(c.userID)
	}
	if c.sub != nil {
		c.hub.pubsub.Unsubscribe(c.matchID, c.sub)
	}
}
