// Package gateway maintains the realtime websocket session with the chat
// platform and dispatches the events the bot reacts to. Only the GUILDS
// intent is requested; everything else arrives over interactions.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aurelwyn/conclave/internal/discord"
)

const defaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// intentGuilds subscribes to guild structure events, which carries the
// channel deletion notifications the registry depends on.
const intentGuilds = 1 << 0

// Opcodes of the gateway protocol.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

// reconnectDelay paces reconnect attempts after a dropped session.
const reconnectDelay = 5 * time.Second

// Ready is the session bootstrap event.
type Ready struct {
	SessionID   string `json:"session_id"`
	User        discord.User
	Application discord.Snowflake
}

type readyPayload struct {
	SessionID   string       `json:"session_id"`
	User        discord.User `json:"user"`
	Application struct {
		ID discord.Snowflake `json:"id"`
	} `json:"application"`
}

// Handler receives dispatched events. Each event is delivered on its own
// goroutine, so implementations must be safe for concurrent calls.
type Handler interface {
	HandleReady(ctx context.Context, ready Ready)
	HandleInteraction(ctx context.Context, interaction discord.Interaction)
	HandleChannelDelete(ctx context.Context, channel discord.Channel)
}

// Session is a reconnecting gateway connection.
type Session struct {
	token      string
	handler    Handler
	gatewayURL string
	dialer     *websocket.Dialer
}

// Option configures a Session.
type Option func(*Session)

// WithGatewayURL overrides the gateway endpoint. Used by tests.
func WithGatewayURL(url string) Option {
	return func(s *Session) { s.gatewayURL = url }
}

// NewSession creates a gateway session for a bot token.
func NewSession(token string, handler Handler, opts ...Option) *Session {
	s := &Session{
		token:      token,
		handler:    handler,
		gatewayURL: defaultGatewayURL,
		dialer:     websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type payload struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Type     string          `json:"t,omitempty"`
}

type identifyData struct {
	Token      string `json:"token"`
	Intents    int    `json:"intents"`
	Properties struct {
		OS      string `json:"os"`
		Browser string `json:"browser"`
		Device  string `json:"device"`
	} `json:"properties"`
}

// Run connects to the gateway and keeps the session alive until the
// context is canceled, reconnecting with a fixed delay on any failure.
func (s *Session) Run(ctx context.Context) error {
	for {
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("gateway: session ended: %v, reconnecting in %s", err, reconnectDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *Session) runOnce(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.gatewayURL, nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	defer conn.Close()

	hello, err := readPayload(conn)
	if err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected hello, got op %d", hello.Op)
	}
	var helloData struct {
		HeartbeatInterval int64 `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.Data, &helloData); err != nil {
		return fmt.Errorf("decode hello: %w", err)
	}

	if err := s.identify(conn); err != nil {
		return fmt.Errorf("identify: %w", err)
	}

	// The writer goroutine owns the connection for writes; the read loop
	// below is the only reader. Closing the connection unblocks both.
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var lastSequence atomic.Int64
	heartbeatErr := make(chan error, 1)
	writes := make(chan payload, 8)
	go func() {
		heartbeatErr <- s.writeLoop(sessionCtx, conn, writes, time.Duration(helloData.HeartbeatInterval)*time.Millisecond, &lastSequence)
	}()

	readErr := make(chan error, 1)
	go func() {
		for {
			msg, err := readPayload(conn)
			if err != nil {
				readErr <- err
				return
			}
			if msg.Sequence != nil {
				lastSequence.Store(*msg.Sequence)
			}
			switch msg.Op {
			case opDispatch:
				go s.dispatch(sessionCtx, msg)
			case opHeartbeat:
				select {
				case writes <- payload{Op: opHeartbeat}:
				case <-sessionCtx.Done():
					readErr <- sessionCtx.Err()
					return
				}
			case opReconnect, opInvalidSession:
				readErr <- fmt.Errorf("server requested reconnect, op %d", msg.Op)
				return
			case opHeartbeatACK:
			}
		}
	}()

	select {
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	case err := <-readErr:
		return err
	case err := <-heartbeatErr:
		return err
	}
}

func (s *Session) identify(conn *websocket.Conn) error {
	data := identifyData{Token: s.token, Intents: intentGuilds}
	data.Properties.OS = "linux"
	data.Properties.Browser = "conclave"
	data.Properties.Device = "conclave"
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(payload{Op: opIdentify, Data: raw})
}

func (s *Session) writeLoop(ctx context.Context, conn *websocket.Conn, writes <-chan payload, interval time.Duration, lastSequence *atomic.Int64) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-writes:
			if err := writeWithSequence(conn, msg, lastSequence); err != nil {
				return fmt.Errorf("write payload: %w", err)
			}
		case <-ticker.C:
			if err := writeWithSequence(conn, payload{Op: opHeartbeat}, lastSequence); err != nil {
				return fmt.Errorf("write heartbeat: %w", err)
			}
		}
	}
}

func writeWithSequence(conn *websocket.Conn, msg payload, lastSequence *atomic.Int64) error {
	if msg.Op == opHeartbeat {
		raw, err := json.Marshal(lastSequence.Load())
		if err != nil {
			return err
		}
		msg.Data = raw
	}
	return conn.WriteJSON(msg)
}

// dispatch decodes one event and routes it to the handler. Undecodable
// events are logged and dropped, never fatal to the session.
func (s *Session) dispatch(ctx context.Context, msg payload) {
	switch msg.Type {
	case "READY":
		var data readyPayload
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			log.Printf("gateway: decode READY: %v", err)
			return
		}
		s.handler.HandleReady(ctx, Ready{
			SessionID:   data.SessionID,
			User:        data.User,
			Application: data.Application.ID,
		})
	case "INTERACTION_CREATE":
		var interaction discord.Interaction
		if err := json.Unmarshal(msg.Data, &interaction); err != nil {
			log.Printf("gateway: decode INTERACTION_CREATE: %v", err)
			return
		}
		s.handler.HandleInteraction(ctx, interaction)
	case "CHANNEL_DELETE":
		var channel discord.Channel
		if err := json.Unmarshal(msg.Data, &channel); err != nil {
			log.Printf("gateway: decode CHANNEL_DELETE: %v", err)
			return
		}
		s.handler.HandleChannelDelete(ctx, channel)
	}
}

func readPayload(conn *websocket.Conn) (payload, error) {
	var msg payload
	if err := conn.ReadJSON(&msg); err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return payload{}, fmt.Errorf("connection closed: %w", err)
		}
		return payload{}, err
	}
	return msg, nil
}
