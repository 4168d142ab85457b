package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/rickgao/chat-relay/internal/connection"
	"github.com/rickgao/chat-relay/internal/dispatch"
	"github.com/rickgao/chat-relay/internal/heartbeat"
	"github.com/rickgao/chat-relay/internal/protocol"
	"github.com/rickgao/chat-relay/internal/registry"
	"github.com/rickgao/chat-relay/internal/rtc"
)

// Deps are the collaborators the server wires frames into.
type Deps struct {
	Registry   *registry.Registry
	Dispatcher *dispatch.Dispatcher
	Monitor    *heartbeat.Monitor
	Relay      *rtc.Relay
	Tokens     TokenResolver
	Authorizer Authorizer
}

// Server accepts websocket connections and routes their frames.
type Server struct {
	cfg      Config
	deps     Deps
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// New creates the websocket edge.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	policy := newOriginPolicy(cfg.AllowedOrigins)
	return &Server{
		cfg:  cfg,
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.check,
		},
		logger: logger,
	}
}

// Handler returns the HTTP handler serving the websocket path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleWS)
	return mux
}

// handleWS authenticates, upgrades, registers, and serves one connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "websocket endpoint only accepts GET", http.StatusMethodNotAllowed)
		return
	}

	// Identity is resolved before the upgrade: a frame must never arrive
	// ahead of authentication.
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token is required", http.StatusUnauthorized)
		return
	}

	userID, err := s.deps.Tokens.Resolve(r.Context(), token)
	if err != nil {
		s.logger.Info("rejecting connection", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := connection.New(ws, s.cfg.Conn, s.logger)
	conn.SetUserID(userID)
	conn.Start()

	s.deps.Registry.Register(r.Context(), userID, conn)

	s.logger.Info("user connected",
		"user_id", userID,
		"conn_id", conn.ID(),
		"remote", r.RemoteAddr,
	)

	s.sendConnectedAck(conn, userID)
	s.broadcastPresence(context.Background(), userID, true)

	go s.readLoop(conn)
}

// readLoop is the single reader for one connection. Frame order within
// the connection is preserved by construction.
func (s *Server) readLoop(conn *connection.Conn) {
	defer s.teardown(conn)

	lim := rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.RateBurst)

	for {
		data, err := conn.Read()
		if err != nil {
			return
		}

		frame, err := protocol.ParseFrame(data)
		if err != nil {
			// One bad frame must not cost the session.
			s.sendError(conn, protocol.CodeProtocolViolation, err.Error())
			continue
		}

		// Heartbeats are exempt: throttling them would starve the
		// liveness state machine on a busy connection.
		if frame.Kind != protocol.KindHeartbeat && !lim.Allow() {
			if frame.Kind == protocol.KindRTCSignal {
				// Signaling is latency-sensitive; answer instead of
				// dropping silently.
				s.sendError(conn, protocol.CodeSignalDeliveryFailure, "rate limited")
				continue
			}
			// Flow control, not a protocol offense. Drop the frame.
			s.logger.Debug("rate limit exceeded, dropping frame",
				"user_id", conn.UserID(),
			)
			continue
		}

		s.route(conn, frame)
	}
}

// teardown runs once per connection, from the transport-close path. The
// registry's identity guard makes it race-safe against the heartbeat
// monitor evicting the same connection.
func (s *Server) teardown(conn *connection.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	userID := conn.UserID()
	if s.deps.Registry.Remove(ctx, conn) {
		s.logger.Info("user disconnected", "user_id", userID, "conn_id", conn.ID())
		s.broadcastPresence(ctx, userID, false)
	}
}

// route hands one parsed frame to the matching component.
func (s *Server) route(conn *connection.Conn, frame protocol.Frame) {
	ctx := context.Background()

	switch frame.Kind {
	case protocol.KindHeartbeat:
		s.deps.Monitor.Beat(ctx, conn)

	case protocol.KindChat:
		s.handleChat(ctx, conn, frame)

	case protocol.KindRTCSignal:
		if err := s.deps.Relay.HandleSignal(ctx, conn.UserID(), frame); err != nil {
			// Signaling failures are latency-sensitive: answer the
			// sender immediately instead of dropping silently.
			s.sendError(conn, protocol.CodeSignalDeliveryFailure, err.Error())
		}

	default:
		s.sendError(conn, protocol.CodeProtocolViolation, "unknown frame kind")
	}
}

// handleChat authorizes and dispatches one chat frame.
func (s *Server) handleChat(ctx context.Context, conn *connection.Conn, frame protocol.Frame) {
	senderID := conn.UserID()

	if frame.Broadcast {
		// Cluster-wide fan-out is reserved for server-originated events
		// (presence transitions); the authorization model is pairwise
		// and has no answer for "may this user address everyone".
		s.sendError(conn, protocol.CodeProtocolViolation, "broadcast chat is not accepted")
		return
	}

	if frame.TargetID == 0 {
		s.sendError(conn, protocol.CodeProtocolViolation, "chat frame needs a target")
		return
	}

	ok, err := s.deps.Authorizer.IsAuthorized(ctx, senderID, frame.TargetID)
	if err != nil {
		s.logger.Warn("authorization lookup failed",
			"sender_id", senderID,
			"target_id", frame.TargetID,
			"error", err,
		)
		s.sendError(conn, protocol.CodeUnauthorized, "authorization unavailable")
		return
	}
	if !ok {
		s.sendError(conn, protocol.CodeUnauthorized, "not allowed to message this user")
		return
	}

	env := protocol.NewEnvelope(protocol.KindChat, senderID, frame)
	outcome, err := s.deps.Dispatcher.SendToUser(ctx, env)
	if err != nil {
		s.logger.Warn("dispatch failed", "message_id", env.ID, "error", err)
		return
	}

	s.logger.Debug("chat dispatched",
		"message_id", env.ID,
		"sender_id", senderID,
		"target_id", frame.TargetID,
		"outcome", outcome.String(),
	)
}

// sendConnectedAck pushes the post-handshake ack carrying the resolved
// identity.
func (s *Server) sendConnectedAck(conn *connection.Conn, userID int64) {
	payload, _ := json.Marshal(protocol.ConnectedPayload{
		UserID: userID,
		NodeID: s.cfg.NodeID,
	})
	data, err := protocol.EncodeMessage(protocol.Message{
		Kind:    protocol.KindConnected,
		Payload: payload,
	})
	if err != nil {
		return
	}
	_ = conn.Send(data)
}

// broadcastPresence announces an online/offline transition to everyone
// except the user in question.
func (s *Server) broadcastPresence(ctx context.Context, userID int64, online bool) {
	payload, _ := json.Marshal(protocol.PresencePayload{
		UserID: userID,
		Online: online,
		NodeID: s.cfg.NodeID,
	})

	env := protocol.Envelope{
		ID:        uuid.NewString(),
		Kind:      protocol.KindPresence,
		SenderID:  userID,
		SkipID:    userID,
		Broadcast: true,
		Payload:   payload,
	}

	if _, err := s.deps.Dispatcher.Broadcast(ctx, env); err != nil {
		s.logger.Warn("presence broadcast failed", "user_id", userID, "error", err)
	}
}

// OnEvict is handed to the heartbeat monitor so evictions fan out the
// same offline notification as a normal disconnect.
func (s *Server) OnEvict(conn *connection.Conn) {
	s.broadcastPresence(context.Background(), conn.UserID(), false)
}

// sendError replies with an error frame on the sender's connection.
// Best-effort: a closed or saturated connection drops the reply.
func (s *Server) sendError(conn *connection.Conn, code, msg string) {
	data, err := protocol.EncodeMessage(protocol.ErrorMessage(code, msg))
	if err != nil {
		return
	}
	_ = conn.Send(data)
}
