package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/normcode/orchestrator/facade"
	"github.com/normcode/orchestrator/hooks"
	"github.com/normcode/orchestrator/telemetry"
)

// Server upgrades HTTP connections to WebSocket ObserverTransports and
// drives each one for the life of the connection. One Server fronts one
// OrchestrationFacade; mount it at whatever path the embedding process
// chooses.
type Server struct {
	facade   *facade.OrchestrationFacade
	bus      hooks.Bus
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

// NewServer builds a Server. logger may be nil, in which case connection
// and protocol errors are discarded rather than logged.
func NewServer(f *facade.OrchestrationFacade, bus hooks.Bus, logger telemetry.Logger) *Server {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Server{
		facade: f,
		bus:    bus,
		logger: logger,
		// CheckOrigin is left at the zero Upgrader default (same-origin
		// only); embedding processes that front this with their own CORS
		// policy should construct their own websocket.Upgrader and swap
		// it in via WithUpgrader.
		upgrader: websocket.Upgrader{},
	}
}

// WithUpgrader replaces the server's websocket.Upgrader, e.g. to relax
// CheckOrigin or set custom buffer sizes.
func (s *Server) WithUpgrader(u websocket.Upgrader) *Server {
	s.upgrader = u
	return s
}

// ServeHTTP upgrades the request to a WebSocket and runs one
// ObserverTransport until the peer disconnects. Query parameters run_id
// and event_type (comma-separated) optionally filter the outbound stream,
// per spec.md §4.7's "optionally filtered by run id or event kind".
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	filter := filterFromQuery(r.URL.Query())
	runConnection(r.Context(), conn, s.facade, s.bus, s.logger, filter)
}

// eventFilter reports whether an event should be forwarded to one
// connection's outbound stream.
type eventFilter func(hooks.Event) bool

func filterFromQuery(q map[string][]string) eventFilter {
	runID := firstOf(q["run_id"])
	var types map[string]bool
	if raw := firstOf(q["event_type"]); raw != "" {
		types = make(map[string]bool)
		for _, t := range strings.Split(raw, ",") {
			types[strings.TrimSpace(t)] = true
		}
	}
	if runID == "" && types == nil {
		return nil
	}
	return func(e hooks.Event) bool {
		if runID != "" && e.RunID() != "" && e.RunID() != runID {
			return false
		}
		if types != nil && !types[string(e.Type())] {
			return false
		}
		return true
	}
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// connection owns the single goroutine that may call conn.WriteMessage;
// the outbound relay and the ping responder both hand frames to it
// through outbound, since gorilla/websocket connections are not safe for
// concurrent writers.
type connection struct {
	conn     *websocket.Conn
	facade   *facade.OrchestrationFacade
	logger   telemetry.Logger
	outbound chan Frame
}

// runConnection drives one ObserverTransport end to end: sends the
// synthetic connection:established frame, relays bus events outbound
// (subject to filter), and dispatches inbound commands, until the peer
// disconnects or ctx is done. Blocks until the connection closes.
func runConnection(ctx context.Context, conn *websocket.Conn, f *facade.OrchestrationFacade, bus hooks.Bus, logger telemetry.Logger, filter eventFilter) {
	defer conn.Close()

	c := &connection{conn: conn, facade: f, logger: logger, outbound: make(chan Frame, 64)}

	sub := bus.Subscribe(0)
	defer sub.Close()

	// ReadMessage has no context awareness; closing the connection is the
	// only way to unblock it when the caller's context ends (e.g. server
	// shutdown) rather than a genuine peer disconnect.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	writerDone := make(chan struct{})
	go c.writeLoop(writerDone)
	defer func() {
		close(c.outbound)
		<-writerDone
	}()

	c.outbound <- connectionEstablishedFrame()

	relayDone := make(chan struct{})
	subDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		for {
			event, ok := sub.Next(subDone)
			if !ok {
				return
			}
			if filter != nil && !filter(event) {
				continue
			}
			frame, err := frameForEvent(event)
			if err != nil {
				continue
			}
			select {
			case c.outbound <- frame:
			case <-subDone:
				return
			}
		}
	}()

	c.readLoop(ctx)

	// readLoop returned because the peer disconnected (or ctx ended);
	// unblock the relay goroutine before waiting on it, or a relay parked
	// in sub.Next with no pending event would never see subDone close.
	close(subDone)
	<-relayDone
}

// writeLoop is the connection's sole writer: it drains outbound until the
// channel is closed, then returns.
func (c *connection) writeLoop(done chan<- struct{}) {
	defer close(done)
	for frame := range c.outbound {
		if err := c.conn.WriteJSON(frame); err != nil {
			return
		}
	}
}

// readLoop reads inbound commands until the peer disconnects or ctx ends.
// Unparseable frames are dropped rather than closing the connection, since
// a malformed command from one observer should not punish the run.
func (c *connection) readLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd inboundCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			continue
		}
		c.dispatch(cmd)
	}
}

func (c *connection) dispatch(cmd inboundCommand) {
	switch cmd.Type {
	case cmdPing:
		select {
		case c.outbound <- pongFrame():
		default:
		}
	case cmdInputSubmit:
		c.facade.SubmitInput(cmd.Data.RequestID, cmd.Data.Answer)
	case cmdInputCancel:
		c.facade.CancelInput(cmd.Data.RequestID)
	case cmdRunCancel:
		if err := c.facade.Cancel(cmd.Data.RunID); err != nil {
			c.logger.Warn(context.Background(), "run:cancel failed", "run_id", cmd.Data.RunID, "error", err)
		}
	}
}
