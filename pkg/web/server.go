// Package web serves the arm dashboard and its control API
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-armdeck/internal/log"
	"github.com/teslashibe/go-armdeck/pkg/arm"
	"github.com/teslashibe/go-armdeck/pkg/bridgehub"
	"github.com/teslashibe/go-armdeck/pkg/hub"
	"github.com/teslashibe/go-armdeck/pkg/loadcell"
	"github.com/teslashibe/go-armdeck/pkg/motion"
	"github.com/teslashibe/go-armdeck/pkg/protocol"
	"github.com/teslashibe/go-armdeck/pkg/servo"
)

// refreshPeriod is how often the state is rebroadcast between mutations
// so dashboards that dropped a frame converge.
const refreshPeriod = 100 * time.Millisecond

// Server is the deck's HTTP and WebSocket surface.
type Server struct {
	app  *fiber.App
	addr string

	session *arm.Session
	motions *motion.Manager
	bridges *bridgehub.Hub

	// stateHub fans state frames out to dashboard sockets
	stateHub *hub.Hub

	// RecordDir is where weight recordings land. Set it before the
	// first recording starts.
	RecordDir string

	// Latest load cell sample for the dashboard readout
	weightMu sync.RWMutex
	weights  []float64

	// Active CSV capture fed by bridge weights
	recMu sync.Mutex
	rec   *loadcell.Capture

	started  time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewServer creates the deck server around an interaction session, a
// motion manager and the bridge hub.
func NewServer(addr, webDir string, session *arm.Session, motions *motion.Manager, bridges *bridgehub.Hub) *Server {
	s := &Server{
		addr:      addr,
		session:   session,
		motions:   motions,
		bridges:   bridges,
		stateHub:  hub.New("state"),
		RecordDir: "recordings",
		started:   time.Now(),
		stop:      make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Arm Deck",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// Static files
	app.Static("/", webDir)

	// API routes
	api := app.Group("/api")
	api.Get("/state", s.handleState)
	api.Get("/health", s.handleHealth)
	api.Post("/joints", s.handleJoints)
	api.Post("/pump", s.handlePump)
	api.Post("/target", s.handleTarget)
	api.Post("/view", s.handleView)
	api.Post("/reset", s.handleReset)
	api.Post("/demo", s.handleDemo)
	api.Post("/record", s.handleRecord)

	// Bridge attach point and management routes
	bridges.RegisterRoutes(app)
	bridges.RegisterAPIRoutes(api)

	// WebSocket upgrade middleware
	app.Use("/ws/state", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))

	// Inbound dashboard envelopes and bridge telemetry
	s.stateHub.OnCommand(s.handleEnvelope)
	bridges.OnWeight(s.handleWeight)
	bridges.OnHello(func(bridgeID string, hello *protocol.HelloData) {
		// Prime the new bridge with the current pose and tell the
		// dashboards the bridge count changed.
		st := s.session.Snapshot()
		bridges.SendPulse(servo.FrameForPose(st.Joints, st.Pump))
		s.BroadcastState(st)
	})

	s.app = app
	return s
}

// Start starts the web server and blocks
func (s *Server) Start() error {
	go s.stateHub.Run()
	go s.refreshLoop()

	log.Info("web server listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server error", "error", err)
		}
	}()
}

// refreshLoop rebroadcasts the state at a steady rate so late joiners
// converge without waiting for the next mutation.
func (s *Server) refreshLoop() {
	ticker := time.NewTicker(refreshPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.BroadcastCurrent()
		case <-s.stop:
			return
		}
	}
}

// BroadcastState pushes one state frame to every dashboard.
func (s *Server) BroadcastState(st arm.State) {
	msg, err := protocol.NewStateMessage(s.stateData(st))
	if err != nil {
		return
	}
	data, err := msg.Bytes()
	if err != nil {
		return
	}
	s.stateHub.Broadcast(data)
}

// BroadcastCurrent snapshots the session and broadcasts it.
func (s *Server) BroadcastCurrent() {
	s.BroadcastState(s.session.Snapshot())
}

// stateData decorates a session snapshot with the process state only
// the deck knows.
func (s *Server) stateData(st arm.State) protocol.StateData {
	return protocol.StateData{
		State:   st,
		Pulses:  servo.FrameForPose(st.Joints, st.Pump),
		Move:    s.motions.CurrentMoveName(),
		Weights: s.latestWeights(),
		Bridges: s.bridges.BridgeCount(),
	}
}

func (s *Server) latestWeights() []float64 {
	s.weightMu.RLock()
	defer s.weightMu.RUnlock()

	if len(s.weights) == 0 {
		return nil
	}
	out := make([]float64, len(s.weights))
	copy(out, s.weights)
	return out
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return s.app.Shutdown()
}
