package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-armdeck/internal/log"
	"github.com/teslashibe/go-armdeck/pkg/hub"
	"github.com/teslashibe/go-armdeck/pkg/kinematics"
	"github.com/teslashibe/go-armdeck/pkg/loadcell"
	"github.com/teslashibe/go-armdeck/pkg/motion"
	"github.com/teslashibe/go-armdeck/pkg/protocol"
)

// handleState returns the current arm state
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.stateData(s.session.Snapshot()))
}

// handleHealth reports process health
func (s *Server) handleHealth(c *fiber.Ctx) error {
	frames, dropped := s.stateHub.Stats()
	return c.JSON(fiber.Map{
		"status":   "ok",
		"uptime_s": int(time.Since(s.started).Seconds()),
		"clients":  s.stateHub.ClientCount(),
		"frames":   frames,
		"dropped":  dropped,
		"bridges":  s.bridges.BridgeCount(),
	})
}

// JointsRequest moves one named joint or replaces the whole pose.
type JointsRequest struct {
	Joint string                  `json:"joint"`
	Value float64                 `json:"value"`
	Pose  *kinematics.JointAngles `json:"pose"`
}

// handleJoints applies a joint change and returns the new state
func (s *Server) handleJoints(c *fiber.Ctx) error {
	var req JointsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Pose != nil {
		s.session.SetJoints(*req.Pose)
	} else if err := s.session.SetJoint(req.Joint, req.Value); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(s.stateData(s.session.Snapshot()))
}

// handlePump sets the pump power
func (s *Server) handlePump(c *fiber.Ctx) error {
	var req protocol.SetPumpData
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	s.session.SetPump(req.Percent)
	return c.JSON(s.stateData(s.session.Snapshot()))
}

// handleTarget aims the tip at a work-plane point
func (s *Server) handleTarget(c *fiber.Ctx) error {
	var req protocol.TargetData
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	s.session.SetTarget(req.R, req.Z)
	return c.JSON(s.stateData(s.session.Snapshot()))
}

// handleView places the view angles
func (s *Server) handleView(c *fiber.Ctx) error {
	var req protocol.ViewData
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	s.session.SetView(req.Azimuth, req.Elevation)
	return c.JSON(s.stateData(s.session.Snapshot()))
}

// handleReset stops any move and returns the arm to the home pose
func (s *Server) handleReset(c *fiber.Ctx) error {
	s.motions.StopMove()
	s.session.Reset()
	return c.JSON(s.stateData(s.session.Snapshot()))
}

// handleDemo starts or stops the sweep demo
func (s *Server) handleDemo(c *fiber.Ctx) error {
	var req protocol.DemoData
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Run {
		s.motions.QueueMove(motion.NewSweepMove(motion.DefaultSweepSegment))
	} else {
		s.motions.StopMove()
	}
	return c.JSON(s.stateData(s.session.Snapshot()))
}

// RecordRequest starts a weight recording.
type RecordRequest struct {
	Seconds float64 `json:"seconds"`
}

// handleRecord starts capturing bridge weight samples to a CSV file.
// The response returns immediately; the capture closes itself after
// the requested duration.
func (s *Server) handleRecord(c *fiber.Ctx) error {
	var req RecordRequest
	if err := c.BodyParser(&req); err != nil {
		req.Seconds = 0
	}
	if req.Seconds <= 0 {
		req.Seconds = 10
	}

	if s.bridges.BridgeCount() == 0 {
		return c.Status(409).JSON(fiber.Map{"error": "no bridge connected"})
	}

	channels := 1
	for _, b := range s.bridges.Snapshot() {
		if b.Channels > channels {
			channels = b.Channels
		}
	}

	s.recMu.Lock()
	if s.rec != nil {
		s.recMu.Unlock()
		return c.Status(409).JSON(fiber.Map{"error": "recording already running"})
	}
	rec, err := loadcell.NewCapture(s.RecordDir, channels)
	if err != nil {
		s.recMu.Unlock()
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	s.rec = rec
	s.recMu.Unlock()

	d := time.Duration(req.Seconds * float64(time.Second))
	time.AfterFunc(d, func() { s.finishRecording(rec) })

	log.Info("recording started", "file", rec.Path(), "seconds", req.Seconds)
	return c.JSON(fiber.Map{"file": rec.Path(), "seconds": req.Seconds})
}

// finishRecording closes a capture and detaches it from the weight feed.
func (s *Server) finishRecording(rec *loadcell.Capture) {
	s.recMu.Lock()
	if s.rec == rec {
		s.rec = nil
	}
	s.recMu.Unlock()

	if err := rec.Close(); err != nil {
		log.Warn("recording close failed", "file", rec.Path(), "error", err)
		return
	}
	log.Info("recording finished", "file", rec.Path(), "rows", rec.Rows())
}

// handleWeight stores the latest sample for the dashboard and feeds any
// active recording. Runs on the bridge's read goroutine.
func (s *Server) handleWeight(bridgeID string, w *protocol.WeightData) {
	vals := w.Units
	if len(vals) == 0 {
		vals = make([]float64, len(w.Raw))
		for i, r := range w.Raw {
			vals[i] = float64(r)
		}
	}
	s.weightMu.Lock()
	s.weights = vals
	s.weightMu.Unlock()

	s.recMu.Lock()
	rec := s.rec
	s.recMu.Unlock()
	if rec != nil {
		if err := rec.Add(w.T, w.Raw); err != nil && !errors.Is(err, loadcell.ErrClosed) {
			log.Warn("recording write failed", "error", err)
		}
	}
}

// handleEnvelope dispatches one inbound dashboard message. Runs on the
// sending client's read goroutine.
func (s *Server) handleEnvelope(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		log.Debug("dashboard message parse error", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeSetJoint:
		if d, err := msg.GetSetJointData(); err == nil {
			if err := s.session.SetJoint(d.Joint, d.Value); err != nil {
				log.Debug("set joint rejected", "joint", d.Joint, "error", err)
			}
		}

	case protocol.TypePose:
		if j, err := msg.GetPoseData(); err == nil {
			s.session.SetJoints(*j)
		}

	case protocol.TypeSetPump:
		if d, err := msg.GetSetPumpData(); err == nil {
			s.session.SetPump(d.Percent)
		}

	case protocol.TypeTarget:
		if d, err := msg.GetTargetData(); err == nil {
			s.session.SetTarget(d.R, d.Z)
		}

	case protocol.TypeDragStart:
		s.session.BeginDrag()

	case protocol.TypeDragMove:
		if d, err := msg.GetDragMoveData(); err == nil {
			s.session.DragBy(d.DX, d.DY)
		}

	case protocol.TypeDragEnd:
		s.session.EndDrag()

	case protocol.TypeOrbit:
		if d, err := msg.GetDragMoveData(); err == nil {
			s.session.Orbit(d.DX, d.DY)
		}

	case protocol.TypeSetView:
		if d, err := msg.GetViewData(); err == nil {
			s.session.SetView(d.Azimuth, d.Elevation)
		}

	case protocol.TypeReset:
		s.motions.StopMove()
		s.session.Reset()

	case protocol.TypeDemo:
		if d, err := msg.GetDemoData(); err == nil {
			if d.Run {
				s.motions.QueueMove(motion.NewSweepMove(motion.DefaultSweepSegment))
			} else {
				s.motions.StopMove()
			}
		}

	default:
		log.Debug("unhandled dashboard message", "type", string(msg.Type))
	}
}

// handleStateWS attaches a dashboard WebSocket connection to the state
// hub, which primes it with the newest frame. Blocks until the
// connection closes.
func (s *Server) handleStateWS(c *websocket.Conn) {
	hub.NewClient(s.stateHub, c).Run()
}
