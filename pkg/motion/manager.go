package motion

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-armdeck/internal/log"
	"github.com/teslashibe/go-armdeck/pkg/kinematics"
)

// Per-tick limits for the control loop.
const (
	// DefaultRate is ~30Hz.
	DefaultRate = 33 * time.Millisecond

	// maxStepDeg caps how far any joint may travel in one tick, so a
	// freshly queued move splices smoothly into the current pose.
	maxStepDeg = 6.0

	// sendThresholdDeg is the dead zone below which a tick is skipped.
	sendThresholdDeg = 0.05
)

// Manager drives scripted moves through a single control loop. One pose
// is sent to the sink per tick; queueing a new move replaces the current
// one and the rate limiter walks the arm over to it.
type Manager struct {
	sink PoseSink

	mu sync.RWMutex

	currentMove   Move                   // currently playing move (nil = idle)
	moveStartTime time.Time              // when the current move started
	lastPose      kinematics.JointAngles // held while idle

	rate    time.Duration
	stop    chan struct{}
	running bool

	// Touched only by the tick goroutine.
	lastSent kinematics.JointAngles
	haveSent bool

	tickCount    atomic.Uint64
	skippedTicks atomic.Uint64
}

// NewManager creates a manager driving sink. rate should be ~33ms for a
// 30Hz control loop; non-positive selects the default.
func NewManager(sink PoseSink, rate time.Duration) *Manager {
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Manager{
		sink:     sink,
		rate:     rate,
		stop:     make(chan struct{}),
		lastPose: kinematics.Home(),
	}
}

// Run starts the control loop. Blocks until Stop is called.
func (m *Manager) Run() {
	ticker := time.NewTicker(m.rate)
	defer ticker.Stop()

	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	log.Info("motion manager started", "rate_hz", 1.0/m.rate.Seconds())

	for {
		select {
		case <-m.stop:
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			log.Info("motion manager stopped")
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// Stop halts the control loop.
func (m *Manager) Stop() {
	close(m.stop)
}

// tick executes one control cycle. Completion is decided on the raw
// evaluated pose, not the rate-limited one, so a move that coasts to a
// stop inside the dead zone still retires.
func (m *Manager) tick() {
	m.mu.Lock()
	var pose kinematics.JointAngles
	if m.currentMove != nil {
		elapsed := time.Since(m.moveStartTime)
		pose = m.currentMove.Evaluate(elapsed)
		if m.currentMove.IsComplete(elapsed) {
			log.Debug("move completed", "move", m.currentMove.Name())
			m.lastPose = pose
			m.currentMove = nil
		}
	} else {
		pose = m.lastPose
	}
	m.mu.Unlock()

	pose = m.rateLimit(pose.Clamp())

	if !m.needsSend(pose) {
		m.skippedTicks.Add(1)
		return
	}

	m.tickCount.Add(1)
	m.sink.ApplyMotion(pose)
	m.lastSent = pose
	m.haveSent = true
}

// rateLimit clamps per-tick joint deltas against the last sent pose.
func (m *Manager) rateLimit(target kinematics.JointAngles) kinematics.JointAngles {
	if !m.haveSent {
		return target
	}
	return kinematics.JointAngles{
		Yaw:      m.lastSent.Yaw + clampStep(target.Yaw-m.lastSent.Yaw),
		Shoulder: m.lastSent.Shoulder + clampStep(target.Shoulder-m.lastSent.Shoulder),
		Elbow:    m.lastSent.Elbow + clampStep(target.Elbow-m.lastSent.Elbow),
		Wrist:    m.lastSent.Wrist + clampStep(target.Wrist-m.lastSent.Wrist),
	}
}

// needsSend returns true if the pose differs enough from the last sent.
func (m *Manager) needsSend(p kinematics.JointAngles) bool {
	if !m.haveSent {
		return true
	}
	diff := max4(
		abs(p.Yaw-m.lastSent.Yaw),
		abs(p.Shoulder-m.lastSent.Shoulder),
		abs(p.Elbow-m.lastSent.Elbow),
		abs(p.Wrist-m.lastSent.Wrist),
	)
	return diff >= sendThresholdDeg
}

// QueueMove starts the given move immediately, replacing any current one.
func (m *Manager) QueueMove(move Move) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentMove != nil {
		m.lastPose = m.currentMove.Evaluate(time.Since(m.moveStartTime))
	}

	m.currentMove = move
	m.moveStartTime = time.Now()
	log.Info("move queued", "move", move.Name(), "duration", move.Duration())
}

// StopMove stops the current move immediately, holding its last pose.
func (m *Manager) StopMove() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentMove != nil {
		m.lastPose = m.currentMove.Evaluate(time.Since(m.moveStartTime))
		log.Info("move stopped", "move", m.currentMove.Name())
		m.currentMove = nil
	}
}

// IsMovePlaying returns true if a move is currently playing.
func (m *Manager) IsMovePlaying() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentMove != nil
}

// CurrentMoveName returns the name of the current move, or empty if idle.
func (m *Manager) CurrentMoveName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.currentMove != nil {
		return m.currentMove.Name()
	}
	return ""
}

// Stats reports ticks sent and skipped since start.
func (m *Manager) Stats() (sent, skipped uint64) {
	return m.tickCount.Load(), m.skippedTicks.Load()
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func max4(a, b, c, d float64) float64 {
	return max(max(a, b), max(c, d))
}

func clampStep(delta float64) float64 {
	if delta > maxStepDeg {
		return maxStepDeg
	}
	if delta < -maxStepDeg {
		return -maxStepDeg
	}
	return delta
}
