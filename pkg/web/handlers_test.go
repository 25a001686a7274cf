package web

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-armdeck/pkg/arm"
	"github.com/teslashibe/go-armdeck/pkg/bridgehub"
	"github.com/teslashibe/go-armdeck/pkg/kinematics"
	"github.com/teslashibe/go-armdeck/pkg/motion"
	"github.com/teslashibe/go-armdeck/pkg/protocol"
	"github.com/teslashibe/go-armdeck/pkg/viewport"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	d := a - b
	return d < floatTolerance && d > -floatTolerance
}

func newTestServer(t *testing.T, addr string) *Server {
	t.Helper()
	session := arm.NewSession(viewport.NewView(700, 650))
	motions := motion.NewManager(session, motion.DefaultRate)
	s := NewServer(addr, t.TempDir(), session, motions, bridgehub.NewHub())
	s.RecordDir = t.TempDir()
	return s
}

func postJSON(t *testing.T, s *Server, path string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return resp
}

func decodeState(t *testing.T, resp *http.Response) protocol.StateData {
	t.Helper()
	var st protocol.StateData
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

func TestHandleState(t *testing.T) {
	s := newTestServer(t, ":0")

	req := httptest.NewRequest("GET", "/api/state", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	st := decodeState(t, resp)
	if !floatEquals(st.Target.R, kinematics.Reach) {
		t.Errorf("Target.R = %v, want %v", st.Target.R, kinematics.Reach)
	}
	if st.Pulses.Yaw != 1500 {
		t.Errorf("Pulses.Yaw = %d, want 1500 at home", st.Pulses.Yaw)
	}
	if st.Bridges != 0 {
		t.Errorf("Bridges = %d, want 0", st.Bridges)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, ":0")

	req := httptest.NewRequest("GET", "/api/health", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"status":"ok"`)) {
		t.Errorf("body = %s, want status ok", body)
	}
}

func TestHandleJointsSingle(t *testing.T) {
	s := newTestServer(t, ":0")

	resp := postJSON(t, s, "/api/joints", map[string]interface{}{
		"joint": "shoulder", "value": 45.0,
	})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	st := decodeState(t, resp)
	if !floatEquals(st.Joints.Shoulder, 45) {
		t.Errorf("Shoulder = %v, want 45", st.Joints.Shoulder)
	}
	if got := s.session.Snapshot().Joints.Shoulder; !floatEquals(got, 45) {
		t.Errorf("session Shoulder = %v, want 45", got)
	}
}

func TestHandleJointsPose(t *testing.T) {
	s := newTestServer(t, ":0")

	pose := kinematics.JointAngles{Yaw: 10, Shoulder: 20, Elbow: 30, Wrist: -5}
	resp := postJSON(t, s, "/api/joints", map[string]interface{}{"pose": pose})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := s.session.Snapshot().Joints; got != pose {
		t.Errorf("session joints = %+v, want %+v", got, pose)
	}
}

func TestHandleJointsUnknown(t *testing.T) {
	s := newTestServer(t, ":0")

	resp := postJSON(t, s, "/api/joints", map[string]interface{}{
		"joint": "knee", "value": 10.0,
	})
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandlePumpClamps(t *testing.T) {
	s := newTestServer(t, ":0")

	resp := postJSON(t, s, "/api/pump", map[string]float64{"percent": 130})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	st := decodeState(t, resp)
	if !floatEquals(st.Pump, 100) {
		t.Errorf("Pump = %v, want 100", st.Pump)
	}
}

func TestHandleTarget(t *testing.T) {
	s := newTestServer(t, ":0")

	resp := postJSON(t, s, "/api/target", map[string]float64{"r": 1.2, "z": 0.9})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	st := decodeState(t, resp)
	if !floatEquals(st.Target.R, 1.2) || !floatEquals(st.Target.Z, 0.9) {
		t.Errorf("Target = %+v, want (1.2, 0.9)", st.Target)
	}

	// The solver should put the tip close to a reachable target.
	r, _ := kinematics.Forward(st.Joints).TipPlanar()
	if d := r - 1.2; d > 1e-2 || d < -1e-2 {
		t.Errorf("tip r = %v, want near 1.2", r)
	}
}

func TestHandleView(t *testing.T) {
	s := newTestServer(t, ":0")

	resp := postJSON(t, s, "/api/view", map[string]float64{"azimuth": -45, "elevation": 10})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	st := decodeState(t, resp)
	if !floatEquals(st.View.Azimuth, -45) || !floatEquals(st.View.Elevation, 10) {
		t.Errorf("View = %+v, want (-45, 10)", st.View)
	}
}

func TestHandleReset(t *testing.T) {
	s := newTestServer(t, ":0")

	postJSON(t, s, "/api/joints", map[string]interface{}{"joint": "elbow", "value": 60.0})

	req := httptest.NewRequest("POST", "/api/reset", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	st := decodeState(t, resp)
	if !floatEquals(st.Joints.Elbow, 0) {
		t.Errorf("Elbow = %v, want 0 after reset", st.Joints.Elbow)
	}
	if !floatEquals(st.Target.R, kinematics.Reach) {
		t.Errorf("Target.R = %v, want %v after reset", st.Target.R, kinematics.Reach)
	}
}

func TestHandleDemo(t *testing.T) {
	s := newTestServer(t, ":0")

	resp := postJSON(t, s, "/api/demo", map[string]bool{"run": true})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !s.motions.IsMovePlaying() {
		t.Error("sweep should be playing after demo start")
	}

	st := decodeState(t, resp)
	if st.Move != "sweep" {
		t.Errorf("Move = %q, want sweep", st.Move)
	}

	resp = postJSON(t, s, "/api/demo", map[string]bool{"run": false})
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if s.motions.IsMovePlaying() {
		t.Error("sweep should stop after demo stop")
	}
}

func TestHandleRecordNoBridge(t *testing.T) {
	s := newTestServer(t, ":0")

	resp := postJSON(t, s, "/api/record", map[string]float64{"seconds": 1})
	if resp.StatusCode != 409 {
		t.Errorf("status = %d, want 409 with no bridge", resp.StatusCode)
	}
}

func TestEnvelopeDispatch(t *testing.T) {
	s := newTestServer(t, ":0")

	msg, _ := protocol.NewSetJointMessage("wrist", -30)
	data, _ := msg.Bytes()
	s.handleEnvelope(data)

	if got := s.session.Snapshot().Joints.Wrist; !floatEquals(got, -30) {
		t.Errorf("Wrist = %v, want -30", got)
	}

	// Drag gesture: start, move, end.
	start, _ := protocol.NewDragStartMessage()
	data, _ = start.Bytes()
	s.handleEnvelope(data)
	if !s.session.Snapshot().Dragging {
		t.Error("Dragging should be true after drag_start")
	}

	before := s.session.Snapshot().Target
	move, _ := protocol.NewDragMoveMessage(-80, 0)
	data, _ = move.Bytes()
	s.handleEnvelope(data)
	if after := s.session.Snapshot().Target; after.R >= before.R {
		t.Errorf("Target.R = %v, want < %v after dragging left", after.R, before.R)
	}

	end, _ := protocol.NewDragEndMessage()
	data, _ = end.Bytes()
	s.handleEnvelope(data)
	if s.session.Snapshot().Dragging {
		t.Error("Dragging should be false after drag_end")
	}

	reset, _ := protocol.NewResetMessage()
	data, _ = reset.Bytes()
	s.handleEnvelope(data)
	if got := s.session.Snapshot().Joints.Wrist; !floatEquals(got, 0) {
		t.Errorf("Wrist = %v, want 0 after reset", got)
	}

	// Garbage must not panic.
	s.handleEnvelope([]byte("not json"))
}

func TestRecordCapturesBridgeWeights(t *testing.T) {
	s := newTestServer(t, ":18095")
	s.StartAsync()
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18095/ws/bridge", nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	defer ws.Close()

	hello, _ := protocol.NewHelloMessage("rig", 2, "test")
	data, _ := hello.Bytes()
	ws.WriteMessage(websocket.TextMessage, data)
	time.Sleep(50 * time.Millisecond)

	resp := postJSON(t, s, "/api/record", map[string]float64{"seconds": 0.5})
	if resp.StatusCode != 200 {
		t.Fatalf("record status = %d, want 200", resp.StatusCode)
	}
	var rec struct {
		File string `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode record response: %v", err)
	}

	for i := 0; i < 3; i++ {
		w, _ := protocol.NewWeightMessage(float64(i)*0.05, []int32{100, -50}, nil)
		data, _ := w.Bytes()
		ws.WriteMessage(websocket.TextMessage, data)
		time.Sleep(20 * time.Millisecond)
	}

	// Wait for the capture to close itself.
	time.Sleep(700 * time.Millisecond)

	f, err := os.Open(rec.File)
	if err != nil {
		t.Fatalf("open recording: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("record count = %d, want header + 3 rows", len(records))
	}
	if records[0][2] != "raw_2" {
		t.Errorf("header = %v, want raw_2 column", records[0])
	}
	if records[1][1] != "100" || records[1][2] != "-50" {
		t.Errorf("row 1 = %v, want raw values", records[1])
	}

	// The latest weights show up in state frames.
	st := decodeState(t, mustGet(t, s, "/api/state"))
	if len(st.Weights) != 2 || !floatEquals(st.Weights[0], 100) {
		t.Errorf("Weights = %v, want [100 -50]", st.Weights)
	}
}

func mustGet(t *testing.T, s *Server, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return resp
}
