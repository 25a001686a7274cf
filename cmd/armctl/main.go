// armctl: operator CLI for a running deck
// Every command goes through armdeck's REST API; watch streams live
// state frames over the dashboard WebSocket. No kinematics run here.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-armdeck/internal/config"
	"github.com/teslashibe/go-armdeck/internal/httpc"
	"github.com/teslashibe/go-armdeck/pkg/bridgehub"
	"github.com/teslashibe/go-armdeck/pkg/kinematics"
	"github.com/teslashibe/go-armdeck/pkg/protocol"
)

const dialTimeout = 10 * time.Second

func usage() {
	fmt.Println("armctl — control a running arm deck")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  armctl [-deck URL] state                      Print the current arm state")
	fmt.Println("  armctl [-deck URL] set <joint> <deg>          Move one joint (yaw|shoulder|elbow|wrist)")
	fmt.Println("  armctl [-deck URL] pose <yaw> <sh> <el> <wr>  Replace the whole pose, degrees")
	fmt.Println("  armctl [-deck URL] target <r> <z>             Aim the tip at a work-plane point, meters")
	fmt.Println("  armctl [-deck URL] pump <percent>             Set pump power 0-100")
	fmt.Println("  armctl [-deck URL] view <azimuth> <elev>      Place the view angles, degrees")
	fmt.Println("  armctl [-deck URL] reset                      Back to the home pose")
	fmt.Println("  armctl [-deck URL] demo on|off                Start or stop the sweep demo")
	fmt.Println("  armctl [-deck URL] record [seconds]           Capture bridge weights to CSV on the deck")
	fmt.Println("  armctl [-deck URL] bridges                    List connected hardware bridges")
	fmt.Println("  armctl [-deck URL] watch                      Stream state frames until interrupted")
	fmt.Println()
	fmt.Println("The deck URL defaults to $ARMDECK_DECK_URL, then " + config.DefaultDeckURL + ".")
}

func main() {
	deck := flag.String("deck", defaultDeck(), "deck base URL")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	c := &ctl{base: strings.TrimSuffix(*deck, "/")}

	var err error
	switch args[0] {
	case "state":
		err = c.state()

	case "set":
		if len(args) < 3 {
			fmt.Println("set requires <joint> and <deg>")
			usage()
			os.Exit(2)
		}
		err = c.set(args[1], parseFloat("deg", args[2]))

	case "pose":
		if len(args) < 5 {
			fmt.Println("pose requires <yaw> <shoulder> <elbow> <wrist>")
			usage()
			os.Exit(2)
		}
		err = c.pose(kinematics.JointAngles{
			Yaw:      parseFloat("yaw", args[1]),
			Shoulder: parseFloat("shoulder", args[2]),
			Elbow:    parseFloat("elbow", args[3]),
			Wrist:    parseFloat("wrist", args[4]),
		})

	case "target":
		if len(args) < 3 {
			fmt.Println("target requires <r> and <z>")
			usage()
			os.Exit(2)
		}
		err = c.target(parseFloat("r", args[1]), parseFloat("z", args[2]))

	case "pump":
		if len(args) < 2 {
			fmt.Println("pump requires <percent>")
			usage()
			os.Exit(2)
		}
		err = c.pump(parseFloat("percent", args[1]))

	case "view":
		if len(args) < 3 {
			fmt.Println("view requires <azimuth> and <elev>")
			usage()
			os.Exit(2)
		}
		err = c.view(parseFloat("azimuth", args[1]), parseFloat("elev", args[2]))

	case "reset":
		err = c.reset()

	case "demo":
		if len(args) < 2 || (args[1] != "on" && args[1] != "off") {
			fmt.Println("demo requires on or off")
			usage()
			os.Exit(2)
		}
		err = c.demo(args[1] == "on")

	case "record":
		seconds := 0.0
		if len(args) >= 2 {
			seconds = parseFloat("seconds", args[1])
		}
		err = c.record(seconds)

	case "bridges":
		err = c.bridges()

	case "watch":
		err = c.watch()

	default:
		fmt.Printf("unknown command %q\n", args[0])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

// defaultDeck resolves the deck URL the way the config layer does,
// without needing a config file for one-off commands.
func defaultDeck() string {
	if v := os.Getenv("ARMDECK_DECK_URL"); v != "" {
		return v
	}
	return config.DefaultDeckURL
}

// parseFloat exits with usage when the argument is not a number.
func parseFloat(name, s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		fmt.Printf("%s must be a number, got %q\n", name, s)
		os.Exit(2)
	}
	return v
}

// ctl issues commands against one deck.
type ctl struct {
	base string
}

func (c *ctl) api(path string) string { return c.base + "/api" + path }

func (c *ctl) state() error {
	var st protocol.StateData
	if err := httpc.GetJSON(c.api("/state"), &st); err != nil {
		return err
	}
	printState(&st)
	return nil
}

func (c *ctl) set(joint string, deg float64) error {
	return c.post("/joints", protocol.SetJointData{Joint: joint, Value: deg})
}

func (c *ctl) pose(j kinematics.JointAngles) error {
	req := struct {
		Pose kinematics.JointAngles `json:"pose"`
	}{j}
	return c.post("/joints", req)
}

func (c *ctl) target(r, z float64) error {
	return c.post("/target", protocol.TargetData{R: r, Z: z})
}

func (c *ctl) pump(percent float64) error {
	return c.post("/pump", protocol.SetPumpData{Percent: percent})
}

func (c *ctl) view(azimuth, elevation float64) error {
	return c.post("/view", protocol.ViewData{Azimuth: azimuth, Elevation: elevation})
}

func (c *ctl) reset() error {
	return c.post("/reset", nil)
}

func (c *ctl) demo(run bool) error {
	return c.post("/demo", protocol.DemoData{Run: run})
}

// post sends one command and prints the state the deck settles on.
func (c *ctl) post(path string, req interface{}) error {
	var st protocol.StateData
	if err := httpc.PostJSON(c.api(path), req, &st); err != nil {
		return err
	}
	printState(&st)
	return nil
}

func (c *ctl) record(seconds float64) error {
	req := struct {
		Seconds float64 `json:"seconds"`
	}{seconds}
	var out struct {
		File    string  `json:"file"`
		Seconds float64 `json:"seconds"`
	}
	if err := httpc.PostJSON(c.api("/record"), req, &out); err != nil {
		return err
	}
	fmt.Printf("recording %gs of weights to %s on the deck\n", out.Seconds, out.File)
	return nil
}

func (c *ctl) bridges() error {
	var out struct {
		Bridges []bridgehub.BridgeInfo `json:"bridges"`
		Count   int                    `json:"count"`
	}
	if err := httpc.GetJSON(c.api("/bridges/"), &out); err != nil {
		return err
	}

	if out.Count == 0 {
		fmt.Println("no bridges connected")
		return nil
	}
	fmt.Printf("%d bridge(s) connected:\n", out.Count)
	for _, b := range out.Bridges {
		fmt.Printf("  %s  %-16s  %d cells  up %s  seen %s ago\n",
			b.ID, b.Name, b.Channels,
			time.Since(b.Connected).Round(time.Second),
			time.Since(b.LastSeen).Round(100*time.Millisecond))
	}
	return nil
}

// watch dials the dashboard WebSocket and prints one line per state
// frame until interrupted.
func (c *ctl) watch() error {
	url := wsURL(c.base)
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	interrupted := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		close(interrupted)
		conn.Close()
	}()

	fmt.Println("watching", url, "(ctrl-c to stop)")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-interrupted:
				return nil
			default:
				return fmt.Errorf("read: %w", err)
			}
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil || msg.Type != protocol.TypeState {
			continue
		}
		st, err := msg.GetStateData()
		if err != nil {
			continue
		}

		warn := ""
		if st.NearLimit() {
			warn = "  NEAR LIMIT"
		}
		j := st.Joints
		fmt.Printf("%s  yaw %+6.1f  sh %+6.1f  el %+6.1f  wr %+6.1f  pump %3.0f  reach %3.0f%%  bridges %d%s\n",
			time.Now().Format("15:04:05.000"),
			j.Yaw, j.Shoulder, j.Elbow, j.Wrist,
			st.Pump, st.Reach*100, st.Bridges, warn)
	}
}

// wsURL turns the deck base URL into the dashboard WebSocket endpoint.
func wsURL(deck string) string {
	u := strings.Replace(deck, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/ws/state"
}

// printState renders one snapshot the way the dashboard info panel lays
// it out.
func printState(st *protocol.StateData) {
	j := st.Joints
	fmt.Printf("pose     yaw %+.1f  shoulder %+.1f  elbow %+.1f  wrist %+.1f  deg\n",
		j.Yaw, j.Shoulder, j.Elbow, j.Wrist)
	fmt.Printf("target   r %.3f  z %.3f  m\n", st.Target.R, st.Target.Z)
	tip := st.Frames.D
	fmt.Printf("tip      x %.3f  y %.3f  z %.3f  m\n", tip.X(), tip.Y(), tip.Z())
	warn := ""
	if st.NearLimit() {
		warn = "  NEAR LIMIT"
	}
	fmt.Printf("reach    %.0f%%%s\n", st.Reach*100, warn)
	fmt.Printf("pump     %.0f%%\n", st.Pump)
	p := st.Pulses
	fmt.Printf("pulses   %d %d %d %d  pump %d  us\n", p.Yaw, p.Shoulder, p.Elbow, p.Wrist, p.Pump)
	fmt.Printf("view     az %.1f  el %.1f\n", st.View.Azimuth, st.View.Elevation)
	if st.Move != "" {
		fmt.Printf("move     %s\n", st.Move)
	}
	if len(st.Weights) > 0 {
		parts := make([]string, len(st.Weights))
		for i, w := range st.Weights {
			parts[i] = strconv.FormatFloat(w, 'f', 2, 64)
		}
		fmt.Printf("weights  %s\n", strings.Join(parts, "  "))
	}
	fmt.Printf("bridges  %d\n", st.Bridges)
}
