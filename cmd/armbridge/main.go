// armbridge: hardware-side relay
// Dials the deck, puts incoming pulse frames on the servo serial port
// and streams HX711 load cell samples back up. No kinematics run here.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-armdeck/internal/config"
	"github.com/teslashibe/go-armdeck/internal/log"
	"github.com/teslashibe/go-armdeck/pkg/loadcell"
	"github.com/teslashibe/go-armdeck/pkg/protocol"
	"github.com/teslashibe/go-armdeck/pkg/servo"
)

const version = "1.0.0"

const (
	dialTimeout  = 10 * time.Second
	pingInterval = 30 * time.Second
	minBackoff   = time.Second
	maxBackoff   = 30 * time.Second
	tareTimeout  = 2 * time.Second
)

func main() {
	configPath := flag.String("config", "", "YAML config file (or set ARMDECK_CONFIG)")
	deckURL := flag.String("deck", "", "deck base URL (overrides config)")
	serialPort := flag.String("serial", "", "servo serial port (overrides config)")
	cellSpec := flag.String("cells", "", "HX711 pins as clock:data,... (overrides config)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides config)")
	flag.Parse()

	cfg, cfgErr := config.Load(*configPath)
	if *deckURL != "" {
		cfg.DeckURL = *deckURL
	}
	if *serialPort != "" {
		cfg.SerialPort = *serialPort
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if cfg.LogFile != "" {
		log.InitFile(cfg.LogLevel, cfg.LogFile)
	} else {
		log.Init(cfg.LogLevel)
	}
	if cfgErr != nil {
		log.Error("config load failed", "error", cfgErr)
		os.Exit(1)
	}

	if *cellSpec != "" {
		cells, err := config.ParseCells(*cellSpec)
		if err != nil {
			log.Error("bad -cells flag", "error", err)
			os.Exit(1)
		}
		cfg.Cells = cells
	}

	name := cfg.BridgeName
	if name == "" {
		if host, err := os.Hostname(); err == nil {
			name = host
		} else {
			name = "armbridge"
		}
	}

	// Servo output.
	var driver *servo.Driver
	if cfg.SerialPort != "" {
		d, err := servo.Open(cfg.SerialPort, cfg.SerialBaud)
		if err != nil {
			log.Error("serial open failed", "port", cfg.SerialPort, "error", err)
			os.Exit(1)
		}
		driver = d
		defer driver.Close()
		log.Info("servo driver ready", "port", cfg.SerialPort, "baud", cfg.SerialBaud)
	} else {
		log.Warn("no serial port configured, pulse frames will be dropped")
	}

	// Load cells.
	var readers []loadcell.Reader
	var scales []*loadcell.Scale
	for _, cell := range cfg.Cells {
		ch, err := loadcell.OpenGPIOChannel(cfg.GPIOChip, cell.Clock, cell.Data)
		if err != nil {
			log.Error("gpio open failed",
				"chip", cfg.GPIOChip, "clock", cell.Clock, "data", cell.Data, "error", err)
			os.Exit(1)
		}
		defer ch.Close()

		hx := loadcell.NewHX711(ch, ch, loadcell.GainA128)
		readers = append(readers, hx)

		var scale *loadcell.Scale
		if cell.Factor > 0 {
			scale = loadcell.NewScale(hx, cell.Factor)
			if err := scale.Tare(10, tareTimeout); err != nil {
				log.Warn("tare failed, sending raw counts",
					"clock", cell.Clock, "data", cell.Data, "error", err)
				scale = nil
			}
		}
		scales = append(scales, scale)
	}
	if len(readers) > 0 {
		log.Info("load cells ready", "channels", len(readers), "rate_hz", cfg.SampleRate)
	}

	b := &bridge{
		url:     bridgeURL(cfg.DeckURL),
		name:    name,
		driver:  driver,
		readers: readers,
		scales:  scales,
		rate:    cfg.SampleRate,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down")
		cancel()
	}()

	b.run(ctx)
}

// bridgeURL turns the deck base URL into the bridge WebSocket endpoint.
func bridgeURL(deck string) string {
	u := strings.TrimSuffix(deck, "/")
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/ws/bridge"
}

// bridge relays frames between the deck and the hardware.
type bridge struct {
	url     string
	name    string
	driver  *servo.Driver
	readers []loadcell.Reader
	scales  []*loadcell.Scale
	rate    float64
}

// run keeps one connection to the deck alive, redialing with capped
// backoff after every failure.
func (b *bridge) run(ctx context.Context) {
	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		connected, err := b.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = minBackoff
		}

		log.Warn("deck connection lost, retrying", "error", err, "retry_in", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// session runs one connection lifetime. The returned bool reports
// whether the dial succeeded at all.
func (b *bridge) session(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(b.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", b.url, err)
	}
	defer conn.Close()

	log.Info("connected to deck", "url", b.url)

	var writeMu sync.Mutex
	send := func(msg *protocol.Message) error {
		data, err := msg.Bytes()
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	hello, err := protocol.NewHelloMessage(b.name, len(b.readers), version)
	if err != nil {
		return true, err
	}
	if err := send(hello); err != nil {
		return true, fmt.Errorf("send hello: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Stream weight samples up.
	if len(b.readers) > 0 {
		sampler := loadcell.NewSampler(b.readers, b.rate)
		samples := make(chan loadcell.Sample, 16)
		go sampler.Run(sessionCtx, samples)
		go func() {
			for {
				select {
				case <-sessionCtx.Done():
					return
				case sample := <-samples:
					msg, err := protocol.NewWeightMessage(sample.T, sample.Raw, b.units(sample.Raw))
					if err != nil {
						continue
					}
					if err := send(msg); err != nil {
						log.Debug("weight send failed", "error", err)
						return
					}
				}
			}
		}()
	}

	// Keepalive pings.
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sessionCtx.Done():
				return
			case <-ticker.C:
				if msg, err := protocol.NewPingMessage(b.name); err == nil {
					if err := send(msg); err != nil {
						return
					}
				}
			}
		}
	}()

	// Read loop: pulse frames go straight to the wire.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}

		msg, err := protocol.ParseMessage(data)
		if err != nil {
			log.Debug("deck message parse error", "error", err)
			continue
		}

		switch msg.Type {
		case protocol.TypePulse:
			pulse, err := msg.GetPulseData()
			if err != nil {
				continue
			}
			if b.driver != nil {
				if err := b.driver.Send(pulse.Frame); err != nil {
					log.Warn("serial write failed", "error", err)
				}
			}

		case protocol.TypePong:
			// Keepalive answered; nothing to do.

		default:
			log.Debug("unhandled deck message", "type", string(msg.Type))
		}
	}
}

// units converts one raw sample through the per-cell calibrations.
// Returns nil when no cell is calibrated.
func (b *bridge) units(raw []int32) []float64 {
	calibrated := false
	for _, s := range b.scales {
		if s != nil {
			calibrated = true
			break
		}
	}
	if !calibrated {
		return nil
	}

	units := make([]float64, len(raw))
	for i, r := range raw {
		if i < len(b.scales) && b.scales[i] != nil {
			units[i] = b.scales[i].Convert(r)
		} else {
			units[i] = float64(r)
		}
	}
	return units
}
