// armdeck: the arm control deck
// Serves the dashboard, owns the kinematics session and fans servo pulse
// frames out to hardware bridges.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-armdeck/internal/config"
	"github.com/teslashibe/go-armdeck/internal/log"
	"github.com/teslashibe/go-armdeck/pkg/arm"
	"github.com/teslashibe/go-armdeck/pkg/bridgehub"
	"github.com/teslashibe/go-armdeck/pkg/motion"
	"github.com/teslashibe/go-armdeck/pkg/servo"
	"github.com/teslashibe/go-armdeck/pkg/viewport"
	"github.com/teslashibe/go-armdeck/pkg/web"
)

// Dashboard canvas size. Screen coordinates in state frames assume it.
const (
	canvasWidth  = 700
	canvasHeight = 650
)

func main() {
	configPath := flag.String("config", "", "YAML config file (or set ARMDECK_CONFIG)")
	addr := flag.String("addr", "", "listen address (overrides config)")
	serialPort := flag.String("serial", "", "local servo serial port (overrides config)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides config)")
	flag.Parse()

	cfg, cfgErr := config.Load(*configPath)
	if *addr != "" {
		cfg.Addr = *addr
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

	session := arm.NewSession(viewport.NewView(canvasWidth, canvasHeight))
	motions := motion.NewManager(session, motion.DefaultRate)
	bridges := bridgehub.NewHub()

	srv := web.NewServer(cfg.Addr, cfg.WebDir, session, motions, bridges)
	srv.RecordDir = cfg.RecordDir

	// The local serial driver is optional; most decks talk to servos
	// through a bridge instead.
	var driver *servo.Driver
	if cfg.SerialPort != "" {
		d, err := servo.Open(cfg.SerialPort, cfg.SerialBaud)
		if err != nil {
			log.Error("serial open failed", "port", cfg.SerialPort, "error", err)
			os.Exit(1)
		}
		driver = d
		defer driver.Close()
		log.Info("local servo driver ready", "port", cfg.SerialPort, "baud", cfg.SerialBaud)
	}

	// Every session mutation becomes a pulse frame and a dashboard
	// broadcast.
	session.OnChange(func(st arm.State) {
		frame := servo.FrameForPose(st.Joints, st.Pump)
		if driver != nil {
			if err := driver.Send(frame); err != nil {
				log.Warn("serial write failed", "error", err)
			}
		}
		bridges.SendPulse(frame)
		srv.BroadcastState(st)
	})

	go motions.Run()
	srv.StartAsync()

	log.Info("armdeck up",
		"addr", cfg.Addr,
		"dashboard", "http://localhost"+cfg.Addr,
		"bridge_ws", "ws://localhost"+cfg.Addr+"/ws/bridge")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	motions.Stop()
	if err := srv.Shutdown(); err != nil {
		log.Warn("shutdown error", "error", err)
	}
}
