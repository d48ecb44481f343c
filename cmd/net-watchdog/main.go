// Command net-watchdog probes an upstream address and power-cycles the
// network equipment through a relay when it stops answering.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/net-watchdog/internal/clock"
	"github.com/sweeney/net-watchdog/internal/config"
	"github.com/sweeney/net-watchdog/internal/firmware"
	"github.com/sweeney/net-watchdog/internal/gpio"
	"github.com/sweeney/net-watchdog/internal/mqtt"
	"github.com/sweeney/net-watchdog/internal/node"
	"github.com/sweeney/net-watchdog/internal/ota"
	"github.com/sweeney/net-watchdog/internal/probe"
	"github.com/sweeney/net-watchdog/internal/relay"
	"github.com/sweeney/net-watchdog/internal/status"
	"github.com/sweeney/net-watchdog/internal/store"
	"github.com/sweeney/net-watchdog/internal/system"
	"github.com/sweeney/net-watchdog/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, checkOnce, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := run(cfg, checkOnce); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseArgs loads the config file named by -config, then applies only the
// flags that were set on the command line.
func parseArgs(args []string, output io.Writer) (config.Config, bool, error) {
	def := config.DefaultConfig()
	fs := flag.NewFlagSet("net-watchdog", flag.ContinueOnError)
	fs.SetOutput(output)

	configPath := fs.String("config", config.DefaultPath, "YAML configuration file")
	httpAddr := fs.String("http", def.HTTPAddr, "HTTP control address (empty to disable)")
	address := fs.String("address", def.Probe.Address, "Default probe address")
	period := fs.Int("period", def.Probe.PeriodSeconds, "Default probe period in seconds")
	privileged := fs.Bool("privileged", def.Probe.Privileged, "Use raw ICMP sockets (needs CAP_NET_RAW)")
	chip := fs.String("chip", def.Relay.Chip, "GPIO chip for the relay")
	line := fs.Int("line", def.Relay.Line, "GPIO line offset for the relay")
	activeLow := fs.Bool("active-low", def.Relay.ActiveLow, "Relay is energised by driving the line low")
	storePath := fs.String("store", def.StorePath, `Probe target record ("" keeps it in memory)`)
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address (empty to disable)")
	heartbeat := fs.Duration("heartbeat", def.MQTT.Heartbeat, "Heartbeat interval (0 to disable)")
	otaAddr := fs.String("ota", def.OTA.Addr, "Maintenance listener address")
	tick := fs.Duration("tick", def.Tick, "Loop tick interval")
	checkOnce := fs.Bool("check", false, "Probe the target once, print the result and exit")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, false, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return config.Config{}, false, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "address":
			cfg.Probe.Address = *address
		case "period":
			cfg.Probe.PeriodSeconds = *period
		case "privileged":
			cfg.Probe.Privileged = *privileged
		case "chip":
			cfg.Relay.Chip = *chip
		case "line":
			cfg.Relay.Line = *line
		case "active-low":
			cfg.Relay.ActiveLow = *activeLow
		case "store":
			cfg.StorePath = *storePath
		case "broker":
			cfg.MQTT.Broker = *broker
		case "heartbeat":
			cfg.MQTT.Heartbeat = *heartbeat
		case "ota":
			cfg.OTA.Addr = *otaAddr
		case "tick":
			cfg.Tick = *tick
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, false, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, *checkOnce, nil
}

func run(cfg config.Config, checkOnce bool) error {
	prober := probe.NewICMP(cfg.Probe.Privileged)
	prober.ReplyTimeout = cfg.Probe.Timeout

	st := openStore(cfg.StorePath)
	target, err := store.LoadOrDefault(st, cfg.Target())
	if err != nil && !errors.Is(err, store.ErrNoRecord) {
		log.Printf("store: %v", err)
	}

	// Check mode
	if checkOnce {
		state := "unreachable"
		if prober.Check(context.Background(), target.Address) {
			state = "reachable"
		}
		fmt.Printf("%s: %s\n", target.Address, state)
		return nil
	}

	out, err := gpio.NewRealWriter(cfg.Relay.Chip, cfg.Relay.Line, cfg.Relay.ActiveLow)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer out.Close()
	actuator := relay.New(out, cfg.Relay.PulseWidth)

	bootID := uuid.NewString()
	tracker := status.NewTracker(time.Now(), status.Identity{
		Version: version,
		ChipID:  readChipID(),
		BootID:  bootID,
	})

	// Initialize MQTT
	var publisher mqtt.Publisher = mqtt.NopPublisher{}
	var conn mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		p := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			Prefix:     cfg.MQTT.Prefix,
			ClientID:   "net-watchdog-" + bootID[:8],
			BootID:     bootID,
			OutboxSize: cfg.MQTT.OutboxSize,
		})
		publisher, conn = p, p
	}
	defer publisher.Close()

	firmwarePath := cfg.Firmware.Path
	if firmwarePath == "" {
		if firmwarePath, err = os.Executable(); err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
	}
	stager := firmware.NewStager(firmwarePath, cfg.Firmware.MaxBytes)

	dispatcher := node.NewDispatcher(16)
	client := node.NewClient(dispatcher)

	var advertiser ota.Advertiser
	if cfg.OTA.MDNS {
		advertiser = &ota.MDNSAdvertiser{Interface: cfg.OTA.Interface}
	}
	session := ota.NewSession(ota.Config{
		Addr:     cfg.OTA.Addr,
		Instance: cfg.OTA.Instance,
		Version:  version,
	}, stager, advertiser, client.OTAResult)

	var n *node.Node
	restarter := system.NewExecRestarter(func(reason string) {
		dispatcher.Stop()
		n.Shutdown("RESTART_" + reason)
		publisher.Close()
		out.Close()
	})

	n = node.New(node.Config{
		Target:            target,
		RebootDelay:       cfg.RebootDelay,
		OTARebootDelay:    cfg.OTA.RebootDelay,
		MaintenanceWindow: cfg.OTA.Window,
		Heartbeat:         cfg.MQTT.Heartbeat,
	}, node.Deps{
		Clock:       clock.NewReal(),
		Prober:      prober,
		Actuator:    actuator,
		Store:       st,
		Restarter:   restarter,
		Session:     session,
		Provisioner: system.FileProvisioner{Paths: cfg.Provisioning.Paths},
		Publisher:   publisher,
		Connection:  conn,
		Tracker:     tracker,
		Network:     func() *status.NetworkInfo { return readNetworkInfo(cfg.Network.Interface) },
	})

	// Publish startup event with full status snapshot
	n.Startup()

	// Start HTTP control surface
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, client, stager, web.Options{
			Version:        version,
			RefreshSeconds: int(cfg.RebootDelay/time.Second) + 1,
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http control surface listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: version=%s target=%q period=%ds relay=%s:%d broker=%q heartbeat=%v",
		version, target.Address, target.PeriodSeconds, cfg.Relay.Chip, cfg.Relay.Line, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(n, dispatcher, ticker.C, sigCh)
}

// runLoop owns the node. Requests are served as they arrive; on each tick,
// queued requests are drained before the node steps.
func runLoop(n *node.Node, d *node.Dispatcher, tick <-chan time.Time, sig <-chan os.Signal) error {
	ctx := context.Background()
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			d.Stop()
			n.Shutdown(signalName(s))
			return nil

		case req := <-d.Requests():
			req.Run(n)

		case <-tick:
			d.Drain(n)
			n.Step(ctx)
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

func openStore(path string) store.Store {
	if path == "" {
		return store.NewMemStore()
	}
	fs, err := store.NewFileStore(path)
	if err != nil {
		log.Printf("store: %v, keeping the target in memory", err)
		return store.NewMemStore()
	}
	return fs
}
