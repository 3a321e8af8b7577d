package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/banshee-data/powerguard/internal/classifier"
	"github.com/banshee-data/powerguard/internal/command"
	"github.com/banshee-data/powerguard/internal/config"
	"github.com/banshee-data/powerguard/internal/display"
	"github.com/banshee-data/powerguard/internal/fsutil"
	"github.com/banshee-data/powerguard/internal/hal"
	"github.com/banshee-data/powerguard/internal/monitoring"
	"github.com/banshee-data/powerguard/internal/sampling"
	"github.com/banshee-data/powerguard/internal/schedule"
	"github.com/banshee-data/powerguard/internal/serialmux"
	"github.com/banshee-data/powerguard/internal/state"
	"github.com/banshee-data/powerguard/internal/version"
)

var (
	port       = flag.String("port", "/dev/ttyS0", "Serial port to use (- for stdin/stdout)")
	configFile = flag.String("config", config.DefaultConfigPath, "Device configuration JSON file")
	modelFile  = flag.String("model", "", "Classifier model JSON file (built-in model when empty)")
	scenario   = flag.String("scenario", string(hal.ScenarioNormal), "Simulated sensor scenario: normal, bypass or overload")
	displayPNG = flag.String("display-png", "", "Write every display frame to this PNG file")
	envFile    = flag.String("env", ".env", "Environment file with POWERGUARD_* defaults")
	showVer    = flag.Bool("version", false, "Print the version and exit")
)

// envFlags maps flags to the environment variables that can supply them.
var envFlags = map[string]string{
	"port":     "POWERGUARD_PORT",
	"config":   "POWERGUARD_CONFIG",
	"model":    "POWERGUARD_MODEL",
	"scenario": "POWERGUARD_SCENARIO",
}

// applyEnv fills flags not given on the command line from the environment.
func applyEnv(fset *flag.FlagSet, lookup func(string) (string, bool)) error {
	explicit := map[string]bool{}
	fset.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	for name, key := range envFlags {
		if explicit[name] {
			continue
		}
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		if err := fset.Set(name, v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func loadEnvFile(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load env file %s: %v", path, err)
	}
}

// loadModel returns the model at path, or the built-in one sized to cfg.
func loadModel(fsys fsutil.FileSystem, path string, cfg *config.DeviceConfig) (*classifier.LinearModel, error) {
	window, axes := cfg.GetWindowSamples(), cfg.GetAxesPerSample()
	if path == "" {
		return classifier.DefaultLinearModel(window, axes), nil
	}
	m, err := classifier.LoadLinearModel(fsys, path)
	if err != nil {
		return nil, err
	}
	if m.WindowSamples != window || m.Axes != axes {
		// Not fatal: every window will report the shape error on the line.
		log.Printf("model %s expects %d×%d features, device packs %d×%d", path, m.WindowSamples, m.Axes, window, axes)
	}
	return m, nil
}

// newSensor builds the simulated mains sensor reading back relay.
func newSensor(sc hal.Scenario, relay hal.Pin) *hal.SimulatedSensor {
	sensor := hal.NewSimulatedSensor(hal.DefaultSimulatedSensorConfig(), relay)
	sensor.SetScenario(sc)
	return sensor
}

func openLink(path string, opts serialmux.PortOptions) (serialmux.LinkInterface, error) {
	if path == "-" {
		return serialmux.NewLink(serialmux.NewStreamPort(os.Stdin, os.Stdout)), nil
	}
	link, err := serialmux.NewRealLink(path, opts)
	if err != nil {
		return nil, err
	}
	return link, nil
}

// probe initializes collaborators that need it. A failure is logged once and
// the device keeps running without recovery.
func probe(name string, c any) {
	initializer, ok := c.(hal.Initializer)
	if !ok {
		return
	}
	if err := initializer.Init(); err != nil {
		monitoring.LogOnce("probe."+name, "%s unavailable: %v", name, err)
	}
}

func run(ctx context.Context, name string, wg *sync.WaitGroup, f func(context.Context) error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := f(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("%s worker stopped: %v", name, err)
		}
		log.Printf("%s routine terminated", name)
	}()
}

// Main
func main() {
	flag.Parse()
	if *showVer {
		fmt.Println(version.String())
		return
	}
	loadEnvFile(*envFile)
	if err := applyEnv(flag.CommandLine, os.LookupEnv); err != nil {
		log.Fatalf("invalid environment: %v", err)
	}
	if *port == "" {
		log.Fatal("Serial port is required")
	}

	fsys := fsutil.OSFileSystem{}
	cfg, err := config.LoadDeviceConfig(fsys, *configFile)
	if err != nil {
		log.Fatalf("failed to load device config: %v", err)
	}
	model, err := loadModel(fsys, *modelFile, cfg)
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}
	sc, err := hal.ParseScenario(*scenario)
	if err != nil {
		log.Fatalf("%v", err)
	}

	link, err := openLink(*port, cfg.GetSerial())
	if err != nil {
		log.Fatalf("failed to open serial link: %v", err)
	}
	defer link.Close()

	relay := hal.NewMemoryPin("relay")
	alert := hal.NewMemoryPin("alert")
	sensor := newSensor(sc, relay)

	var sink display.Sink
	if *displayPNG != "" {
		png := display.NewPNGSink(fsys, *displayPNG)
		probe("frame sink", png)
		sink = png
	}
	panel := display.NewFrameBuffer(sink)

	probe("sensor", sensor)
	probe("display", panel)

	store := state.NewStore()
	clock := schedule.RealClock{}

	commands := command.NewWorker(link, relay, clock, cfg.GetCommandPollInterval())
	sampler := sampling.NewWorker(sampling.Config{
		Period:        cfg.GetSampleInterval(),
		WindowSamples: cfg.GetWindowSamples(),
		Axes:          cfg.GetAxesPerSample(),
		Decision: sampling.DecisionConfig{
			Alpha:             cfg.GetEWMAAlpha(),
			AlertThreshold:    cfg.GetEWMAAlertThreshold(),
			DecisionThreshold: cfg.GetDecisionThreshold(),
			VoteAlertCount:    cfg.GetVoteAlertCount(),
		},
	}, sensor, relay, alert, model, store, link, clock)
	screen := display.NewWorker(store, display.NewRenderer(panel, cfg.GetBootFrames()), clock, cfg.GetRenderInterval())

	log.Printf("%s: port=%s scenario=%s window=%d×%d every %v", version.String(), *port, sc,
		cfg.GetWindowSamples(), cfg.GetAxesPerSample(), cfg.GetSampleInterval())

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run(ctx, "command", &wg, commands.Run)
	run(ctx, "sampling", &wg, sampler.Run)
	run(ctx, "display", &wg, screen.Run)

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
