package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/touchsurface/internal/app"
	"github.com/ayusman/touchsurface/internal/capture"
	"github.com/ayusman/touchsurface/internal/config"
	"github.com/ayusman/touchsurface/internal/detector"
	"github.com/ayusman/touchsurface/internal/display"
	"github.com/ayusman/touchsurface/internal/hook"
	"github.com/ayusman/touchsurface/internal/preprocess"
	"github.com/ayusman/touchsurface/internal/server"
	"github.com/ayusman/touchsurface/internal/store"
	"github.com/ayusman/touchsurface/internal/tracker"
	"github.com/ayusman/touchsurface/internal/tray"
	"github.com/ayusman/touchsurface/internal/vision"
)

var (
	configPath  = flag.String("config", "", "path to a YAML config file")
	background  = flag.String("background", "", "background image (overrides config)")
	video       = flag.String("video", "", "video file or camera index (overrides config)")
	captureBg   = flag.Bool("capture-background", false, "use the first video frame as the background")
	addr        = flag.String("addr", "", "HTTP listen address (overrides config)")
	noServer    = flag.Bool("no-server", false, "disable the HTTP server")
	dbPath      = flag.String("db", "", "SQLite database path (default ~/.touchsurface/touchsurface.db)")
	webDir      = flag.String("web", "", "static web directory (default: search common locations)")
	headless    = flag.Bool("headless", false, "run without a display window")
	useTray     = flag.Bool("tray", false, "show a system tray icon (headless only)")
	streaming   = flag.Bool("streaming", false, "use the live-video threshold")
	profileName = flag.String("profile", "", "tuning profile to apply")
	saveProfile = flag.String("save-profile", "", "save the effective tuning under this profile name and exit")
	verbose     = flag.Bool("verbose", false, "log touch down/up events")
	hooksDir    = flag.String("hooks", "", "directory of touch event hooks (overrides config)")
)

func main() {
	flag.Parse()
	fmt.Println("touchsurface - Fingertip Touch Tracking")

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	applyFlags(&cfg)

	st, err := openStore(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	if *saveProfile != "" {
		if err := storeProfile(st, *saveProfile, cfg); err != nil {
			log.Fatalf("Failed to save profile: %v", err)
		}
		fmt.Printf("Saved profile %q\n", *saveProfile)
		return
	}

	if err := applyProfile(st, &cfg); err != nil {
		log.Fatalf("Failed to apply profile: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := run(cfg, st); err != nil {
		log.Fatalf("touchsurface failed: %v", err)
	}
}

// applyFlags copies explicitly set flags over the file configuration.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "background":
			cfg.Loop.Background = *background
		case "video":
			cfg.Loop.Video = *video
		case "addr":
			cfg.Server.Addr = *addr
		case "no-server":
			cfg.Server.Enabled = !*noServer
		case "db":
			cfg.Store.Path = *dbPath
		case "web":
			cfg.Server.WebDir = *webDir
		case "headless":
			cfg.Loop.Headless = *headless
		case "streaming":
			cfg.Preprocess.Streaming = *streaming
		case "profile":
			cfg.Store.Profile = *profileName
		case "verbose":
			cfg.Loop.Verbose = *verbose
		case "hooks":
			cfg.Hooks.Dir = *hooksDir
		}
	})
}

func openStore(path string) (*store.Store, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".touchsurface", "touchsurface.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return store.New(path)
}

// applyProfile applies the named profile, or the stored active one when no
// name is configured. A missing named profile is an error; a missing
// active one is only logged.
func applyProfile(st *store.Store, cfg *config.Config) error {
	name := cfg.Store.Profile
	explicit := name != ""
	if !explicit {
		active, err := st.Settings().Get(store.SettingActiveProfile)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		name = active
	}

	p, err := st.Profiles().GetByName(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) && !explicit {
			log.Printf("Active profile %q no longer exists", name)
			return nil
		}
		return fmt.Errorf("profile %q: %w", name, err)
	}

	p.ApplyTo(cfg)
	log.Printf("Applied profile %q", p.Name)
	return nil
}

func storeProfile(st *store.Store, name string, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	existing, err := st.Profiles().GetByName(name)
	switch {
	case err == nil:
		p := store.ProfileFromConfig(existing.ID, name, cfg)
		return st.Profiles().Update(p)
	case errors.Is(err, store.ErrNotFound):
		return st.Profiles().Create(store.ProfileFromConfig(uuid.New().String(), name, cfg))
	default:
		return err
	}
}

func run(cfg config.Config, st *store.Store) error {
	src := capture.NewVideoSource(cfg.Loop.Video)
	if err := src.Open(); err != nil {
		return err
	}
	defer src.Close()

	bg, err := loadBackground(cfg, src)
	if err != nil {
		return err
	}
	defer bg.Close()

	ops := vision.NewGoCV()

	var disp display.Display
	if cfg.Loop.Headless {
		disp = display.NewHeadless()
	} else {
		disp = display.NewWindow(cfg.Loop.WindowName)
	}
	defer disp.Close()

	loopCfg := app.Config{
		Source:       src,
		Background:   bg,
		Preprocessor: preprocess.New(ops, cfg.PreprocessParams()),
		Detector:     detector.NewEllipseDetector(ops, cfg.DetectorConfig()),
		Tracker:      tracker.New(cfg.TrackerConfig()),
		Display:      disp,
		WaitMs:       cfg.Loop.WaitMs,
		Verbose:      cfg.Loop.Verbose,
	}
	if cfg.Server.Enabled {
		loopCfg.JPEGQuality = cfg.Server.JPEGQuality
	}
	loop := app.New(loopCfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Server.Enabled {
		httpSrv := startServer(cfg, st, loop)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			httpSrv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.Hooks.Dir != "" {
		dispatcher, err := startHooks(cfg, loop)
		if err != nil {
			return err
		}
		defer dispatcher.Close()
	}

	if *useTray && !cfg.Loop.Headless {
		log.Println("Ignoring -tray without -headless")
	}
	if !(cfg.Loop.Headless && *useTray) {
		// highgui windows must be driven from the main goroutine
		return loop.Run(ctx)
	}

	t := tray.New()
	t.OnToggle(func(tracking bool) {
		loop.SetPaused(!tracking)
		if tracking {
			log.Println("Tracking resumed")
		} else {
			log.Println("Tracking paused")
		}
	})
	t.OnQuit(cancel)
	t.OnViewer(func() { openBrowser(viewerURL(cfg.Server.Addr)) })
	loop.AddObserver(t)

	errCh := make(chan error, 1)
	go func() {
		errCh <- loop.Run(ctx)
		t.Quit()
	}()

	// systray needs the main goroutine
	t.Run()
	cancel()
	return <-errCh
}

func loadBackground(cfg config.Config, src capture.Source) (gocv.Mat, error) {
	if *captureBg {
		log.Println("Capturing background from the first frame")
		return capture.CaptureBackground(src)
	}
	return capture.LoadBackground(cfg.Loop.Background)
}

func startHooks(cfg config.Config, loop *app.Loop) (*hook.Dispatcher, error) {
	manager := hook.NewManager(cfg.Hooks.Dir)
	if err := manager.Discover(); err != nil {
		return nil, fmt.Errorf("discover hooks: %w", err)
	}
	for _, h := range manager.List() {
		log.Printf("Loaded hook %s %s", h.Manifest.Name, h.Manifest.Version)
	}

	dispatcher := hook.NewDispatcher(manager, hook.NewExecutor(cfg.Hooks.TimeoutMs), cfg.Hooks.QueueSize)
	loop.AddObserver(dispatcher)
	return dispatcher, nil
}

func startServer(cfg config.Config, st *store.Store, loop *app.Loop) *http.Server {
	feed := server.NewFeed()
	loop.AddObserver(feed)

	staticDir := cfg.Server.WebDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		fmt.Printf("Serving static files from: %s\n", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		Feed:      feed,
		Control:   loop,
	})
	httpSrv := srv.HTTPServer(cfg.Server.Addr)

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
		}
	}()

	return httpSrv
}

func viewerURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

// openBrowser opens url with the platform's default handler.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.touchsurface/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".touchsurface", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
