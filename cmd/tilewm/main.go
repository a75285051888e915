package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/tilewm/internal/config"
	"github.com/1broseidon/tilewm/internal/daemon"
	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/ipc"
	"github.com/1broseidon/tilewm/internal/platform"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "daemon":
		os.Exit(runDaemon(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "outputs":
		os.Exit(runOutputs(os.Args[2:]))
	case "workspace":
		os.Exit(runWorkspace(os.Args[2:]))
	case "window":
		os.Exit(runWindow(os.Args[2:]))
	case "tiling":
		os.Exit(runTiling(os.Args[2:]))
	case "render":
		os.Exit(runRender(os.Args[2:]))
	case "simulate":
		os.Exit(runSimulate(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "pin":
		os.Exit(runPin(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tilewm <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  daemon              Start the tilewm daemon (foreground)")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "  reload              Ask the daemon to re-read its config")
	fmt.Fprintln(w, "  outputs             List connected outputs")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  workspace list      List workspaces and their windows")
	fmt.Fprintln(w, "  workspace add       Add a workspace to an output")
	fmt.Fprintln(w, "  workspace activate  Show a workspace on its output")
	fmt.Fprintln(w, "  workspace move      Move a workspace to another output")
	fmt.Fprintln(w, "  workspace pin       Pin or unpin a workspace")
	fmt.Fprintln(w, "  workspace token     Issue an activation token")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  window map          Map a new window")
	fmt.Fprintln(w, "  window <action>     minimize, unminimize, fullscreen, unfullscreen,")
	fmt.Fprintln(w, "                      maximize, unmaximize, float, focus, unmap, stick, unstick")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  tiling on|off       Toggle tiling on a workspace")
	fmt.Fprintln(w, "  render              Print the composed frame of an output")
	fmt.Fprintln(w, "  simulate            Replay a scenario file against an in-process shell")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  pin show|decode     Inspect persisted pinned workspaces")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'tilewm <command> --help' for command-specific options.")
}

// parseFlags parses args and maps the outcome onto an exit code. ok is
// false when the caller should return code.
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func newFlagSet(name, usage, description string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tilewm %s\n", usage)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, description)
		hasFlags := false
		fs.VisitAll(func(*flag.Flag) { hasFlags = true })
		if hasFlags {
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Flags:")
			fs.PrintDefaults()
		}
	}
	return fs
}

// loadConfig reads path, or the default location when path is empty.
func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return config.LoadFromPath(path)
}

// newLogger writes text logs to stderr at a level that can change at runtime.
func newLogger(cfg *config.Config) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), level
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runDaemon(args []string) int {
	fs := newFlagSet("daemon", "daemon [--x11] [--display NAME] [--config PATH]", "Run the window manager daemon in the foreground.")
	useX11 := fs.Bool("x11", false, "Manage an X11 display (default: in-memory backend)")
	display := fs.String("display", "", "X11 display for --x11 (default: $DISPLAY)")
	configPath := fs.String("config", "", "Config file path (default: ~/.config/tilewm/config.yaml)")
	socketPath := fs.String("socket", "", "IPC socket path (default: $TILEWM_SOCKET or the runtime dir)")
	pinnedPath := fs.String("pinned", "", "Pinned workspace store (default: $XDG_STATE_HOME/tilewm/pinned.cbor; '-' disables)")
	width := fs.Int("width", 1920, "Width of the virtual output of the in-memory backend")
	height := fs.Int("height", 1080, "Height of the virtual output of the in-memory backend")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	logger, level := newLogger(res.Config)
	slog.SetDefault(logger)
	if res.File != "" {
		logger.Info("configuration loaded", "file", res.File, "gap", res.Config.GapSize, "tiling", res.Config.TilingEnabled)
	}

	var (
		backend     platform.Backend
		backendName string
	)
	if *useX11 {
		b, err := platform.NewX11BackendFromDisplay(*display)
		if err != nil {
			logger.Error("failed to connect to display", "display", *display, "error", err)
			return 1
		}
		backend, backendName = b, "x11"
		if named, ok := backend.(interface{ WMName() string }); ok && named.WMName() != "" {
			logger.Info("running alongside window manager", "wm", named.WMName())
		}
	} else {
		backend = platform.NewMemory(platform.OutputInfo{
			Name:     "VIRTUAL-1",
			Geometry: geom.Rect{Width: *width, Height: *height},
			Scale:    1,
		})
		backendName = "memory"
	}

	d, err := daemon.New(daemon.Options{
		Config:      res.Config,
		ConfigPath:  *configPath,
		Backend:     backend,
		BackendName: backendName,
		Logger:      logger,
		Level:       level,
		SocketPath:  *socketPath,
		PinnedPath:  *pinnedPath,
	})
	if err != nil {
		logger.Error("failed to create daemon", "error", err)
		backend.Close()
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go forwardSIGHUP(ctx, d.SocketPath(), logger)

	if err := d.Run(ctx); err != nil {
		logger.Error("daemon failed", "error", err)
		return 1
	}
	return 0
}

// forwardSIGHUP turns SIGHUP into a reload request over the daemon's own
// socket.
func forwardSIGHUP(ctx context.Context, socket string, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			logger.Info("received SIGHUP, reloading config")
			if err := ipc.NewClientAt(socket).Reload(); err != nil {
				logger.Warn("reload failed", "error", err)
			}
		}
	}
}

func runStatus(args []string) int {
	fs := newFlagSet("status", "status [--json]", "Show daemon status via IPC.")
	jsonOut := fs.Bool("json", false, "Print the full status as JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		fs.Usage()
		return 2
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(status)
	}
	fmt.Printf("backend:             %s\n", status.Daemon.Backend)
	fmt.Printf("uptime_seconds:      %d\n", status.Daemon.UptimeSeconds)
	fmt.Printf("frames:              %d\n", status.Daemon.Frames)
	fmt.Printf("outputs:             %d\n", len(status.Shell.Outputs))
	fmt.Printf("workspaces:          %d\n", len(status.Shell.Workspaces))
	fmt.Printf("windows:             %d\n", status.Shell.Windows)
	fmt.Printf("orphaned_workspaces: %d\n", status.Shell.OrphanedSpaces)
	fmt.Printf("pending_pinned:      %d\n", status.Shell.PendingPinned)
	return 0
}

func runReload(args []string) int {
	fs := newFlagSet("reload", "reload", "Ask the daemon to re-read its configuration.")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runOutputs(args []string) int {
	fs := newFlagSet("outputs", "outputs [--json]", "List the outputs the daemon manages.")
	jsonOut := fs.Bool("json", false, "Print JSON")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	outs, err := ipc.NewClient().GetOutputs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(outs)
	}
	for _, o := range outs {
		state := "enabled"
		if !o.Enabled {
			state = "disabled"
		}
		fmt.Printf("%-10s %dx%d+%d+%d scale=%s edid=%s %s overview=%s\n",
			o.Name, o.Geometry.Width, o.Geometry.Height, o.Geometry.X, o.Geometry.Y,
			strconv.FormatFloat(o.Scale, 'f', -1, 64), o.EDID, state, o.Overview)
	}
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  tilewm config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  tilewm config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/tilewm/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if res.File == "" {
			fmt.Println("config: ok (defaults)")
			return 0
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/tilewm/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			if res.File != "" {
				fmt.Printf("# file: %s\n", res.File)
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}
