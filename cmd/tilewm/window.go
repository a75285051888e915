package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/1broseidon/tilewm/internal/geom"
	"github.com/1broseidon/tilewm/internal/ipc"
	"github.com/1broseidon/tilewm/internal/render"
	"github.com/1broseidon/tilewm/internal/shell"
	"github.com/1broseidon/tilewm/internal/window"
)

var windowActions = map[string]ipc.CommandType{
	"unmap":        ipc.CommandUnmapWindow,
	"minimize":     ipc.CommandMinimize,
	"unminimize":   ipc.CommandUnminimize,
	"fullscreen":   ipc.CommandFullscreen,
	"unfullscreen": ipc.CommandUnfullscreen,
	"maximize":     ipc.CommandMaximize,
	"unmaximize":   ipc.CommandUnmaximize,
	"float":        ipc.CommandToggleFloating,
	"focus":        ipc.CommandFocus,
}

func printWindowUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tilewm window map [--floating] [--output NAME] [--token T] [--title S] <id> <width> <height>")
	fmt.Fprintln(w, "  tilewm window <action> <id>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Actions: minimize, unminimize, fullscreen, unfullscreen, maximize, unmaximize,")
	fmt.Fprintln(w, "         float, focus, unmap, stick, unstick")
}

func runWindow(args []string) int {
	if len(args) == 0 {
		printWindowUsage(os.Stderr)
		return 2
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printWindowUsage(os.Stdout)
		return 0
	}
	if args[0] == "map" {
		return runWindowMap(args[1:])
	}

	if len(args) != 2 {
		printWindowUsage(os.Stderr)
		return 2
	}
	id, err := parseSurfaceID(args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	client := ipc.NewClient()
	switch args[0] {
	case "stick", "unstick":
		return reportErr(client.SetSticky(id, args[0] == "stick"))
	}
	cmd, ok := windowActions[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown window action: %s\n\n", args[0])
		printWindowUsage(os.Stderr)
		return 2
	}
	return reportErr(client.WindowCommand(cmd, id))
}

func runWindowMap(args []string) int {
	fs := newFlagSet("window map", "window map [flags] <id> <width> <height>", "Map a new window on the daemon's shell.")
	floating := fs.Bool("floating", false, "Map into the floating layer")
	output := fs.String("output", "", "Output whose active workspace receives the window")
	token := fs.String("token", "", "Activation token from 'tilewm workspace token'")
	title := fs.String("title", "", "Window title")
	appID := fs.String("app-id", "", "Application id")
	x := fs.Int("x", -1, "Output-local x of a floating window")
	y := fs.Int("y", -1, "Output-local y of a floating window")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 3 {
		fs.Usage()
		return 2
	}
	id, err := parseSurfaceID(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	w, errW := strconv.Atoi(fs.Arg(1))
	h, errH := strconv.Atoi(fs.Arg(2))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		fmt.Fprintln(os.Stderr, "width and height must be positive integers")
		return 2
	}

	spec := shell.WindowSpec{
		ID:       id,
		Title:    *title,
		AppID:    *appID,
		Size:     geom.Size{W: w, H: h},
		Output:   *output,
		Floating: *floating,
		Token:    *token,
	}
	if *x >= 0 && *y >= 0 {
		spec.Position = &geom.Point{X: *x, Y: *y}
	}
	ws, err := ipc.NewClient().MapWindow(spec)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(ws)
	return 0
}

func parseSurfaceID(s string) (window.SurfaceID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid window id %q", s)
	}
	return window.SurfaceID(n), nil
}

func runTiling(args []string) int {
	fs := newFlagSet("tiling", "tiling [--workspace H] [--output NAME] on|off", "Enable or disable tiling on a workspace.")
	ws := fs.String("workspace", "", "Workspace handle (default: active workspace of --output)")
	output := fs.String("output", "", "Output name (default: first output)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 || (fs.Arg(0) != "on" && fs.Arg(0) != "off") {
		fs.Usage()
		return 2
	}
	return reportErr(ipc.NewClient().SetTiling(*ws, *output, fs.Arg(0) == "on"))
}

func runRender(args []string) int {
	fs := newFlagSet("render", "render [--json] [--output NAME]", "Print the composed frame of an output without advancing animations.")
	jsonOut := fs.Bool("json", false, "Print JSON")
	output := fs.String("output", "", "Output name (default: first output)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	frame, err := ipc.NewClient().Render(*output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut || !isTerminal(os.Stdout) {
		return printJSON(frame)
	}
	fmt.Printf("output %s  workspace %s\n", frame.Output, frame.Workspace)
	printElements(os.Stdout, frame.Elements, "")
	printElements(os.Stdout, frame.Popups, "popup ")
	return 0
}

func printElements(w io.Writer, elems []render.Element, prefix string) {
	for i, e := range elems {
		g := e.Geometry(1)
		fmt.Fprintf(w, "  %2d %s%-17s %-14s %dx%d+%d+%d alpha=%.2f\n", i, prefix, e.Kind, e.ID(),
			g.Width, g.Height, g.X, g.Y, e.Alpha())
	}
}
