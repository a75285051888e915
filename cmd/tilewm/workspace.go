package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/1broseidon/tilewm/internal/ipc"
	"github.com/1broseidon/tilewm/internal/shell"
)

func printWorkspaceUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tilewm workspace list [--json]")
	fmt.Fprintln(w, "  tilewm workspace add [--output NAME]")
	fmt.Fprintln(w, "  tilewm workspace activate <handle>")
	fmt.Fprintln(w, "  tilewm workspace move <handle> <output>")
	fmt.Fprintln(w, "  tilewm workspace pin [--off] <handle>")
	fmt.Fprintln(w, "  tilewm workspace token [--output NAME] [handle]")
}

func runWorkspace(args []string) int {
	if len(args) == 0 {
		printWorkspaceUsage(os.Stderr)
		return 2
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printWorkspaceUsage(os.Stdout)
		return 0
	}

	client := ipc.NewClient()

	switch args[0] {
	case "list":
		fs := newFlagSet("workspace list", "workspace list [--json]", "List every workspace with its windows.")
		jsonOut := fs.Bool("json", false, "Print JSON")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		wss, err := client.ListWorkspaces()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if *jsonOut {
			return printJSON(wss)
		}
		printWorkspaces(os.Stdout, wss)
		return 0

	case "add":
		fs := newFlagSet("workspace add", "workspace add [--output NAME]", "Append an empty workspace to an output.")
		output := fs.String("output", "", "Output name (default: first output)")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		handle, err := client.AddWorkspace(*output)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(handle)
		return 0

	case "activate":
		fs := newFlagSet("workspace activate", "workspace activate <handle>", "Show a workspace on its output.")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		if fs.NArg() != 1 {
			fs.Usage()
			return 2
		}
		return reportErr(client.WorkspaceCommand(ipc.CommandActivateWorkspace, ipc.WorkspacePayload{Workspace: fs.Arg(0)}))

	case "move":
		fs := newFlagSet("workspace move", "workspace move <handle> <output>", "Move a workspace to another output. This resets its output history.")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		if fs.NArg() != 2 {
			fs.Usage()
			return 2
		}
		return reportErr(client.WorkspaceCommand(ipc.CommandMoveWorkspace, ipc.WorkspacePayload{Workspace: fs.Arg(0), Output: fs.Arg(1)}))

	case "pin":
		fs := newFlagSet("workspace pin", "workspace pin [--off] <handle>", "Pin a workspace so it survives daemon restarts.")
		off := fs.Bool("off", false, "Unpin instead")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		if fs.NArg() != 1 {
			fs.Usage()
			return 2
		}
		return reportErr(client.WorkspaceCommand(ipc.CommandPinWorkspace, ipc.WorkspacePayload{Workspace: fs.Arg(0), Enable: !*off}))

	case "token":
		fs := newFlagSet("workspace token", "workspace token [--output NAME] [handle]", "Issue an activation token. Windows mapped with it open on that workspace.")
		output := fs.String("output", "", "Use the active workspace of this output when no handle is given")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}
		token, err := client.IssueToken(fs.Arg(0), *output)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(token)
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown workspace command: %s\n\n", args[0])
		printWorkspaceUsage(os.Stderr)
		return 2
	}
}

func reportErr(err error) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func printWorkspaces(w io.Writer, wss []shell.WorkspaceInfo) {
	for _, ws := range wss {
		var flags []string
		if ws.Active {
			flags = append(flags, "active")
		}
		if ws.Pinned {
			flags = append(flags, "pinned")
		}
		if !ws.TilingEnabled {
			flags = append(flags, "floating")
		}
		out := ws.Output
		if out == "" {
			out = "(orphaned)"
		}
		fmt.Fprintf(w, "%s  %-10s %s\n", ws.Handle, out, strings.Join(flags, ","))
		for _, win := range ws.Windows {
			state := win.Layer
			switch {
			case win.Minimized:
				state += ",minimized"
			case win.Fullscreen:
				state += ",fullscreen"
			case win.Maximized:
				state += ",maximized"
			}
			fmt.Fprintf(w, "    %-6d %-20s %-22s %dx%d+%d+%d\n", win.ID, truncate(win.Title, 20), state,
				win.Geometry.Width, win.Geometry.Height, win.Geometry.X, win.Geometry.Y)
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
