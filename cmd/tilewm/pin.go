package main

import (
	"fmt"
	"io"
	"os"

	"github.com/1broseidon/tilewm/internal/codec"
	"github.com/1broseidon/tilewm/internal/ipc"
	"github.com/1broseidon/tilewm/internal/protocol"
	"github.com/1broseidon/tilewm/internal/runtimepath"
)

func printPinUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tilewm pin show [--file PATH] [--live] [--diag]")
	fmt.Fprintln(w, "  tilewm pin decode <hex>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "show reads the records the daemon saved on its last shutdown; with")
	fmt.Fprintln(w, "--live it asks the running daemon instead.")
}

func runPin(args []string) int {
	if len(args) == 0 {
		printPinUsage(os.Stderr)
		return 2
	}
	switch args[0] {
	case "help", "-h", "--help":
		printPinUsage(os.Stdout)
		return 0

	case "show":
		fs := newFlagSet("pin show", "pin show [--file PATH] [--live] [--diag]", "Print persisted pinned workspace records.")
		file := fs.String("file", "", "Record file (default: the runtime dir)")
		live := fs.Bool("live", false, "Query the running daemon")
		diag := fs.Bool("diag", false, "Print CBOR diagnostic notation instead of records")
		if code, ok := parseFlags(fs, args[1:]); !ok {
			return code
		}

		var data []byte
		if *live {
			pinned, err := ipc.NewClient().Pinned()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			var records []protocol.PinnedWorkspace
			if err := codec.DecodeHex(pinned.Encoded, &records); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			if data, err = codec.Marshal(records); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		} else {
			path := *file
			if path == "" {
				p, err := runtimepath.PinnedPath()
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					return 1
				}
				path = p
			}
			var err error
			if data, err = os.ReadFile(path); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		}
		return printPinned(data, *diag)

	case "decode":
		if len(args) != 2 {
			printPinUsage(os.Stderr)
			return 2
		}
		var records []protocol.PinnedWorkspace
		if err := codec.DecodeHex(args[1], &records); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return printJSON(records)

	default:
		fmt.Fprintf(os.Stderr, "Unknown pin command: %s\n\n", args[0])
		printPinUsage(os.Stderr)
		return 2
	}
}

func printPinned(data []byte, diag bool) int {
	if diag {
		out, err := codec.Diagnose(data)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(out)
		return 0
	}
	var records []protocol.PinnedWorkspace
	if err := codec.Unmarshal(data, &records); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, r := range records {
		tiling := "tiling"
		if !r.TilingEnabled {
			tiling = "floating"
		}
		fmt.Printf("%-10s %-24s %s\n", r.Output.Name, r.Output.EDID.String(), tiling)
	}
	return 0
}
