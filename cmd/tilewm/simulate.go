package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/tilewm/internal/scenario"
)

func runSimulate(args []string) int {
	fs := newFlagSet("simulate", "simulate [--json] [--config PATH] [-v] <scenario>",
		"Replay a YAML or JSONC scenario against an in-process shell on a fake clock.\nExits non-zero on the first failed expectation.")
	jsonOut := fs.Bool("json", false, "Print one JSON result per step (default when stdout is not a terminal)")
	configPath := fs.String("config", "", "Config file path (default: ~/.config/tilewm/config.yaml)")
	verbose := fs.Bool("v", false, "Log every step")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	res, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	logger, level := newLogger(res.Config)
	if *verbose {
		level.Set(slog.LevelDebug)
	}

	sc, err := scenario.Load(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	asJSON := *jsonOut || !isTerminal(os.Stdout)
	enc := json.NewEncoder(os.Stdout)
	onResult := func(r scenario.Result) {
		if asJSON {
			if err := enc.Encode(r); err != nil {
				logger.Warn("failed to encode result", "error", err)
			}
			return
		}
		printResult(r)
	}

	if !asJSON {
		fmt.Printf("scenario %s: %d outputs, %d steps\n", sc.Name, len(sc.Outputs), len(sc.Steps))
	}
	results, err := scenario.Run(ctx, sc, scenario.Options{Config: res.Config, Logger: logger, OnResult: onResult})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", sc.Name, err)
		return 1
	}
	if !asJSON {
		fmt.Printf("PASS %s (%d steps)\n", sc.Name, len(results))
	}
	return 0
}

func printResult(r scenario.Result) {
	fmt.Printf("%4d %9s %-18s", r.Index, r.At, r.Op)
	if r.Frame != nil {
		elems := 0
		for _, o := range r.Frame.Outputs {
			elems += len(o.Elements)
		}
		fmt.Printf(" outputs=%d elements=%d", len(r.Frame.Outputs), elems)
	}
	for _, e := range r.Events {
		fmt.Printf(" [%s]", e)
	}
	fmt.Println()
}
