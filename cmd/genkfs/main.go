// Command genkfs writes a KnightOS KFS filesystem image into an existing
// ROM file from a host directory tree.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/knightos/genkfs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "genkfs <rom-path> <model-path>",
		Short: "Write a KnightOS KFS filesystem image into a ROM file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], args[1], verbose)
		},
		SilenceUsage: true,
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every FAT entry and section written")
	return cmd
}

func run(romPath, modelPath string, verbose bool) error {
	level := slog.LevelInfo
	if verbose {
		// The writer logs FAT entries and sections at its trace level,
		// two steps below Debug.
		level = slog.LevelDebug - 2
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	progress := newCLIProgress(os.Stdout)
	if _, err := kfs.Build(romPath, modelPath, kfs.Options{
		Progress: progress,
		Logger:   logger,
	}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

// cliProgress prints one line per emitted entry, the way the reference
// tool's "Adding <path>..." output does, coloring the path when stdout is
// a terminal.
type cliProgress struct {
	w      *os.File
	colors bool
}

func newCLIProgress(w *os.File) *cliProgress {
	return &cliProgress{w: w, colors: isatty.IsTerminal(w.Fd())}
}

func (p *cliProgress) Adding(path string) {
	fmt.Fprintf(p.w, "Adding %s...\n", p.highlight(path))
}

func (p *cliProgress) AddingLink(name, target string) {
	fmt.Fprintf(p.w, "Adding link from %s to %s...\n", p.highlight(name), p.highlight(target))
}

func (p *cliProgress) Done(datPages, fatPages int) {
	fmt.Fprintf(p.w, "wrote %d DAT pages, %d FAT pages\n", datPages, fatPages)
}

func (p *cliProgress) highlight(s string) string {
	if !p.colors {
		return s
	}
	const cyan = "\x1b[36m"
	const reset = "\x1b[0m"
	return cyan + s + reset
}
