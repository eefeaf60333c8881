package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dunamismax/vectorstudio/internal/logging"
	"github.com/dunamismax/vectorstudio/internal/presets"
)

var exampleUsage = strings.TrimSpace(`
  vectorctl analyze logo.png
  vectorctl render --kind qr_code --colors '#1d4ed8' --payload vectorized/logo.svg > qr.svg
  vectorctl command build --input "my logo.png" --preset high_quality
  vectorctl simulate --size-kb 300 --colors 16 --tick 20ms
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries what every subcommand shares. The logger writes to stderr so stdout
// stays clean for SVG, PNG and JSON output.
type cli struct {
	out         io.Writer
	errOut      io.Writer
	logLevel    string
	logFormat   string
	presetsFile string
	logger      zerolog.Logger
}

func (c *cli) catalog() (*presets.Catalog, error) {
	catalog, err := presets.Load(c.presetsFile)
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}
	return catalog, nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut, logger: logging.Discard()}

	root := &cobra.Command{
		Use:           "vectorctl",
		Short:         "Inspect, render and simulate rv0 vectorization runs locally",
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			c.logger = logging.New(c.errOut, logging.Options{Level: c.logLevel, Format: c.logFormat}, "vectorctl")
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&c.logFormat, "log-format", "console", "log format (console or json)")
	flags.StringVar(&c.presetsFile, "presets-file", os.Getenv("RV0_PRESETS_FILE"), "optional TOML preset catalog")

	root.AddCommand(
		newAnalyzeCmd(c),
		newRenderCmd(c),
		newCommandCmd(c),
		newPresetsCmd(c),
		newSimulateCmd(c),
	)
	return root
}

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
