package command

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/pflag"

	"github.com/dunamismax/vectorstudio/internal/domain"
)

const (
	Interpreter = "python3"
	Script      = "imagetracer.py"

	defaultInput  = "input.png"
	defaultOutput = "output.svg"
)

var ErrNotTracerCommand = errors.New("not an imagetracer command")

type Settings struct {
	Input  string
	Output string
	Preset string
	Colors int
	Scale  float64
}

// Default is the command shown before anything has been uploaded.
func Default() string {
	return strings.Join([]string{Interpreter, Script, defaultInput, defaultOutput, "--preset", domain.DefaultPresetID}, " ")
}

// Build formats the tracer invocation for s. Output defaults to the input name with
// its extension swapped for ".svg".
func Build(s Settings) string {
	if strings.TrimSpace(s.Input) == "" {
		return Default()
	}
	output := s.Output
	if output == "" {
		output = domain.SVGName(s.Input)
	}
	preset := s.Preset
	if preset == "" {
		preset = domain.DefaultPresetID
	}

	parts := []string{
		Interpreter, Script,
		Quote(s.Input),
		Quote(output),
		"--preset", Quote(preset),
		"--colors", strconv.Itoa(s.Colors),
		"--scale", strconv.FormatFloat(s.Scale, 'f', -1, 64),
	}
	return strings.Join(parts, " ")
}

// Quote leaves shell-safe words alone and single-quotes everything else.
func Quote(word string) string {
	if word == "" {
		return "''"
	}
	if strings.IndexFunc(word, unsafeRune) < 0 {
		return word
	}
	return "'" + strings.ReplaceAll(word, "'", `'\''`) + "'"
}

func unsafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("._-/+@%:,=", r):
		return false
	}
	return true
}

// Parse reads a shared command line back into settings. Flags that are absent stay
// zero so the caller can fill them from the preset.
func Parse(line string) (Settings, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return Settings{}, fmt.Errorf("split command: %w", err)
	}
	if len(words) < 2 || words[0] != Interpreter || words[1] != Script {
		return Settings{}, ErrNotTracerCommand
	}

	fs := pflag.NewFlagSet(Script, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	preset := fs.String("preset", "", "preset id")
	colors := fs.Int("colors", 0, "color count")
	scale := fs.Float64("scale", 0, "scale multiplier")
	if err := fs.Parse(words[2:]); err != nil {
		return Settings{}, fmt.Errorf("parse flags: %w", err)
	}

	args := fs.Args()
	if len(args) != 2 {
		return Settings{}, fmt.Errorf("expected input and output paths, got %d arguments", len(args))
	}
	if *preset == "" {
		return Settings{}, errors.New("--preset is required")
	}

	return Settings{
		Input:  args[0],
		Output: args[1],
		Preset: *preset,
		Colors: *colors,
		Scale:  *scale,
	}, nil
}
