package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dunamismax/vectorstudio/internal/command"
)

func newCommandCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "command",
		Short: "Build or parse the imagetracer command line",
	}
	cmd.AddCommand(newCommandBuildCmd(c), newCommandParseCmd(c))
	return cmd
}

func newCommandBuildCmd(c *cli) *cobra.Command {
	var (
		input  string
		preset string
		colors int
		scale  float64
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Print the command for an input file and settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input == "" {
				fmt.Fprintln(c.out, command.Default())
				return nil
			}

			catalog, err := c.catalog()
			if err != nil {
				return err
			}
			settings, err := catalog.Resolve(preset, colors, scale)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, command.Build(command.Settings{
				Input:  input,
				Preset: settings.PresetID,
				Colors: settings.Colors,
				Scale:  settings.Scale,
			}))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input, "input", "", "uploaded file name")
	flags.StringVar(&preset, "preset", "", "preset id (default color_perfect)")
	flags.IntVar(&colors, "colors", 0, "color count override")
	flags.Float64Var(&scale, "scale", 0, "scale override")
	return cmd
}

func newCommandParseCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <command line>",
		Short: "Read a shared command line back into settings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := command.Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}
			catalog, err := c.catalog()
			if err != nil {
				return err
			}
			settings, err := catalog.Resolve(parsed.Preset, parsed.Colors, parsed.Scale)
			if err != nil {
				return err
			}
			return c.printJSON(map[string]any{
				"input":    parsed.Input,
				"output":   parsed.Output,
				"settings": settings,
			})
		},
	}
}
