package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/dunamismax/vectorstudio/internal/analysis"
	"github.com/dunamismax/vectorstudio/internal/command"
	"github.com/dunamismax/vectorstudio/internal/domain"
)

type analyzeOutput struct {
	Name             string                `json:"name"`
	ContentType      string                `json:"content_type"`
	SizeKB           int                   `json:"size_kb"`
	Width            int                   `json:"width"`
	Height           int                   `json:"height"`
	Palette          domain.ColorPalette   `json:"palette"`
	Structure        domain.StructureClass `json:"structure"`
	EstimatedSeconds int                   `json:"estimated_seconds"`
	Command          string                `json:"command"`
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>",
		Short: "Validate an image and print its palette and structure class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			contentType := mimetype.Detect(data).String()
			if err := domain.ValidateUpload(contentType, int64(len(data))); err != nil {
				return errors.New(domain.UserMessage(err))
			}

			if err := analysis.Startup(); err != nil {
				return fmt.Errorf("start image runtime: %w", err)
			}
			defer analysis.Shutdown()
			analyzer, err := analysis.NewAnalyzer()
			if err != nil {
				return err
			}
			report, err := analyzer.Analyze(cmd.Context(), data)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", args[0], err)
			}

			catalog, err := c.catalog()
			if err != nil {
				return err
			}
			settings, err := catalog.Resolve("", 0, 0)
			if err != nil {
				return err
			}

			name := filepath.Base(args[0])
			size := int64(len(data))
			c.logger.Debug().
				Str("file", name).
				Int("sample_width", report.SampleWidth).
				Int("sample_height", report.SampleHeight).
				Msg("analysis complete")

			return c.printJSON(analyzeOutput{
				Name:             name,
				ContentType:      domain.NormalizeContentType(contentType),
				SizeKB:           domain.Upload{Size: size}.SizeKB(),
				Width:            report.Width,
				Height:           report.Height,
				Palette:          domain.NewPalette(report.Colors),
				Structure:        report.Structure,
				EstimatedSeconds: domain.SettingsEstimateSeconds(size, settings.Colors),
				Command: command.Build(command.Settings{
					Input:  name,
					Preset: settings.PresetID,
					Colors: settings.Colors,
					Scale:  settings.Scale,
				}),
			})
		},
	}
}
