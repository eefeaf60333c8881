package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPresetsCmd(c *cli) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the preset catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := c.catalog()
			if err != nil {
				return err
			}
			list := catalog.List()
			if asJSON {
				return c.printJSON(list)
			}
			for _, p := range list {
				mark := " "
				if p.Recommended {
					mark = "*"
				}
				fmt.Fprintf(c.out, "%s %-14s %2d colors  %.1fx  %s\n", mark, p.ID, p.Colors, p.Scale, p.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
