package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"estimatetracker/estimate"
	"estimatetracker/services"
)

// newTemplatesCmd writes one fresh workbook per estimate type to a
// directory, without touching the database.
func newTemplatesCmd(cfg *config) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Write blank estimate workbooks for every estimate type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			builder, err := cfg.builder()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			for _, t := range estimate.Types {
				data, err := services.EncodeWorkbook(builder.Build(t))
				if err != nil {
					return fmt.Errorf("%s template: %w", t, err)
				}
				path := filepath.Join(dir, t.FileName("шаблон"))
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", t.Label(), path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")
	return cmd
}
