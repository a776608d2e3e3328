package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DeepLink-org/probing/chrometrace"
	"github.com/DeepLink-org/probing/datarecording"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a recorded trace database as Chrome tracing JSON",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().String("sqlite", "",
		"path of the trace database to export")
	exportCmd.Flags().String("out", "",
		"output file, defaults to stdout")
	exportCmd.Flags().Int("limit", 0,
		"maximum number of records to export, 0 for all")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	dbPath, _ := cmd.Flags().GetString("sqlite")
	if dbPath == "" {
		dbPath = conf.GetDefault("sqlite.path", "")
	}
	if dbPath == "" {
		return errors.New("no trace database given, use --sqlite")
	}

	reader, err := datarecording.NewReader(dbPath)
	if err != nil {
		return fmt.Errorf("opening trace database: %w", err)
	}
	defer reader.Close()

	limit, _ := cmd.Flags().GetInt("limit")

	trace, err := chrometrace.FromReader(cmd.Context(), reader, limit)
	if err != nil {
		return err
	}

	out := os.Stdout
	if outPath, _ := cmd.Flags().GetString("out"); outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()

		out = f
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")

	return encoder.Encode(trace)
}
