package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/DeepLink-org/probing/datarecording"
	"github.com/DeepLink-org/probing/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a recorded trace database over the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("sqlite", "",
		"path of the trace database to serve")
	serveCmd.Flags().Int("port", 0,
		"port to listen on, 0 picks a random port")
	serveCmd.Flags().Bool("open", false,
		"open the server address in a browser")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	dbPath, _ := cmd.Flags().GetString("sqlite")
	if dbPath == "" {
		dbPath = conf.GetDefault("sqlite.path", "")
	}

	port, _ := cmd.Flags().GetInt("port")
	if port == 0 {
		if p, err := strconv.Atoi(
			conf.GetDefault("server.port", "0")); err == nil {
			port = p
		}
	}

	srv := server.NewServer().WithPortNumber(port)
	srv.RegisterConfig(conf)

	if dbPath != "" {
		reader, err := datarecording.NewReader(dbPath)
		if err != nil {
			return fmt.Errorf("opening trace database: %w", err)
		}

		srv.RegisterReader(reader)
	}

	addr, err := srv.StartServer()
	if err != nil {
		return err
	}

	if open, _ := cmd.Flags().GetBool("open"); open {
		if err := browser.OpenURL("http://" + addr); err != nil {
			fmt.Fprintf(os.Stderr, "cannot open browser: %v\n", err)
		}
	}

	select {}
}
