package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sguter90/sparrowmaestro/pkg/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest one routed event",
	Long: `Parse one routed Notehub event from a file, or from stdin when no file is given,
and store its readings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func readIngestInput(args []string, stdin *os.File) ([]byte, string, error) {
	if len(args) == 1 {
		payload, err := os.ReadFile(args[0])
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		return payload, args[0], nil
	}

	if term.IsTerminal(int(stdin.Fd())) {
		return nil, "", errors.New("no input: pass a file or pipe a routed event into stdin")
	}

	payload, err := io.ReadAll(stdin)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return payload, "stdin", nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	payload, source, err := readIngestInput(args, os.Stdin)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := buildApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	n, err := app.Ingestor.Ingest(cmd.Context(), ingest.TransportStdin, payload)
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", source, err)
	}

	fmt.Printf("Stored %d readings from %s\n", n, source)
	return nil
}
