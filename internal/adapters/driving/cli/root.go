// Package cli implements the command-line interface. Commands are
// wired to core services through driving ports at startup.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/aquillm/aquillm/internal/core/ports/driven"
	"github.com/aquillm/aquillm/internal/core/ports/driving"
	"github.com/aquillm/aquillm/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services holds the driving ports the commands depend on.
type Services struct {
	Ingest      driving.IngestOrchestrator
	Chat        driving.ChatService
	Collections driving.CollectionService
	Events      driving.EventBus

	// Blobs stages local file bytes before ingestion.
	Blobs driven.BlobStore
}

var (
	services *Services
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "aquillm",
	Short: "Research document Q&A from the terminal",
	Long: `Aquillm ingests research material (PDFs, arXiv papers, lecture
transcripts, webpages, handwritten notes) into collections and answers
questions about it with source citations.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// SetServices injects the core services into the command tree.
func SetServices(s *Services) {
	services = s
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
