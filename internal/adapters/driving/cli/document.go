package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage ingested documents",
}

var documentStatusCmd = &cobra.Command{
	Use:   "status [id]",
	Short: "Show a document's pipeline state",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentStatus,
}

var documentReingestCmd = &cobra.Command{
	Use:   "reingest [id]",
	Short: "Re-run the processing pipeline for a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentReingest,
}

var documentCancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel an in-flight ingestion",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentCancel,
}

func init() {
	documentCmd.AddCommand(documentStatusCmd)
	documentCmd.AddCommand(documentReingestCmd)
	documentCmd.AddCommand(documentCancelCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentStatus(cmd *cobra.Command, args []string) error {
	if services == nil || services.Ingest == nil {
		return errors.New("ingest orchestrator not configured")
	}

	status, err := services.Ingest.Status(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	cmd.Printf("State:  %s\n", status.State)
	cmd.Printf("Chunks: %d\n", status.ChunkCount)
	if status.Error != "" {
		cmd.Printf("Error:  %s\n", status.Error)
	}
	return nil
}

func runDocumentReingest(cmd *cobra.Command, args []string) error {
	if services == nil || services.Ingest == nil {
		return errors.New("ingest orchestrator not configured")
	}

	if err := services.Ingest.Reingest(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("reingest: %w", err)
	}
	cmd.Println("Queued for re-ingestion.")
	return nil
}

func runDocumentCancel(cmd *cobra.Command, args []string) error {
	if services == nil || services.Ingest == nil {
		return errors.New("ingest orchestrator not configured")
	}

	if err := services.Ingest.Cancel(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("cancel: %w", err)
	}
	cmd.Println("Cancellation requested.")
	return nil
}
