package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driving"
)

var (
	ingestCollection string
	ingestKind       string
	ingestTitle      string
	ingestLatex      bool
	ingestWait       bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [source]",
	Short: "Ingest a document into a collection",
	Long: `Ingest a document into a collection.

The source is a file path for pdf, vtt and notes kinds, an arXiv id or
URL for the arxiv kind, and a URL for the webpage kind. The document is
processed asynchronously; use --wait to block until it finishes, or
"aquillm status" to watch progress.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "", "target collection id (required)")
	ingestCmd.Flags().StringVarP(&ingestKind, "kind", "k", "", "source kind: pdf, arxiv, vtt, webpage, notes (required)")
	ingestCmd.Flags().StringVarP(&ingestTitle, "title", "t", "", "document title (derived from content when omitted)")
	ingestCmd.Flags().BoolVar(&ingestLatex, "latex", false, "transcribe mathematics in notes as LaTeX")
	ingestCmd.Flags().BoolVarP(&ingestWait, "wait", "w", false, "block until processing finishes")
	_ = ingestCmd.MarkFlagRequired("collection")
	_ = ingestCmd.MarkFlagRequired("kind")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if services == nil || services.Ingest == nil {
		return errors.New("ingest orchestrator not configured")
	}

	ctx := cmd.Context()
	kind := domain.SourceKind(ingestKind)
	sourceRef := args[0]

	// File-backed kinds are staged into the blob store; the pipeline
	// only ever sees references.
	switch kind {
	case domain.KindPDF, domain.KindVTT, domain.KindNotes:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read source file: %w", err)
		}
		ref, err := services.Blobs.Put(ctx, data)
		if err != nil {
			return fmt.Errorf("stage source: %w", err)
		}
		sourceRef = ref
	}

	doc, err := services.Ingest.Ingest(ctx, driving.IngestRequest{
		CollectionID: ingestCollection,
		Kind:         kind,
		Title:        ingestTitle,
		SourceRef:    sourceRef,
		ConvertLaTeX: ingestLatex,
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Printf("Queued document %s\n", doc.ID)

	if !ingestWait {
		return nil
	}

	status, err := services.Ingest.Wait(ctx, doc.ID)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("wait failed: %w", err)
	}

	switch status.State {
	case domain.StateReady:
		cmd.Printf("Ready: %d chunks indexed\n", status.ChunkCount)
	case domain.StateEmpty:
		cmd.Println("Finished: no extractable text")
	case domain.StateFailed:
		return fmt.Errorf("ingestion failed: %s", status.Error)
	default:
		cmd.Printf("State: %s\n", status.State)
	}
	return nil
}
