package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
)

var (
	ingestSpace  string
	ingestSource string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [items.json]",
	Short: "Ingest source items into a space",
	Long: `Ingests a JSON file of source items into a search space.
Unchanged items (same content hash) are skipped. Each item is chunked,
summarised, embedded and persisted independently, so one bad item does
not abort the batch.

The file holds an array of objects:
  [{"stable_id": "...", "document_type": "note", "title": "...",
    "content": "...", "metadata": {...}, "updated_at": "2026-01-02T15:04:05Z"}]`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var removeItemCmd = &cobra.Command{
	Use:   "remove-item [stable-id]",
	Short: "Remove one previously ingested item",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoveItem,
}

var removeSourceCmd = &cobra.Command{
	Use:   "remove-source [source-id]",
	Short: "Remove every document a source produced in a space",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemoveSource,
}

var removeItemType string

func init() {
	ingestCmd.Flags().StringVarP(&ingestSpace, "space", "s", "", "search space ID (required)")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "source (connector) ID")
	_ = ingestCmd.MarkFlagRequired("space")
	rootCmd.AddCommand(ingestCmd)

	removeItemCmd.Flags().StringVarP(&ingestSpace, "space", "s", "", "search space ID (required)")
	removeItemCmd.Flags().StringVarP(&removeItemType, "type", "t", "", "document type of the item (required)")
	_ = removeItemCmd.MarkFlagRequired("space")
	_ = removeItemCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(removeItemCmd)

	removeSourceCmd.Flags().StringVarP(&ingestSpace, "space", "s", "", "search space ID (required)")
	_ = removeSourceCmd.MarkFlagRequired("space")
	rootCmd.AddCommand(removeSourceCmd)
}

// sourceItemJSON is the on-disk shape of one source item.
type sourceItemJSON struct {
	StableID     string         `json:"stable_id"`
	DocumentType string         `json:"document_type"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading items file: %w", err)
	}

	var raw []sourceItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing items file: %w", err)
	}

	items := make([]domain.SourceItem, len(raw))
	for i, r := range raw {
		items[i] = domain.SourceItem{
			StableID:     r.StableID,
			DocumentType: domain.DocumentType(r.DocumentType),
			Title:        r.Title,
			RawContent:   r.Content,
			Metadata:     r.Metadata,
			UpdatedAt:    r.UpdatedAt,
		}
	}

	cmd.Printf("Ingesting %d items into space %s...\n", len(items), ingestSpace)

	report, err := ingestService.IngestBatch(context.Background(), ingestSpace, ingestSource, items)

	// The report is valid even when the batch was interrupted; show what
	// landed before surfacing the error.
	if report != nil {
		cmd.Printf("Done: %d created, %d updated, %d skipped, %d failed.\n",
			report.Created, report.Updated, report.Skipped, report.Failed)
		for _, f := range report.Failures {
			cmd.Printf("  failed %s: %v\n", f.StableID, f.Err)
		}
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	return nil
}

func runRemoveItem(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	docType, err := domain.ParseDocumentType(removeItemType)
	if err != nil {
		return err
	}

	if err := ingestService.RemoveItem(context.Background(), ingestSpace, docType, args[0]); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}

	cmd.Printf("Removed %s from space %s.\n", args[0], ingestSpace)
	return nil
}

func runRemoveSource(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	if err := ingestService.RemoveSource(context.Background(), ingestSpace, args[0]); err != nil {
		return fmt.Errorf("remove failed: %w", err)
	}

	cmd.Printf("Removed all documents of source %s from space %s.\n", args[0], ingestSpace)
	return nil
}
