package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
)

var (
	searchSpace       string
	searchLimit       int
	searchGranularity string
	searchTypes       []string
	searchAfter       string
	searchBefore      string
	searchTextOnly    bool
	searchJSON        bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search a space with hybrid ranking",
	Long: `Performs hybrid search within one search space.
Combines keyword (BM25) and semantic (vector) rankings with
reciprocal rank fusion. Results are distinct documents, best first.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchSpace, "space", "s", "", "search space ID (required)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVarP(&searchGranularity, "granularity", "g", "chunks", "ranking granularity: chunks or documents")
	searchCmd.Flags().StringSliceVarP(&searchTypes, "types", "t", nil, "restrict to document types (file, web_page, note, issue, message, email, event)")
	searchCmd.Flags().StringVar(&searchAfter, "updated-after", "", "only documents updated after this RFC3339 time")
	searchCmd.Flags().StringVar(&searchBefore, "updated-before", "", "only documents updated before this RFC3339 time")
	searchCmd.Flags().BoolVar(&searchTextOnly, "text-only", false, "skip vector ranking, lexical search only")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	_ = searchCmd.MarkFlagRequired("space")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	opts, err := buildSearchOptions()
	if err != nil {
		return err
	}

	results, err := searchService.Search(context.Background(), searchSpace, args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

// buildSearchOptions translates flags into domain options.
func buildSearchOptions() (domain.SearchOptions, error) {
	opts := domain.SearchOptions{
		TopK:     searchLimit,
		TextOnly: searchTextOnly,
	}

	switch strings.ToLower(searchGranularity) {
	case "chunks", "chunk":
		opts.Granularity = domain.GranularityChunks
	case "documents", "document", "docs":
		opts.Granularity = domain.GranularityDocuments
	default:
		return opts, fmt.Errorf("unknown granularity %q", searchGranularity)
	}

	for _, t := range searchTypes {
		dt, err := domain.ParseDocumentType(t)
		if err != nil {
			return opts, err
		}
		opts.DocumentTypes = append(opts.DocumentTypes, dt)
	}

	if searchAfter != "" {
		ts, err := time.Parse(time.RFC3339, searchAfter)
		if err != nil {
			return opts, fmt.Errorf("invalid --updated-after: %w", err)
		}
		opts.UpdatedAfter = ts
	}
	if searchBefore != "" {
		ts, err := time.Parse(time.RFC3339, searchBefore)
		if err != nil {
			return opts, fmt.Errorf("invalid --updated-before: %w", err)
		}
		opts.UpdatedBefore = ts
	}

	return opts, nil
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		title := results[i].Title
		if title == "" {
			title = results[i].DocumentID
		}

		cmd.Printf("  [%d] %s (%.4f)\n", i+1, title, results[i].Score)
		cmd.Printf("      Type: %s\n", results[i].DocumentType)
		if len(results[i].Chunks) > 0 {
			cmd.Printf("      %s\n", snippetOf(results[i].Chunks[0].Content, 120))
		}
		cmd.Println()
	}

	return nil
}

// snippetOf truncates text to at most max runes for table display.
// Counting runes keeps multi-byte characters intact.
func snippetOf(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
