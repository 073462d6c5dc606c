package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-engine/internal/core/domain"
)

var spacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "Manage search spaces",
}

var spacesCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new search space",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpacesCreate,
}

var spacesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List search spaces",
	Args:  cobra.NoArgs,
	RunE:  runSpacesList,
}

var spacesDeleteCmd = &cobra.Command{
	Use:   "delete [space-id]",
	Short: "Delete a search space and everything in it",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpacesDelete,
}

func init() {
	spacesCmd.AddCommand(spacesCreateCmd, spacesListCmd, spacesDeleteCmd)
	rootCmd.AddCommand(spacesCmd)
}

func runSpacesCreate(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	space := domain.SearchSpace{
		ID:   uuid.New().String(),
		Name: args[0],
	}
	if err := spaceStore.Save(context.Background(), space); err != nil {
		return fmt.Errorf("creating space: %w", err)
	}

	cmd.Printf("Created space %s (%s).\n", space.Name, space.ID)
	return nil
}

func runSpacesList(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	spaces, err := spaceStore.List(context.Background())
	if err != nil {
		return fmt.Errorf("listing spaces: %w", err)
	}

	if len(spaces) == 0 {
		cmd.Println("No spaces configured.")
		return nil
	}

	for _, space := range spaces {
		cmd.Printf("  %s  %s  (created %s)\n",
			space.ID, space.Name, space.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func runSpacesDelete(cmd *cobra.Command, args []string) error {
	if err := ensureServices(); err != nil {
		return err
	}

	ctx := context.Background()
	id := args[0]

	if _, err := spaceStore.Get(ctx, id); err != nil {
		return fmt.Errorf("looking up space: %w", err)
	}

	// Documents and chunks cascade in SQLite; vectors are dropped
	// collection-wide.
	if err := vectorIndex.DeleteSpace(ctx, id); err != nil {
		return fmt.Errorf("deleting space vectors: %w", err)
	}
	if err := spaceStore.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting space: %w", err)
	}

	cmd.Printf("Deleted space %s.\n", id)
	return nil
}
