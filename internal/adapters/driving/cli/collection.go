package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aquillm/aquillm/internal/core/ports/driving"
)

var (
	collectionParent   string
	collectionReparent bool
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage document collections",
}

var collectionAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionAdd,
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all collections",
	Args:  cobra.NoArgs,
	RunE:  runCollectionList,
}

var collectionMoveCmd = &cobra.Command{
	Use:   "move [id]",
	Short: "Move a collection under a new parent",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionMove,
}

var collectionRenameCmd = &cobra.Command{
	Use:   "rename [id] [name]",
	Short: "Rename a collection",
	Args:  cobra.ExactArgs(2),
	RunE:  runCollectionRename,
}

var collectionDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a collection and its documents",
	Long: `Delete a collection. By default the collection, its sub-collections
and all their documents are removed. With --reparent, children and
documents move to the deleted collection's parent instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runCollectionDelete,
}

func init() {
	collectionAddCmd.Flags().StringVarP(&collectionParent, "parent", "p", "", "parent collection id")
	collectionMoveCmd.Flags().StringVarP(&collectionParent, "parent", "p", "", "new parent collection id (omit for root)")
	collectionDeleteCmd.Flags().BoolVar(&collectionReparent, "reparent", false, "move contents to the parent instead of deleting them")

	collectionCmd.AddCommand(collectionAddCmd)
	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionMoveCmd)
	collectionCmd.AddCommand(collectionRenameCmd)
	collectionCmd.AddCommand(collectionDeleteCmd)
	rootCmd.AddCommand(collectionCmd)
}

func runCollectionAdd(cmd *cobra.Command, args []string) error {
	if services == nil || services.Collections == nil {
		return errors.New("collection service not configured")
	}

	var parentID *string
	if collectionParent != "" {
		parentID = &collectionParent
	}

	col, err := services.Collections.Create(cmd.Context(), args[0], parentID)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	cmd.Printf("Created %s (%s)\n", col.Path, col.ID)
	return nil
}

func runCollectionList(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Collections == nil {
		return errors.New("collection service not configured")
	}

	cols, err := services.Collections.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	if len(cols) == 0 {
		cmd.Println("No collections. Create one with: aquillm collection add <name>")
		return nil
	}

	for _, col := range cols {
		cmd.Printf("%s  %s  (%d documents, %d children)\n", col.ID, col.Path, col.DocumentCount, col.ChildCount)
	}
	return nil
}

func runCollectionMove(cmd *cobra.Command, args []string) error {
	if services == nil || services.Collections == nil {
		return errors.New("collection service not configured")
	}

	var parentID *string
	if collectionParent != "" {
		parentID = &collectionParent
	}

	if err := services.Collections.Move(cmd.Context(), args[0], parentID); err != nil {
		return fmt.Errorf("move collection: %w", err)
	}
	cmd.Println("Moved.")
	return nil
}

func runCollectionRename(cmd *cobra.Command, args []string) error {
	if services == nil || services.Collections == nil {
		return errors.New("collection service not configured")
	}

	if err := services.Collections.Rename(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("rename collection: %w", err)
	}
	cmd.Println("Renamed.")
	return nil
}

func runCollectionDelete(cmd *cobra.Command, args []string) error {
	if services == nil || services.Collections == nil {
		return errors.New("collection service not configured")
	}

	mode := driving.DeleteCascade
	if collectionReparent {
		mode = driving.DeleteReparent
	}

	if err := services.Collections.Delete(cmd.Context(), args[0], mode); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	cmd.Println("Deleted.")
	return nil
}
