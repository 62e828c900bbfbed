package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

var docsJSON bool

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List the documents in the stage",
	Args:  cobra.NoArgs,
	RunE:  runDocs,
}

func init() {
	docsCmd.Flags().BoolVar(&docsJSON, "json", false, "output the listing as JSON")
	rootCmd.AddCommand(docsCmd)
}

func runDocs(cmd *cobra.Command, _ []string) error {
	if err := initEngine(); err != nil {
		return err
	}
	defer closeEngine()

	objects, err := catalogService.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if docsJSON {
		return outputDocsJSON(cmd, objects)
	}

	if len(objects) == 0 {
		cmd.Println("The stage is empty.")
		return nil
	}

	for _, obj := range objects {
		cmd.Printf("%s  %s\n", obj.LastModified.Format("2006-01-02 15:04"), obj.ID)
	}
	cmd.Printf("\n%d documents.\n", len(objects))
	return nil
}

func outputDocsJSON(cmd *cobra.Command, objects []domain.StageObject) error {
	type doc struct {
		ID           string `json:"id"`
		Hash         string `json:"hash,omitempty"`
		LastModified string `json:"last_modified"`
	}
	docs := make([]doc, len(objects))
	for i, obj := range objects {
		docs[i] = doc{
			ID:           obj.ID,
			Hash:         obj.Hash,
			LastModified: obj.LastModified.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal documents: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
