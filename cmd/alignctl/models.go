package main

import (
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model catalog",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog models and the models installed on the local Ollama daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		current.db.ModelConfigs.RefreshOllamaModels(cmd.Context(), current.keys.ResolveCredentials().OllamaBaseURL)
		groups, err := current.db.ModelConfigs.ListModelGroups()
		if err != nil {
			return err
		}
		printMarkdown(cmd.OutOrStdout(), modelTable(groups))
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
}
