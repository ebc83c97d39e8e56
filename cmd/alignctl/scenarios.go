package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List, show and import scenarios",
}

var scenariosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scenarios, err := current.db.Scenarios.List(cmd.Context())
		if err != nil {
			return err
		}
		printMarkdown(cmd.OutOrStdout(), scenarioTable(scenarios))
		return nil
	},
}

var scenariosShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a scenario's prompts and information blocks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := current.db.Scenarios.FindByName(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("%w: %s", err, args[0])
		}
		printMarkdown(cmd.OutOrStdout(), scenarioMarkdown(sc))
		return nil
	},
}

var scenariosImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import scenarios from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		imported, err := current.db.Scenarios.ImportYAML(cmd.Context(), data)
		if err != nil {
			return err
		}
		for _, sc := range imported {
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d blocks)\n", sc.Name, len(sc.InformationItems))
		}
		return nil
	},
}

func init() {
	scenariosCmd.AddCommand(scenariosListCmd, scenariosShowCmd, scenariosImportCmd)
}
