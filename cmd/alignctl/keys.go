package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage provider API keys",
	Long: `Store provider API keys in the OS keyring.

For ollama the stored value is the daemon URL.`,
}

var keysSetCmd = &cobra.Command{
	Use:   "set <provider> [key]",
	Short: "Store a key; reads it from stdin when omitted",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 2 {
			key = args[1]
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "Enter %s key: ", args[0])
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read key: %w", err)
			}
			key = strings.TrimSpace(line)
		}
		if err := current.keys.StoreApiKey(args[0], []byte(key)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored key for %s\n", args[0])
		return nil
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <provider>",
	Short: "Remove a stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.keys.DeleteApiKey(args[0])
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List providers with a stored key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := current.keys.ListApiKeys()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no keys stored")
			return nil
		}
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", k["provider"], k["label"])
		}
		return nil
	},
}

func init() {
	keysCmd.AddCommand(keysSetCmd, keysDeleteCmd, keysListCmd)
}
