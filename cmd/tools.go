package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var toolsSchemas bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the available tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if toolsSchemas {
			encoded, err := json.MarshalIndent(a.registry.Schemas(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))
			return nil
		}

		for _, name := range a.registry.Names() {
			tool, _ := a.registry.Get(name)
			fmt.Printf("%-24s %s\n", name, tool.Description())
		}
		return nil
	},
}

func init() {
	toolsCmd.Flags().BoolVar(&toolsSchemas, "schemas", false, "print full JSON schemas")
	rootCmd.AddCommand(toolsCmd)
}
