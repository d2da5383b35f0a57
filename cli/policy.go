// api/cli/policy.go
package cli

import (
	"github.com/spf13/cobra"

	"github.com/dev-mohitbeniwal/consentgate/api/pdp/policy"
)

var policyFile string

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Work with role and permission tables",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective policy tables as YAML",
	Long: `Show prints the built-in tables, or the tables in --file after validating
them. The output is itself a valid tables file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tables := policy.DefaultTables()
		if policyFile != "" {
			loaded, err := policy.LoadTables(policyFile)
			if err != nil {
				return err
			}
			tables = loaded
		}

		out, err := policy.MarshalTables(tables)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	policyShowCmd.Flags().StringVarP(&policyFile, "file", "f", "", "Tables file to validate and print")
	policyCmd.AddCommand(policyShowCmd)
	rootCmd.AddCommand(policyCmd)
}
