// api/cli/audit.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dev-mohitbeniwal/consentgate/api/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the access audit trail",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <chain-file>",
	Short: "Verify the hash chain of an audit file",
	Long: `Verify walks a hash-chained audit file and reports the first record whose
link to its predecessor does not match. It needs no running services.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result := audit.Verify(args[0])
		out := cmd.OutOrStdout()

		if outputFormat != "text" {
			if err := writeStructured(out, result); err != nil {
				return err
			}
			return result.Err()
		}

		if result.Valid {
			fmt.Fprintf(out, "%s %d records, chain intact\n", allowFmt("OK"), result.Lines)
			return nil
		}
		fmt.Fprintf(out, "%s %s\n", denyFmt("BROKEN"), result.Error)
		return result.Err()
	},
}

func init() {
	auditCmd.AddCommand(auditVerifyCmd)
	rootCmd.AddCommand(auditCmd)
}
