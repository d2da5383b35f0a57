// api/cli/evaluate.go
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
)

var requestFile string

var (
	allowFmt = color.New(color.FgGreen, color.Bold).SprintFunc()
	denyFmt  = color.New(color.FgRed, color.Bold).SprintFunc()
	warnFmt  = color.New(color.FgYellow).SprintFunc()
	dimFmt   = color.New(color.Faint).SprintFunc()
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate access requests against the configured stores",
	Long: `Evaluate reads one access request, or a JSON array of them, and prints
the decisions. Use "-f -" to read from stdin. The decisions are audited
exactly as they would be through the HTTP API.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reqs, err := readRequests(cmd.InOrStdin(), requestFile)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		a, err := buildApp(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer a.shutdown(shutdownTimeout)

		decisions := make([]*pdp_model.AccessDecision, len(reqs))
		if len(reqs) == 1 {
			decisions[0] = a.services.Access.Evaluate(cmd.Context(), reqs[0])
		} else {
			decisions, err = a.services.Access.EvaluateBatch(cmd.Context(), reqs)
			if err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if outputFormat != "text" {
			return writeStructured(out, decisions)
		}
		for i, d := range decisions {
			printDecision(out, reqs[i], d)
		}
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringVarP(&requestFile, "file", "f", "", "JSON file holding the request(s), or - for stdin")
	_ = evaluateCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(evaluateCmd)
}

// readRequests accepts a single request object or an array of them.
func readRequests(stdin io.Reader, path string) ([]pdp_model.AccessRequest, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read requests: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("no access request in %s", path)
	}
	if data[0] == '[' {
		var reqs []pdp_model.AccessRequest
		if err := json.Unmarshal(data, &reqs); err != nil {
			return nil, fmt.Errorf("failed to parse requests: %w", err)
		}
		if len(reqs) == 0 {
			return nil, fmt.Errorf("no access request in %s", path)
		}
		return reqs, nil
	}

	var req pdp_model.AccessRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return []pdp_model.AccessRequest{req}, nil
}

func printDecision(w io.Writer, req pdp_model.AccessRequest, d *pdp_model.AccessDecision) {
	verdict := denyFmt("DENIED")
	if d.Allowed {
		verdict = allowFmt("ALLOWED")
		if len(d.Restricted) > 0 {
			verdict = warnFmt("PARTIAL")
		}
	}
	fmt.Fprintf(w, "%s %s -> %s (%s)\n", verdict, req.RequesterID, req.SubjectID, req.AccessType)
	fmt.Fprintf(w, "  risk:       %s\n", riskFmt(d.RiskLevel))
	fmt.Fprintf(w, "  consent:    %t\n", d.ConsentVerified)
	fmt.Fprintf(w, "  accessible: %s\n", listOrDash(d.Accessible))
	fmt.Fprintf(w, "  restricted: %s\n", listOrDash(d.Restricted))
	if d.AuditRequired {
		fmt.Fprintf(w, "  %s\n", warnFmt("audit required"))
	}
	for _, reason := range d.RestrictionReasons {
		fmt.Fprintf(w, "  %s %s\n", dimFmt("-"), reason)
	}
	if d.Error != "" {
		fmt.Fprintf(w, "  error:      %s\n", denyFmt(d.Error))
	}
}

func riskFmt(r pdp_model.RiskTier) string {
	switch r {
	case pdp_model.RiskLow:
		return allowFmt(string(r))
	case pdp_model.RiskMedium:
		return warnFmt(string(r))
	default:
		return denyFmt(string(r))
	}
}

func listOrDash(items []string) string {
	if len(items) == 0 {
		return dimFmt("-")
	}
	return strings.Join(items, ", ")
}
