// api/audit/verify.go
package audit

import (
	"encoding/json"
	"fmt"
	"os"

	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
)

type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Err converts a failed result into an error wrapping ErrAuditChainBroken.
func (r VerifyResult) Err() error {
	if r.Valid {
		return nil
	}
	if r.ErrorLine > 0 {
		return fmt.Errorf("%w: line %d: %s", pdp_errors.ErrAuditChainBroken, r.ErrorLine, r.Error)
	}
	return fmt.Errorf("%w: %s", pdp_errors.ErrAuditChainBroken, r.Error)
}

// Verify walks a chain file and reports the first broken link, if any.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	scanner := newScanner(f)
	lineNum := 0
	expected := GenesisHash

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()

		var rec AuditRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return VerifyResult{Error: fmt.Sprintf("parse error: %v", err), ErrorLine: lineNum}
		}
		if rec.PrevHash != expected {
			return VerifyResult{
				Error:     fmt.Sprintf("hash mismatch: expected %s, got %s", expected, rec.PrevHash),
				ErrorLine: lineNum,
			}
		}
		expected = HashLine(line)
	}

	if err := scanner.Err(); err != nil {
		return VerifyResult{Error: fmt.Sprintf("scan: %v", err)}
	}
	return VerifyResult{Valid: true, Lines: lineNum}
}
