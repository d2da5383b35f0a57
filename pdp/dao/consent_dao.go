package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
	pdp_neo4j "github.com/dev-mohitbeniwal/consentgate/api/model/neo4j"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
)

const noActiveConsent = "no active consent covers the requested categories"

// ConsentDAO answers consent queries from the patient consent graph.
type ConsentDAO struct {
	Driver   neo4j.DriverWithContext
	Database string
	now      func() time.Time
}

func NewConsentDAO(driver neo4j.DriverWithContext, database string) *ConsentDAO {
	return &ConsentDAO{Driver: driver, Database: database, now: time.Now}
}

// One row per requested category. A consent counts only while active,
// unexpired, and scoped to the request's purpose and requester (empty
// purpose or grantee lists mean unrestricted). expiresAt may be stored as a
// datetime or an ISO-8601 string; both are compared as datetimes.
var consentQuery = `
UNWIND $categories AS category
OPTIONAL MATCH (dc:` + pdp_neo4j.LabelDataCategory + ` {` + pdp_neo4j.AttrName + `: category})
OPTIONAL MATCH (:` + pdp_neo4j.LabelPatient + ` {` + pdp_neo4j.AttrID + `: $subjectID})-[c:` + pdp_neo4j.RelConsents + `]->(dc)
WHERE c.` + pdp_neo4j.ConsentStatus + ` = '` + pdp_neo4j.ConsentStatusActive + `'
  AND (c.` + pdp_neo4j.ConsentExpiresAt + ` IS NULL OR datetime(toString(c.` + pdp_neo4j.ConsentExpiresAt + `)) > $now)
  AND (c.` + pdp_neo4j.ConsentPurposes + ` IS NULL OR size(c.` + pdp_neo4j.ConsentPurposes + `) = 0 OR $purpose IN c.` + pdp_neo4j.ConsentPurposes + `)
  AND (c.` + pdp_neo4j.ConsentGrantees + ` IS NULL OR size(c.` + pdp_neo4j.ConsentGrantees + `) = 0
       OR $requesterID IN c.` + pdp_neo4j.ConsentGrantees + ` OR $requesterRole IN c.` + pdp_neo4j.ConsentGrantees + `)
WITH category, dc, collect(c) AS consents
RETURN category,
       dc IS NOT NULL AS known,
       coalesce(dc.` + pdp_neo4j.AttrSensitivity + `, 'normal') AS sensitivity,
       size(consents) > 0 AS consented,
       any(x IN consents WHERE coalesce(x.` + pdp_neo4j.ConsentExplicit + `, false)) AS explicit
`

// consentRow is one category's consent state as read from the graph.
type consentRow struct {
	Category    string
	Known       bool
	Sensitivity pdp_model.Sensitivity
	Consented   bool
	Explicit    bool
}

func (dao *ConsentDAO) Verify(ctx context.Context, q pdp_model.ConsentQuery) (*pdp_model.ConsentOutcome, error) {
	start := time.Now()
	session := dao.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: dao.Database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, consentQuery, consentParams(q, dao.now()))
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		rows := make([]consentRow, 0, len(records))
		for _, record := range records {
			row, err := mapRecordToConsentRow(record)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		return rows, nil
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to verify consent",
			zap.Error(err),
			zap.String("subjectID", q.SubjectID),
			zap.Duration("duration", duration))
		return nil, fmt.Errorf("verify consent for subject %s: %w", q.SubjectID, err)
	}

	outcome := buildConsentOutcome(result.([]consentRow), q.EmergencyOverride)
	logger.Debug("Consent verified",
		zap.String("subjectID", q.SubjectID),
		zap.Bool("valid", outcome.Valid),
		zap.Duration("duration", duration))
	return outcome, nil
}

// consentParams binds now as a time.Time, which the driver sends as a
// datetime rather than a string.
func consentParams(q pdp_model.ConsentQuery, now time.Time) map[string]any {
	return map[string]any{
		"categories":    q.Categories,
		"subjectID":     q.SubjectID,
		"purpose":       q.Purpose,
		"requesterID":   q.RequesterID,
		"requesterRole": q.RequesterRole,
		"now":           now.UTC(),
	}
}

// buildConsentOutcome folds per-category rows into an outcome. Under an
// emergency override every category known to the graph counts as consented
// for this verification only, and the outcome always requires audit. Any
// requested elevated or critical category requires audit, consented or not.
func buildConsentOutcome(rows []consentRow, emergency bool) *pdp_model.ConsentOutcome {
	outcome := &pdp_model.ConsentOutcome{
		Categories:    make([]pdp_model.CategoryConsent, 0, len(rows)),
		RiskLevel:     pdp_model.RiskLow,
		AuditRequired: emergency,
	}

	anyConsented := false
	for _, row := range rows {
		consented := row.Consented || (emergency && row.Known)
		outcome.Categories = append(outcome.Categories, pdp_model.CategoryConsent{
			Category:                row.Category,
			Consented:               consented,
			Sensitivity:             row.Sensitivity,
			RequiresExplicitConsent: row.Explicit,
		})
		if row.Sensitivity != pdp_model.SensitivityNormal {
			outcome.AuditRequired = true
		}
		if !consented {
			continue
		}
		anyConsented = true
		switch row.Sensitivity {
		case pdp_model.SensitivityCritical:
			outcome.RiskLevel = outcome.RiskLevel.Max(pdp_model.RiskHigh)
		case pdp_model.SensitivityElevated:
			outcome.RiskLevel = outcome.RiskLevel.Max(pdp_model.RiskMedium)
		}
		if row.Explicit {
			outcome.AuditRequired = true
		}
	}

	outcome.Valid = anyConsented
	if !anyConsented {
		outcome.Justification = noActiveConsent
	}
	return outcome
}

// Helper function to map a consent record to a consentRow
func mapRecordToConsentRow(record *neo4j.Record) (consentRow, error) {
	var row consentRow

	category, _ := record.Get("category")
	if s, ok := category.(string); ok {
		row.Category = s
	} else {
		return row, fmt.Errorf("failed to assert type for consent category: %v", category)
	}

	known, _ := record.Get("known")
	row.Known, _ = known.(bool)

	sensitivity, _ := record.Get("sensitivity")
	s, _ := sensitivity.(string)
	row.Sensitivity = pdp_model.Sensitivity(s)
	if !row.Sensitivity.Valid() {
		return row, fmt.Errorf("invalid sensitivity %q for category %s", s, row.Category)
	}

	consented, _ := record.Get("consented")
	row.Consented, _ = consented.(bool)

	explicit, _ := record.Get("explicit")
	row.Explicit, _ = explicit.(bool)

	return row, nil
}
