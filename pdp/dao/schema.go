package dao

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
	pdp_neo4j "github.com/dev-mohitbeniwal/consentgate/api/model/neo4j"
)

type uniqueKey struct {
	label string
	attr  string
}

// Lookups by these keys must hit at most one node; duplicates would make
// role or consent resolution ambiguous.
var uniqueKeys = []uniqueKey{
	{pdp_neo4j.LabelUser, pdp_neo4j.AttrID},
	{pdp_neo4j.LabelPatient, pdp_neo4j.AttrID},
	{pdp_neo4j.LabelFacility, pdp_neo4j.AttrID},
	{pdp_neo4j.LabelRole, pdp_neo4j.AttrName},
	{pdp_neo4j.LabelPermission, pdp_neo4j.AttrName},
	{pdp_neo4j.LabelDataCategory, pdp_neo4j.AttrName},
}

func constraintStatements() []string {
	stmts := make([]string, 0, len(uniqueKeys))
	for _, k := range uniqueKeys {
		name := fmt.Sprintf("unique_%s_%s", strings.ToLower(k.label), k.attr)
		stmts = append(stmts, fmt.Sprintf(
			"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
			name, k.label, k.attr))
	}
	return stmts
}

// EnsureSchema creates the uniqueness constraints the directory and consent
// queries rely on. It is idempotent.
func EnsureSchema(ctx context.Context, driver neo4j.DriverWithContext, database string) error {
	logger.Info("Ensuring identity graph constraints")
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: database})
	defer func() {
		if err := session.Close(ctx); err != nil {
			logger.Error("Failed to close Neo4j session", zap.Error(err))
		}
	}()

	for _, stmt := range constraintStatements() {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, stmt, nil)
			return nil, err
		})
		if err != nil {
			logger.Error("Failed to create constraint", zap.Error(err), zap.String("statement", stmt))
			return fmt.Errorf("failed to create constraint: %w", err)
		}
	}
	return nil
}
