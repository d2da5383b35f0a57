package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
	pdp_neo4j "github.com/dev-mohitbeniwal/consentgate/api/model/neo4j"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
	"github.com/dev-mohitbeniwal/consentgate/api/pdp/policy"
)

// UserDirectoryDAO resolves requesters from the identity graph.
type UserDirectoryDAO struct {
	Driver   neo4j.DriverWithContext
	Database string
}

func NewUserDirectoryDAO(driver neo4j.DriverWithContext, database string) *UserDirectoryDAO {
	return &UserDirectoryDAO{Driver: driver, Database: database}
}

var resolveUserQuery = `
MATCH (u:` + pdp_neo4j.LabelUser + ` {` + pdp_neo4j.AttrID + `: $userID})
OPTIONAL MATCH (u)-[:` + pdp_neo4j.RelHasRole + `]->(r:` + pdp_neo4j.LabelRole + `)
WITH u, collect(DISTINCT r.` + pdp_neo4j.AttrName + `) AS roles
OPTIONAL MATCH (u)-[:` + pdp_neo4j.RelHasRole + `]->(:` + pdp_neo4j.LabelRole + `)-[:` + pdp_neo4j.RelGrants + `]->(rp:` + pdp_neo4j.LabelPermission + `)
WITH u, roles, collect(DISTINCT rp.` + pdp_neo4j.AttrName + `) AS rolePermissions
OPTIONAL MATCH (u)-[:` + pdp_neo4j.RelHasPermission + `]->(dp:` + pdp_neo4j.LabelPermission + `)
WITH u, roles, rolePermissions, collect(DISTINCT dp.` + pdp_neo4j.AttrName + `) AS directPermissions
OPTIONAL MATCH (u)-[:` + pdp_neo4j.RelMemberOf + `]->(f:` + pdp_neo4j.LabelFacility + `)
RETURN u.` + pdp_neo4j.AttrID + ` AS id,
       coalesce(u.` + pdp_neo4j.AttrActive + `, false) AS active,
       roles,
       rolePermissions + directPermissions AS permissions,
       collect(DISTINCT f.` + pdp_neo4j.AttrID + `) AS facilities
`

var emergencyAccessQuery = `
MATCH (u:` + pdp_neo4j.LabelUser + ` {` + pdp_neo4j.AttrID + `: $userID})
OPTIONAL MATCH (u)-[:` + pdp_neo4j.RelHasRole + `]->(:` + pdp_neo4j.LabelRole + `)-[:` + pdp_neo4j.RelGrants + `]->(rp:` + pdp_neo4j.LabelPermission + ` {` + pdp_neo4j.AttrName + `: $permission})
WITH u, count(rp) AS viaRole
OPTIONAL MATCH (u)-[:` + pdp_neo4j.RelHasPermission + `]->(dp:` + pdp_neo4j.LabelPermission + ` {` + pdp_neo4j.AttrName + `: $permission})
WITH u, viaRole, count(dp) AS direct
RETURN coalesce(u.` + pdp_neo4j.AttrEmergencyAccess + `, false) OR viaRole > 0 OR direct > 0 AS granted
`

func (dao *UserDirectoryDAO) Resolve(ctx context.Context, userID string) (*pdp_model.UserRecord, error) {
	start := time.Now()
	session := dao.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: dao.Database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, resolveUserQuery, map[string]any{"userID": userID})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, pdp_errors.ErrUserNotFound
		}
		return mapRecordToUser(res.Record())
	})

	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, pdp_errors.ErrUserNotFound) {
			logger.Debug("User not found in directory", zap.String("userID", userID), zap.Duration("duration", duration))
			return nil, err
		}
		logger.Error("Failed to resolve user", zap.Error(err), zap.String("userID", userID), zap.Duration("duration", duration))
		return nil, fmt.Errorf("resolve user %s: %w", userID, err)
	}

	logger.Debug("Resolved user", zap.String("userID", userID), zap.Duration("duration", duration))
	return result.(*pdp_model.UserRecord), nil
}

func (dao *UserDirectoryDAO) HasEmergencyAccess(ctx context.Context, userID string) (bool, error) {
	session := dao.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: dao.Database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, emergencyAccessQuery, map[string]any{
			"userID":     userID,
			"permission": policy.PermEmergencyAccess,
		})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, pdp_errors.ErrUserNotFound
		}
		granted, _ := res.Record().Get("granted")
		return granted == true, nil
	})
	if err != nil {
		if errors.Is(err, pdp_errors.ErrUserNotFound) {
			return false, err
		}
		logger.Error("Failed to check emergency access", zap.Error(err), zap.String("userID", userID))
		return false, fmt.Errorf("emergency access for %s: %w", userID, err)
	}
	return result.(bool), nil
}

// Helper function to map a directory record to a UserRecord
func mapRecordToUser(record *neo4j.Record) (*pdp_model.UserRecord, error) {
	user := &pdp_model.UserRecord{}

	id, _ := record.Get("id")
	if s, ok := id.(string); ok && s != "" {
		user.ID = s
	} else {
		return nil, fmt.Errorf("failed to assert type for user id: %v", id)
	}

	active, _ := record.Get("active")
	if b, ok := active.(bool); ok {
		user.Active = b
	} else {
		return nil, fmt.Errorf("failed to assert type for user active: %v", active)
	}

	var err error
	if user.Roles, err = stringList(record, "roles"); err != nil {
		return nil, err
	}
	if user.Permissions, err = stringList(record, "permissions"); err != nil {
		return nil, err
	}
	if user.Facilities, err = stringList(record, "facilities"); err != nil {
		return nil, err
	}
	return user, nil
}

// stringList reads a list column, dropping nulls and duplicates.
func stringList(record *neo4j.Record, key string) ([]string, error) {
	raw, ok := record.Get(key)
	if !ok || raw == nil {
		return []string{}, nil
	}
	values, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("failed to assert type for %s: %T", key, raw)
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}
