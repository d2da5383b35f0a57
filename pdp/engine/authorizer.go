package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	pdp_errors "github.com/dev-mohitbeniwal/consentgate/api/errors"
	pdp_model "github.com/dev-mohitbeniwal/consentgate/api/pdp/model"
	"github.com/dev-mohitbeniwal/consentgate/api/pdp/policy"
)

const (
	ReasonRequesterNotFound  = "requester not found"
	ReasonRequesterInactive  = "requester account is inactive"
	ReasonNoEmergencyAccess  = "emergency override requested without emergency access privilege"
	reasonMissingRoles       = "requester holds none of the required roles"
	reasonMissingPermissions = "requester lacks required permissions"
	reasonFacility           = "requester is not a member of facility"
)

// Authorizer checks a requester against the user directory and the policy
// tables. Policy failures come back as an unauthorized outcome; an error is
// returned only when the directory itself could not answer.
type Authorizer struct {
	directory UserDirectory
	tables    atomic.Pointer[policy.Tables]
}

func NewAuthorizer(directory UserDirectory, tables *policy.Tables) *Authorizer {
	a := &Authorizer{directory: directory}
	a.SetTables(tables)
	return a
}

func (a *Authorizer) SetTables(tables *policy.Tables) {
	if tables == nil {
		tables = policy.DefaultTables()
	}
	a.tables.Store(tables)
}

func (a *Authorizer) Tables() *policy.Tables {
	return a.tables.Load()
}

func (a *Authorizer) Authorize(ctx context.Context, req *pdp_model.AccessRequest) (pdp_model.AuthorizationOutcome, error) {
	user, emergency, err := a.lookup(ctx, req)
	if err != nil {
		if errors.Is(err, pdp_errors.ErrUserNotFound) {
			return deny(ReasonRequesterNotFound), nil
		}
		return pdp_model.AuthorizationOutcome{}, fmt.Errorf("%w: user directory: %w", pdp_errors.ErrCollaboratorUnavailable, err)
	}
	if user == nil {
		return deny(ReasonRequesterNotFound), nil
	}
	if !user.Active {
		return deny(ReasonRequesterInactive), nil
	}

	if req.EmergencyOverride {
		// Emergency access replaces the role and permission checks, never the privilege check.
		if !emergency {
			return deny(ReasonNoEmergencyAccess), nil
		}
	} else {
		categories := req.UniqueCategories()
		tables := a.Tables()

		roles := tables.RequiredRoles(categories, req.AccessType)
		if !holdsAny(user, roles) {
			return deny(fmt.Sprintf("%s: %s", reasonMissingRoles, strings.Join(roles, ", "))), nil
		}

		if missing := missingPermissions(user, tables.RequiredPermissions(categories, req.AccessType)); len(missing) > 0 {
			return deny(fmt.Sprintf("%s: %s", reasonMissingPermissions, strings.Join(missing, ", "))), nil
		}
	}

	if req.FacilityID != "" && !user.InFacility(req.FacilityID) {
		return deny(fmt.Sprintf("%s %s", reasonFacility, req.FacilityID)), nil
	}

	return pdp_model.AuthorizationOutcome{Authorized: true}, nil
}

// lookup resolves the user and, for emergency requests, the emergency
// privilege concurrently.
func (a *Authorizer) lookup(ctx context.Context, req *pdp_model.AccessRequest) (*pdp_model.UserRecord, bool, error) {
	if !req.EmergencyOverride {
		user, err := a.directory.Resolve(ctx, req.RequesterID)
		return user, false, err
	}

	var (
		user      *pdp_model.UserRecord
		emergency bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = a.directory.Resolve(gctx, req.RequesterID)
		return err
	})
	g.Go(func() error {
		var err error
		emergency, err = a.directory.HasEmergencyAccess(gctx, req.RequesterID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	return user, emergency, nil
}

func deny(reason string) pdp_model.AuthorizationOutcome {
	return pdp_model.AuthorizationOutcome{Authorized: false, Reason: reason}
}

func holdsAny(user *pdp_model.UserRecord, roles []string) bool {
	for _, r := range roles {
		if user.HasRole(r) {
			return true
		}
	}
	return false
}

func missingPermissions(user *pdp_model.UserRecord, required []string) []string {
	var missing []string
	for _, p := range required {
		if !user.HasPermission(p) {
			missing = append(missing, p)
		}
	}
	return missing
}
