// Package authz holds the per-request identity snapshot and the capability
// model every handler and repository consults. Roles map to typed
// capabilities once, at the edge; the rest of the code asks for capabilities
// or scopes, never role names.
package authz

import "context"

type Role string

const (
	RoleHR         Role = "HR"
	RoleManager    Role = "Manager"
	RoleSupervisor Role = "Supervisor"
	RoleWorker     Role = "Worker"
)

// Identity is the authenticated actor, loaded once per request by the auth
// middleware and carried in the request context.
type Identity struct {
	UserID       int64
	CompanyID    int64
	Role         Role
	DepartmentID *int64
	IsSuperuser  bool
}

type Capability string

const (
	CapManageUsers       Capability = "manage_users"
	CapManageDepartments Capability = "manage_departments"
	CapManageTasks       Capability = "manage_tasks"
	CapManageEvaluations Capability = "manage_evaluations"
	CapExportReports     Capability = "export_reports"
	CapManageBilling     Capability = "manage_billing"
	CapWorkOnTasks       Capability = "work_on_tasks"
)

type CapabilitySet map[Capability]struct{}

func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

func newCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

var roleCapabilities = map[Role]CapabilitySet{
	RoleHR: newCapabilitySet(
		CapManageUsers,
		CapManageDepartments,
		CapManageBilling,
	),
	RoleManager: newCapabilitySet(
		CapManageTasks,
		CapManageEvaluations,
		CapExportReports,
		CapManageBilling,
	),
	RoleSupervisor: newCapabilitySet(
		CapManageTasks,
		CapManageEvaluations,
		CapExportReports,
		CapWorkOnTasks,
	),
	RoleWorker: newCapabilitySet(
		CapWorkOnTasks,
	),
}

var allCapabilities = newCapabilitySet(
	CapManageUsers,
	CapManageDepartments,
	CapManageTasks,
	CapManageEvaluations,
	CapExportReports,
	CapManageBilling,
	CapWorkOnTasks,
)

// Capabilities resolves the typed capability set for an identity. Superusers
// hold every capability.
func Capabilities(id Identity) CapabilitySet {
	if id.IsSuperuser {
		return allCapabilities
	}
	if set, ok := roleCapabilities[id.Role]; ok {
		return set
	}
	return newCapabilitySet()
}

func (id Identity) Can(c Capability) bool {
	return Capabilities(id).Has(c)
}

func (id Identity) IsHR() bool         { return id.IsSuperuser || id.Role == RoleHR }
func (id Identity) IsManager() bool    { return id.IsSuperuser || id.Role == RoleManager }
func (id Identity) IsSupervisor() bool { return id.IsSuperuser || id.Role == RoleSupervisor }
func (id Identity) IsWorker() bool     { return id.IsSuperuser || id.Role == RoleWorker }

func (id Identity) IsManagerOrSupervisor() bool {
	return id.IsSuperuser || id.Role == RoleManager || id.Role == RoleSupervisor
}

// Scope is the tenant filter repositories apply to every read and write.
type Scope struct {
	CompanyID int64
	Super     bool
}

func (id Identity) Scope() Scope {
	return Scope{CompanyID: id.CompanyID, Super: id.IsSuperuser}
}

// SameTenant reports whether a row's company falls inside the scope.
// Superusers see everything.
func (s Scope) SameTenant(companyID int64) bool {
	return s.Super || s.CompanyID == companyID
}

type identityContextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
