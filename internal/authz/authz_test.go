package authz_test

import (
	"testing"

	"github.com/trackifyhq/trackify/internal/authz"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAuthz(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Authz Suite")
}

var _ = Describe("Capabilities", func() {
	It("gives HR user and department management but not task management", func() {
		id := authz.Identity{UserID: 1, CompanyID: 1, Role: authz.RoleHR}
		Expect(id.Can(authz.CapManageUsers)).To(BeTrue())
		Expect(id.Can(authz.CapManageDepartments)).To(BeTrue())
		Expect(id.Can(authz.CapManageBilling)).To(BeTrue())
		Expect(id.Can(authz.CapManageTasks)).To(BeFalse())
		Expect(id.Can(authz.CapWorkOnTasks)).To(BeFalse())
	})

	It("gives Manager task, evaluation, report and billing access", func() {
		id := authz.Identity{UserID: 2, CompanyID: 1, Role: authz.RoleManager}
		Expect(id.Can(authz.CapManageTasks)).To(BeTrue())
		Expect(id.Can(authz.CapManageEvaluations)).To(BeTrue())
		Expect(id.Can(authz.CapExportReports)).To(BeTrue())
		Expect(id.Can(authz.CapManageBilling)).To(BeTrue())
		Expect(id.Can(authz.CapManageUsers)).To(BeFalse())
	})

	It("lets Supervisor both manage and work on tasks", func() {
		id := authz.Identity{UserID: 3, CompanyID: 1, Role: authz.RoleSupervisor}
		Expect(id.Can(authz.CapManageTasks)).To(BeTrue())
		Expect(id.Can(authz.CapWorkOnTasks)).To(BeTrue())
		Expect(id.Can(authz.CapManageBilling)).To(BeFalse())
	})

	It("limits Worker to working on tasks", func() {
		id := authz.Identity{UserID: 4, CompanyID: 1, Role: authz.RoleWorker}
		Expect(id.Can(authz.CapWorkOnTasks)).To(BeTrue())
		Expect(id.Can(authz.CapManageTasks)).To(BeFalse())
		Expect(id.Can(authz.CapExportReports)).To(BeFalse())
	})

	It("grants superusers everything regardless of role", func() {
		id := authz.Identity{UserID: 5, IsSuperuser: true}
		Expect(id.Can(authz.CapManageUsers)).To(BeTrue())
		Expect(id.Can(authz.CapManageBilling)).To(BeTrue())
		Expect(id.IsManagerOrSupervisor()).To(BeTrue())
	})

	It("grants nothing to an unknown role", func() {
		id := authz.Identity{UserID: 6, CompanyID: 1, Role: "Intern"}
		Expect(id.Can(authz.CapWorkOnTasks)).To(BeFalse())
	})
})

var _ = Describe("Scope", func() {
	It("intersects rows with the identity's company", func() {
		id := authz.Identity{UserID: 1, CompanyID: 7, Role: authz.RoleManager}
		scope := id.Scope()
		Expect(scope.SameTenant(7)).To(BeTrue())
		Expect(scope.SameTenant(8)).To(BeFalse())
	})

	It("bypasses the tenant filter for superusers", func() {
		id := authz.Identity{UserID: 1, IsSuperuser: true}
		Expect(id.Scope().SameTenant(42)).To(BeTrue())
	})
})

var _ = Describe("Guard pipeline", func() {
	It("hard-denies identities without a tenant", func() {
		id := authz.Identity{UserID: 1, Role: authz.RoleWorker}
		d := authz.Evaluate(id, authz.RequireTenant(), authz.RequireCapability(authz.CapWorkOnTasks))
		Expect(d.Effect).To(Equal(authz.EffectDeny))
		Expect(d.Status).To(Equal(403))
	})

	It("soft-denies a role without the capability", func() {
		id := authz.Identity{UserID: 1, CompanyID: 1, Role: authz.RoleWorker}
		d := authz.Evaluate(id, authz.RequireTenant(), authz.RequireCapability(authz.CapManageUsers))
		Expect(d.Effect).To(Equal(authz.EffectSoftDeny))
		Expect(d.RedirectTo).To(Equal("/"))
		Expect(d.Message).NotTo(BeEmpty())
	})

	It("stops at the first failing guard", func() {
		id := authz.Identity{UserID: 1, Role: authz.RoleHR}
		d := authz.Evaluate(id, authz.RequireTenant(), authz.RequireRole(authz.RoleManager))
		Expect(d.Effect).To(Equal(authz.EffectDeny))
	})

	It("allows when every guard passes", func() {
		id := authz.Identity{UserID: 1, CompanyID: 1, Role: authz.RoleManager}
		d := authz.Evaluate(id, authz.RequireTenant(), authz.RequireRole(authz.RoleManager, authz.RoleSupervisor))
		Expect(d.Allowed()).To(BeTrue())
	})
})
