package department

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/authz"
	tenantDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/tenant"
)

func TestDepartmentService(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Department Service Suite")
}

type mockRepository struct {
	departments map[int64]*tenantDatamodel.Department
	taskCounts  map[int64]int64
	nextID      int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		departments: make(map[int64]*tenantDatamodel.Department),
		taskCounts:  make(map[int64]int64),
		nextID:      1,
	}
}

func (m *mockRepository) Create(dept *tenantDatamodel.Department) error {
	dept.ID = m.nextID
	m.nextID++
	m.departments[dept.ID] = dept
	return nil
}

func (m *mockRepository) GetByID(id int64) (*tenantDatamodel.Department, error) {
	if dept, ok := m.departments[id]; ok {
		return dept, nil
	}
	return nil, internal.ErrDepartmentNotFound
}

func (m *mockRepository) ListByCompany(companyID int64) ([]*tenantDatamodel.Department, error) {
	var result []*tenantDatamodel.Department
	for _, d := range m.departments {
		if d.CompanyID == companyID {
			result = append(result, d)
		}
	}
	return result, nil
}

func (m *mockRepository) Update(dept *tenantDatamodel.Department) error {
	m.departments[dept.ID] = dept
	return nil
}

func (m *mockRepository) Delete(id int64) error {
	delete(m.departments, id)
	return nil
}

func (m *mockRepository) NameExists(companyID int64, name string, excludeID int64) (bool, error) {
	for _, d := range m.departments {
		if d.CompanyID == companyID && strings.EqualFold(d.Name, name) && d.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) TaskCount(departmentID int64) (int64, error) {
	return m.taskCounts[departmentID], nil
}

var _ = ginkgo.Describe("DepartmentService", func() {
	var (
		service  *Service
		mockRepo *mockRepository
		hr       authz.Identity
		worker   authz.Identity
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockRepository()
		lg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = NewService(mockRepo, lg)
		hr = authz.Identity{UserID: 1, CompanyID: 1, Role: authz.RoleHR}
		worker = authz.Identity{UserID: 2, CompanyID: 1, Role: authz.RoleWorker}
	})

	ginkgo.Describe("Create", func() {
		ginkgo.It("should create a department in the actor's company", func() {
			dept, err := service.Create(hr, CreateDepartmentDTO{Name: "Ops"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(dept.CompanyID).To(gomega.Equal(int64(1)))
			gomega.Expect(dept.Name).To(gomega.Equal("Ops"))
		})

		ginkgo.It("should reject duplicate names case-insensitively", func() {
			_, err := service.Create(hr, CreateDepartmentDTO{Name: "Ops"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.Create(hr, CreateDepartmentDTO{Name: "OPS"})
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("already exists"))
		})

		ginkgo.It("should allow the same name in another company", func() {
			_, err := service.Create(hr, CreateDepartmentDTO{Name: "Ops"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			otherHR := authz.Identity{UserID: 5, CompanyID: 2, Role: authz.RoleHR}
			_, err = service.Create(otherHR, CreateDepartmentDTO{Name: "Ops"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})

		ginkgo.It("should soft-deny non-HR actors", func() {
			_, err := service.Create(worker, CreateDepartmentDTO{Name: "Ops"})

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.RedirectTo).To(gomega.Equal("/"))
		})
	})

	ginkgo.Describe("Delete", func() {
		ginkgo.It("should block deletion while tasks reference the department", func() {
			dept, err := service.Create(hr, CreateDepartmentDTO{Name: "Ops"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			mockRepo.taskCounts[dept.ID] = 3

			err = service.Delete(hr, dept.ID)
			gomega.Expect(err).To(gomega.Equal(internal.ErrDepartmentInUse))
		})

		ginkgo.It("should delete an empty department", func() {
			dept, err := service.Create(hr, CreateDepartmentDTO{Name: "Ops"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(service.Delete(hr, dept.ID)).To(gomega.Succeed())
			_, err = service.Get(hr, dept.ID)
			gomega.Expect(err).To(gomega.Equal(internal.ErrDepartmentNotFound))
		})

		ginkgo.It("should hide other companies' departments", func() {
			dept, err := service.Create(hr, CreateDepartmentDTO{Name: "Ops"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			otherHR := authz.Identity{UserID: 5, CompanyID: 2, Role: authz.RoleHR}
			err = service.Delete(otherHR, dept.ID)
			gomega.Expect(err).To(gomega.Equal(internal.ErrDepartmentNotFound))
		})
	})
})
