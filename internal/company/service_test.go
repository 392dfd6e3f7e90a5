package company

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/auth"
	billingDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/billing"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	tenantDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/tenant"
)

func TestCompanyService(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Company Service Suite")
}

type mockRepository struct {
	companies     map[int64]*tenantDatamodel.Company
	subscriptions map[int64]*billingDatamodel.Subscription
	usernames     map[string]bool
	nextID        int64
	shouldFail    bool
	failError     error

	lastRegistered *RegisteredTenant
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		companies:     make(map[int64]*tenantDatamodel.Company),
		subscriptions: make(map[int64]*billingDatamodel.Subscription),
		usernames:     make(map[string]bool),
		nextID:        1,
	}
}

func (m *mockRepository) RegisterTenant(companyName string, hrUser *identityDatamodel.User, defaults SubscriptionDefaults) (*RegisteredTenant, error) {
	if m.shouldFail {
		return nil, m.failError
	}

	comp := tenantDatamodel.Company{ID: m.nextID, Name: companyName}
	m.nextID++
	m.companies[comp.ID] = &comp

	roles := make([]tenantDatamodel.Role, 0, 4)
	for i, name := range []string{"HR", "Manager", "Supervisor", "Worker"} {
		roles = append(roles, tenantDatamodel.Role{ID: int64(i + 1), CompanyID: comp.ID, Name: name})
	}

	sub := billingDatamodel.Subscription{
		ID:            comp.ID,
		CompanyID:     comp.ID,
		Plan:          defaults.Plan,
		Currency:      defaults.Currency,
		MonthlyAmount: defaults.MonthlyAmount,
		AnnualAmount:  defaults.AnnualAmount,
		Status:        "Inactive",
	}
	m.subscriptions[comp.ID] = &sub

	hrUser.ID = m.nextID
	m.nextID++
	hrUser.CompanyID = comp.ID
	m.usernames[hrUser.Username] = true

	registered := &RegisteredTenant{
		Company:      comp,
		Roles:        roles,
		Subscription: sub,
		HRUser:       *hrUser,
	}
	m.lastRegistered = registered
	return registered, nil
}

func (m *mockRepository) GetByID(id int64) (*tenantDatamodel.Company, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	if comp, ok := m.companies[id]; ok {
		return comp, nil
	}
	return nil, internal.ErrCompanyNotFound
}

func (m *mockRepository) EnsureSubscription(companyID int64, defaults SubscriptionDefaults) (*billingDatamodel.Subscription, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	if sub, ok := m.subscriptions[companyID]; ok {
		return sub, nil
	}
	sub := &billingDatamodel.Subscription{
		CompanyID: companyID,
		Plan:      defaults.Plan,
		Currency:  defaults.Currency,
		Status:    "Inactive",
	}
	m.subscriptions[companyID] = sub
	return sub, nil
}

func (m *mockRepository) UsernameExists(username string) (bool, error) {
	if m.shouldFail {
		return false, m.failError
	}
	return m.usernames[username], nil
}

var _ = ginkgo.Describe("CompanyService", func() {
	var (
		service  *Service
		mockRepo *mockRepository
	)

	defaults := SubscriptionDefaults{
		Plan:          "basic",
		Currency:      "CLP",
		MonthlyAmount: 29990,
		AnnualAmount:  299900,
	}

	validDTO := func() RegisterCompanyDTO {
		return RegisterCompanyDTO{
			CompanyName: "Acme",
			FirstName:   "María",
			LastName:    "Ríos",
			RUT:         "12.345.678-5",
			Phone:       "+56912345678",
			Email:       "maria.rios@trackify.com",
			Username:    "mrios",
			Password:    "supersecret1",
		}
	}

	ginkgo.BeforeEach(func() {
		mockRepo = newMockRepository()
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = NewService(mockRepo, defaults, logger)
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("should create company, four roles, inactive subscription and HR user", func() {
			registered, err := service.Register(validDTO())

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(registered.Company.Name).To(gomega.Equal("Acme"))
			gomega.Expect(registered.Roles).To(gomega.HaveLen(4))
			gomega.Expect(registered.Subscription.Status).To(gomega.Equal("Inactive"))
			gomega.Expect(registered.HRUser.Username).To(gomega.Equal("mrios"))
		})

		ginkgo.It("should store the RUT cleaned and the phone normalized", func() {
			registered, err := service.Register(validDTO())

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(registered.HRUser.RUT).To(gomega.Equal("123456785"))
			gomega.Expect(registered.HRUser.Phone).To(gomega.Equal("+56912345678"))
		})

		ginkgo.It("should hash the password rather than store it", func() {
			registered, err := service.Register(validDTO())

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(registered.HRUser.PasswordHash).ToNot(gomega.Equal("supersecret1"))
			gomega.Expect(auth.VerifyPassword(registered.HRUser.PasswordHash, "supersecret1")).To(gomega.Succeed())
		})

		ginkgo.It("should reject an invalid RUT checksum", func() {
			dto := validDTO()
			dto.RUT = "12.345.678-9"

			_, err := service.Register(dto)

			gomega.Expect(err).To(gomega.HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeValidation))
		})

		ginkgo.It("should reject a malformed phone", func() {
			dto := validDTO()
			dto.Phone = "912345678"

			_, err := service.Register(dto)
			gomega.Expect(err).To(gomega.HaveOccurred())
		})

		ginkgo.It("should reject a taken username", func() {
			_, err := service.Register(validDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			dto := validDTO()
			dto.RUT = "20.930.502-K"
			dto.Phone = "+56987654321"

			_, err = service.Register(dto)
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("username"))
		})

		ginkgo.It("should wrap repository failures as internal errors", func() {
			mockRepo.shouldFail = true
			mockRepo.failError = errors.New("db down")

			_, err := service.Register(validDTO())

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeInternal))
		})
	})

	ginkgo.Describe("GetCompany", func() {
		ginkgo.It("should get-or-create the subscription row", func() {
			registered, err := service.Register(validDTO())
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			delete(mockRepo.subscriptions, registered.Company.ID)

			_, sub, err := service.GetCompany(registered.Company.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(sub).ToNot(gomega.BeNil())
			gomega.Expect(sub.Status).To(gomega.Equal("Inactive"))
		})

		ginkgo.It("should return not found for unknown companies", func() {
			_, _, err := service.GetCompany(999)
			gomega.Expect(err).To(gomega.Equal(internal.ErrCompanyNotFound))
		})
	})
})
