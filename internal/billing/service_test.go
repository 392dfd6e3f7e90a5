package billing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/authz"
	billingDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/billing"
	"github.com/trackifyhq/trackify/internal/mercadopago"
)

func TestBillingService(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Billing Service Suite")
}

type mockRepository struct {
	subs        map[int64]*billingDatamodel.Subscription
	companies   map[int64]string
	events      []*billingDatamodel.BillingEvent
	deadLetters []*billingDatamodel.BillingDeadLetter
	saveCount   int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		subs: map[int64]*billingDatamodel.Subscription{
			1: {
				ID: 1, CompanyID: 1, Plan: "Pro", Cycle: CycleMonthly,
				Currency: "CLP", MonthlyAmount: 29990, AnnualAmount: 299900,
				Status: StatusInactive,
			},
		},
		companies: map[int64]string{1: "Comercial Andina S.A."},
	}
}

func (m *mockRepository) GetOrCreate(companyID int64) (*billingDatamodel.Subscription, error) {
	if sub, ok := m.subs[companyID]; ok {
		return sub, nil
	}
	sub := &billingDatamodel.Subscription{CompanyID: companyID, Status: StatusInactive}
	m.subs[companyID] = sub
	return sub, nil
}

func (m *mockRepository) Save(sub *billingDatamodel.Subscription) error {
	m.saveCount++
	m.subs[sub.CompanyID] = sub
	return nil
}

func (m *mockRepository) FindByPreapprovalID(preapprovalID string) (*billingDatamodel.Subscription, error) {
	for _, sub := range m.subs {
		if sub.PreapprovalID == preapprovalID && preapprovalID != "" {
			return sub, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockRepository) FindByPayerEmail(payerEmail string) (*billingDatamodel.Subscription, error) {
	for _, sub := range m.subs {
		if sub.PayerEmail == payerEmail && payerEmail != "" {
			return sub, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *mockRepository) LogEvent(ev *billingDatamodel.BillingEvent) error {
	m.events = append(m.events, ev)
	return nil
}

func (m *mockRepository) DeadLetter(dl *billingDatamodel.BillingDeadLetter) error {
	m.deadLetters = append(m.deadLetters, dl)
	return nil
}

func (m *mockRepository) CompanyName(companyID int64) (string, error) {
	return m.companies[companyID], nil
}

type mockGateway struct {
	plan         *mercadopago.Plan
	planErr      error
	preapprovals map[string]*mercadopago.Preapproval
	getErr       map[string]error
	byPlan       []mercadopago.Preapproval
	all          []mercadopago.Preapproval
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		preapprovals: make(map[string]*mercadopago.Preapproval),
		getErr:       make(map[string]error),
	}
}

func (g *mockGateway) CreatePlan(ctx context.Context, params mercadopago.PlanParams) (*mercadopago.Plan, error) {
	if g.planErr != nil {
		return nil, g.planErr
	}
	return g.plan, nil
}

func (g *mockGateway) GetPreapproval(ctx context.Context, id string) (*mercadopago.Preapproval, error) {
	if err, ok := g.getErr[id]; ok {
		return nil, err
	}
	if p, ok := g.preapprovals[id]; ok {
		return p, nil
	}
	return nil, errors.New("not found")
}

func (g *mockGateway) SearchByPlan(ctx context.Context, planID string, limit int) ([]mercadopago.Preapproval, error) {
	return g.byPlan, nil
}

func (g *mockGateway) SearchAll(ctx context.Context, limit, offset int) ([]mercadopago.Preapproval, error) {
	return g.all, nil
}

var _ = ginkgo.Describe("BillingService", func() {
	var (
		service  *Service
		mockRepo *mockRepository
		gateway  *mockGateway
		hr       authz.Identity
		worker   authz.Identity
		ctx      context.Context
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockRepository()
		gateway = newMockGateway()
		lg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = NewService(mockRepo, gateway, "https://trackify.example/billing/success", lg)
		ctx = context.Background()
		hr = authz.Identity{UserID: 1, CompanyID: 1, Role: authz.RoleHR}
		worker = authz.Identity{UserID: 3, CompanyID: 1, Role: authz.RoleWorker}
	})

	ginkgo.Describe("Checkout", func() {
		ginkgo.It("should persist the plan id, pause locally and hand back the init point", func() {
			gateway.plan = &mercadopago.Plan{ID: "plan-123", InitPoint: "https://mp.example/init"}

			initPoint, err := service.Checkout(ctx, hr, CheckoutDTO{Cycle: CycleAnnual})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(initPoint).To(gomega.Equal("https://mp.example/init"))

			sub := mockRepo.subs[1]
			gomega.Expect(sub.Status).To(gomega.Equal(StatusPaused))
			gomega.Expect(sub.PlanID).To(gomega.Equal("plan-123"))
			gomega.Expect(sub.Cycle).To(gomega.Equal(CycleAnnual))
		})

		ginkgo.It("should leave local state untouched when the processor fails", func() {
			gateway.planErr = errors.New("gateway timeout")

			_, err := service.Checkout(ctx, hr, CheckoutDTO{})

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.RedirectTo).To(gomega.Equal("/billing"))
			gomega.Expect(mockRepo.subs[1].Status).To(gomega.Equal(StatusInactive))
			gomega.Expect(mockRepo.subs[1].PlanID).To(gomega.BeEmpty())
		})

		ginkgo.It("should soft-deny roles without billing capability", func() {
			_, err := service.Checkout(ctx, worker, CheckoutDTO{})

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.RedirectTo).To(gomega.Equal("/"))
		})
	})

	ginkgo.Describe("HandleWebhook", func() {
		authorizedPayload := []byte(`{"data":{"id":"pre-1"}}`)

		ginkgo.BeforeEach(func() {
			mockRepo.subs[1].PreapprovalID = "pre-1"
			gateway.preapprovals["pre-1"] = &mercadopago.Preapproval{
				ID: "pre-1", Status: "authorized", PayerEmail: "buyer@example.com",
				AutoRecurring: mercadopago.AutoRecurring{NextPaymentDate: "2026-09-28T00:00:00Z"},
			}
		})

		ginkgo.It("should log the event and activate on authorized", func() {
			service.HandleWebhook(ctx, url.Values{"type": []string{"preapproval"}}, authorizedPayload)

			gomega.Expect(mockRepo.events).To(gomega.HaveLen(1))
			gomega.Expect(mockRepo.events[0].PreapprovalID).To(gomega.Equal("pre-1"))

			sub := mockRepo.subs[1]
			gomega.Expect(sub.Status).To(gomega.Equal(StatusActive))
			gomega.Expect(sub.StartedAt).ToNot(gomega.BeNil())
			gomega.Expect(sub.NextBillingAt).ToNot(gomega.BeNil())
			gomega.Expect(sub.PayerEmail).To(gomega.Equal("buyer@example.com"))
		})

		ginkgo.It("should be idempotent for a repeated authorized delivery", func() {
			service.HandleWebhook(ctx, url.Values{}, authorizedPayload)
			sub := mockRepo.subs[1]
			started := *sub.StartedAt
			nextBilling := *sub.NextBillingAt

			service.HandleWebhook(ctx, url.Values{}, authorizedPayload)

			gomega.Expect(sub.Status).To(gomega.Equal(StatusActive))
			gomega.Expect(*sub.StartedAt).To(gomega.Equal(started))
			gomega.Expect(*sub.NextBillingAt).To(gomega.Equal(nextBilling))
		})

		ginkgo.It("should resolve by payer email when the preapproval id is unknown", func() {
			mockRepo.subs[1].PreapprovalID = ""
			mockRepo.subs[1].PayerEmail = "buyer@example.com"

			service.HandleWebhook(ctx, url.Values{}, authorizedPayload)

			sub := mockRepo.subs[1]
			gomega.Expect(sub.Status).To(gomega.Equal(StatusActive))
			gomega.Expect(sub.PreapprovalID).To(gomega.Equal("pre-1"))
		})

		ginkgo.It("should map cancellations and record the timestamp", func() {
			gateway.preapprovals["pre-1"].Status = "cancelled_by_user"

			service.HandleWebhook(ctx, url.Values{}, authorizedPayload)

			sub := mockRepo.subs[1]
			gomega.Expect(sub.Status).To(gomega.Equal(StatusCancelled))
			gomega.Expect(sub.CancelledAt).ToNot(gomega.BeNil())
		})

		ginkgo.It("should move to Error on an unrecognized processor status", func() {
			gateway.preapprovals["pre-1"].Status = "pending_review"

			service.HandleWebhook(ctx, url.Values{}, authorizedPayload)

			gomega.Expect(mockRepo.subs[1].Status).To(gomega.Equal(StatusError))
		})

		ginkgo.It("should dead-letter processing failures without surfacing them", func() {
			gateway.getErr["pre-1"] = errors.New("mp is down")

			service.HandleWebhook(ctx, url.Values{}, authorizedPayload)

			gomega.Expect(mockRepo.deadLetters).To(gomega.HaveLen(1))
			gomega.Expect(mockRepo.deadLetters[0].PreapprovalID).To(gomega.Equal("pre-1"))
			gomega.Expect(mockRepo.subs[1].Status).To(gomega.Equal(StatusInactive))
		})
	})

	ginkgo.Describe("Refresh", func() {
		ginkgo.It("should sync directly from a stored authorized preapproval", func() {
			mockRepo.subs[1].PreapprovalID = "pre-9"
			gateway.preapprovals["pre-9"] = &mercadopago.Preapproval{ID: "pre-9", Status: "authorized"}

			sub, err := service.Refresh(ctx, hr)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(sub.Status).To(gomega.Equal(StatusActive))
		})

		ginkgo.It("should clear a stale preapproval id rejected by callerId and fall back to the plan search", func() {
			mockRepo.subs[1].PreapprovalID = "stale"
			mockRepo.subs[1].PlanID = "plan-1"
			gateway.getErr["stale"] = &mercadopago.APIError{StatusCode: http.StatusBadRequest, Body: `{"message":"callerId not allowed"}`}

			reason := BuildReason("Pro", CycleMonthly, "Comercial Andina S.A.")
			gateway.byPlan = []mercadopago.Preapproval{
				{ID: "pre-new", Status: "authorized", Reason: reason, DateCreated: "2026-08-01T00:00:00Z"},
			}
			gateway.preapprovals["pre-new"] = &mercadopago.Preapproval{ID: "pre-new", Status: "authorized"}

			sub, err := service.Refresh(ctx, hr)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(sub.PreapprovalID).To(gomega.Equal("pre-new"))
			gomega.Expect(sub.Status).To(gomega.Equal(StatusActive))
		})

		ginkgo.It("should match on the normalized reason in the global fallback", func() {
			reasonWithDots := "trackify pro (monthly) - comercial andina s a"
			gomega.Expect(normalizeReason(BuildReason("Pro", CycleMonthly, "Comercial Andina S.A."))).To(gomega.Equal(reasonWithDots))

			gateway.all = []mercadopago.Preapproval{
				{ID: "other", Status: "authorized", Reason: "Trackify Pro (Monthly) - Someone Else", DateCreated: "2026-08-10T00:00:00Z"},
				{ID: "mine-old", Status: "authorized", Reason: "Trackify Pro (Monthly) - Comercial Andina S.A.", DateCreated: "2026-07-01T00:00:00Z"},
				{ID: "mine-new", Status: "authorized", Reason: "trackify pro (monthly) - comercial  andina s.a.", DateCreated: "2026-08-15T00:00:00Z"},
			}
			gateway.preapprovals["mine-new"] = &mercadopago.Preapproval{ID: "mine-new", Status: "authorized"}

			sub, err := service.Refresh(ctx, hr)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(sub.PreapprovalID).To(gomega.Equal("mine-new"))
		})

		ginkgo.It("should report when nothing authorized matches", func() {
			_, err := service.Refresh(ctx, hr)

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.RedirectTo).To(gomega.Equal("/billing"))
		})

		ginkgo.It("should be idempotent across repeated refreshes", func() {
			mockRepo.subs[1].PreapprovalID = "pre-9"
			gateway.preapprovals["pre-9"] = &mercadopago.Preapproval{
				ID: "pre-9", Status: "authorized",
				AutoRecurring: mercadopago.AutoRecurring{NextPaymentDate: "2026-09-28T00:00:00Z"},
			}

			first, err := service.Refresh(ctx, hr)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			started := *first.StartedAt

			time.Sleep(5 * time.Millisecond)
			second, err := service.Refresh(ctx, hr)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(second.Status).To(gomega.Equal(StatusActive))
			gomega.Expect(*second.StartedAt).To(gomega.Equal(started))
		})
	})

	ginkgo.Describe("SubscriptionActive", func() {
		ginkgo.It("should only be true in the Active state", func() {
			for status, want := range map[string]bool{
				StatusInactive: false, StatusPaused: false, StatusCancelled: false,
				StatusError: false, StatusActive: true,
			} {
				mockRepo.subs[1].Status = status
				gomega.Expect(service.SubscriptionActive(1)).To(gomega.Equal(want), status)
			}
		})
	})
})
