package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/authz"
	"github.com/trackifyhq/trackify/internal/core/common/validation"
	billingDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/billing"
	"github.com/trackifyhq/trackify/internal/mercadopago"
)

var cancelledStatuses = map[string]bool{
	"cancelled":              true,
	"cancelled_by_user":      true,
	"cancelled_by_collector": true,
}

type Service struct {
	repo       Repository
	gateway    Gateway
	successURL string
	logger     *slog.Logger
}

func NewService(repo Repository, gateway Gateway, successURL string, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		gateway:    gateway,
		successURL: successURL,
		logger:     logger,
	}
}

// Overview returns the actor's company subscription, creating the default
// Inactive row on first sight.
func (s *Service) Overview(actor authz.Identity) (*billingDatamodel.Subscription, error) {
	if !actor.Can(authz.CapManageBilling) {
		return nil, internal.NewSoftDenyError("you do not have permission to manage billing", "/", internal.ErrCodeUnauthorizedAccess)
	}
	return s.repo.GetOrCreate(actor.CompanyID)
}

// Checkout creates a preapproval plan on the processor and returns the
// init_point the payer must be redirected to. Locally the subscription only
// moves to Paused; activation arrives later via webhook or refresh. A
// processor failure leaves local state untouched.
func (s *Service) Checkout(ctx context.Context, actor authz.Identity, dto CheckoutDTO) (string, error) {
	if !actor.Can(authz.CapManageBilling) {
		return "", internal.NewSoftDenyError("you do not have permission to manage billing", "/", internal.ErrCodeUnauthorizedAccess)
	}

	sub, err := s.repo.GetOrCreate(actor.CompanyID)
	if err != nil {
		return "", internal.NewInternalError("failed to load subscription", err)
	}

	cycle := dto.NormalizedCycle(sub.Cycle)
	if sub.Cycle != cycle {
		sub.Cycle = cycle
		if err := s.repo.Save(sub); err != nil {
			return "", internal.NewInternalError("failed to save subscription", err)
		}
	}

	companyName, err := s.repo.CompanyName(actor.CompanyID)
	if err != nil {
		return "", internal.NewInternalError("failed to resolve company", err)
	}

	plan, err := s.gateway.CreatePlan(ctx, mercadopago.PlanParams{
		Amount:   AmountForCycle(sub, cycle),
		Currency: sub.Currency,
		Annual:   cycle == CycleAnnual,
		Reason:   BuildReason(sub.Plan, cycle, companyName),
		BackURL:  s.successURL,
	})
	if err != nil {
		s.logger.Error("checkout plan creation failed", "error", err, "company_id", actor.CompanyID)
		return "", internal.NewSoftDenyError("the payment provider could not start the checkout, please try again", "/billing", internal.ErrCodeBillingProvider)
	}
	if plan.InitPoint == "" {
		s.logger.Error("plan created without init_point", "plan_id", plan.ID, "company_id", actor.CompanyID)
		return "", internal.NewSoftDenyError("the payment provider returned an incomplete checkout, please try again", "/billing", internal.ErrCodeBillingProvider)
	}

	sub.PlanID = plan.ID
	sub.Status = StatusPaused
	if err := s.repo.Save(sub); err != nil {
		return "", internal.NewInternalError("failed to save subscription", err)
	}

	s.logger.Info("checkout started",
		"company_id", actor.CompanyID, "plan_id", plan.ID, "cycle", cycle)
	return plan.InitPoint, nil
}

// HandleWebhook processes a processor notification. It never returns an
// error to the caller: the processor must always get a 200, and internal
// failures land in the dead-letter table instead.
func (s *Service) HandleWebhook(ctx context.Context, query url.Values, body []byte) {
	eventType := query.Get("type")
	if eventType == "" {
		eventType = query.Get("topic")
	}
	if eventType == "" {
		eventType = "unknown"
	}

	preapprovalID := extractPreapprovalID(body, query)

	if err := s.repo.LogEvent(&billingDatamodel.BillingEvent{
		Type:          eventType,
		Payload:       json.RawMessage(body),
		PreapprovalID: preapprovalID,
	}); err != nil {
		s.logger.Error("failed to log billing event", "error", err, "preapproval_id", preapprovalID)
	}

	if preapprovalID == "" {
		return
	}

	if err := s.processNotification(ctx, preapprovalID); err != nil {
		s.logger.Error("webhook processing failed", "error", err, "preapproval_id", preapprovalID)
		if dlErr := s.repo.DeadLetter(&billingDatamodel.BillingDeadLetter{
			PreapprovalID: preapprovalID,
			Payload:       json.RawMessage(body),
			Reason:        err.Error(),
		}); dlErr != nil {
			s.logger.Error("failed to write dead letter", "error", dlErr, "preapproval_id", preapprovalID)
		}
	}
}

func (s *Service) processNotification(ctx context.Context, preapprovalID string) error {
	p, err := s.gateway.GetPreapproval(ctx, preapprovalID)
	if err != nil {
		return fmt.Errorf("preapproval lookup failed: %w", err)
	}

	sub, err := s.repo.FindByPreapprovalID(preapprovalID)
	if err != nil && p.PayerEmail != "" {
		sub, err = s.repo.FindByPayerEmail(p.PayerEmail)
	}
	if err != nil || sub == nil {
		return fmt.Errorf("no subscription matches preapproval %s", preapprovalID)
	}

	s.applyState(sub, p)
	if sub.PreapprovalID == "" {
		sub.PreapprovalID = preapprovalID
	}
	if err := s.repo.Save(sub); err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}

	s.logger.Info("subscription updated from webhook",
		"company_id", sub.CompanyID, "status", sub.Status, "preapproval_id", preapprovalID)
	return nil
}

// Refresh reconciles the local subscription against the processor,
// recovering from missed or late webhooks. Resolution order: the stored
// preapproval id, then a search by stored plan id, then a global search
// matched by normalized reason.
func (s *Service) Refresh(ctx context.Context, actor authz.Identity) (*billingDatamodel.Subscription, error) {
	if !actor.Can(authz.CapManageBilling) {
		return nil, internal.NewSoftDenyError("you do not have permission to manage billing", "/", internal.ErrCodeUnauthorizedAccess)
	}

	sub, err := s.repo.GetOrCreate(actor.CompanyID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load subscription", err)
	}
	companyName, err := s.repo.CompanyName(actor.CompanyID)
	if err != nil {
		return nil, internal.NewInternalError("failed to resolve company", err)
	}
	expectedReason := normalizeReason(BuildReason(sub.Plan, sub.Cycle, companyName))

	// 1. stored preapproval id
	if sub.PreapprovalID != "" {
		p, err := s.gateway.GetPreapproval(ctx, sub.PreapprovalID)
		if err == nil && strings.EqualFold(p.Status, "authorized") {
			s.applyState(sub, p)
			if err := s.repo.Save(sub); err != nil {
				return nil, internal.NewInternalError("failed to save subscription", err)
			}
			return sub, nil
		}
		if err != nil && mercadopago.IsInvalidCaller(err) {
			// stale id from another credential set
			sub.PreapprovalID = ""
			if err := s.repo.Save(sub); err != nil {
				return nil, internal.NewInternalError("failed to save subscription", err)
			}
		}
	}

	// 2. search by stored plan id
	if sub.PlanID != "" {
		items, err := s.gateway.SearchByPlan(ctx, sub.PlanID, 50)
		if err == nil {
			if best := bestMatch(items, expectedReason); best != nil {
				return s.adoptPreapproval(ctx, sub, best.ID)
			}
		}
	}

	// 3. global search matched by reason
	items, err := s.gateway.SearchAll(ctx, 100, 0)
	if err == nil {
		if best := bestMatch(items, expectedReason); best != nil {
			return s.adoptPreapproval(ctx, sub, best.ID)
		}
	}

	return nil, internal.NewSoftDenyError("no authorized subscription was found for this company", "/billing", internal.ErrCodeBillingProvider)
}

func (s *Service) adoptPreapproval(ctx context.Context, sub *billingDatamodel.Subscription, preapprovalID string) (*billingDatamodel.Subscription, error) {
	p, err := s.gateway.GetPreapproval(ctx, preapprovalID)
	if err != nil {
		return nil, internal.NewSoftDenyError("the payment provider could not confirm the subscription", "/billing", internal.ErrCodeBillingProvider)
	}
	s.applyState(sub, p)
	sub.PreapprovalID = preapprovalID
	if err := s.repo.Save(sub); err != nil {
		return nil, internal.NewInternalError("failed to save subscription", err)
	}
	s.logger.Info("subscription reconciled",
		"company_id", sub.CompanyID, "status", sub.Status, "preapproval_id", preapprovalID)
	return sub, nil
}

// SubscriptionActive is the cheap predicate used by the gating middleware.
func (s *Service) SubscriptionActive(companyID int64) bool {
	sub, err := s.repo.GetOrCreate(companyID)
	if err != nil {
		s.logger.Error("failed to load subscription for gating", "error", err, "company_id", companyID)
		return false
	}
	return IsActive(sub)
}

// applyState maps the processor status onto the local state machine.
// Idempotent: applying the same preapproval twice leaves the row unchanged.
func (s *Service) applyState(sub *billingDatamodel.Subscription, p *mercadopago.Preapproval) {
	status := strings.ToLower(p.Status)
	switch {
	case status == "authorized":
		sub.Status = StatusActive
		if sub.StartedAt == nil {
			now := time.Now()
			sub.StartedAt = &now
		}
		sub.NextBillingAt = parseProcessorTime(p.AutoRecurring.NextPaymentDate)
	case status == "paused":
		sub.Status = StatusPaused
	case cancelledStatuses[status]:
		sub.Status = StatusCancelled
		if sub.CancelledAt == nil {
			now := time.Now()
			sub.CancelledAt = &now
		}
	default:
		sub.Status = StatusError
	}

	if p.PayerEmail != "" && sub.PayerEmail == "" {
		sub.PayerEmail = strings.ToLower(p.PayerEmail)
	}
}

// BuildReason is the billing statement descriptor; refresh matches on its
// normalized form, so the format is load-bearing.
func BuildReason(plan, cycle, companyName string) string {
	return fmt.Sprintf("Trackify %s (%s) - %s", plan, cycle, companyName)
}

func normalizeReason(reason string) string {
	lowered := strings.ToLower(strings.TrimSpace(reason))
	lowered = strings.ReplaceAll(lowered, ".", " ")
	return validation.CollapseWhitespace(lowered)
}

// bestMatch picks the preapproval to adopt: same normalized reason,
// preferring authorized, then non-cancelled, newest first.
func bestMatch(items []mercadopago.Preapproval, expectedReason string) *mercadopago.Preapproval {
	var sameReason []mercadopago.Preapproval
	for _, item := range items {
		if normalizeReason(item.Reason) == expectedReason {
			sameReason = append(sameReason, item)
		}
	}
	if len(sameReason) == 0 {
		// fallback: newest authorized regardless of reason
		var authorized []mercadopago.Preapproval
		for _, item := range items {
			if strings.EqualFold(item.Status, "authorized") {
				authorized = append(authorized, item)
			}
		}
		return newest(authorized)
	}

	var authorized, notCancelled []mercadopago.Preapproval
	for _, item := range sameReason {
		status := strings.ToLower(item.Status)
		if status == "authorized" {
			authorized = append(authorized, item)
		}
		if !cancelledStatuses[status] && status != "authorized" {
			notCancelled = append(notCancelled, item)
		}
	}
	if best := newest(authorized); best != nil {
		return best
	}
	if best := newest(notCancelled); best != nil {
		return best
	}
	return newest(sameReason)
}

func newest(items []mercadopago.Preapproval) *mercadopago.Preapproval {
	if len(items) == 0 {
		return nil
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].DateCreated > items[j].DateCreated
	})
	return &items[0]
}

func extractPreapprovalID(body []byte, query url.Values) string {
	var parsed webhookBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		if id := stringify(parsed.Data.ID); id != "" {
			return id
		}
		if id := stringify(parsed.ID); id != "" {
			return id
		}
	}
	return query.Get("id")
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%.0f", val)
	}
	return ""
}

func parseProcessorTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000-07:00"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
