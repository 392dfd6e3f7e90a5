package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trackifyhq/trackify/internal/core/events"
)

// EventHandler fans workflow events out into notification rows.
type EventHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewEventHandler(service *Service, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger,
	}
}

func (h *EventHandler) HandleTaskAssigned(ctx context.Context, event events.Event) error {
	taskEvent, ok := event.(*events.TaskAssignedEvent)
	if !ok {
		h.logger.Error("invalid event type for task assigned handler", "event_type", event.EventType())
		return fmt.Errorf("expected TaskAssignedEvent, got %T", event)
	}

	message := fmt.Sprintf("You have been assigned a new task: %s", taskEvent.Title)
	if taskEvent.EventType() == events.EventTypeTaskReassigned {
		message = fmt.Sprintf("A task has been reassigned to you: %s", taskEvent.Title)
	}

	h.service.Notify(taskEvent.AssigneeID, message)
	return nil
}

func (h *EventHandler) HandleEvaluation(ctx context.Context, event events.Event) error {
	evalEvent, ok := event.(*events.EvaluationEvent)
	if !ok {
		h.logger.Error("invalid event type for evaluation handler", "event_type", event.EventType())
		return fmt.Errorf("expected EvaluationEvent, got %T", event)
	}

	message := fmt.Sprintf("You received a new performance evaluation (score %d)", evalEvent.Score)
	if evalEvent.EventType() == events.EventTypeEvaluationUpdated {
		message = fmt.Sprintf("A performance evaluation about you was updated (score %d)", evalEvent.Score)
	}

	h.service.Notify(evalEvent.EvaluatedID, message)
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeTaskAssigned, h.HandleTaskAssigned)
	eventBus.Subscribe(events.EventTypeTaskReassigned, h.HandleTaskAssigned)
	eventBus.Subscribe(events.EventTypeEvaluationCreated, h.HandleEvaluation)
	eventBus.Subscribe(events.EventTypeEvaluationUpdated, h.HandleEvaluation)

	h.logger.Info("notification event handlers registered",
		"handlers", []string{
			events.EventTypeTaskAssigned,
			events.EventTypeTaskReassigned,
			events.EventTypeEvaluationCreated,
			events.EventTypeEvaluationUpdated,
		})
}
