package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTaskAssigned      = "task.assigned"
	EventTypeTaskReassigned    = "task.reassigned"
	EventTypeEvaluationCreated = "evaluation.created"
	EventTypeEvaluationUpdated = "evaluation.updated"
)

// TaskAssignedEvent fans out to the notification writer when a task is
// created for (or moved onto) an assignee.
type TaskAssignedEvent struct {
	BaseEvent
	TaskID     int64  `json:"task_id"`
	AssigneeID int64  `json:"assignee_id"`
	Title      string `json:"title"`
}

func NewTaskAssignedEvent(taskID, assigneeID int64, title string) *TaskAssignedEvent {
	return &TaskAssignedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTaskAssigned,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"task_id":     taskID,
				"assignee_id": assigneeID,
				"title":       title,
			},
		},
		TaskID:     taskID,
		AssigneeID: assigneeID,
		Title:      title,
	}
}

func NewTaskReassignedEvent(taskID, assigneeID int64, title string) *TaskAssignedEvent {
	ev := NewTaskAssignedEvent(taskID, assigneeID, title)
	ev.BaseEvent.Type = EventTypeTaskReassigned
	return ev
}

// EvaluationEvent notifies the evaluated identity about a new or changed
// performance evaluation.
type EvaluationEvent struct {
	BaseEvent
	EvaluationID int64 `json:"evaluation_id"`
	EvaluatedID  int64 `json:"evaluated_id"`
	Score        int   `json:"score"`
}

func NewEvaluationCreatedEvent(evaluationID, evaluatedID int64, score int) *EvaluationEvent {
	return newEvaluationEvent(EventTypeEvaluationCreated, evaluationID, evaluatedID, score)
}

func NewEvaluationUpdatedEvent(evaluationID, evaluatedID int64, score int) *EvaluationEvent {
	return newEvaluationEvent(EventTypeEvaluationUpdated, evaluationID, evaluatedID, score)
}

func newEvaluationEvent(eventType string, evaluationID, evaluatedID int64, score int) *EvaluationEvent {
	return &EvaluationEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"evaluation_id": evaluationID,
				"evaluated_id":  evaluatedID,
				"score":         score,
			},
		},
		EvaluationID: evaluationID,
		EvaluatedID:  evaluatedID,
		Score:        score,
	}
}
