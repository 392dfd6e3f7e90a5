package evaluation

import (
	"time"

	"github.com/trackifyhq/trackify/internal"
	"github.com/trackifyhq/trackify/internal/core/common/validation"
	evaluationDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/evaluation"
)

type CreateEvaluationDTO struct {
	EvaluatedID int64  `json:"evaluated_id"`
	Score       int    `json:"score"`
	Comments    string `json:"comments,omitempty"`
}

func (d CreateEvaluationDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("evaluated_id", d.EvaluatedID).Required()
	v.Field("score", int64(d.Score)).Required().
		MinInt(1, internal.ErrCodeInvalidScore).
		MaxInt(5, internal.ErrCodeInvalidScore)
	v.Field("comments", d.Comments).MaxLength(2000)
	return v.Validate()
}

// UpdateEvaluationDTO carries the editable fields; nil means unchanged. The
// evaluated user and the pairing type are fixed at creation.
type UpdateEvaluationDTO struct {
	Score    *int    `json:"score,omitempty"`
	Comments *string `json:"comments,omitempty"`
}

func (d UpdateEvaluationDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	if d.Score != nil {
		v.Field("score", int64(*d.Score)).
			MinInt(1, internal.ErrCodeInvalidScore).
			MaxInt(5, internal.ErrCodeInvalidScore)
	}
	if d.Comments != nil {
		v.Field("comments", *d.Comments).MaxLength(2000)
	}
	return v.Validate()
}

type EvaluationResponse struct {
	ID          int64     `json:"id"`
	EvaluatorID int64     `json:"evaluator_id"`
	EvaluatedID int64     `json:"evaluated_id"`
	Type        string    `json:"type"`
	Score       int       `json:"score"`
	Comments    string    `json:"comments,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func ToResponse(ev *evaluationDatamodel.Evaluation) EvaluationResponse {
	return EvaluationResponse{
		ID:          ev.ID,
		EvaluatorID: ev.EvaluatorID,
		EvaluatedID: ev.EvaluatedID,
		Type:        ev.Type,
		Score:       ev.Score,
		Comments:    ev.Comments,
		CreatedAt:   ev.CreatedAt,
		UpdatedAt:   ev.UpdatedAt,
	}
}

type HistoryResponse struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Field     string    `json:"field,omitempty"`
	OldValue  *string   `json:"old_value,omitempty"`
	NewValue  *string   `json:"new_value,omitempty"`
	ActorID   *int64    `json:"actor_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func ToHistoryResponse(h *evaluationDatamodel.EvaluationHistory) HistoryResponse {
	return HistoryResponse{
		ID:        h.ID,
		Action:    h.Action,
		Field:     h.Field,
		OldValue:  h.OldValue,
		NewValue:  h.NewValue,
		ActorID:   h.ActorID,
		CreatedAt: h.CreatedAt,
	}
}
