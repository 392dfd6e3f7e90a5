package evaluation

import "time"

type Evaluation struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	CompanyID   int64     `gorm:"column:company_id;not null" json:"company_id"`
	EvaluatorID int64     `gorm:"column:evaluator_id;not null" json:"evaluator_id"`
	EvaluatedID int64     `gorm:"column:evaluated_id;not null" json:"evaluated_id"`
	Type        string    `gorm:"column:type;not null" json:"type"`
	Score       int       `gorm:"column:score;not null" json:"score"`
	Comments    string    `gorm:"column:comments" json:"comments,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Evaluation) TableName() string { return "evaluations" }

type EvaluationHistory struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	EvaluationID int64     `gorm:"column:evaluation_id;not null;index" json:"evaluation_id"`
	Action       string    `gorm:"column:action;not null" json:"action"`
	Field        string    `gorm:"column:field" json:"field,omitempty"`
	OldValue     *string   `gorm:"column:old_value" json:"old_value,omitempty"`
	NewValue     *string   `gorm:"column:new_value" json:"new_value,omitempty"`
	ActorID      *int64    `gorm:"column:actor_id" json:"actor_id,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
}

func (EvaluationHistory) TableName() string { return "evaluation_history" }
