package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/trackifyhq/trackify/internal"
	evaluationDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/evaluation"
	identityDatamodel "github.com/trackifyhq/trackify/internal/core/datamodel/identity"
	"github.com/trackifyhq/trackify/internal/evaluation"
)

// EvaluationRepository implements the evaluation.Repository interface using GORM
type EvaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) evaluation.Repository {
	return &EvaluationRepository{db: db}
}

func (r *EvaluationRepository) CreateWithHistory(ev *evaluationDatamodel.Evaluation, history []*evaluationDatamodel.EvaluationHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ev).Error; err != nil {
			return err
		}
		for _, h := range history {
			h.EvaluationID = ev.ID
			if err := tx.Create(h).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *EvaluationRepository) UpdateWithHistory(ev *evaluationDatamodel.Evaluation, history []*evaluationDatamodel.EvaluationHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(ev).Error; err != nil {
			return err
		}
		for _, h := range history {
			h.EvaluationID = ev.ID
			if err := tx.Create(h).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *EvaluationRepository) DeleteWithHistory(evaluationID int64, history *evaluationDatamodel.EvaluationHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(history).Error; err != nil {
			return err
		}
		return tx.Delete(&evaluationDatamodel.Evaluation{}, evaluationID).Error
	})
}

func (r *EvaluationRepository) GetByID(id int64) (*evaluationDatamodel.Evaluation, error) {
	var ev evaluationDatamodel.Evaluation
	err := r.db.Where("id = ?", id).First(&ev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrEvaluationNotFound
		}
		return nil, err
	}
	return &ev, nil
}

func (r *EvaluationRepository) List(filter evaluation.Filter) ([]*evaluationDatamodel.Evaluation, error) {
	q := r.db.Model(&evaluationDatamodel.Evaluation{})
	if filter.CompanyID != 0 {
		q = q.Where("evaluations.company_id = ?", filter.CompanyID)
	}
	if filter.EvaluatedID != nil {
		q = q.Where("evaluations.evaluated_id = ?", *filter.EvaluatedID)
	}
	if filter.EvaluatorID != nil {
		q = q.Where("evaluations.evaluator_id = ?", *filter.EvaluatorID)
	}
	if filter.EvaluatedDepartmentID != nil || filter.EvaluatedRoleName != "" {
		q = q.Joins("JOIN users ON users.id = evaluations.evaluated_id")
	}
	if filter.EvaluatedDepartmentID != nil {
		q = q.Where("users.department_id = ?", *filter.EvaluatedDepartmentID)
	}
	if filter.EvaluatedRoleName != "" {
		q = q.Joins("JOIN roles ON roles.id = users.role_id").
			Where("roles.name = ?", filter.EvaluatedRoleName)
	}

	var evs []*evaluationDatamodel.Evaluation
	err := q.Order("evaluations.created_at DESC").Find(&evs).Error
	return evs, err
}

func (r *EvaluationRepository) History(evaluationID int64) ([]*evaluationDatamodel.EvaluationHistory, error) {
	var rows []*evaluationDatamodel.EvaluationHistory
	err := r.db.Where("evaluation_id = ?", evaluationID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *EvaluationRepository) GetUser(id int64) (*identityDatamodel.User, error) {
	var u identityDatamodel.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *EvaluationRepository) GetUserRoleName(id int64) (string, error) {
	var name string
	err := r.db.Raw(`SELECT COALESCE(r.name, '') FROM users u
	                 LEFT JOIN roles r ON r.id = u.role_id
	                 WHERE u.id = ?`, id).Scan(&name).Error
	return name, err
}
