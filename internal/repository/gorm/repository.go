package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"autodca/internal/models"
	"autodca/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Controllers ------------------------------------------------------------

func (s *Store) UpsertController(ctx context.Context, item *models.Controller) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.OwnerAddress) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"vault_ref",
			"evm_address",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetControllerByOwner(ctx context.Context, owner string) (*models.Controller, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Controller
	err := s.db.WithContext(ctx).Where("owner_address = ?", owner).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Plans ------------------------------------------------------------------

func (s *Store) InsertPlan(ctx context.Context, item *models.Plan) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPlanByID(ctx context.Context, id uint64) (*models.Plan, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Plan
	err := s.db.WithContext(ctx).First(&item, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPlans(ctx context.Context, params repository.ListPlansParams) ([]models.Plan, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Plan{})
	if params.Owner != nil && strings.TrimSpace(*params.Owner) != "" {
		query = query.Where("owner_address = ?", strings.TrimSpace(*params.Owner))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Plan
	if err := query.Order("id asc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPlansByOwner(ctx context.Context, owner string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Plan{}).
		Where("owner_address = ?", owner).
		Count(&count).Error
	return count, err
}

func (s *Store) SavePlan(ctx context.Context, item *models.Plan) error {
	if s == nil || s.db == nil || item == nil || item.ID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Save(item).Error
}

func (s *Store) DeletePlan(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&models.Plan{}, id).Error
}

func (s *Store) ListDuePlans(ctx context.Context, now time.Time, limit int) ([]models.Plan, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 100)
	var items []models.Plan
	err := s.db.WithContext(ctx).
		Model(&models.Plan{}).
		Where("status = ?", models.PlanStatusActive).
		Where("next_execution_at <= ?", now).
		Order("next_execution_at asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Executions -------------------------------------------------------------

func (s *Store) RecordExecution(ctx context.Context, plan *models.Plan, rec *models.ExecutionRecord, evt *models.PlanEvent) error {
	if s == nil || s.db == nil || plan == nil {
		return nil
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Save(plan).Error; err != nil {
			return err
		}
		if rec != nil {
			if err := tx.Create(rec).Error; err != nil {
				return err
			}
		}
		if evt != nil {
			if err := tx.Create(evt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListExecutionsByPlanID(ctx context.Context, planID uint64, limit int) ([]models.ExecutionRecord, error) {
	if s == nil || s.db == nil || planID == 0 {
		return nil, nil
	}
	limit = normalizeLimit(limit, 100)
	var items []models.ExecutionRecord
	err := s.db.WithContext(ctx).
		Model(&models.ExecutionRecord{}).
		Where("plan_id = ?", planID).
		Order("executed_at desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Events -----------------------------------------------------------------

func (s *Store) InsertEvent(ctx context.Context, item *models.PlanEvent) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListEvents(ctx context.Context, params repository.ListEventsParams) ([]models.PlanEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.PlanEvent{})
	if params.Owner != nil && strings.TrimSpace(*params.Owner) != "" {
		query = query.Where("owner_address = ?", strings.TrimSpace(*params.Owner))
	}
	if params.Type != nil && strings.TrimSpace(*params.Type) != "" {
		query = query.Where("type = ?", strings.TrimSpace(*params.Type))
	}
	if params.PlanID != nil && *params.PlanID > 0 {
		query = query.Where("plan_id = ?", *params.PlanID)
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.PlanEvent
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteEventsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.PlanEvent{})
	return res.RowsAffected, res.Error
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
