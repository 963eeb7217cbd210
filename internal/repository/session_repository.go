package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/navigation"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/apperr"
)

// SessionModel is the GORM model for the navigation_sessions table.
type SessionModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name       string          `gorm:"size:200"`
	State      string          `gorm:"not null;size:30;index"`
	Generation int64           `gorm:"not null;default:0"`
	Snapshot   json.RawMessage `gorm:"type:jsonb;not null"`
	Closed     bool            `gorm:"not null;default:false;index"`
	Version    int64           `gorm:"not null;default:1"`
	CreatedAt  time.Time       `gorm:"not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (SessionModel) TableName() string {
	return "navigation_sessions"
}

// GormSessionRepository is the GORM-based implementation of SessionRepository.
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository.
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// FindByID retrieves a session record by its unique identifier.
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*navigation.SessionRecord, error) {
	var model SessionModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFoundError("Session", id.String())
		}
		return nil, fmt.Errorf("failed to find session by ID: %w", err)
	}
	return toSessionRecord(&model)
}

// List retrieves session records with pagination, newest first.
func (r *GormSessionRepository) List(ctx context.Context, page, limit int) ([]*navigation.SessionRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&SessionModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	var models []SessionModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	records := make([]*navigation.SessionRecord, len(models))
	for i := range models {
		rec, err := toSessionRecord(&models[i])
		if err != nil {
			return nil, 0, err
		}
		records[i] = rec
	}
	return records, total, nil
}

// CountByState returns session counts grouped by state.
func (r *GormSessionRepository) CountByState(ctx context.Context) (map[string]int64, error) {
	type stateCount struct {
		State string
		Count int64
	}
	var results []stateCount
	if err := r.db.WithContext(ctx).Model(&SessionModel{}).
		Select("state, count(*) as count").
		Group("state").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by state: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.State] = sc.Count
	}
	return counts, nil
}

// Save persists a new session record.
func (r *GormSessionRepository) Save(ctx context.Context, record *navigation.SessionRecord) error {
	model, err := toSessionModel(record)
	if err != nil {
		return fmt.Errorf("failed to convert session to model: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Update overwrites the snapshot of an existing session with optimistic locking.
// record.Version must already be incremented.
func (r *GormSessionRepository) Update(ctx context.Context, record *navigation.SessionRecord) error {
	model, err := toSessionModel(record)
	if err != nil {
		return fmt.Errorf("failed to convert session to model: %w", err)
	}

	result := r.db.WithContext(ctx).
		Model(&SessionModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]interface{}{
			"name":       model.Name,
			"state":      model.State,
			"generation": model.Generation,
			"snapshot":   model.Snapshot,
			"closed":     model.Closed,
			"version":    model.Version,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NewConflictError("session was modified by another writer")
	}
	return nil
}

// --- Conversion Helpers ---

func toSessionModel(rec *navigation.SessionRecord) (*SessionModel, error) {
	snapshot, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return &SessionModel{
		ID:         rec.ID,
		Name:       rec.Name,
		State:      rec.Snapshot.State.String(),
		Generation: int64(rec.Snapshot.Generation),
		Snapshot:   snapshot,
		Closed:     rec.Closed,
		Version:    rec.Version,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}, nil
}

func toSessionRecord(m *SessionModel) (*navigation.SessionRecord, error) {
	var snapshot navigation.Snapshot
	if err := json.Unmarshal(m.Snapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &navigation.SessionRecord{
		ID:        m.ID,
		Name:      m.Name,
		Snapshot:  snapshot,
		Closed:    m.Closed,
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}, nil
}
