package repository

import (
	"context"

	"kelabpetani/internal/lifecycle"
	"kelabpetani/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PawahFilter drives the public project listing.
type PawahFilter struct {
	Query    string
	CropType string
	Location string
	Status   string
	Page     int
	Limit    int
}

type PawahRepository interface {
	Create(ctx context.Context, project *model.PawahProject) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PawahProject, error)
	Accept(ctx context.Context, id, farmerID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to lifecycle.PawahStatus) (int64, error)
	ListApproved(ctx context.Context, filter PawahFilter) ([]model.PawahProject, int64, error)
	ListPending(ctx context.Context) ([]model.PawahProject, error)
	ListAll(ctx context.Context) ([]model.PawahProject, error)
	SaveModeration(ctx context.Context, project *model.PawahProject) error
}

type pawahRepository struct {
	db *gorm.DB
}

func NewPawahRepository(db *gorm.DB) PawahRepository {
	return &pawahRepository{db: db}
}

func (r *pawahRepository) Create(ctx context.Context, project *model.PawahProject) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(project).Error
}

func (r *pawahRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PawahProject, error) {
	var project model.PawahProject
	if err := GetDB(ctx, r.db).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Accept assigns the farmer and moves the project to accepted, provided it is
// still open and unassigned.
func (r *pawahRepository) Accept(ctx context.Context, id, farmerID uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.PawahProject{}).
		Where("id = ? AND status = ? AND farmer_id IS NULL", id, lifecycle.PawahOpen).
		Updates(map[string]interface{}{
			"farmer_id": farmerID,
			"status":    lifecycle.PawahAccepted,
		})
	return res.RowsAffected, res.Error
}

func (r *pawahRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to lifecycle.PawahStatus) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.PawahProject{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

func (r *pawahRepository) ListApproved(ctx context.Context, filter PawahFilter) ([]model.PawahProject, int64, error) {
	var projects []model.PawahProject
	var total int64

	db := GetDB(ctx, r.db).Model(&model.PawahProject{}).Where("is_approved = ?", true)
	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		db = db.Where("LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", like, like)
	}
	if filter.CropType != "" {
		db = db.Where("crop_type = ?", filter.CropType)
	}
	if filter.Location != "" {
		db = db.Where("location = ?", filter.Location)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

func (r *pawahRepository) ListPending(ctx context.Context) ([]model.PawahProject, error) {
	var projects []model.PawahProject
	err := GetDB(ctx, r.db).Where("is_approved = ?", false).Order("created_at desc").Find(&projects).Error
	return projects, err
}

func (r *pawahRepository) ListAll(ctx context.Context) ([]model.PawahProject, error) {
	var projects []model.PawahProject
	err := GetDB(ctx, r.db).Order("created_at desc").Find(&projects).Error
	return projects, err
}

func (r *pawahRepository) SaveModeration(ctx context.Context, project *model.PawahProject) error {
	return GetDB(ctx, r.db).Model(project).Select(model.ModerationColumns).Updates(project).Error
}
