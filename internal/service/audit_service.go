package service

import (
	"context"
	"fmt"

	"kelabpetani/internal/model"
	"kelabpetani/internal/repository"

	"go.uber.org/zap"
)

type AuditService interface {
	List(ctx context.Context, actor Actor, filter repository.AuditFilter) ([]model.AuditLog, int64, error)
}

type auditService struct {
	repo  repository.AuditRepository
	guard AccessGuard
	log   *zap.Logger
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository, log *zap.Logger) AuditService {
	if log == nil {
		log = zap.NewNop()
	}
	return &auditService{repo: repo, log: log}
}

// List returns audit rows newest first, admin only.
func (s *auditService) List(ctx context.Context, actor Actor, filter repository.AuditFilter) ([]model.AuditLog, int64, error) {
	if err := s.guard.RequireAdmin(actor); err != nil {
		return nil, 0, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}

	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.log.Error("failed to list audit logs", zap.Error(err))
		return nil, 0, fmt.Errorf("%w: list audit logs", ErrPersistence)
	}
	return logs, total, nil
}
