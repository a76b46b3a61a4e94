package service

import (
	"context"
	"fmt"
	"strings"

	"kelabpetani/internal/events"
	"kelabpetani/internal/lifecycle"
	"kelabpetani/internal/metrics"
	"kelabpetani/internal/model"
	"kelabpetani/internal/repository"
	"kelabpetani/internal/tracing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DTOs
type CreateProjectRequest struct {
	Title              string          `json:"title" binding:"required"`
	Description        string          `json:"description"`
	CropType           string          `json:"crop_type" binding:"required"`
	Location           string          `json:"location" binding:"required"`
	DurationMonths     int             `json:"duration_months"`
	CapitalRequired    decimal.Decimal `json:"capital_required"`
	OwnerSharePercent  int             `json:"owner_share_percent"`
	FarmerSharePercent int             `json:"farmer_share_percent"`
}

type AdvanceProjectRequest struct {
	Status string `json:"status" binding:"required"`
}

type PawahService interface {
	CreateProject(ctx context.Context, actor Actor, req CreateProjectRequest) (*model.PawahProject, error)
	Accept(ctx context.Context, actor Actor, projectID uuid.UUID) (*model.PawahProject, error)
	Advance(ctx context.Context, actor Actor, projectID uuid.UUID, target lifecycle.PawahStatus) (*model.PawahProject, error)
	Start(ctx context.Context, actor Actor, projectID uuid.UUID) (*model.PawahProject, error)
	Complete(ctx context.Context, actor Actor, projectID uuid.UUID) (*model.PawahProject, error)
	Cancel(ctx context.Context, actor Actor, projectID uuid.UUID) (*model.PawahProject, error)
	GetProject(ctx context.Context, actor Actor, projectID uuid.UUID) (*model.PawahProject, error)
	Browse(ctx context.Context, filter repository.PawahFilter) ([]model.PawahProject, int64, error)
}

type pawahService struct {
	projects  repository.PawahRepository
	audit     *AuditWriter
	txManager repository.TransactionManager
	dispatch  *Dispatcher
	guard     AccessGuard
	log       *zap.Logger
}

func NewPawahService(
	projects repository.PawahRepository,
	audit *AuditWriter,
	txManager repository.TransactionManager,
	dispatch *Dispatcher,
	log *zap.Logger,
) PawahService {
	if log == nil {
		log = zap.NewNop()
	}
	return &pawahService{
		projects:  projects,
		audit:     audit,
		txManager: txManager,
		dispatch:  dispatch,
		log:       log,
	}
}

func validateProject(req *CreateProjectRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.CropType = strings.TrimSpace(req.CropType)
	req.Location = strings.TrimSpace(req.Location)

	switch {
	case req.Title == "":
		return validationErr("title is required")
	case req.CropType == "":
		return validationErr("crop type is required")
	case req.Location == "":
		return validationErr("location is required")
	case req.DurationMonths <= 0:
		return validationErr("duration must be at least one month")
	case req.CapitalRequired.IsNegative():
		return validationErr("capital required cannot be negative")
	case req.OwnerSharePercent < 0 || req.OwnerSharePercent > 100,
		req.FarmerSharePercent < 0 || req.FarmerSharePercent > 100:
		return validationErr("share percentages must be between 0 and 100")
	case req.OwnerSharePercent+req.FarmerSharePercent != 100:
		return validationErr("owner and farmer shares must add up to 100")
	}
	return nil
}

// CreateProject opens a project for review. It is invisible to the public
// until an admin approves it.
func (s *pawahService) CreateProject(ctx context.Context, actor Actor, req CreateProjectRequest) (*model.PawahProject, error) {
	ctx, span := tracing.Start(ctx, "PawahService.CreateProject")
	defer span.End()

	if err := validateProject(&req); err != nil {
		return nil, err
	}

	project := &model.PawahProject{
		OwnerID:            actor.ID,
		Title:              req.Title,
		Description:        strings.TrimSpace(req.Description),
		CropType:           req.CropType,
		Location:           req.Location,
		DurationMonths:     req.DurationMonths,
		CapitalRequired:    req.CapitalRequired,
		OwnerSharePercent:  req.OwnerSharePercent,
		FarmerSharePercent: req.FarmerSharePercent,
		Status:             lifecycle.PawahOpen,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projects.Create(txCtx, project); err != nil {
			return err
		}
		return s.audit.Append(txCtx, AuditEntry{
			EntityType: model.EntityPawah,
			EntityID:   project.ID,
			Action:     model.ActionCreate,
			NewStatus:  string(lifecycle.PawahOpen),
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, failWith(s.log, err, "create pawah project")
	}

	s.dispatch.Publish(ctx, events.Event{
		Type:       events.TypePawahCreated,
		EntityType: model.EntityPawah,
		EntityID:   project.ID,
		Action:     model.ActionCreate,
		NewStatus:  string(project.Status),
		ActorID:    actor.ptr(),
		Recipients: []uuid.UUID{actor.ID},
	})
	return project, nil
}

// Accept assigns actor as the farmer of an open project. Unapproved projects
// are only reachable by those allowed to see them.
func (s *pawahService) Accept(ctx context.Context, actor Actor, projectID uuid.UUID) (*model.PawahProject, error) {
	ctx, span := tracing.Start(ctx, "PawahService.Accept")
	defer span.End()
	span.SetAttributes(attribute.String("pawah.id", projectID.String()))

	project, err := s.load(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	if actor.Is(project.OwnerID) {
		metrics.Transition(model.EntityPawah, model.ActionAccept, metrics.ResultRejected)
		return nil, fmt.Errorf("%w: owners cannot accept their own project", ErrForbidden)
	}
	if project.Status != lifecycle.PawahOpen {
		metrics.Transition(model.EntityPawah, model.ActionAccept, metrics.ResultRejected)
		return nil, fmt.Errorf("%w: project is not open for acceptance", ErrInvalidState)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rows, err := s.projects.Accept(txCtx, project.ID, actor.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: project was accepted by someone else", ErrInvalidState)
		}
		return s.audit.Append(txCtx, AuditEntry{
			EntityType: model.EntityPawah,
			EntityID:   project.ID,
			Action:     model.ActionAccept,
			OldStatus:  string(lifecycle.PawahOpen),
			NewStatus:  string(lifecycle.PawahAccepted),
			Actor:      actor,
		})
	})
	if err != nil {
		metrics.Transition(model.EntityPawah, model.ActionAccept, resultOf(err))
		return nil, failWith(s.log, err, "accept pawah project", zap.String("project_id", projectID.String()))
	}
	metrics.Transition(model.EntityPawah, model.ActionAccept, metrics.ResultOK)

	farmer := actor.ID
	project.FarmerID = &farmer
	project.Status = lifecycle.PawahAccepted

	s.dispatch.Notify(ctx, []uuid.UUID{project.OwnerID},
		"Your pawah project was accepted",
		fmt.Sprintf("A farmer has accepted %q. You can now coordinate through the project messages.", project.Title),
	)
	s.dispatch.Publish(ctx, events.Event{
		Type:       events.TypePawahAccepted,
		EntityType: model.EntityPawah,
		EntityID:   project.ID,
		Action:     model.ActionAccept,
		OldStatus:  string(lifecycle.PawahOpen),
		NewStatus:  string(lifecycle.PawahAccepted),
		ActorID:    actor.ptr(),
		Recipients: project.Participants(),
	})
	return project, nil
}

// Advance moves an accepted project to in_progress, completed or cancelled.
// Either participant may do so.
func (s *pawahService) Advance(ctx context.Context, actor Actor, projectID uuid.UUID, target lifecycle.PawahStatus) (*model.PawahProject, error) {
	ctx, span := tracing.Start(ctx, "PawahService.Advance")
	defer span.End()
	span.SetAttributes(attribute.String("pawah.id", projectID.String()), attribute.String("pawah.target", string(target)))

	if !lifecycle.IsAdvanceTarget(target) {
		metrics.Transition(model.EntityPawah, model.ActionStatusChange, metrics.ResultRejected)
		return nil, fmt.Errorf("%w: cannot advance a project to %q", ErrInvalidAction, target)
	}

	project, err := s.load(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	if !project.IsParticipant(actor.ID) {
		metrics.Transition(model.EntityPawah, model.ActionStatusChange, metrics.ResultRejected)
		return nil, fmt.Errorf("%w: only the owner or the farmer can update this project", ErrForbidden)
	}

	from := project.Status
	if !lifecycle.CanTransitionPawah(from, target) {
		metrics.Transition(model.EntityPawah, model.ActionStatusChange, metrics.ResultRejected)
		return nil, fmt.Errorf("%w: cannot move project from %s to %s", ErrInvalidState, from, target)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rows, err := s.projects.UpdateStatus(txCtx, project.ID, from, target)
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: project is no longer %s", ErrInvalidState, from)
		}
		return s.audit.Append(txCtx, AuditEntry{
			EntityType: model.EntityPawah,
			EntityID:   project.ID,
			Action:     model.ActionStatusChange,
			OldStatus:  string(from),
			NewStatus:  string(target),
			Actor:      actor,
		})
	})
	if err != nil {
		metrics.Transition(model.EntityPawah, model.ActionStatusChange, resultOf(err))
		return nil, failWith(s.log, err, "advance pawah project", zap.String("project_id", projectID.String()))
	}
	metrics.Transition(model.EntityPawah, model.ActionStatusChange, metrics.ResultOK)

	project.Status = target
	s.log.Info("pawah project status changed",
		zap.String("project_id", project.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)

	s.dispatch.Notify(ctx, project.Participants(),
		"Pawah project status updated",
		fmt.Sprintf("Project %q is now %s (was %s).", project.Title, target, from),
	)
	s.dispatch.Publish(ctx, events.Event{
		Type:       events.TypePawahStatusChanged,
		EntityType: model.EntityPawah,
		EntityID:   project.ID,
		Action:     model.ActionStatusChange,
		OldStatus:  string(from),
		NewStatus:  string(target),
		ActorID:    actor.ptr(),
		Recipients: project.Participants(),
	})
	return project, nil
}

func (s *pawahService) Start(ctx context.Context, actor Actor, projectID uuid.UUID) (*model.PawahProject, error) {
	return s.Advance(ctx, actor, projectID, lifecycle.PawahInProgress)
}

func (s *pawahService) Complete(ctx context.Context, actor Actor, projectID uuid.UUID) (*model.PawahProject, error) {
	return s.Advance(ctx, actor, projectID, lifecycle.PawahCompleted)
}

func (s *pawahService) Cancel(ctx context.Context, actor Actor, projectID uuid.UUID) (*model.PawahProject, error) {
	return s.Advance(ctx, actor, projectID, lifecycle.PawahCancelled)
}

func (s *pawahService) GetProject(ctx context.Context, actor Actor, projectID uuid.UUID) (*model.PawahProject, error) {
	return s.load(ctx, actor, projectID)
}

func (s *pawahService) Browse(ctx context.Context, filter repository.PawahFilter) ([]model.PawahProject, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 12
	}
	projects, total, err := s.projects.ListApproved(ctx, filter)
	if err != nil {
		return nil, 0, failWith(s.log, err, "browse pawah projects")
	}
	return projects, total, nil
}

// load fetches a project, answering NotFound when actor may not see it.
func (s *pawahService) load(ctx context.Context, actor Actor, projectID uuid.UUID) (*model.PawahProject, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, lookupErr("project", err)
	}
	if !s.guard.CanViewProject(actor, project) {
		return nil, fmt.Errorf("%w: project", ErrNotFound)
	}
	return project, nil
}
