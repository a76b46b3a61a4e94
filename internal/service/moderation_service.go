package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kelabpetani/internal/events"
	"kelabpetani/internal/metrics"
	"kelabpetani/internal/model"
	"kelabpetani/internal/repository"
	"kelabpetani/internal/tracing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReviewRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

type ModerationService interface {
	ReviewProduct(ctx context.Context, actor Actor, productID uuid.UUID, approve bool, reason string) (*model.Product, error)
	ReviewProject(ctx context.Context, actor Actor, projectID uuid.UUID, approve bool, reason string) (*model.PawahProject, error)
	PendingProducts(ctx context.Context, actor Actor) ([]model.Product, error)
	PendingProjects(ctx context.Context, actor Actor) ([]model.PawahProject, error)
	AllProducts(ctx context.Context, actor Actor) ([]model.Product, error)
	AllProjects(ctx context.Context, actor Actor) ([]model.PawahProject, error)
}

type moderationService struct {
	products  repository.ProductRepository
	projects  repository.PawahRepository
	audit     *AuditWriter
	txManager repository.TransactionManager
	dispatch  *Dispatcher
	guard     AccessGuard
	log       *zap.Logger
	now       func() time.Time
}

func NewModerationService(
	products repository.ProductRepository,
	projects repository.PawahRepository,
	audit *AuditWriter,
	txManager repository.TransactionManager,
	dispatch *Dispatcher,
	log *zap.Logger,
) ModerationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &moderationService{
		products:  products,
		projects:  projects,
		audit:     audit,
		txManager: txManager,
		dispatch:  dispatch,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// reviewTarget is the part of a listing or project a review decision touches.
type reviewTarget struct {
	entityType string
	id         uuid.UUID
	title      string
	submitter  uuid.UUID
	moderation *model.Moderation
	save       func(ctx context.Context) error
}

func (s *moderationService) ReviewProduct(ctx context.Context, actor Actor, productID uuid.UUID, approve bool, reason string) (*model.Product, error) {
	if err := s.guard.RequireAdmin(actor); err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, lookupErr("product", err)
	}

	err = s.review(ctx, actor, reviewTarget{
		entityType: model.EntityProduct,
		id:         product.ID,
		title:      product.Title,
		submitter:  product.SellerID,
		moderation: &product.Moderation,
		save:       func(txCtx context.Context) error { return s.products.SaveModeration(txCtx, product) },
	}, approve, reason)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *moderationService) ReviewProject(ctx context.Context, actor Actor, projectID uuid.UUID, approve bool, reason string) (*model.PawahProject, error) {
	if err := s.guard.RequireAdmin(actor); err != nil {
		return nil, err
	}
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, lookupErr("project", err)
	}

	err = s.review(ctx, actor, reviewTarget{
		entityType: model.EntityPawah,
		id:         project.ID,
		title:      project.Title,
		submitter:  project.OwnerID,
		moderation: &project.Moderation,
		save:       func(txCtx context.Context) error { return s.projects.SaveModeration(txCtx, project) },
	}, approve, reason)
	if err != nil {
		return nil, err
	}
	return project, nil
}

// review applies the decision, persists it with its audit row and tells the
// submitter. The moderation fields are restored if the write fails.
func (s *moderationService) review(ctx context.Context, actor Actor, t reviewTarget, approve bool, reason string) error {
	ctx, span := tracing.Start(ctx, "ModerationService.Review")
	defer span.End()

	reason = strings.TrimSpace(reason)
	action := model.ActionReject
	if approve {
		action = model.ActionApprove
	}

	before := *t.moderation
	if approve {
		t.moderation.Approve(actor.ptr(), s.now())
		reason = ""
	} else {
		t.moderation.Reject(actor.ptr(), reason, s.now())
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := t.save(txCtx); err != nil {
			return err
		}
		return s.audit.Append(txCtx, AuditEntry{
			EntityType: t.entityType,
			EntityID:   t.id,
			Action:     action,
			Actor:      actor,
			Meta:       reason,
		})
	})
	if err != nil {
		*t.moderation = before
		metrics.Transition(t.entityType, action, resultOf(err))
		return failWith(s.log, err, "review "+t.entityType, zap.String("id", t.id.String()))
	}
	metrics.Transition(t.entityType, action, metrics.ResultOK)

	subject := fmt.Sprintf("%q was approved", t.title)
	body := fmt.Sprintf("Your submission %q is now publicly visible.", t.title)
	if !approve {
		subject = fmt.Sprintf("%q was not approved", t.title)
		body = fmt.Sprintf("Your submission %q was rejected.", t.title)
		if reason != "" {
			body += " Reason: " + reason
		}
	}
	s.dispatch.Notify(ctx, []uuid.UUID{t.submitter}, subject, body)
	s.dispatch.Publish(ctx, events.Event{
		Type:       events.TypeReviewDecided,
		EntityType: t.entityType,
		EntityID:   t.id,
		Action:     action,
		ActorID:    actor.ptr(),
		Recipients: []uuid.UUID{t.submitter},
	})
	return nil
}

func (s *moderationService) PendingProducts(ctx context.Context, actor Actor) ([]model.Product, error) {
	if err := s.guard.RequireAdmin(actor); err != nil {
		return nil, err
	}
	products, err := s.products.ListPending(ctx)
	if err != nil {
		return nil, failWith(s.log, err, "list pending products")
	}
	return products, nil
}

func (s *moderationService) PendingProjects(ctx context.Context, actor Actor) ([]model.PawahProject, error) {
	if err := s.guard.RequireAdmin(actor); err != nil {
		return nil, err
	}
	projects, err := s.projects.ListPending(ctx)
	if err != nil {
		return nil, failWith(s.log, err, "list pending projects")
	}
	return projects, nil
}

func (s *moderationService) AllProducts(ctx context.Context, actor Actor) ([]model.Product, error) {
	if err := s.guard.RequireAdmin(actor); err != nil {
		return nil, err
	}
	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, failWith(s.log, err, "list products")
	}
	return products, nil
}

func (s *moderationService) AllProjects(ctx context.Context, actor Actor) ([]model.PawahProject, error) {
	if err := s.guard.RequireAdmin(actor); err != nil {
		return nil, err
	}
	projects, err := s.projects.ListAll(ctx)
	if err != nil {
		return nil, failWith(s.log, err, "list projects")
	}
	return projects, nil
}
