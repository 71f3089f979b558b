package service

import (
	"context"
	"errors"
	"strings"
	"time"

	govalidator "github.com/go-playground/validator/v10"

	promotionserrors "pedalo/internal/promotions/errors"
	"pedalo/internal/promotions/repository"
	"pedalo/pkg/config"
	apperrors "pedalo/pkg/errors"
	"pedalo/pkg/model"
)

type PromotionService interface {
	Create(ctx context.Context, promotion *model.Promotion) error
	GetByID(ctx context.Context, id string) (*model.Promotion, error)
	GetByCode(ctx context.Context, code string) (*model.Promotion, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Promotion, error)
	Deactivate(ctx context.Context, id string) error

	// CountUse records one use against the global cap; false means the
	// cap is already reached.
	CountUse(ctx context.Context, id string) (bool, error)

	// ReleaseUse reverses one counted use.
	ReleaseUse(ctx context.Context, id string) error
}

type promotionService struct {
	repo     repository.PromotionRepository
	validate *govalidator.Validate
	cfg      *config.Config
}

func NewPromotionService(repo repository.PromotionRepository, cfg *config.Config) PromotionService {
	return &promotionService{
		repo:     repo,
		validate: govalidator.New(),
		cfg:      cfg,
	}
}

func (s *promotionService) Create(ctx context.Context, promotion *model.Promotion) error {
	promotion.Code = strings.ToUpper(strings.TrimSpace(promotion.Code))
	promotion.UsageCount = 0
	promotion.Active = true

	if err := s.validate.Struct(promotion); err != nil {
		return apperrors.Validation("promotion failed validation", validationDetails(err))
	}
	if promotion.DiscountType == model.DiscountPercentage && promotion.DiscountValue > 100 {
		return apperrors.InvalidInput("percentage discount cannot exceed 100")
	}
	if !promotion.ValidTill.After(time.Now().UTC()) {
		return apperrors.InvalidInput("promotion validity window is already over")
	}

	if err := s.repo.Create(ctx, promotion); err != nil {
		if errors.Is(err, promotionserrors.ErrCodeTaken) {
			return apperrors.Conflict("promotion code '" + promotion.Code + "' already exists")
		}
		return apperrors.Internal("failed to create promotion", err)
	}

	s.cfg.Log.Info("promotion created",
		"id", promotion.ID,
		"code", promotion.Code,
		"discount_type", promotion.DiscountType,
		"max_usage_count", promotion.MaxUsageCount,
	)
	return nil
}

func (s *promotionService) GetByID(ctx context.Context, id string) (*model.Promotion, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("promotion ID cannot be empty")
	}
	promotion, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, id)
	}
	return promotion, nil
}

func (s *promotionService) GetByCode(ctx context.Context, code string) (*model.Promotion, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperrors.InvalidInput("promotion code cannot be empty")
	}
	promotion, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, mapLookupError(err, code)
	}
	return promotion, nil
}

func (s *promotionService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Promotion, error) {
	promotions, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.Internal("failed to list promotions", err)
	}
	return promotions, nil
}

func (s *promotionService) Deactivate(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("promotion ID cannot be empty")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return mapLookupError(err, id)
	}
	s.cfg.Log.Info("promotion deactivated", "id", id)
	return nil
}

func (s *promotionService) CountUse(ctx context.Context, id string) (bool, error) {
	counted, err := s.repo.IncrementUsage(ctx, id)
	if err != nil {
		return false, apperrors.Internal("failed to record promotion usage", err)
	}
	return counted, nil
}

func (s *promotionService) ReleaseUse(ctx context.Context, id string) error {
	if err := s.repo.DecrementUsage(ctx, id); err != nil {
		return apperrors.Internal("failed to release promotion usage", err)
	}
	return nil
}

func mapLookupError(err error, ref string) error {
	switch {
	case errors.Is(err, promotionserrors.ErrNotFound):
		return apperrors.NotFoundWithID("promotion", ref)
	case errors.Is(err, promotionserrors.ErrInvalidID):
		return apperrors.InvalidInput("invalid promotion ID: " + ref)
	default:
		return apperrors.Internal("failed to load promotion", err)
	}
}

func validationDetails(err error) map[string]any {
	details := make(map[string]any)
	var verrs govalidator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return details
}
