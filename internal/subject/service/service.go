package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/auth"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/subject"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/subject/repository"
	appErrors "github.com/dugsihub/dugsihub/backend/go-services/pkg/errors"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/logger"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Input is the body of a create or update.
type Input struct {
	Name string `validate:"required,min=2,max=60"`
	Slug string `validate:"required,min=2,max=80,slug"`
	Desc string `validate:"max=300"`
}

// Service manages the subjects catalog. Reads are public; writes need
// auth.CapManageSubjects.
type Service struct {
	repo     repository.Repository
	validate *validator.Validate
}

func New(repo repository.Repository, validate *validator.Validate) *Service {
	if validate == nil {
		validate = validator.New()
	}
	_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return &Service{repo: repo, validate: validate}
}

func (s *Service) List(ctx context.Context) ([]subject.Subject, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInternal, err)
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, p *auth.Principal, in Input) (*subject.Subject, error) {
	if err := authorize(p); err != nil {
		return nil, err
	}
	in, err := s.check(in)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, &subject.Subject{Name: in.Name, Slug: in.Slug, Desc: in.Desc})
	if err != nil {
		return nil, mapRepoError(err)
	}
	logger.Infof("subjects: %s created %s (%s)", p.ID, created.Slug, created.ID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, p *auth.Principal, id string, in Input) (*subject.Subject, error) {
	if err := authorize(p); err != nil {
		return nil, err
	}
	in, err := s.check(in)
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, id, &subject.Subject{Name: in.Name, Slug: in.Slug, Desc: in.Desc})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, p *auth.Principal, id string) error {
	if err := authorize(p); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}
	logger.Infof("subjects: %s deleted %s", p.ID, id)
	return nil
}

func authorize(p *auth.Principal) error {
	if p == nil {
		return appErrors.ErrUnauthorized
	}
	if !p.Can(auth.CapManageSubjects) {
		return appErrors.ErrForbidden
	}
	return nil
}

func (s *Service) check(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Desc = strings.TrimSpace(in.Desc)
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return in, appErrors.Clone(appErrors.ErrValidation, describe(verrs[0]))
		}
		return in, appErrors.WrapAs(appErrors.ErrValidation, err)
	}
	return in, nil
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "slug":
		return "slug may only contain lowercase letters, digits and hyphens"
	}
	return field + " is invalid"
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "subject not found")
	case errors.Is(err, repository.ErrDuplicate):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "slug already in use")
	}
	return appErrors.WrapAs(appErrors.ErrInternal, err)
}
