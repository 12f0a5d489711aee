package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/imadegautama/simple-library/internal/errs"
	"github.com/imadegautama/simple-library/internal/model"
	"github.com/imadegautama/simple-library/internal/repository"
)

type MemberService struct {
	log  *zap.Logger
	repo repository.Repository
}

func NewMemberService(repo repository.Repository, log *zap.Logger) *MemberService {
	return &MemberService{
		log:  log,
		repo: repo,
	}
}

func (s *MemberService) GetMember(ctx context.Context, id int64) (model.Member, error) {
	return s.repo.GetMember(ctx, id)
}

func (s *MemberService) ListMembers(ctx context.Context) ([]model.Member, error) {
	return s.repo.ListMembers(ctx)
}

// RegisterMember creates a borrower account; both staff entry and
// self-registration land here, the role is always member.
func (s *MemberService) RegisterMember(ctx context.Context, req model.CreateMemberRequest) (model.Member, error) {
	created, err := s.repo.CreateMember(ctx, model.Member{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Role:    model.RoleMember,
	})
	if err != nil {
		if errors.Is(err, errs.ErrDuplicate) {
			return model.Member{}, errs.Validationf("email", "email is already registered")
		}
		return model.Member{}, err
	}
	return created, nil
}

func (s *MemberService) UpdateMember(ctx context.Context, id int64, req model.UpdateMemberRequest) (model.Member, error) {
	current, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return model.Member{}, err
	}
	if current.Role != model.RoleMember {
		return model.Member{}, errors.WithMessage(errs.ErrStateConflict, "only member accounts can be edited here")
	}

	updated, err := s.repo.UpdateMember(ctx, model.Member{
		ID:      id,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		if errors.Is(err, errs.ErrDuplicate) {
			return model.Member{}, errs.Validationf("email", "email is already registered")
		}
		return model.Member{}, err
	}
	return updated, nil
}

func (s *MemberService) DeleteMember(ctx context.Context, id int64) error {
	current, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return err
	}
	if current.Role != model.RoleMember {
		return errors.WithMessage(errs.ErrStateConflict, "cannot delete a non-member account")
	}
	if err := s.repo.DeleteMember(ctx, id); err != nil {
		return err
	}
	s.log.Info("member deleted", zap.Int64("member_id", id))
	return nil
}
