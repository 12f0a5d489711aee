package service_test

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imadegautama/simple-library/internal/errs"
	"github.com/imadegautama/simple-library/internal/model"
	repo_mocks "github.com/imadegautama/simple-library/internal/repository/mocks"
	"github.com/imadegautama/simple-library/internal/service"
)

func newMemberService(t *testing.T) (*service.MemberService, *repo_mocks.MockRepository) {
	t.Helper()
	c := gomock.NewController(t)
	t.Cleanup(c.Finish)
	repo := repo_mocks.NewMockRepository(c)
	return service.NewMemberService(repo, zap.NewExample().Named("test")), repo
}

func TestMemberService_RegisterMember(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	req := model.CreateMemberRequest{
		Name:  "Gede",
		Email: "gede@example.com",
		Phone: "0812345678",
	}

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		svc, repo := newMemberService(t)

		repo.EXPECT().
			CreateMember(ctx, model.Member{
				Name:  req.Name,
				Email: req.Email,
				Phone: req.Phone,
				Role:  model.RoleMember,
			}).
			Return(model.Member{ID: 7, Name: req.Name, Email: req.Email, Role: model.RoleMember}, nil)

		member, err := svc.RegisterMember(ctx, req)
		require.NoError(t, err)
		require.Equal(t, int64(7), member.ID)
		require.Equal(t, model.RoleMember, member.Role)
	})

	t.Run("err. email taken", func(t *testing.T) {
		t.Parallel()
		svc, repo := newMemberService(t)

		repo.EXPECT().CreateMember(ctx, gomock.Any()).Return(model.Member{}, errs.ErrDuplicate)

		_, err := svc.RegisterMember(ctx, req)
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "email")
	})
}

func TestMemberService_UpdateMember(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	req := model.UpdateMemberRequest{Name: "Gede", Email: "gede@example.com"}

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		svc, repo := newMemberService(t)

		repo.EXPECT().GetMember(ctx, int64(7)).Return(model.Member{ID: 7, Role: model.RoleMember}, nil)
		repo.EXPECT().
			UpdateMember(ctx, model.Member{ID: 7, Name: req.Name, Email: req.Email}).
			Return(model.Member{ID: 7, Name: req.Name, Email: req.Email, Role: model.RoleMember}, nil)

		member, err := svc.UpdateMember(ctx, 7, req)
		require.NoError(t, err)
		require.Equal(t, req.Name, member.Name)
	})

	t.Run("err. staff account", func(t *testing.T) {
		t.Parallel()
		svc, repo := newMemberService(t)

		repo.EXPECT().GetMember(ctx, int64(9)).Return(model.Member{ID: 9, Role: model.RoleStaff}, nil)

		_, err := svc.UpdateMember(ctx, 9, req)
		require.ErrorIs(t, err, errs.ErrStateConflict)
	})
}

func TestMemberService_DeleteMember(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		svc, repo := newMemberService(t)

		repo.EXPECT().GetMember(ctx, int64(7)).Return(model.Member{ID: 7, Role: model.RoleMember}, nil)
		repo.EXPECT().DeleteMember(ctx, int64(7)).Return(nil)

		require.NoError(t, svc.DeleteMember(ctx, 7))
	})

	t.Run("err. member has loans", func(t *testing.T) {
		t.Parallel()
		svc, repo := newMemberService(t)

		repo.EXPECT().GetMember(ctx, int64(7)).Return(model.Member{ID: 7, Role: model.RoleMember}, nil)
		repo.EXPECT().DeleteMember(ctx, int64(7)).Return(errs.ErrIntegrity)

		err := svc.DeleteMember(ctx, 7)
		require.ErrorIs(t, err, errs.ErrIntegrity)
	})

	t.Run("err. staff account", func(t *testing.T) {
		t.Parallel()
		svc, repo := newMemberService(t)

		repo.EXPECT().GetMember(ctx, int64(9)).Return(model.Member{ID: 9, Role: model.RoleStaff}, nil)

		err := svc.DeleteMember(ctx, 9)
		require.ErrorIs(t, err, errs.ErrStateConflict)
	})
}
