package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imadegautama/simple-library/internal/errs"
	"github.com/imadegautama/simple-library/internal/model"
	"github.com/imadegautama/simple-library/internal/repository"
	repo_mocks "github.com/imadegautama/simple-library/internal/repository/mocks"
	"github.com/imadegautama/simple-library/internal/service"
)

// passThroughTx makes WithinTx run its callback against the same mock, so a
// test can assert the calls made inside the transaction.
func passThroughTx(repo *repo_mocks.MockRepository) {
	repo.EXPECT().
		WithinTx(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, repository.Repository) error) error {
			return fn(ctx, repo)
		})
}

func newLoanService(t *testing.T) (*service.LoanService, *repo_mocks.MockRepository) {
	t.Helper()
	c := gomock.NewController(t)
	t.Cleanup(c.Finish)
	repo := repo_mocks.NewMockRepository(c)
	return service.NewLoanService(repo, zap.NewExample().Named("test")), repo
}

func TestComputeFine(t *testing.T) {
	t.Parallel()
	var tests = []struct {
		name       string
		returnDate model.Date
		dueDate    model.Date
		want       int64
	}{
		{
			name:       "on time",
			returnDate: model.NewDate(2026, time.March, 5),
			dueDate:    model.NewDate(2026, time.March, 5),
			want:       0,
		},
		{
			name:       "early",
			returnDate: model.NewDate(2026, time.March, 1),
			dueDate:    model.NewDate(2026, time.March, 5),
			want:       0,
		},
		{
			name:       "one day late",
			returnDate: model.NewDate(2026, time.March, 6),
			dueDate:    model.NewDate(2026, time.March, 5),
			want:       service.FinePerDayRate,
		},
		{
			name:       "five days late",
			returnDate: model.NewDate(2026, time.March, 10),
			dueDate:    model.NewDate(2026, time.March, 5),
			want:       5 * service.FinePerDayRate,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, service.ComputeFine(tt.returnDate, tt.dueDate))
		})
	}
}

func TestLoanService_CreateLoan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	member := model.Member{ID: 7, Name: "Gede", Role: model.RoleMember}
	loanDate := model.NewDate(2026, time.March, 1)
	dueDate := model.NewDate(2026, time.March, 8)

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		// the duplicated id collapses to one line
		req := model.CreateLoanRequest{
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			BookIDs:  []int64{1, 2, 2},
		}
		repo.EXPECT().GetMember(ctx, member.ID).Return(member, nil)
		repo.EXPECT().LockBooks(ctx, []int64{1, 2}).Return([]model.Book{
			{ID: 1, Title: "Go", Stock: 3},
			{ID: 2, Title: "SQL", Stock: 1},
		}, nil)
		repo.EXPECT().CountActiveLoans(ctx, member.ID, int64(0)).Return(1, nil)
		repo.EXPECT().InsertLoan(ctx, model.Loan{
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			Status:   model.StatusActive,
		}).Return(model.Loan{
			ID:       42,
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			Status:   model.StatusActive,
		}, nil)
		repo.EXPECT().InsertLoanLines(ctx, int64(42), []int64{1, 2}).Return(nil)
		repo.EXPECT().AdjustStock(ctx, int64(1), -1).Return(nil)
		repo.EXPECT().AdjustStock(ctx, int64(2), -1).Return(nil)

		loan, err := svc.CreateLoan(ctx, req)
		require.NoError(t, err)
		require.Equal(t, int64(42), loan.ID)
		require.Equal(t, []int64{1, 2}, loan.BookIDs)
		require.Equal(t, member.Name, loan.MemberName)
	})

	t.Run("err. member at the active loan cap", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		repo.EXPECT().GetMember(ctx, member.ID).Return(member, nil)
		repo.EXPECT().LockBooks(ctx, []int64{1}).Return([]model.Book{{ID: 1, Stock: 5}}, nil)
		repo.EXPECT().CountActiveLoans(ctx, member.ID, int64(0)).Return(3, nil)

		_, err := svc.CreateLoan(ctx, model.CreateLoanRequest{
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			BookIDs:  []int64{1},
		})
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "memberId")
	})

	t.Run("err. request would exceed the cap", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		repo.EXPECT().GetMember(ctx, member.ID).Return(member, nil)
		repo.EXPECT().LockBooks(ctx, []int64{1, 2}).Return([]model.Book{
			{ID: 1, Stock: 5}, {ID: 2, Stock: 5},
		}, nil)
		repo.EXPECT().CountActiveLoans(ctx, member.ID, int64(0)).Return(2, nil)

		_, err := svc.CreateLoan(ctx, model.CreateLoanRequest{
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			BookIDs:  []int64{1, 2},
		})
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "bookIds")
	})

	t.Run("err. stock exhausted", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		repo.EXPECT().GetMember(ctx, member.ID).Return(member, nil)
		repo.EXPECT().LockBooks(ctx, []int64{1}).Return([]model.Book{
			{ID: 1, Title: "Go", Stock: 0},
		}, nil)
		repo.EXPECT().CountActiveLoans(ctx, member.ID, int64(0)).Return(0, nil)

		_, err := svc.CreateLoan(ctx, model.CreateLoanRequest{
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			BookIDs:  []int64{1},
		})
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields["bookIds"][0], "stock is exhausted")
	})

	t.Run("err. unknown book", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		repo.EXPECT().GetMember(ctx, member.ID).Return(member, nil)
		repo.EXPECT().LockBooks(ctx, []int64{1, 99}).Return([]model.Book{
			{ID: 1, Stock: 2},
		}, nil)

		_, err := svc.CreateLoan(ctx, model.CreateLoanRequest{
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			BookIDs:  []int64{1, 99},
		})
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields["bookIds"][0], "99")
	})

	t.Run("err. member not found", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		repo.EXPECT().GetMember(ctx, int64(404)).Return(model.Member{}, errs.ErrNotFound)

		_, err := svc.CreateLoan(ctx, model.CreateLoanRequest{
			MemberID: 404,
			LoanDate: loanDate,
			DueDate:  dueDate,
			BookIDs:  []int64{1},
		})
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "memberId")
	})

	t.Run("err. staff cannot borrow", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		repo.EXPECT().GetMember(ctx, int64(9)).
			Return(model.Member{ID: 9, Role: model.RoleStaff}, nil)

		_, err := svc.CreateLoan(ctx, model.CreateLoanRequest{
			MemberID: 9,
			LoanDate: loanDate,
			DueDate:  dueDate,
			BookIDs:  []int64{1},
		})
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "memberId")
	})

	t.Run("err. due date not after loan date", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		repo.EXPECT().GetMember(ctx, member.ID).Return(member, nil)

		_, err := svc.CreateLoan(ctx, model.CreateLoanRequest{
			MemberID: member.ID,
			LoanDate: dueDate,
			DueDate:  loanDate,
			BookIDs:  []int64{1},
		})
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "dueDate")
	})
}

func TestLoanService_UpdateLoan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	member := model.Member{ID: 7, Name: "Gede", Role: model.RoleMember}
	loanDate := model.NewDate(2026, time.March, 1)
	dueDate := model.NewDate(2026, time.March, 8)
	const loanID = int64(42)

	t.Run("swap a book on an active loan", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		stored := model.Loan{ID: loanID, MemberID: member.ID, LoanDate: loanDate, DueDate: dueDate, Status: model.StatusActive}
		repo.EXPECT().GetLoanForUpdate(ctx, loanID).Return(stored, nil)
		repo.EXPECT().GetMember(ctx, member.ID).Return(member, nil)
		repo.EXPECT().LoanLineBookIDs(ctx, loanID).Return([]int64{1, 2}, nil)
		repo.EXPECT().CountActiveLoans(ctx, member.ID, loanID).Return(0, nil)
		repo.EXPECT().LockBooks(ctx, []int64{3}).Return([]model.Book{{ID: 3, Stock: 1}}, nil)
		repo.EXPECT().UpdateLoan(ctx, model.Loan{
			ID:       loanID,
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			Status:   model.StatusActive,
		}).Return(model.Loan{ID: loanID, MemberID: member.ID, Status: model.StatusActive}, nil)
		repo.EXPECT().DeleteLoanLines(ctx, loanID, []int64{1}).Return(nil)
		repo.EXPECT().AdjustStock(ctx, int64(1), +1).Return(nil)
		repo.EXPECT().InsertLoanLines(ctx, loanID, []int64{3}).Return(nil)
		repo.EXPECT().AdjustStock(ctx, int64(3), -1).Return(nil)

		loan, err := svc.UpdateLoan(ctx, loanID, model.UpdateLoanRequest{
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			Status:   string(model.StatusActive),
			BookIDs:  []int64{2, 3},
		})
		require.NoError(t, err)
		require.Equal(t, []int64{2, 3}, loan.BookIDs)
	})

	t.Run("mark returned derives the fine and releases stock", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		returnDate := model.NewDate(2026, time.March, 10)
		stored := model.Loan{ID: loanID, MemberID: member.ID, LoanDate: loanDate, DueDate: dueDate, Status: model.StatusActive}
		repo.EXPECT().GetLoanForUpdate(ctx, loanID).Return(stored, nil)
		repo.EXPECT().GetMember(ctx, member.ID).Return(member, nil)
		repo.EXPECT().LoanLineBookIDs(ctx, loanID).Return([]int64{1}, nil)
		repo.EXPECT().UpdateLoan(ctx, model.Loan{
			ID:         loanID,
			MemberID:   member.ID,
			LoanDate:   loanDate,
			DueDate:    dueDate,
			ReturnDate: &returnDate,
			Status:     model.StatusReturned,
			Fine:       2 * service.FinePerDayRate,
		}).Return(model.Loan{ID: loanID, Status: model.StatusReturned, Fine: 2 * service.FinePerDayRate}, nil)
		repo.EXPECT().AdjustStock(ctx, int64(1), +1).Return(nil)

		loan, err := svc.UpdateLoan(ctx, loanID, model.UpdateLoanRequest{
			MemberID:   member.ID,
			LoanDate:   loanDate,
			DueDate:    dueDate,
			ReturnDate: &returnDate,
			Status:     string(model.StatusReturned),
			BookIDs:    []int64{1},
		})
		require.NoError(t, err)
		require.Equal(t, 2*service.FinePerDayRate, loan.Fine)
	})

	t.Run("add then remove a book nets no stock change", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)

		stored := model.Loan{ID: loanID, MemberID: member.ID, LoanDate: loanDate, DueDate: dueDate, Status: model.StatusActive}
		updated := model.Loan{
			ID:       loanID,
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			Status:   model.StatusActive,
		}

		// first edit adds book 3
		passThroughTx(repo)
		repo.EXPECT().GetLoanForUpdate(ctx, loanID).Return(stored, nil)
		repo.EXPECT().GetMember(ctx, member.ID).Return(member, nil)
		repo.EXPECT().LoanLineBookIDs(ctx, loanID).Return([]int64{1}, nil)
		repo.EXPECT().CountActiveLoans(ctx, member.ID, loanID).Return(0, nil)
		repo.EXPECT().LockBooks(ctx, []int64{3}).Return([]model.Book{{ID: 3, Stock: 4}}, nil)
		repo.EXPECT().UpdateLoan(ctx, updated).Return(updated, nil)
		repo.EXPECT().InsertLoanLines(ctx, loanID, []int64{3}).Return(nil)
		repo.EXPECT().AdjustStock(ctx, int64(3), -1).Return(nil)

		_, err := svc.UpdateLoan(ctx, loanID, model.UpdateLoanRequest{
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			Status:   string(model.StatusActive),
			BookIDs:  []int64{1, 3},
		})
		require.NoError(t, err)

		// second edit drops it again, giving the copy back
		passThroughTx(repo)
		repo.EXPECT().GetLoanForUpdate(ctx, loanID).Return(stored, nil)
		repo.EXPECT().GetMember(ctx, member.ID).Return(member, nil)
		repo.EXPECT().LoanLineBookIDs(ctx, loanID).Return([]int64{1, 3}, nil)
		repo.EXPECT().UpdateLoan(ctx, updated).Return(updated, nil)
		repo.EXPECT().DeleteLoanLines(ctx, loanID, []int64{3}).Return(nil)
		repo.EXPECT().AdjustStock(ctx, int64(3), +1).Return(nil)

		loan, err := svc.UpdateLoan(ctx, loanID, model.UpdateLoanRequest{
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			Status:   string(model.StatusActive),
			BookIDs:  []int64{1},
		})
		require.NoError(t, err)
		require.Equal(t, []int64{1}, loan.BookIDs)
	})

	t.Run("err. edit would exceed the active loan cap", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		stored := model.Loan{ID: loanID, MemberID: member.ID, LoanDate: loanDate, DueDate: dueDate, Status: model.StatusActive}
		repo.EXPECT().GetLoanForUpdate(ctx, loanID).Return(stored, nil)
		repo.EXPECT().GetMember(ctx, member.ID).Return(member, nil)
		repo.EXPECT().LoanLineBookIDs(ctx, loanID).Return([]int64{1}, nil)
		repo.EXPECT().CountActiveLoans(ctx, member.ID, loanID).Return(2, nil)

		_, err := svc.UpdateLoan(ctx, loanID, model.UpdateLoanRequest{
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			Status:   string(model.StatusActive),
			BookIDs:  []int64{1, 3},
		})
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "bookIds")
	})

	t.Run("err. re-activating with no stock left", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		stored := model.Loan{ID: loanID, MemberID: member.ID, LoanDate: loanDate, DueDate: dueDate, Status: model.StatusReturned}
		repo.EXPECT().GetLoanForUpdate(ctx, loanID).Return(stored, nil)
		repo.EXPECT().GetMember(ctx, member.ID).Return(member, nil)
		repo.EXPECT().LoanLineBookIDs(ctx, loanID).Return([]int64{1}, nil)
		repo.EXPECT().LockBooks(ctx, []int64{1}).Return([]model.Book{
			{ID: 1, Title: "Go", Stock: 0},
		}, nil)

		_, err := svc.UpdateLoan(ctx, loanID, model.UpdateLoanRequest{
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			Status:   string(model.StatusActive),
			BookIDs:  []int64{1},
		})
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields["bookIds"][0], "cannot be re-issued")
	})

	t.Run("err. unknown status", func(t *testing.T) {
		t.Parallel()
		svc, _ := newLoanService(t)

		_, err := svc.UpdateLoan(ctx, loanID, model.UpdateLoanRequest{
			MemberID: member.ID,
			LoanDate: loanDate,
			DueDate:  dueDate,
			Status:   "lost",
			BookIDs:  []int64{1},
		})
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "status")
	})
}

func TestLoanService_ReturnLoan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	loanDate := model.NewDate(2026, time.March, 1)
	dueDate := model.NewDate(2026, time.March, 8)
	const loanID = int64(42)

	t.Run("late return pays per day", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		returnDate := model.NewDate(2026, time.March, 13)
		stored := model.Loan{ID: loanID, MemberID: 7, LoanDate: loanDate, DueDate: dueDate, Status: model.StatusActive}
		repo.EXPECT().GetLoanForUpdate(ctx, loanID).Return(stored, nil)
		repo.EXPECT().UpdateLoan(ctx, model.Loan{
			ID:         loanID,
			MemberID:   7,
			LoanDate:   loanDate,
			DueDate:    dueDate,
			ReturnDate: &returnDate,
			Status:     model.StatusReturned,
			Fine:       5 * service.FinePerDayRate,
		}).Return(model.Loan{ID: loanID, Status: model.StatusReturned, Fine: 5 * service.FinePerDayRate}, nil)
		repo.EXPECT().LoanLineBookIDs(ctx, loanID).Return([]int64{1, 2}, nil)
		repo.EXPECT().AdjustStock(ctx, int64(1), +1).Return(nil)
		repo.EXPECT().AdjustStock(ctx, int64(2), +1).Return(nil)

		loan, err := svc.ReturnLoan(ctx, loanID, model.ReturnLoanRequest{ReturnDate: returnDate})
		require.NoError(t, err)
		require.Equal(t, 5*service.FinePerDayRate, loan.Fine)
		require.Equal(t, []int64{1, 2}, loan.BookIDs)
	})

	t.Run("on time return has no fine", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		returnDate := model.NewDate(2026, time.March, 7)
		stored := model.Loan{ID: loanID, MemberID: 7, LoanDate: loanDate, DueDate: dueDate, Status: model.StatusActive}
		repo.EXPECT().GetLoanForUpdate(ctx, loanID).Return(stored, nil)
		repo.EXPECT().UpdateLoan(ctx, model.Loan{
			ID:         loanID,
			MemberID:   7,
			LoanDate:   loanDate,
			DueDate:    dueDate,
			ReturnDate: &returnDate,
			Status:     model.StatusReturned,
		}).Return(model.Loan{ID: loanID, Status: model.StatusReturned}, nil)
		repo.EXPECT().LoanLineBookIDs(ctx, loanID).Return([]int64{1}, nil)
		repo.EXPECT().AdjustStock(ctx, int64(1), +1).Return(nil)

		loan, err := svc.ReturnLoan(ctx, loanID, model.ReturnLoanRequest{ReturnDate: returnDate})
		require.NoError(t, err)
		require.Zero(t, loan.Fine)
	})

	t.Run("caller supplied fine is not recomputed", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		returnDate := model.NewDate(2026, time.March, 13)
		waived := int64(500)
		stored := model.Loan{ID: loanID, MemberID: 7, LoanDate: loanDate, DueDate: dueDate, Status: model.StatusActive}
		repo.EXPECT().GetLoanForUpdate(ctx, loanID).Return(stored, nil)
		repo.EXPECT().UpdateLoan(ctx, model.Loan{
			ID:         loanID,
			MemberID:   7,
			LoanDate:   loanDate,
			DueDate:    dueDate,
			ReturnDate: &returnDate,
			Status:     model.StatusReturned,
			Fine:       waived,
		}).Return(model.Loan{ID: loanID, Status: model.StatusReturned, Fine: waived}, nil)
		repo.EXPECT().LoanLineBookIDs(ctx, loanID).Return([]int64{1}, nil)
		repo.EXPECT().AdjustStock(ctx, int64(1), +1).Return(nil)

		loan, err := svc.ReturnLoan(ctx, loanID, model.ReturnLoanRequest{
			ReturnDate: returnDate,
			Fine:       &waived,
		})
		require.NoError(t, err)
		require.Equal(t, waived, loan.Fine)
	})

	t.Run("err. already returned", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		stored := model.Loan{ID: loanID, Status: model.StatusReturned}
		repo.EXPECT().GetLoanForUpdate(ctx, loanID).Return(stored, nil)

		_, err := svc.ReturnLoan(ctx, loanID, model.ReturnLoanRequest{
			ReturnDate: model.NewDate(2026, time.March, 7),
		})
		require.ErrorIs(t, err, errs.ErrStateConflict)
	})

	t.Run("err. missing return date", func(t *testing.T) {
		t.Parallel()
		svc, _ := newLoanService(t)

		_, err := svc.ReturnLoan(ctx, loanID, model.ReturnLoanRequest{})
		var verr *errs.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "returnDate")
	})
}

// TestLoanService_Lifecycle walks one loan through issue, late return and
// delete, asserting the stock movements at each step.
func TestLoanService_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc, repo := newLoanService(t)
	member := model.Member{ID: 7, Name: "Gede", Role: model.RoleMember}
	loanDate := model.NewDate(2026, time.March, 1)
	dueDate := model.NewDate(2026, time.March, 8)
	returnDate := model.NewDate(2026, time.March, 11)

	// issue
	passThroughTx(repo)
	repo.EXPECT().GetMember(ctx, member.ID).Return(member, nil)
	repo.EXPECT().LockBooks(ctx, []int64{1, 2}).Return([]model.Book{
		{ID: 1, Title: "Go", Stock: 1},
		{ID: 2, Title: "SQL", Stock: 2},
	}, nil)
	repo.EXPECT().CountActiveLoans(ctx, member.ID, int64(0)).Return(0, nil)
	repo.EXPECT().InsertLoan(ctx, gomock.Any()).Return(model.Loan{
		ID: 42, MemberID: member.ID, LoanDate: loanDate, DueDate: dueDate, Status: model.StatusActive,
	}, nil)
	repo.EXPECT().InsertLoanLines(ctx, int64(42), []int64{1, 2}).Return(nil)
	repo.EXPECT().AdjustStock(ctx, int64(1), -1).Return(nil)
	repo.EXPECT().AdjustStock(ctx, int64(2), -1).Return(nil)

	loan, err := svc.CreateLoan(ctx, model.CreateLoanRequest{
		MemberID: member.ID,
		LoanDate: loanDate,
		DueDate:  dueDate,
		BookIDs:  []int64{1, 2},
	})
	require.NoError(t, err)
	require.Equal(t, model.StatusActive, loan.Status)

	// return three days late
	passThroughTx(repo)
	repo.EXPECT().GetLoanForUpdate(ctx, int64(42)).Return(model.Loan{
		ID: 42, MemberID: member.ID, LoanDate: loanDate, DueDate: dueDate, Status: model.StatusActive,
	}, nil)
	repo.EXPECT().UpdateLoan(ctx, model.Loan{
		ID:         42,
		MemberID:   member.ID,
		LoanDate:   loanDate,
		DueDate:    dueDate,
		ReturnDate: &returnDate,
		Status:     model.StatusReturned,
		Fine:       3 * service.FinePerDayRate,
	}).Return(model.Loan{ID: 42, Status: model.StatusReturned, Fine: 3 * service.FinePerDayRate}, nil)
	repo.EXPECT().LoanLineBookIDs(ctx, int64(42)).Return([]int64{1, 2}, nil)
	repo.EXPECT().AdjustStock(ctx, int64(1), +1).Return(nil)
	repo.EXPECT().AdjustStock(ctx, int64(2), +1).Return(nil)

	returned, err := svc.ReturnLoan(ctx, 42, model.ReturnLoanRequest{ReturnDate: returnDate})
	require.NoError(t, err)
	require.Equal(t, 3*service.FinePerDayRate, returned.Fine)

	// delete the closed loan
	passThroughTx(repo)
	repo.EXPECT().GetLoanForUpdate(ctx, int64(42)).Return(model.Loan{
		ID: 42, Status: model.StatusReturned,
	}, nil)
	repo.EXPECT().DeleteLoan(ctx, int64(42)).Return(nil)

	require.NoError(t, svc.DeleteLoan(ctx, 42))
}

func TestLoanService_DeleteLoan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	const loanID = int64(42)

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		repo.EXPECT().GetLoanForUpdate(ctx, loanID).
			Return(model.Loan{ID: loanID, Status: model.StatusReturned}, nil)
		repo.EXPECT().DeleteLoan(ctx, loanID).Return(nil)

		require.NoError(t, svc.DeleteLoan(ctx, loanID))
	})

	t.Run("err. loan still active", func(t *testing.T) {
		t.Parallel()
		svc, repo := newLoanService(t)
		passThroughTx(repo)

		repo.EXPECT().GetLoanForUpdate(ctx, loanID).
			Return(model.Loan{ID: loanID, Status: model.StatusActive}, nil)

		err := svc.DeleteLoan(ctx, loanID)
		require.ErrorIs(t, err, errs.ErrStateConflict)
	})
}
