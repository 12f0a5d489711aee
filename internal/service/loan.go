package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/imadegautama/simple-library/internal/errs"
	"github.com/imadegautama/simple-library/internal/model"
	"github.com/imadegautama/simple-library/internal/repository"
)

// MaxActiveLoans caps how many loans a member may have out at once.
const MaxActiveLoans = 3

// FinePerDayRate is the fixed fine per overdue day, in currency units.
const FinePerDayRate int64 = 1000

type LoanService struct {
	log  *zap.Logger
	repo repository.Repository
}

func NewLoanService(repo repository.Repository, log *zap.Logger) *LoanService {
	return &LoanService{
		log:  log,
		repo: repo,
	}
}

func OverdueDays(returnDate, dueDate model.Date) int {
	days := returnDate.DaysSince(dueDate)
	if days < 0 {
		return 0
	}
	return days
}

func ComputeFine(returnDate, dueDate model.Date) int64 {
	return int64(OverdueDays(returnDate, dueDate)) * FinePerDayRate
}

func (s *LoanService) GetLoan(ctx context.Context, id int64) (model.Loan, error) {
	return s.repo.GetLoan(ctx, id)
}

func (s *LoanService) ListLoans(ctx context.Context) ([]model.Loan, error) {
	return s.repo.ListLoans(ctx)
}

func (s *LoanService) ListLoansByMember(ctx context.Context, memberID int64, status model.Status) ([]model.Loan, error) {
	return s.repo.ListLoansByMember(ctx, memberID, status)
}

// CreateLoan issues a loan for a set of books. All checks and mutations run
// in one transaction with the book rows locked, so a concurrent request
// cannot observe stock between check and commit. Any failure leaves no
// partial state behind.
func (s *LoanService) CreateLoan(ctx context.Context, req model.CreateLoanRequest) (model.Loan, error) {
	bookIDs := dedupeIDs(req.BookIDs)

	var loan model.Loan
	err := s.repo.WithinTx(ctx, func(ctx context.Context, r repository.Repository) error {
		member, err := s.checkBorrower(ctx, r, req.MemberID)
		if err != nil {
			return err
		}
		if err := checkDates(req.LoanDate, req.DueDate); err != nil {
			return err
		}
		if len(bookIDs) == 0 {
			return errs.Validationf("bookIds", "at least one book must be selected")
		}

		books, err := r.LockBooks(ctx, bookIDs)
		if err != nil {
			return err
		}
		if verr := checkBooksExist(bookIDs, books); verr != nil {
			return verr
		}

		active, err := r.CountActiveLoans(ctx, member.ID, 0)
		if err != nil {
			return err
		}
		if active >= MaxActiveLoans {
			return errs.Validationf("memberId",
				"member already has %d active loans and has not returned them", active)
		}
		if active+len(bookIDs) > MaxActiveLoans {
			return errs.Validationf("bookIds",
				"total active loans may not exceed %d; member already has %d", MaxActiveLoans, active)
		}

		if verr := checkBooksInStock(books); verr != nil {
			return verr
		}

		loan, err = r.InsertLoan(ctx, model.Loan{
			MemberID:  member.ID,
			LoanDate:  req.LoanDate,
			DueDate:   req.DueDate,
			Status:    model.StatusActive,
			Fine:      0,
			Note:      req.Note,
			CreatedBy: req.CreatedBy,
		})
		if err != nil {
			return err
		}
		if err := r.InsertLoanLines(ctx, loan.ID, bookIDs); err != nil {
			return err
		}
		for _, bookID := range bookIDs {
			if err := r.AdjustStock(ctx, bookID, -1); err != nil {
				return err
			}
		}
		loan.BookIDs = bookIDs
		loan.MemberName = member.Name
		return nil
	})
	if err != nil {
		return model.Loan{}, err
	}

	s.log.Info("loan created",
		zap.Int64("loan_id", loan.ID),
		zap.Int64("member_id", loan.MemberID),
		zap.Int("books", len(loan.BookIDs)))
	return loan, nil
}

// UpdateLoan reconciles the stored book set and status against the requested
// ones. Stock deltas are conditioned on the status stored before the edit:
//
//   - lines removed release stock only while the stored status is active
//   - lines added take stock only when the requested status is active
//   - active -> returned releases stock for the books kept on the loan
//   - returned -> active re-takes stock for the books kept on the loan,
//     and fails the whole edit when any of them is out of stock
func (s *LoanService) UpdateLoan(ctx context.Context, loanID int64, req model.UpdateLoanRequest) (model.Loan, error) {
	newStatus, err := model.ParseStatus(req.Status)
	if err != nil {
		return model.Loan{}, errs.Validationf("status", "status must be one of active, returned, overdue")
	}
	newIDs := dedupeIDs(req.BookIDs)

	var loan model.Loan
	err = s.repo.WithinTx(ctx, func(ctx context.Context, r repository.Repository) error {
		stored, err := r.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return err
		}

		member, err := s.checkBorrower(ctx, r, req.MemberID)
		if err != nil {
			return err
		}
		if err := checkDates(req.LoanDate, req.DueDate); err != nil {
			return err
		}
		if req.ReturnDate != nil && !req.ReturnDate.IsZero() && req.LoanDate.After(*req.ReturnDate) {
			return errs.Validationf("returnDate", "return date may not precede the loan date")
		}
		if len(newIDs) == 0 {
			return errs.Validationf("bookIds", "at least one book must be selected")
		}

		oldIDs, err := r.LoanLineBookIDs(ctx, loanID)
		if err != nil {
			return err
		}
		added := diffIDs(newIDs, oldIDs)
		removed := diffIDs(oldIDs, newIDs)
		carried := diffIDs(newIDs, added)

		returnDate := req.ReturnDate
		fine := req.Fine
		if newStatus == model.StatusReturned {
			if returnDate == nil || returnDate.IsZero() {
				today := model.Today()
				returnDate = &today
			}
			if fine == nil {
				derived := ComputeFine(*returnDate, req.DueDate)
				fine = &derived
			}
		}
		if fine == nil {
			kept := stored.Fine
			fine = &kept
		}

		if len(added) > 0 {
			otherActive, err := r.CountActiveLoans(ctx, member.ID, loanID)
			if err != nil {
				return err
			}
			if otherActive+len(newIDs) > MaxActiveLoans {
				return errs.Validationf("bookIds",
					"total active loans may not exceed %d; member already has %d other loans",
					MaxActiveLoans, otherActive)
			}

			books, err := r.LockBooks(ctx, added)
			if err != nil {
				return err
			}
			if verr := checkBooksExist(added, books); verr != nil {
				return verr
			}
			if newStatus == model.StatusActive {
				if verr := checkBooksInStock(books); verr != nil {
					return verr
				}
			}
		}

		// Re-activating a returned loan takes stock back for the carried
		// books; an exhausted book rejects the edit rather than silently
		// skipping it.
		if stored.Status == model.StatusReturned && newStatus == model.StatusActive && len(carried) > 0 {
			books, err := r.LockBooks(ctx, carried)
			if err != nil {
				return err
			}
			verr := errs.NewValidation()
			for _, b := range books {
				if b.Stock <= 0 {
					verr.Addf("bookIds", "book %q cannot be re-issued, no stock left", b.Title)
				}
			}
			if verr.Any() {
				return verr
			}
		}

		loan, err = r.UpdateLoan(ctx, model.Loan{
			ID:         loanID,
			MemberID:   member.ID,
			LoanDate:   req.LoanDate,
			DueDate:    req.DueDate,
			ReturnDate: returnDate,
			Status:     newStatus,
			Fine:       *fine,
			Note:       req.Note,
		})
		if err != nil {
			return err
		}

		if len(removed) > 0 {
			if err := r.DeleteLoanLines(ctx, loanID, removed); err != nil {
				return err
			}
			if stored.Status == model.StatusActive {
				for _, bookID := range removed {
					if err := r.AdjustStock(ctx, bookID, +1); err != nil {
						return err
					}
				}
			}
		}
		if len(added) > 0 {
			if err := r.InsertLoanLines(ctx, loanID, added); err != nil {
				return err
			}
			if newStatus == model.StatusActive {
				for _, bookID := range added {
					if err := r.AdjustStock(ctx, bookID, -1); err != nil {
						return err
					}
				}
			}
		}
		if stored.Status == model.StatusActive && newStatus == model.StatusReturned {
			for _, bookID := range carried {
				if err := r.AdjustStock(ctx, bookID, +1); err != nil {
					return err
				}
			}
		}
		if stored.Status == model.StatusReturned && newStatus == model.StatusActive {
			for _, bookID := range carried {
				if err := r.AdjustStock(ctx, bookID, -1); err != nil {
					return err
				}
			}
		}

		loan.BookIDs = newIDs
		loan.MemberName = member.Name
		return nil
	})
	if err != nil {
		return model.Loan{}, err
	}

	s.log.Info("loan updated",
		zap.Int64("loan_id", loan.ID),
		zap.String("status", string(loan.Status)))
	return loan, nil
}

// ReturnLoan closes an active loan and releases every borrowed copy. The
// fine is derived from the due date unless the caller supplies one.
func (s *LoanService) ReturnLoan(ctx context.Context, loanID int64, req model.ReturnLoanRequest) (model.Loan, error) {
	if req.ReturnDate.IsZero() {
		return model.Loan{}, errs.Validationf("returnDate", "return date is required")
	}

	var loan model.Loan
	err := s.repo.WithinTx(ctx, func(ctx context.Context, r repository.Repository) error {
		stored, err := r.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if stored.Status != model.StatusActive {
			return errors.WithMessage(errs.ErrStateConflict, "loan is already returned or cancelled")
		}

		fine := ComputeFine(req.ReturnDate, stored.DueDate)
		if req.Fine != nil {
			fine = *req.Fine
		}

		returnDate := req.ReturnDate
		loan, err = r.UpdateLoan(ctx, model.Loan{
			ID:         loanID,
			MemberID:   stored.MemberID,
			LoanDate:   stored.LoanDate,
			DueDate:    stored.DueDate,
			ReturnDate: &returnDate,
			Status:     model.StatusReturned,
			Fine:       fine,
			Note:       stored.Note,
		})
		if err != nil {
			return err
		}

		bookIDs, err := r.LoanLineBookIDs(ctx, loanID)
		if err != nil {
			return err
		}
		for _, bookID := range bookIDs {
			if err := r.AdjustStock(ctx, bookID, +1); err != nil {
				return err
			}
		}
		loan.BookIDs = bookIDs
		return nil
	})
	if err != nil {
		return model.Loan{}, err
	}

	s.log.Info("loan returned",
		zap.Int64("loan_id", loan.ID),
		zap.Int64("fine", loan.Fine))
	return loan, nil
}

// DeleteLoan removes a finished loan and its lines. Stock was already
// reconciled when the loan left the active status, so none is adjusted here.
func (s *LoanService) DeleteLoan(ctx context.Context, loanID int64) error {
	return s.repo.WithinTx(ctx, func(ctx context.Context, r repository.Repository) error {
		stored, err := r.GetLoanForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		if stored.Status == model.StatusActive {
			return errors.WithMessage(errs.ErrStateConflict,
				"cannot delete an active loan, return the books first")
		}
		return r.DeleteLoan(ctx, loanID)
	})
}

func (s *LoanService) checkBorrower(ctx context.Context, r repository.Repository, memberID int64) (model.Member, error) {
	member, err := r.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.Member{}, errs.Validationf("memberId", "selected member does not exist")
		}
		return model.Member{}, err
	}
	if member.Role != model.RoleMember {
		return model.Member{}, errs.Validationf("memberId", "selected user is not a borrowing member")
	}
	return member, nil
}

func checkDates(loanDate, dueDate model.Date) error {
	if loanDate.IsZero() {
		return errs.Validationf("loanDate", "loan date is required")
	}
	if !dueDate.After(loanDate) {
		return errs.Validationf("dueDate", "due date must be after the loan date")
	}
	return nil
}

func checkBooksExist(wanted []int64, found []model.Book) *errs.ValidationError {
	if len(found) == len(wanted) {
		return nil
	}
	known := make(map[int64]struct{}, len(found))
	for _, b := range found {
		known[b.ID] = struct{}{}
	}
	verr := errs.NewValidation()
	for _, id := range wanted {
		if _, ok := known[id]; !ok {
			verr.Addf("bookIds", "book with id %d does not exist", id)
		}
	}
	if !verr.Any() {
		return nil
	}
	return verr
}

func checkBooksInStock(books []model.Book) *errs.ValidationError {
	verr := errs.NewValidation()
	for _, b := range books {
		if b.Stock <= 0 {
			verr.Addf("bookIds", "book %q is not available, stock is exhausted", b.Title)
		}
	}
	if !verr.Any() {
		return nil
	}
	return verr
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// diffIDs returns the elements of a that are not in b, preserving order.
func diffIDs(a, b []int64) []int64 {
	inB := make(map[int64]struct{}, len(b))
	for _, id := range b {
		inB[id] = struct{}{}
	}
	var out []int64
	for _, id := range a {
		if _, ok := inB[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
