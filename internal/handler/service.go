package handler

import (
	"context"

	"github.com/imadegautama/simple-library/internal/model"
	"github.com/imadegautama/simple-library/internal/service"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go -package=service_mocks

type LoanService interface {
	GetLoan(ctx context.Context, id int64) (model.Loan, error)
	ListLoans(ctx context.Context) ([]model.Loan, error)
	ListLoansByMember(ctx context.Context, memberID int64, status model.Status) ([]model.Loan, error)
	CreateLoan(ctx context.Context, req model.CreateLoanRequest) (model.Loan, error)
	UpdateLoan(ctx context.Context, loanID int64, req model.UpdateLoanRequest) (model.Loan, error)
	ReturnLoan(ctx context.Context, loanID int64, req model.ReturnLoanRequest) (model.Loan, error)
	DeleteLoan(ctx context.Context, loanID int64) error
}

type BookService interface {
	GetBook(ctx context.Context, id int64) (model.Book, error)
	ListBooks(ctx context.Context, onlyAvailable bool) ([]model.Book, error)
	CreateBook(ctx context.Context, req model.BookRequest, cover *service.CoverUpload) (model.Book, error)
	UpdateBook(ctx context.Context, id int64, req model.BookRequest, cover *service.CoverUpload) (model.Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

type MemberService interface {
	GetMember(ctx context.Context, id int64) (model.Member, error)
	ListMembers(ctx context.Context) ([]model.Member, error)
	RegisterMember(ctx context.Context, req model.CreateMemberRequest) (model.Member, error)
	UpdateMember(ctx context.Context, id int64, req model.UpdateMemberRequest) (model.Member, error)
	DeleteMember(ctx context.Context, id int64) error
}

type StatsService interface {
	Summary(ctx context.Context) (model.Summary, error)
	RecordLoanEvent(ctx context.Context, msg model.LoanEventMsg, payload []byte) error
}

type Enqueuer interface {
	Enqueue(topic string, v any) error
}
