package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

type Role string

const (
	RoleMember Role = "member"
	RoleStaff  Role = "staff"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusReturned Status = "returned"
	StatusOverdue  Status = "overdue"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusReturned, StatusOverdue:
		return Status(s), nil
	}
	return "", errors.Errorf("unknown loan status %q", s)
}

// Date is a day-granular timestamp carried as "2006-01-02" over the wire
// and as a date column in postgres.
type Date struct {
	time.Time `json:",inline"`
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func Today() Date {
	y, m, d := time.Now().UTC().Date()
	return NewDate(y, m, d)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(d.Format(time.DateOnly))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return errors.Wrap(err, "date must be YYYY-MM-DD")
	}
	d.Time = t
	return nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		d.Time = time.Time{}
	case time.Time:
		d.Time = v
	case string:
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return err
		}
		d.Time = t
	default:
		return errors.Errorf("cannot scan %T into Date", src)
	}
	return nil
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time, nil
}

func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// DaysSince counts whole days from o to d; negative when d precedes o.
func (d Date) DaysSince(o Date) int {
	return int(d.Time.Sub(o.Time) / (24 * time.Hour))
}

type Member struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	Address   string    `json:"address" db:"address"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Book struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Author      string    `json:"author" db:"author"`
	Publisher   string    `json:"publisher" db:"publisher"`
	Year        int       `json:"year" db:"year"`
	ISBN        *string   `json:"isbn" db:"isbn"`
	Description string    `json:"description" db:"description"`
	Stock       int       `json:"stock" db:"stock"`
	Cover       *string   `json:"cover" db:"cover"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type Loan struct {
	ID         int64   `json:"id" db:"id"`
	MemberID   int64   `json:"memberId" db:"member_id"`
	MemberName string  `json:"memberName,omitempty" db:"member_name"`
	LoanDate   Date    `json:"loanDate" db:"loan_date"`
	DueDate    Date    `json:"dueDate" db:"due_date"`
	ReturnDate *Date   `json:"returnDate" db:"return_date"`
	Status     Status  `json:"status" db:"status"`
	Fine       int64   `json:"fine" db:"fine"`
	Note       string  `json:"note" db:"note"`
	CreatedBy  *int64  `json:"createdBy" db:"created_by"`
	BookIDs    []int64 `json:"bookIds" db:"-"`
}

// Overdue reports whether an active loan has passed its due date.
func (l Loan) Overdue(asOf Date) bool {
	return l.Status == StatusActive && asOf.After(l.DueDate)
}

type LoanLine struct {
	ID     int64 `json:"id" db:"id"`
	LoanID int64 `json:"loanId" db:"loan_id"`
	BookID int64 `json:"bookId" db:"book_id"`
}

type CreateMemberRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"max=15"`
	Address string `json:"address" validate:"max=500"`
}

type UpdateMemberRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"max=15"`
	Address string `json:"address" validate:"max=500"`
}

type BookRequest struct {
	Title       string  `json:"title" form:"title" validate:"required,max=255"`
	Author      string  `json:"author" form:"author" validate:"required,max=255"`
	Publisher   string  `json:"publisher" form:"publisher" validate:"required,max=255"`
	Year        int     `json:"year" form:"year" validate:"required,min=1900"`
	ISBN        *string `json:"isbn" form:"isbn"`
	Description string  `json:"description" form:"description"`
	Stock       int     `json:"stock" form:"stock" validate:"min=0"`
	RemoveCover bool    `json:"removeCover" form:"removeCover"`
}

type CreateLoanRequest struct {
	MemberID int64   `json:"memberId" validate:"required"`
	LoanDate Date    `json:"loanDate"`
	DueDate  Date    `json:"dueDate"`
	Note     string  `json:"note" validate:"max=1000"`
	BookIDs  []int64 `json:"bookIds" validate:"required,min=1"`

	CreatedBy *int64 `json:"-"`
}

type UpdateLoanRequest struct {
	MemberID   int64   `json:"memberId" validate:"required"`
	LoanDate   Date    `json:"loanDate"`
	DueDate    Date    `json:"dueDate"`
	ReturnDate *Date   `json:"returnDate"`
	Status     string  `json:"status" validate:"required"`
	Fine       *int64  `json:"fine" validate:"omitempty,min=0"`
	Note       string  `json:"note" validate:"max=1000"`
	BookIDs    []int64 `json:"bookIds" validate:"required,min=1"`
}

type ReturnLoanRequest struct {
	ReturnDate Date   `json:"returnDate"`
	Fine       *int64 `json:"fine" validate:"omitempty,min=0"`
}

type LoanEvent struct {
	ID         int64     `json:"id" db:"id"`
	LoanID     int64     `json:"loanId" db:"loan_id"`
	MemberID   int64     `json:"memberId" db:"member_id"`
	EventType  string    `json:"eventType" db:"event_type"`
	Payload    []byte    `json:"-" db:"payload"`
	OccurredAt time.Time `json:"occurredAt" db:"occurred_at"`
}

const (
	EventLoanCreated  = "loan.created"
	EventLoanUpdated  = "loan.updated"
	EventLoanReturned = "loan.returned"
	EventLoanDeleted  = "loan.deleted"
)

// LoanEventMsg is the kafka wire format for loan lifecycle events.
type LoanEventMsg struct {
	LoanID    int64     `json:"loanId"`
	MemberID  int64     `json:"memberId"`
	EventType string    `json:"eventType"`
	BookIDs   []int64   `json:"bookIds,omitempty"`
	At        time.Time `json:"at"`
}

type StatusCount struct {
	Status Status `json:"status" db:"status"`
	Count  int    `json:"count" db:"count"`
}

type StockStats struct {
	TotalBooks     int `json:"totalBooks" db:"total_books"`
	TotalStock     int `json:"totalStock" db:"total_stock"`
	BooksAvailable int `json:"booksAvailable" db:"books_available"`
	BooksExhausted int `json:"booksExhausted" db:"books_exhausted"`
}

type BookCount struct {
	Title  string `json:"title" db:"title"`
	Author string `json:"author" db:"author"`
	Count  int    `json:"count" db:"count"`
}

type MemberCount struct {
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	Count int    `json:"count" db:"count"`
}

type Summary struct {
	TotalMembers  int           `json:"totalMembers"`
	StatusCounts  []StatusCount `json:"statusCounts"`
	OverdueLoans  int           `json:"overdueLoans"`
	FineTotal     int64         `json:"fineTotal"`
	Stock         StockStats    `json:"stock"`
	LoansToday    int           `json:"loansToday"`
	ReturnsToday  int           `json:"returnsToday"`
	LoansThisWeek int           `json:"loansThisWeek"`
	TopBooks      []BookCount   `json:"topBooks"`
	ActiveMembers []MemberCount `json:"activeMembers"`
	Recent        []LoanEvent   `json:"recent"`
}
