package service

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/imadegautama/simple-library/internal/errs"
	"github.com/imadegautama/simple-library/internal/model"
	"github.com/imadegautama/simple-library/internal/repository"
)

// CoverStore is the file-store collaborator for book cover images.
type CoverStore interface {
	Save(ext string, src io.Reader) (string, error)
	Remove(name string) error
}

type BookService struct {
	log    *zap.Logger
	repo   repository.Repository
	covers CoverStore
}

func NewBookService(repo repository.Repository, covers CoverStore, log *zap.Logger) *BookService {
	return &BookService{
		log:    log,
		repo:   repo,
		covers: covers,
	}
}

// CoverUpload carries an optional uploaded cover image alongside a book
// create/update request.
type CoverUpload struct {
	Ext  string
	Data io.Reader
}

func (s *BookService) GetBook(ctx context.Context, id int64) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *BookService) ListBooks(ctx context.Context, onlyAvailable bool) ([]model.Book, error) {
	return s.repo.ListBooks(ctx, onlyAvailable)
}

func (s *BookService) CreateBook(ctx context.Context, req model.BookRequest, cover *CoverUpload) (model.Book, error) {
	if err := checkBookRequest(req); err != nil {
		return model.Book{}, err
	}

	var coverName *string
	if cover != nil {
		name, err := s.covers.Save(cover.Ext, cover.Data)
		if err != nil {
			return model.Book{}, err
		}
		coverName = &name
	}

	created, err := s.repo.CreateBook(ctx, model.Book{
		Title:       req.Title,
		Author:      req.Author,
		Publisher:   req.Publisher,
		Year:        req.Year,
		ISBN:        req.ISBN,
		Description: req.Description,
		Stock:       req.Stock,
		Cover:       coverName,
	})
	if err != nil {
		// the upload must not outlive a failed insert
		if coverName != nil {
			if rmErr := s.covers.Remove(*coverName); rmErr != nil {
				s.log.Warn("remove orphaned cover", zap.Error(rmErr))
			}
		}
		if errors.Is(err, errs.ErrDuplicate) {
			return model.Book{}, errs.Validationf("isbn", "a book with this ISBN already exists")
		}
		return model.Book{}, err
	}
	return created, nil
}

func (s *BookService) UpdateBook(ctx context.Context, id int64, req model.BookRequest, cover *CoverUpload) (model.Book, error) {
	if err := checkBookRequest(req); err != nil {
		return model.Book{}, err
	}

	current, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return model.Book{}, err
	}

	coverName := current.Cover
	var oldCover string
	switch {
	case req.RemoveCover:
		if current.Cover != nil {
			oldCover = *current.Cover
		}
		coverName = nil
	case cover != nil:
		name, err := s.covers.Save(cover.Ext, cover.Data)
		if err != nil {
			return model.Book{}, err
		}
		if current.Cover != nil {
			oldCover = *current.Cover
		}
		coverName = &name
	}

	updated, err := s.repo.UpdateBook(ctx, model.Book{
		ID:          id,
		Title:       req.Title,
		Author:      req.Author,
		Publisher:   req.Publisher,
		Year:        req.Year,
		ISBN:        req.ISBN,
		Description: req.Description,
		Stock:       req.Stock,
		Cover:       coverName,
	})
	if err != nil {
		if cover != nil && coverName != nil {
			if rmErr := s.covers.Remove(*coverName); rmErr != nil {
				s.log.Warn("remove orphaned cover", zap.Error(rmErr))
			}
		}
		if errors.Is(err, errs.ErrDuplicate) {
			return model.Book{}, errs.Validationf("isbn", "a book with this ISBN already exists")
		}
		return model.Book{}, err
	}

	if oldCover != "" {
		if err := s.covers.Remove(oldCover); err != nil {
			s.log.Warn("remove replaced cover", zap.Error(err))
		}
	}
	return updated, nil
}

// DeleteBook removes a book; the loan_line restrict constraint surfaces as
// ErrIntegrity when the book is still referenced by any loan.
func (s *BookService) DeleteBook(ctx context.Context, id int64) error {
	book, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteBook(ctx, id); err != nil {
		return err
	}
	if book.Cover != nil {
		if err := s.covers.Remove(*book.Cover); err != nil {
			s.log.Warn("remove cover of deleted book", zap.Error(err))
		}
	}
	return nil
}

func checkBookRequest(req model.BookRequest) error {
	verr := errs.NewValidation()
	if req.Year < 1900 || req.Year > time.Now().Year() {
		verr.Addf("year", "year must be between 1900 and %d", time.Now().Year())
	}
	if req.Stock < 0 {
		verr.Add("stock", "stock may not be negative")
	}
	if verr.Any() {
		return verr
	}
	return nil
}
