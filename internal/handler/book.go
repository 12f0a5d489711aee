package handler

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/imadegautama/simple-library/internal/model"
	"github.com/imadegautama/simple-library/internal/service"
)

const maxCoverBytes = 5 << 20 // 5MB

func (h *Handler) ListBooks(c echo.Context) error {
	var onlyAvailable bool
	if availParam := c.QueryParam("available"); availParam != "" {
		parsed, err := strconv.ParseBool(availParam)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.New("available is invalid"))
		}
		onlyAvailable = parsed
	}

	books, err := h.bookSvc.ListBooks(c.Request().Context(), onlyAvailable)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) GetBook(c echo.Context) error {
	bookID, err := paramID(c, "bookId")
	if err != nil {
		return err
	}
	book, err := h.bookSvc.GetBook(c.Request().Context(), bookID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) CreateBook(c echo.Context) error {
	var req model.BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cover, closeCover, err := coverUpload(c)
	if err != nil {
		return err
	}
	defer closeCover()

	book, err := h.bookSvc.CreateBook(c.Request().Context(), req, cover)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) UpdateBook(c echo.Context) error {
	bookID, err := paramID(c, "bookId")
	if err != nil {
		return err
	}
	var req model.BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cover, closeCover, err := coverUpload(c)
	if err != nil {
		return err
	}
	defer closeCover()

	book, err := h.bookSvc.UpdateBook(c.Request().Context(), bookID, req, cover)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, book)
}

func (h *Handler) DeleteBook(c echo.Context) error {
	bookID, err := paramID(c, "bookId")
	if err != nil {
		return err
	}
	if err := h.bookSvc.DeleteBook(c.Request().Context(), bookID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// coverUpload extracts the optional multipart cover image; the returned
// closer is a no-op when no file was sent.
func coverUpload(c echo.Context) (*service.CoverUpload, func(), error) {
	noop := func() {}
	fh, err := c.FormFile("cover")
	if err != nil || fh == nil {
		return nil, noop, nil
	}
	if fh.Size > maxCoverBytes {
		return nil, noop, echo.NewHTTPError(http.StatusBadRequest, "cover may not exceed 5MB")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	switch ext {
	case ".jpeg", ".jpg", ".png", ".webp":
	default:
		return nil, noop, echo.NewHTTPError(http.StatusBadRequest, "cover must be a jpeg, jpg, png or webp image")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return &service.CoverUpload{Ext: ext, Data: f}, func() { _ = f.Close() }, nil
}
