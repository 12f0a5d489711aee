package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/imadegautama/simple-library/internal/errs"
	md "github.com/imadegautama/simple-library/pkg/middleware"
	"github.com/imadegautama/simple-library/pkg/validate"
)

type Handler struct {
	loanSvc   LoanService
	bookSvc   BookService
	memberSvc MemberService
	statsSvc  StatsService
	enqueuer  Enqueuer
	log       *zap.Logger
}

func New(log *zap.Logger, loanSvc LoanService, bookSvc BookService, memberSvc MemberService, statsSvc StatsService, enqueuer Enqueuer) *Handler {
	h := &Handler{
		loanSvc:   loanSvc,
		bookSvc:   bookSvc,
		memberSvc: memberSvc,
		statsSvc:  statsSvc,
		enqueuer:  enqueuer,
		log:       log,
	}
	return h
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.POST("/register", h.RegisterMember)

	authed := api.Group("", md.JwtAuthentication)
	authed.GET("/my/loans", h.MyLoans)
	authed.GET("/books", h.ListBooks)
	authed.GET("/books/:bookId", h.GetBook)

	staff := authed.Group("", md.RequireStaff)
	staff.POST("/books", h.CreateBook)
	staff.PUT("/books/:bookId", h.UpdateBook)
	staff.DELETE("/books/:bookId", h.DeleteBook)

	staff.GET("/members", h.ListMembers)
	staff.GET("/members/:memberId", h.GetMember)
	staff.POST("/members", h.CreateMember)
	staff.PUT("/members/:memberId", h.UpdateMember)
	staff.DELETE("/members/:memberId", h.DeleteMember)

	staff.GET("/loans", h.ListLoans)
	staff.GET("/loans/:loanId", h.GetLoan)
	staff.POST("/loans", h.CreateLoan)
	staff.PUT("/loans/:loanId", h.UpdateLoan)
	staff.POST("/loans/:loanId/return", h.ReturnLoan)
	staff.DELETE("/loans/:loanId", h.DeleteLoan)

	staff.GET("/stats", h.GetStats)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// respondError maps the engine's error taxonomy onto HTTP. Validation errors
// keep their per-field messages, everything unexpected stays generic.
func respondError(c echo.Context, err error) error {
	var verr *errs.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, errs.ValidationErrorResponse{
			Message: "validation failed",
			Errors:  verr.Fields,
		})
	}
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrStateConflict),
		errors.Is(err, errs.ErrIntegrity),
		errors.Is(err, errs.ErrDuplicate),
		errors.Is(err, errs.ErrStockExhausted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

func (h *Handler) enqueue(topic string, v any) {
	if h.enqueuer == nil {
		return
	}
	if err := h.enqueuer.Enqueue(topic, v); err != nil {
		h.log.Warn("enqueue", zap.String("topic", topic), zap.Error(err))
	}
}
