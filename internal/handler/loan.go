package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/imadegautama/simple-library/internal/model"
	"github.com/imadegautama/simple-library/pkg/auth"
	"github.com/imadegautama/simple-library/pkg/kafka"
)

func (h *Handler) ListLoans(c echo.Context) error {
	loans, err := h.loanSvc.ListLoans(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) GetLoan(c echo.Context) error {
	loanID, err := paramID(c, "loanId")
	if err != nil {
		return err
	}
	loan, err := h.loanSvc.GetLoan(c.Request().Context(), loanID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loan)
}

// MyLoans is the member self-service view: active loans plus recent history.
func (h *Handler) MyLoans(c echo.Context) error {
	ctx := c.Request().Context()
	memberID := auth.MemberID(ctx)
	if memberID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "no member identity")
	}

	var status model.Status
	if statusParam := c.QueryParam("status"); statusParam != "" {
		parsed, err := model.ParseStatus(statusParam)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.New("status is invalid"))
		}
		status = parsed
	}

	loans, err := h.loanSvc.ListLoansByMember(ctx, memberID, status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) CreateLoan(c echo.Context) error {
	var req model.CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if staffID := auth.MemberID(ctx); staffID != 0 {
		req.CreatedBy = &staffID
	}

	loan, err := h.loanSvc.CreateLoan(ctx, req)
	if err != nil {
		return respondError(c, err)
	}

	h.enqueue(kafka.LoanTopic, model.LoanEventMsg{
		LoanID:    loan.ID,
		MemberID:  loan.MemberID,
		EventType: model.EventLoanCreated,
		BookIDs:   loan.BookIDs,
		At:        time.Now().UTC(),
	})
	return c.JSON(http.StatusCreated, loan)
}

func (h *Handler) UpdateLoan(c echo.Context) error {
	loanID, err := paramID(c, "loanId")
	if err != nil {
		return err
	}
	var req model.UpdateLoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	loan, err := h.loanSvc.UpdateLoan(c.Request().Context(), loanID, req)
	if err != nil {
		return respondError(c, err)
	}

	h.enqueue(kafka.LoanTopic, model.LoanEventMsg{
		LoanID:    loan.ID,
		MemberID:  loan.MemberID,
		EventType: model.EventLoanUpdated,
		BookIDs:   loan.BookIDs,
		At:        time.Now().UTC(),
	})
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) ReturnLoan(c echo.Context) error {
	loanID, err := paramID(c, "loanId")
	if err != nil {
		return err
	}
	var req model.ReturnLoanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	loan, err := h.loanSvc.ReturnLoan(c.Request().Context(), loanID, req)
	if err != nil {
		return respondError(c, err)
	}

	h.enqueue(kafka.LoanTopic, model.LoanEventMsg{
		LoanID:    loan.ID,
		MemberID:  loan.MemberID,
		EventType: model.EventLoanReturned,
		BookIDs:   loan.BookIDs,
		At:        time.Now().UTC(),
	})
	return c.JSON(http.StatusOK, loan)
}

func (h *Handler) DeleteLoan(c echo.Context) error {
	loanID, err := paramID(c, "loanId")
	if err != nil {
		return err
	}
	if err := h.loanSvc.DeleteLoan(c.Request().Context(), loanID); err != nil {
		return respondError(c, err)
	}

	h.enqueue(kafka.LoanTopic, model.LoanEventMsg{
		LoanID:    loanID,
		EventType: model.EventLoanDeleted,
		At:        time.Now().UTC(),
	})
	return c.NoContent(http.StatusNoContent)
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" is invalid")
	}
	return id, nil
}
