package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/imadegautama/simple-library/internal/model"
)

func (h *Handler) ListMembers(c echo.Context) error {
	members, err := h.memberSvc.ListMembers(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, members)
}

func (h *Handler) GetMember(c echo.Context) error {
	memberID, err := paramID(c, "memberId")
	if err != nil {
		return err
	}
	member, err := h.memberSvc.GetMember(c.Request().Context(), memberID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, member)
}

// RegisterMember serves public self-registration.
func (h *Handler) RegisterMember(c echo.Context) error {
	return h.createMember(c)
}

// CreateMember serves staff entry; same contract, staff-gated route.
func (h *Handler) CreateMember(c echo.Context) error {
	return h.createMember(c)
}

func (h *Handler) createMember(c echo.Context) error {
	var req model.CreateMemberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	member, err := h.memberSvc.RegisterMember(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, member)
}

func (h *Handler) UpdateMember(c echo.Context) error {
	memberID, err := paramID(c, "memberId")
	if err != nil {
		return err
	}
	var req model.UpdateMemberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	member, err := h.memberSvc.UpdateMember(c.Request().Context(), memberID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, member)
}

func (h *Handler) DeleteMember(c echo.Context) error {
	memberID, err := paramID(c, "memberId")
	if err != nil {
		return err
	}
	if err := h.memberSvc.DeleteMember(c.Request().Context(), memberID); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
