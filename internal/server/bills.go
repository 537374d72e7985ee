package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/civicpulse/billtracker/internal/classify"
	"github.com/civicpulse/billtracker/internal/service"
	"github.com/civicpulse/billtracker/models"
)

// Orchestrator is the slice of the bill service the HTTP layer depends on.
type Orchestrator interface {
	GetPage(ctx context.Context, q service.Query) (models.PageResult, error)
	GetDetail(ctx context.Context, billID string) (models.BillRecord, error)
}

type BillsHandler struct {
	Svc Orchestrator
}

func (h *BillsHandler) Register(g *echo.Group) {
	g.GET("/bills", h.list)
	g.GET("/bills/:id", h.detail)
	g.GET("/topics", h.topics)
}

func (h *BillsHandler) list(c echo.Context) error {
	q := service.Query{
		Text:    c.QueryParam("query"),
		Chamber: c.QueryParam("chamber"),
		Topic:   c.QueryParam("topic"),
	}
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "page must be an integer")
		}
		q.Page = n
	}
	if v := c.QueryParam("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "per_page must be an integer")
		}
		q.PerPage = n
	}

	page, err := h.Svc.GetPage(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "bill data temporarily unavailable")
	}
	return c.JSON(http.StatusOK, page)
}

func (h *BillsHandler) detail(c echo.Context) error {
	billID := c.Param("id")
	rec, err := h.Svc.GetDetail(c.Request().Context(), billID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "bill not found")
		}
		return echo.NewHTTPError(http.StatusServiceUnavailable, "bill data temporarily unavailable")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *BillsHandler) topics(c echo.Context) error {
	return c.JSON(http.StatusOK, TopicsResponse{Topics: classify.AllTopics()})
}
