package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/civicpulse/billtracker/internal/classify"
	"github.com/civicpulse/billtracker/internal/store"
)

// EngagementHandler serves the authenticated comment, vote, watchlist and
// alert endpoints. Vote counts and comment listings are public.
type EngagementHandler struct {
	Store *store.Store
}

func (h *EngagementHandler) Register(public, authed *echo.Group) {
	public.GET("/bills/:id/comments", h.listComments)
	public.GET("/bills/:id/votes", h.voteCounts)

	authed.POST("/bills/:id/comments", h.addComment)
	authed.DELETE("/comments/:id", h.deleteComment)
	authed.POST("/bills/:id/votes", h.castVote)
	authed.GET("/watchlist", h.watchlist)
	authed.POST("/watchlist", h.addToWatchlist)
	authed.DELETE("/watchlist/:billID", h.removeFromWatchlist)
	authed.GET("/alerts", h.listAlerts)
	authed.POST("/alerts", h.createAlert)
	authed.DELETE("/alerts/:id", h.deleteAlert)
}

func userID(c echo.Context) string {
	if v, ok := c.Get("user_id").(string); ok {
		return v
	}
	return ""
}

func (h *EngagementHandler) listComments(c echo.Context) error {
	comments, err := h.Store.ListComments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, comments)
}

func (h *EngagementHandler) addComment(c echo.Context) error {
	var req CommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Content) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "comment content is required")
	}
	comment, err := h.Store.AddComment(c.Request().Context(), userID(c), c.Param("id"), req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, comment)
}

func (h *EngagementHandler) deleteComment(c echo.Context) error {
	err := h.Store.DeleteComment(c.Request().Context(), c.Param("id"), userID(c))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "comment not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *EngagementHandler) castVote(c echo.Context) error {
	var req VoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Value != store.VoteUp && req.Value != store.VoteDown {
		return echo.NewHTTPError(http.StatusBadRequest, "value must be up or down")
	}
	if err := h.Store.CastVote(c.Request().Context(), userID(c), c.Param("id"), req.Value); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *EngagementHandler) voteCounts(c echo.Context) error {
	billID := c.Param("id")
	up, down, err := h.Store.VoteCounts(c.Request().Context(), billID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, VoteCountsResponse{BillID: billID, Up: up, Down: down})
}

func (h *EngagementHandler) watchlist(c echo.Context) error {
	items, err := h.Store.Watchlist(c.Request().Context(), userID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *EngagementHandler) addToWatchlist(c echo.Context) error {
	var req WatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.BillID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "bill_id is required")
	}
	if err := h.Store.AddToWatchlist(c.Request().Context(), userID(c), req.BillID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusCreated)
}

func (h *EngagementHandler) removeFromWatchlist(c echo.Context) error {
	err := h.Store.RemoveFromWatchlist(c.Request().Context(), userID(c), c.Param("billID"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "not on watchlist")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *EngagementHandler) listAlerts(c echo.Context) error {
	alerts, err := h.Store.ListAlerts(c.Request().Context(), userID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, alerts)
}

func (h *EngagementHandler) createAlert(c echo.Context) error {
	var req AlertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !knownTopic(req.Topic) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown topic")
	}
	id, err := h.Store.CreateAlert(c.Request().Context(), userID(c), req.Topic)
	if errors.Is(err, store.ErrDuplicate) {
		return echo.NewHTTPError(http.StatusConflict, "alert already exists")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, IDResponse{ID: id})
}

func (h *EngagementHandler) deleteAlert(c echo.Context) error {
	err := h.Store.DeleteAlert(c.Request().Context(), c.Param("id"), userID(c))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "alert not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func knownTopic(topic string) bool {
	for _, t := range classify.AllTopics() {
		if t == topic {
			return true
		}
	}
	return false
}
