package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
)

// ActionDispatcher is the interface the handler uses to enqueue actions.
type ActionDispatcher interface {
	Enqueue(ctx context.Context, a domain.Action) error
	EnqueueBatch(ctx context.Context, actions []domain.Action) error
}

// ActionHandler handles user action ingestion from the chat transport.
type ActionHandler struct {
	dispatcher ActionDispatcher
}

// NewActionHandler creates an ActionHandler backed by the given dispatcher.
func NewActionHandler(dispatcher ActionDispatcher) *ActionHandler {
	return &ActionHandler{dispatcher: dispatcher}
}

// Receive handles POST /v1/actions: enqueues a single action, returns 202.
//
// @Summary      Ingest a single user action
// @Tags         actions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      actionRequest  true  "User action"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/actions [post]
func (h *ActionHandler) Receive(c echo.Context) error {
	var req actionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.dispatcher.Enqueue(c.Request().Context(), toAction(req)); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "action queue unavailable")
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{Message: "action accepted"})
}

// ReceiveBatch handles POST /v1/actions/batch: enqueues a batch of actions in
// order, returns 202.
//
// @Summary      Ingest a batch of user actions
// @Tags         actions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      []actionRequest  true  "Array of user actions"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /v1/actions/batch [post]
func (h *ActionHandler) ReceiveBatch(c echo.Context) error {
	var reqs []actionRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch cannot be empty")
	}

	actions := make([]domain.Action, 0, len(reqs))
	for i, req := range reqs {
		if err := c.Validate(&req); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("action[%d]: %s", i, err.Error()))
		}
		actions = append(actions, toAction(req))
	}

	if err := h.dispatcher.EnqueueBatch(c.Request().Context(), actions); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "action queue unavailable")
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{
		Message: "actions accepted",
		Count:   len(actions),
	})
}

// toAction maps the HTTP request to the domain action.
func toAction(r actionRequest) domain.Action {
	a := domain.Action{
		ID:       r.ID,
		Identity: r.Identity,
		Kind:     domain.ActionKind(r.Kind),
		Value:    r.Value,
	}
	if r.Location != nil {
		a.Location = &domain.Coordinates{Lat: r.Location.Lat, Lng: r.Location.Lng}
	}
	if r.SentAt != nil {
		a.SentAt = *r.SentAt
	}
	return a
}
