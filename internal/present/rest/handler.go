package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/plotwise/seedtrace"
	"github.com/plotwise/seedtrace/internal/domain"
	"github.com/plotwise/seedtrace/internal/present/rest/presenter"
	"github.com/plotwise/seedtrace/internal/service"
	"github.com/plotwise/seedtrace/internal/usecase"
)

type Handler struct {
	options    *usecase.OptionsUsecase
	records    *usecase.RecordsUsecase
	validator  *usecase.ValidatorUsecase
	submission *usecase.SubmissionUsecase
	scope      *usecase.ScopeUsecase
	signal     *service.SignalService
}

func NewHandler(
	options *usecase.OptionsUsecase,
	records *usecase.RecordsUsecase,
	validator *usecase.ValidatorUsecase,
	submission *usecase.SubmissionUsecase,
	scope *usecase.ScopeUsecase,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		options:    options,
		records:    records,
		validator:  validator,
		submission: submission,
		scope:      scope,
		signal:     signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/options", h.handleOptions)
	e.GET("/api/v1/records", h.handleRecords)
	e.GET("/api/v1/barcodes/check", h.handleCheck)
	e.POST("/api/v1/discards/validate", h.handleValidate)
	e.POST("/api/v1/discards/validate-batch", h.handleValidateBatch)
	e.POST("/api/v1/discards/unmark", h.handleUnmark)
	e.POST("/api/v1/discards", h.handleSubmit)
	e.GET("/api/v1/scope", h.handleGetScope)
	e.PUT("/api/v1/scope", h.handlePutScope)
	e.GET("/realtime", h.handleRealtime)
}

// resolveScope starts from the operator's stored defaults and applies any
// per-request overrides from query parameters.
func (h *Handler) resolveScope(c echo.Context) seedtrace.Scope {
	ctx := c.Request().Context()

	scope, err := h.scope.Get(ctx, domain.ActorFromContext(ctx))
	if err != nil {
		scope = seedtrace.Scope{}
	}
	if site := c.QueryParam("site"); site != "" {
		scope.Site = site
	}
	if year := c.QueryParam("year"); year != "" {
		scope.Year = year
	}
	if recordType := c.QueryParam("recordType"); recordType != "" {
		scope.RecordType = recordType
	}
	return scope
}

func mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return presenter.BadRequest(c, err)
	case errors.Is(err, domain.ErrNotFound):
		return presenter.NotFound(c, err)
	case errors.Is(err, domain.ErrAlreadyDiscarded), errors.Is(err, domain.ErrNotDiscarded):
		return presenter.Conflict(c, err)
	case errors.Is(err, domain.ErrDependencyUnavailable):
		return presenter.Unavailable(c, err)
	default:
		return presenter.InternalError(c, err)
	}
}

func (h *Handler) handleOptions(c echo.Context) error {
	ctx := c.Request().Context()

	site := c.QueryParam("site")
	if site == "" {
		site = h.resolveScope(c).Site
	}

	options, err := h.options.List(ctx, site)
	if err != nil {
		return mapError(c, err)
	}
	return presenter.OK(c, options)
}

func (h *Handler) handleRecords(c echo.Context) error {
	ctx := c.Request().Context()

	scope := h.resolveScope(c)
	field := c.QueryParam("field")

	records, err := h.records.Fetch(ctx, scope, field)
	if err != nil {
		return mapError(c, err)
	}
	if len(records) == 0 {
		return presenter.NotFound(c, domain.NotFoundError{})
	}
	return presenter.OK(c, records)
}

func (h *Handler) handleCheck(c echo.Context) error {
	ctx := c.Request().Context()

	scope := h.resolveScope(c)
	code := c.QueryParam("barcode")

	result, err := h.validator.CheckStatus(ctx, scope, code)
	if err != nil {
		return mapError(c, err)
	}
	return presenter.OK(c, result)
}

type validateRequest struct {
	seedtrace.Scope
	Barcode string `json:"barcode"`
}

func (h *Handler) handleValidate(c echo.Context) error {
	ctx := c.Request().Context()

	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	record, err := h.validator.ValidateAndDiscard(ctx, req.Scope, req.Barcode)
	if err != nil {
		return mapError(c, err)
	}
	return presenter.OK(c, record)
}

type validateBatchRequest struct {
	seedtrace.Scope
	Barcodes []string `json:"barcodes"`
}

func (h *Handler) handleValidateBatch(c echo.Context) error {
	ctx := c.Request().Context()

	var req validateBatchRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if len(req.Barcodes) == 0 {
		return presenter.BadRequestMessage(c, "barcodes are required")
	}

	result := h.validator.ValidateBatch(ctx, req.Scope, req.Barcodes)
	return presenter.OK(c, result)
}

func (h *Handler) handleUnmark(c echo.Context) error {
	ctx := c.Request().Context()

	var req validateRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	record, err := h.validator.UnmarkDiscard(ctx, req.Scope, req.Barcode)
	if err != nil {
		return mapError(c, err)
	}
	return presenter.OK(c, record)
}

func (h *Handler) handleSubmit(c echo.Context) error {
	ctx := c.Request().Context()

	var input usecase.SubmitInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}

	created, err := h.submission.Submit(ctx, input)
	if err != nil {
		return mapError(c, err)
	}
	return presenter.OK(c, created)
}

func (h *Handler) handleGetScope(c echo.Context) error {
	ctx := c.Request().Context()

	scope, err := h.scope.Get(ctx, domain.ActorFromContext(ctx))
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, scope)
}

func (h *Handler) handlePutScope(c echo.Context) error {
	ctx := c.Request().Context()

	var scope seedtrace.Scope
	if err := c.Bind(&scope); err != nil {
		return presenter.BadRequest(c, err)
	}

	if err := h.scope.Set(ctx, domain.ActorFromContext(ctx), scope); err != nil {
		return mapError(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	input := make(chan []string)
	defer close(input)
	output := make(chan seedtrace.Event)
	defer close(output)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				quit <- struct{}{}
				break
			}

			switch req.Type {
			case "listen":
				input <- req.Channels
				slog.DebugContext(
					ctx, fmt.Sprintf("Socket subscribe: %s", req.Channels),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
