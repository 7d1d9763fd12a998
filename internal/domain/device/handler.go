package device

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dosehub/dosehub/internal/platform/httperr"
	"github.com/dosehub/dosehub/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/devices", h.List)
	api.POST("/devices", h.Create)
	api.GET("/devices/:id", h.Get)
	api.PUT("/devices/:id", h.Update)
	api.DELETE("/devices/:id", h.Delete)
	api.POST("/devices/:id/rotate-key", h.RotateKey)
	api.GET("/devices/:id/logs", h.ListLogs)
}

func idParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httperr.BadRequest("invalid id")
	}
	return id, nil
}

// createResponse includes the freshly issued API key. It is returned exactly
// once, at registration or rotation; list and get responses omit it.
type createResponse struct {
	Device
	APIKey string `json:"api_key"`
}

func (h *Handler) Create(c echo.Context) error {
	var d Device
	if err := c.Bind(&d); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	if err := h.svc.Create(c.Request().Context(), &d); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createResponse{Device: d, APIKey: d.APIKey})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var d Device
	if err := c.Bind(&d); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	d.ID = id
	if err := h.svc.Update(c.Request().Context(), &d); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RotateKey(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	d, err := h.svc.RotateAPIKey(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, createResponse{Device: *d, APIKey: d.APIKey})
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Device{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListLogs(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListLogs(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Log{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
