package iot

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dosehub/dosehub/internal/domain/device"
	"github.com/dosehub/dosehub/internal/domain/dispense"
	"github.com/dosehub/dosehub/internal/platform/httperr"
	"github.com/dosehub/dosehub/pkg/pagination"
)

// DeviceKeyHeader carries the cabinet's API key on every device-originated
// request.
const DeviceKeyHeader = "X-Device-Key"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterDeviceRoutes mounts the endpoints cabinets call. Every route is
// gated on a valid device API key.
func (h *Handler) RegisterDeviceRoutes(g *echo.Group) {
	g.Use(h.requireDeviceKey)
	g.POST("/scan", h.Scan)
	g.POST("/dispense", h.Dispense)
	g.POST("/status", h.Status)
	g.POST("/log", h.Log)
	g.POST("/inventory", h.Inventory)
}

// RegisterOpsRoutes mounts the operator-facing read endpoints; the caller is
// expected to wrap the group in the regular bearer-token middleware.
func (h *Handler) RegisterOpsRoutes(g *echo.Group) {
	g.GET("/devices", h.Devices)
	g.GET("/device/:name/logs", h.DeviceLogs)
	g.GET("/analytics/dispense", h.Analytics)
	g.GET("/analytics/summary", h.AnalyticsSummary)
	g.GET("/analytics/by-medication", h.AnalyticsByMedication)
	g.GET("/analytics/by-doctor", h.AnalyticsByDoctor)
	g.GET("/analytics/by-patient", h.AnalyticsByPatient)
	g.GET("/analytics/hourly", h.AnalyticsHourly)
}

func (h *Handler) requireDeviceKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		dev, err := h.svc.devices.Authenticate(c.Request().Context(), c.Request().Header.Get(DeviceKeyHeader))
		if err != nil {
			return err
		}
		c.Set("device", dev)
		return next(c)
	}
}

// Scan always answers 200 with a Decision so the cabinet firmware only has
// one response shape to handle.
func (h *Handler) Scan(c echo.Context) error {
	var req ScanRequest
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	return c.JSON(http.StatusOK, h.svc.Scan(c.Request().Context(), req))
}

func (h *Handler) Dispense(c echo.Context) error {
	var req DispenseRequest
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	event, err := h.svc.RecordDispense(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, event)
}

func (h *Handler) Status(c echo.Context) error {
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	if err := h.svc.UpdateStatus(c.Request().Context(), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Log(c echo.Context) error {
	var req LogRequest
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	if err := h.svc.AddLog(c.Request().Context(), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Inventory(c echo.Context) error {
	var req InventoryRequest
	if err := c.Bind(&req); err != nil {
		return httperr.BadRequest("invalid request body")
	}
	if err := h.svc.UpdateInventory(c.Request().Context(), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Devices(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDevices(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*device.Device{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeviceLogs(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.DeviceLogs(c.Request().Context(), c.Param("name"), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*device.Log{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Analytics(c echo.Context) error {
	from, to, err := windowFromQuery(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.DispenseAnalytics(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []*dispense.AnalyticsRow{}
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) AnalyticsSummary(c echo.Context) error {
	from, to, err := windowFromQuery(c)
	if err != nil {
		return err
	}
	s, err := h.svc.DispenseSummary(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) AnalyticsByMedication(c echo.Context) error {
	from, to, err := windowFromQuery(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.TotalsByMedication(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []*dispense.MedicationTotals{}
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) AnalyticsByDoctor(c echo.Context) error {
	from, to, err := windowFromQuery(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.TotalsByDoctor(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []*dispense.DoctorTotals{}
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) AnalyticsByPatient(c echo.Context) error {
	from, to, err := windowFromQuery(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.TotalsByPatient(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []*dispense.PatientTotals{}
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *Handler) AnalyticsHourly(c echo.Context) error {
	from, to, err := windowFromQuery(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.HourlyDistribution(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []*dispense.HourlyCount{}
	}
	return c.JSON(http.StatusOK, rows)
}

func windowFromQuery(c echo.Context) (time.Time, time.Time, error) {
	from, err := parseWindowBound(c.QueryParam("from"))
	if err != nil {
		return from, time.Time{}, httperr.BadRequest("invalid 'from' date")
	}
	to, err := parseWindowBound(c.QueryParam("to"))
	if err != nil {
		return from, to, httperr.BadRequest("invalid 'to' date")
	}
	return from, to, nil
}

func parseWindowBound(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
