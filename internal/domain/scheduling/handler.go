package scheduling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medcore/hms/internal/platform/auth"
	"github.com/medcore/hms/internal/platform/db"
	"github.com/medcore/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RoleDoctor, auth.RolePatient))
	read.GET("/appointments", h.ListAppointments)
	read.GET("/appointments/:id", h.GetAppointment)

	write := api.Group("", auth.RequireRole(auth.RoleReceptionist))
	write.POST("/appointments", h.CreateAppointment)
	write.PATCH("/appointments/:id", h.UpdateAppointment)
	write.DELETE("/appointments/:id", h.DeleteAppointment)
	write.POST("/appointments/:id/cancel", h.CancelAppointment)

	api.POST("/appointments/:id/complete", h.CompleteAppointment, auth.RequireRole(auth.RoleDoctor))
}

func errorStatus(err error, fallback int) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotScheduled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(fallback, err.Error())
}

func bindAndValidate(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if c.Echo().Validator != nil {
		if err := c.Validate(v); err != nil {
			return err
		}
	}
	return nil
}

func patientScope(c echo.Context, patientID string) error {
	id := auth.IdentityFromContext(c.Request().Context())
	if id != nil && id.Role == auth.RolePatient && (id.ProfileID == "" || id.ProfileID != patientID) {
		return echo.NewHTTPError(http.StatusForbidden, "patients may only access their own appointments")
	}
	return nil
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var a Appointment
	if err := bindAndValidate(c, &a); err != nil {
		return err
	}
	if err := h.svc.CreateAppointment(c.Request().Context(), &a); err != nil {
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	a, err := h.svc.GetAppointment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	if err := patientScope(c, a.PatientID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// ListAppointments filters by patient_id or doctor_id; patients always see
// only their own.
func (h *Handler) ListAppointments(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)
	patientID := c.QueryParam("patient_id")
	if id := auth.IdentityFromContext(ctx); id != nil && id.Role == auth.RolePatient {
		if patientID == "" {
			patientID = id.ProfileID
		}
		if err := patientScope(c, patientID); err != nil {
			return err
		}
	}

	var (
		items []*Appointment
		total int
		err   error
	)
	switch {
	case patientID != "":
		items, total, err = h.svc.ListAppointmentsByPatient(ctx, patientID, pg.Limit, pg.Offset)
	case c.QueryParam("doctor_id") != "":
		items, total, err = h.svc.ListAppointmentsByDoctor(ctx, c.QueryParam("doctor_id"), pg.Limit, pg.Offset)
	default:
		items, total, err = h.svc.ListAppointments(ctx, pg.Limit, pg.Offset)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	var p AppointmentPatch
	if err := bindAndValidate(c, &p); err != nil {
		return err
	}
	a, err := h.svc.UpdateAppointment(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	if err := h.svc.DeleteAppointment(c.Request().Context(), c.Param("id")); err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	a, err := h.svc.Cancel(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CompleteAppointment(c echo.Context) error {
	a, err := h.svc.Complete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, a)
}
