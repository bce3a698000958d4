package identity

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
	// Directory reads are open to any signed-in account
	api.GET("/departments", h.ListDepartments)
	api.GET("/departments/:id", h.GetDepartment)
	api.GET("/departments/:id/doctors", h.ListDepartmentDoctors)
	api.GET("/doctors", h.ListDoctors)
	api.GET("/doctors/:id", h.GetDoctor)

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/departments", h.CreateDepartment)
	admin.PATCH("/departments/:id", h.UpdateDepartment)
	admin.DELETE("/departments/:id", h.DeleteDepartment)
	admin.POST("/doctors", h.CreateDoctor)
	admin.PATCH("/doctors/:id", h.UpdateDoctor)
	admin.DELETE("/doctors/:id", h.DeleteDoctor)
	h.registerStaff(admin, "/receptionists", StaffReceptionist)
	h.registerStaff(admin, "/pharmacists", StaffPharmacist)

	patientRead := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RoleDoctor, auth.RolePatient))
	patientRead.GET("/patients/:id", h.GetPatient)

	frontDesk := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RoleDoctor))
	frontDesk.GET("/patients", h.ListPatients)

	patientWrite := api.Group("", auth.RequireRole(auth.RoleReceptionist))
	patientWrite.POST("/patients", h.CreatePatient)
	patientWrite.PATCH("/patients/:id", h.UpdatePatient)
	patientWrite.DELETE("/patients/:id", h.DeletePatient)
}

func (h *Handler) registerStaff(g *echo.Group, path string, kind StaffKind) {
	g.GET(path, h.ListStaff(kind))
	g.GET(path+"/:id", h.GetStaff(kind))
	g.POST(path, h.CreateStaff(kind))
	g.PATCH(path+"/:id", h.UpdateStaff(kind))
	g.DELETE(path+"/:id", h.DeleteStaff(kind))
}

func errorStatus(err error, fallback int) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDepartmentInUse):
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

// -- Departments --

func (h *Handler) CreateDepartment(c echo.Context) error {
	var d Department
	if err := bindAndValidate(c, &d); err != nil {
		return err
	}
	if err := h.svc.CreateDepartment(c.Request().Context(), &d); err != nil {
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDepartment(c echo.Context) error {
	d, err := h.svc.GetDepartment(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDepartments(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDepartments(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateDepartment(c echo.Context) error {
	var p DepartmentPatch
	if err := bindAndValidate(c, &p); err != nil {
		return err
	}
	d, err := h.svc.UpdateDepartment(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDepartment(c echo.Context) error {
	if err := h.svc.DeleteDepartment(c.Request().Context(), c.Param("id")); err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDepartmentDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctorsByDepartment(c.Request().Context(), c.Param("id"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Doctors --

func (h *Handler) CreateDoctor(c echo.Context) error {
	var d Doctor
	if err := bindAndValidate(c, &d); err != nil {
		return err
	}
	if err := h.svc.CreateDoctor(c.Request().Context(), &d); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	d, err := h.svc.GetDoctor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	var p DoctorPatch
	if err := bindAndValidate(c, &p); err != nil {
		return err
	}
	d, err := h.svc.UpdateDoctor(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	if err := h.svc.DeleteDoctor(c.Request().Context(), c.Param("id")); err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Patients --

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := bindAndValidate(c, &p); err != nil {
		return err
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id := c.Param("id")
	if who := auth.IdentityFromContext(c.Request().Context()); who != nil &&
		who.Role == auth.RolePatient && who.ProfileID != id {
		return echo.NewHTTPError(http.StatusForbidden, "patients may only access their own record")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	var p PatientPatch
	if err := bindAndValidate(c, &p); err != nil {
		return err
	}
	pt, err := h.svc.UpdatePatient(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, pt)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	if err := h.svc.DeletePatient(c.Request().Context(), c.Param("id")); err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Staff --

func (h *Handler) CreateStaff(kind StaffKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var st Staff
		if err := bindAndValidate(c, &st); err != nil {
			return err
		}
		st.Kind = kind
		if err := h.svc.CreateStaff(c.Request().Context(), &st); err != nil {
			return errorStatus(err, http.StatusBadRequest)
		}
		return c.JSON(http.StatusCreated, st)
	}
}

func (h *Handler) GetStaff(kind StaffKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		st, err := h.svc.GetStaff(c.Request().Context(), kind, c.Param("id"))
		if err != nil {
			return errorStatus(err, http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, st)
	}
}

func (h *Handler) ListStaff(kind StaffKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		pg := pagination.FromContext(c)
		items, total, err := h.svc.ListStaff(c.Request().Context(), kind, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
}

func (h *Handler) UpdateStaff(kind StaffKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var p StaffPatch
		if err := bindAndValidate(c, &p); err != nil {
			return err
		}
		st, err := h.svc.UpdateStaff(c.Request().Context(), kind, c.Param("id"), p)
		if err != nil {
			return errorStatus(err, http.StatusBadRequest)
		}
		return c.JSON(http.StatusOK, st)
	}
}

func (h *Handler) DeleteStaff(kind StaffKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := h.svc.DeleteStaff(c.Request().Context(), kind, c.Param("id")); err != nil {
			return errorStatus(err, http.StatusInternalServerError)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
