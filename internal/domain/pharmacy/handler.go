package pharmacy

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
	medRead := api.Group("", auth.RequireRole(auth.RolePharmacist, auth.RoleDoctor, auth.RoleReceptionist))
	medRead.GET("/medications", h.ListMedications)
	medRead.GET("/medications/:id", h.GetMedication)

	medWrite := api.Group("", auth.RequireRole(auth.RolePharmacist))
	medWrite.POST("/medications", h.CreateMedication)
	medWrite.PATCH("/medications/:id", h.UpdateMedication)
	medWrite.DELETE("/medications/:id", h.DeleteMedication)
	medWrite.POST("/prescriptions/:id/dispense", h.Dispense)

	rxRead := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RolePharmacist, auth.RolePatient))
	rxRead.GET("/prescriptions", h.ListPrescriptions)
	rxRead.GET("/prescriptions/:id", h.GetPrescription)

	rxWrite := api.Group("", auth.RequireRole(auth.RoleDoctor))
	rxWrite.POST("/prescriptions", h.CreatePrescription)
	rxWrite.DELETE("/prescriptions/:id", h.DeletePrescription)
}

func errorStatus(err error, fallback int) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyDispensed):
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

// -- Medication handlers --

func (h *Handler) CreateMedication(c echo.Context) error {
	var m Medication
	if err := bindAndValidate(c, &m); err != nil {
		return err
	}
	if err := h.svc.CreateMedication(c.Request().Context(), &m); err != nil {
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMedication(c echo.Context) error {
	m, err := h.svc.GetMedication(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMedications(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMedications(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateMedication(c echo.Context) error {
	var p MedicationPatch
	if err := bindAndValidate(c, &p); err != nil {
		return err
	}
	m, err := h.svc.UpdateMedication(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMedication(c echo.Context) error {
	if err := h.svc.DeleteMedication(c.Request().Context(), c.Param("id")); err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Prescription handlers --

type prescriptionItemRequest struct {
	MedicationID string `json:"medication_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"gte=1"`
	Dosage       string `json:"dosage"`
	Instructions string `json:"instructions"`
}

type prescriptionRequest struct {
	PatientID string                    `json:"patient_id" validate:"required"`
	DoctorID  string                    `json:"doctor_id"`
	Notes     string                    `json:"notes"`
	Items     []prescriptionItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var req prescriptionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	p := &Prescription{PatientID: req.PatientID, DoctorID: req.DoctorID, Notes: req.Notes}
	// A doctor always prescribes under their own profile
	if id := auth.IdentityFromContext(c.Request().Context()); id != nil && id.Role == auth.RoleDoctor {
		p.DoctorID = id.ProfileID
	}
	items := make([]*PrescriptionItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, &PrescriptionItem{
			MedicationID: it.MedicationID,
			Quantity:     it.Quantity,
			Dosage:       it.Dosage,
			Instructions: it.Instructions,
		})
	}
	if err := h.svc.CreatePrescription(c.Request().Context(), p, items); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	p, err := h.svc.GetPrescription(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	if id := auth.IdentityFromContext(c.Request().Context()); id != nil &&
		id.Role == auth.RolePatient && id.ProfileID != p.PatientID {
		return echo.NewHTTPError(http.StatusForbidden, "patients may only access their own prescriptions")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)
	patientID := c.QueryParam("patient_id")
	if id := auth.IdentityFromContext(ctx); id != nil && id.Role == auth.RolePatient {
		if id.ProfileID == "" || (patientID != "" && patientID != id.ProfileID) {
			return echo.NewHTTPError(http.StatusForbidden, "patients may only access their own prescriptions")
		}
		patientID = id.ProfileID
	}

	var (
		items []*Prescription
		total int
		err   error
	)
	if patientID != "" {
		items, total, err = h.svc.ListPrescriptionsByPatient(ctx, patientID, pg.Limit, pg.Offset)
	} else {
		items, total, err = h.svc.ListPrescriptions(ctx, pg.Limit, pg.Offset)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeletePrescription(c echo.Context) error {
	if err := h.svc.DeletePrescription(c.Request().Context(), c.Param("id")); err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Dispense(c echo.Context) error {
	p, err := h.svc.Dispense(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, p)
}
