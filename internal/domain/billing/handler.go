package billing

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

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
	// Read endpoints – patients only see their own bills
	readGroup := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RolePatient))
	readGroup.GET("/bills", h.ListBills)
	readGroup.GET("/bills/:id", h.GetBill)
	readGroup.GET("/bills/:id/items", h.ListBillItems)
	readGroup.GET("/bill-items/:id", h.GetBillItem)
	readGroup.GET("/patients/:id/bills/total", h.TotalByPatient)

	// Write endpoints – admin, receptionist
	writeGroup := api.Group("", auth.RequireRole(auth.RoleReceptionist))
	writeGroup.POST("/bills", h.GenerateBill)
	writeGroup.POST("/bills/with-items", h.GenerateBillWithItems)
	writeGroup.PATCH("/bills/:id", h.UpdateBill)
	writeGroup.DELETE("/bills/:id", h.DeleteBill)
	writeGroup.POST("/bills/:id/payments", h.ProcessPayment)
	writeGroup.POST("/bills/:id/items", h.AddBillItem)
	writeGroup.PATCH("/bill-items/:id", h.UpdateBillItem)
	writeGroup.DELETE("/bill-items/:id", h.DeleteBillItem)

	// Pharmacists may bill a prescription they dispense
	api.POST("/bills/from-prescription/:id", h.GenerateFromPrescription,
		auth.RequireRole(auth.RoleReceptionist, auth.RolePharmacist))
}

// errorStatus maps a service error to an HTTP error; fallback applies to
// anything that is not a missing record.
func errorStatus(err error, fallback int) error {
	if errors.Is(err, db.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
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

// ownPatientOnly rejects patients reading someone else's bills.
func ownPatientOnly(c echo.Context, patientID string) error {
	id := auth.IdentityFromContext(c.Request().Context())
	if id != nil && id.Role == auth.RolePatient && (id.ProfileID == "" || id.ProfileID != patientID) {
		return echo.NewHTTPError(http.StatusForbidden, "patients may only access their own bills")
	}
	return nil
}

type generateBillRequest struct {
	PatientID string `json:"patient_id" validate:"required"`
}

type itemRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    int             `json:"quantity" validate:"gte=1"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

func (r itemRequest) toItem() *BillItem {
	return &BillItem{Description: r.Description, Quantity: r.Quantity, TotalPrice: r.TotalPrice}
}

type generateWithItemsRequest struct {
	PatientID  string          `json:"patient_id" validate:"required"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Items      []itemRequest   `json:"items" validate:"dive"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// -- Bill handlers --

func (h *Handler) GenerateBill(c echo.Context) error {
	var req generateBillRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	b := &Bill{PatientID: req.PatientID}
	if err := h.svc.GenerateBill(c.Request().Context(), b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GenerateBillWithItems(c echo.Context) error {
	var req generateWithItemsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	items := make([]*BillItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, it.toItem())
	}
	b := &Bill{PatientID: req.PatientID, PaidAmount: req.PaidAmount}
	if err := h.svc.GenerateBillWithItems(c.Request().Context(), b, items); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GenerateFromPrescription(c echo.Context) error {
	b, err := h.svc.GenerateBillFromPrescription(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBill(c echo.Context) error {
	b, err := h.svc.GetBill(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	if err := ownPatientOnly(c, b.PatientID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

// ListBills filters by at most one of patient_id (optionally with
// unpaid=true), status, from/to, or unpaid=true.
func (h *Handler) ListBills(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)
	patientID := c.QueryParam("patient_id")
	unpaid, _ := strconv.ParseBool(c.QueryParam("unpaid"))

	if id := auth.IdentityFromContext(ctx); id != nil && id.Role == auth.RolePatient {
		if patientID == "" {
			patientID = id.ProfileID
		}
		if err := ownPatientOnly(c, patientID); err != nil {
			return err
		}
	}

	var (
		items []*Bill
		total int
		err   error
	)
	switch {
	case patientID != "" && unpaid:
		items, total, err = h.svc.ListUnpaidBillsByPatient(ctx, patientID, pg.Limit, pg.Offset)
	case patientID != "":
		items, total, err = h.svc.ListBillsByPatient(ctx, patientID, pg.Limit, pg.Offset)
	case c.QueryParam("status") != "":
		status := Status(c.QueryParam("status"))
		if !status.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		items, total, err = h.svc.ListBillsByStatus(ctx, status, pg.Limit, pg.Offset)
	case c.QueryParam("from") != "" || c.QueryParam("to") != "":
		from, ferr := time.Parse(time.DateOnly, c.QueryParam("from"))
		to, terr := time.Parse(time.DateOnly, c.QueryParam("to"))
		if ferr != nil || terr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "from and to must both be YYYY-MM-DD dates")
		}
		items, total, err = h.svc.ListBillsByDateRange(ctx, from, to, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	case unpaid:
		items, total, err = h.svc.ListUnpaidBills(ctx, pg.Limit, pg.Offset)
	default:
		items, total, err = h.svc.ListBills(ctx, pg.Limit, pg.Offset)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateBill(c echo.Context) error {
	var p BillPatch
	if err := bindAndValidate(c, &p); err != nil {
		return err
	}
	if p.Empty() {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}
	b, err := h.svc.UpdateBill(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBill(c echo.Context) error {
	if err := h.svc.DeleteBill(c.Request().Context(), c.Param("id")); err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ProcessPayment(c echo.Context) error {
	var req paymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	b, err := h.svc.ProcessPayment(c.Request().Context(), c.Param("id"), req.Amount)
	if err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) TotalByPatient(c echo.Context) error {
	patientID := c.Param("id")
	if err := ownPatientOnly(c, patientID); err != nil {
		return err
	}
	sum, err := h.svc.TotalAmountByPatient(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"patient_id":   patientID,
		"total_amount": sum,
	})
}

// -- Bill item handlers --

func (h *Handler) AddBillItem(c echo.Context) error {
	var req itemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	it := req.toItem()
	it.BillID = c.Param("id")
	if err := h.svc.AddBillItem(c.Request().Context(), it); err != nil {
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, it)
}

func (h *Handler) ListBillItems(c echo.Context) error {
	ctx := c.Request().Context()
	b, err := h.svc.GetBill(ctx, c.Param("id"))
	if err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	if err := ownPatientOnly(c, b.PatientID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b.Items)
}

func (h *Handler) GetBillItem(c echo.Context) error {
	ctx := c.Request().Context()
	it, err := h.svc.GetBillItem(ctx, c.Param("id"))
	if err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	b, err := h.svc.GetBill(ctx, it.BillID)
	if err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	if err := ownPatientOnly(c, b.PatientID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) UpdateBillItem(c echo.Context) error {
	var p BillItemPatch
	if err := bindAndValidate(c, &p); err != nil {
		return err
	}
	if p.Empty() {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}
	it, err := h.svc.UpdateBillItem(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return errorStatus(err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *Handler) DeleteBillItem(c echo.Context) error {
	if err := h.svc.DeleteBillItem(c.Request().Context(), c.Param("id")); err != nil {
		return errorStatus(err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}
