// Package reporting serves fixed administrative summaries computed directly
// in SQL.
package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/medcore/hms/internal/platform/auth"
)

// MeasureDefinition is a named query. Parameters are bound positionally in
// the order listed.
type MeasureDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SQL         string   `json:"-"`
	Parameters  []string `json:"parameters"`
}

type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
}

// Money columns are cast to text so amounts keep their exact decimal form.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "bills-by-status",
		Name:        "Bills by Status",
		Description: "Bill count, billed and collected amounts grouped by payment status",
		SQL: `SELECT status, COUNT(*) AS bills,
			COALESCE(SUM(total_amount), 0)::text AS billed,
			COALESCE(SUM(paid_amount), 0)::text AS collected
			FROM bills GROUP BY status ORDER BY status`,
		Parameters: []string{},
	},
	{
		ID:          "outstanding-balance",
		Name:        "Outstanding Balance",
		Description: "Unpaid balance per patient across bills that are not PAID",
		SQL: `SELECT patient_id, COUNT(*) AS bills,
			SUM(total_amount - paid_amount)::text AS balance_due
			FROM bills WHERE status <> 'PAID'
			GROUP BY patient_id ORDER BY SUM(total_amount - paid_amount) DESC, patient_id`,
		Parameters: []string{},
	},
	{
		ID:          "revenue-by-day",
		Name:        "Revenue by Day",
		Description: "Billed and collected amounts per issue date within an inclusive date range",
		SQL: `SELECT issue_date::text AS issue_date, COUNT(*) AS bills,
			SUM(total_amount)::text AS billed, SUM(paid_amount)::text AS collected
			FROM bills WHERE issue_date BETWEEN $1::date AND $2::date
			GROUP BY issue_date ORDER BY issue_date`,
		Parameters: []string{"from", "to"},
	},
	{
		ID:          "appointments-by-status",
		Name:        "Appointments by Status",
		Description: "Appointment counts grouped by status",
		SQL:         `SELECT status, COUNT(*) AS total FROM appointments GROUP BY status ORDER BY total DESC`,
		Parameters:  []string{},
	},
	{
		ID:          "low-stock-medications",
		Name:        "Low Stock Medications",
		Description: "Medications whose stock is at or below the given threshold",
		SQL: `SELECT id, name, stock_quantity FROM medications
			WHERE stock_quantity <= $1::int ORDER BY stock_quantity, name`,
		Parameters: []string{"threshold"},
	},
}

// Querier is satisfied by *pgxpool.Pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

type Handler struct {
	db Querier
}

func NewHandler(db Querier) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports", auth.RequireRole(auth.RoleAdmin))
	reportGroup.GET("/measures", h.ListMeasures)
	reportGroup.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	params := make(map[string]string, len(measure.Parameters))
	args := make([]interface{}, 0, len(measure.Parameters))
	for _, p := range measure.Parameters {
		v := c.QueryParam(p)
		if v == "" {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("query parameter %q is required", p))
		}
		params[p] = v
		args = append(args, v)
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL, args...)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now().UTC(),
		Results:     results,
		Parameters:  params,
	})
}

// executeSQL returns each row as a column-name keyed map.
func (h *Handler) executeSQL(ctx context.Context, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	rows, err := h.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	results := []map[string]interface{}{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
