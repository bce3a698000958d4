package reporting

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

type fakeQuerier struct {
	sql  string
	args []interface{}
	err  error
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	f.sql = sql
	f.args = args
	return nil, f.err
}

func evaluate(t *testing.T, q Querier, id, query string) error {
	t.Helper()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+query, nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(id)
	return NewHandler(q).EvaluateMeasure(c)
}

func expectHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d (%v)", code, he.Code, he.Message)
	}
}

func TestPredefinedMeasures_Complete(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range PredefinedMeasures {
		if m.SQL == "" || m.Name == "" || m.Description == "" {
			t.Errorf("measure %s is incomplete", m.ID)
		}
		if seen[m.ID] {
			t.Errorf("duplicate measure id %s", m.ID)
		}
		seen[m.ID] = true
		for i := range m.Parameters {
			placeholder := "$" + string(rune('1'+i))
			if !strings.Contains(m.SQL, placeholder) {
				t.Errorf("measure %s does not bind %s", m.ID, placeholder)
			}
		}
	}
}

func TestFindMeasure(t *testing.T) {
	if m := FindMeasure("bills-by-status"); m == nil || m.Name != "Bills by Status" {
		t.Errorf("unexpected measure: %+v", m)
	}
	if FindMeasure("nonexistent") != nil {
		t.Error("expected nil for nonexistent measure")
	}
}

func TestListMeasures_HidesSQL(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	if err := NewHandler(nil).ListMeasures(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "SELECT") {
		t.Error("measure SQL should not be exposed")
	}
}

func TestEvaluateMeasure_NotFound(t *testing.T) {
	expectHTTPError(t, evaluate(t, nil, "nonexistent", ""), http.StatusNotFound)
}

func TestEvaluateMeasure_MissingParameter(t *testing.T) {
	q := &fakeQuerier{}
	expectHTTPError(t, evaluate(t, q, "revenue-by-day", "from=2026-01-01"), http.StatusBadRequest)
	if q.sql != "" {
		t.Error("query should not run without all parameters")
	}
}

func TestEvaluateMeasure_BindsParametersInOrder(t *testing.T) {
	q := &fakeQuerier{err: errors.New("connection refused")}
	expectHTTPError(t, evaluate(t, q, "revenue-by-day", "to=2026-01-31&from=2026-01-01"), http.StatusInternalServerError)
	if len(q.args) != 2 || q.args[0] != "2026-01-01" || q.args[1] != "2026-01-31" {
		t.Errorf("unexpected args: %v", q.args)
	}
}
