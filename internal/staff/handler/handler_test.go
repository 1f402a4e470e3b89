package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"projects/internal/rowstore"
	"projects/internal/serdes"
	"projects/internal/staff/models"
	"projects/internal/staff/service"
	"projects/pkg/testutil"
)

func newDirectoryRouter(t *testing.T) (http.Handler, *service.Directory) {
	t.Helper()
	d, err := service.New(serdes.NewEngine(rowstore.NewMemory()),
		service.WithHashCost(bcrypt.MinCost),
		service.WithClock(func() time.Time { return time.Date(2023, 9, 1, 8, 0, 0, 0, time.UTC) }),
	)
	if err != nil {
		t.Fatalf("new directory: %v", err)
	}
	r := chi.NewRouter()
	New(d, slog.New(slog.DiscardHandler)).Register(r)
	return r, d
}

func TestGetDepartmentWithHead(t *testing.T) {
	router, d := newDirectoryRouter(t)
	ctx := context.Background()

	dept, err := d.CreateDepartment(ctx, "Research", decimal.RequireFromString("1200.5"))
	if err != nil {
		t.Fatalf("create department: %v", err)
	}
	e, err := d.HireEmployee(ctx, service.NewHire{Email: "ada@example.com", FirstName: "Ada", Password: "pw"})
	if err != nil {
		t.Fatalf("hire: %v", err)
	}
	if err := d.AppointHead(ctx, dept.ID(), e.ID()); err != nil {
		t.Fatalf("appoint head: %v", err)
	}

	rec := testutil.Get(router, "/departments/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := testutil.UnmarshalResponse[DepartmentResponse](t, rec)
	if resp.Budget != "1200.50" {
		t.Fatalf("expected budget 1200.50, got %q", resp.Budget)
	}
	if resp.HeadID == nil || *resp.HeadID != e.ID() {
		t.Fatalf("expected head_id %d, got %v", e.ID(), resp.HeadID)
	}
	if len(resp.Members) != 1 || !resp.Members[0].IsHead {
		t.Fatalf("expected the head as the only member, got %+v", resp.Members)
	}

	rec = testutil.Get(router, "/employees/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	emp := testutil.UnmarshalResponse[EmployeeResponse](t, rec)
	if emp.DepartmentID == nil || *emp.DepartmentID != dept.ID() {
		t.Fatalf("expected department_id %d, got %v", dept.ID(), emp.DepartmentID)
	}
}

func TestGetEmployeeErrors(t *testing.T) {
	router, _ := newDirectoryRouter(t)

	testutil.AssertStatusAndError(t, testutil.Get(router, "/employees/abc"), http.StatusBadRequest, "invalid_input")
	testutil.AssertStatusAndError(t, testutil.Get(router, "/employees/0"), http.StatusBadRequest, "invalid_input")
	testutil.AssertStatusAndError(t, testutil.Get(router, "/departments/404"), http.StatusNotFound, "not_found")
}

type brokenService struct{ Service }

func (brokenService) Employee(context.Context, int64) (*models.Employee, error) {
	return nil, errors.New("connection reset")
}

func TestGetEmployeeStoreFailure(t *testing.T) {
	r := chi.NewRouter()
	New(brokenService{}, slog.New(slog.DiscardHandler)).Register(r)

	rec := testutil.Get(r, "/employees/1")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := testutil.UnmarshalErrorResponse(t, rec)
	if _, ok := body["error_description"]; ok {
		t.Fatalf("expected no description for a server failure")
	}
}
