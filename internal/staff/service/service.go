package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"projects/internal/platform/metrics"
	"projects/internal/rowstore"
	"projects/internal/serdes"
	"projects/internal/staff/models"
	"projects/internal/staff/secrets"
	dErrors "projects/pkg/domain-errors"
)

// Clock returns the current time.
type Clock func() time.Time

// Directory is the staff directory: people, departments and room bookings,
// all loaded and saved through one mapping engine.
type Directory struct {
	schemas  *models.Schemas
	ids      rowstore.MaxFinder
	logger   *slog.Logger
	clock    Clock
	metrics  *metrics.Directory
	hashCost int
}

type Option func(d *Directory)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Directory) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock sets the source of hire dates.
func WithClock(clock Clock) Option {
	return func(d *Directory) {
		if clock != nil {
			d.clock = clock
		}
	}
}

func WithMetrics(m *metrics.Directory) Option {
	return func(d *Directory) {
		d.metrics = m
	}
}

// WithHashCost sets the bcrypt cost for new passwords.
func WithHashCost(cost int) Option {
	return func(d *Directory) {
		d.hashCost = cost
	}
}

// New registers the directory schemas on engine and returns the service.
// The engine's store must implement rowstore.MaxFinder; new ids are one past
// the highest stored id.
func New(engine *serdes.Engine, opts ...Option) (*Directory, error) {
	ids, ok := engine.Store().(rowstore.MaxFinder)
	if !ok {
		return nil, dErrors.New(dErrors.CodeConfiguration, "row store cannot allocate ids")
	}
	schemas, err := models.Register(engine)
	if err != nil {
		return nil, err
	}
	d := &Directory{
		schemas:  schemas,
		ids:      ids,
		logger:   slog.New(slog.DiscardHandler),
		clock:    time.Now,
		hashCost: secrets.DefaultCost,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Directory) Schemas() *models.Schemas { return d.schemas }

func (d *Directory) Employee(ctx context.Context, id int64) (*models.Employee, error) {
	return d.schemas.Employees.Deserialize(ctx, id)
}

func (d *Directory) Department(ctx context.Context, id int64) (*models.Department, error) {
	return d.schemas.Departments.Deserialize(ctx, id)
}

func (d *Directory) MeetingRoom(ctx context.Context, id int64) (*models.MeetingRoom, error) {
	return d.schemas.MeetingRooms.Deserialize(ctx, id)
}

func (d *Directory) Booking(ctx context.Context, id int64) (*models.MeetingRoomBooking, error) {
	return d.schemas.Bookings.Deserialize(ctx, id)
}

// EmployeeByEmail finds an employee by address, case-insensitively.
func (d *Directory) EmployeeByEmail(ctx context.Context, email string) (*models.Employee, error) {
	return serdes.FindBy(ctx, d.schemas.Employees, models.EmployeeEmail.Field, normalizeEmail(email))
}

func (d *Directory) EmailExists(ctx context.Context, email string) (bool, error) {
	return d.schemas.Employees.ValueExists(ctx, models.EmployeeEmail.Name(), normalizeEmail(email))
}

// SignIn returns the employee whose password matches. An unknown address is
// CodeNotFound and a wrong password is CodeUnauthorized.
func (d *Directory) SignIn(ctx context.Context, email, password string) (*models.Employee, error) {
	e, err := d.EmployeeByEmail(ctx, email)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			d.metrics.IncrementSignIn("unknown")
			return nil, dErrors.New(dErrors.CodeNotFound, "no employee with that email")
		}
		return nil, err
	}
	if err := secrets.VerifyPassword(password, e.PasswordHash()); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			d.metrics.IncrementSignIn("denied")
			d.logger.InfoContext(ctx, "sign-in denied", "employee_id", e.ID())
		}
		return nil, err
	}
	d.metrics.IncrementSignIn("ok")
	return e, nil
}

// NewHire describes an employee to be hired. DepartmentID zero leaves the
// employee unassigned.
type NewHire struct {
	Email        string
	FirstName    string
	LastName     string
	Password     string
	Wage         float64
	DepartmentID int64
}

// HireEmployee allocates the next id, stamps today's hire date, hashes the
// password and stores the new employee.
func (d *Directory) HireEmployee(ctx context.Context, h NewHire) (*models.Employee, error) {
	taken, err := d.EmailExists(ctx, h.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, dErrors.New(dErrors.CodeConflict, "email is already registered")
	}

	var dept *models.Department
	if h.DepartmentID != 0 {
		if dept, err = d.Department(ctx, h.DepartmentID); err != nil {
			return nil, err
		}
	}
	hash, err := secrets.HashPassword(h.Password, d.hashCost)
	if err != nil {
		return nil, err
	}
	id, err := d.nextID(ctx, d.schemas.Employees.Table(), d.schemas.Employees.PrimaryColumn())
	if err != nil {
		return nil, err
	}
	e, err := models.NewEmployee(id, d.today(), h.Email, h.FirstName, h.LastName, hash, h.Wage)
	if err != nil {
		return nil, err
	}
	e.AssignTo(dept)

	if err := d.schemas.Employees.Serialize(ctx, e); err != nil {
		return nil, err
	}
	d.metrics.IncrementHires()
	d.logger.InfoContext(ctx, "employee hired", "employee_id", e.ID(), "department_id", h.DepartmentID)
	return e, nil
}

func (d *Directory) CreateDepartment(ctx context.Context, name string, budget decimal.Decimal) (*models.Department, error) {
	id, err := d.nextID(ctx, d.schemas.Departments.Table(), d.schemas.Departments.PrimaryColumn())
	if err != nil {
		return nil, err
	}
	dept, err := models.NewDepartment(id, name, budget)
	if err != nil {
		return nil, err
	}
	if err := d.schemas.Departments.Serialize(ctx, dept); err != nil {
		return nil, err
	}
	d.logger.InfoContext(ctx, "department created", "department_id", id)
	return dept, nil
}

// AppointHead makes the employee head of the department and moves them into
// it. Both rows are updated.
func (d *Directory) AppointHead(ctx context.Context, departmentID, employeeID int64) error {
	dept, err := d.Department(ctx, departmentID)
	if err != nil {
		return err
	}
	e, err := d.Employee(ctx, employeeID)
	if err != nil {
		return err
	}
	e.AssignTo(dept)
	dept.AppointHead(e)
	if err := d.schemas.Employees.Serialize(ctx, e); err != nil {
		return err
	}
	return d.schemas.Departments.Serialize(ctx, dept)
}

func (d *Directory) CreateMeetingRoom(ctx context.Context, name string, capacity int, area float32, wheelchairAccess bool) (*models.MeetingRoom, error) {
	id, err := d.nextID(ctx, d.schemas.MeetingRooms.Table(), d.schemas.MeetingRooms.PrimaryColumn())
	if err != nil {
		return nil, err
	}
	room, err := models.NewMeetingRoom(id, name, capacity, area, wheelchairAccess)
	if err != nil {
		return nil, err
	}
	if err := d.schemas.MeetingRooms.Serialize(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (d *Directory) BookRoom(ctx context.Context, employeeID, roomID int64, at time.Time) (*models.MeetingRoomBooking, error) {
	e, err := d.Employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	room, err := d.MeetingRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	id, err := d.nextID(ctx, d.schemas.Bookings.Table(), d.schemas.Bookings.PrimaryColumn())
	if err != nil {
		return nil, err
	}
	b, err := models.NewMeetingRoomBooking(id, e, room, at.UTC().Truncate(time.Second))
	if err != nil {
		return nil, err
	}
	if err := d.schemas.Bookings.Serialize(ctx, b); err != nil {
		return nil, err
	}
	d.metrics.IncrementBookings()
	d.logger.InfoContext(ctx, "room booked", "booking_id", id, "room_id", roomID, "employee_id", employeeID)
	return b, nil
}

// Save writes any directory entity: an insert when its row is new, otherwise
// an update of its mutable fields.
func (d *Directory) Save(ctx context.Context, entity any) error {
	switch e := entity.(type) {
	case *models.Employee:
		return d.schemas.Employees.Serialize(ctx, e)
	case *models.Department:
		return d.schemas.Departments.Serialize(ctx, e)
	case *models.MeetingRoom:
		return d.schemas.MeetingRooms.Serialize(ctx, e)
	case *models.MeetingRoomBooking:
		return d.schemas.Bookings.Serialize(ctx, e)
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "cannot save %T", entity)
	}
}

// Employees lists the members of dept.
func (d *Directory) Employees(ctx context.Context, dept *models.Department) ([]*models.Employee, error) {
	return d.schemas.Employees.FindAll(ctx, models.EmployeeDepartment.Name(), dept.ID())
}

// Bookings lists the rooms e has booked.
func (d *Directory) Bookings(ctx context.Context, e *models.Employee) ([]*models.MeetingRoomBooking, error) {
	return d.schemas.Bookings.FindAll(ctx, models.BookingEmployee.Name(), e.ID())
}

func (d *Directory) IsHead(e *models.Employee) bool {
	return e.IsHead()
}

func (d *Directory) nextID(ctx context.Context, table, column string) (int64, error) {
	highest, ok, err := d.ids.MaxInt(ctx, table, column)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStore, "allocate "+table+" id")
	}
	if !ok {
		return 1, nil
	}
	return highest + 1, nil
}

func (d *Directory) today() time.Time {
	now := d.clock().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
