package models

import (
	_ "embed"
	"time"

	"github.com/shopspring/decimal"

	"projects/internal/serdes"
)

// SchemaSQL creates the directory tables on a SQL row store.
//
//go:embed schema.sql
var SchemaSQL string

var (
	EmployeeID       = serdes.Primary("id", (*Employee).ID)
	EmployeeHireDate = serdes.Immutable("hire_date", (*Employee).HireDate)
	EmployeeEmail    = serdes.UniqueMutable("email", (*Employee).Email,
		func(e *Employee, v string) { e.email = v })
	EmployeeFirstName = serdes.Mutable("first_name", (*Employee).FirstName,
		func(e *Employee, v string) { e.firstName = v })
	EmployeeLastName = serdes.Mutable("last_name", (*Employee).LastName,
		func(e *Employee, v string) { e.lastName = v })
	EmployeePassword = serdes.Mutable("password", (*Employee).PasswordHash,
		func(e *Employee, v string) { e.password = v })
	EmployeeWage = serdes.Mutable("wage", (*Employee).Wage,
		func(e *Employee, v float64) { e.wage = v })
	EmployeeDepartment = serdes.Foreign("department_id", DepartmentID,
		(*Employee).Department,
		func(e *Employee, d *Department) { e.department = d })
)

var (
	DepartmentID   = serdes.Primary("id", (*Department).ID)
	DepartmentName = serdes.UniqueMutable("name", (*Department).Name,
		func(d *Department, v string) { d.name = v })
	DepartmentBudget = serdes.Mutable("budget", (*Department).Budget,
		func(d *Department, v decimal.Decimal) { d.budget = v })
	DepartmentHead = serdes.Foreign("head_id", EmployeeID,
		(*Department).Head,
		func(d *Department, e *Employee) { d.head = e })
)

var (
	MeetingRoomID   = serdes.Primary("id", (*MeetingRoom).ID)
	MeetingRoomName = serdes.UniqueMutable("name", (*MeetingRoom).Name,
		func(r *MeetingRoom, v string) { r.name = v })
	MeetingRoomCapacity = serdes.Mutable("capacity", (*MeetingRoom).Capacity,
		func(r *MeetingRoom, v int) { r.capacity = v })
	MeetingRoomArea = serdes.Mutable("area", (*MeetingRoom).Area,
		func(r *MeetingRoom, v float32) { r.area = v })
	MeetingRoomWheelchairAccess = serdes.Mutable("wheelchair_access", (*MeetingRoom).WheelchairAccess,
		func(r *MeetingRoom, v bool) { r.wheelchairAccess = v })
)

var (
	BookingID       = serdes.Primary("id", (*MeetingRoomBooking).ID)
	BookingEmployee = serdes.Foreign("employee_id", EmployeeID,
		(*MeetingRoomBooking).Employee,
		func(b *MeetingRoomBooking, e *Employee) { b.employee = e })
	BookingRoom = serdes.Foreign("room_id", MeetingRoomID,
		(*MeetingRoomBooking).Room,
		func(b *MeetingRoomBooking, r *MeetingRoom) { b.room = r })
	BookingTime = serdes.Mutable("time", (*MeetingRoomBooking).Time,
		func(b *MeetingRoomBooking, v time.Time) { b.time = v })
)

// Schemas holds the directory's schemas, all built against one engine.
type Schemas struct {
	Employees    *serdes.Schema[Employee, int64]
	Departments  *serdes.Schema[Department, int64]
	MeetingRooms *serdes.Schema[MeetingRoom, int64]
	Bookings     *serdes.Schema[MeetingRoomBooking, int64]
}

// Register builds the four schemas on e. It fails if any of the entity types
// or tables is already registered there.
func Register(e *serdes.Engine) (*Schemas, error) {
	employees, err := serdes.Define[Employee, int64]("employees").
		Primary(EmployeeID).
		Fields(EmployeeHireDate, EmployeeEmail, EmployeeFirstName, EmployeeLastName,
			EmployeePassword, EmployeeWage, EmployeeDepartment).
		Construct(serdes.Construct2(restoreEmployee)).
		Build(e)
	if err != nil {
		return nil, err
	}
	departments, err := serdes.Define[Department, int64]("departments").
		Primary(DepartmentID).
		Fields(DepartmentName, DepartmentBudget, DepartmentHead).
		Construct(serdes.Construct1(restoreDepartment)).
		Build(e)
	if err != nil {
		return nil, err
	}
	rooms, err := serdes.Define[MeetingRoom, int64]("meeting_rooms").
		Primary(MeetingRoomID).
		Fields(MeetingRoomName, MeetingRoomCapacity, MeetingRoomArea, MeetingRoomWheelchairAccess).
		Construct(serdes.Construct1(restoreMeetingRoom)).
		Build(e)
	if err != nil {
		return nil, err
	}
	bookings, err := serdes.Define[MeetingRoomBooking, int64]("meeting_room_bookings").
		Primary(BookingID).
		Fields(BookingEmployee, BookingRoom, BookingTime).
		Construct(serdes.Construct1(restoreBooking)).
		Build(e)
	if err != nil {
		return nil, err
	}
	return &Schemas{
		Employees:    employees,
		Departments:  departments,
		MeetingRooms: rooms,
		Bookings:     bookings,
	}, nil
}

// UniqueColumns lists, per table, the columns whose values must not repeat.
// Stores that enforce uniqueness themselves (memory, redis) are configured from it.
func UniqueColumns() map[string][]string {
	return map[string][]string{
		"employees":     {EmployeeEmail.Name()},
		"departments":   {DepartmentName.Name()},
		"meeting_rooms": {MeetingRoomName.Name()},
	}
}
