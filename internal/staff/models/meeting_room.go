package models

import (
	"strings"
	"time"

	dErrors "projects/pkg/domain-errors"
)

// MeetingRoom is a bookable room.
type MeetingRoom struct {
	id               int64
	name             string
	capacity         int
	area             float32
	wheelchairAccess bool
}

func NewMeetingRoom(id int64, name string, capacity int, area float32, wheelchairAccess bool) (*MeetingRoom, error) {
	name = strings.TrimSpace(name)
	switch {
	case id <= 0:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "room id must be positive")
	case name == "":
		return nil, dErrors.New(dErrors.CodeInvalidInput, "room name is required")
	case capacity <= 0:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "room capacity must be positive")
	}
	return &MeetingRoom{id: id, name: name, capacity: capacity, area: area, wheelchairAccess: wheelchairAccess}, nil
}

func restoreMeetingRoom(id int64) *MeetingRoom {
	return &MeetingRoom{id: id}
}

func (r *MeetingRoom) ID() int64              { return r.id }
func (r *MeetingRoom) Name() string           { return r.name }
func (r *MeetingRoom) Capacity() int          { return r.capacity }
func (r *MeetingRoom) Area() float32          { return r.area }
func (r *MeetingRoom) WheelchairAccess() bool { return r.wheelchairAccess }

// MeetingRoomBooking reserves a room for an employee at a time.
type MeetingRoomBooking struct {
	id       int64
	employee *Employee
	room     *MeetingRoom
	time     time.Time
}

func NewMeetingRoomBooking(id int64, employee *Employee, room *MeetingRoom, at time.Time) (*MeetingRoomBooking, error) {
	switch {
	case id <= 0:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "booking id must be positive")
	case employee == nil:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "booking needs an employee")
	case room == nil:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "booking needs a room")
	case at.IsZero():
		return nil, dErrors.New(dErrors.CodeInvalidInput, "booking needs a time")
	}
	return &MeetingRoomBooking{id: id, employee: employee, room: room, time: at}, nil
}

func restoreBooking(id int64) *MeetingRoomBooking {
	return &MeetingRoomBooking{id: id}
}

func (b *MeetingRoomBooking) ID() int64           { return b.id }
func (b *MeetingRoomBooking) Employee() *Employee { return b.employee }
func (b *MeetingRoomBooking) Room() *MeetingRoom  { return b.room }
func (b *MeetingRoomBooking) Time() time.Time     { return b.time }

// Reschedule moves the booking. Employee and room stay fixed.
func (b *MeetingRoomBooking) Reschedule(at time.Time) error {
	if at.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "booking needs a time")
	}
	b.time = at
	return nil
}
