package handler

import (
	"time"

	"projects/internal/staff/models"
)

type EmployeeResponse struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	HireDate     time.Time `json:"hire_date"`
	Wage         float64   `json:"wage"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	IsHead       bool      `json:"is_head"`
}

type DepartmentResponse struct {
	ID      int64              `json:"id"`
	Name    string             `json:"name"`
	Budget  string             `json:"budget"`
	HeadID  *int64             `json:"head_id,omitempty"`
	Members []EmployeeResponse `json:"members"`
}

func employeeResponse(e *models.Employee) EmployeeResponse {
	resp := EmployeeResponse{
		ID:        e.ID(),
		Email:     e.Email(),
		FirstName: e.FirstName(),
		LastName:  e.LastName(),
		HireDate:  e.HireDate(),
		Wage:      e.Wage(),
		IsHead:    e.IsHead(),
	}
	if d := e.Department(); d != nil {
		id := d.ID()
		resp.DepartmentID = &id
	}
	return resp
}

func departmentResponse(d *models.Department, members []*models.Employee) DepartmentResponse {
	resp := DepartmentResponse{
		ID:      d.ID(),
		Name:    d.Name(),
		Budget:  d.Budget().StringFixed(2),
		Members: make([]EmployeeResponse, len(members)),
	}
	if head := d.Head(); head != nil {
		id := head.ID()
		resp.HeadID = &id
	}
	for i, m := range members {
		resp.Members[i] = employeeResponse(m)
	}
	return resp
}
