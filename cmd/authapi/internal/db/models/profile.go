package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Doctor is the clinical profile linked to a user holding the Doctor role.
type Doctor struct {
	bun.BaseModel `bun:"table:doctors,alias:d"`

	ID             string    `bun:"id,pk,type:uuid"`
	UserID         *string   `bun:"user_id,type:uuid,unique"` // FK to users(id)
	Name           string    `bun:"name,notnull"`
	Specialization string    `bun:"specialization"`
	Bio            string    `bun:"bio"`
	Phone          string    `bun:"phone"`
	LicenseNumber  string    `bun:"license_number"`
	Department     string    `bun:"department"`
	EmployeeID     string    `bun:"employee_id"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Patient is the profile linked to a user holding the Patient role.
type Patient struct {
	bun.BaseModel `bun:"table:patients,alias:p"`

	ID              string     `bun:"id,pk,type:uuid"`
	UserID          *string    `bun:"user_id,type:uuid,unique"` // FK to users(id)
	Name            string     `bun:"name,notnull"`
	Email           string     `bun:"email"`
	Phone           string     `bun:"phone"`
	DateOfBirth     *time.Time `bun:"date_of_birth"`
	InsuranceNumber string     `bun:"insurance_number"`
	CreatedAt       time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt       time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}
