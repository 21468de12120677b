package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/bunx"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/uptrace/bun"
)

// BunProfileRepository implements ProfileRepository using Bun ORM
type BunProfileRepository struct {
	db *bun.DB
}

// NewBunProfileRepository creates a new Bun-based profile repository
func NewBunProfileRepository(db *bun.DB) ProfileRepository {
	return &BunProfileRepository{db: db}
}

// CreateDoctor inserts a doctor profile
func (r *BunProfileRepository) CreateDoctor(ctx context.Context, doctor *models.Doctor) error {
	if doctor.ID == "" {
		doctor.ID = bunx.NewUUIDv7()
	}
	if _, err := r.db.NewInsert().Model(doctor).Exec(ctx); err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

// CreatePatient inserts a patient profile
func (r *BunProfileRepository) CreatePatient(ctx context.Context, patient *models.Patient) error {
	if patient.ID == "" {
		patient.ID = bunx.NewUUIDv7()
	}
	if _, err := r.db.NewInsert().Model(patient).Exec(ctx); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

// GetDoctorByUserID retrieves the doctor profile linked to a user
func (r *BunProfileRepository) GetDoctorByUserID(ctx context.Context, userID string) (*models.Doctor, error) {
	doctor := new(models.Doctor)
	err := r.db.NewSelect().
		Model(doctor).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("doctor for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("get doctor by user: %w", err)
	}
	return doctor, nil
}

// GetPatientByUserID retrieves the patient profile linked to a user
func (r *BunProfileRepository) GetPatientByUserID(ctx context.Context, userID string) (*models.Patient, error) {
	patient := new(models.Patient)
	err := r.db.NewSelect().
		Model(patient).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("patient for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("get patient by user: %w", err)
	}
	return patient, nil
}
