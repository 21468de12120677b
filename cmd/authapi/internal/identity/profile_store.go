package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/repository"
)

// RepositoryProfileStore implements ProfileStore over the profile repository.
type RepositoryProfileStore struct {
	profiles repository.ProfileRepository
}

var _ ProfileStore = (*RepositoryProfileStore)(nil)

// NewProfileStore wraps a profile repository.
func NewProfileStore(profiles repository.ProfileRepository) *RepositoryProfileStore {
	return &RepositoryProfileStore{profiles: profiles}
}

// GetDoctorProfile returns the doctor profile linked to userID.
func (s *RepositoryProfileStore) GetDoctorProfile(ctx context.Context, userID string) (*DoctorProfile, error) {
	doctor, err := s.profiles.GetDoctorByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get doctor profile: %w", err)
	}
	return &DoctorProfile{
		DoctorID:       doctor.ID,
		LicenseNumber:  doctor.LicenseNumber,
		Specialization: doctor.Specialization,
		Department:     doctor.Department,
		EmployeeID:     doctor.EmployeeID,
	}, nil
}

// GetPatientProfile returns the patient profile linked to userID.
func (s *RepositoryProfileStore) GetPatientProfile(ctx context.Context, userID string) (*PatientProfile, error) {
	patient, err := s.profiles.GetPatientByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get patient profile: %w", err)
	}
	return &PatientProfile{
		PatientID:       patient.ID,
		InsuranceNumber: patient.InsuranceNumber,
		DateOfBirth:     patient.DateOfBirth,
	}, nil
}
