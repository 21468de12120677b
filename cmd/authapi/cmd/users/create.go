package users

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/cmd/cmdutil"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/config"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/db/models"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/identity"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/repository"
)

// DoctorInput is the optional doctor profile created alongside the account.
type DoctorInput struct {
	Specialization string
	Department     string
	LicenseNumber  string
	EmployeeID     string
}

// PatientInput is the optional patient profile created alongside the account.
type PatientInput struct {
	DateOfBirth     string
	InsuranceNumber string
}

// CreateInput describes a new account.
type CreateInput struct {
	Email          string
	Username       string
	FullName       string
	Password       string
	Roles          []string
	EmailConfirmed bool
	Claims         map[string]string
	Doctor         DoctorInput
	Patient        PatientInput
}

var (
	input        CreateInput
	passwordFlag string
	stdinFlag    bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user account",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := passwordFlag
		if stdinFlag {
			// Read password from stdin
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		in := input
		in.Password = password

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := cmd.Context()
		stack, err := cmdutil.NewStack(ctx, cfg)
		if err != nil {
			return err
		}
		defer stack.Close()

		user, err := Create(ctx, stack.Repos, in)
		if err != nil {
			return err
		}

		fmt.Println("User created successfully!")
		fmt.Println("----------------------------------------")
		fmt.Printf("User ID: %s\n", user.ID)
		fmt.Printf("Email: %s\n", user.Email)
		fmt.Printf("Username: %s\n", user.Username)
		fmt.Printf("Roles: %s\n", strings.Join(in.Roles, ", "))
		fmt.Println("----------------------------------------")
		return nil
	},
}

// Create validates in, then stores the account, its roles, its extra claims
// and the doctor or patient profile matching its roles.
func Create(ctx context.Context, repos cmdutil.Repositories, in CreateInput) (*models.User, error) {
	if in.Email == "" {
		return nil, fmt.Errorf("--email flag is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, fmt.Errorf("invalid email format: %w", err)
	}
	if len(in.Roles) == 0 {
		return nil, fmt.Errorf("at least one role must be specified using --role")
	}
	if in.Password == "" {
		return nil, fmt.Errorf("password is required (use --password or --stdin)")
	}
	if in.Username == "" {
		in.Username = in.Email
	}

	var dob *time.Time
	if in.Patient.DateOfBirth != "" {
		parsed, err := time.Parse(claims.DateLayout, in.Patient.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("invalid --date-of-birth %q: expected yyyy-mm-dd", in.Patient.DateOfBirth)
		}
		dob = &parsed
	}

	roles, err := resolveRoles(ctx, repos.Roles, in.Roles)
	if err != nil {
		return nil, err
	}

	for _, check := range []struct {
		label string
		find  func(context.Context, string) (*models.User, error)
		value string
	}{
		{"email", repos.Users.GetByEmail, in.Email},
		{"username", repos.Users.GetByUsername, in.Username},
	} {
		_, err := check.find(ctx, check.value)
		if err == nil {
			return nil, fmt.Errorf("user with %s %q already exists", check.label, check.value)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to check %s uniqueness: %w", check.label, err)
		}
	}

	hash, err := identity.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("password rejected: %w", err)
	}

	user := &models.User{
		Username:       in.Username,
		Email:          in.Email,
		EmailConfirmed: in.EmailConfirmed,
		FullName:       in.FullName,
		PasswordHash:   hash,
		SecurityStamp:  identity.NewSecurityStamp(),
		LockoutEnabled: true,
	}
	if err := repos.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	for _, role := range roles {
		if err := repos.UserRoles.Assign(ctx, user.ID, role.ID); err != nil {
			return nil, fmt.Errorf("failed to assign role '%s': %w", role.Name, err)
		}
	}

	for claimType, value := range in.Claims {
		if err := repos.UserClaims.Add(ctx, &models.UserClaim{UserID: user.ID, ClaimType: claimType, ClaimValue: value}); err != nil {
			return nil, fmt.Errorf("failed to store claim '%s': %w", claimType, err)
		}
	}

	displayName := in.FullName
	if displayName == "" {
		displayName = in.Username
	}
	for _, role := range roles {
		switch role.Name {
		case claims.RoleDoctor:
			doctor := &models.Doctor{
				UserID:         &user.ID,
				Name:           displayName,
				Specialization: in.Doctor.Specialization,
				Department:     in.Doctor.Department,
				LicenseNumber:  in.Doctor.LicenseNumber,
				EmployeeID:     in.Doctor.EmployeeID,
			}
			if err := repos.Profiles.CreateDoctor(ctx, doctor); err != nil {
				return nil, fmt.Errorf("failed to create doctor profile: %w", err)
			}
		case claims.RolePatient:
			patient := &models.Patient{
				UserID:          &user.ID,
				Name:            displayName,
				Email:           in.Email,
				DateOfBirth:     dob,
				InsuranceNumber: in.Patient.InsuranceNumber,
			}
			if err := repos.Profiles.CreatePatient(ctx, patient); err != nil {
				return nil, fmt.Errorf("failed to create patient profile: %w", err)
			}
		}
	}

	return user, nil
}

func resolveRoles(ctx context.Context, roles repository.RoleRepository, names []string) ([]models.Role, error) {
	var (
		found   []models.Role
		invalid []string
	)
	for _, name := range names {
		role, err := roles.GetByName(ctx, name)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			invalid = append(invalid, name)
		case err != nil:
			return nil, fmt.Errorf("failed to fetch role %s: %w", name, err)
		default:
			found = append(found, *role)
		}
	}
	if len(invalid) == 0 {
		return found, nil
	}

	all, err := roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	valid := make([]string, len(all))
	for i, role := range all {
		valid[i] = role.Name
	}
	return nil, fmt.Errorf("invalid role(s): %s\nValid roles are: %s",
		strings.Join(invalid, ", "),
		strings.Join(valid, ", "))
}
