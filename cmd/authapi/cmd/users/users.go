package users

import "github.com/spf13/cobra"

// UsersCmd is the parent command for user management operations
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
	Long:  `Commands for managing hospital user accounts directly against the database.`,
}

func init() {
	createCmd.Flags().StringVar(&input.Email, "email", "", "Email address of the user")
	createCmd.Flags().StringVar(&input.Username, "username", "", "Username (defaults to the email address)")
	createCmd.Flags().StringVar(&input.FullName, "full-name", "", "Full name of the user")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Password for the user (use --stdin to avoid shell history)")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read password from stdin instead of --password flag")
	createCmd.Flags().StringSliceVar(&input.Roles, "role", []string{}, "Role(s) to assign to the user (required)")
	createCmd.Flags().BoolVar(&input.EmailConfirmed, "email-confirmed", true, "Mark the email address as confirmed")
	createCmd.Flags().StringToStringVar(&input.Claims, "claim", map[string]string{}, "Extra claim(s) to store, as type=value")

	// Role profiles
	createCmd.Flags().StringVar(&input.Doctor.Specialization, "specialization", "", "Doctor specialization")
	createCmd.Flags().StringVar(&input.Doctor.Department, "department", "", "Doctor department")
	createCmd.Flags().StringVar(&input.Doctor.LicenseNumber, "license-number", "", "Doctor license number")
	createCmd.Flags().StringVar(&input.Doctor.EmployeeID, "employee-id", "", "Doctor employee id")
	createCmd.Flags().StringVar(&input.Patient.DateOfBirth, "date-of-birth", "", "Patient date of birth (yyyy-mm-dd)")
	createCmd.Flags().StringVar(&input.Patient.InsuranceNumber, "insurance-number", "", "Patient insurance number")

	UsersCmd.AddCommand(createCmd)
}
