package claims

// Kind enumerates the claim types the system knows about. Anything else is
// carried as KindExtension with its wire name in Claim.Type.
type Kind int

const (
	KindExtension Kind = iota
	KindSubject
	KindName
	KindPreferredUsername
	KindEmail
	KindEmailVerified
	KindPhoneNumber
	KindPhoneNumberVerified
	KindGivenName
	KindFamilyName
	KindFullName
	KindBirthdate
	KindRole
	KindDepartment
	KindEmployeeID
	KindLicenseNumber
	KindPatientID
	KindDoctorID
	KindSpecialization
	KindCanPrescribe
	KindDateOfBirth
	KindAge
	KindAdminLevel
	KindCanManageUsers
	KindCanViewReports
	KindClientType
	KindSecurityStamp
	KindInsuranceNumber
	KindSocialSecurityNumber
)

var wireNames = map[Kind]string{
	KindSubject:              "sub",
	KindName:                 "name",
	KindPreferredUsername:    "preferred_username",
	KindEmail:                "email",
	KindEmailVerified:        "email_verified",
	KindPhoneNumber:          "phone_number",
	KindPhoneNumberVerified:  "phone_number_verified",
	KindGivenName:            "given_name",
	KindFamilyName:           "family_name",
	KindFullName:             "full_name",
	KindBirthdate:            "birthdate",
	KindRole:                 "role",
	KindDepartment:           "department",
	KindEmployeeID:           "employee_id",
	KindLicenseNumber:        "license_number",
	KindPatientID:            "patient_id",
	KindDoctorID:             "doctor_id",
	KindSpecialization:       "specialization",
	KindCanPrescribe:         "can_prescribe",
	KindDateOfBirth:          "date_of_birth",
	KindAge:                  "age",
	KindAdminLevel:           "admin_level",
	KindCanManageUsers:       "can_manage_users",
	KindCanViewReports:       "can_view_reports",
	KindClientType:           "client_type",
	KindSecurityStamp:        "security_stamp",
	KindInsuranceNumber:      "insurance_number",
	KindSocialSecurityNumber: "social_security_number",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(wireNames))
	for k, name := range wireNames {
		m[name] = k
	}
	return m
}()

// String returns the wire name of a known kind, or "" for KindExtension.
func (k Kind) String() string {
	return wireNames[k]
}

// ParseKind maps a wire name to its Kind. Matching is case-sensitive; unknown
// names yield KindExtension.
func ParseKind(name string) Kind {
	if k, ok := kindsByName[name]; ok {
		return k
	}
	return KindExtension
}
