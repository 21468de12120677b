package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/authz"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
)

// PatientIDParam is the URL parameter handed to resource-bound policies.
const PatientIDParam = "patientId"

const (
	appointmentsPath   = "/api/appointments"
	patientRecordsPath = "/api/patientrecords"
	testAuthPath       = "/api/testauth"
)

// DefaultBindings binds every /api route to the policies guarding it.
// Routes missing here are denied by the authz middleware.
func DefaultBindings() []authz.Binding {
	return []authz.Binding{
		{Method: http.MethodGet, Path: appointmentsPath, Policies: []string{authz.PolicyRequireHospitalRole}},

		{Method: http.MethodGet, Path: patientRecordsPath + "/admin-dashboard", Policies: []string{authz.PolicyRequireAdminRole}},
		{Method: http.MethodPut, Path: patientRecordsPath + "/patient/{patientId}/record", Policies: []string{authz.PolicyCanEditPatientRecords, authz.PolicyWorkingHours}},
		{Method: http.MethodGet, Path: patientRecordsPath + "/doctor-schedule", Policies: []string{authz.PolicyRequireAdminOrDoctor}},
		{Method: http.MethodDelete, Path: patientRecordsPath + "/patient/{patientId}", Policies: []string{authz.PolicyCanEditPatientRecords}},

		{Method: http.MethodGet, Path: testAuthPath + "/profile", Policies: []string{authz.PolicyAuthenticated}},
		{Method: http.MethodGet, Path: testAuthPath + "/admin-only", Policies: []string{authz.PolicyRequireAdminRole}},
		{Method: http.MethodGet, Path: testAuthPath + "/doctor-only", Policies: []string{authz.PolicyRequireDoctorRole}},
		{Method: http.MethodGet, Path: testAuthPath + "/patient-only", Policies: []string{authz.PolicyRequirePatientRole}},
		{Method: http.MethodGet, Path: testAuthPath + "/staff-only", Policies: []string{authz.PolicyRequireAdminOrDoctor}},
		{Method: http.MethodGet, Path: testAuthPath + "/custom-policy", Policies: []string{authz.PolicyRequireEmailConfirmed}},
	}
}

func mountAppointments(r chi.Router) {
	r.Get(appointmentsPath, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "This is a protected endpoint."})
	})
}

func mountPatientRecords(r chi.Router) {
	r.Get(patientRecordsPath+"/admin-dashboard", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Admin dashboard data"})
	})
	r.Put(patientRecordsPath+"/patient/{patientId}/record", func(w http.ResponseWriter, r *http.Request) {
		id, ok := patientID(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Updated patient %d record", id)})
	})
	r.Get(patientRecordsPath+"/doctor-schedule", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Doctor schedule"})
	})
	r.Delete(patientRecordsPath+"/patient/{patientId}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := patientID(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Deleted patient %d", id)})
	})
}

func patientID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, PatientIDParam))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "patientId must be an integer")
		return 0, false
	}
	return id, true
}

type claimView struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type profileResponse struct {
	UserID string      `json:"userId"`
	Email  string      `json:"email,omitempty"`
	Name   string      `json:"name,omitempty"`
	Roles  []string    `json:"roles"`
	Claims []claimView `json:"claims"`
}

func mountTestAuth(r chi.Router) {
	r.Get(testAuthPath+"/profile", func(w http.ResponseWriter, r *http.Request) {
		p, _ := claims.FromContext(r.Context())
		resp := profileResponse{UserID: p.Subject, Roles: p.Roles(), Claims: []claimView{}}
		resp.Email, _ = p.First(claims.KindEmail.String())
		resp.Name, _ = p.First(claims.KindName.String())
		if resp.Roles == nil {
			resp.Roles = []string{}
		}
		for _, c := range p.Claims {
			resp.Claims = append(resp.Claims, claimView{Type: c.Name(), Value: c.Value})
		}
		writeJSON(w, http.StatusOK, resp)
	})

	messages := map[string]string{
		"/admin-only":    "This is admin-only content",
		"/doctor-only":   "This is doctor-only content",
		"/patient-only":  "This is patient-only content",
		"/staff-only":    "This is staff-only content (Admin or Doctor)",
		"/custom-policy": "This requires email confirmed policy",
	}
	for suffix, message := range messages {
		r.Get(testAuthPath+suffix, func(w http.ResponseWriter, r *http.Request) {
			p, _ := claims.FromContext(r.Context())
			user, _ := p.First(claims.KindName.String())
			writeJSON(w, http.StatusOK, map[string]string{"message": message, "user": user})
		})
	}
}
