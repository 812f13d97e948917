package staff

import (
	"strings"

	"github.com/prms/portal/internal/platform/apiclient"
	"github.com/prms/portal/internal/platform/auth"
)

// DefaultJobTitle is used when an administrator account is created without
// a job title.
const DefaultJobTitle = "Hospital Administrator"

// StaffRoles are the account kinds an administrator may create.
var StaffRoles = []auth.Role{auth.RoleDoctor, auth.RoleHospitalAdmin}

// Profile is the subset of GET /users/me/profile the manage page needs.
type Profile struct {
	HospitalID apiclient.ID `json:"hospital_id"`
}

// Form is the staff account form.
type Form struct {
	Role          auth.Role `form:"role"`
	Email         string    `form:"email"`
	Password      string    `form:"password"`
	Specialty     string    `form:"specialty"`
	LicenseNumber string    `form:"license_number"`
	ContactNumber string    `form:"contact_number"`
	JobTitle      string    `form:"job_title"`
}

type userIn struct {
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
}

type doctorProfileIn struct {
	HospitalID    string `json:"hospital_id"`
	Specialty     string `json:"specialty"`
	LicenseNumber string `json:"license_number"`
	ContactNumber string `json:"contact_number,omitempty"`
}

type adminProfileIn struct {
	HospitalID string `json:"hospital_id"`
	JobTitle   string `json:"job_title"`
}

// CreateRequest is the body of POST /users/. ProfileIn is a doctor or an
// administrator profile depending on the role.
type CreateRequest struct {
	UserIn    userIn `json:"user_in"`
	ProfileIn any    `json:"profile_in"`
}

func (f Form) ToRequest(hospitalID string) CreateRequest {
	req := CreateRequest{
		UserIn: userIn{
			Email:    strings.TrimSpace(f.Email),
			Password: f.Password,
			Role:     f.Role,
		},
	}
	if f.Role == auth.RoleDoctor {
		req.ProfileIn = doctorProfileIn{
			HospitalID:    hospitalID,
			Specialty:     strings.TrimSpace(f.Specialty),
			LicenseNumber: strings.TrimSpace(f.LicenseNumber),
			ContactNumber: strings.TrimSpace(f.ContactNumber),
		}
		return req
	}
	title := strings.TrimSpace(f.JobTitle)
	if title == "" {
		title = DefaultJobTitle
	}
	req.ProfileIn = adminProfileIn{HospitalID: hospitalID, JobTitle: title}
	return req
}

// Reset clears everything but the selected role, ready for the next account.
func (f Form) Reset() Form {
	return Form{Role: f.Role}
}

// Analytics is the payload of GET /users/admin/analytics.
type Analytics struct {
	TotalPatients      int64        `json:"total_patients"`
	TotalRecords       int64        `json:"total_records"`
	HospitalID         apiclient.ID `json:"hospital_id"`
	HospitalStaffCount *int64       `json:"hospital_staff_count"`
}

type ManageView struct {
	Form       Form
	HospitalID string
	Roles      []auth.Role
}

type AnalyticsView struct {
	Analytics *Analytics
	AsOf      string
}
