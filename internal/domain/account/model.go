package account

import "strings"

// Genders offered by the registration form.
var Genders = []string{"Male", "Female", "Other"}

type LoginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

type LoginView struct {
	Email string
}

// RegisterForm is the patient self-registration form.
type RegisterForm struct {
	Email           string `form:"email"`
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
	FirstName       string `form:"first_name"`
	LastName        string `form:"last_name"`
	DateOfBirth     string `form:"dob"`
	Gender          string `form:"gender"`
	BloodType       string `form:"blood_type"`
	ContactNumber   string `form:"contact_number"`
	Address         string `form:"address"`
}

type RegisterView struct {
	Form    RegisterForm
	Genders []string
	Done    bool
}

type userIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type patientProfileIn struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	DateOfBirth   string `json:"date_of_birth,omitempty"`
	Gender        string `json:"gender,omitempty"`
	BloodType     string `json:"blood_type,omitempty"`
	ContactNumber string `json:"contact_number,omitempty"`
	Address       string `json:"address,omitempty"`
}

// RegisterRequest is the body of POST /auth/register. Optional profile
// fields left blank are omitted.
type RegisterRequest struct {
	UserIn           userIn           `json:"user_in"`
	PatientProfileIn patientProfileIn `json:"patient_profile_in"`
}

func (f RegisterForm) ToRequest() RegisterRequest {
	return RegisterRequest{
		UserIn: userIn{
			Email:    strings.TrimSpace(f.Email),
			Password: f.Password,
			Role:     "Patient",
		},
		PatientProfileIn: patientProfileIn{
			FirstName:     strings.TrimSpace(f.FirstName),
			LastName:      strings.TrimSpace(f.LastName),
			DateOfBirth:   strings.TrimSpace(f.DateOfBirth),
			Gender:        strings.TrimSpace(f.Gender),
			BloodType:     strings.TrimSpace(f.BloodType),
			ContactNumber: strings.TrimSpace(f.ContactNumber),
			Address:       strings.TrimSpace(f.Address),
		},
	}
}

// Redacted drops the passwords so a failed form can be re-rendered.
func (f RegisterForm) Redacted() RegisterForm {
	f.Password = ""
	f.ConfirmPassword = ""
	return f
}
