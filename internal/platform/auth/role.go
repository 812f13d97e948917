package auth

// Role is the closed set of portal roles issued by the PRMS backend.
type Role string

const (
	RolePatient       Role = "Patient"
	RoleDoctor        Role = "Doctor"
	RoleHospitalAdmin Role = "Hospital Admin"
)

// AllRoles lists every role the portal recognises.
var AllRoles = []Role{RolePatient, RoleDoctor, RoleHospitalAdmin}

// ParseRole maps a backend role string onto a known Role.
func ParseRole(s string) (Role, bool) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) String() string {
	return string(r)
}

// DashboardPath returns the landing page for a role. Unknown or empty roles
// land on the public home page. Both the router and the header navigation
// resolve dashboards through this function.
func DashboardPath(r Role) string {
	switch r {
	case RoleDoctor:
		return "/doctor/dashboard"
	case RoleHospitalAdmin:
		return "/admin/dashboard"
	case RolePatient:
		return "/patient/dashboard"
	default:
		return "/"
	}
}
