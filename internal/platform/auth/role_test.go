package auth

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"Patient", RolePatient, true},
		{"Doctor", RoleDoctor, true},
		{"Hospital Admin", RoleHospitalAdmin, true},
		{"hospital admin", "", false},
		{"", "", false},
		{"admin", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRole(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDashboardPath(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleDoctor, "/doctor/dashboard"},
		{RoleHospitalAdmin, "/admin/dashboard"},
		{RolePatient, "/patient/dashboard"},
		{Role("Nurse"), "/"},
		{"", "/"},
	}
	for _, tt := range tests {
		if got := DashboardPath(tt.role); got != tt.want {
			t.Errorf("DashboardPath(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range AllRoles {
		if !r.Valid() {
			t.Errorf("expected %q to be valid", r)
		}
	}
	if Role("Nurse").Valid() {
		t.Error("expected Nurse to be invalid")
	}
}
