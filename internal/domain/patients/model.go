package patients

import "github.com/prms/portal/internal/platform/apiclient"

// Summary is one row of the patient search results.
type Summary struct {
	UserID        apiclient.ID `json:"user_id"`
	FullName      string       `json:"full_name"`
	DateOfBirth   string       `json:"date_of_birth"`
	ContactNumber string       `json:"contact_number"`
}

type SearchView struct {
	Query   string
	Results []Summary
}
