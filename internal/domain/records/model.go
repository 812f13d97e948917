package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prms/portal/internal/platform/apiclient"
)

// Medication is one prescription line of a record.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency,omitempty"`
}

// Medications decodes either a JSON array or a string holding a JSON array;
// the backend stores the column as text and does not always decode it.
type Medications []Medication

func (m *Medications) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}

	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		inner = strings.TrimSpace(inner)
		if inner == "" || inner == "null" {
			*m = nil
			return nil
		}
		data = []byte(inner)
	}

	var list []Medication
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("decode medications: %w", err)
	}
	*m = list
	return nil
}

// Record is a medical record as returned by the backend.
type Record struct {
	ID               apiclient.ID `json:"id"`
	PatientID        apiclient.ID `json:"patient_id"`
	DoctorID         apiclient.ID `json:"doctor_id"`
	HospitalID       apiclient.ID `json:"hospital_id"`
	DateOfVisit      string       `json:"date_of_visit"`
	ChiefComplaint   string       `json:"chief_complaint"`
	Diagnosis        string       `json:"diagnosis"`
	TreatmentSummary string       `json:"treatment_summary"`
	Notes            string       `json:"notes"`
	Medications      Medications  `json:"medications"`
}

// VisitDate formats date_of_visit as a calendar date, falling back to the raw
// value when it is not a recognised timestamp.
func (r Record) VisitDate() string {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
		if t, err := time.Parse(layout, r.DateOfVisit); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return r.DateOfVisit
}

// NewRecordForm is the doctor's record entry form.
type NewRecordForm struct {
	ChiefComplaint   string `form:"chief_complaint"`
	Diagnosis        string `form:"diagnosis"`
	TreatmentSummary string `form:"treatment_summary"`
	Notes            string `form:"notes"`
	MedicationName   string `form:"medication_name"`
	MedicationDosage string `form:"medication_dosage"`
}

// RecordIn is the body of POST /records/ under "record_in".
type RecordIn struct {
	PatientID        string       `json:"patient_id"`
	ChiefComplaint   string       `json:"chief_complaint"`
	Diagnosis        string       `json:"diagnosis"`
	TreatmentSummary string       `json:"treatment_summary"`
	Notes            string       `json:"notes"`
	Medications      []Medication `json:"medications"`
}

type createRequest struct {
	RecordIn RecordIn `json:"record_in"`
}

// ToRecordIn builds the payload. A medication is sent only when both its name
// and dosage were entered.
func (f NewRecordForm) ToRecordIn(patientID string) RecordIn {
	in := RecordIn{
		PatientID:        patientID,
		ChiefComplaint:   f.ChiefComplaint,
		Diagnosis:        f.Diagnosis,
		TreatmentSummary: f.TreatmentSummary,
		Notes:            f.Notes,
		Medications:      []Medication{},
	}
	name := strings.TrimSpace(f.MedicationName)
	dosage := strings.TrimSpace(f.MedicationDosage)
	if name != "" && dosage != "" {
		in.Medications = append(in.Medications, Medication{Name: name, Dosage: dosage})
	}
	return in
}

// ListView is the data of the records list page.
type ListView struct {
	PatientID string
	Heading   string
	Records   []Record
	CanAdd    bool
	JustAdded bool
}

// DetailView is the data of the record detail page.
type DetailView struct {
	RecordID string
	Record   *Record
}

// FormView is the data of the new record page.
type FormView struct {
	PatientID string
	Form      NewRecordForm
}
