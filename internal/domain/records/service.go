package records

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/prms/portal/internal/platform/apiclient"
)

var ErrMissingPatient = errors.New("no patient selected")

// Gateway is the part of the API client the records pages use.
type Gateway interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	PostJSON(ctx context.Context, path string, in, out any) error
}

type Service struct {
	api Gateway
}

func NewService(api Gateway) *Service {
	return &Service{api: api}
}

// ListForPatient returns every record of a patient.
func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]Record, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, ErrMissingPatient
	}
	var out []Record
	if err := s.api.Get(ctx, "/records/"+url.PathEscape(patientID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a single record.
func (s *Service) Get(ctx context.Context, recordID string) (*Record, error) {
	var out Record
	if err := s.api.Get(ctx, "/records/"+url.PathEscape(recordID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create submits a new record for patientID.
func (s *Service) Create(ctx context.Context, patientID string, form NewRecordForm) error {
	if strings.TrimSpace(patientID) == "" {
		return ErrMissingPatient
	}
	return s.api.PostJSON(ctx, "/records/", createRequest{RecordIn: form.ToRecordIn(patientID)}, nil)
}

// CreateErrorMessage renders a failed Create for the form page.
func CreateErrorMessage(err error) string {
	return "Failed to create record: " + apiclient.Message(err, "; ", "Network Error")
}
