package patients

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"unicode/utf8"

	"github.com/prms/portal/internal/platform/apiclient"
)

// MinQueryLen is the shortest query sent to the backend.
const MinQueryLen = 2

var (
	ErrQueryTooShort = errors.New("Please enter at least 2 characters to search.")
	ErrNoMatches     = errors.New("No patients found matching your query.")
)

const msgSearchFailed = "An error occurred during search. Check server logs or permissions."

type Gateway interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

type Service struct {
	api Gateway
}

func NewService(api Gateway) *Service {
	return &Service{api: api}
}

// Search looks patients up by name or email. A 404 from the backend means no
// match and is reported as ErrNoMatches.
func (s *Service) Search(ctx context.Context, query string) ([]Summary, error) {
	if utf8.RuneCountInString(query) < MinQueryLen {
		return nil, ErrQueryTooShort
	}
	var out []Summary
	err := s.api.Get(ctx, "/users/patients/search", url.Values{"query": {query}}, &out)
	if apiclient.StatusCode(err) == http.StatusNotFound {
		return nil, ErrNoMatches
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SearchErrorMessage renders a failed Search for the search page.
func SearchErrorMessage(err error) string {
	if errors.Is(err, ErrQueryTooShort) || errors.Is(err, ErrNoMatches) {
		return err.Error()
	}
	return apiclient.Message(err, "; ", msgSearchFailed)
}
