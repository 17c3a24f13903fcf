package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// PersonalData carries the personal section of a case
type PersonalData struct {
	LastName    string      `json:"last_name"`
	FirstName   string      `json:"first_name"`
	MiddleName  string      `json:"middle_name,omitempty"`
	BirthDate   string      `json:"birth_date"`
	SNILS       string      `json:"snils"`
	Gender      string      `json:"gender"`
	Citizenship string      `json:"citizenship"`
	Dependents  int         `json:"dependents"`
	NameChange  *NameChange `json:"name_change_info,omitempty"`
}

// NameChange documents a past change of the full name
type NameChange struct {
	OldFullName string `json:"old_full_name"`
	DateChanged string `json:"date_changed"`
}

// WorkRecord represents one employment entry of a work book
type WorkRecord struct {
	Organization string `json:"organization"`
	Position     string `json:"position,omitempty"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date,omitempty"`
}

// WorkExperience carries the employment section of a case
type WorkExperience struct {
	TotalYears int          `json:"total_years"`
	Records    []WorkRecord `json:"records,omitempty"`
}

// Disability carries the disability section of a case, if any
type Disability struct {
	Group      string `json:"group"`
	Date       string `json:"date"`
	CertNumber string `json:"cert_number"`
}

// CaseCreate is the structured payload of a case creation request
type CaseCreate struct {
	PensionTypeID        string         `json:"pension_type_id"`
	PersonalData         PersonalData   `json:"personal_data"`
	WorkExperience       WorkExperience `json:"work_experience"`
	Disability           *Disability    `json:"disability,omitempty"`
	PensionPoints        float64        `json:"pension_points"`
	Benefits             []string       `json:"benefits"`
	HasIncorrectDocument bool           `json:"has_incorrect_document"`
}

// CreateCase submits a new case for adjudication and returns its handle.
// Date fields collected in display format (DD.MM.YYYY) are normalized to the
// wire format (YYYY-MM-DD) before submission; the caller's value is not
// mutated.
func (client *Client) CreateCase(ctx context.Context, identity Identity, create *CaseCreate) (*CaseCreated, error) {
	payload := normalizeCaseDates(*create)

	body, err := client.do(ctx, http.MethodPost, "/api/v1/cases", identity, requestOptions{jsonBody: &payload})
	if err != nil {
		return nil, err
	}
	created := new(CaseCreated)
	if err := json.Unmarshal(body, created); err != nil {
		return nil, &ClientError{Op: "decode created case", Err: err}
	}
	return created, nil
}

// normalizeCaseDates returns a copy of the case payload with its date fields
// converted to the wire format
func normalizeCaseDates(create CaseCreate) CaseCreate {
	create.PersonalData.BirthDate = normalizeDate(create.PersonalData.BirthDate)
	if create.Disability != nil {
		disability := *create.Disability
		disability.Date = normalizeDate(disability.Date)
		create.Disability = &disability
	}
	return create
}

const (
	displayDateFormat = "02.01.2006"
	wireDateFormat    = "2006-01-02"
)

// normalizeDate converts a display-format date (DD.MM.YYYY) to the wire
// format (YYYY-MM-DD). A value that does not parse as a display date is
// submitted unchanged so that the backend's own validation reports it; this
// leniency also keeps already-normalized values intact.
func normalizeDate(value string) string {
	if value == "" {
		return value
	}
	parsed, err := time.Parse(displayDateFormat, value)
	if err != nil {
		log.Warn().Str("value", value).Msg("date field is not in display format, submitting unchanged")
		return value
	}
	return parsed.Format(wireDateFormat)
}
