package dialog

import (
	"strings"

	"github.com/pensio/consultant-bot/internal/backend"
)

// Draft is the case data a conversation collects before submission
type Draft struct {
	// PensionTypeName is the display name of the chosen pension type, kept
	// for the confirmation message only
	PensionTypeName string

	// Case is the structured payload submitted to the backend
	Case backend.CaseCreate
}

// NewDraft creates an empty draft for the given pension type
func NewDraft(pensionTypeID, pensionTypeName string) *Draft {
	return &Draft{
		PensionTypeName: pensionTypeName,
		Case: backend.CaseCreate{
			PensionTypeID: pensionTypeID,
			Benefits:      []string{},
		},
	}
}

// ApplyExtraction fills draft fields from a completed extraction result.
// Extracted values take precedence over previously collected ones, but a
// missing extracted field never clears a value the user already provided.
// The payload is decoded through the typed document schemas, so a renamed or
// dropped backend field fails here instead of silently vanishing.
func (draft *Draft) ApplyExtraction(documentType string, status *backend.ExtractionStatus) error {
	switch documentType {
	case backend.DocumentPassport:
		data, err := status.Passport()
		if err != nil {
			return err
		}
		draft.applyPassport(data)
	case backend.DocumentSNILS:
		data, err := status.SNILS()
		if err != nil {
			return err
		}
		draft.Case.PersonalData.SNILS = normalizeSNILS(data.Number)
	case backend.DocumentWorkBook:
		data, err := status.WorkBook()
		if err != nil {
			return err
		}
		draft.applyWorkBook(data)
	}
	return nil
}

func (draft *Draft) applyPassport(data *backend.PassportData) {
	personal := &draft.Case.PersonalData
	if data.LastName != "" {
		personal.LastName = data.LastName
	}
	if data.FirstName != "" {
		personal.FirstName = data.FirstName
	}
	if data.MiddleName != "" {
		personal.MiddleName = data.MiddleName
	}
	if data.BirthDate != "" {
		personal.BirthDate = data.BirthDate
	}
	if gender := genderFromSexMarker(data.Sex); gender != "" {
		personal.Gender = gender
	}
}

func (draft *Draft) applyWorkBook(data *backend.WorkBookData) {
	experience := &draft.Case.WorkExperience
	if data.CalculatedTotalYears > 0 {
		experience.TotalYears = int(data.CalculatedTotalYears)
	}
	if len(data.Records) > 0 {
		experience.Records = data.Records
	}
}

// genderFromSexMarker maps the free-form sex marker of a passport scan to a
// canonical gender value. Unrecognized markers yield an empty string so the
// collected value stays untouched.
func genderFromSexMarker(marker string) string {
	switch strings.ToUpper(strings.TrimSpace(marker)) {
	case "M", "MALE":
		return "male"
	case "F", "FEMALE":
		return "female"
	}
	return ""
}

// normalizeSNILS strips the separators of a formatted SNILS number
func normalizeSNILS(number string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, number)
}
