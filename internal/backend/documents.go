package backend

import (
	"encoding/json"
	"fmt"
)

// Document type identifiers accepted by the extraction endpoint
const (
	DocumentPassport = "passport"
	DocumentSNILS    = "snils"
	DocumentWorkBook = "work_book"
	DocumentOther    = "other"
)

// PassportData is the extraction payload of a passport
type PassportData struct {
	LastName   string `json:"last_name"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	BirthDate  string `json:"birth_date"`
	Sex        string `json:"sex,omitempty"`
}

// SNILSData is the extraction payload of a SNILS card
type SNILSData struct {
	Number string `json:"snils_number"`
}

// WorkBookData is the extraction payload of a work book
type WorkBookData struct {
	CalculatedTotalYears float64      `json:"calculated_total_years"`
	Records              []WorkRecord `json:"records,omitempty"`
}

// errMissingField reports an extraction payload that lacks a field the
// dialog flow depends on. Failing here keeps a renamed or dropped backend
// field from silently vanishing into an empty case draft.
func errMissingField(documentType, field string) error {
	return fmt.Errorf("%s extraction payload is missing the required field %q", documentType, field)
}

var errNoPayload = fmt.Errorf("extraction task carries no data payload")

// Passport decodes and validates the extraction payload as passport data
func (status *ExtractionStatus) Passport() (*PassportData, error) {
	data := new(PassportData)
	if err := status.decodePayload(data); err != nil {
		return nil, err
	}
	if data.LastName == "" {
		return nil, errMissingField(DocumentPassport, "last_name")
	}
	if data.FirstName == "" {
		return nil, errMissingField(DocumentPassport, "first_name")
	}
	if data.BirthDate == "" {
		return nil, errMissingField(DocumentPassport, "birth_date")
	}
	return data, nil
}

// SNILS decodes and validates the extraction payload as SNILS data
func (status *ExtractionStatus) SNILS() (*SNILSData, error) {
	data := new(SNILSData)
	if err := status.decodePayload(data); err != nil {
		return nil, err
	}
	if data.Number == "" {
		return nil, errMissingField(DocumentSNILS, "snils_number")
	}
	return data, nil
}

// WorkBook decodes and validates the extraction payload as work book data
func (status *ExtractionStatus) WorkBook() (*WorkBookData, error) {
	data := new(WorkBookData)
	if err := status.decodePayload(data); err != nil {
		return nil, err
	}
	if data.CalculatedTotalYears < 0 {
		return nil, errMissingField(DocumentWorkBook, "calculated_total_years")
	}
	return data, nil
}

func (status *ExtractionStatus) decodePayload(target interface{}) error {
	if len(status.Data) == 0 {
		return errNoPayload
	}
	if err := json.Unmarshal(status.Data, target); err != nil {
		return &ClientError{Op: "decode extraction payload", Err: err}
	}
	return nil
}
