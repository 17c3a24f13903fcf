package backend

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestPassportPayloadValidation(t *testing.T) {
	status := &ExtractionStatus{
		Status: StatusCompleted,
		Data:   json.RawMessage(`{"last_name":"Smirnov","first_name":"Viktor","birth_date":"05.03.1960","sex":"M"}`),
	}
	data, err := status.Passport()
	if err != nil {
		t.Fatalf("decode passport payload: %v", err)
	}
	if data.LastName != "Smirnov" || data.BirthDate != "05.03.1960" {
		t.Fatalf("unexpected passport data: %+v", data)
	}
}

func TestPassportPayloadMissingFieldFailsFast(t *testing.T) {
	// A renamed backend field must fail loudly instead of yielding an empty value
	status := &ExtractionStatus{
		Status: StatusCompleted,
		Data:   json.RawMessage(`{"surname":"Smirnov","first_name":"Viktor","birth_date":"05.03.1960"}`),
	}
	_, err := status.Passport()
	if err == nil {
		t.Fatal("expected a missing-field error")
	}
	if !strings.Contains(err.Error(), "last_name") {
		t.Fatalf("error does not name the missing field: %v", err)
	}
}

func TestSNILSPayloadValidation(t *testing.T) {
	status := &ExtractionStatus{
		Status: StatusCompleted,
		Data:   json.RawMessage(`{"snils_number":"123-456-789 00"}`),
	}
	data, err := status.SNILS()
	if err != nil {
		t.Fatalf("decode SNILS payload: %v", err)
	}
	if data.Number != "123-456-789 00" {
		t.Fatalf("unexpected SNILS number: %s", data.Number)
	}
}

func TestEmptyPayloadIsRejected(t *testing.T) {
	status := &ExtractionStatus{Status: StatusFailed}
	if _, err := status.Passport(); !errors.Is(err, errNoPayload) {
		t.Fatalf("expected errNoPayload, got: %v", err)
	}
}

func TestMalformedPayloadIsWrapped(t *testing.T) {
	status := &ExtractionStatus{
		Status: StatusCompleted,
		Data:   json.RawMessage(`"not an object"`),
	}
	_, err := status.WorkBook()
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("expected a ClientError, got: %v", err)
	}
}
