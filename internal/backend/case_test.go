package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"05.03.1990", "1990-03-05"},
		{"31.12.1959", "1959-12-31"},
		// Already normalized and malformed values pass through unchanged
		{"1990-03-05", "1990-03-05"},
		{"not a date", "not a date"},
		{"32.13.1990", "32.13.1990"},
		{"", ""},
	}
	for _, test := range tests {
		if got := normalizeDate(test.value); got != test.want {
			t.Errorf("normalizeDate(%q): expected %q, got %q", test.value, test.want, got)
		}
	}
}

func TestCreateCaseNormalizesDatesOnTheWire(t *testing.T) {
	var logins int32
	received := make(chan *CaseCreate, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/token", tokenEndpoint(&logins, "tok"))
	mux.HandleFunc("/api/v1/cases", func(rw http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)
		payload := new(CaseCreate)
		if err := json.Unmarshal(body, payload); err != nil {
			rw.WriteHeader(http.StatusBadRequest)
			return
		}
		received <- payload
		rw.WriteHeader(http.StatusCreated)
		rw.Write([]byte(`{"case_id":1}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(server, ScopeProcess)
	defer client.Close()

	create := &CaseCreate{
		PensionTypeID: "old_age",
		PersonalData: PersonalData{
			LastName:  "Smirnov",
			FirstName: "Viktor",
			BirthDate: "05.03.1960",
		},
		Disability: &Disability{
			Group: "II",
			Date:  "17.11.2015",
		},
	}
	created, err := client.CreateCase(context.Background(), ProcessIdentity, create)
	if err != nil {
		t.Fatalf("create case: %v", err)
	}
	if created.CaseID != 1 {
		t.Fatalf("unexpected case ID: %d", created.CaseID)
	}

	payload := <-received
	if payload.PersonalData.BirthDate != "1960-03-05" {
		t.Errorf("birth date not normalized on the wire: %s", payload.PersonalData.BirthDate)
	}
	if payload.Disability.Date != "2015-11-17" {
		t.Errorf("disability date not normalized on the wire: %s", payload.Disability.Date)
	}

	// The caller's draft keeps its display-format values
	if create.PersonalData.BirthDate != "05.03.1960" {
		t.Errorf("caller's birth date was mutated: %s", create.PersonalData.BirthDate)
	}
	if create.Disability.Date != "17.11.2015" {
		t.Errorf("caller's disability date was mutated: %s", create.Disability.Date)
	}
}
