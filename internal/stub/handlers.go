package stub

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pensio/consultant-bot/internal/backend"
)

var pensionTypes = []backend.PensionType{
	{ID: "old_age", DisplayName: "Old-age insurance pension"},
	{ID: "disability", DisplayName: "Disability insurance pension"},
	{ID: "survivor", DisplayName: "Survivor insurance pension"},
}

var pensionDocuments = map[string][]backend.RequiredDocument{
	"old_age": {
		{Type: backend.DocumentPassport, Name: "Passport"},
		{Type: backend.DocumentSNILS, Name: "Insurance number card"},
		{Type: backend.DocumentWorkBook, Name: "Work book"},
	},
	"disability": {
		{Type: backend.DocumentPassport, Name: "Passport"},
		{Type: backend.DocumentSNILS, Name: "Insurance number card"},
		{Type: backend.DocumentOther, Name: "Disability certificate"},
	},
	"survivor": {
		{Type: backend.DocumentPassport, Name: "Passport"},
		{Type: backend.DocumentSNILS, Name: "Insurance number card"},
	},
}

// extractionPayloads contains the canned data a completed extraction reports
// per document type
var extractionPayloads = map[string]json.RawMessage{
	backend.DocumentPassport: json.RawMessage(`{"last_name":"Smirnov","first_name":"Viktor","middle_name":"Pavlovich","birth_date":"05.03.1960","sex":"M"}`),
	backend.DocumentSNILS:    json.RawMessage(`{"snils_number":"123-456-789 00"}`),
	backend.DocumentWorkBook: json.RawMessage(`{"calculated_total_years":35,"records":[{"organization":"Volga Machine Works","position":"engineer","start_date":"1985-09-01","end_date":"2020-06-30"}]}`),
	backend.DocumentOther:    json.RawMessage(`{}`),
}

// endpointToken handles the 'POST /api/v1/auth/token' endpoint
func (service *Service) endpointToken(rw http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		service.writer.WriteError(rw, http.StatusBadRequest, "malformed form body")
		return
	}

	username := request.PostForm.Get("username")
	password := request.PostForm.Get("password")
	if username == "" || password == "" {
		service.writer.WriteError(rw, http.StatusUnauthorized, "missing credentials")
		return
	}
	if service.Config.BackendPassword != "" &&
		(username != service.Config.BackendUsername || password != service.Config.BackendPassword) {
		service.writer.WriteError(rw, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token := uuid.NewString()
	service.tokens.Set(token, time.Now())

	service.writer.WriteJSON(rw, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// endpointPensionTypes handles the 'GET /api/v1/pension_types' endpoint
func (service *Service) endpointPensionTypes(rw http.ResponseWriter, _ *http.Request) {
	service.writer.WriteJSON(rw, pensionTypes)
}

// endpointPensionDocuments handles the 'GET /api/v1/pension_documents/{typeID}' endpoint
func (service *Service) endpointPensionDocuments(rw http.ResponseWriter, request *http.Request) {
	documents, ok := pensionDocuments[chi.URLParam(request, "typeID")]
	if !ok {
		service.writer.WriteError(rw, http.StatusNotFound, "unknown pension type")
		return
	}
	service.writer.WriteJSON(rw, documents)
}

// endpointCreateExtraction handles the 'POST /api/v1/document_extractions' endpoint
func (service *Service) endpointCreateExtraction(rw http.ResponseWriter, request *http.Request) {
	if err := request.ParseMultipartForm(10 << 20); err != nil {
		service.writer.WriteError(rw, http.StatusBadRequest, "malformed multipart body")
		return
	}

	file, _, err := request.FormFile("image")
	if err != nil {
		service.writer.WriteValidationErrors(rw, fieldDetail{
			Loc:  []interface{}{"body", "image"},
			Msg:  "an image file is required",
			Type: "value_error.missing",
		})
		return
	}
	file.Close()

	documentType := request.FormValue("document_type")
	if _, ok := extractionPayloads[documentType]; !ok {
		service.writer.WriteValidationErrors(rw, fieldDetail{
			Loc:  []interface{}{"body", "document_type"},
			Msg:  "unknown document type",
			Type: "value_error.document_type",
		})
		return
	}

	record := &extractionRecord{
		TaskID:         uuid.NewString(),
		DocumentType:   documentType,
		Status:         backend.StatusProcessing,
		RemainingPolls: service.completeAfterPolls(),
	}
	if err := service.putExtraction(record); err != nil {
		service.writer.WriteInternalError(rw, err)
		return
	}

	service.writer.WriteJSONCode(rw, http.StatusCreated, &backend.ExtractionTask{TaskID: record.TaskID})
}

// endpointExtractionStatus handles the 'GET /api/v1/document_extractions/{taskID}' endpoint
func (service *Service) endpointExtractionStatus(rw http.ResponseWriter, request *http.Request) {
	record, err := service.getExtraction(chi.URLParam(request, "taskID"))
	if err != nil {
		service.writer.WriteInternalError(rw, err)
		return
	}
	if record == nil {
		service.writer.WriteError(rw, http.StatusNotFound, "no such extraction task")
		return
	}

	if record.Status == backend.StatusProcessing {
		// Records are never mutated in place; memdb readers may still hold them.
		advanced := *record
		advanced.RemainingPolls--
		if advanced.RemainingPolls <= 0 {
			advanced.Status = backend.StatusCompleted
			advanced.Data = extractionPayloads[record.DocumentType]
		}
		if err := service.putExtraction(&advanced); err != nil {
			service.writer.WriteInternalError(rw, err)
			return
		}
		record = &advanced
	}

	service.writer.WriteJSON(rw, &backend.ExtractionStatus{
		TaskID: record.TaskID,
		Status: record.Status,
		Data:   record.Data,
		Error:  record.Error,
	})
}

// endpointCreateCase handles the 'POST /api/v1/cases' endpoint
func (service *Service) endpointCreateCase(rw http.ResponseWriter, request *http.Request) {
	create := new(backend.CaseCreate)
	if err := json.NewDecoder(request.Body).Decode(create); err != nil {
		service.writer.WriteError(rw, http.StatusBadRequest, "malformed JSON body")
		return
	}

	var validationErrs []fieldDetail
	if create.PensionTypeID == "" {
		validationErrs = append(validationErrs, fieldDetail{
			Loc:  []interface{}{"body", "pension_type_id"},
			Msg:  "field required",
			Type: "value_error.missing",
		})
	}
	if create.PersonalData.LastName == "" {
		validationErrs = append(validationErrs, fieldDetail{
			Loc:  []interface{}{"body", "personal_data", "last_name"},
			Msg:  "field required",
			Type: "value_error.missing",
		})
	}
	if create.PersonalData.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", create.PersonalData.BirthDate); err != nil {
			validationErrs = append(validationErrs, fieldDetail{
				Loc:  []interface{}{"body", "personal_data", "birth_date"},
				Msg:  "date must be in YYYY-MM-DD format",
				Type: "value_error.date",
			})
		}
	}
	if len(validationErrs) > 0 {
		service.writer.WriteValidationErrors(rw, validationErrs...)
		return
	}

	seq := atomic.AddInt64(&service.caseSeq, 1)
	record := &caseRecord{
		ID:             strconv.FormatInt(seq, 10),
		CaseID:         seq,
		Seq:            seq,
		PensionType:    create.PensionTypeID,
		FinalStatus:    backend.StatusProcessing,
		RemainingPolls: service.completeAfterPolls(),
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
		PensionPoints:  create.PensionPoints,
	}
	if err := service.putCase(record); err != nil {
		service.writer.WriteInternalError(rw, err)
		return
	}

	service.writer.WriteJSONCode(rw, http.StatusCreated, &backend.CaseCreated{CaseID: record.CaseID})
}

// endpointCaseStatus handles the 'GET /api/v1/cases/{caseID}/status' endpoint
func (service *Service) endpointCaseStatus(rw http.ResponseWriter, request *http.Request) {
	record, err := service.getCase(chi.URLParam(request, "caseID"))
	if err != nil {
		service.writer.WriteInternalError(rw, err)
		return
	}
	if record == nil {
		service.writer.WriteError(rw, http.StatusNotFound, "no such case")
		return
	}

	if record.FinalStatus == backend.StatusProcessing {
		advanced := *record
		advanced.RemainingPolls--
		if advanced.RemainingPolls <= 0 {
			// Simulated adjudication: enough accumulated pension points means
			// the case meets the criteria.
			if advanced.PensionPoints >= 30 {
				advanced.FinalStatus = backend.StatusMeetsCriteria
				advanced.Explanation = "the accumulated pension points satisfy the threshold"
			} else {
				advanced.FinalStatus = backend.StatusDoesNotMeetCriteria
				advanced.Explanation = "the accumulated pension points are below the threshold"
			}
			advanced.Confidence = 0.87
		}
		if err := service.putCase(&advanced); err != nil {
			service.writer.WriteInternalError(rw, err)
			return
		}
		record = &advanced
	}

	service.writer.WriteJSON(rw, &backend.CaseStatus{
		CaseID:          record.CaseID,
		FinalStatus:     record.FinalStatus,
		Explanation:     record.Explanation,
		ConfidenceScore: record.Confidence,
	})
}

// endpointCaseHistory handles the 'GET /api/v1/cases/history?limit={number?:5}&offset={number?:0}' endpoint
func (service *Service) endpointCaseHistory(rw http.ResponseWriter, request *http.Request) {
	var validationErrs []fieldDetail

	limit, validationErr := queryNumber(request, "limit", 5, 1, 100)
	if validationErr != nil {
		validationErrs = append(validationErrs, *validationErr)
	}
	offset, validationErr := queryNumber(request, "offset", 0, 0, 1<<31)
	if validationErr != nil {
		validationErrs = append(validationErrs, *validationErr)
	}
	if len(validationErrs) > 0 {
		service.writer.WriteValidationErrors(rw, validationErrs...)
		return
	}

	records, total, err := service.listCases(limit, offset)
	if err != nil {
		service.writer.WriteInternalError(rw, err)
		return
	}

	cases := make([]backend.CaseSummary, 0, len(records))
	for _, record := range records {
		cases = append(cases, backend.CaseSummary{
			CaseID:      record.CaseID,
			PensionType: record.PensionType,
			FinalStatus: record.FinalStatus,
			CreatedAt:   record.CreatedAt,
		})
	}

	service.writer.WriteJSON(rw, &backend.CaseHistoryPage{
		Cases:  cases,
		Total:  int(total),
		Limit:  int(limit),
		Offset: int(offset),
	})
}
