package backend

import "encoding/json"

// PensionType represents a pension type the backend can adjudicate cases for
type PensionType struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// RequiredDocument represents a document the backend requires for a pension type
type RequiredDocument struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ExtractionTask is the handle of a submitted document extraction task
type ExtractionTask struct {
	TaskID string `json:"task_id"`
}

// ExtractionStatus represents the state of a document extraction task.
// Data is only present once the task reached COMPLETED; its shape depends on
// the submitted document type and is decoded through the typed accessors in
// documents.go.
type ExtractionStatus struct {
	TaskID string          `json:"task_id"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// CaseCreated is the handle of a created case
type CaseCreated struct {
	CaseID int64 `json:"case_id"`
}

// CaseStatus represents the adjudication state of a case
type CaseStatus struct {
	CaseID          int64   `json:"case_id"`
	FinalStatus     string  `json:"final_status"`
	Explanation     string  `json:"explanation,omitempty"`
	ConfidenceScore float64 `json:"confidence_score,omitempty"`
}

// CaseSummary represents one entry of the case history
type CaseSummary struct {
	CaseID      int64  `json:"case_id"`
	PensionType string `json:"pension_type"`
	FinalStatus string `json:"final_status"`
	CreatedAt   string `json:"created_at"`
}

// CaseHistoryPage represents one page of the paginated case history
type CaseHistoryPage struct {
	Cases  []CaseSummary `json:"cases"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}
