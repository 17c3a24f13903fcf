package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// PensionTypes lists the pension types the backend can adjudicate cases for
func (client *Client) PensionTypes(ctx context.Context, identity Identity) ([]PensionType, error) {
	body, err := client.do(ctx, http.MethodGet, "/api/v1/pension_types", identity, requestOptions{})
	if err != nil {
		return nil, err
	}
	var types []PensionType
	if err := json.Unmarshal(body, &types); err != nil {
		return nil, &ClientError{Op: "decode pension types", Err: err}
	}
	return types, nil
}

// RequiredDocuments lists the documents required for the given pension type
func (client *Client) RequiredDocuments(ctx context.Context, identity Identity, pensionTypeID string) ([]RequiredDocument, error) {
	body, err := client.do(ctx, http.MethodGet, "/api/v1/pension_documents/"+url.PathEscape(pensionTypeID), identity, requestOptions{})
	if err != nil {
		return nil, err
	}
	var documents []RequiredDocument
	if err := json.Unmarshal(body, &documents); err != nil {
		return nil, &ClientError{Op: "decode required documents", Err: err}
	}
	return documents, nil
}

// SubmitExtraction submits a document image for OCR extraction and returns
// the handle of the created task
func (client *Client) SubmitExtraction(ctx context.Context, identity Identity, documentType, filename string, image []byte) (*ExtractionTask, error) {
	form, err := buildMultipart("image", filename, image, map[string]string{
		"document_type": documentType,
	})
	if err != nil {
		return nil, &ClientError{Op: "build extraction form", Err: err}
	}

	body, err := client.do(ctx, http.MethodPost, "/api/v1/document_extractions", identity, requestOptions{form: form})
	if err != nil {
		return nil, err
	}
	task := new(ExtractionTask)
	if err := json.Unmarshal(body, task); err != nil {
		return nil, &ClientError{Op: "decode extraction task", Err: err}
	}
	return task, nil
}

// GetExtraction fetches the current state of an extraction task once, without
// polling. A missing task is a normal outcome for status checks and is
// reported as (nil, nil).
func (client *Client) GetExtraction(ctx context.Context, identity Identity, taskID string) (*ExtractionStatus, error) {
	body, err := client.do(ctx, http.MethodGet, "/api/v1/document_extractions/"+url.PathEscape(taskID), identity, requestOptions{})
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decodeExtractionStatus(body)
}

// WaitForExtraction polls an extraction task until it reaches a terminal
// status, invoking progress once per lap. A terminal status is returned even
// if the extraction itself failed; only the polling ceiling produces an
// error (TaskTimeoutError).
func (client *Client) WaitForExtraction(ctx context.Context, identity Identity, taskID string, progress ProgressFunc) (*ExtractionStatus, error) {
	body, err := client.pollTask(ctx, "/api/v1/document_extractions/"+url.PathEscape(taskID), identity, progress)
	if err != nil {
		return nil, err
	}
	return decodeExtractionStatus(body)
}

func decodeExtractionStatus(body []byte) (*ExtractionStatus, error) {
	status := new(ExtractionStatus)
	if err := json.Unmarshal(body, status); err != nil {
		return nil, &ClientError{Op: "decode extraction status", Err: err}
	}
	return status, nil
}

// GetCase fetches the current adjudication state of a case once, without
// polling. A missing case is reported as (nil, nil).
func (client *Client) GetCase(ctx context.Context, identity Identity, caseID int64) (*CaseStatus, error) {
	body, err := client.do(ctx, http.MethodGet, caseStatusPath(caseID), identity, requestOptions{})
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decodeCaseStatus(body)
}

// WaitForCase polls a case until its adjudication reaches a terminal status,
// invoking progress once per lap. Negative adjudication outcomes are terminal
// and returned as a normal result.
func (client *Client) WaitForCase(ctx context.Context, identity Identity, caseID int64, progress ProgressFunc) (*CaseStatus, error) {
	body, err := client.pollTask(ctx, caseStatusPath(caseID), identity, progress)
	if err != nil {
		return nil, err
	}
	return decodeCaseStatus(body)
}

func caseStatusPath(caseID int64) string {
	return "/api/v1/cases/" + strconv.FormatInt(caseID, 10) + "/status"
}

func decodeCaseStatus(body []byte) (*CaseStatus, error) {
	status := new(CaseStatus)
	if err := json.Unmarshal(body, status); err != nil {
		return nil, &ClientError{Op: "decode case status", Err: err}
	}
	return status, nil
}

// CaseHistory fetches one page of the identity's case history
func (client *Client) CaseHistory(ctx context.Context, identity Identity, limit, offset int) (*CaseHistoryPage, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	body, err := client.do(ctx, http.MethodGet, "/api/v1/cases/history", identity, requestOptions{query: query})
	if err != nil {
		return nil, err
	}
	page := new(CaseHistoryPage)
	if err := json.Unmarshal(body, page); err != nil {
		return nil, &ClientError{Op: "decode case history", Err: err}
	}
	return page, nil
}
