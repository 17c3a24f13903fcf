package stub

import (
	"encoding/json"

	"github.com/hashicorp/go-memdb"
)

// extractionRecord is the stored state of a simulated extraction task
type extractionRecord struct {
	TaskID         string
	DocumentType   string
	Status         string
	RemainingPolls int
	Data           json.RawMessage
	Error          string
}

// caseRecord is the stored state of a simulated case
type caseRecord struct {
	ID             string
	CaseID         int64
	Seq            int64
	PensionType    string
	FinalStatus    string
	RemainingPolls int
	Explanation    string
	Confidence     float64
	CreatedAt      string
	PensionPoints  float64
}

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"extractions": {
			Name: "extractions",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "TaskID"},
				},
			},
		},
		"cases": {
			Name: "cases",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "ID"},
				},
				"seq": {
					Name:         "seq",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.IntFieldIndex{Field: "Seq"},
				},
			},
		},
	},
}

func (service *Service) getExtraction(taskID string) (*extractionRecord, error) {
	txn := service.db.Txn(false)
	obj, err := txn.First("extractions", "id", taskID)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return obj.(*extractionRecord), nil
}

func (service *Service) putExtraction(record *extractionRecord) error {
	txn := service.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert("extractions", record); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (service *Service) getCase(id string) (*caseRecord, error) {
	txn := service.db.Txn(false)
	obj, err := txn.First("cases", "id", id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return obj.(*caseRecord), nil
}

func (service *Service) putCase(record *caseRecord) error {
	txn := service.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert("cases", record); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// listCases returns one page of the stored cases in submission order plus the
// total amount of stored cases
func (service *Service) listCases(limit, offset int64) ([]*caseRecord, int64, error) {
	txn := service.db.Txn(false)
	it, err := txn.LowerBound("cases", "seq", 0)
	if err != nil {
		return nil, 0, err
	}

	var page []*caseRecord
	var total int64
	for obj := it.Next(); obj != nil; obj = it.Next() {
		if total >= offset && int64(len(page)) < limit {
			page = append(page, obj.(*caseRecord))
		}
		total++
	}
	return page, total, nil
}
