package inmem

import (
	"context"

	"github.com/hashicorp/go-memdb"
	"github.com/pensio/consultant-bot/internal/dialog"
)

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"sessions": {
			Name: "sessions",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "UserID"},
				},
				"updated": {
					Name:         "updated",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.IntFieldIndex{Field: "Updated"},
				},
			},
		},
	},
}

// Driver represents the in-memory conversation session storage driver built
// using hashicorp/go-memdb
type Driver struct {
	db *memdb.MemDB
}

var _ dialog.Storage = (*Driver)(nil)

// New creates a new empty in-memory session storage driver
func New() (*Driver, error) {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}
	return &Driver{db}, nil
}

// Get retrieves the session of a user, or nil if none exists
func (driver *Driver) Get(_ context.Context, userID string) (*dialog.Session, error) {
	txn := driver.db.Txn(false)
	obj, err := txn.First("sessions", "id", userID)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return obj.(*dialog.Session), nil
}

// Put creates or replaces the session of a user
func (driver *Driver) Put(_ context.Context, session *dialog.Session) error {
	txn := driver.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert("sessions", session); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// Delete removes the session of a user
func (driver *Driver) Delete(_ context.Context, userID string) error {
	txn := driver.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll("sessions", "id", userID); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// DeleteIdle removes all sessions whose last mutation is older than the given
// unix timestamp
func (driver *Driver) DeleteIdle(_ context.Context, before int64) (int, error) {
	txn := driver.db.Txn(true)
	defer txn.Abort()

	it, err := txn.LowerBound("sessions", "updated", 0)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for obj := it.Next(); obj != nil; obj = it.Next() {
		session := obj.(*dialog.Session)
		if session.Updated >= before {
			break
		}
		if err := txn.Delete("sessions", session); err != nil {
			return 0, err
		}
		deleted++
	}

	txn.Commit()
	return deleted, nil
}
