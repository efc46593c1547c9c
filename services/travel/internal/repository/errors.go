package repository

import (
	"errors"

	"github.com/diagnosis/jf-travel/pkg/database"
)

var (
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrReferenced is returned when a foreign key blocks a delete.
	ErrReferenced = errors.New("record is referenced")
)

func mapWriteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return ErrDuplicate
	case database.IsForeignKeyViolation(err):
		return ErrReferenced
	default:
		return err
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
