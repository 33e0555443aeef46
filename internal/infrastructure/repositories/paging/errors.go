package paging

import (
	"errors"

	"github.com/rios0rios0/gitbackup/internal/domain/entities"
)

func asSyncError(err error) *entities.SyncError {
	var syncErr *entities.SyncError
	if errors.As(err, &syncErr) {
		return syncErr
	}
	return nil
}
