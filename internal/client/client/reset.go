package client

import (
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
)

// ResetLocalData deletes the local database (with its WAL side files) and the
// attachment directory. It refuses to run unless confirmed is true.
func ResetLocalData(dbPath, attachmentsDir string, confirmed bool) error {
	if !confirmed {
		return common.ErrResetNotConfirmed
	}

	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm", attachmentsDir} {
		if err := filex.RemoveIfExists(p); err != nil {
			return fmt.Errorf("reset local data: %w", err)
		}
	}
	return nil
}
