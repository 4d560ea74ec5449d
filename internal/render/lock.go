package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// encoderMu serializes encoder invocations within the process regardless of
// how many pipelines exist.
var encoderMu sync.Mutex

const lockRetryDelay = 250 * time.Millisecond

// acquireEncoderLock takes the process-wide encoder lock and, when lockPath is
// set, an advisory file lock shared with other lapse processes. The returned
// release func must be called exactly once.
func acquireEncoderLock(ctx context.Context, lockPath string) (func(), error) {
	encoderMu.Lock()
	lockPath = strings.TrimSpace(lockPath)
	if lockPath == "" {
		return encoderMu.Unlock, nil
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		encoderMu.Unlock()
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		encoderMu.Unlock()
		if err == nil {
			err = fmt.Errorf("render lock %s not acquired", lockPath)
		}
		return nil, fmt.Errorf("acquire render lock: %w", err)
	}
	return func() {
		_ = fileLock.Unlock()
		encoderMu.Unlock()
	}, nil
}
