// Package id provides unique identifier generation for jobs and artifacts.
package id

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// seq makes tokens distinct within the process even when two callers read
// the same clock value.
var seq atomic.Uint64

// Generate creates a new unique job ID.
// Format: job-<timestamp>-<random>
// Example: job-1701432000-a1b2c3d4e5f6
func Generate() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("job-%d-%s", time.Now().Unix(), random[:12])
}

// Token returns a filesystem-safe token that is unique across concurrent
// callers in this process. Tokens sort by creation time.
// Format: <unix-millis>-<sequence>
// Example: 1701432000123-000042
func Token() string {
	n := seq.Add(1)
	return fmt.Sprintf("%d-%06d", time.Now().UnixMilli(), n)
}
