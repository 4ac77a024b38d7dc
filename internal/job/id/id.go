// Package id generates identifiers for composition jobs.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Generate returns a job identifier of the form job-<unix>-<hex>, for
// example job-1756425600-9f3a1c2e. The random suffix keeps jobs created
// within the same second apart; if the random source fails, the timestamp
// alone is used.
func Generate() string {
	now := time.Now().Unix()
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Sprintf("job-%d", now)
	}
	return fmt.Sprintf("job-%d-%s", now, hex.EncodeToString(suffix))
}
