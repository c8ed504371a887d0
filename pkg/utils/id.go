package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateRunID generates a run ID with a timestamp prefix
func GenerateRunID() string {
	timestamp := time.Now().Format("20060102-150405")
	return fmt.Sprintf("run-%s-%s", timestamp, uuid.NewString()[:8])
}

// GenerateWorkerID generates a worker ID for the restart driver
func GenerateWorkerID(index int) string {
	return fmt.Sprintf("worker-%d-%s", index, uuid.NewString()[:8])
}
