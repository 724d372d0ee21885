package api

import "time"

const (
	// JobRetention is how long finished jobs and their output files stay
	// available for download.
	JobRetention = 15 * time.Minute

	// JanitorInterval is the sweep period for expiring finished jobs.
	JanitorInterval = 1 * time.Minute

	// DefaultFilePermissions for temp directory creation
	DefaultFilePermissions = 0755
)
