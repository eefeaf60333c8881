package domain

import "time"

type UsageLog struct {
	UserID        string
	JobID         string
	UploadID      string
	SourceBytes   int64
	PathCount     int
	SizeReduction int
	ComputeTimeMS int64
	CreatedAt     time.Time
}
