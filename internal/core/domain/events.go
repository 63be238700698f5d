package domain

import "time"

// PolicyUploaded is the event the API publishes after persisting an
// upload. UploadedAt lets the worker measure how long the job sat in
// the queue before processing started.
type PolicyUploaded struct {
	PolicyID   string    `json:"policy_id"`
	UploadedAt time.Time `json:"uploaded_at"`
}
