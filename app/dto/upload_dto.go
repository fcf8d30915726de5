package dto

// RequestUploadRequest enqueues uploads for a finished job's content
type RequestUploadRequest struct {
	JobUUID     string   `json:"-" validate:"required,uuid4"`
	Platforms   []string `json:"platforms" validate:"omitempty,dive,min=1"`
	ScheduledAt string   `json:"scheduled_at,omitempty" validate:"omitempty"`
}

// RequestUploadResponse reports the created upload batch
type RequestUploadResponse struct {
	Message string          `json:"message"`
	BatchID string          `json:"batch_id"`
	Tasks   []UploadTaskDTO `json:"tasks"`
}

// UploadTaskDTO is the API representation of one platform upload
type UploadTaskDTO struct {
	UUID         string `json:"uuid"`
	Platform     string `json:"platform"`
	Status       string `json:"status"`
	ExternalID   string `json:"external_id,omitempty"`
	ExternalURL  string `json:"external_url,omitempty"`
	AttemptCount int    `json:"attempt_count"`
	MaxRetries   int    `json:"max_retries"`
	ScheduledAt  string `json:"scheduled_at,omitempty"`
	LastError    string `json:"last_error,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// GetUploadRequest fetches one upload task
type GetUploadRequest struct {
	UUID string `json:"-" validate:"required,uuid4"`
}

// BatchStatusResponse aggregates one upload batch
type BatchStatusResponse struct {
	BatchID   string          `json:"batch_id"`
	Total     int             `json:"total"`
	Completed int             `json:"completed"`
	Failed    int             `json:"failed"`
	Pending   int             `json:"pending"`
	Tasks     []UploadTaskDTO `json:"tasks"`
}
