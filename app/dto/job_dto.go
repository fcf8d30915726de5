package dto

// StageRecordDTO is the API representation of one pipeline stage
type StageRecordDTO struct {
	Stage        string  `json:"stage"`
	Status       string  `json:"status"`
	Adapter      string  `json:"adapter,omitempty"`
	Tier         string  `json:"tier,omitempty"`
	DegradedFrom string  `json:"degraded_from,omitempty"`
	Cost         float64 `json:"cost,omitempty"`
	LatencyMS    int64   `json:"latency_ms,omitempty"`
	Error        string  `json:"error,omitempty"`
	StartedAt    string  `json:"started_at,omitempty"`
	CompletedAt  string  `json:"completed_at,omitempty"`
}

// GenerationJobDTO is the API representation of a generation job
type GenerationJobDTO struct {
	UUID            string           `json:"uuid"`
	OpportunityUUID string           `json:"opportunity_uuid,omitempty"`
	Tier            string           `json:"tier"`
	Stage           string           `json:"stage"`
	Progress        int              `json:"progress"`
	Stages          []StageRecordDTO `json:"stages,omitempty"`
	TotalCost       float64          `json:"total_cost"`
	ErrorDetail     string           `json:"error_detail,omitempty"`
	CreatedAt       string           `json:"created_at"`
	CompletedAt     string           `json:"completed_at,omitempty"`
}

// GetJobRequest fetches one generation job
type GetJobRequest struct {
	UUID string `json:"-" validate:"required,uuid4"`
}

// CancelJobResponse reports a cancellation request
type CancelJobResponse struct {
	Message string `json:"message"`
	UUID    string `json:"uuid"`
	Stage   string `json:"stage"`
}

// RetryJobResponse reports a resumed failed job
type RetryJobResponse struct {
	Message string `json:"message"`
	UUID    string `json:"uuid"`
	Stage   string `json:"stage"`
}

// ContentItemDTO is the API representation of generated content
type ContentItemDTO struct {
	UUID      string                `json:"uuid"`
	Title     string                `json:"title"`
	AssetURL  string                `json:"asset_url"`
	Duration  int                   `json:"duration_seconds"`
	Variants  map[string]VariantDTO `json:"variants,omitempty"`
	CreatedAt string                `json:"created_at"`
}

// VariantDTO is the platform-specific packaging of a content item
type VariantDTO struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Hashtags    []string `json:"hashtags,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Error       string   `json:"error,omitempty"`
}
