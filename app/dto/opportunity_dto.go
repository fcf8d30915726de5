package dto

// TrendDTO is the API representation of a collected trend
type TrendDTO struct {
	UUID        string  `json:"uuid"`
	Source      string  `json:"source"`
	Topic       string  `json:"topic"`
	Popularity  float64 `json:"popularity"`
	GrowthRate  float64 `json:"growth_rate"`
	Category    string  `json:"category,omitempty"`
	Region      string  `json:"region,omitempty"`
	CollectedAt string  `json:"collected_at"`
}

// OpportunityDTO is the API representation of a content opportunity
type OpportunityDTO struct {
	UUID             string    `json:"uuid"`
	Angle            string    `json:"angle"`
	TargetPlatforms  []string  `json:"target_platforms"`
	EstimatedViews   int64     `json:"estimated_views"`
	EstimatedCost    float64   `json:"estimated_cost"`
	EstimatedRevenue float64   `json:"estimated_revenue"`
	EstimatedMinutes int       `json:"estimated_minutes"`
	Competition      string    `json:"competition"`
	PriorityScore    float64   `json:"priority_score"`
	Status           string    `json:"status"`
	Trend            *TrendDTO `json:"trend,omitempty"`
	CreatedAt        string    `json:"created_at"`
}

// ListOpportunitiesRequest filters and pages the opportunity list
type ListOpportunitiesRequest struct {
	Status   string `query:"status" validate:"omitempty,oneof=pending accepted completed expired"`
	MinScore int    `query:"min_score" validate:"omitempty,min=0,max=100"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListOpportunitiesResponse is the paged opportunity list
type ListOpportunitiesResponse struct {
	Items      []OpportunityDTO `json:"items"`
	Pagination Pagination       `json:"pagination"`
}

// AcceptOpportunityRequest starts generation for a pending opportunity
type AcceptOpportunityRequest struct {
	UUID string `json:"-" validate:"required,uuid4"`
	Tier string `json:"tier" validate:"required,oneof=budget balanced premium"`
}

// AcceptOpportunityResponse reports the enqueued generation job
type AcceptOpportunityResponse struct {
	Message       string `json:"message"`
	JobUUID       string `json:"job_uuid"`
	Stage         string `json:"stage"`
	QueuePosition int    `json:"queue_position"`
	CreatedAt     string `json:"created_at"`
}
