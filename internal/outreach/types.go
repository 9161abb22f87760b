package outreach

import "encoding/json"

// Object is a backend payload whose shape the dashboard does not pin down.
type Object map[string]any

type ScrapeKeywordsRequest struct {
	Platform string   `json:"platform"`
	Keywords []string `json:"keywords"`
	Limit    int      `json:"limit,omitempty"`
	Location string   `json:"location,omitempty"`
}

// JobStarted acknowledges an asynchronous scrape.
type JobStarted struct {
	Message string `json:"message"`
	JobID   int64  `json:"job_id"`
	Status  string `json:"status"`
}

type ScrapingJob struct {
	ID           int64          `json:"id"`
	Platform     string         `json:"platform"`
	JobType      string         `json:"job_type"`
	Parameters   map[string]any `json:"parameters"`
	Status       string         `json:"status"`
	ResultsCount int            `json:"results_count"`
	ErrorMessage string         `json:"error_message,omitempty"`
	StartedAt    string         `json:"started_at"`
	CompletedAt  string         `json:"completed_at,omitempty"`
	CreatedAt    string         `json:"created_at"`
}

type SocialPost struct {
	ID              int64    `json:"id"`
	PostID          string   `json:"post_id"`
	AuthorUsername  string   `json:"author_username"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	URL             string   `json:"url"`
	EngagementScore float64  `json:"engagement_score"`
	PostDate        string   `json:"post_date"`
	KeywordsMatched []string `json:"keywords_matched"`
	Location        string   `json:"location,omitempty"`
	Platform        string   `json:"platform"`
}

type JobStatistics struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Results   int `json:"results"`
}

type ScrapingStats struct {
	PeriodDays     int                      `json:"period_days"`
	JobStatistics  map[string]JobStatistics `json:"job_statistics"`
	PostStatistics json.RawMessage          `json:"post_statistics,omitempty"`
	LeadStatistics json.RawMessage          `json:"lead_statistics,omitempty"`
	Summary        struct {
		TotalJobs         int     `json:"total_jobs"`
		TotalPosts        int     `json:"total_posts"`
		TotalLeads        int     `json:"total_leads"`
		AvgRelevanceScore float64 `json:"avg_relevance_score"`
	} `json:"summary"`
}

type StatsOverview struct {
	Leads struct {
		Total        int `json:"total"`
		Active       int `json:"active"`
		Unsubscribed int `json:"unsubscribed"`
	} `json:"leads"`
	Campaigns struct {
		Total      int `json:"total"`
		Completed  int `json:"completed"`
		RecentWeek int `json:"recent_week"`
	} `json:"campaigns"`
	Emails struct {
		TotalSent  int `json:"total_sent"`
		RecentWeek int `json:"recent_week"`
	} `json:"emails"`
	Engagement struct {
		TotalOpens        int     `json:"total_opens"`
		TotalClicks       int     `json:"total_clicks"`
		TotalUnsubscribes int     `json:"total_unsubscribes"`
		OpenRate          float64 `json:"open_rate"`
		ClickRate         float64 `json:"click_rate"`
		UnsubscribeRate   float64 `json:"unsubscribe_rate"`
	} `json:"engagement"`
}

type ScrapeUserRequest struct {
	Platform string `json:"platform"`
	Username string `json:"username"`
	Limit    int    `json:"limit,omitempty"`
}

type FindEmailRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Domain    string `json:"domain"`
}

type DomainSearchRequest struct {
	Domain string `json:"domain"`
	Limit  int    `json:"limit,omitempty"`
}

type EmailResult struct {
	Email      string   `json:"email"`
	FirstName  string   `json:"first_name,omitempty"`
	LastName   string   `json:"last_name,omitempty"`
	Company    string   `json:"company,omitempty"`
	Position   string   `json:"position,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Sources    []string `json:"sources"`
}

type Verification struct {
	Email      string  `json:"email"`
	Valid      bool    `json:"valid"`
	Confidence float64 `json:"confidence"`
}

type EnrichmentStatus struct {
	Enabled bool   `json:"enabled"`
	Service string `json:"service"`
	Message string `json:"message"`
}

// Template is a reusable outreach message with {variable} placeholders.
type Template struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Subject      string   `json:"subject"`
	Content      string   `json:"content"`
	Platform     string   `json:"platform"`
	TemplateType string   `json:"template_type"`
	Variables    []string `json:"variables"`
}

type GenerateMessageRequest struct {
	TemplateID int64          `json:"template_id"`
	LeadData   map[string]any `json:"lead_data"`
	Platform   string         `json:"platform"`
}

type GeneratedMessage struct {
	Message string `json:"message"`
	Subject string `json:"subject,omitempty"`
}

type SendOutreachRequest struct {
	LeadID     int64  `json:"lead_id"`
	TemplateID int64  `json:"template_id"`
	Message    string `json:"message"`
	Subject    string `json:"subject,omitempty"`
	Platform   string `json:"platform"`
}

type SendResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type BulkResult struct {
	Sent    int      `json:"sent"`
	Failed  int      `json:"failed"`
	Results []Object `json:"results"`
}

type LeadCount struct {
	TotalLeads   int `json:"total_leads"`
	ActiveLeads  int `json:"active_leads"`
	Unsubscribed int `json:"unsubscribed"`
}
