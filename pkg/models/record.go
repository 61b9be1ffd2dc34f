package models

import "time"

// Workflow statuses a job record moves through. A record enters as "new",
// and leaves either by hard delete or by transition to "archived".
const (
	StatusNew      = "new"
	StatusSaved    = "saved"
	StatusApplied  = "applied"
	StatusRejected = "rejected"
	StatusArchived = "archived"
)

// Ranking levels, coarse buckets derived from the match percentage.
const (
	RankingHigh   = "high"
	RankingMedium = "medium"
	RankingLow    = "low"
)

// JobRecord is the persisted entity representing one tracked job posting
// and its scoring/workflow state. ID, CreatedAt and UpdatedAt are assigned
// by the store and never trusted from the caller on create.
type JobRecord struct {
	ID              string     `json:"id"`
	JobID           string     `json:"job_id"            validate:"required"`
	JobTitle        string     `json:"job_title"         validate:"required,min=2"`
	CompanyName     string     `json:"company_name"      validate:"required,min=1"`
	Location        string     `json:"location,omitempty"`
	Description     string     `json:"description,omitempty"`
	MatchPercentage int        `json:"match_percentage"  validate:"gte=0,lte=100"`
	RankingLevel    string     `json:"ranking_level,omitempty" validate:"omitempty,oneof=high medium low"`
	MatchedSkills   []string   `json:"matched_skills"`
	MissingSkills   []string   `json:"missing_skills"`
	Status          string     `json:"status"            validate:"omitempty,oneof=new saved applied rejected archived"`
	Notes           string     `json:"notes,omitempty"`
	ApplicationDate *time.Time `json:"application_date,omitempty"`
	ApplicationURL  string     `json:"application_url,omitempty"`
	RejectionDate   *time.Time `json:"rejection_date,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	InterviewDate   *time.Time `json:"interview_date,omitempty"`
	InterviewStage  string     `json:"interview_stage,omitempty"`
	SalaryMin       *float64   `json:"salary_min,omitempty"`
	SalaryMax       *float64   `json:"salary_max,omitempty"`
	SalaryCurrency  string     `json:"salary_currency,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// RankingFromMatch derives the coarse ranking bucket from a match percentage.
func RankingFromMatch(pct int) string {
	switch {
	case pct >= 70:
		return RankingHigh
	case pct >= 40:
		return RankingMedium
	default:
		return RankingLow
	}
}

// RecordPatch is a validated partial update. Nil fields are left untouched
// by the merge; only fields on the update allow-list appear here at all.
type RecordPatch struct {
	Status          *string    `json:"status,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	Location        *string    `json:"location,omitempty"`
	Description     *string    `json:"description,omitempty"`
	MatchPercentage *int       `json:"match_percentage,omitempty"`
	RankingLevel    *string    `json:"ranking_level,omitempty"`
	MatchedSkills   []string   `json:"matched_skills,omitempty"`
	MissingSkills   []string   `json:"missing_skills,omitempty"`
	ApplicationDate *time.Time `json:"application_date,omitempty"`
	ApplicationURL  *string    `json:"application_url,omitempty"`
	RejectionDate   *time.Time `json:"rejection_date,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	InterviewDate   *time.Time `json:"interview_date,omitempty"`
	InterviewStage  *string    `json:"interview_stage,omitempty"`
	SalaryMin       *float64   `json:"salary_min,omitempty"`
	SalaryMax       *float64   `json:"salary_max,omitempty"`
	SalaryCurrency  *string    `json:"salary_currency,omitempty"`
}

// Apply merges the patch into a copy of rec and returns it. Timestamps are
// the caller's business; Apply only touches patched fields.
func (p *RecordPatch) Apply(rec JobRecord) JobRecord {
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.Notes != nil {
		rec.Notes = *p.Notes
	}
	if p.Location != nil {
		rec.Location = *p.Location
	}
	if p.Description != nil {
		rec.Description = *p.Description
	}
	if p.MatchPercentage != nil {
		rec.MatchPercentage = *p.MatchPercentage
	}
	if p.RankingLevel != nil {
		rec.RankingLevel = *p.RankingLevel
	}
	if p.MatchedSkills != nil {
		rec.MatchedSkills = p.MatchedSkills
	}
	if p.MissingSkills != nil {
		rec.MissingSkills = p.MissingSkills
	}
	if p.ApplicationDate != nil {
		rec.ApplicationDate = p.ApplicationDate
	}
	if p.ApplicationURL != nil {
		rec.ApplicationURL = *p.ApplicationURL
	}
	if p.RejectionDate != nil {
		rec.RejectionDate = p.RejectionDate
	}
	if p.RejectionReason != nil {
		rec.RejectionReason = *p.RejectionReason
	}
	if p.InterviewDate != nil {
		rec.InterviewDate = p.InterviewDate
	}
	if p.InterviewStage != nil {
		rec.InterviewStage = *p.InterviewStage
	}
	if p.SalaryMin != nil {
		rec.SalaryMin = p.SalaryMin
	}
	if p.SalaryMax != nil {
		rec.SalaryMax = p.SalaryMax
	}
	if p.SalaryCurrency != nil {
		rec.SalaryCurrency = *p.SalaryCurrency
	}
	return rec
}
