// Package validate normalizes and checks job records before they reach a
// backend. Validation never fails fast: every violation found is collected
// so a caller can surface all problems at once.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jobcopilot/jobstore/pkg/models"
)

// MaxBatchSize bounds ValidateBatch input.
const MaxBatchSize = 100

// Error carries the complete list of violations for a rejected record.
type Error struct {
	Violations []string
}

func (e *Error) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// updatable is the allow-list for partial updates. Identity and
// server-owned fields (id, job_id, job_title, company_name, timestamps)
// are deliberately absent.
var updatable = map[string]bool{
	"status":           true,
	"notes":            true,
	"location":         true,
	"description":      true,
	"match_percentage": true,
	"ranking_level":    true,
	"matched_skills":   true,
	"missing_skills":   true,
	"application_date": true,
	"application_url":  true,
	"rejection_date":   true,
	"rejection_reason": true,
	"interview_date":   true,
	"interview_stage":  true,
	"salary_min":       true,
	"salary_max":       true,
	"salary_currency":  true,
}

// Validator checks and normalizes records.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator with the record struct rules registered.
func New() *Validator {
	v := validator.New()

	// report violations under the wire field names, not Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterStructValidation(salaryOrdering, models.JobRecord{})

	return &Validator{v: v}
}

func salaryOrdering(sl validator.StructLevel) {
	rec := sl.Current().Interface().(models.JobRecord)
	if rec.SalaryMin != nil && rec.SalaryMax != nil && *rec.SalaryMin > *rec.SalaryMax {
		sl.ReportError(rec.SalaryMin, "salary_min", "SalaryMin", "ltesalarymax", "")
	}
}

// Validate normalizes rec and checks every invariant, returning the
// normalized copy or an *Error listing all violations.
func (val *Validator) Validate(rec models.JobRecord) (*models.JobRecord, error) {
	norm := val.normalize(rec)

	if err := val.v.Struct(norm); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return nil, err
		}
		return nil, &Error{Violations: describeAll(verrs)}
	}
	return &norm, nil
}

// normalize trims and sanitizes free-text fields, dedupes skill lists,
// defaults the workflow status and derives a missing ranking level.
func (val *Validator) normalize(rec models.JobRecord) models.JobRecord {
	rec.JobID = strings.TrimSpace(rec.JobID)
	rec.JobTitle = SanitizeText(rec.JobTitle)
	rec.CompanyName = SanitizeText(rec.CompanyName)
	rec.Location = SanitizeText(rec.Location)
	rec.Description = SanitizeText(rec.Description)
	rec.Notes = SanitizeText(rec.Notes)
	rec.RejectionReason = SanitizeText(rec.RejectionReason)
	rec.InterviewStage = SanitizeText(rec.InterviewStage)
	rec.ApplicationURL = strings.TrimSpace(rec.ApplicationURL)
	rec.SalaryCurrency = strings.TrimSpace(rec.SalaryCurrency)

	rec.MatchedSkills = SanitizeSkills(rec.MatchedSkills)
	rec.MissingSkills = SanitizeSkills(rec.MissingSkills)

	if rec.Status == "" {
		rec.Status = models.StatusNew
	}
	if rec.RankingLevel == "" && rec.MatchPercentage >= 0 && rec.MatchPercentage <= 100 {
		rec.RankingLevel = models.RankingFromMatch(rec.MatchPercentage)
	}
	return rec
}

// ValidateUpdate checks a partial update. Any field not on the update
// allow-list is rejected even if its value would otherwise be legal.
// Returns the typed patch ready for merging.
func (val *Validator) ValidateUpdate(fields map[string]any) (*models.RecordPatch, error) {
	var violations []string
	patch := &models.RecordPatch{}

	for name, raw := range fields {
		if !updatable[name] {
			violations = append(violations, fmt.Sprintf("field %q cannot be updated", name))
			continue
		}
		if err := setPatchField(patch, name, raw); err != nil {
			violations = append(violations, err.Error())
		}
	}

	violations = append(violations, checkPatch(patch)...)

	if len(violations) > 0 {
		return nil, &Error{Violations: violations}
	}
	return patch, nil
}

// ValidateBatch validates every element and aggregates all per-record
// violation lists rather than stopping at the first bad record.
func (val *Validator) ValidateBatch(recs []models.JobRecord) ([]models.JobRecord, error) {
	if len(recs) > MaxBatchSize {
		return nil, &Error{Violations: []string{
			fmt.Sprintf("batch size %d exceeds the limit of %d", len(recs), MaxBatchSize),
		}}
	}

	var violations []string
	out := make([]models.JobRecord, 0, len(recs))
	for i, rec := range recs {
		norm, err := val.Validate(rec)
		if err != nil {
			var verr *Error
			if !errors.As(err, &verr) {
				return nil, err
			}
			for _, v := range verr.Violations {
				violations = append(violations, fmt.Sprintf("record %d: %s", i, v))
			}
			continue
		}
		out = append(out, *norm)
	}

	if len(violations) > 0 {
		return nil, &Error{Violations: violations}
	}
	return out, nil
}

func setPatchField(p *models.RecordPatch, name string, raw any) error {
	switch name {
	case "status":
		return setString(&p.Status, name, raw)
	case "notes":
		return setSanitized(&p.Notes, name, raw)
	case "location":
		return setSanitized(&p.Location, name, raw)
	case "description":
		return setSanitized(&p.Description, name, raw)
	case "rejection_reason":
		return setSanitized(&p.RejectionReason, name, raw)
	case "interview_stage":
		return setSanitized(&p.InterviewStage, name, raw)
	case "application_url":
		return setString(&p.ApplicationURL, name, raw)
	case "salary_currency":
		return setString(&p.SalaryCurrency, name, raw)
	case "ranking_level":
		return setString(&p.RankingLevel, name, raw)
	case "match_percentage":
		n, err := asInt(name, raw)
		if err != nil {
			return err
		}
		p.MatchPercentage = &n
	case "matched_skills":
		skills, err := asSkills(name, raw)
		if err != nil {
			return err
		}
		p.MatchedSkills = skills
	case "missing_skills":
		skills, err := asSkills(name, raw)
		if err != nil {
			return err
		}
		p.MissingSkills = skills
	case "application_date":
		return setTime(&p.ApplicationDate, name, raw)
	case "rejection_date":
		return setTime(&p.RejectionDate, name, raw)
	case "interview_date":
		return setTime(&p.InterviewDate, name, raw)
	case "salary_min":
		return setFloat(&p.SalaryMin, name, raw)
	case "salary_max":
		return setFloat(&p.SalaryMax, name, raw)
	}
	return nil
}

// checkPatch applies the same value rules Validate enforces, on the
// subset of fields present in the patch.
func checkPatch(p *models.RecordPatch) []string {
	var violations []string
	if p.Status != nil && !validStatus(*p.Status) {
		violations = append(violations, fmt.Sprintf("status must be one of new, saved, applied, rejected, archived; got %q", *p.Status))
	}
	if p.RankingLevel != nil && !validRanking(*p.RankingLevel) {
		violations = append(violations, fmt.Sprintf("ranking_level must be one of high, medium, low; got %q", *p.RankingLevel))
	}
	if p.MatchPercentage != nil && (*p.MatchPercentage < 0 || *p.MatchPercentage > 100) {
		violations = append(violations, fmt.Sprintf("match_percentage must be between 0 and 100; got %d", *p.MatchPercentage))
	}
	if p.SalaryMin != nil && p.SalaryMax != nil && *p.SalaryMin > *p.SalaryMax {
		violations = append(violations, "salary_min must not exceed salary_max")
	}
	return violations
}

func validStatus(s string) bool {
	switch s {
	case models.StatusNew, models.StatusSaved, models.StatusApplied, models.StatusRejected, models.StatusArchived:
		return true
	}
	return false
}

func validRanking(s string) bool {
	switch s {
	case models.RankingHigh, models.RankingMedium, models.RankingLow:
		return true
	}
	return false
}

func setString(dst **string, name string, raw any) error {
	s, ok := raw.(string)
	if !ok {
		return fmt.Errorf("%s must be a string", name)
	}
	s = strings.TrimSpace(s)
	*dst = &s
	return nil
}

func setSanitized(dst **string, name string, raw any) error {
	s, ok := raw.(string)
	if !ok {
		return fmt.Errorf("%s must be a string", name)
	}
	clean := SanitizeText(s)
	*dst = &clean
	return nil
}

func setTime(dst **time.Time, name string, raw any) error {
	switch v := raw.(type) {
	case time.Time:
		*dst = &v
		return nil
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				*dst = &t
				return nil
			}
		}
		return fmt.Errorf("%s must be an RFC3339 timestamp or YYYY-MM-DD date", name)
	default:
		return fmt.Errorf("%s must be a date string", name)
	}
}

func setFloat(dst **float64, name string, raw any) error {
	switch v := raw.(type) {
	case float64:
		*dst = &v
	case int:
		f := float64(v)
		*dst = &f
	default:
		return fmt.Errorf("%s must be a number", name)
	}
	return nil
}

func asInt(name string, raw any) (int, error) {
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}
}

func asSkills(name string, raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return SanitizeSkills(v), nil
	case []any:
		skills := make([]string, 0, len(v))
		for _, el := range v {
			s, ok := el.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be an array of strings", name)
			}
			skills = append(skills, s)
		}
		return SanitizeSkills(skills), nil
	default:
		return nil, fmt.Errorf("%s must be an array of strings", name)
	}
}

// describeAll renders validator errors into caller-facing messages.
func describeAll(verrs validator.ValidationErrors) []string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return msgs
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "ltesalarymax":
		return "salary_min must not exceed salary_max"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
