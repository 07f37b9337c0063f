//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// FactsBundle holds every verified fact the synthesizer is allowed to use.
// Anything outside this bundle must not appear in generated markup.
type FactsBundle struct {
	Personal   PersonalInfo      `json:"personal"`
	Skills     []string          `json:"skills,omitempty" validate:"dive,required"`
	Items      []ContentItem     `json:"items,omitempty"`
	Employment []EmploymentEntry `json:"employment,omitempty" validate:"dive"`
	Education  []EducationEntry  `json:"education,omitempty" validate:"dive"`
	// Extra carries forward-compatible fields that have no dedicated slot yet.
	Extra map[string]any `json:"extra,omitempty"`
}

// PersonalInfo is the candidate's contact header.
type PersonalInfo struct {
	Name        string            `json:"name" validate:"required"`
	Email       string            `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string            `json:"phone,omitempty"`
	Location    string            `json:"location,omitempty"`
	LinkedInURL string            `json:"linkedin_url,omitempty" validate:"omitempty,url"`
	GitHubURL   string            `json:"github_url,omitempty" validate:"omitempty,url"`
	Website     string            `json:"website,omitempty" validate:"omitempty,url"`
	Headline    string            `json:"headline,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// EmploymentEntry is one position in the candidate's work history.
type EmploymentEntry struct {
	Company    string   `json:"company" validate:"required"`
	Title      string   `json:"title" validate:"required"`
	Dates      string   `json:"dates,omitempty"`
	Location   string   `json:"location,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

// EducationEntry is one degree or program.
type EducationEntry struct {
	School   string `json:"school" validate:"required"`
	Degree   string `json:"degree,omitempty"`
	Field    string `json:"field,omitempty"`
	Dates    string `json:"dates,omitempty"`
	Location string `json:"location,omitempty"`
	GPA      string `json:"gpa,omitempty"`
}

// TargetContext is the slice of a target description passed to the synthesizer for tailoring.
type TargetContext struct {
	Title          string   `json:"title,omitempty"`
	Company        string   `json:"company,omitempty"`
	RequiredSkills []string `json:"required_skills,omitempty"`
}

var bundleValidator = validator.New()

// Validate checks the bundle's structural constraints (required fields, email/url formats).
func (b *FactsBundle) Validate() error {
	if b == nil {
		return fmt.Errorf("facts bundle is nil")
	}
	if err := bundleValidator.Struct(b); err != nil {
		return fmt.Errorf("invalid facts bundle: %w", err)
	}
	return nil
}

// HasEmployment reports whether the bundle carries any work history.
func (b *FactsBundle) HasEmployment() bool {
	return len(b.Employment) > 0
}

// HasEducation reports whether the bundle carries any education history.
func (b *FactsBundle) HasEducation() bool {
	return len(b.Education) > 0
}
