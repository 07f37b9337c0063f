//nolint:revive // types is a standard Go package name pattern
package types

// TargetDescription is the text of a job posting (or similar target) used to bias ranking and generation.
// Parsed is optional; when nil the caller may derive it with target.Analyze.
type TargetDescription struct {
	RawText string        `json:"raw_text"`
	Parsed  *ParsedTarget `json:"parsed,omitempty"`
}

// ParsedTarget is the structured form of a target description.
type ParsedTarget struct {
	Title           string   `json:"title,omitempty"`
	Company         string   `json:"company,omitempty"`
	RequiredSkills  []string `json:"required_skills"`
	PreferredSkills []string `json:"preferred_skills"`
	Keywords        []string `json:"keywords"`
}

// RequiredSkills returns the required-skill set, or nil when the target is unparsed.
func (t *TargetDescription) RequiredSkills() []string {
	if t == nil || t.Parsed == nil {
		return nil
	}
	return t.Parsed.RequiredSkills
}

// PreferredSkills returns the preferred-skill set, or nil when the target is unparsed.
func (t *TargetDescription) PreferredSkills() []string {
	if t == nil || t.Parsed == nil {
		return nil
	}
	return t.Parsed.PreferredSkills
}

// Keywords returns the keyword set, or nil when the target is unparsed.
func (t *TargetDescription) Keywords() []string {
	if t == nil || t.Parsed == nil {
		return nil
	}
	return t.Parsed.Keywords
}

// Context returns the part of the target handed to the synthesizer, or nil when unparsed.
func (t *TargetDescription) Context() *TargetContext {
	if t == nil || t.Parsed == nil {
		return nil
	}
	return &TargetContext{
		Title:          t.Parsed.Title,
		Company:        t.Parsed.Company,
		RequiredSkills: t.Parsed.RequiredSkills,
	}
}
