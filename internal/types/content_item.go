// Package types provides type definitions for structured data used throughout the resume agent.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strings"
	"time"
)

// ContentItem is a verified accomplishment owned by a user (typically a project).
// The core only ever reads it.
type ContentItem struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Highlights  []string   `json:"highlights"`
	URL         string     `json:"url,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// CombinedText returns the lower-cased text used for keyword matching.
func (c *ContentItem) CombinedText() string {
	var sb strings.Builder
	sb.WriteString(c.Title)
	sb.WriteString(" ")
	sb.WriteString(c.Description)
	for _, tag := range c.Tags {
		sb.WriteString(" ")
		sb.WriteString(tag)
	}
	for _, h := range c.Highlights {
		sb.WriteString(" ")
		sb.WriteString(h)
	}
	return strings.ToLower(sb.String())
}

// DateRange formats the item's dates as "Jan 2023 - Present".
// Returns an empty string when no start date is known.
func (c *ContentItem) DateRange() string {
	if c.StartDate == nil {
		return ""
	}
	end := "Present"
	if c.EndDate != nil {
		end = c.EndDate.Format("Jan 2006")
	}
	return c.StartDate.Format("Jan 2006") + " - " + end
}
