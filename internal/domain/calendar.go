package domain

import (
	"fmt"
	"strings"
	"time"
)

type Category string

const (
	CategoryCourse     Category = "course"
	CategoryAssignment Category = "assignment"
)

// ParseCategory accepts the spellings used by the calendar UI ("Course",
// "Assignment / Exam") as well as the canonical values.
func ParseCategory(raw string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "course", "lecture", "course-meeting":
		return CategoryCourse, nil
	case "assignment", "exam", "assignment / exam", "assignment-or-exam":
		return CategoryAssignment, nil
	}

	return "", fmt.Errorf("%w: unknown category %q", ErrValidation, raw)
}

// CalendarItem is a caller-owned entry to be mirrored into the provider.
type CalendarItem struct {
	ExternalKey string
	Title       string
	Subject     string
	Start       time.Time
	End         time.Time
	Location    string
	Category    Category
	Color       string
	Description string
}

// ExternalKey composes the stable identifier used to find an item's
// provider-side event again.
func ExternalKey(source, id string) string {
	return strings.TrimSpace(source) + ":" + strings.TrimSpace(id)
}

// Validate checks the structural preconditions an item must meet before any
// provider call is made for it.
func (i CalendarItem) Validate() error {
	var problems []string

	if strings.TrimSpace(i.ExternalKey) == "" || strings.HasPrefix(i.ExternalKey, ":") || strings.HasSuffix(i.ExternalKey, ":") {
		problems = append(problems, "external key is required")
	}

	if strings.TrimSpace(i.Title) == "" {
		problems = append(problems, "title is required")
	}

	if i.Start.IsZero() || i.End.IsZero() {
		problems = append(problems, "start and end are required")
	} else if i.Start.After(i.End) {
		problems = append(problems, fmt.Sprintf("start %s is after end %s", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339)))
	}

	switch i.Category {
	case "", CategoryCourse, CategoryAssignment:
	default:
		problems = append(problems, fmt.Sprintf("unknown category %q", i.Category))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}

	return nil
}

// Label is how an item is referred to in summary error messages.
func (i CalendarItem) Label() string {
	if i.Title != "" {
		return fmt.Sprintf("%q (%s)", i.Title, i.ExternalKey)
	}

	return i.ExternalKey
}

// ExportSummary aggregates the outcome of one export invocation.
type ExportSummary struct {
	Created int
	Updated int
	Failed  int
	Errors  []string
}

func (s ExportSummary) Total() int {
	return s.Created + s.Updated + s.Failed
}

// ExportOutcome is the result for a single item of a batch.
type ExportOutcome string

const (
	ExportOutcomeCreated ExportOutcome = "created"
	ExportOutcomeUpdated ExportOutcome = "updated"
	ExportOutcomeFailed  ExportOutcome = "failed"
)

// FilterFrom drops items that end before from. Items without an end are
// kept so validation can report them. A zero from keeps everything.
func FilterFrom(items []CalendarItem, from time.Time) []CalendarItem {
	if from.IsZero() {
		return items
	}

	kept := make([]CalendarItem, 0, len(items))
	for _, item := range items {
		if !item.End.IsZero() && item.End.Before(from) {
			continue
		}

		kept = append(kept, item)
	}

	return kept
}
