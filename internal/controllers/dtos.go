package controllers

import (
	"fmt"
	"strings"
	"time"

	"github.com/micuatri/calendarlink/internal/domain"
)

type GoogleStatusDto struct {
	IsConnected bool   `json:"isConnected"`
	Email       string `json:"email,omitempty"`
}

type GoogleConnectResponse struct {
	URL        string `json:"url"`
	StateToken string `json:"stateToken"`
}

// CalendarItemDto is the wire form of a calendar item. When externalKey is
// empty it is composed from source and sourceId.
type CalendarItemDto struct {
	ExternalKey string `json:"externalKey,omitempty" yaml:"externalKey,omitempty"`
	Source      string `json:"source,omitempty" yaml:"source,omitempty"`
	SourceID    string `json:"sourceId,omitempty" yaml:"sourceId,omitempty"`
	Title       string `json:"title" yaml:"title"`
	Subject     string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Start       string `json:"start" yaml:"start"`
	End         string `json:"end" yaml:"end"`
	Location    string `json:"location,omitempty" yaml:"location,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
	Color       string `json:"color,omitempty" yaml:"color,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type ExportRequest struct {
	Items []CalendarItemDto `json:"items" yaml:"items"`
	From  string            `json:"from,omitempty" yaml:"from,omitempty"`
}

type ExportSummaryDto struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

func NewGoogleStatusDto(status domain.ConnectionStatus) GoogleStatusDto {
	return GoogleStatusDto{
		IsConnected: status.IsConnected,
		Email:       status.Email,
	}
}

func NewExportSummaryDto(summary domain.ExportSummary) ExportSummaryDto {
	errs := summary.Errors
	if errs == nil {
		errs = []string{}
	}

	return ExportSummaryDto{
		Created: summary.Created,
		Updated: summary.Updated,
		Failed:  summary.Failed,
		Errors:  errs,
	}
}

// ToDomain never fails. Unparseable dates stay zero and an unknown category
// is kept verbatim, so the export reports the item as failed instead of
// rejecting the whole batch.
func (d CalendarItemDto) ToDomain() domain.CalendarItem {
	key := strings.TrimSpace(d.ExternalKey)
	if key == "" && (d.Source != "" || d.SourceID != "") {
		key = domain.ExternalKey(d.Source, d.SourceID)
	}

	category, err := domain.ParseCategory(d.Category)
	if err != nil {
		category = domain.Category(d.Category)
	}

	start, _ := ParseTimestamp(d.Start)
	end, _ := ParseTimestamp(d.End)

	return domain.CalendarItem{
		ExternalKey: key,
		Title:       strings.TrimSpace(d.Title),
		Subject:     d.Subject,
		Start:       start,
		End:         end,
		Location:    d.Location,
		Category:    category,
		Color:       d.Color,
		Description: d.Description,
	}
}

// ToDomain converts the batch and applies the optional from filter.
func (r ExportRequest) ToDomain() ([]domain.CalendarItem, error) {
	items := make([]domain.CalendarItem, 0, len(r.Items))
	for _, dto := range r.Items {
		items = append(items, dto.ToDomain())
	}

	if strings.TrimSpace(r.From) == "" {
		return items, nil
	}

	from, err := ParseTimestamp(r.From)
	if err != nil {
		return nil, err
	}

	return domain.FilterFrom(items, from), nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// ParseTimestamp accepts RFC 3339 and the local formats the calendar UI
// emits. Values without an offset are read as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: timestamp is required", domain.ErrValidation)
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: invalid timestamp %q", domain.ErrValidation, raw)
}
