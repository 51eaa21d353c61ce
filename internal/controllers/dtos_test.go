package controllers

import (
	"testing"
	"time"

	"github.com/micuatri/calendarlink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarItemDto_ToDomain(t *testing.T) {
	dto := CalendarItemDto{
		Source:   "blackboard",
		SourceID: "_42_1",
		Title:    "  Quiz 1 ",
		Start:    "2026-03-02T09:00:00-03:00",
		End:      "2026-03-02T10:00",
		Category: "Assignment / Exam",
		Color:    "#e67c73",
	}

	item := dto.ToDomain()

	assert.Equal(t, "blackboard:_42_1", item.ExternalKey)
	assert.Equal(t, "Quiz 1", item.Title)
	assert.Equal(t, domain.CategoryAssignment, item.Category)
	assert.True(t, item.Start.Equal(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)))
	assert.True(t, item.End.Equal(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)))
}

func TestCalendarItemDto_BadFieldsFailValidation(t *testing.T) {
	item := CalendarItemDto{
		ExternalKey: "course:1",
		Title:       "Lecture",
		Start:       "tomorrow",
		End:         "2026-03-02T10:00:00Z",
		Category:    "Party",
	}.ToDomain()

	err := item.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "start and end are required")
	assert.Contains(t, err.Error(), `unknown category "Party"`)
}

func TestExportRequest_ToDomain(t *testing.T) {
	req := ExportRequest{
		From: "2026-03-01",
		Items: []CalendarItemDto{
			{ExternalKey: "a:1", Title: "Past", Start: "2026-02-01T09:00:00Z", End: "2026-02-01T10:00:00Z"},
			{ExternalKey: "a:2", Title: "Future", Start: "2026-03-02T09:00:00Z", End: "2026-03-02T10:00:00Z"},
		},
	}

	items, err := req.ToDomain()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "a:2", items[0].ExternalKey)

	req.From = "soon"
	_, err = req.ToDomain()
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewExportSummaryDto_NeverNilErrors(t *testing.T) {
	dto := NewExportSummaryDto(domain.ExportSummary{})

	assert.NotNil(t, dto.Errors)
	assert.Empty(t, dto.Errors)
}
