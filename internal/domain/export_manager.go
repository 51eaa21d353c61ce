package domain

import "context"

type ExportManager interface {
	ExportEvents(ctx context.Context, username string, items []CalendarItem) (ExportSummary, error)
}
