package managers

import (
	"context"
	"fmt"

	"github.com/micuatri/calendarlink/internal/domain"
	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const DefaultExportConcurrency = 4

type exportManager struct {
	repository  domain.AccountRepository
	tokens      domain.TokenManager
	calendars   domain.CalendarClientFactory
	concurrency int
	limiter     *rate.Limiter
}

type ExportManagerDependencies struct {
	Repository domain.AccountRepository
	Tokens     domain.TokenManager
	Calendars  domain.CalendarClientFactory

	// Concurrency bounds in-flight items. Extra items wait for a slot.
	Concurrency int
	// RatePerSecond caps provider calls across the batch. Zero disables it.
	RatePerSecond float64
}

func NewExportManager(deps ExportManagerDependencies) domain.ExportManager {
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultExportConcurrency
	}

	var limiter *rate.Limiter
	if deps.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(deps.RatePerSecond), concurrency)
	}

	return &exportManager{
		repository:  deps.Repository,
		tokens:      deps.Tokens,
		calendars:   deps.Calendars,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

type itemResult struct {
	outcome domain.ExportOutcome
	err     error
}

// ExportEvents mirrors the items into the linked calendar. Per-item failures
// end up in the summary; a missing link or a rejected refresh fails the
// whole call with no summary.
func (m *exportManager) ExportEvents(ctx context.Context, username string, items []domain.CalendarItem) (domain.ExportSummary, error) {
	user, err := m.repository.GetByUsername(ctx, username)
	if err != nil {
		return domain.ExportSummary{}, err
	}

	if user == nil || !user.LinkedAccount.IsConnected() {
		return domain.ExportSummary{}, domain.ErrNotLinked
	}

	if len(items) == 0 {
		return domain.ExportSummary{Errors: []string{}}, nil
	}

	runID := xid.New().String()
	logger := log.With().Str("export_id", runID).Str("username", username).Logger()

	// one refresh per invocation, before any item is dispatched
	accessToken, _, err := m.tokens.GetValidAccessToken(ctx, username, *user.LinkedAccount)
	if err != nil {
		logger.Warn().Err(err).Msg("Export aborted, no usable access token")

		return domain.ExportSummary{}, err
	}

	client, err := m.calendars.NewCalendarClient(ctx, accessToken)
	if err != nil {
		return domain.ExportSummary{}, fmt.Errorf("failed to create calendar client: %w", err)
	}

	logger.Info().Int("items", len(items)).Int("concurrency", m.concurrency).Msg("Export started")

	results := make([]itemResult, len(items))

	var g errgroup.Group
	g.SetLimit(m.concurrency)

	for i, item := range items {
		g.Go(func() error {
			results[i] = m.exportItem(ctx, client, item)
			return nil
		})
	}

	_ = g.Wait()

	summary := summarize(items, results)

	logger.Info().
		Int("created", summary.Created).
		Int("updated", summary.Updated).
		Int("failed", summary.Failed).
		Msg("Export finished")

	return summary, nil
}

func (m *exportManager) exportItem(ctx context.Context, client domain.CalendarClient, item domain.CalendarItem) itemResult {
	if err := item.Validate(); err != nil {
		return itemResult{outcome: domain.ExportOutcomeFailed, err: err}
	}

	if err := m.wait(ctx); err != nil {
		return itemResult{outcome: domain.ExportOutcomeFailed, err: err}
	}

	eventID, found, err := client.FindByExternalKey(ctx, item.ExternalKey)
	if err != nil {
		return itemResult{outcome: domain.ExportOutcomeFailed, err: fmt.Errorf("lookup failed: %w", err)}
	}

	if err := m.wait(ctx); err != nil {
		return itemResult{outcome: domain.ExportOutcomeFailed, err: err}
	}

	if found {
		if err := client.UpdateEvent(ctx, eventID, item); err != nil {
			return itemResult{outcome: domain.ExportOutcomeFailed, err: fmt.Errorf("update failed: %w", err)}
		}

		return itemResult{outcome: domain.ExportOutcomeUpdated}
	}

	if _, err := client.CreateEvent(ctx, item); err != nil {
		return itemResult{outcome: domain.ExportOutcomeFailed, err: fmt.Errorf("create failed: %w", err)}
	}

	return itemResult{outcome: domain.ExportOutcomeCreated}
}

func (m *exportManager) wait(ctx context.Context) error {
	if m.limiter == nil {
		return ctx.Err()
	}

	return m.limiter.Wait(ctx)
}

// summarize folds per-item results in input order, so errors line up with
// the order of the failed items.
func summarize(items []domain.CalendarItem, results []itemResult) domain.ExportSummary {
	summary := domain.ExportSummary{Errors: []string{}}

	for i, result := range results {
		switch result.outcome {
		case domain.ExportOutcomeCreated:
			summary.Created++
		case domain.ExportOutcomeUpdated:
			summary.Updated++
		default:
			summary.Failed++

			err := result.err
			if err == nil {
				err = fmt.Errorf("item was not processed")
			}

			summary.Errors = append(summary.Errors, fmt.Sprintf("item %d %s: %v", i+1, items[i].Label(), err))
		}
	}

	return summary
}
