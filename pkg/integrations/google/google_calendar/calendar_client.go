package googlecalendar

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/micuatri/calendarlink/internal/domain"
	"github.com/rs/zerolog/log"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Private extended properties written on every exported event.
const (
	ExternalKeyProperty = "mcExternalKey"
	CategoryProperty    = "mcCategory"

	DefaultCalendarID = "primary"
)

type CalendarClientFactoryConfig struct {
	CalendarID string
	// APIEndpoint overrides the Calendar API base URL.
	APIEndpoint string
	HTTPClient  *http.Client
}

type CalendarClientFactory struct {
	calendarID  string
	apiEndpoint string
	httpClient  *http.Client
}

func NewCalendarClientFactory(cfg CalendarClientFactoryConfig) *CalendarClientFactory {
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	return &CalendarClientFactory{
		calendarID:  calendarID,
		apiEndpoint: cfg.APIEndpoint,
		httpClient:  cfg.HTTPClient,
	}
}

func (f *CalendarClientFactory) NewCalendarClient(ctx context.Context, accessToken string) (domain.CalendarClient, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token cannot be empty")
	}

	if f.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if f.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(f.apiEndpoint))
	}

	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &CalendarClient{
		service:    service,
		calendarID: f.calendarID,
	}, nil
}

// CalendarClient reconciles items against one calendar using a fixed
// access token.
type CalendarClient struct {
	service    *calendar.Service
	calendarID string
}

func (c *CalendarClient) FindByExternalKey(ctx context.Context, externalKey string) (string, bool, error) {
	events, err := c.service.Events.List(c.calendarID).
		PrivateExtendedProperty(ExternalKeyProperty + "=" + externalKey).
		ShowDeleted(false).
		MaxResults(2).
		Fields("items(id)").
		Context(ctx).
		Do()
	if err != nil {
		return "", false, newError("find event", err)
	}

	if len(events.Items) == 0 {
		return "", false, nil
	}

	if len(events.Items) > 1 {
		log.Warn().
			Str("external_key", externalKey).
			Int("matches", len(events.Items)).
			Msg("Multiple events share an external key, updating the first")
	}

	return events.Items[0].Id, true, nil
}

func (c *CalendarClient) CreateEvent(ctx context.Context, item domain.CalendarItem) (string, error) {
	created, err := c.service.Events.Insert(c.calendarID, NewEvent(item)).Context(ctx).Do()
	if err != nil {
		return "", newError("create event", err)
	}

	return created.Id, nil
}

func (c *CalendarClient) UpdateEvent(ctx context.Context, eventID string, item domain.CalendarItem) error {
	_, err := c.service.Events.Update(c.calendarID, eventID, NewEvent(item)).Context(ctx).Do()
	if err != nil {
		return newError("update event", err)
	}

	return nil
}

// NewEvent maps an item onto a Google event. The external key travels as a
// private extended property so the event can be found again.
func NewEvent(item domain.CalendarItem) *calendar.Event {
	private := map[string]string{
		ExternalKeyProperty: item.ExternalKey,
	}

	if item.Category != "" {
		private[CategoryProperty] = string(item.Category)
	}

	return &calendar.Event{
		Summary:     item.Title,
		Description: eventDescription(item),
		Location:    item.Location,
		Start:       &calendar.EventDateTime{DateTime: item.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: item.End.Format(time.RFC3339)},
		ColorId:     NearestColorID(item.Color),
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: private,
		},
	}
}

func eventDescription(item domain.CalendarItem) string {
	var parts []string

	if s := strings.TrimSpace(item.Subject); s != "" {
		parts = append(parts, s)
	}

	if d := strings.TrimSpace(item.Description); d != "" {
		parts = append(parts, d)
	}

	return strings.Join(parts, "\n\n")
}
