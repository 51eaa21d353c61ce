package controllers

import (
	"errors"

	"github.com/micuatri/calendarlink/internal/domain"
	"github.com/micuatri/calendarlink/internal/middlewares"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// CalendarController exposes account linking and export to the web frontend
type CalendarController struct {
	linkManager   domain.LinkManager
	exportManager domain.ExportManager
}

type CalendarControllerDependencies struct {
	LinkManager   domain.LinkManager
	ExportManager domain.ExportManager
}

func NewCalendarController(deps CalendarControllerDependencies) *CalendarController {
	return &CalendarController{
		linkManager:   deps.LinkManager,
		exportManager: deps.ExportManager,
	}
}

// GetStatus reports whether the caller has a linked calendar
func (c *CalendarController) GetStatus(ctx fiber.Ctx) error {
	session, err := middlewares.SessionFromContext(ctx)
	if err != nil {
		return err
	}

	status, err := c.linkManager.Status(ctx.RequestCtx(), session.Username)
	if err != nil {
		return err
	}

	return ctx.JSON(NewGoogleStatusDto(status))
}

// Connect starts the OAuth flow and returns the authorization URL
func (c *CalendarController) Connect(ctx fiber.Ctx) error {
	session, err := middlewares.SessionFromContext(ctx)
	if err != nil {
		return err
	}

	result, err := c.linkManager.Connect(ctx.RequestCtx(), session)
	if err != nil {
		return err
	}

	return ctx.JSON(GoogleConnectResponse{
		URL:        result.URL,
		StateToken: result.StateToken,
	})
}

// Callback finishes the OAuth flow from the provider redirect
func (c *CalendarController) Callback(ctx fiber.Ctx) error {
	session, err := middlewares.SessionFromContext(ctx)
	if err != nil {
		return err
	}

	params := domain.CallbackParams{
		Code:             ctx.Query("code"),
		State:            ctx.Query("state"),
		Error:            ctx.Query("error"),
		ErrorDescription: ctx.Query("error_description"),
	}

	status, err := c.linkManager.Callback(ctx.RequestCtx(), session, params)
	if err != nil {
		var callbackErr *domain.ProviderCallbackError
		if errors.Is(err, domain.ErrProviderAuth) && !errors.As(err, &callbackErr) {
			return middlewares.NewAPIError(fiber.StatusBadGateway, "provider_auth", err)
		}

		return err
	}

	return ctx.JSON(NewGoogleStatusDto(status))
}

// Disconnect removes the caller's linked account
func (c *CalendarController) Disconnect(ctx fiber.Ctx) error {
	session, err := middlewares.SessionFromContext(ctx)
	if err != nil {
		return err
	}

	if err := c.linkManager.Disconnect(ctx.RequestCtx(), session.Username); err != nil {
		return err
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

// Export mirrors the posted items into the caller's calendar
func (c *CalendarController) Export(ctx fiber.Ctx) error {
	session, err := middlewares.SessionFromContext(ctx)
	if err != nil {
		return err
	}

	var req ExportRequest
	if err := ctx.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	items, err := req.ToDomain()
	if err != nil {
		return err
	}

	log.Info().
		Str("username", session.Username).
		Int("received", len(req.Items)).
		Int("items", len(items)).
		Msg("Export requested")

	summary, err := c.exportManager.ExportEvents(ctx.RequestCtx(), session.Username, items)
	if err != nil {
		return err
	}

	return ctx.JSON(NewExportSummaryDto(summary))
}
