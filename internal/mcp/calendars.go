package mcp

import (
	"context"
	"encoding/json"

	"github.com/jw6ventures/calcard/internal/apperr"
	"github.com/jw6ventures/calcard/internal/store"
)

func calendarTools() []registeredTool {
	return []registeredTool{
		{
			def: ToolDef{
				Name:        "list_calendars",
				Description: "List all calendars accessible to the authenticated user (owned and shared)",
				InputSchema: objectSchema(nil, nil),
			},
			fn: toolListCalendars,
		},
		{
			def: ToolDef{
				Name:        "get_calendar",
				Description: "Get details about a specific calendar",
				InputSchema: objectSchema(map[string]any{
					"calendar_id": stringProp("The calendar ID"),
				}, []string{"calendar_id"}),
			},
			fn: toolGetCalendar,
		},
		{
			def: ToolDef{
				Name:        "create_calendar",
				Description: "Create a new calendar owned by the authenticated user",
				InputSchema: objectSchema(map[string]any{
					"name":        stringProp("Calendar display name"),
					"description": stringProp("Calendar description"),
					"color":       stringProp("Calendar color (hex, e.g. #FF0000)"),
					"timezone":    stringProp("Calendar timezone (e.g. America/New_York)"),
				}, []string{"name"}),
			},
			fn: toolCreateCalendar,
		},
		{
			def: ToolDef{
				Name:        "delete_calendar",
				Description: "Delete a calendar and all its events",
				InputSchema: objectSchema(map[string]any{
					"calendar_id": stringProp("The calendar ID to delete"),
				}, []string{"calendar_id"}),
			},
			fn: toolDeleteCalendar,
		},
	}
}

func calendarSummary(c *store.Calendar) map[string]any {
	return map[string]any{
		"id":          c.ID,
		"name":        c.Name,
		"description": c.Description,
		"color":       c.Color,
		"timezone":    c.Timezone,
		"owner_id":    c.OwnerID,
	}
}

func toolListCalendars(ctx context.Context, st *store.Store, userID string, _ json.RawMessage) (any, error) {
	cals, err := st.Calendars.ListVisibleTo(ctx, userID)
	if err != nil {
		return nil, apperr.Internalf(err, "mcp: list visible calendars")
	}
	out := make([]map[string]any, 0, len(cals))
	for _, c := range cals {
		out = append(out, calendarSummary(c))
	}
	return map[string]any{"calendars": out}, nil
}

func toolGetCalendar(ctx context.Context, st *store.Store, userID string, args json.RawMessage) (any, error) {
	var in struct {
		CalendarID string `json:"calendar_id"`
	}
	if err := unmarshalArgs(args, &in); err != nil {
		return nil, err
	}
	if in.CalendarID == "" {
		return nil, apperr.BadRequestf("missing calendar_id")
	}
	cal, err := authorizeCalendar(ctx, st, userID, in.CalendarID, false)
	if err != nil {
		return nil, err
	}
	result := calendarSummary(cal)
	result["ctag"] = cal.CTag
	return result, nil
}

func toolCreateCalendar(ctx context.Context, st *store.Store, userID string, args json.RawMessage) (any, error) {
	var in struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Color       string `json:"color"`
		Timezone    string `json:"timezone"`
	}
	if err := unmarshalArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, apperr.BadRequestf("missing name")
	}
	cal, err := st.Calendars.Create(ctx, userID, in.Name, in.Description, in.Color, in.Timezone)
	if err != nil {
		return nil, apperr.Internalf(err, "mcp: create calendar")
	}
	return calendarSummary(cal), nil
}

func toolDeleteCalendar(ctx context.Context, st *store.Store, userID string, args json.RawMessage) (any, error) {
	var in struct {
		CalendarID string `json:"calendar_id"`
	}
	if err := unmarshalArgs(args, &in); err != nil {
		return nil, err
	}
	if in.CalendarID == "" {
		return nil, apperr.BadRequestf("missing calendar_id")
	}
	if _, err := authorizeOwner(ctx, st, userID, in.CalendarID); err != nil {
		return nil, err
	}
	if err := st.Calendars.Delete(ctx, in.CalendarID); err != nil {
		return nil, apperr.Internalf(err, "mcp: delete calendar %q", in.CalendarID)
	}
	return map[string]any{"deleted": true, "calendar_id": in.CalendarID}, nil
}
