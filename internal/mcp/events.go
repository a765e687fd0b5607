package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jw6ventures/calcard/internal/apperr"
	"github.com/jw6ventures/calcard/internal/ical"
	"github.com/jw6ventures/calcard/internal/store"
)

const defaultQueryLimit = 50
const maxQueryLimit = 500

func eventTools() []registeredTool {
	timeDesc := "Time in either iCal basic form (20260301T090000Z) or ISO 8601 (2026-03-01T09:00:00Z)"
	return []registeredTool{
		{
			def: ToolDef{
				Name:        "create_event",
				Description: "Create a new calendar event",
				InputSchema: objectSchema(map[string]any{
					"calendar_id": stringProp("The target calendar ID"),
					"title":       stringProp("Event title/summary"),
					"start":       stringProp(timeDesc),
					"end":         stringProp(timeDesc),
					"description": stringProp("Event description"),
					"location":    stringProp("Event location"),
				}, []string{"calendar_id", "title", "start", "end"}),
			},
			fn: toolCreateEvent,
		},
		{
			def: ToolDef{
				Name:        "get_event",
				Description: "Get a specific event by its UID",
				InputSchema: objectSchema(map[string]any{
					"calendar_id": stringProp("The calendar ID"),
					"event_uid":   stringProp("The event UID"),
				}, []string{"calendar_id", "event_uid"}),
			},
			fn: toolGetEvent,
		},
		{
			def: ToolDef{
				Name:        "update_event",
				Description: "Update an existing event (replaces the entire event)",
				InputSchema: objectSchema(map[string]any{
					"calendar_id": stringProp("The calendar ID"),
					"event_uid":   stringProp("The event UID to update"),
					"title":       stringProp("New event title"),
					"start":       stringProp(timeDesc),
					"end":         stringProp(timeDesc),
					"description": stringProp("New description"),
					"location":    stringProp("New location"),
				}, []string{"calendar_id", "event_uid", "title", "start", "end"}),
			},
			fn: toolUpdateEvent,
		},
		{
			def: ToolDef{
				Name:        "delete_event",
				Description: "Delete a calendar event",
				InputSchema: objectSchema(map[string]any{
					"calendar_id": stringProp("The calendar ID"),
					"event_uid":   stringProp("The event UID to delete"),
				}, []string{"calendar_id", "event_uid"}),
			},
			fn: toolDeleteEvent,
		},
		{
			def: ToolDef{
				Name:        "query_events",
				Description: "Query events in a calendar, optionally filtered by time range",
				InputSchema: objectSchema(map[string]any{
					"calendar_id": stringProp("The calendar ID"),
					"start":       stringProp("Range start (iCal or ISO 8601)"),
					"end":         stringProp("Range end (iCal or ISO 8601)"),
					"limit":       integerProp("Max events to return (default 50)", 1, maxQueryLimit),
				}, []string{"calendar_id"}),
			},
			fn: toolQueryEvents,
		},
	}
}

func eventSummary(o *store.CalendarObject) map[string]any {
	return map[string]any{
		"uid":         o.UID,
		"calendar_id": o.CalendarID,
		"summary":     o.Summary,
		"dtstart":     o.DTStart,
		"dtend":       o.DTEnd,
		"etag":        o.ETag,
	}
}

func toolCreateEvent(ctx context.Context, st *store.Store, userID string, args json.RawMessage) (any, error) {
	var in struct {
		CalendarID  string `json:"calendar_id"`
		Title       string `json:"title"`
		Start       string `json:"start"`
		End         string `json:"end"`
		Description string `json:"description"`
		Location    string `json:"location"`
	}
	if err := unmarshalArgs(args, &in); err != nil {
		return nil, err
	}
	if in.CalendarID == "" || in.Title == "" || in.Start == "" || in.End == "" {
		return nil, apperr.BadRequestf("calendar_id, title, start and end are required")
	}
	if _, err := authorizeCalendar(ctx, st, userID, in.CalendarID, true); err != nil {
		return nil, err
	}

	start, err := ical.ParseEventTime(in.Start)
	if err != nil {
		return nil, apperr.BadRequestf("invalid start: %v", err)
	}
	end, err := ical.ParseEventTime(in.End)
	if err != nil {
		return nil, apperr.BadRequestf("invalid end: %v", err)
	}

	icalData := ical.Build(ical.BuildInput{
		Title:       in.Title,
		Start:       start,
		End:         end,
		Description: in.Description,
		Location:    in.Location,
	})
	fields := ical.Extract(icalData)

	obj, _, err := st.Objects.UpsertObject(ctx, in.CalendarID, fields.UID, icalData, store.ExtractedFields{
		ComponentType: fields.ComponentType,
		DTStart:       fields.DTStart,
		DTEnd:         fields.DTEnd,
		Summary:       fields.Summary,
	})
	if err != nil {
		return nil, apperr.Internalf(err, "mcp: create event in %q", in.CalendarID)
	}

	return map[string]any{
		"uid":         obj.UID,
		"calendar_id": in.CalendarID,
		"title":       in.Title,
		"start":       in.Start,
		"end":         in.End,
		"etag":        obj.ETag,
	}, nil
}

func toolGetEvent(ctx context.Context, st *store.Store, userID string, args json.RawMessage) (any, error) {
	var in struct {
		CalendarID string `json:"calendar_id"`
		EventUID   string `json:"event_uid"`
	}
	if err := unmarshalArgs(args, &in); err != nil {
		return nil, err
	}
	if in.CalendarID == "" || in.EventUID == "" {
		return nil, apperr.BadRequestf("calendar_id and event_uid are required")
	}
	if _, err := authorizeCalendar(ctx, st, userID, in.CalendarID, false); err != nil {
		return nil, err
	}
	obj, err := st.Objects.GetByUID(ctx, in.CalendarID, in.EventUID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("event %q not found", in.EventUID)
		}
		return nil, apperr.Internalf(err, "mcp: get event %q", in.EventUID)
	}
	result := eventSummary(obj)
	result["ical_data"] = obj.IcalData
	return result, nil
}

func toolUpdateEvent(ctx context.Context, st *store.Store, userID string, args json.RawMessage) (any, error) {
	var in struct {
		CalendarID  string `json:"calendar_id"`
		EventUID    string `json:"event_uid"`
		Title       string `json:"title"`
		Start       string `json:"start"`
		End         string `json:"end"`
		Description string `json:"description"`
		Location    string `json:"location"`
	}
	if err := unmarshalArgs(args, &in); err != nil {
		return nil, err
	}
	if in.CalendarID == "" || in.EventUID == "" || in.Title == "" || in.Start == "" || in.End == "" {
		return nil, apperr.BadRequestf("calendar_id, event_uid, title, start and end are required")
	}
	if _, err := authorizeCalendar(ctx, st, userID, in.CalendarID, true); err != nil {
		return nil, err
	}

	if _, err := st.Objects.GetByUID(ctx, in.CalendarID, in.EventUID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("event %q not found", in.EventUID)
		}
		return nil, apperr.Internalf(err, "mcp: get event %q", in.EventUID)
	}

	start, err := ical.ParseEventTime(in.Start)
	if err != nil {
		return nil, apperr.BadRequestf("invalid start: %v", err)
	}
	end, err := ical.ParseEventTime(in.End)
	if err != nil {
		return nil, apperr.BadRequestf("invalid end: %v", err)
	}

	icalData := ical.Build(ical.BuildInput{
		UID:         in.EventUID,
		Title:       in.Title,
		Start:       start,
		End:         end,
		Description: in.Description,
		Location:    in.Location,
	})
	fields := ical.Extract(icalData)

	obj, _, err := st.Objects.UpsertObject(ctx, in.CalendarID, in.EventUID, icalData, store.ExtractedFields{
		ComponentType: fields.ComponentType,
		DTStart:       fields.DTStart,
		DTEnd:         fields.DTEnd,
		Summary:       fields.Summary,
	})
	if err != nil {
		return nil, apperr.Internalf(err, "mcp: update event %q", in.EventUID)
	}

	return map[string]any{
		"uid":         obj.UID,
		"calendar_id": in.CalendarID,
		"title":       in.Title,
		"etag":        obj.ETag,
		"updated":     true,
	}, nil
}

func toolDeleteEvent(ctx context.Context, st *store.Store, userID string, args json.RawMessage) (any, error) {
	var in struct {
		CalendarID string `json:"calendar_id"`
		EventUID   string `json:"event_uid"`
	}
	if err := unmarshalArgs(args, &in); err != nil {
		return nil, err
	}
	if in.CalendarID == "" || in.EventUID == "" {
		return nil, apperr.BadRequestf("calendar_id and event_uid are required")
	}
	if _, err := authorizeCalendar(ctx, st, userID, in.CalendarID, true); err != nil {
		return nil, err
	}
	if err := st.Objects.DeleteObject(ctx, in.CalendarID, in.EventUID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("event %q not found", in.EventUID)
		}
		return nil, apperr.Internalf(err, "mcp: delete event %q", in.EventUID)
	}
	return map[string]any{"deleted": true, "event_uid": in.EventUID}, nil
}

func toolQueryEvents(ctx context.Context, st *store.Store, userID string, args json.RawMessage) (any, error) {
	var in struct {
		CalendarID string `json:"calendar_id"`
		Start      string `json:"start"`
		End        string `json:"end"`
		Limit      int    `json:"limit"`
	}
	if err := unmarshalArgs(args, &in); err != nil {
		return nil, err
	}
	if in.CalendarID == "" {
		return nil, apperr.BadRequestf("missing calendar_id")
	}
	if _, err := authorizeCalendar(ctx, st, userID, in.CalendarID, false); err != nil {
		return nil, err
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	var objs []*store.CalendarObject
	var err error
	if in.Start != "" && in.End != "" {
		start, perr := ical.ParseEventTime(in.Start)
		if perr != nil {
			return nil, apperr.BadRequestf("invalid start: %v", perr)
		}
		end, perr := ical.ParseEventTime(in.End)
		if perr != nil {
			return nil, apperr.BadRequestf("invalid end: %v", perr)
		}
		objs, err = st.Objects.ListObjectsInRange(ctx, in.CalendarID, start, end)
	} else {
		objs, err = st.Objects.ListObjects(ctx, in.CalendarID)
	}
	if err != nil {
		return nil, apperr.Internalf(err, "mcp: query events in %q", in.CalendarID)
	}

	if len(objs) > limit {
		objs = objs[:limit]
	}
	events := make([]map[string]any, 0, len(objs))
	for _, o := range objs {
		events = append(events, eventSummary(o))
	}

	return map[string]any{
		"calendar_id": in.CalendarID,
		"count":       len(events),
		"events":      events,
	}, nil
}
