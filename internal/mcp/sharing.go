package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jw6ventures/calcard/internal/apperr"
	"github.com/jw6ventures/calcard/internal/store"
)

func sharingTools() []registeredTool {
	return []registeredTool{
		{
			def: ToolDef{
				Name:        "share_calendar",
				Description: "Share a calendar with another user",
				InputSchema: objectSchema(map[string]any{
					"calendar_id": stringProp("The calendar ID to share"),
					"username":    stringProp("Username of the user to share with"),
					"permission": map[string]any{
						"type":        "string",
						"enum":        []string{"read", "read-write"},
						"description": "Access level to grant",
					},
				}, []string{"calendar_id", "username", "permission"}),
			},
			fn: toolShareCalendar,
		},
		{
			def: ToolDef{
				Name:        "unshare_calendar",
				Description: "Revoke a user's access to a shared calendar",
				InputSchema: objectSchema(map[string]any{
					"calendar_id": stringProp("The calendar ID"),
					"username":    stringProp("Username to revoke access from"),
				}, []string{"calendar_id", "username"}),
			},
			fn: toolUnshareCalendar,
		},
		{
			def: ToolDef{
				Name:        "list_shared_calendars",
				Description: "List calendars shared with the authenticated user",
				InputSchema: objectSchema(nil, nil),
			},
			fn: toolListSharedCalendars,
		},
	}
}

func toolShareCalendar(ctx context.Context, st *store.Store, userID string, args json.RawMessage) (any, error) {
	var in struct {
		CalendarID string `json:"calendar_id"`
		Username   string `json:"username"`
		Permission string `json:"permission"`
	}
	if err := unmarshalArgs(args, &in); err != nil {
		return nil, err
	}
	if in.CalendarID == "" || in.Username == "" || in.Permission == "" {
		return nil, apperr.BadRequestf("calendar_id, username and permission are required")
	}
	permission := store.Permission(in.Permission)
	if !permission.Valid() {
		return nil, apperr.BadRequestf("invalid permission %q", in.Permission)
	}
	if _, err := authorizeOwner(ctx, st, userID, in.CalendarID); err != nil {
		return nil, err
	}

	target, err := st.Users.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("user %q not found", in.Username)
		}
		return nil, apperr.Internalf(err, "mcp: look up user %q", in.Username)
	}

	share, err := st.Shares.Create(ctx, in.CalendarID, target.ID, permission)
	if err != nil {
		return nil, apperr.Internalf(err, "mcp: share calendar %q with %q", in.CalendarID, in.Username)
	}

	return map[string]any{
		"calendar_id": share.CalendarID,
		"shared_with": in.Username,
		"permission":  string(share.Permission),
	}, nil
}

func toolUnshareCalendar(ctx context.Context, st *store.Store, userID string, args json.RawMessage) (any, error) {
	var in struct {
		CalendarID string `json:"calendar_id"`
		Username   string `json:"username"`
	}
	if err := unmarshalArgs(args, &in); err != nil {
		return nil, err
	}
	if in.CalendarID == "" || in.Username == "" {
		return nil, apperr.BadRequestf("calendar_id and username are required")
	}
	if _, err := authorizeOwner(ctx, st, userID, in.CalendarID); err != nil {
		return nil, err
	}

	target, err := st.Users.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("user %q not found", in.Username)
		}
		return nil, apperr.Internalf(err, "mcp: look up user %q", in.Username)
	}

	if err := st.Shares.Delete(ctx, in.CalendarID, target.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFoundf("no share of calendar %q with %q", in.CalendarID, in.Username)
		}
		return nil, apperr.Internalf(err, "mcp: unshare calendar %q from %q", in.CalendarID, in.Username)
	}

	return map[string]any{"unshared": true, "calendar_id": in.CalendarID, "username": in.Username}, nil
}

func toolListSharedCalendars(ctx context.Context, st *store.Store, userID string, _ json.RawMessage) (any, error) {
	shares, err := st.Shares.ListReceivedBy(ctx, userID)
	if err != nil {
		return nil, apperr.Internalf(err, "mcp: list shared calendars")
	}

	out := make([]map[string]any, 0, len(shares))
	for _, s := range shares {
		cal, err := st.Calendars.GetByID(ctx, s.CalendarID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, apperr.Internalf(err, "mcp: get shared calendar %q", s.CalendarID)
		}
		out = append(out, map[string]any{
			"id":         cal.ID,
			"name":       cal.Name,
			"owner_id":   cal.OwnerID,
			"permission": string(s.Permission),
			"color":      cal.Color,
		})
	}

	return map[string]any{"shared_calendars": out}, nil
}
