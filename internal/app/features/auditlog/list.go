// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/datatracker/internal/app/store/audit"
	"github.com/dalemusser/datatracker/internal/app/system/respond"
	"github.com/dalemusser/datatracker/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const pageSize = 50

// ServeList returns one page of audit events, newest first. Query
// parameters: category, event_type, user, start_date and end_date
// (YYYY-MM-DD, inclusive) and page (1-based). A malformed date is a 400.
//
// Route: GET /audit
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		page = p
	}

	filter := audit.QueryFilter{
		UserID:    strings.TrimSpace(q.Get("user")),
		Category:  strings.TrimSpace(q.Get("category")),
		EventType: strings.TrimSpace(q.Get("event_type")),
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}

	if s := strings.TrimSpace(q.Get("start_date")); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			respond.Status(w, http.StatusBadRequest)
			return
		}
		filter.StartTime = &t
	}
	if s := strings.TrimSpace(q.Get("end_date")); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			respond.Status(w, http.StatusBadRequest)
			return
		}
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &endOfDay
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	events, err := h.Store.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		respond.Status(w, http.StatusInternalServerError)
		return
	}
	total, err := h.Store.CountByFilter(ctx, filter)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		respond.Status(w, http.StatusInternalServerError)
		return
	}

	items := make([]map[string]any, 0, len(events))
	for _, e := range events {
		items = append(items, eventItem(e))
	}

	pages := int((total + pageSize - 1) / pageSize)
	if pages == 0 {
		pages = 1
	}
	h.Resp.JSON(w, http.StatusOK, map[string]any{
		"events": items,
		"total":  total,
		"page":   page,
		"pages":  pages,
	})
}

func eventItem(e audit.Event) map[string]any {
	item := map[string]any{
		"_id":        e.ID,
		"timestamp":  e.Timestamp.UTC().Format(time.RFC3339),
		"category":   e.Category,
		"event_type": e.EventType,
		"ip":         e.IP,
		"success":    e.Success,
	}
	if e.UserID != "" {
		item["user_id"] = e.UserID
	}
	if e.ActorID != "" {
		item["actor_id"] = e.ActorID
	}
	if e.FailureReason != "" {
		item["failure_reason"] = e.FailureReason
	}
	if len(e.Details) > 0 {
		details := make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			details[k] = v
		}
		item["details"] = details
	}
	return item
}
