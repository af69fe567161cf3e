package pulse

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
)

// GetZoneStatus fetches the home view AJAX blob and projects it onto
// sensor zones. Served JSON is also the session check here: an HTML
// body means the portal bounced us to the login page.
func (c *Client) GetZoneStatus(ctx context.Context) (Result[[]ZoneRecord], error) {
	ctx, span := tracer.Start(ctx, "client:GetZoneStatus")
	defer span.End()

	if err := c.ensureReachable(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "host unreachable")
		return failure[[]ZoneRecord](ActionHostUnreachable), err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get(c.versioned("ajax/homeViewDevAjax.jsp"))
	if outcome := classify(zonesPath, true, err, finalPath(res), responseBody(res)); outcome != OutcomeOK {
		span.SetStatus(codes.Error, "home view round trip failed")
		return failure[[]ZoneRecord](ActionGetZoneStatus), c.sessionError(outcome, err)
	}

	zones, err := extractZones(res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse home view json")
		return failure[[]ZoneRecord](ActionGetZoneStatus), fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}

	return success(zones, ActionGetZoneStatus), nil
}

type SyncInfo struct {
	// opaque "N-N-N" cursor, only meaningful to compare against a
	// previously returned one
	SyncCode string
}

// PerformSync polls the sync check endpoint with a cache-busting
// timestamp and returns the portal's current sync cursor.
func (c *Client) PerformSync(ctx context.Context) (Result[SyncInfo], error) {
	ctx, span := tracer.Start(ctx, "client:PerformSync")
	defer span.End()

	if err := c.ensureReachable(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "host unreachable")
		return failure[SyncInfo](ActionHostUnreachable), err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("t", strconv.FormatInt(time.Now().UnixMilli(), 10)).
		Get(c.versioned("Ajax/SyncCheckServ"))
	if outcome := classify(syncPath, true, err, finalPath(res), responseBody(res)); outcome != OutcomeOK {
		span.SetStatus(codes.Error, "sync check round trip failed")
		return failure[SyncInfo](ActionSync), c.sessionError(outcome, err)
	}

	code := strings.TrimSpace(string(res.Body()))
	return success(SyncInfo{SyncCode: code}, ActionSync), nil
}
