package pulse

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

// GetDeviceStatus merges two round trips: the device metadata page
// (name, manufacturer, type) and the orb summary (arm state plus status
// text). Each round trip is classified on its own, and a failure at
// either stage rejects with that stage's action tag.
func (c *Client) GetDeviceStatus(ctx context.Context) (Result[DeviceStatus], error) {
	ctx, span := tracer.Start(ctx, "client:GetDeviceStatus")
	defer span.End()

	if err := c.ensureReachable(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "host unreachable")
		return failure[DeviceStatus](ActionHostUnreachable), err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("id", "1").
		Get(c.versioned("system/device.jsp"))
	if outcome := classify(devicePath, false, err, finalPath(res), nil); outcome != OutcomeOK {
		span.SetStatus(codes.Error, "device page round trip failed")
		return failure[DeviceStatus](ActionGetDeviceInfo), c.sessionError(outcome, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse device page html")
		return failure[DeviceStatus](ActionGetDeviceInfo), fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}
	info := extractDeviceInfo(doc)

	res, err = c.Http.R().
		SetContext(ctx).
		Get(c.versioned("ajax/orb.jsp"))
	if outcome := classify(orbPath, false, err, finalPath(res), nil); outcome != OutcomeOK {
		span.SetStatus(codes.Error, "orb round trip failed")
		return failure[DeviceStatus](ActionGetDeviceStatus), c.sessionError(outcome, err)
	}

	doc, err = goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse orb html")
		return failure[DeviceStatus](ActionGetDeviceStatus), fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}
	state, status := extractOrbText(doc)

	return success(DeviceStatus{
		Name:   info.Name,
		Make:   info.Make,
		Type:   info.Type,
		State:  state,
		Status: status,
	}, ActionGetDeviceInfo, ActionGetDeviceStatus), nil
}
