package pulse

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

// ArmState is the portal's armstate query vocabulary. The values are
// sent verbatim, '+' separators included.
type ArmState string

const (
	StateDisarmed          ArmState = "disarmed"
	StateDisarmedWithAlarm ArmState = "disarmed+with+alarm"
	StateAway              ArmState = "away"
	StateStay              ArmState = "stay"
)

// ArmMode is the portal's arm query vocabulary.
type ArmMode string

const (
	ModeOff  ArmMode = "off"
	ModeAway ArmMode = "away"
	ModeStay ArmMode = "stay"
)

func validArmState(s ArmState) bool {
	switch s {
	case StateDisarmed, StateDisarmedWithAlarm, StateAway, StateStay:
		return true
	}
	return false
}

func validArmMode(m ArmMode) bool {
	switch m {
	case ModeOff, ModeAway, ModeStay:
		return true
	}
	return false
}

// SetDeviceStatus issues the arm/disarm command. Arming away while
// sensors report open/motion makes the portal hand back an Arm Anyway
// button instead of arming; when that confirmation token is present a
// second force-arm round trip carrying it is issued, classified on its
// own. Any classification failure drops the session flag.
func (c *Client) SetDeviceStatus(ctx context.Context, armState ArmState, arm ArmMode) (Result[NoInfo], error) {
	ctx, span := tracer.Start(ctx, "client:SetDeviceStatus")
	defer span.End()

	if !validArmState(armState) {
		return failure[NoInfo](ActionSetDeviceStatus), fmt.Errorf("unknown armstate value %q", armState)
	}
	if !validArmMode(arm) {
		return failure[NoInfo](ActionSetDeviceStatus), fmt.Errorf("unknown arm value %q", arm)
	}

	if err := c.ensureReachable(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "host unreachable")
		return failure[NoInfo](ActionHostUnreachable), err
	}

	// the query is built raw, the portal reads armstate's '+'
	// separators literally and percent-encoding them breaks disarm
	endpoint := fmt.Sprintf(
		"/myhome/%s/quickcontrol/armDisarm.jsp?href=rest/adt/ui/client/security/setArmState&armstate=%s&arm=%s",
		c.PortalVersion(), armState, arm,
	)
	res, err := c.Http.R().
		SetContext(ctx).
		Get(endpoint)
	if outcome := classify(armDisarmPath, false, err, finalPath(res), nil); outcome != OutcomeOK {
		span.SetStatus(codes.Error, "arm/disarm round trip failed")
		return failure[NoInfo](ActionSetDeviceStatus), c.sessionError(outcome, err)
	}

	if arm != ModeAway {
		return success(NoInfo{}, ActionSetDeviceStatus), nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse arm/disarm html")
		return failure[NoInfo](ActionSetDeviceStatus), fmt.Errorf("%w: %w", ErrUnexpectedResponse, err)
	}

	token := extractForceArmToken(doc)
	if token == "" {
		return success(NoInfo{}, ActionSetDeviceStatus), nil
	}

	slog.DebugContext(ctx, "sensors open, confirming force arm")
	forceEndpoint := fmt.Sprintf(
		"/myhome/%s/quickcontrol/serv/RunRRACommand?sat=%s&href=rest/adt/ui/client/security/setForceArm&armstate=forcearm&arm=%s",
		c.PortalVersion(), token, arm,
	)
	res, err = c.Http.R().
		SetContext(ctx).
		Get(forceEndpoint)
	if outcome := classify(forceArmPath, false, err, finalPath(res), nil); outcome != OutcomeOK {
		span.SetStatus(codes.Error, "force arm round trip failed")
		return failure[NoInfo](ActionSetDeviceStatus), c.sessionError(outcome, err)
	}

	return success(NoInfo{}, ActionSetDeviceStatus), nil
}
