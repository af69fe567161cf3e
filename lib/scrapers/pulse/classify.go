package pulse

import (
	"regexp"

	"pulsebridge/lib/htmlutil"

	"github.com/go-resty/resty/v2"
)

// The portal never reports failure explicitly. The only success signals
// it gives are (a) the path a request finally resolves to after
// redirects and (b) whether an AJAX endpoint produced data instead of a
// full HTML login page. Each endpoint's expected path is a named
// contract below so the heuristics stay testable on their own.
var (
	// sign-in lands on /myhome/<version>/summary/summary.jsp, the
	// captured group is the opaque portal version reused for all
	// subsequent navigation
	summaryPath = regexp.MustCompile(`^/myhome/([^/]+)/summary/summary\.jsp`)

	devicePath    = regexp.MustCompile(`/system/device\.jsp`)
	orbPath       = regexp.MustCompile(`/ajax/orb\.jsp`)
	armDisarmPath = regexp.MustCompile(`/quickcontrol/armDisarm\.jsp`)
	forceArmPath  = regexp.MustCompile(`/quickcontrol/serv/RunRRACommand`)
	zonesPath     = regexp.MustCompile(`/ajax/homeViewDevAjax\.jsp`)
	syncPath      = regexp.MustCompile(`/Ajax/SyncCheckServ`)
)

type Outcome int

const (
	// the round trip hit the endpoint it was aimed at
	OutcomeOK Outcome = iota
	// transport-level failure, carries no information about whether
	// the session is still valid
	OutcomeFailed
	// the portal redirected to its login page (path mismatch) or
	// served the login page body on a data endpoint, the session must
	// be re-established
	OutcomeReauthRequired
)

// classify decides the outcome of one portal round trip. `wantData` is
// set for endpoints that must return JSON/plain text, for which an HTML
// document body is an independent re-auth signal even when the path
// still matches.
func classify(wantPath *regexp.Regexp, wantData bool, err error, finalPath string, body []byte) Outcome {
	if err != nil {
		return OutcomeFailed
	}
	if !wantPath.MatchString(finalPath) {
		return OutcomeReauthRequired
	}
	if wantData && htmlutil.IsHTMLDocument(body) {
		return OutcomeReauthRequired
	}
	return OutcomeOK
}

// finalPath is the path the request resolved to after redirects.
func finalPath(res *resty.Response) string {
	if res == nil || res.RawResponse == nil || res.RawResponse.Request == nil {
		return ""
	}
	return res.RawResponse.Request.URL.Path
}

func responseBody(res *resty.Response) []byte {
	if res == nil {
		return nil
	}
	return res.Body()
}
