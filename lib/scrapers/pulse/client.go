package pulse

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"pulsebridge/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/pulse")

const signinEndpoint = "/myhome/access/signin.jsp"

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Client drives one authenticated session against the portal. Create
// one per account; all session state lives on the instance, never in
// package globals.
type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	username string
	password string
	probe    func(ctx context.Context) error

	// loginMu is held for the whole sign-in/sign-out exchange so a
	// racing Login observes the first caller's outcome instead of
	// interleaving cookie negotiation.
	loginMu sync.Mutex

	// mu guards the session fields below.
	mu            sync.Mutex
	authenticated bool
	loggingIn     bool
	version       string
}

type ClientOptions struct {
	BaseUrl  string
	Username string
	Password string
	// Probe overrides the default TCP reachability probe. Mostly for
	// tests.
	Probe func(ctx context.Context) error
	// InstrumentOutput receives raw request/response dumps when debug
	// logging is enabled. Can be nil.
	InstrumentOutput restyutil.InstrumentOutput
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", browserUserAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, otel.Tracer("scrapers/pulse/http"), opts.InstrumentOutput)

	c := &Client{
		BaseUrl:  baseUrl,
		Http:     client,
		username: opts.Username,
		password: opts.Password,
		probe:    opts.Probe,
	}
	if c.probe == nil {
		c.probe = c.dialProbe
	}
	return c, nil
}

// Authenticated reports whether the last classified round trip left the
// session in a signed-in state.
func (c *Client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// PortalVersion is the opaque version segment captured from the login
// redirect, empty before the first successful Login.
func (c *Client) PortalVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// LoggingIn reports whether a sign-in exchange is currently in flight.
func (c *Client) LoggingIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggingIn
}

func (c *Client) setAuthenticated(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = v
}

func (c *Client) setLoggingIn(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggingIn = v
}

func (c *Client) versioned(endpoint string) string {
	return fmt.Sprintf("/myhome/%s/%s", c.PortalVersion(), endpoint)
}

// sessionError maps a non-OK outcome to the error surfaced to the
// caller. A re-auth signal drops the session flag so the next call is
// forced back through Login; transport errors leave it untouched since
// they say nothing about server-side session validity.
func (c *Client) sessionError(outcome Outcome, err error) error {
	if outcome == OutcomeReauthRequired {
		c.setAuthenticated(false)
		return ErrSessionExpired
	}
	return err
}

type LoginInfo struct {
	Version string
}

// Login establishes the cookie session: a cookie-priming GET on the
// portal root, then a credentialed sign-in POST followed through its
// redirects. Success means landing on the summary page, whose path also
// carries the portal version. Calling Login while already authenticated
// is a no-op returning the cached version.
func (c *Client) Login(ctx context.Context) (Result[LoginInfo], error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	if err := c.ensureReachable(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "host unreachable")
		return failure[LoginInfo](ActionHostUnreachable), err
	}

	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if c.Authenticated() {
		return success(LoginInfo{Version: c.PortalVersion()}, ActionLogin), nil
	}

	c.setLoggingIn(true)
	defer c.setLoggingIn(false)

	_, err := c.Http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to establish cookies")
		return failure[LoginInfo](ActionLogin), err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"usernameForm": c.username,
			"passwordForm": c.password,
		}).
		Post(signinEndpoint)

	landed := finalPath(res)
	if classify(summaryPath, false, err, landed, nil) != OutcomeOK {
		c.setAuthenticated(false)
		span.SetStatus(codes.Error, "sign-in did not land on the summary page")
		if err != nil {
			span.RecordError(err)
			return failure[LoginInfo](ActionLogin), err
		}
		return failure[LoginInfo](ActionLogin), ErrAuthenticationFailed
	}

	version := summaryPath.FindStringSubmatch(landed)[1]
	c.mu.Lock()
	c.version = version
	c.authenticated = true
	c.mu.Unlock()

	slog.DebugContext(ctx, "signed in", "portal_version", version)
	return success(LoginInfo{Version: version}, ActionLogin), nil
}

// Logout is best effort: the portal session is dropped locally no
// matter how the sign-out round trip went, a transport error only gets
// a warning. Calling Logout while signed out is a no-op.
func (c *Client) Logout(ctx context.Context) (Result[NoInfo], error) {
	ctx, span := tracer.Start(ctx, "client:Logout")
	defer span.End()

	if err := c.ensureReachable(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "host unreachable")
		return failure[NoInfo](ActionHostUnreachable), err
	}

	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if !c.Authenticated() {
		return success(NoInfo{}, ActionLogout), nil
	}

	_, err := c.Http.R().
		SetContext(ctx).
		Get(c.versioned("access/signout.jsp"))
	if err != nil {
		slog.WarnContext(ctx, "sign-out round trip failed", "err", err)
	}

	c.setAuthenticated(false)
	return success(NoInfo{}, ActionLogout), nil
}
