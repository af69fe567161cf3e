package pulse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"pulsebridge/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const portalVersion = "21.0.0-132"

const loginPage = `<html><head><title>Sign In</title></head><body>
<form action="/myhome/access/signin.jsp" method="post"></form>
</body></html>`

const devicePage = `<html><body><table>
<tr><td class="InputFieldDescriptionL">Name</td><td>Security Panel</td></tr>
<tr><td class="InputFieldDescriptionL">Manufacturer</td><td>ADT</td></tr>
<tr><td class="InputFieldDescriptionL">Type</td><td>TSSC Life Safety Module</td></tr>
</table></body></html>`

const zonesBody = `{"items":[
	{"id":"sensor-11","name":"Front Door","tags":"sensor,doorWindow","state":{"icon":"devStatOK"}},
	{"id":"sensor-12","name":"Family Room Motion","tags":"sensor,motion","state":{"icon":"devStatMotion"}},
	{"id":"panel-1","name":"Security Panel","tags":"panel","state":{"icon":"devStatOK"}},
	{"id":"gateway-1","name":"Gateway","tags":"gateway","state":{"icon":"devStatOK"}}
]}`

const forceArmSat = "3b59d412-0dcb-41fb-b925-3fcfe3144633"

// fakePortal mimics the portal's incidental success signals: redirects
// into versioned paths on success and bounces to the login page when
// the session is gone.
type fakePortal struct {
	srv *httptest.Server

	mu          sync.Mutex
	hits        map[string]int
	badCreds    bool
	expired     bool
	openSensors bool
	lastQuery   map[string]string
}

func newFakePortal(t *testing.T) *fakePortal {
	p := &fakePortal{
		hits:      map[string]int{},
		lastQuery: map[string]string{},
	}

	versioned := func(endpoint string) string {
		return fmt.Sprintf("/myhome/%s/%s", portalVersion, endpoint)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>welcome</body></html>")
	})
	mux.HandleFunc("/myhome/access/signin.jsp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			fmt.Fprint(w, loginPage)
			return
		}
		if p.flag(&p.badCreds) {
			http.Redirect(w, r, "/myhome/access/signin.jsp", http.StatusFound)
			return
		}
		http.Redirect(w, r, versioned("summary/summary.jsp"), http.StatusFound)
	})
	mux.HandleFunc(versioned("summary/summary.jsp"), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>summary</body></html>")
	})
	mux.HandleFunc(versioned("access/signout.jsp"), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, loginPage)
	})
	mux.HandleFunc(versioned("system/device.jsp"), p.protected(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, devicePage)
	}))
	mux.HandleFunc(versioned("ajax/orb.jsp"), p.protected(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div id="divOrbTextSummary"><span class="p_boldNormalTextLarge">Disarmed. All Quiet.</span></div>`)
	}))
	mux.HandleFunc(versioned("quickcontrol/armDisarm.jsp"), p.protected(func(w http.ResponseWriter, r *http.Request) {
		if p.flag(&p.openSensors) && r.URL.Query().Get("arm") == "away" {
			fmt.Fprintf(
				w,
				`<html><body><input id="arm_button_1" type="button" value="Arm Anyway" onclick="armDevice('quickcontrol/serv/RunRRACommand?processArmState=1&armstate=forcearm&arm=away&sat=%s&href=rest')"></body></html>`,
				forceArmSat,
			)
			return
		}
		fmt.Fprint(w, "<html><body>arm state updated</body></html>")
	}))
	mux.HandleFunc(versioned("quickcontrol/serv/RunRRACommand"), p.protected(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>command queued</body></html>")
	}))
	mux.HandleFunc(versioned("ajax/homeViewDevAjax.jsp"), p.protected(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		fmt.Fprint(w, zonesBody)
	}))
	mux.HandleFunc(versioned("Ajax/SyncCheckServ"), p.protected(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "1-0-0")
	}))

	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.hits[r.URL.Path]++
		p.lastQuery[r.URL.Path] = r.URL.RawQuery
		p.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakePortal) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p.flag(&p.expired) {
			http.Redirect(w, r, "/myhome/access/signin.jsp", http.StatusFound)
			return
		}
		next(w, r)
	}
}

func (p *fakePortal) flag(f *bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *f
}

func (p *fakePortal) setFlag(f *bool, v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	*f = v
}

func (p *fakePortal) hitCount(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits[path]
}

func (p *fakePortal) totalHits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.hits {
		total += n
	}
	return total
}

func (p *fakePortal) query(path string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastQuery[path]
}

func (p *fakePortal) client(t *testing.T) *Client {
	client, err := NewClient(context.Background(), ClientOptions{
		BaseUrl:  p.srv.URL,
		Username: "alice@example.com",
		Password: "hunter2",
	})
	require.NoError(t, err)
	return client
}

func versionedPath(endpoint string) string {
	return fmt.Sprintf("/myhome/%s/%s", portalVersion, endpoint)
}

func TestLoginCapturesPortalVersion(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/pulse")
	defer cleanup()

	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	res, err := client.Login(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, []Action{ActionLogin}, res.Actions)
	require.Equal(t, portalVersion, res.Info.Version)
	require.True(t, client.Authenticated())
	require.Equal(t, portalVersion, client.PortalVersion())
}

func TestLoginIdempotentWhenAuthenticated(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	_, err := client.Login(ctx)
	require.NoError(t, err)
	signins := portal.hitCount("/myhome/access/signin.jsp")
	roots := portal.hitCount("/")

	res, err := client.Login(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, portalVersion, res.Info.Version)

	// no extra network traffic on the no-op path
	require.Equal(t, signins, portal.hitCount("/myhome/access/signin.jsp"))
	require.Equal(t, roots, portal.hitCount("/"))
}

func TestLoginBadCredentials(t *testing.T) {
	portal := newFakePortal(t)
	portal.setFlag(&portal.badCreds, true)
	client := portal.client(t)

	res, err := client.Login(context.Background())
	require.ErrorIs(t, err, ErrAuthenticationFailed)
	require.False(t, res.Success)
	require.Nil(t, res.Info)
	require.Equal(t, []Action{ActionLogin}, res.Actions)
	require.False(t, client.Authenticated())
}

func TestLogoutIdempotentWhenSignedOut(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)

	res, err := client.Logout(context.Background())
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 0, portal.totalHits())
}

func TestLogoutClearsSession(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	_, err := client.Login(ctx)
	require.NoError(t, err)

	res, err := client.Logout(ctx)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.False(t, client.Authenticated())
	require.Equal(t, 1, portal.hitCount(versionedPath("access/signout.jsp")))
}

func TestHostUnreachableShortCircuitsEveryOperation(t *testing.T) {
	portal := newFakePortal(t)

	client, err := NewClient(context.Background(), ClientOptions{
		BaseUrl:  portal.srv.URL,
		Username: "alice@example.com",
		Password: "hunter2",
		Probe: func(ctx context.Context) error {
			return fmt.Errorf("no route to host")
		},
	})
	require.NoError(t, err)
	ctx := context.Background()

	type attempt struct {
		name string
		run  func() ([]Action, bool, error)
	}
	attempts := []attempt{
		{name: "Login", run: func() ([]Action, bool, error) {
			r, err := client.Login(ctx)
			return r.Actions, r.Success, err
		}},
		{name: "Logout", run: func() ([]Action, bool, error) {
			r, err := client.Logout(ctx)
			return r.Actions, r.Success, err
		}},
		{name: "GetDeviceStatus", run: func() ([]Action, bool, error) {
			r, err := client.GetDeviceStatus(ctx)
			return r.Actions, r.Success, err
		}},
		{name: "SetDeviceStatus", run: func() ([]Action, bool, error) {
			r, err := client.SetDeviceStatus(ctx, StateAway, ModeAway)
			return r.Actions, r.Success, err
		}},
		{name: "GetZoneStatus", run: func() ([]Action, bool, error) {
			r, err := client.GetZoneStatus(ctx)
			return r.Actions, r.Success, err
		}},
		{name: "PerformSync", run: func() ([]Action, bool, error) {
			r, err := client.PerformSync(ctx)
			return r.Actions, r.Success, err
		}},
	}

	for _, a := range attempts {
		t.Run(a.name, func(t *testing.T) {
			actions, ok, err := a.run()
			require.ErrorIs(t, err, ErrHostUnreachable)
			require.False(t, ok)
			require.Equal(t, []Action{ActionHostUnreachable}, actions)
		})
	}

	// the gate rejected before any HTTP was attempted
	require.Equal(t, 0, portal.totalHits())
}

func TestSessionExpiryScenario(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	_, err := client.Login(ctx)
	require.NoError(t, err)

	zones, err := client.GetZoneStatus(ctx)
	require.NoError(t, err)
	require.True(t, zones.Success)
	require.Len(t, *zones.Info, 2)

	portal.setFlag(&portal.expired, true)

	res, err := client.GetDeviceStatus(ctx)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.False(t, res.Success)
	require.Nil(t, res.Info)
	require.Equal(t, []Action{ActionGetDeviceInfo}, res.Actions)
	require.False(t, client.Authenticated())
}

func TestConcurrentLoginsSerialize(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]Result[LoginInfo], 4)
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = client.Login(ctx)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		require.True(t, results[i].Success)
		require.Equal(t, portalVersion, results[i].Info.Version)
	}
	// only one sign-in exchange actually hit the portal
	require.Equal(t, 1, portal.hitCount("/myhome/access/signin.jsp"))
	require.Equal(t, 1, portal.hitCount("/"))
}

func TestConcurrentCallsRacingExpiry(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client(t)
	ctx := context.Background()

	_, err := client.Login(ctx)
	require.NoError(t, err)
	portal.setFlag(&portal.expired, true)

	// both in-flight calls may fail once the portal expires the
	// session; the only guarantee is that each settles and the flag
	// ends up false
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.GetZoneStatus(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.ErrorIs(t, err, ErrSessionExpired)
	}
	require.False(t, client.Authenticated())
}
