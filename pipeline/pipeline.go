package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/state"
	"github.com/sensorcloud-go/sensorcloud/wire"
)

// Pipeline executes requests on behalf of one device.
type Pipeline struct {
	cfg     Config
	scheme  string
	session atomic.Pointer[Session]
}

// New creates a pipeline from cfg. A session stored for the device in
// cfg.Store is installed immediately; otherwise the first request
// authenticates.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{cfg: cfg}
	p.scheme = cfg.AuthServer[:strings.Index(cfg.AuthServer, "://")+3]

	if cfg.Store != nil {
		creds, ok, err := cfg.Store.Credentials(cfg.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("sensorcloud: load stored session: %w", err)
		}
		if ok && creds.Token != "" && creds.Server != "" {
			p.session.Store(&Session{Token: creds.Token, APIServer: creds.Server, DeviceID: cfg.DeviceID})
		}
	}

	return p, nil
}

// Config returns the validated configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Session returns the installed session, if any.
func (p *Pipeline) Session() (Session, bool) {
	s := p.session.Load()
	if s == nil {
		return Session{}, false
	}

	return *s, true
}

// SetSession installs s, e.g. one restored by the caller.
func (p *Pipeline) SetSession(s Session) {
	s.DeviceID = p.cfg.DeviceID
	p.session.Store(&s)
}

// ClearSession drops the installed session; the next request authenticates.
func (p *Pipeline) ClearSession() {
	p.session.Store(nil)
}

// Authenticate obtains a new session from the auth server and installs it.
// On failure the installed session is left untouched.
func (p *Pipeline) Authenticate(ctx context.Context) error {
	err := p.authenticate(ctx)
	p.cfg.Observer.ObserveAuthenticate(err)

	return err
}

func (p *Pipeline) authenticate(ctx context.Context) error {
	const op = "authenticate"

	endpoint := p.cfg.AuthServer + "/SensorCloud/devices/" + url.PathEscape(p.cfg.DeviceID) + "/authenticate/"
	query := wire.AuthQuery(p.cfg.DeviceKey, p.cfg.OSVersion, p.cfg.LocalIP)

	header := http.Header{}
	header.Set("Accept", format.ContentTypeXDR)
	header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := p.roundTrip(ctx, exchange{
		op:        op,
		method:    http.MethodGet,
		url:       endpoint,
		query:     query,
		header:    header,
		requestID: uuid.NewString(),
	})
	if err != nil {
		return err
	}
	if err := resp.Expect(op, http.StatusOK); err != nil {
		return err
	}

	auth, err := wire.DecodeAuthResponse(resp.Body)
	if err != nil {
		return fmt.Errorf("sensorcloud: %s: %w", op, err)
	}

	session := &Session{
		Token:     auth.Token,
		APIServer: p.scheme + auth.Server,
		DeviceID:  p.cfg.DeviceID,
	}
	p.session.Store(session)

	p.cfg.Logger.Info("authenticated",
		"device_id", p.cfg.DeviceID,
		"api_server", session.APIServer,
	)

	if p.cfg.Store != nil {
		err := p.cfg.Store.SetCredentials(state.Credentials{
			DeviceID: p.cfg.DeviceID,
			Server:   session.APIServer,
			Token:    session.Token,
		})
		if err != nil {
			p.cfg.Logger.Warn("failed to persist session", "device_id", p.cfg.DeviceID, "error", err)
		}
	}

	return nil
}

// URL starts a request for a path relative to the device, e.g.
// "/sensors/imu/". The path must start with a slash.
func (p *Pipeline) URL(path string) *Request {
	return newRequest(p, path)
}

// ensureSession returns the installed session, authenticating first if there
// is none.
func (p *Pipeline) ensureSession(ctx context.Context) (Session, error) {
	if s, ok := p.Session(); ok && s.Valid() {
		return s, nil
	}
	if err := p.Authenticate(ctx); err != nil {
		return Session{}, err
	}
	s, _ := p.Session()

	return s, nil
}

func (p *Pipeline) observeRequest(method string, status int, started time.Time) {
	p.cfg.Observer.ObserveRequest(method, status, time.Since(started))
}
