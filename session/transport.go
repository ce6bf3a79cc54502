package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// RequestIDHeader is set on every outgoing request that does not already carry one.
// A replay keeps the ID of the attempt it repeats.
const RequestIDHeader = "X-Request-ID"

// credentialSource supplies the access token to attach and the session epoch it belongs to.
type credentialSource interface {
	credential() (token string, epoch uint64)
}

// refreshCoordinator resolves a 401 into a token to replay with.
type refreshCoordinator interface {
	refreshFor(ctx context.Context, stale string, epoch uint64) (string, error)
}

// attempt carries one logical request through the pipeline.
// token and epoch record the credential the request was last sent with.
type attempt struct {
	req       *http.Request
	body      []byte
	requestID string
	token     string
	epoch     uint64
	retried   bool
}

// send is the terminal stage: it performs one HTTP exchange for an attempt.
type send func(*attempt) (*http.Response, error)

// Authenticator is the "attach credential" stage.
type Authenticator struct {
	source credentialSource
}

// Authenticate returns the request to put on the wire for at. The first attempt takes the
// session's current token; a replay uses the token the refresher chose.
func (a Authenticator) Authenticate(at *attempt) (*http.Request, error) {
	if !at.retried {
		at.token, at.epoch = a.source.credential()
	}

	out := at.req.Clone(at.req.Context())
	if at.body != nil {
		out.Body = io.NopCloser(bytes.NewReader(at.body))
		out.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(at.body)), nil
		}
	} else if at.retried && at.req.GetBody != nil {
		body, err := at.req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}

	if out.Header.Get(RequestIDHeader) == "" {
		out.Header.Set(RequestIDHeader, at.requestID)
	}
	if at.token != "" {
		(&oauth2.Token{AccessToken: at.token, TokenType: "Bearer"}).SetAuthHeader(out)
	}
	return out, nil
}

// Refresher is the "handle auth failure" stage. It only looks at status codes.
type Refresher struct {
	coordinator refreshCoordinator
}

// Handle sends at and, on a first 401, refreshes once and replays. The replay's outcome is returned
// as is, so a second 401 reaches the caller without another refresh.
func (r Refresher) Handle(at *attempt, next send) (*http.Response, error) {
	resp, err := next(at)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || at.retried {
		return resp, err
	}

	token, err := r.coordinator.refreshFor(at.req.Context(), at.token, at.epoch)
	if errors.Is(err, errNoRefreshToken) || errors.Is(err, errStaleSession) || errors.Is(err, errNoSession) {
		return resp, nil
	}
	drain(resp)
	if err != nil {
		return nil, err
	}

	at.token = token
	at.retried = true
	return next(at)
}

// Transport is an http.RoundTripper that authenticates requests with the session credential
// and transparently refreshes it when the server answers 401.
type Transport struct {
	base      http.RoundTripper
	auth      Authenticator
	refresher Refresher
}

// NewTransport builds the pipeline for m around base (http.DefaultTransport when nil).
func NewTransport(m *Manager, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:      base,
		auth:      Authenticator{source: m},
		refresher: Refresher{coordinator: m},
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	at := &attempt{req: req, requestID: req.Header.Get(RequestIDHeader)}
	if at.requestID == "" {
		at.requestID = uuid.NewString()
	}

	// Bodies without GetBody are buffered so a replay can resend them.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		b, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		at.body = b
	}

	return t.refresher.Handle(at, t.send)
}

func (t *Transport) send(at *attempt) (*http.Response, error) {
	out, err := t.auth.Authenticate(at)
	if err != nil {
		return nil, err
	}
	return t.base.RoundTrip(out)
}

// drain discards a response that will not reach the caller so its connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
