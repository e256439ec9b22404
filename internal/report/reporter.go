package report

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/http2"

	"github.com/ipreport/vpn-ip-tracker/internal/config"
	"github.com/ipreport/vpn-ip-tracker/internal/netmon"
	"github.com/ipreport/vpn-ip-tracker/pkg/version"
)

const (
	// CredentialHeader carries the application token verbatim.
	CredentialHeader = "Credential"
	// RequestIDHeader lets the endpoint correlate a report with agent logs.
	RequestIDHeader = "X-Request-Id"

	Timeout = 10 * time.Second
)

// Reporter posts interface addresses to the report endpoint.
type Reporter struct {
	url    string
	token  string
	client *http.Client
}

type Option func(*Reporter)

// WithHTTPClient replaces the default client. The client's own timeout is
// honoured as given.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Reporter) { r.client = c }
}

// New builds a Reporter for cfg. cfg must already be valid.
func New(cfg config.Config, opts ...Option) (*Reporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &Reporter{
		url:   cfg.ReportURL,
		token: cfg.Token,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		client, err := newHTTPClient()
		if err != nil {
			return nil, err
		}
		r.client = client
	}
	return r, nil
}

func newHTTPClient() (*http.Client, error) {
	dialer := &net.Dialer{
		Timeout:   6 * time.Second,
		KeepAlive: 15 * time.Second,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		TLSHandshakeTimeout: 5 * time.Second,
		IdleConnTimeout:     90 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("configure http2: %w", err)
	}
	return &http.Client{
		Timeout:   Timeout,
		Transport: transport,
		// A 3xx is a failed report. Following it would resend the credential
		// to whatever host the endpoint names.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}

// Report sends the snapshot's address as the whole request body. It does not
// retry; the caller decides when to try again.
func (r *Reporter) Report(ctx context.Context, snap netmon.Snapshot) error {
	body := snap.Addr.String()
	requestID := uuid.NewString()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader(body))
	if err != nil {
		return &ReportError{Kind: KindTransport, Err: err}
	}
	req.Header.Set(CredentialHeader, r.token)
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("User-Agent", version.UserAgent())

	logger := log.WithFields(log.Fields{
		"interface": snap.Name,
		"address":   body,
		"requestId": requestID,
	})
	logger.Trace("Sending address report")

	resp, err := r.client.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ReportError{Kind: KindStatus, StatusCode: resp.StatusCode}
	}

	logger.WithField("status", resp.StatusCode).Trace("Address report accepted")
	return nil
}

type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindTLS       Kind = "tls"
)

// ReportError is any failed report. It never carries the token.
type ReportError struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *ReportError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("report rejected: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	default:
		return fmt.Sprintf("report %s error: %v", e.Kind, e.Err)
	}
}

func (e *ReportError) Unwrap() error { return e.Err }

func classify(err error) error {
	var (
		unknownAuth  x509.UnknownAuthorityError
		certInvalid  x509.CertificateInvalidError
		hostname     x509.HostnameError
		verification *tls.CertificateVerificationError
		recordHeader tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &verification),
		errors.As(err, &unknownAuth),
		errors.As(err, &certInvalid),
		errors.As(err, &hostname),
		errors.As(err, &recordHeader):
		return &ReportError{Kind: KindTLS, Err: err}
	default:
		return &ReportError{Kind: KindTransport, Err: err}
	}
}
