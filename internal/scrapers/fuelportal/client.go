// client.go contains the login flow of the portal: navigating to the tank page,
// submitting the login form when the portal sends us elsewhere and keeping the
// session cookies.

package fuelportal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"myfuelportal-backend/internal/components/assert"
	"myfuelportal-backend/internal/components/telemetry"
	"myfuelportal-backend/lib/util/restyutil"
	"myfuelportal-backend/pkg/htmlutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("scrapers/fuelportal")

const (
	report_client_open   = "client.open"
	report_client_login  = "client.login"
	report_client_fetch  = "client.fetch"
	report_client_cookie = "client.set-cookies"
)

const (
	DefaultIdentityField = "EmailAddress"
	DefaultSecretField   = "Password"
	DefaultTimeout       = 30 * time.Second
	// requests per second
	DefaultRateLimit rate.Limit = 2
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type State int

const (
	StateUnauthenticated State = iota
	StateNavigatingToTarget
	StateOnTarget
	StateLoginSubmitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateNavigatingToTarget:
		return "navigating-to-target"
	case StateOnTarget:
		return "on-target"
	case StateLoginSubmitted:
		return "login-submitted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type ClientOptions struct {
	// TargetUrl is the page the client wants to land on, DefaultTargetUrl when empty.
	TargetUrl   string
	Credentials Credentials
	// IdentityField and SecretField are the names of the login form's username
	// and password controls.
	IdentityField string
	SecretField   string
	Timeout       time.Duration
	// AllowedHosts are hosts other than the target's that redirects may go to
	// (ex. a separate login domain).
	AllowedHosts     []string
	CloudflareBypass bool
	// RateLimit in requests per second, DefaultRateLimit when zero.
	RateLimit rate.Limit
	// ResponseDump receives every response the session gets when set.
	ResponseDump restyutil.InstrumentOutput
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.TargetUrl == "" {
		o.TargetUrl = DefaultTargetUrl
	}
	if o.IdentityField == "" {
		o.IdentityField = DefaultIdentityField
	}
	if o.SecretField == "" {
		o.SecretField = DefaultSecretField
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RateLimit == 0 {
		o.RateLimit = DefaultRateLimit
	}
	return o
}

// Session is a single browsing session on the portal, it is not safe for
// concurrent use.
type Session struct {
	opts   ClientOptions
	target *url.URL
	http   *resty.Client
	jar    *sessionJar
	tel    telemetry.API

	state    State
	location *url.URL
	doc      *goquery.Document
	logins   int
}

func NewSession(opts ClientOptions, tel telemetry.API) (*Session, error) {
	assert.NotNil(tel, "tel")

	opts = opts.withDefaults()
	tel = telemetry.NewScopedAPI("fuelportal", tel)

	target, err := url.Parse(opts.TargetUrl)
	if err != nil {
		return nil, &Error{Kind: KindClient, Message: "parse target url", Cause: err}
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, &Error{
			Kind:    KindClient,
			Message: fmt.Sprintf("target url %q is not absolute", opts.TargetUrl),
		}
	}

	jar, err := newSessionJar()
	if err != nil {
		return nil, &Error{Kind: KindClient, Message: "create cookie jar", Cause: err}
	}

	httpClient := resty.New()
	httpClient.SetCookieJar(jar)
	if opts.CloudflareBypass {
		httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	}
	httpClient.SetHeader("user-agent", userAgent)
	hosts := append([]string{target.Hostname()}, opts.AllowedHosts...)
	httpClient.SetRedirectPolicy(
		resty.FlexibleRedirectPolicy(10),
		resty.DomainCheckRedirectPolicy(hosts...),
	)
	httpClient.SetTimeout(opts.Timeout)

	// burst >= 1 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(opts.RateLimit, 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, "scrapers/fuelportal/http", tel)
	if opts.ResponseDump != nil {
		restyutil.DumpResponses(httpClient, opts.ResponseDump)
	}

	return &Session{
		opts:   opts,
		target: target,
		http:   httpClient,
		jar:    jar,
		tel:    tel,
		state:  StateUnauthenticated,
	}, nil
}

func (s *Session) State() State {
	return s.state
}

// Location is the url of the last page landed on, nil before anything was opened.
func (s *Session) Location() *url.URL {
	return s.location
}

// Document is the last page landed on, nil before anything was opened.
func (s *Session) Document() *goquery.Document {
	return s.doc
}

// Logins is the number of login forms submitted by the session.
func (s *Session) Logins() int {
	return s.logins
}

func (s *Session) Target() *url.URL {
	return s.target
}

// redact returns u with the value of the secret field hidden, pages landed on
// after a GET login submission carry it in their query.
func (s *Session) redact(u *url.URL) *url.URL {
	query := u.Query()
	if !query.Has(s.opts.SecretField) {
		return u
	}
	query.Set(s.opts.SecretField, "redacted")
	redacted := *u
	redacted.RawQuery = query.Encode()
	return &redacted
}

func (s *Session) onTarget() bool {
	return s.location != nil && s.location.String() == s.target.String()
}

// SetCookies puts the cookies in the session's jar for the target and every
// allowed host, a stored set does not remember which host each cookie came from.
func (s *Session) SetCookies(cookies CookieSet) {
	if len(cookies) == 0 {
		return
	}
	for _, origin := range s.origins() {
		s.jar.SetCookies(origin, cookies.httpCookies())
	}
	s.tel.ReportDebug(report_client_cookie, len(cookies))
}

// Cookies reads back every cookie of the session whatever host and path it was
// set for. Cookies the target gets win over same named cookies of other urls.
func (s *Session) Cookies() CookieSet {
	set := CookieSet{}
	for _, u := range append(s.jar.urls(), s.origins()...) {
		for _, c := range s.jar.Cookies(u) {
			set[c.Name] = c.Value
		}
	}
	for _, c := range s.jar.Cookies(s.target) {
		set[c.Name] = c.Value
	}
	return set
}

// origins are the roots of the target's host and of the allowed hosts.
func (s *Session) origins() []*url.URL {
	origins := []*url.URL{{Scheme: s.target.Scheme, Host: s.target.Host, Path: "/"}}
	for _, host := range s.opts.AllowedHosts {
		origins = append(origins, &url.URL{Scheme: s.target.Scheme, Host: host, Path: "/"})
	}
	return origins
}

// Open navigates to rawUrl, following redirects, and parses the page landed on.
func (s *Session) Open(ctx context.Context, rawUrl string) error {
	res, err := s.http.R().
		SetContext(ctx).
		Get(rawUrl)
	return s.land(res, err, rawUrl)
}

// land records the outcome of a navigation.
func (s *Session) land(res *resty.Response, err error, requested string) error {
	if err != nil {
		err = telemetry.RedactError(err)
		s.tel.ReportWarning(report_client_open, fmt.Errorf("request %s: %w", requested, err))
		return &Error{
			Kind:    KindCommunication,
			Message: fmt.Sprintf("request %s", requested),
			Cause:   err,
		}
	}

	if res.RawResponse != nil && res.RawResponse.Request != nil {
		s.location = s.redact(res.RawResponse.Request.URL)
	} else {
		s.location, _ = url.Parse(requested)
	}

	switch code := res.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &Error{
			Kind:    KindAuthentication,
			Message: fmt.Sprintf("%s responded with %s", s.location, res.Status()),
		}
	case code < 200 || code > 299:
		return &Error{
			Kind:    KindCommunication,
			Message: fmt.Sprintf("%s responded with %s", s.location, res.Status()),
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		s.tel.ReportBroken(report_client_open, fmt.Errorf("parse html: %w", err), s.location.String())
		return &Error{Kind: KindClient, Message: "parse html", Cause: err}
	}
	s.doc = doc
	return nil
}

// FetchTarget opens the target url and reports whether the portal let us stay
// there.
func (s *Session) FetchTarget(ctx context.Context) (bool, error) {
	s.state = StateNavigatingToTarget
	err := s.Open(ctx, s.target.String())
	if err != nil {
		s.state = StateFailed
		return false, err
	}
	if s.onTarget() {
		s.state = StateOnTarget
		return true, nil
	}
	s.state = StateUnauthenticated
	return false, nil
}

// Login submits the first form of the current page with the credentials filled in.
func (s *Session) Login(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "session:Login")
	defer span.End()

	if s.doc == nil || s.location == nil {
		span.SetStatus(codes.Error, "no page open")
		return &Error{Kind: KindClient, Message: "login without an open page"}
	}

	form := s.doc.Find("form").First()
	if form.Length() == 0 {
		span.SetStatus(codes.Error, "no login form")
		return extractionError("login form", fmt.Sprintf("no form on %s", s.location))
	}

	values := serializeForm(form)
	for _, field := range []string{s.opts.IdentityField, s.opts.SecretField} {
		if !formHasControl(form, field) {
			span.SetStatus(codes.Error, "missing login control")
			return extractionError(field, fmt.Sprintf("login form on %s has no such control", s.location))
		}
	}
	values.Set(s.opts.IdentityField, s.opts.Credentials.Username)
	values.Set(s.opts.SecretField, s.opts.Credentials.Password)

	action, err := s.location.Parse(strings.TrimSpace(form.AttrOr("action", "")))
	if err != nil {
		span.SetStatus(codes.Error, "bad form action")
		return extractionError("login form", fmt.Sprintf("unusable action: %v", err))
	}
	action.Fragment = ""

	method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", http.MethodGet)))
	span.SetAttributes(
		attribute.String("form.method", method),
		attribute.String("form.action", action.String()),
	)

	s.logins++
	s.state = StateLoginSubmitted

	// reports and errors only ever name the action, a GET submission carries
	// the credentials in its query
	submitted := action.String()
	var res *resty.Response
	if method == http.MethodPost {
		res, err = s.http.R().
			SetContext(ctx).
			SetFormDataFromValues(values).
			Post(submitted)
	} else {
		action.RawQuery = values.Encode()
		res, err = s.http.R().
			SetContext(ctx).
			Get(action.String())
	}
	err = s.land(res, err, submitted)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit login form")
		s.state = StateFailed
		return err
	}

	// the password is never part of a report
	s.tel.ReportDebug(report_client_login, s.opts.Credentials.Username, s.location.String())
	return nil
}

// Fetch lands the session on the target page, logging in at most once.
func (s *Session) Fetch(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "session:Fetch")
	defer span.End()

	ok, err := s.FetchTarget(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch target")
		return err
	}
	if ok {
		return nil
	}

	err = s.Login(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login")
		return err
	}

	ok, err = s.FetchTarget(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch target after login")
		return err
	}
	if ok {
		return nil
	}

	s.state = StateFailed
	err = s.notOnTargetError()
	s.tel.ReportWarning(report_client_fetch, err)
	span.RecordError(err)
	span.SetStatus(codes.Error, "did not reach target")
	return err
}

func (s *Session) notOnTargetError() error {
	actual := ""
	if s.location != nil {
		actual = s.location.String()
	}
	if s.doc != nil && hasPasswordInput(s.doc.Selection) {
		return &Error{
			Kind:     KindAuthentication,
			Message:  "credentials were rejected",
			Expected: s.target.String(),
			Actual:   actual,
		}
	}
	return &Error{
		Kind:     KindNavigation,
		Message:  "failed to fetch tank page",
		Expected: s.target.String(),
		Actual:   actual,
	}
}

var errNotOnTarget = errors.New("not on target")

// TargetDocument returns the current page if the session is on the target.
func (s *Session) TargetDocument() (*goquery.Document, error) {
	if s.state != StateOnTarget || s.doc == nil {
		return nil, &Error{Kind: KindClient, Message: "session", Cause: errNotOnTarget}
	}
	return s.doc, nil
}

// Page wraps the current page as an htmlutil.Document.
func (s *Session) Page() (htmlutil.Document, error) {
	doc, err := s.TargetDocument()
	if err != nil {
		return nil, err
	}
	return htmlutil.NewDocument(doc), nil
}
