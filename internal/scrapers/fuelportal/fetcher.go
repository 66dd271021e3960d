package fuelportal

import (
	"context"
	"errors"
	"fmt"
	"myfuelportal-backend/internal/components/assert"
	"myfuelportal-backend/internal/components/chrono"
	"myfuelportal-backend/internal/components/telemetry"
	"myfuelportal-backend/pkg/htmlutil"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_fetcher_logins = "fetcher.logins"
	report_fetcher_fetch  = "fetcher.fetch"
)

// Fetcher reads the tank page for one set of credentials, calls are serialized.
type Fetcher struct {
	opts    ClientOptions
	cookies CookieStore
	time    chrono.TimeAPI
	// sessions scope their reports themselves
	sessionTel telemetry.API
	tel        telemetry.API

	mutex sync.Mutex
}

type FetcherOption func(f *Fetcher)

// WithTime sets the clock readings are timestamped with.
func WithTime(time chrono.TimeAPI) FetcherOption {
	return func(f *Fetcher) {
		f.time = time
	}
}

func NewFetcher(opts ClientOptions, cookies CookieStore, tel telemetry.API, options ...FetcherOption) *Fetcher {
	assert.NotNil(cookies, "cookies")
	assert.NotNil(tel, "tel")

	f := &Fetcher{
		opts:    opts.withDefaults(),
		cookies: cookies,
		time:    chrono.StandardTime{},

		sessionTel: tel,
		tel:        telemetry.NewScopedAPI("fuelportal", tel),
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// fetch lands a fresh session on the target page, hands it to extract and
// persists the session's cookies if extract succeeded.
func (f *Fetcher) fetch(ctx context.Context, name string, extract func(doc *goquery.Document) error) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	err := f.fetchLocked(ctx, span.SetAttributes, extract)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String())
		f.tel.ReportDebug(report_fetcher_fetch, name, err)
		return err
	}
	return nil
}

func (f *Fetcher) fetchLocked(
	ctx context.Context,
	setAttributes func(kv ...attribute.KeyValue),
	extract func(doc *goquery.Document) error,
) error {
	session, err := NewSession(f.opts, f.sessionTel)
	if err != nil {
		return asClientError(err, "create session")
	}
	session.SetCookies(f.cookies.Load(ctx))

	err = session.Fetch(ctx)
	f.tel.ReportCount(report_fetcher_logins, int64(session.Logins()))
	setAttributes(attribute.Int("fuelportal.logins", session.Logins()))
	if err != nil {
		return asClientError(err, "fetch tank page")
	}

	doc, err := session.TargetDocument()
	if err != nil {
		return asClientError(err, "fetch tank page")
	}
	err = extract(doc)
	if err != nil {
		return asClientError(err, "extract")
	}

	err = f.cookies.Save(ctx, session.Cookies())
	if err != nil {
		return &Error{Kind: KindClient, Message: "save cookies", Cause: err}
	}
	return nil
}

// FetchLevel returns the fill percentage shown by the tank page's progress bar.
func (f *Fetcher) FetchLevel(ctx context.Context) (int, error) {
	var level int
	err := f.fetch(ctx, "fetcher:FetchLevel", func(doc *goquery.Document) error {
		var err error
		level, err = ParseLevel(htmlutil.NewDocument(doc))
		return err
	})
	return level, err
}

// FetchTank returns every detail of the tank the page shows.
func (f *Fetcher) FetchTank(ctx context.Context) (Tank, error) {
	var tank Tank
	err := f.fetch(ctx, "fetcher:FetchTank", func(doc *goquery.Document) error {
		tank = ParseTank(htmlutil.NewDocument(doc))
		return nil
	})
	return tank, err
}

// FetchReading reads both the level and the tank details off a single load of
// the tank page, a page without a progress bar leaves the level nil.
func (f *Fetcher) FetchReading(ctx context.Context) (Reading, error) {
	var reading Reading
	err := f.fetch(ctx, "fetcher:FetchReading", func(doc *goquery.Document) error {
		page := htmlutil.NewDocument(doc)
		reading.Time = f.time.Now()
		reading.Tank = ParseTank(page)

		level, err := ParseLevel(page)
		if errors.Is(err, ErrExtraction) {
			f.tel.ReportDebug(report_fetcher_fetch, fmt.Errorf("reading without level: %w", err))
			return nil
		}
		if err != nil {
			return err
		}
		reading.Level = &level
		return nil
	})
	return reading, err
}

// FetchPage returns the tank page itself.
func (f *Fetcher) FetchPage(ctx context.Context) (*goquery.Document, error) {
	var page *goquery.Document
	err := f.fetch(ctx, "fetcher:FetchPage", func(doc *goquery.Document) error {
		page = doc
		return nil
	})
	return page, err
}
