package commands

import (
	"context"
	"errors"
	"fmt"
	"myfuelportal-backend/internal/credentials"
	"myfuelportal-backend/internal/scrapers/fuelportal"

	"github.com/spf13/afero"
)

// cookieStore returns the store configured for the session cookies and a
// function closing whatever it opened.
func cookieStore(ctx context.Context, g *globals) (fuelportal.CookieStore, func(), error) {
	config := g.config.Cookies
	if config.Database.File != "" || config.Database.Url != "" {
		db, err := config.Database.Open(ctx, "")
		if err != nil {
			return nil, nil, fmt.Errorf("open cookie database: %w", err)
		}
		store, err := fuelportal.NewSqliteCookieStore(ctx, db, config.Key, g.tel)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	}

	return fuelportal.NewFileCookieStore(afero.NewOsFs(), config.File, g.tel), func() {}, nil
}

// newFetcher builds a fetcher from the config, customize may adjust the
// client options before it is created.
func newFetcher(ctx context.Context, customize func(opts *fuelportal.ClientOptions)) (*fuelportal.Fetcher, func(), error) {
	g := getGlobals(ctx)
	if g.config.Username == "" {
		return nil, nil, fmt.Errorf("a username was not specified, set it in the config or with --username")
	}

	password, err := g.keyring.Resolve(g.config.Username, g.config.Password)
	if errors.Is(err, credentials.ErrNotFound) {
		return nil, nil, fmt.Errorf(
			"no password for %s, set it in the config or run `fuelportal-cli keyring set`",
			g.config.Username,
		)
	}
	if err != nil {
		return nil, nil, err
	}

	store, closeStore, err := cookieStore(ctx, g)
	if err != nil {
		return nil, nil, err
	}

	opts := g.config.clientOptions(password)
	if customize != nil {
		customize(&opts)
	}
	return fuelportal.NewFetcher(opts, store, g.tel), closeStore, nil
}
