package fuelportal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"myfuelportal-backend/internal/components/assert"
	"myfuelportal-backend/internal/components/telemetry"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	report_cookies_load = "cookies.load"
	report_cookies_save = "cookies.save"
)

// DefaultCookieKey is the fixed identifier session cookies are stored under.
const DefaultCookieKey = "my_fuel_portal_cookies"

// CookieSet maps cookie name to cookie value.
type CookieSet map[string]string

func (c CookieSet) httpCookies() []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(c))
	for name, value := range c {
		cookies = append(cookies, &http.Cookie{
			Name:  name,
			Value: value,
			// the portal's cookies are not scoped, send them with every page
			Path: "/",
		})
	}
	return cookies
}

func decodeCookieSet(data []byte) (CookieSet, error) {
	var set CookieSet
	err := json.Unmarshal(data, &set)
	if err != nil {
		return nil, err
	}
	if set == nil {
		set = CookieSet{}
	}
	return set, nil
}

// CookieStore persists the session cookies between fetches.
//
// note: fault injection point
type CookieStore interface {
	// Load never fails, a missing or unreadable cookie set is returned as an
	// empty set which just means the next fetch starts logged out.
	Load(ctx context.Context) CookieSet
	// Save overwrites whatever was stored before.
	Save(ctx context.Context, cookies CookieSet) error
}

// DefaultCookiePath is where cookies are kept when no path is configured.
func DefaultCookiePath() string {
	return filepath.Join(os.TempDir(), "temp-my-fuel-portal-cookies.json")
}

// FileCookieStore stores the cookie set as a JSON object in a single file.
type FileCookieStore struct {
	fs   afero.Fs
	path string
	tel  telemetry.API
}

func NewFileCookieStore(filesystem afero.Fs, path string, tel telemetry.API) FileCookieStore {
	assert.NotNil(filesystem, "filesystem")
	assert.NotNil(tel, "tel")
	if path == "" {
		path = DefaultCookiePath()
	}
	return FileCookieStore{
		fs:   filesystem,
		path: path,
		tel:  telemetry.NewScopedAPI("fuelportal", tel),
	}
}

func (s FileCookieStore) Load(ctx context.Context) CookieSet {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return CookieSet{}
	}
	if err != nil {
		s.tel.ReportWarning(report_cookies_load, fmt.Errorf("read %s: %w", s.path, err))
		return CookieSet{}
	}
	set, err := decodeCookieSet(data)
	if err != nil {
		s.tel.ReportWarning(report_cookies_load, fmt.Errorf("decode %s: %w", s.path, err))
		return CookieSet{}
	}
	return set
}

func (s FileCookieStore) Save(ctx context.Context, cookies CookieSet) error {
	data, err := json.Marshal(cookies)
	if err != nil {
		return err
	}
	err = s.fs.MkdirAll(filepath.Dir(s.path), 0700)
	if err != nil {
		s.tel.ReportBroken(report_cookies_save, fmt.Errorf("mkdir: %w", err), s.path)
		return err
	}
	err = afero.WriteFile(s.fs, s.path, data, 0600)
	if err != nil {
		s.tel.ReportBroken(report_cookies_save, fmt.Errorf("write: %w", err), s.path)
		return err
	}
	return nil
}

// CookieStoreSchema creates the table used by SqliteCookieStore.
const CookieStoreSchema = `create table if not exists cookie_store (
	key text primary key,
	data text not null
);`

// SqliteCookieStore stores the cookie set as a row of a sqlite database, for
// hosts that give the client a storage slot instead of a file.
type SqliteCookieStore struct {
	db  *sql.DB
	key string
	tel telemetry.API
}

func NewSqliteCookieStore(ctx context.Context, db *sql.DB, key string, tel telemetry.API) (SqliteCookieStore, error) {
	assert.NotNil(db, "db")
	assert.NotNil(tel, "tel")
	if key == "" {
		key = DefaultCookieKey
	}
	_, err := db.ExecContext(ctx, CookieStoreSchema)
	if err != nil {
		return SqliteCookieStore{}, err
	}
	return SqliteCookieStore{
		db:  db,
		key: key,
		tel: telemetry.NewScopedAPI("fuelportal", tel),
	}, nil
}

func (s SqliteCookieStore) Load(ctx context.Context) CookieSet {
	var data string
	err := s.db.QueryRowContext(
		ctx,
		"select data from cookie_store where key = ?",
		s.key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return CookieSet{}
	}
	if err != nil {
		s.tel.ReportWarning(report_cookies_load, fmt.Errorf("query: %w", err), s.key)
		return CookieSet{}
	}
	set, err := decodeCookieSet([]byte(data))
	if err != nil {
		s.tel.ReportWarning(report_cookies_load, fmt.Errorf("decode: %w", err), s.key)
		return CookieSet{}
	}
	return set
}

func (s SqliteCookieStore) Save(ctx context.Context, cookies CookieSet) error {
	data, err := json.Marshal(cookies)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`insert into cookie_store (key, data) values (?, ?)
		on conflict (key) do update set data = excluded.data`,
		s.key,
		string(data),
	)
	if err != nil {
		s.tel.ReportBroken(report_cookies_save, fmt.Errorf("upsert: %w", err), s.key)
		return err
	}
	return nil
}
