package commands

import (
	"myfuelportal-backend/internal/notify"
	"myfuelportal-backend/internal/scrapers/fuelportal"
	"myfuelportal-backend/lib/sqliteutil"
	"time"

	"golang.org/x/time/rate"
)

type CookiesConfig struct {
	// File is the json file cookies are kept in, a file in the temp
	// directory is used when neither File nor Database is set.
	File string `json:"file"`
	// Database keeps cookies in a sqlite database instead.
	Database sqliteutil.Database `json:"database"`
	// Key is the row cookies are stored under in Database.
	Key string `json:"key"`
}

type WatchConfig struct {
	// Schedule is a cron spec (`@every <duration>` works too).
	Schedule string `json:"schedule"`
	// LowLevel is the fill percentage under which a notification is sent.
	LowLevel int `json:"low_level"`
	// Retention is how many days of history are kept, 0 keeps everything.
	Retention int `json:"retention"`
}

type Config struct {
	Username string `json:"username"`
	// Password is looked up in the OS keyring when empty.
	Password      string   `json:"password"`
	TargetUrl     string   `json:"target_url"`
	IdentityField string   `json:"identity_field"`
	SecretField   string   `json:"secret_field"`
	AllowedHosts  []string `json:"allowed_hosts"`
	// CloudflareBypass routes requests through a transport that gets past
	// cloudflare's browser checks.
	CloudflareBypass bool `json:"cloudflare_bypass"`
	// seconds
	Timeout int `json:"timeout"`
	// requests per second
	RateLimit float64 `json:"rate_limit"`

	Cookies CookiesConfig       `json:"cookies"`
	History sqliteutil.Database `json:"history"`
	Watch   WatchConfig         `json:"watch"`
	Smtp    notify.SmtpConfig   `json:"smtp"`
}

func (c Config) clientOptions(password string) fuelportal.ClientOptions {
	return fuelportal.ClientOptions{
		TargetUrl: c.TargetUrl,
		Credentials: fuelportal.Credentials{
			Username: c.Username,
			Password: password,
		},
		IdentityField:    c.IdentityField,
		SecretField:      c.SecretField,
		Timeout:          time.Duration(c.Timeout) * time.Second,
		AllowedHosts:     c.AllowedHosts,
		CloudflareBypass: c.CloudflareBypass,
		RateLimit:        rate.Limit(c.RateLimit),
	}
}
