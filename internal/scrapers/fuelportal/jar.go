package fuelportal

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// sessionJar is a cookie jar that remembers the urls cookies were set for, the
// standard jar can only be read back one url at a time.
type sessionJar struct {
	jar *cookiejar.Jar

	mutex   sync.Mutex
	origins map[string]*url.URL
}

func newSessionJar() (*sessionJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &sessionJar{
		jar:     jar,
		origins: map[string]*url.URL{},
	}, nil
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.jar.SetCookies(u, cookies)

	j.mutex.Lock()
	defer j.mutex.Unlock()
	for _, c := range cookies {
		origin := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: cookiePath(u, c)}
		j.origins[origin.String()] = origin
	}
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	return j.jar.Cookies(u)
}

// urls returns every url a cookie was set for, sorted.
func (j *sessionJar) urls() []*url.URL {
	j.mutex.Lock()
	defer j.mutex.Unlock()

	keys := make([]string, 0, len(j.origins))
	for key := range j.origins {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]*url.URL, len(keys))
	for i, key := range keys {
		out[i] = j.origins[key]
	}
	return out
}

// cookiePath is the path the jar stores c under when it is set for u.
func cookiePath(u *url.URL, c *http.Cookie) string {
	if strings.HasPrefix(c.Path, "/") {
		return c.Path
	}
	path := u.Path
	i := strings.LastIndex(path, "/")
	if !strings.HasPrefix(path, "/") || i == 0 {
		return "/"
	}
	return path[:i]
}
