package fuelportal

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

const (
	testUsername = "owner@example.com"
	testPassword = "hunter2-but-longer"
	testToken    = "CfDJ8token"
	sessionValue = "authenticated-session"
)

// fakePortal imitates the portal's login flow: the tank page redirects to the
// login page until the session cookie is present.
type fakePortal struct {
	server *httptest.Server

	mutex sync.Mutex
	// tankStatus replaces the tank page with an error status when set.
	tankStatus int
	// maintenance sends logged in users to a maintenance page instead of the tank.
	maintenance bool
	// tankPage replaces the tank page's html when set.
	tankPage string
	// loginPage replaces the login page's html when set.
	loginPage string
	logins    int
	tankLoads int
}

const loginForm = `<!DOCTYPE html>
<html><head><title>Log in - My Fuel Portal</title></head>
<body>
<form method="post" action="/Account/Login?ReturnUrl=%%2FTank">
  <input name="__RequestVerificationToken" type="hidden" value="%s">
  <label>Email <input type="email" name="EmailAddress" value=""></label>
  <label>Password <input type="password" name="Password"></label>
  <label><input type="checkbox" name="RememberMe" value="true"> Remember me</label>
  <select name="Region"><option value="east">East</option><option value="west" selected>West</option></select>
  <button type="submit" name="action" value="login">Log in</button>
  <button type="submit" name="action" value="forgot">Forgot password</button>
</form>
%s
</body></html>`

func newFakePortal(t testing.TB) *fakePortal {
	p := &fakePortal{}
	mux := http.NewServeMux()
	mux.HandleFunc("/Tank", p.handleTank)
	mux.HandleFunc("/Account/Login", p.handleLogin)
	mux.HandleFunc("/Account/Maintenance", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>We'll be back soon</h1></body></html>`)
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) TargetUrl() string {
	return p.server.URL + "/Tank"
}

func (p *fakePortal) Logins() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.logins
}

func (p *fakePortal) TankLoads() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.tankLoads
}

func (p *fakePortal) set(update func(p *fakePortal)) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	update(p)
}

func authenticated(r *http.Request) bool {
	cookie, err := r.Cookie("session")
	return err == nil && cookie.Value == sessionValue
}

func (p *fakePortal) handleTank(w http.ResponseWriter, r *http.Request) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.tankStatus != 0 {
		w.WriteHeader(p.tankStatus)
		fmt.Fprint(w, "<html><body>error</body></html>")
		return
	}
	if !authenticated(r) {
		http.Redirect(w, r, "/Account/Login?ReturnUrl=%2FTank", http.StatusFound)
		return
	}
	if p.maintenance {
		http.Redirect(w, r, "/Account/Maintenance", http.StatusFound)
		return
	}
	p.tankLoads++
	if p.tankPage != "" {
		fmt.Fprint(w, p.tankPage)
		return
	}
	fmt.Fprint(w, sample1)
}

func (p *fakePortal) renderLogin(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{Name: ".AspNetCore.Antiforgery", Value: "antiforgery", Path: "/"})
	if p.loginPage != "" {
		fmt.Fprint(w, p.loginPage)
		return
	}
	fmt.Fprintf(w, loginForm, testToken, message)
}

func (p *fakePortal) handleLogin(w http.ResponseWriter, r *http.Request) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if r.Method != http.MethodPost {
		p.renderLogin(w, "")
		return
	}

	p.logins++
	err := r.ParseForm()
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if _, err := r.Cookie(".AspNetCore.Antiforgery"); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	valid := r.PostForm.Get("__RequestVerificationToken") == testToken &&
		r.PostForm.Get("EmailAddress") == testUsername &&
		r.PostForm.Get("Password") == testPassword &&
		r.PostForm.Get("Region") == "west" &&
		r.PostForm.Get("action") == "login" &&
		!r.PostForm.Has("RememberMe")
	if !valid {
		p.renderLogin(w, `<div class="validation-summary-errors">Invalid login attempt.</div>`)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: "session", Value: sessionValue, Path: "/", HttpOnly: true})
	returnUrl := r.URL.Query().Get("ReturnUrl")
	if returnUrl == "" {
		returnUrl = "/"
	}
	http.Redirect(w, r, (&url.URL{Path: returnUrl}).String(), http.StatusFound)
}
