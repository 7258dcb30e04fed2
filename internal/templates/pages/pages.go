// Package pages holds the few server-rendered HTML pages Ludwig serves:
// the landing banner, the browser-facing sign-in and dashboard stubs, and the
// error page. Everything else is JSON.
package pages

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
)

// ServiceName is shown in page titles.
const ServiceName = "Ludwig"

// layout wraps body in the shared HTML shell. Every dynamic string passed to
// body must go through templ.EscapeString.
func layout(title string, body func(w io.Writer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
				`<meta name="viewport" content="width=device-width, initial-scale=1">`+
				`<title>%s · %s</title>`+
				`<style>body{font-family:system-ui,sans-serif;max-width:40rem;margin:4rem auto;padding:0 1rem;color:#222}`+
				`code{background:#f3f3f3;padding:0 .25rem}</style></head><body>`,
			templ.EscapeString(title), ServiceName,
		); err != nil {
			return err
		}
		if err := body(w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// Landing is the service banner served at /.
func Landing() templ.Component {
	return layout("Home", func(w io.Writer) error {
		_, err := io.WriteString(w,
			`<h1>`+ServiceName+`</h1>`+
				`<p>Authentication service. Clients register with <code>POST /api/auth/register</code>, `+
				`sign in with <code>POST /api/auth/login</code> and present the returned token as `+
				`<code>Authorization: Bearer &lt;token&gt;</code>.</p>`)
		return err
	})
}

// Login is shown to browsers that reach a page requiring a session.
func Login() templ.Component {
	return layout("Sign in", func(w io.Writer) error {
		_, err := io.WriteString(w,
			`<h1>Sign in required</h1>`+
				`<p>Sign in with <code>POST /api/auth/login</code>; the response sets the session cookie.</p>`)
		return err
	})
}

// Dashboard greets a signed-in user.
func Dashboard(name, email string) templ.Component {
	return layout("Dashboard", func(w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<h1>Welcome, %s</h1><p>Signed in as <code>%s</code>.</p>`,
			templ.EscapeString(name), templ.EscapeString(email))
		return err
	})
}

// ErrorPage renders an HTTP error for browser requests.
func ErrorPage(code int, message string) templ.Component {
	title := http.StatusText(code)
	if title == "" {
		title = "Error"
	}
	return layout(title, func(w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<h1>%s</h1><p>%s</p><p><a href="/">Back to start</a></p>`,
			strconv.Itoa(code)+" "+templ.EscapeString(title), templ.EscapeString(message))
		return err
	})
}
