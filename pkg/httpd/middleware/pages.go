package middleware

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/marmos91/httpgate/internal/logger"
)

var pageTemplates = template.Must(template.New("pages").Parse(`
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;background:#f4f5f7;display:flex;justify-content:center;margin-top:10vh}
main{background:#fff;padding:2rem 2.5rem;border-radius:6px;box-shadow:0 1px 4px rgba(0,0,0,.15);min-width:18rem}
label{display:block;margin:.8rem 0 .2rem}
input{width:100%;padding:.4rem;box-sizing:border-box}
button{margin-top:1.2rem;padding:.5rem 1.2rem}
.error{color:#b00020}
</style>
</head>
<body><main>{{end}}

{{define "foot"}}</main></body>
</html>{{end}}

{{define "login"}}{{template "head" .}}
<h1>Sign in</h1>
<form method="post" action="{{.LoginURL}}">
<label for="username">Username</label>
<input id="username" name="username" autocomplete="username" autofocus required>
<label for="password">Password</label>
<input id="password" name="password" type="password" autocomplete="current-password" required>
<button type="submit">Sign in</button>
</form>
{{template "foot" .}}{{end}}

{{define "loginError"}}{{template "head" .}}
<h1>Sign in failed</h1>
<p class="error">Invalid username or password.</p>
<p><a href="{{.LoginURL}}">Try again</a></p>
{{template "foot" .}}{{end}}
`))

const (
	loginTemplate      = "login"
	loginErrorTemplate = "loginError"
)

var pageTitles = map[string]string{
	loginTemplate:      "Sign in",
	loginErrorTemplate: "Sign in failed",
}

// pages renders the form authentication pages for one context path.
type pages struct {
	rootURL  string
	loginURL string
	errorURL string
}

func newPages(contextPath string) *pages {
	return &pages{
		rootURL:  contextPath + "/",
		loginURL: contextPath + LoginPath,
		errorURL: contextPath + LoginErrorPath,
	}
}

func (p *pages) render(w http.ResponseWriter, r *http.Request, status int, name string) {
	var buf bytes.Buffer
	err := pageTemplates.ExecuteTemplate(&buf, name, struct {
		Title    string
		LoginURL string
	}{pageTitles[name], p.loginURL})
	if err != nil {
		logger.ErrorCtx(r.Context(), "Page rendering failed", "template", name, logger.Err(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("X-Frame-Options", "DENY")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
