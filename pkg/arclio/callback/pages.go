package callback

import (
	"html/template"

	"github.com/Masterminds/sprig/v3"
)

const (
	pageSuccess = "success"
	pageFailure = "failure"
)

type pageData struct {
	Error       string
	Description string
}

var pageTemplates = template.Must(template.New("pages").Funcs(sprig.FuncMap()).Parse(`
{{- define "layout-head" -}}
<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{ . }}</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #fff; }
    .container { text-align: center; max-width: 400px; padding: 2rem; }
    .ok { font-size: 64px; color: #22c55e; margin-bottom: 1rem; }
    .fail { font-size: 64px; color: #ef4444; margin-bottom: 1rem; }
    h1 { color: #000; font-size: 1.5rem; font-weight: 600; margin: 0 0 0.5rem 0; }
    p { color: #666; margin: 0.25rem 0; font-size: 0.9rem; }
    .error { color: #ef4444; font-family: monospace; font-size: 0.8rem; margin-top: 1rem; }
  </style>
</head>
{{- end -}}

{{- define "success" -}}
{{ template "layout-head" "Authentication Successful" }}
<body>
  <div class="container">
    <div class="ok">&#10003;</div>
    <h1>Authentication Successful</h1>
    <p>You can close this window and return to the terminal.</p>
  </div>
  <script>setTimeout(() => window.close(), 3000)</script>
</body>
</html>
{{- end -}}

{{- define "failure" -}}
{{ template "layout-head" "Authentication Failed" }}
<body>
  <div class="container">
    <div class="fail">&#10007;</div>
    <h1>Authentication Failed</h1>
    <p>There was an error during authentication.</p>
    <p class="error">{{ .Error | trunc 200 }}: {{ .Description | default "Unknown error" | trunc 500 }}</p>
    <p>You can close this window and return to the terminal.</p>
  </div>
  <script>setTimeout(() => window.close(), 3000)</script>
</body>
</html>
{{- end -}}
`))
