package api

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/kalambet/permitflow/internal/intake"
	"github.com/kalambet/permitflow/internal/permit"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": func(vals any) string {
		switch v := vals.(type) {
		case []permit.WorkType:
			return joinStrings(v)
		case []permit.InteriorWork:
			return joinStrings(v)
		case []permit.ExteriorWork:
			return joinStrings(v)
		}
		return ""
	},
	"tierClass": func(r permit.Requirement) string {
		return strings.ReplaceAll(string(r), "_", "-")
	},
	"stamp": func(r permit.Requirement) string {
		if r.PermitRequired() {
			return "✅"
		}
		return "❌"
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<title>Questionnaire Submissions</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; background: #f5f5f5; }
h1 { color: #333; }
.questionnaire { background: white; padding: 20px; margin: 20px 0; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
.work-type { background: #e3f2fd; padding: 5px 10px; border-radius: 4px; display: inline-block; margin: 5px; font-size: 14px; }
.tier { margin-top: 15px; padding: 15px; border-radius: 4px; border-left: 4px solid; }
.in-house-review { background: #ffebee; border-color: #f44336; }
.otc-review { background: #e3f2fd; border-color: #2196f3; }
.no-permit { background: #e8f5e9; border-color: #4caf50; }
.timestamp { color: #666; font-size: 14px; margin-top: 10px; }
</style>
</head>
<body>
<h1>Questionnaire Submissions ({{len .Rows}})</h1>
{{- if not .Rows}}
<p>No submissions yet.</p>
{{- end}}
{{- range .Rows}}
{{- $r := .Questionnaire.Responses}}
<div class="questionnaire">
  <div><strong>ID:</strong> {{.Questionnaire.ID}}</div>
  {{- if .Project.Name}}
  <div><strong>Project:</strong> {{.Project.Name}} ({{.Project.Location}})</div>
  {{- end}}
  <div class="work-type"><strong>Work Types:</strong> {{join $r.WorkTypes}}</div>
  {{- with $r.Payload}}
  {{- if .InteriorWork}}
  <div class="work-type"><strong>Interior:</strong> {{join .InteriorWork}}</div>
  {{- end}}
  {{- if .ExteriorWork}}
  <div class="work-type"><strong>Exterior:</strong> {{join .ExteriorWork}}</div>
  {{- end}}
  {{- if .PropertyAddition}}
  <div class="work-type"><strong>Addition:</strong> {{.PropertyAddition}}</div>
  {{- end}}
  {{- end}}
  <div class="tier {{tierClass .Questionnaire.PermitRequirement}}">
    <strong>{{stamp .Questionnaire.PermitRequirement}} {{.Details.Title}}</strong>
    <ul>
    {{- range .Details.Steps}}
      <li>{{.}}</li>
    {{- end}}
    </ul>
  </div>
  <div class="timestamp">Submitted: {{.Questionnaire.CreatedAt.Format "2006-01-02 15:04:05 MST"}}</div>
</div>
{{- end}}
</body>
</html>
`))

func joinStrings[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func handleReport(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := deps.Service.Report()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to build report: %v", err)
			return
		}
		renderReport(w, rep)
	}
}

func renderReport(w http.ResponseWriter, rep intake.Report) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, rep); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to render report: %v", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
