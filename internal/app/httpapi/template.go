package httpapi

import (
	_ "embed"
	"html/template"
)

//go:embed dashboard.html.tmpl
var dashboardTmpl string

var pageTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"inc": func(n int) int { return n + 1 },
}).Parse(dashboardTmpl))
