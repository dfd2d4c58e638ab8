package panel

const baseTemplate = `{{define "base"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} · wfgraph</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; }
th, td { padding: .3rem .8rem; border-bottom: 1px solid #ddd; text-align: left; }
.badge { padding: 0 .4rem; border-radius: .3rem; font-size: .85em; }
.badge-success { background: #d4edda; } .badge-active { background: #cce5ff; }
.badge-error { background: #f8d7da; } .badge-secondary { background: #eee; }
.issues li { color: #a00; }
</style>
</head>
<body>
<nav><a href="/">Graphs</a></nav>
<h1>{{.Title}}</h1>
{{template "content" .}}
</body>
</html>{{end}}`

var pageTemplates = map[string]string{
	"index": `{{define "content"}}
<form method="get"><input name="prefix" value="{{.Prefix}}" placeholder="name prefix"> <button>Filter</button></form>
<table>
<tr><th>Graph</th><th>Version</th><th>Nodes</th><th>Connections</th><th>Updated</th></tr>
{{range .Graphs}}<tr>
<td><a href="/graphs/{{.ID}}">{{if .Name}}{{truncate .Name 60}}{{else}}{{.ID}}{{end}}</a></td>
<td>{{.Version}}</td><td>{{.Nodes}}</td><td>{{.Connections}}</td><td>{{timeAgo .UpdatedAt}}</td>
</tr>{{else}}<tr><td colspan="5">No graphs stored.</td></tr>{{end}}
</table>
<p>{{if gt .Offset 0}}<a href="/?prefix={{.Prefix}}&offset={{subtract .Offset .Limit}}">previous</a>{{end}}
{{if .More}}<a href="/?prefix={{.Prefix}}&offset={{add .Offset .Limit}}">next</a>{{end}}</p>
{{end}}`,

	"graph": `{{define "content"}}
<p>Version {{.Record.Version}} · {{.Orientation}} ·
<a href="?orientation=horizontal">horizontal</a> | <a href="?orientation=vertical">vertical</a> ·
<a href="/api/graphs/{{.Record.ID}}/diagram?format=svg&orientation={{.Orientation}}">svg</a> ·
<a href="/api/graphs/{{.Record.ID}}/diagram?format=mermaid&orientation={{.Orientation}}">mermaid</a></p>
<div class="diagram">{{.SVG}}</div>
{{if .Issues}}<h2>Issues</h2><ul class="issues">{{range .Issues}}<li>{{.Code}}: {{.Message}}</li>{{end}}</ul>{{end}}
<h2>Nodes</h2>
<table>
<tr><th>ID</th><th>Kind</th><th>Name</th><th>Assignee</th><th>SLA days</th><th>Status</th></tr>
{{range .Nodes}}<tr>
<td>{{.ID}}</td><td>{{.Kind}}</td><td>{{.Name}}</td><td>{{.Assignee}}</td>
<td>{{if .SLADays}}{{.SLADays}}{{end}}</td>
<td>{{if .Status}}<span class="badge {{statusBadge (print .Status)}}">{{.Status}}</span>{{end}}</td>
</tr>{{end}}
</table>
<script>
new EventSource("/sse/graphs/{{.Record.ID}}").addEventListener("graph_saved", () => location.reload());
</script>
{{end}}`,
}
