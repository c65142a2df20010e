package report

import (
	"bytes"
	"encoding/json"
	"html/template"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/shaderbuild/internal/domain"
	"github.com/John-Robertt/shaderbuild/internal/infra/fsx"
)

// Write 把报告原子写入 path：扩展名为 .html/.htm 时输出 HTML，其余输出 JSON。
func Write(path string, rr domain.RunReport) error {
	var (
		b   []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		b, err = RenderHTML(rr)
	default:
		b, err = RenderJSON(rr)
	}
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicPath(path, b)
}

// RenderJSON 输出带缩进的 JSON（末尾换行）。
func RenderJSON(rr domain.RunReport) ([]byte, error) {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// RenderHTML 输出单文件 HTML 报告（无外部资源，适合作为 CI 产物直接打开）。
func RenderHTML(rr domain.RunReport) ([]byte, error) {
	var buf bytes.Buffer
	if err := htmlTmpl.Execute(&buf, rr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var htmlTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"base": filepath.Base,
	"join": strings.Join,
}).Parse(`<!DOCTYPE html>
<html lang="zh">
<head>
<meta charset="utf-8">
<title>shaderbuild report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; vertical-align: top; }
tr.failed td { background: #fdd; }
tr.not_run td { background: #eee; color: #777; }
pre { margin: 0; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>shaderbuild</h1>
<dl id="config">
<dt>glsl_dir</dt><dd>{{.GLSLDir}}</dd>
<dt>output_dir</dt><dd>{{.OutputDir}}</dd>
<dt>compiler</dt><dd>{{.Compiler}}</dd>
<dt>started_at</dt><dd>{{.StartedAt.Format "2006-01-02T15:04:05Z07:00"}}</dd>
<dt>finished_at</dt><dd>{{.FinishedAt.Format "2006-01-02T15:04:05Z07:00"}}</dd>
</dl>
<p id="summary" data-total="{{.Summary.Total}}" data-compiled="{{.Summary.Compiled}}" data-failed="{{.Summary.Failed}}" data-not-run="{{.Summary.NotRun}}">
total={{.Summary.Total}} compiled={{.Summary.Compiled}} failed={{.Summary.Failed}} not_run={{.Summary.NotRun}}
</p>
<table id="items">
<thead><tr><th>source</th><th>output</th><th>stage</th><th>status</th><th>exit</th><th>spir-v</th><th>error</th></tr></thead>
<tbody>
{{- range .Items}}
<tr class="{{.Status}}">
<td class="source">{{if .Source}}{{base .Source}}{{end}}</td>
<td class="output">{{if .Output}}{{base .Output}}{{end}}</td>
<td class="stage">{{.Stage}}</td>
<td class="status">{{.Status}}</td>
<td class="exit">{{.ExitCode}}</td>
<td class="spirv">{{with .SPIRV}}v{{.Version}} bound={{.Bound}} {{.Size}}B <code>{{.BLAKE3}}</code>{{end}}</td>
<td class="error">{{if .ErrorCode}}<b>{{.ErrorCode}}</b> <pre>{{.ErrorMsg}}</pre>{{end}}{{if .Command}}<code class="command">{{join .Command " "}}</code>{{end}}</td>
</tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))
