// Package templates renders the dashboard HTML as templ components.
package templates

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/sheetpatch/internal/core"
	"github.com/JonMunkholm/sheetpatch/internal/history"
)

var esc = templ.EscapeString

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="zh"><head><meta charset="utf-8"><title>%s</title>`+
			`<style>body{font-family:sans-serif;margin:2rem}table{border-collapse:collapse}`+
			`td,th{border:1px solid #ccc;padding:.3rem .6rem}.fail{color:#b00}.ok{color:#070}</style>`+
			`</head><body>`, esc(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// Dashboard lists recent runs with an upload form.
func Dashboard(runs []history.Run, status core.LimiterStatus) templ.Component {
	return Layout("Sheetpatch", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fmt.Fprintf(w, `<h1>Sheetpatch</h1><p>Active runs: %d / %d</p>`, status.Active, status.Capacity)
		io.WriteString(w, `<form method="post" action="/api/reconcile" enctype="multipart/form-data">`+
			`<p><label>Workbook <input type="file" name="file" accept=".xlsx,.xlsm" required></label></p>`+
			`<p><label>Corrections<br><textarea name="payload" rows="12" cols="80"></textarea></label></p>`+
			`<p><button type="submit">Apply</button></p></form>`)

		if len(runs) == 0 {
			_, err := io.WriteString(w, `<p>No runs yet.</p>`)
			return err
		}

		io.WriteString(w, `<h2>Recent runs</h2><table><thead><tr><th>Time</th><th>Workbook</th>`+
			`<th>Result</th><th>Rows</th><th>Cells</th><th></th></tr></thead><tbody>`)
		for _, run := range runs {
			if err := runRow(w, run); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table>`)
		return err
	}))
}

func runRow(w io.Writer, run history.Run) error {
	result := `<span class="ok">OK</span>`
	link := fmt.Sprintf(`<a href="/api/runs/%s/download">%s</a>`, esc(run.ID), esc(run.FileName))
	if !run.Success {
		result = fmt.Sprintf(`<span class="fail" title="%s">%s</span>`, esc(run.Error), esc(run.ErrorCode))
		link = ""
	}
	_, err := fmt.Fprintf(w, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%d / %d</td><td>%d</td><td>%s</td></tr>`,
		run.CreatedAt.Local().Format(time.DateTime),
		esc(run.SourceName),
		result,
		run.MatchedRows, run.TotalRows,
		run.CellsUpdated,
		link,
	)
	return err
}

// ErrorAlert renders a fault for non-API clients.
func ErrorAlert(message, action, code string) templ.Component {
	return Layout("Error", templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div role="alert" class="fail"><strong>%s</strong><p>%s</p><small>Code: %s</small></div>`,
			esc(message), esc(action), esc(code))
		return err
	}))
}
