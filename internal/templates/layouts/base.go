package layouts

import (
	"context"
	"html"
	"io"

	"github.com/a-h/templ"
)

// Page holds what the shell around every HTML page needs.
type Page struct {
	Title     string
	Username  string
	CSRFToken string
}

// Base wraps content in the document shell with HTMX loaded.
func Base(page Page, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := "Rosterforge"
		if page.Title != "" {
			title = page.Title + " · Rosterforge"
		}
		head := `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">` +
			`<meta name="viewport" content="width=device-width, initial-scale=1">` +
			`<title>` + html.EscapeString(title) + `</title>` +
			`<meta name="csrf-token" content="` + html.EscapeString(page.CSRFToken) + `">` +
			`<link rel="stylesheet" href="/static/css/main.css">` +
			`<script src="https://unpkg.com/htmx.org@2.0.4" defer></script>` +
			`<script src="/static/js/board.js" defer></script>` +
			`</head><body class="bg-gray-50 text-gray-900">`
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		if _, err := io.WriteString(w, navHTML(page)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<main class="mx-auto max-w-7xl p-4">`); err != nil {
			return err
		}
		if content != nil {
			if err := content.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func navHTML(page Page) string {
	nav := `<nav class="flex items-center justify-between border-b bg-white px-4 py-2"><a href="/" class="font-semibold">Rosterforge</a>`
	if page.Username == "" {
		return nav + `</nav>`
	}
	return nav + `<form method="post" action="/logout" class="flex items-center gap-3">` +
		`<span class="text-sm text-gray-600">` + html.EscapeString(page.Username) + `</span>` +
		`<input type="hidden" name="gorilla.csrf.Token" value="` + html.EscapeString(page.CSRFToken) + `">` +
		`<button type="submit" class="text-sm text-blue-700">Sign out</button></form></nav>`
}
