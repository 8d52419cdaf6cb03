package auth

import (
	"context"
	"html"
	"io"

	"github.com/a-h/templ"
)

type LoginForm struct {
	Username  string
	Error     string
	CSRFToken string
	Next      string
}

func Login(form LoginForm) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, loginHTML(form))
		return err
	})
}

func loginHTML(form LoginForm) string {
	out := `<div class="mx-auto mt-16 max-w-sm rounded border bg-white p-6 shadow-sm">` +
		`<h1 class="mb-4 text-xl font-semibold">Sign in</h1>`
	if form.Error != "" {
		out += `<p class="mb-3 rounded bg-red-50 p-2 text-sm text-red-700" role="alert">` + html.EscapeString(form.Error) + `</p>`
	}
	out += `<form method="post" action="/login" class="space-y-3">` +
		`<input type="hidden" name="gorilla.csrf.Token" value="` + html.EscapeString(form.CSRFToken) + `">` +
		`<input type="hidden" name="next" value="` + html.EscapeString(form.Next) + `">` +
		`<label class="block text-sm">Username<input name="username" autocomplete="username" required class="mt-1 w-full rounded border px-2 py-1" value="` + html.EscapeString(form.Username) + `"></label>` +
		`<label class="block text-sm">Password<input name="password" type="password" autocomplete="current-password" required class="mt-1 w-full rounded border px-2 py-1"></label>` +
		`<button type="submit" class="w-full rounded bg-blue-600 py-2 text-white">Sign in</button>` +
		`</form></div>`
	return out
}
