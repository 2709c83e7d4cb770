// Package templates renders the upload page and validation result fragments.
//
// Components live in components.templ; components_templ.go is regenerated
// from it with templ generate.
package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate

import (
	"context"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/filecheck/internal/core"
)

// Markers appended to verdict messages shown to the user.
const (
	PassMark = "✅"
	FailMark = "❌"
)

// Mark appends the pass or fail marker to a verdict message.
func Mark(v core.Verdict) string {
	if v.Passed {
		return v.Message + " " + PassMark
	}
	return v.Message + " " + FailMark
}

// Render writes c to a string.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}
