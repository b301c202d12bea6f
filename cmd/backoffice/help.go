package main

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/backoffice/internal/ui"
)

// helpRule styles every match of re. Capture group 1, when present, is kept
// as is and group 2 is styled; otherwise the whole match is styled.
type helpRule struct {
	re     *regexp.Regexp
	render func(string) string
}

var helpRules = []helpRule{
	// Group headers such as "Records:" or "Flags:".
	{regexp.MustCompile(`(?m)^()([A-Z][A-Za-z ]*:)[ \t]*$`), ui.RenderAccent},
	// Subcommand names, indented two spaces and followed by a description.
	{regexp.MustCompile(`(?m)^(  )([a-z][\w-]*)(?:  )`), ui.RenderCommand},
	// Flag value types, e.g. "--page int".
	{regexp.MustCompile(`(--[\w-]+ )(string|int|duration|stringArray)\b`), ui.RenderMuted},
	// Defaults, e.g. (default "http://localhost:8080").
	{regexp.MustCompile(`()(\(default [^)]*\))`), ui.RenderMuted},
}

// colorizedHelpFunc returns a help function that renders cobra's usage text
// and styles it when stdout takes colors.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	for _, r := range helpRules {
		s = r.re.ReplaceAllStringFunc(s, func(match string) string {
			m := r.re.FindStringSubmatchIndex(match)
			if len(m) < 6 || m[4] < 0 {
				return r.render(match)
			}
			return match[:m[4]] + r.render(match[m[4]:m[5]]) + match[m[5]:]
		})
	}
	return s
}
