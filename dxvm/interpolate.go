package dxvm

import (
	"strconv"
	"strings"

	"github.com/dnxscript/dxvm/value"
)

// interpolate implements §4.6: replace each ${N} placeholder in s with
// values[N].ToDisplayString(); a backslash before $ or { escapes the
// character instead of starting a placeholder; a placeholder whose
// index is out of range, or that fails to parse as an integer, is left
// unchanged verbatim (including its braces).
//
// Hand-rolled rather than regexp — matching this corpus's habit of
// hand-written scanners in hot text paths (see go-flux's lexer, tai's
// tailang tokenizer) instead of reaching for regexp in the VM's
// text_run path, which runs on every line of dialogue.
func interpolate(s string, values []value.Value) string {
	var out strings.Builder
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '\\' && i+1 < len(s) && (s[i+1] == '$' || s[i+1] == '{') {
			out.WriteByte(s[i+1])
			i += 2
			continue
		}
		if c == '$' && i+1 < len(s) && s[i+1] == '{' {
			end := strings.IndexByte(s[i+2:], '}')
			if end >= 0 {
				digits := s[i+2 : i+2+end]
				if n, err := strconv.Atoi(digits); err == nil && n >= 0 && n < len(values) {
					out.WriteString(values[n].ToDisplayString())
					i += 2 + end + 1
					continue
				}
			}
		}
		out.WriteByte(c)
		i++
	}
	return out.String()
}
