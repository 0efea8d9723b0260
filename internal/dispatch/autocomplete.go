package dispatch

import (
	"strings"

	"cogbot/pkg/cmd"
)

// Match is the outcome of a successful autocomplete.
type Match struct {
	Command cmd.Command
	// Typed is the name as the user wrote it.
	Typed string
	// Canonical is the command's own name.
	Canonical string
	// Exact is set when Typed already names the command or one of its aliases,
	// in which case the content needs no rewrite.
	Exact bool
}

// Autocomplete finds the command a typed name refers to.
//
// An exact, case-insensitive name or alias match is tried first. Otherwise the
// commands are scanned in the order given; a command matches when one of its
// names equals typed or starts with it, so "he" finds "help". The first
// matching command wins, which makes registration order the tie-breaker when
// several commands share an abbreviation.
func Autocomplete(typed string, commands []cmd.Command) (Match, bool) {
	name := strings.ToLower(typed)
	if name == "" {
		return Match{}, false
	}

	for _, c := range commands {
		for _, n := range cmd.Names(c) {
			if n == name {
				return Match{Command: c, Typed: typed, Canonical: c.Name(), Exact: true}, true
			}
		}
	}

	for _, c := range commands {
		for _, n := range cmd.Names(c) {
			if strings.HasPrefix(n, name) {
				return Match{Command: c, Typed: typed, Canonical: c.Name()}, true
			}
		}
	}
	return Match{}, false
}

// Rewrite replaces the typed name found at offset at in content with canonical,
// leaving the prefix and arguments untouched.
func Rewrite(content string, at int, typed, canonical string) string {
	if at < 0 || at+len(typed) > len(content) || content[at:at+len(typed)] != typed {
		return content
	}
	return content[:at] + canonical + content[at+len(typed):]
}
