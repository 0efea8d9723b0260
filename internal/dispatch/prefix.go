// Package dispatch turns raw message content into a command name: it strips the
// longest configured prefix and, when the name is not an exact match, completes
// it against the registered commands.
package dispatch

import (
	"errors"
	"strings"
	"unicode"
)

// ErrNoPrefixMatch means the content does not start with any prefix. It is the
// normal "not a command" outcome and is never surfaced to users.
var ErrNoPrefixMatch = errors.New("no prefix matches content")

// Resolve strips the longest prefix that content starts with and returns it
// together with the remainder. Longest wins so that "!" never truncates a
// message meant for "!!".
func Resolve(content string, prefixes []string) (prefix, remainder string, err error) {
	found := false
	for _, p := range prefixes {
		if p == "" || !strings.HasPrefix(content, p) {
			continue
		}
		if !found || len(p) > len(prefix) {
			prefix = p
			found = true
		}
	}
	if !found {
		return "", "", ErrNoPrefixMatch
	}
	return prefix, content[len(prefix):], nil
}

// MentionPrefixes returns the mention pseudo-prefixes for a user ID, in both
// forms a client may render. They are only meaningful once the bot knows its
// own identity.
func MentionPrefixes(userID string) []string {
	if userID == "" {
		return nil
	}
	return []string{"<@" + userID + "> ", "<@!" + userID + "> "}
}

// Mentions returns the bare mention forms for a user ID, used to detect a
// message that consists of nothing but a mention.
func Mentions(userID string) []string {
	if userID == "" {
		return nil
	}
	return []string{"<@" + userID + ">", "<@!" + userID + ">"}
}

// SplitName returns the first word of remainder, the offset at which it starts
// and the arguments that follow it. An empty or blank remainder yields an empty
// name, which callers treat as "not a command".
func SplitName(remainder string) (name string, at int, args []string) {
	at = strings.IndexFunc(remainder, func(r rune) bool { return !unicode.IsSpace(r) })
	if at < 0 {
		return "", len(remainder), nil
	}
	rest := remainder[at:]
	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end < 0 {
		return rest, at, nil
	}
	return rest[:end], at, strings.Fields(rest[end:])
}
