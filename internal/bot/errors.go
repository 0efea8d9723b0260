package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var (
	// ErrTokenNotFound is returned by ResolveToken when neither an explicit
	// token nor a token file is available.
	ErrTokenNotFound = errors.New("token not found")
	// ErrCheckFailure marks a command refused by a check. The default command
	// error handler ignores it.
	ErrCheckFailure = errors.New("check failed")
	// ErrForbidden is a transport permission error.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is a transport error for a missing channel or message.
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned by operations on a closed bot.
	ErrClosed = errors.New("bot closed")
)

// IntentsRequiredError is delivered to the warning hook when a feature is used
// without the gateway intents it depends on. It is never returned.
type IntentsRequiredError struct {
	Intents []string
}

func (e *IntentsRequiredError) Error() string {
	return fmt.Sprintf("missing required intents: %s", strings.Join(e.Intents, ", "))
}

// StartupError is a failure of a supervised startup unit.
type StartupError struct {
	Unit string
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup unit %q failed: %v", e.Unit, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

var intentNames = []struct {
	intent discordgo.Intent
	name   string
}{
	{discordgo.IntentsGuilds, "guilds"},
	{discordgo.IntentsGuildMembers, "members"},
	{discordgo.IntentsGuildMessages, "guild_messages"},
	{discordgo.IntentsGuildMessageReactions, "guild_reactions"},
	{discordgo.IntentsDirectMessages, "dm_messages"},
	{discordgo.IntentsMessageContent, "message_content"},
}

func missingIntents(have, want discordgo.Intent) []string {
	var out []string
	for _, in := range intentNames {
		if want&in.intent != 0 && have&in.intent == 0 {
			out = append(out, in.name)
		}
	}
	return out
}

// silent reports whether err is a transport permission or lookup failure,
// which best-effort side effects swallow.
func silent(err error) bool {
	return errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotFound)
}
