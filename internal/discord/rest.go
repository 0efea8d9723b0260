package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cogbot/internal/bot"
	"cogbot/pkg/retrylimit"

	"github.com/bwmarrin/discordgo"
)

// restError exposes the status code of a discordgo REST error to retrylimit.
type restError struct {
	*discordgo.RESTError
}

func (e restError) StatusCode() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.StatusCode
}

func (e restError) Unwrap() error { return e.RESTError }

// call runs fn with the session's rate limiter and retry policy, then maps
// permission and lookup failures onto the bot's transport errors.
func (s *Session) call(ctx context.Context, op string, fn func(dg *discordgo.Session, opts ...discordgo.RequestOption) error) error {
	dg, err := s.session()
	if err != nil {
		return err
	}
	err = retrylimit.Do(ctx, s.limiter, s.retry, func() error {
		err := fn(dg, discordgo.WithContext(ctx))
		if err != nil && ctx.Err() != nil {
			return retrylimit.Fatal(err)
		}
		var re *discordgo.RESTError
		if errors.As(err, &re) {
			return restError{re}
		}
		return err
	})
	return mapError(op, err)
}

func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil {
		switch re.Response.StatusCode {
		case http.StatusForbidden:
			return fmt.Errorf("%s: %w: %v", op, bot.ErrForbidden, err)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %v", op, bot.ErrNotFound, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// allowedMentions lets replies ping users but never @everyone or roles.
func allowedMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
	}
}

// Send posts r to channelID.
func (s *Session) Send(ctx context.Context, channelID string, r bot.Reply) (*bot.Message, error) {
	var sent *discordgo.Message
	err := s.call(ctx, "send message", func(dg *discordgo.Session, opts ...discordgo.RequestOption) (err error) {
		sent, err = dg.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Content:         r.Content,
			Embeds:          r.Embeds,
			AllowedMentions: allowedMentions(),
		}, opts...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toMessage(sent), nil
}

// Edit replaces the content and embeds of a message.
func (s *Session) Edit(ctx context.Context, channelID, messageID string, r bot.Reply) (*bot.Message, error) {
	content := r.Content
	embeds := r.Embeds
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}

	var edited *discordgo.Message
	err := s.call(ctx, "edit message", func(dg *discordgo.Session, opts ...discordgo.RequestOption) (err error) {
		edited, err = dg.ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:              messageID,
			Channel:         channelID,
			Content:         &content,
			Embeds:          &embeds,
			AllowedMentions: allowedMentions(),
		}, opts...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toMessage(edited), nil
}

// React adds emoji to a message as the bot.
func (s *Session) React(ctx context.Context, channelID, messageID, emoji string) error {
	return s.call(ctx, "add reaction", func(dg *discordgo.Session, opts ...discordgo.RequestOption) error {
		return dg.MessageReactionAdd(channelID, messageID, emoji, opts...)
	})
}

// ClearReactions removes every reaction from a message. Without the manage
// messages permission only the bot's own reactions are removed.
func (s *Session) ClearReactions(ctx context.Context, channelID, messageID string) error {
	dg, err := s.session()
	if err != nil {
		return err
	}
	if canManageMessages(dg, channelID) {
		err := s.call(ctx, "clear reactions", func(dg *discordgo.Session, opts ...discordgo.RequestOption) error {
			return dg.MessageReactionsRemoveAll(channelID, messageID, opts...)
		})
		if !errors.Is(err, bot.ErrForbidden) {
			return err
		}
	}
	return s.removeOwnReactions(ctx, channelID, messageID)
}

func (s *Session) removeOwnReactions(ctx context.Context, channelID, messageID string) error {
	var msg *discordgo.Message
	err := s.call(ctx, "fetch message", func(dg *discordgo.Session, opts ...discordgo.RequestOption) (err error) {
		msg, err = dg.ChannelMessage(channelID, messageID, opts...)
		return err
	})
	if err != nil {
		return err
	}

	var errs []error
	for _, r := range msg.Reactions {
		if !r.Me || r.Emoji == nil {
			continue
		}
		emoji := r.Emoji.APIName()
		errs = append(errs, s.call(ctx, "remove reaction", func(dg *discordgo.Session, opts ...discordgo.RequestOption) error {
			return dg.MessageReactionRemove(channelID, messageID, emoji, "@me", opts...)
		}))
	}
	return errors.Join(errs...)
}

// ApplicationOwners returns the application owner, or every team member when
// the application belongs to a team.
func (s *Session) ApplicationOwners(ctx context.Context) ([]string, error) {
	var app *discordgo.Application
	err := s.call(ctx, "fetch application", func(dg *discordgo.Session, opts ...discordgo.RequestOption) (err error) {
		app, err = dg.Application("@me")
		return err
	})
	if err != nil {
		return nil, err
	}
	return ownersOf(app), nil
}

func ownersOf(app *discordgo.Application) []string {
	if app == nil {
		return nil
	}
	if app.Team != nil {
		ids := make([]string, 0, len(app.Team.Members))
		for _, m := range app.Team.Members {
			if m.User != nil {
				ids = append(ids, m.User.ID)
			}
		}
		return ids
	}
	if app.Owner != nil {
		return []string{app.Owner.ID}
	}
	return nil
}
