package bot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
	"github.com/mattn/go-isatty"
)

const colorError = 0xE74C3C

func (b *Bot) coreInit(ctx context.Context) error {
	if err := b.WaitUntilReady(ctx); err != nil {
		return err
	}
	if len(b.Owners()) > 0 {
		return nil
	}

	owners, err := b.transport.ApplicationOwners(ctx)
	if err != nil {
		return fmt.Errorf("resolve application owners: %w", err)
	}
	b.mu.Lock()
	b.owners = owners
	b.mu.Unlock()
	b.log.Debug().Strs("owners", owners).Msg("Resolved application owners")
	return nil
}

func (b *Bot) runInit(ctx context.Context) error {
	if err := b.WaitUntilReady(ctx); err != nil {
		return err
	}
	if b.opts.Init == nil {
		return nil
	}
	return b.opts.Init(ctx, b)
}

func (b *Bot) runDisplay(ctx context.Context) error {
	if err := b.WaitUntilReady(ctx); err != nil {
		return err
	}
	defer b.dispOnce.Do(func() { close(b.displayed) })
	return b.Display(ctx)
}

// Display shows the ready banner, through Options.Display when set.
func (b *Bot) Display(ctx context.Context) error {
	if b.opts.Display != nil {
		return b.opts.Display(ctx, b)
	}
	return b.defaultDisplay()
}

// defaultDisplay clears an interactive terminal and prints the bot's name.
func (b *Bot) defaultDisplay() error {
	if f, ok := b.opts.Output.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		fmt.Fprint(f, "\033[H\033[2J")
	}
	_, err := fmt.Fprintf(b.opts.Output, "%s is ready.\n", b.User().Username)
	return err
}

// reportStartupError is the supervisor's failure callback. The report is held
// back until the ready banner has been shown and is dropped if the bot closes
// first.
func (b *Bot) reportStartupError(unit string, err error) {
	b.dispatchStartupError(&StartupError{Unit: unit, Err: err})
}

func (b *Bot) dispatchStartupError(err error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.pending.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.pending.Done()
		select {
		case <-b.displayed:
		case <-b.done:
			return
		}
		if b.isClosed() {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if b.opts.OnStartupError != nil {
			b.opts.OnStartupError(ctx, b, err)
			return
		}
		b.defaultStartupError(ctx, err)
	}()
}

func (b *Bot) defaultStartupError(ctx context.Context, err error) {
	b.log.Error().Err(err).Msg("Startup error")

	channelID, ok := b.ErrorLog()
	if !ok {
		return
	}
	msg := embed.NewEmbed().
		SetTitle("Startup error").
		SetDescription(fmt.Sprintf("```\n%v\n```", err)).
		SetColor(colorError).
		MessageEmbed
	if _, sendErr := b.transport.Send(ctx, channelID, Reply{Embeds: []*discordgo.MessageEmbed{msg}}); sendErr != nil {
		b.log.Debug().Err(sendErr).Msg("Failed to post startup error")
	}
}
