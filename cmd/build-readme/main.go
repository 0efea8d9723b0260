// Command build-readme renders README.md from README.md.tmpl, filling in the
// commands of the built-in extensions.
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"

	"cogbot/internal/bot"
	"cogbot/internal/cogs"
	"cogbot/internal/console"
	"cogbot/pkg/cmd"

	"github.com/rs/zerolog"
)

type cmdInfo struct {
	Name        string
	Aliases     string
	Description string
}

func main() {
	b := bot.New(console.New(strings.NewReader(""), io.Discard, "readme"), bot.Options{
		Logger: zerolog.Nop(),
		Output: io.Discard,
	})
	defer b.Close()

	for _, path := range cogs.Builtin {
		if err := b.LoadExtension(context.Background(), path); err != nil {
			panic(err)
		}
	}

	sections := make(map[string][]cmdInfo)
	for _, e := range b.Commands().Entries() {
		sections[e.Owner] = append(sections[e.Owner], info(e.Command))
	}
	owners := make([]string, 0, len(sections))
	for o, cmds := range sections {
		owners = append(owners, o)
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	}
	sort.Strings(owners)

	tmplData, err := os.ReadFile("README.md.tmpl")
	if err != nil {
		panic(err)
	}

	tmpl, err := template.New("readme").Parse(string(tmplData))
	if err != nil {
		panic(err)
	}

	var buf bytes.Buffer
	for _, o := range owners {
		fmt.Fprintf(&buf, "### %s\n\n", o)
		for _, c := range sections[o] {
			fmt.Fprintf(&buf, "* **`%s`**%s\n  %s\n\n", c.Name, c.Aliases, c.Description)
		}
	}

	data := map[string]any{
		"CommandSections": buf.String(),
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		panic(err)
	}

	if err := os.WriteFile("README.md", out.Bytes(), 0644); err != nil {
		panic(err)
	}
}

func info(c cmd.Command) cmdInfo {
	ci := cmdInfo{Name: c.Name(), Description: c.Description()}
	if len(c.Aliases()) > 0 {
		ci.Aliases = " (" + strings.Join(c.Aliases(), ", ") + ")"
	}
	return ci
}
