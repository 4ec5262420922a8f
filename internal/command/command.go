// Package command implements the console commands players use to inspect and
// change creature skins.
package command

import (
	"fmt"
	"io"
	"sort"
	"strings"

	apperrors "github.com/Gathouria/Adopt-Skin/internal/platform/errors"
	"github.com/Gathouria/Adopt-Skin/internal/session"
)

// Command describes one console command.
type Command struct {
	Name  string
	Usage string
	Help  string
	// MinArgs and MaxArgs bound the argument count.
	MinArgs int
	MaxArgs int
	// Debug commands only run with debugging mode on.
	Debug bool

	run func(c *Console, args []string) error
}

// Console runs commands against a session and writes their output to out.
type Console struct {
	session  *session.Session
	out      io.Writer
	commands map[string]Command
}

// New returns a console over s.
func New(s *session.Session, out io.Writer) *Console {
	c := &Console{
		session:  s,
		out:      out,
		commands: make(map[string]Command),
	}
	for _, cmd := range builtins() {
		c.commands[cmd.Name] = cmd
	}
	return c
}

func builtins() []Command {
	return []Command{
		{Name: "list_creatures", Usage: "list_creatures <group|type>", Help: "List registered creatures and their skins", MinArgs: 0, MaxArgs: 1, run: (*Console).listCreatures},
		{Name: "set_skin", Usage: "set_skin <skin id> [category] <short id>", Help: "Change the skin of a creature", MinArgs: 2, MaxArgs: 3, run: (*Console).setSkin},
		{Name: "randomize_skin", Usage: "randomize_skin [category] <short id>", Help: "Give a creature a random skin", MinArgs: 1, MaxArgs: 2, run: (*Console).randomizeSkin},
		{Name: "randomize_all_skins", Usage: "randomize_all_skins", Help: "Give every creature a random skin", run: (*Console).randomizeAllSkins},
		{Name: "sell", Usage: "sell [category] <short id>", Help: "Sell a pet or horse", MinArgs: 1, MaxArgs: 2, run: (*Console).sell},

		{Name: "debug_reset", Usage: "debug_reset", Help: "Forget every creature and register them again", Debug: true, run: (*Console).debugReset},
		{Name: "debug_idmaps", Usage: "debug_idmaps", Help: "Print the short id maps", Debug: true, run: (*Console).debugIDMaps},
		{Name: "debug_skinmaps", Usage: "debug_skinmaps", Help: "Print the stored skin of every creature", Debug: true, run: (*Console).debugSkinMaps},
		{Name: "debug_pets", Usage: "debug_pets", Help: "Print every pet in the world", Debug: true, run: (*Console).debugPets},
		{Name: "debug_horses", Usage: "debug_horses", Help: "Print every horse in the world", Debug: true, run: (*Console).debugHorses},
		{Name: "debug_find", Usage: "debug_find [category] <short id>", Help: "Print what the registry knows about a creature", MinArgs: 1, MaxArgs: 2, Debug: true, run: (*Console).debugFind},
		{Name: "summon_stray", Usage: "summon_stray", Help: "Spawn a stray pet", Debug: true, run: (*Console).summonStray},
		{Name: "summon_horse", Usage: "summon_horse", Help: "Spawn a wild horse", Debug: true, run: (*Console).summonHorse},
		{Name: "debug_clearunowned", Usage: "debug_clearunowned", Help: "Remove every stray and wild horse", Debug: true, run: (*Console).debugClearUnowned},
	}
}

// Commands returns the commands available with the current settings, sorted
// by name.
func (c *Console) Commands() []Command {
	out := make([]Command, 0, len(c.commands))
	for _, cmd := range c.commands {
		if cmd.Debug && !c.session.Config().DebuggingMode {
			continue
		}
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Exec splits line on whitespace and runs the command it names.
func (c *Console) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return apperrors.New(apperrors.CodeInvalidArgument, "no command given")
	}
	return c.Run(fields[0], fields[1:]...)
}

// Run runs the named command.
func (c *Console) Run(name string, args ...string) error {
	name = strings.ToLower(name)
	cmd, ok := c.commands[name]
	if !ok || (cmd.Debug && !c.session.Config().DebuggingMode) {
		if ok {
			return apperrors.WithMetadata(apperrors.CodeCommandNotAvailable,
				fmt.Sprintf("%s needs debugging mode", name),
				map[string]string{"Command": name})
		}
		return c.unknownCommand(name)
	}
	if len(args) < cmd.MinArgs || len(args) > cmd.MaxArgs {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument,
			"usage: "+cmd.Usage,
			map[string]string{"Command": name})
	}
	if !c.session.Loaded() {
		return session.ErrNotLoaded
	}
	return cmd.run(c, args)
}

func (c *Console) unknownCommand(name string) error {
	names := make([]string, 0, len(c.commands))
	for _, cmd := range c.Commands() {
		names = append(names, cmd.Name)
	}
	message := fmt.Sprintf("unknown command %q", name)
	metadata := map[string]string{"Command": name}
	if suggestion, ok := suggest(name, names); ok {
		message += fmt.Sprintf(", did you mean %q?", suggestion)
		metadata["Suggestion"] = suggestion
	}
	return apperrors.WithMetadata(apperrors.CodeUnknownCommand, message, metadata)
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}
