package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"watchparse/pkg/formatter"
	"watchparse/pkg/parser"
	"watchparse/pkg/utils"
	"watchparse/pkg/watch"
	"watchparse/pkg/watchlist"
)

const (
	historyFile = ".watchparse_history"
	promptMain  = "watch> "
	promptCont  = "  ...> "
)

const replHelp = `Enter "<expr> = <value>" to update a watch with the text a debugger printed.
Input continues on the next line while braces are open or a line ends with "\".
Commands:
  :list                    list watched expressions
  :show <expr>             print a watch tree
  :expand <expr> [path]    show the children of a node (path like a.b[0])
  :collapse <expr> [path]  hide the children of a node
  :drop <expr>             forget a watch
  :backend [gdb|cdb]       show or switch the grammar
  :help                    show this help
  :quit                    leave`

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive session that keeps watch trees between updates",
	Long: `Start an interactive session. Each "<expr> = <value>" line parses the
value into the watch for <expr>. Updating the same expression again reuses
its tree: expanded nodes stay expanded and changed values are marked "*".

` + replHelp,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

func runRepl(cmd *cobra.Command, args []string) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	s := newReplSession(reg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	fmt.Fprintln(s.out, `watchparse repl, ":help" for commands`)

	for {
		input, ok := readEntry(ln)
		if !ok {
			fmt.Fprintln(s.out)
			return nil
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(input, "\n", " "))
		if s.handle(input) {
			return nil
		}
	}
}

// readEntry reads one logical entry, prompting for continuation lines
func readEntry(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return "", false
		}
		if err != nil {
			return b.String(), true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		if strings.HasSuffix(line, `\`) {
			b.WriteString(strings.TrimSuffix(line, `\`))
			continue
		}
		b.WriteString(line)

		if utils.BraceDepth(b.String()) <= 0 {
			return b.String(), true
		}
	}
}

// replSession holds the state of one interactive session
type replSession struct {
	registry *watchlist.Registry
	out      io.Writer
	errOut   io.Writer
	fmt      *formatter.Formatter
}

func newReplSession(reg *watchlist.Registry, out, errOut io.Writer) *replSession {
	return &replSession{
		registry: reg,
		out:      out,
		errOut:   errOut,
		fmt:      formatter.New().WithChangeMarkers(true).WithCollapse(true),
	}
}

// handle runs one entry and reports whether the session should end
func (s *replSession) handle(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	if strings.HasPrefix(input, ":") {
		return s.command(input)
	}

	expr, value, found := strings.Cut(input, "=")
	expr = strings.TrimSpace(expr)
	if !found || expr == "" {
		fmt.Fprintln(s.errOut, `expected "<expr> = <value>", type :help for commands`)
		return false
	}

	w, err := s.registry.Update(expr, strings.TrimSpace(value))
	if err != nil {
		fmt.Fprintf(s.errOut, "Warning: %v; showing raw text\n", err)
	}
	s.show(w)
	return false
}

func (s *replSession) command(input string) bool {
	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case ":quit", ":q", ":exit":
		return true

	case ":help", ":h":
		fmt.Fprintln(s.out, replHelp)

	case ":list", ":ls":
		keys := s.registry.Keys()
		if len(keys) == 0 {
			fmt.Fprintln(s.out, "no watches")
		}
		for _, key := range keys {
			w, _ := s.registry.Get(key)
			fmt.Fprintf(s.out, "%s (%d nodes)\n", key, w.Count())
		}

	case ":show", ":p":
		if w := s.lookup(args); w != nil {
			s.show(w)
		}

	case ":expand", ":collapse":
		if w := s.lookup(args); w != nil {
			w.SetExpanded(name == ":expand")
			root, _ := s.registry.Get(args[0])
			s.show(root)
		}

	case ":drop", ":rm":
		if len(args) != 1 {
			fmt.Fprintf(s.errOut, "usage: %s <expr>\n", name)
			break
		}
		if !s.registry.Remove(args[0]) {
			fmt.Fprintf(s.errOut, "no watch named %s\n", args[0])
		}

	case ":backend":
		if len(args) == 0 {
			fmt.Fprintf(s.out, "backend: %s\n", s.registry.Backend())
			break
		}
		backend, err := parser.ParseBackend(args[0])
		if err != nil {
			fmt.Fprintln(s.errOut, err)
			break
		}
		s.registry.SetBackend(backend)
		fmt.Fprintf(s.out, "backend: %s\n", backend)

	default:
		fmt.Fprintf(s.errOut, "unknown command %s, type :help for commands\n", fields[0])
	}
	return false
}

// lookup resolves "<expr> [path]" to a node, reporting problems on errOut
func (s *replSession) lookup(args []string) *watch.Watch {
	if len(args) == 0 {
		fmt.Fprintln(s.errOut, "missing expression")
		return nil
	}
	root, ok := s.registry.Get(args[0])
	if !ok {
		fmt.Fprintf(s.errOut, "no watch named %s\n", args[0])
		return nil
	}
	if len(args) == 1 {
		return root
	}

	node := root.FindByPath(splitWatchPath(args[1]))
	if node == nil {
		fmt.Fprintf(s.errOut, "no member %s in %s\n", args[1], args[0])
	}
	return node
}

func (s *replSession) show(w *watch.Watch) {
	if err := s.fmt.Write(s.out, w, "human"); err != nil {
		fmt.Fprintf(s.errOut, "Warning: %v\n", err)
	}
}

// splitWatchPath turns "a.b[2].c" into ["a", "b", "[2]", "c"]
func splitWatchPath(path string) []string {
	var parts []string
	for _, field := range strings.Split(path, ".") {
		for field != "" {
			i := strings.IndexByte(field[1:], '[')
			if i < 0 {
				parts = append(parts, field)
				break
			}
			parts = append(parts, field[:i+1])
			field = field[i+1:]
		}
	}
	return parts
}
