package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"watchparse/pkg/formatter"
	"watchparse/pkg/watchlist"
)

var followCmd = &cobra.Command{
	Use:   "follow <file>",
	Short: "Re-parse a captured value every time its file changes",
	Long: `Watch a file that a debugger front end keeps rewriting with the latest
value of a variable. Each write is parsed into the same watch tree, so
members that are still present keep their identity, and the tree is
printed with changed values marked by "*".`,
	Args: cobra.ExactArgs(1),
	RunE: runFollow,
}

func init() {
	followCmd.Flags().String("name", "", "Name of the watched expression (default: file name)")
	followCmd.Flags().Bool("mi", false, "File holds GDB/MI output")
}

func runFollow(cmd *cobra.Command, args []string) error {
	path := args[0]
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = filepath.Base(path)
	}
	mi, _ := cmd.Flags().GetBool("mi")

	reg, err := newRegistry()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := &follower{
		path:     path,
		expr:     name,
		mi:       mi,
		registry: reg,
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		debounce: settings.Debounce,
	}
	return f.run(ctx)
}

// follower re-parses one file into one registry entry
type follower struct {
	path     string
	expr     string
	mi       bool
	registry *watchlist.Registry
	out      io.Writer
	errOut   io.Writer
	debounce time.Duration
}

// refresh reads the file, updates the tree and prints it
func (f *follower) refresh() error {
	content, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", f.path, err)
	}

	text, err := prepareInput(string(content), f.mi)
	if err != nil {
		fmt.Fprintf(f.errOut, "Warning: debugger reported an error: %v\n", err)
		return nil
	}

	w, err := f.registry.Update(f.expr, text)
	if err != nil {
		fmt.Fprintf(f.errOut, "Warning: %v; showing raw text\n", err)
	}

	fmt.Fprintf(f.out, "--- %s ---\n", time.Now().Format("15:04:05.000"))
	return formatter.New().WithChangeMarkers(true).Write(f.out, w, "human")
}

// run prints the current value, then refreshes after every write until ctx is done
func (f *follower) run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and debuggers often replace the file.
	target := filepath.Clean(f.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", f.path, err)
	}

	if err := f.refresh(); err != nil {
		return err
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			switch {
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
				pending = time.After(f.debounce)
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				fmt.Fprintf(f.errOut, "Warning: %s was removed, waiting for it to come back\n", f.path)
			}

		case <-pending:
			pending = nil
			if err := f.refresh(); err != nil {
				fmt.Fprintf(f.errOut, "Warning: %v\n", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(f.errOut, "Warning: watcher error: %v\n", err)
		}
	}
}
