package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"watchparse/pkg/config"
	"watchparse/pkg/parser"
	"watchparse/pkg/watchlist"
)

// Version information
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var (
	cfgFile      string
	backendFlag  string
	maxDepthFlag int
	verbose      bool

	// settings is resolved before every command runs
	settings = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "watchparse",
	Short: "Turn debugger print output into a watch tree",
	Long: `watchparse parses the textual value a debugger prints for a variable
(GDB brace syntax or CDB member listings) into a tree of named, typed
values. Re-parsing a changed value updates the same tree in place, so
nodes that are still present keep their identity.`,
	Version:           getVersionString(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "watchparse %s\n", getVersionString())
		fmt.Fprintf(out, "  Version: %s\n", version)
		fmt.Fprintf(out, "  Commit:  %s\n", commit)
		fmt.Fprintf(out, "  Date:    %s\n", date)
	},
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (%s)", version, commit)
	}
	return version
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file (default ./"+config.FileName+")")
	rootCmd.PersistentFlags().StringVarP(&backendFlag, "backend", "b", "gdb", "Debugger grammar (gdb, cdb)")
	rootCmd.PersistentFlags().IntVar(&maxDepthFlag, "max-depth", parser.DefaultMaxDepth, "Maximum brace nesting depth")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print diagnostics to stderr")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadSettings resolves defaults, the config file, the environment and flags, in that order
func loadSettings(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cmd.Flags().Changed("backend") {
		cfg.Backend = backendFlag
	}
	if cmd.Flags().Changed("max-depth") {
		cfg.MaxDepth = maxDepthFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	settings = cfg
	debugf(cmd, "backend=%s max_depth=%d cache_size=%d", cfg.Backend, cfg.MaxDepth, cfg.CacheSize)
	return nil
}

func debugf(cmd *cobra.Command, format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "debug: "+format+"\n", args...)
	}
}

func warnf(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.ErrOrStderr(), "Warning: "+format+"\n", args...)
}

func parserOptions() []parser.Option {
	return []parser.Option{parser.WithMaxDepth(settings.MaxDepth)}
}

func newRegistry() (*watchlist.Registry, error) {
	return watchlist.New(settings.CacheSize, settings.ParserBackend(), parserOptions()...)
}
