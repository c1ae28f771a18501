package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"watchparse/pkg/formatter"
	"watchparse/pkg/gdbmi"
	"watchparse/pkg/parser"
	"watchparse/pkg/watch"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a debugger value and print the watch tree",
	Long: `Parse the text a debugger printed for one variable and print the
resulting watch tree. The text is read from the file, or from stdin when
the file is omitted or "-". Output can be human-readable, JSON or YAML.

Examples:
  # GDB print output
  echo '$1 = {a = 1, b = {x = 2}}' | watchparse parse

  # CDB member listing
  watchparse parse --backend cdb dt_output.txt

  # Raw GDB/MI output
  watchparse parse --mi --format json mi.log`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringP("format", "f", "", "Output format (human, json, yaml); defaults to the configured format")
	parseCmd.Flags().String("name", "value", "Name of the root watch")
	parseCmd.Flags().Int("array-start", -1, "Treat the value as an array whose first element has this index")
	parseCmd.Flags().Bool("mi", false, "Input is GDB/MI output; console records are unwrapped first")
	parseCmd.Flags().Bool("strict", false, "Fail instead of falling back to the raw text")
}

func runParse(cmd *cobra.Command, args []string) error {
	filename := "-"
	if len(args) == 1 {
		filename = args[0]
	}

	content, err := readInput(cmd, filename)
	if err != nil {
		return err
	}

	mi, _ := cmd.Flags().GetBool("mi")
	text, err := prepareInput(string(content), mi)
	if err != nil {
		return fmt.Errorf("debugger reported an error: %w", err)
	}

	name, _ := cmd.Flags().GetString("name")
	arrayStart, _ := cmd.Flags().GetInt("array-start")
	strict, _ := cmd.Flags().GetBool("strict")
	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = settings.Format
	}

	root := watch.New(name)
	if arrayStart >= 0 {
		root.SetArray(arrayStart, 0)
	}

	debugf(cmd, "parsing %d bytes from %s with %s grammar", len(text), filename, settings.Backend)
	if err := parser.Parse(root, text, settings.ParserBackend(), parserOptions()...); err != nil {
		if verbose && settings.ParserBackend() == parser.BackendGDB {
			tokens, _ := parser.Tokenize(text)
			debugf(cmd, "tokens: %v", tokens)
		}
		if strict {
			return fmt.Errorf("failed to parse %s: %w", filename, err)
		}
		warnf(cmd, "%v; showing raw text", err)
		root.SetValue(text)
		root.RemoveChildren()
	}

	return formatter.New().Write(cmd.OutOrStdout(), root, format)
}

// readInput reads filename, or the command's stdin for "-"
func readInput(cmd *cobra.Command, filename string) ([]byte, error) {
	if filename == "-" {
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
		return content, nil
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return content, nil
}

// prepareInput unwraps MI records when asked, drops the "$N = " history
// label and the trailing line break gdb prints after a value.
func prepareInput(text string, mi bool) (string, error) {
	if mi {
		console, err := gdbmi.ConsoleText(gdbmi.ParseOutput(text))
		if err != nil {
			return "", err
		}
		text = console
	}
	text = strings.TrimRight(text, "\r\n")
	return gdbmi.StripHistoryPrefix(text), nil
}
