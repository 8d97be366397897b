package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aurora-tools/aurorareport/internal/log"
)

// errUsage marks command-line mistakes; the usage text is printed with them.
var errUsage = errors.New("usage error")

// NewRootCmd creates the root command. Run with three arguments it generates
// the comparison report; the subcommands manage configuration and history.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aurorareport <renderer_executable> <scenes_config.json> <report.txt>",
		Short: "Compare rendered images against golden images and write an HTML report",
		Long: `aurorareport compares rendered test images against baseline ("golden")
images for the Aurora regression suite and writes a static HTML report.

It runs the renderer on every scene of the scenes configuration, compares the
fresh output with each scene's reference image, then adds every failure and
missing-baseline line of an existing text report. When an image has no
baseline in the primary set, the fallback set is used instead.

A console summary is printed after the HTML file is written, and the run is
stored in the history database (see 'aurorareport history').

Examples:
  # Render, compare and write aurora_report.html
  aurorareport ./Aurora scenes.json report.txt

  # Compare existing output only, with four comparisons at a time
  aurorareport --render=false --jobs 4 ./Aurora scenes.json report.txt

  # Markdown summary for a CI job page
  aurorareport -m -o out/report.html ./Aurora scenes.json report.txt`,
		Version:       getVersion(),
		Args:          reportArgs,
		RunE:          runGenerateCmd,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", "text", "Log format on stderr: text or json")

	addGenerateFlags(cmd)

	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// reportArgs requires exactly the renderer, the scenes file and the report file.
func reportArgs(_ *cobra.Command, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: expected <renderer_executable> <scenes_config.json> <report.txt>, got %d argument(s)",
			errUsage, len(args))
	}
	return nil
}

// newLogger builds the stderr logger selected by --log-format and --verbose.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return nil, err
	}

	verbose := getVerboseFlag(cmd)
	switch format {
	case "text":
		return log.NewSecureLogger(cmd.ErrOrStderr(), verbose), nil
	case "json":
		return log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose), nil
	default:
		return nil, fmt.Errorf("%w: unknown log format %q (want text or json)", errUsage, format)
	}
}

// Execute runs the root command.
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr)
			fmt.Fprint(os.Stderr, cmd.UsageString())
		}
		os.Exit(1)
	}
}
