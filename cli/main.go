package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.flush()
	if err != nil {
		FormatError(stderr, err, a.useColor(stderr))
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rsx",
		Short:         "Parse, render and run annotated R scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", "", "Path to a dotenv file with RSX_* overrides")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", envBool("RSX_DEBUG"), "Enable debug output")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newCheckCmd(a),
		newInspectCmd(a),
		newRenderCmd(a),
		newRunCmd(a),
		newListCmd(a),
	)
	return rootCmd
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [script]",
		Short: "Report problems in a script",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.parse(args)
			if err != nil {
				return err
			}
			return checkScript(a.stdout, tree, a.useColor(a.stdout))
		},
	}
}

func newInspectCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect [script]",
		Short: "Show the parameters, outputs and flags of a script",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.parse(args)
			if err != nil {
				return err
			}
			if asJSON {
				return WriteAlgorithmJSON(a.stdout, tree.Algorithm)
			}
			return DisplayAlgorithm(a.stdout, tree.Algorithm, a.useColor(a.stdout))
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print a JSON description")
	return cmd
}

// inputFlags are shared by render and run.
type inputFlags struct {
	params     []string
	inputsFile string
	tempDir    string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.params, "param", "p", nil, "Parameter value as name=value (repeatable)")
	cmd.Flags().StringVar(&f.inputsFile, "inputs", "", "JSON object of parameter values (- for stdin)")
	cmd.Flags().StringVar(&f.tempDir, "temp-dir", "", "Directory for temporary outputs")
}

func newRenderCmd(a *app) *cobra.Command {
	var flags inputFlags
	cmd := &cobra.Command{
		Use:   "render [script]",
		Short: "Print the R program generated for a script and its inputs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd.Context(), args, flags)
		},
	}
	flags.register(cmd)
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var (
		flags      inputFlags
		keepScript bool
	)
	cmd := &cobra.Command{
		Use:   "run [script]",
		Short: "Execute a script with R and print its results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.execute(cmd.Context(), args, flags, keepScript)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&keepScript, "keep-script", false, "Leave the generated script file on disk")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the scripts found in the configured folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.list(cmd.Context(), watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and list again when scripts change")
	return cmd
}

// getInputReader handles the 3 modes of script input:
// 1. Explicit stdin with "-"
// 2. Piped input (auto-detected when no script is named)
// 3. File input
func (a *app) getInputReader(args []string) (io.Reader, string, error) {
	if len(args) == 1 && args[0] == "-" {
		return a.stdin, "", nil
	}
	if len(args) == 0 {
		if hasPipedInput(a.stdin) {
			return a.stdin, "", nil
		}
		return nil, "", &CLIError{
			Type:    "usage",
			Message: "no script given",
			Hint:    "pass a script path, or - to read it from stdin",
		}
	}
	return nil, args[0], nil
}

// hasPipedInput detects if there's data piped to stdin
func hasPipedInput(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	// Pipes may not report a size, so only the mode is checked.
	return (stat.Mode() & os.ModeCharDevice) == 0
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
