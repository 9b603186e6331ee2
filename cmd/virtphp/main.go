package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/drape-io/virtphp/internal/config"
	"github.com/drape-io/virtphp/internal/download"
	"github.com/drape-io/virtphp/internal/env"
	"github.com/drape-io/virtphp/internal/errs"
	"github.com/drape-io/virtphp/internal/output"
	"github.com/drape-io/virtphp/internal/prompt"
	"github.com/drape-io/virtphp/internal/registry"
	"github.com/drape-io/virtphp/internal/runner"
	"github.com/drape-io/virtphp/internal/worker"
)

var (
	configFile   string
	verbose      bool
	phpBinDir    string
	installPath  string
	phpIni       string
	pearConf     string
	cloneInto    string
	showEnv      string
	showPath     string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "virtphp",
	Short: "Create and manage virtual PHP environments",
	Long: `virtphp creates isolated PHP environments, each with its own php.ini,
PEAR installation and Composer, similar to Python's virtualenv.

Examples:
  virtphp create myenv                  # Create an environment in ~/.virtphp/envs
  virtphp clone myenv2 ~/.virtphp/envs/myenv
  virtphp show --output=json            # List known environments
  virtphp destroy ~/.virtphp/envs/myenv`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new virtual PHP environment",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreate,
}

var cloneCmd = &cobra.Command{
	Use:   "clone <name> <source>",
	Short: "Copy an existing environment to a new one",
	Long: `Copy an existing environment to a new one.

<source> is the root directory of an environment or the name of a
registered environment. The clone is created next to the source unless
--install-path is given.`,
	Args: cobra.ExactArgs(2),
	RunE: runClone,
}

var destroyCmd = &cobra.Command{
	Use:   "destroy <path>",
	Short: "Delete a virtual PHP environment",
	Args:  cobra.ExactArgs(1),
	RunE:  runDestroy,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List environments, or update the path of one with --env and --path",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

var activateCmd = &cobra.Command{
	Use:   "activate <name>",
	Short: "Print the command that activates an environment",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivate,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a sample config.toml",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ~/.virtphp/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log external commands and registry writes")

	createCmd.Flags().StringVar(&phpBinDir, "php-bin-dir", "", "directory containing the php binary to wrap (default: php on PATH)")
	createCmd.Flags().StringVar(&installPath, "install-path", "", "parent directory of the new environment (default: install_path from config)")
	createCmd.Flags().StringVar(&phpIni, "php-ini", "", "php.ini to base the environment's php.ini on")
	createCmd.Flags().StringVar(&pearConf, "pear-conf", "", "pear.conf to base the environment's PEAR settings on")

	cloneCmd.Flags().StringVar(&cloneInto, "install-path", "", "parent directory of the clone (default: next to the source)")

	showCmd.Flags().StringVar(&showEnv, "env", "", "environment whose path should be updated")
	showCmd.Flags().StringVar(&showPath, "path", "", "new parent directory of --env")
	showCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format (table|json|yaml)")

	workflowCmds := map[worker.Command]*cobra.Command{
		worker.Create:   createCmd,
		worker.Clone:    cloneCmd,
		worker.Destroy:  destroyCmd,
		worker.Show:     showCmd,
		worker.Activate: activateCmd,
	}
	for _, name := range worker.Commands() {
		cmd, ok := workflowCmds[name]
		if !ok {
			panic(fmt.Sprintf("no cli command for workflow %q", name))
		}
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(initCmd)
	rootCmd.Version = env.Version
}

// reportedError is a failure the workflow already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func setupLogger(verbose bool) *slog.Logger {
	lvl := slog.LevelWarn
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// loadConfig reads the tool home and configuration, printing any warnings.
func loadConfig(cmd *cobra.Command) (string, *config.Config, error) {
	home, err := registry.DefaultHome()
	if err != nil {
		return "", nil, err
	}

	loadResult, err := config.Load(configFile, home)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	for _, warning := range loadResult.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), warning)
	}
	return home, loadResult.Config, nil
}

func newDeps(cmd *cobra.Command) (worker.Deps, error) {
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	home, cfg, err := loadConfig(cmd)
	if err != nil {
		return worker.Deps{}, err
	}

	printer := output.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
	progress := func(msg string) { printer.Line("  %s", msg) }

	return worker.Deps{
		Registry: registry.NewFileStore(home, logger),
		Runner:   runner.New(logger),
		Fetcher:  download.NewCache(download.NewHTTP(progress), cfg.CacheDir, logger),
		Printer:  printer,
		Logger:   logger,
		Confirm:  prompt.NewConsole(),
		Config:   cfg,
	}, nil
}

func run(cmd *cobra.Command, name worker.Command, req worker.Request) error {
	deps, err := newDeps(cmd)
	if err != nil {
		return err
	}

	w, err := worker.New(name, deps, req)
	if err != nil {
		return err
	}

	res := w.Execute(cmd.Context())
	if !res.OK {
		deps.Logger.Debug("workflow failed", "command", name, "kind", errs.KindOf(res.Err))
		return &reportedError{err: res.Err}
	}
	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	return run(cmd, worker.Create, worker.Request{
		Name:           args[0],
		BasePath:       installPath,
		PhpBinDir:      phpBinDir,
		CustomPhpIni:   phpIni,
		CustomPearConf: pearConf,
	})
}

func runClone(cmd *cobra.Command, args []string) error {
	return run(cmd, worker.Clone, worker.Request{
		Name:     args[0],
		Source:   args[1],
		BasePath: cloneInto,
	})
}

func runDestroy(cmd *cobra.Command, args []string) error {
	return run(cmd, worker.Destroy, worker.Request{Target: args[0]})
}

func runShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	return run(cmd, worker.Show, worker.Request{
		ResyncName: showEnv,
		ResyncPath: showPath,
		Format:     format,
	})
}

func runActivate(cmd *cobra.Command, args []string) error {
	return run(cmd, worker.Activate, worker.Request{Name: args[0]})
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		home, err := registry.DefaultHome()
		if err != nil {
			return err
		}
		path = filepath.Join(home, config.FileName)
	}

	if err := config.WriteSample(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	return nil
}
