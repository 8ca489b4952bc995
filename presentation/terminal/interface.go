package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roadside_e2e/application/resolver"
	"roadside_e2e/application/scenario"
	"roadside_e2e/domain/entities"
	"roadside_e2e/domain/interfaces"
	"roadside_e2e/infrastructure/browser"
	"roadside_e2e/infrastructure/config"
	"roadside_e2e/infrastructure/report"
	"roadside_e2e/infrastructure/scenariofile"
	"roadside_e2e/infrastructure/security"
	"roadside_e2e/infrastructure/storage"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// TerminalInterface is the roadside command line
type TerminalInterface struct {
	cfg    config.Config
	logger *logrus.Logger
	out    io.Writer
	root   *cobra.Command

	verbose bool
	// newSessions is swapped in tests to avoid launching a browser
	newSessions func(logger *logrus.Logger, cfg config.Config) (interfaces.SessionFactory, func() error, error)
}

func NewTerminalInterface(out io.Writer) (*TerminalInterface, error) {
	// Setup logger
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load(logger)
	if err != nil {
		return nil, withCode(err, ExitInvalidConfig)
	}

	t := &TerminalInterface{
		cfg:         cfg,
		logger:      logger,
		out:         out,
		newSessions: launchBrowser,
	}
	t.root = t.rootCommand()
	return t, nil
}

func launchBrowser(logger *logrus.Logger, cfg config.Config) (interfaces.SessionFactory, func() error, error) {
	launcher, err := browser.NewLauncher(logger, browser.LaunchOptions{
		Browser:       cfg.Browser,
		Headless:      cfg.Headless,
		SlowMo:        cfg.SlowMo,
		ActionTimeout: cfg.ActionTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return launcher, launcher.Close, nil
}

func (t *TerminalInterface) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "roadside",
		Short:         "End-to-end checks for the roadside enrollment flow",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := t.cfg.Validate(); err != nil {
				return withCode(err, ExitInvalidConfig)
			}
			t.logger.SetLevel(t.cfg.Level())
			return nil
		},
	}
	t.cfg.BindFlags(root.PersistentFlags())
	root.SetOut(t.out)

	run := &cobra.Command{
		Use:   "run [scenario.yaml...]",
		Short: "Run scenarios; the built-in enrollment runs when no file is given",
		RunE:  t.runScenarios,
	}
	run.Flags().BoolVarP(&t.verbose, "verbose", "v", false, "print every action, not only skips and failures")

	root.AddCommand(
		run,
		&cobra.Command{
			Use:   "list [scenario.yaml...]",
			Short: "List scenarios and their steps",
			RunE:  t.listScenarios,
		},
		&cobra.Command{
			Use:   "validate scenario.yaml...",
			Short: "Check scenario files without starting a browser",
			Args:  cobra.MinimumNArgs(1),
			RunE:  t.validateScenarios,
		},
		&cobra.Command{
			Use:   "export",
			Short: "Print the built-in enrollment scenario as YAML",
			Args:  cobra.NoArgs,
			RunE:  t.exportScenario,
		},
		&cobra.Command{
			Use:   "results",
			Short: "Summarize the last run",
			Args:  cobra.NoArgs,
			RunE:  t.showResults,
		},
	)
	return root
}

// Run executes the command line
func (t *TerminalInterface) Run(args []string) error {
	t.root.SetArgs(args)
	return t.root.Execute()
}

func (t *TerminalInterface) scenarios(args []string) ([]entities.Scenario, error) {
	if len(args) == 0 {
		return []entities.Scenario{scenario.DefaultEnrollment()}, nil
	}
	scenarios, err := scenariofile.Load(args...)
	if err != nil {
		return nil, withCode(err, ExitInvalidConfig)
	}
	return scenarios, nil
}

func (t *TerminalInterface) runScenarios(cmd *cobra.Command, args []string) error {
	scenarios, err := t.scenarios(args)
	if err != nil {
		return err
	}

	store, err := storage.NewResultStore(t.cfg.OutputDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, closeBrowser, err := t.newSessions(t.logger, t.cfg)
	if err != nil {
		return withCode(fmt.Errorf("failed to initialize browser: %w", err), ExitBrowserError)
	}
	defer func() {
		if err := closeBrowser(); err != nil {
			t.logger.WithError(err).Warn("failed to close browser")
		}
	}()

	console := report.NewConsole(t.out, t.verbose)
	res := resolver.New(t.logger, resolver.WithBackoff(resolver.DefaultInitialBackoff, t.cfg.Backoff))
	guard := security.NewPaymentGuard(t.logger, t.cfg.AllowPayment)
	driver := scenario.NewDriver(res, guard, console, t.logger, scenario.DriverConfig{
		Timeout:         t.cfg.Timeout,
		OptionalTimeout: t.cfg.OptionalTimeout,
	})
	runner := scenario.NewRunner(sessions, driver, console, t.logger, scenario.RunnerConfig{
		Workers:   t.cfg.Workers,
		Retries:   t.cfg.Retries,
		Trace:     t.cfg.TraceMode(),
		OutputDir: t.cfg.OutputDir,
		BaseURL:   t.cfg.BaseURL,
		UserAgent: t.cfg.UserAgent,
	})

	started := time.Now()
	results, runErr := runner.Run(ctx, scenarios)

	path, err := store.SaveResults(results)
	if err != nil {
		t.logger.WithError(err).Error("failed to save results")
	}
	console.Summary(results, path)
	t.logger.WithField("duration", time.Since(started).Round(time.Millisecond)).Debug("run finished")

	return withCode(runErr, ExitScenarioFailed)
}

func (t *TerminalInterface) listScenarios(cmd *cobra.Command, args []string) error {
	scenarios, err := t.scenarios(args)
	if err != nil {
		return err
	}
	for _, sc := range scenarios {
		fmt.Fprintf(t.out, "%s (%d steps)\n", sc.Name, len(sc.Steps))
		for i, step := range sc.Steps {
			cond := ""
			if len(step.WhenAny) > 0 {
				cond = " [conditional]"
			}
			fmt.Fprintf(t.out, "  %d. %s%s\n", i+1, step.Name, cond)
		}
	}
	return nil
}

func (t *TerminalInterface) validateScenarios(cmd *cobra.Command, args []string) error {
	scenarios, err := t.scenarios(args)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "%d scenarios OK\n", len(scenarios))
	return nil
}

func (t *TerminalInterface) exportScenario(cmd *cobra.Command, args []string) error {
	data, err := scenariofile.Marshal([]entities.Scenario{scenario.DefaultEnrollment()})
	if err != nil {
		return err
	}
	_, err = t.out.Write(data)
	return err
}

func (t *TerminalInterface) showResults(cmd *cobra.Command, args []string) error {
	store, err := storage.NewResultStore(t.cfg.OutputDir)
	if err != nil {
		return err
	}
	results, err := store.LoadResults()
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(t.out, "no results yet")
		return nil
	}
	console := report.NewConsole(t.out, false)
	for _, r := range results {
		console.ScenarioFinished(r)
	}
	console.Summary(results, "")
	return nil
}
