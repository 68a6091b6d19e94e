package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/onnwee/telesis/internal/config"
	"github.com/onnwee/telesis/internal/contrast"
)

// errAuditFailed signals that evaluation ran but at least one pair failed.
var errAuditFailed = errors.New("contrast audit failed")

// cli carries state shared by all subcommands.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	create func(name string) (io.WriteCloser, error)

	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr, create: createFile}

	root := &cobra.Command{
		Use:           "contrast",
		Short:         "Check WCAG 2.1 color contrast",
		Long:          `Evaluates foreground/background color pairs against WCAG 2.1 AA and AAA contrast thresholds.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("TELESIS_CONFIG"), "path to YAML config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(c.checkCmd(), c.reportCmd(), c.scanCmd())
	return root
}

func (c *cli) setup() error {
	cfg, errs := config.Load(c.configPath)
	if len(errs) > 0 {
		return fmt.Errorf("load config: %w", errors.Join(errs...))
	}
	c.cfg = cfg

	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func (c *cli) engine() *contrast.Engine {
	return contrast.NewEngine(contrast.Options{
		Logger:       c.logger,
		BroadParsing: c.cfg.BroadColorParsing,
		Workers:      c.cfg.EvalWorkers,
	})
}

// level resolves an explicit flag value, falling back to the configured default.
func (c *cli) level(flag string) (contrast.Level, error) {
	if flag == "" {
		return c.cfg.Level(), nil
	}
	return contrast.ParseLevel(flag)
}

func createFile(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// emit writes report in format to --out or stdout and maps failures to errAuditFailed.
func (c *cli) emit(report contrast.Report, format, out string) error {
	f, err := contrast.ParseFormat(format)
	if err != nil {
		return err
	}

	if out == "" {
		if err := contrast.Encode(c.stdout, report, f); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	} else {
		file, err := c.create(out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		if err := contrast.Encode(file, report, f); err != nil {
			_ = file.Close()
			return fmt.Errorf("write report: %w", err)
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("close output: %w", err)
		}
	}

	if !report.Passed() {
		return errAuditFailed
	}
	return nil
}
