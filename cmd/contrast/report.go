package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/onnwee/telesis/internal/auditset"
)

func (c *cli) reportCmd() *cobra.Command {
	var (
		setPath    string
		modernSage bool
		level      string
		format     string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Evaluate an audit set and print a report",
		Long: `Evaluates every pair in an audit set file, or the built-in Modern Sage
set, and writes a report. Exits 1 when any pair fails.`,
		Example: `  contrast report --modern-sage
  contrast report --set palette.yaml --level AAA --format json --out report.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var set *auditset.Set
			switch {
			case modernSage && setPath != "":
				return errors.New("--set and --modern-sage are mutually exclusive")
			case modernSage:
				set = auditset.ModernSage()
			case setPath != "":
				var err error
				if set, err = auditset.Load(setPath); err != nil {
					return err
				}
			default:
				return errors.New("one of --set or --modern-sage is required")
			}

			lvl, err := c.level(level)
			if err != nil {
				return err
			}
			if level == "" {
				lvl = set.EffectiveLevel(lvl)
			}

			c.logger.Debug("evaluating audit set", "set", set.Name, "pairs", len(set.Pairs), "level", lvl)
			report := c.engine().EvaluateSet(cmd.Context(), set.ContrastPairs(), lvl)
			report.Title = set.Title
			return c.emit(report, format, out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&setPath, "set", "", "path to an audit set YAML file")
	f.BoolVar(&modernSage, "modern-sage", false, "evaluate the built-in Modern Sage palette")
	f.StringVar(&level, "level", "", "conformance level (AA or AAA); overrides the set")
	f.StringVar(&format, "format", "text", "output format (text, json or cbor)")
	f.StringVar(&out, "out", "", "write the report to this file instead of stdout")
	return cmd
}
