package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetpatch/internal/core"
	"github.com/JonMunkholm/sheetpatch/internal/history"
)

type applyFlags struct {
	outDir string
	dryRun bool
	record bool
}

func (c *cli) newApplyCmd() *cobra.Command {
	var flags applyFlags

	cmd := &cobra.Command{
		Use:   "apply <workbook>",
		Short: "Write a corrected copy of a workbook",
		Long: `Apply every correction table in the payload to the workbook and save the
result as "<name>(修改后).xlsx". Prints the result as JSON and exits 1 when
nothing could be applied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runApply(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.outDir, "out", "o", "", "output directory (default: next to the workbook)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().BoolVar(&flags.record, "record", false, "record the run in the configured history store")
	return cmd
}

// dryRunReport mirrors core.Result for runs that save nothing.
type dryRunReport struct {
	Success   bool       `json:"success"`
	DryRun    bool       `json:"dry_run"`
	Stats     core.Stats `json:"statistics"`
	Error     string     `json:"error,omitempty"`
	ErrorCode string     `json:"error_code,omitempty"`
	Warnings  []string   `json:"warnings,omitempty"`
}

func (c *cli) runApply(cmd *cobra.Command, workbook string, flags applyFlags) error {
	ctx := cmd.Context()

	opts, err := c.cfg.EngineOptions()
	if err != nil {
		return c.fail(err)
	}
	payload, err := c.readPayload()
	if err != nil {
		return c.fail(err)
	}

	store := history.Store(history.NewMemoryStore())
	if flags.record {
		store, err = history.Open(ctx, c.cfg.History.Driver, c.cfg.History.DSN)
		if err != nil {
			return c.fail(err)
		}
	}

	svc := core.NewService(core.ServiceConfig{
		Options:      opts,
		OutputDir:    flags.outDir,
		OutputSuffix: c.cfg.Reconcile.OutputSuffix,
		RunTimeout:   c.cfg.Reconcile.RunTimeout,
		History:      store,
	})
	defer svc.Close()

	if flags.dryRun {
		out, err := svc.DryRun(ctx, workbook, payload)
		if err != nil {
			return c.fail(fmt.Errorf("dry run: %w", err))
		}
		report := dryRunReport{Success: out.OK(), DryRun: true, Stats: out.Stats, Warnings: out.Warnings}
		if out.Err != nil {
			report.Error = out.Err.Error()
			report.ErrorCode = out.Err.Code
		}
		if err := c.printJSON(report); err != nil {
			return err
		}
		if !report.Success {
			return errRunFailed
		}
		return nil
	}

	res := svc.Reconcile(ctx, core.Request{
		WorkbookPath: workbook,
		Payload:      payload,
	})
	if err := c.printJSON(res); err != nil {
		return err
	}
	if !res.Success {
		return errRunFailed
	}
	return nil
}
