package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetpatch/internal/core"
)

type extractOutput struct {
	Count  int          `json:"count"`
	Tables []core.Table `json:"tables"`
}

func (c *cli) newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Print the correction tables found in a payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := c.cfg.EngineOptions()
			if err != nil {
				return c.fail(err)
			}
			payload, err := c.readPayload()
			if err != nil {
				return c.fail(err)
			}

			tables := core.ExtractTables(payload, opts.KeyColumn)
			if tables == nil {
				tables = []core.Table{}
			}
			return c.printJSON(extractOutput{Count: len(tables), Tables: tables})
		},
	}
}
