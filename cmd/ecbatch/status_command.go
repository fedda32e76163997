package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ecbatch/internal/batch"
	"ecbatch/internal/deps"
	"ecbatch/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, tool binaries, and stage readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			p := newStatusPrinter(out)

			p.section("Environment")
			if ctx.configExists {
				p.line("Config", statusInfo, ctx.configPath)
			} else {
				p.line("Config", statusWarn, "no config file; defaults in use")
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg, preflight.AllScopes) {
				p.check(result)
			}

			p.section("Stages")
			handlers, err := batch.Handlers(cfg)
			if err != nil {
				return err
			}
			for _, handler := range handlers {
				p.health(handler.HealthCheck(cmd.Context()))
			}

			fmt.Fprintln(out, p.String())
			if p.failed > 0 {
				fmt.Fprintf(out, "\n%d check(s) failed\n", p.failed)
			}
			if missing := deps.Missing(preflight.CheckSystemDeps(cmd.Context(), cfg, preflight.AllScopes)); len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, status := range missing {
					names = append(names, status.Name)
				}
				fmt.Fprintf(out, "Required tools missing: %s\n", strings.Join(names, ", "))
			}
			return nil
		},
	}
}
