package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coolbeans/listenconv/pkg/batch"
)

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <source|dir>...",
		Short: "Convert many listening tests concurrently",
		Long: `Convert every .pdf and .txt file named on the command line, or found
directly inside a named directory, writing one <id>.json per source to the
output directory. A summary report is printed when all sources are done.

Examples:
  listenconv batch ./tests --out ./json
  listenconv batch a.pdf b.pdf --gates --workers 4 --report-format md`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputDir, _ := cmd.Flags().GetString("out")
			workers, _ := cmd.Flags().GetInt("workers")
			enableGates, _ := cmd.Flags().GetBool("gates")
			reportFormat, _ := cmd.Flags().GetString("report-format")
			quiet, _ := cmd.Flags().GetBool("quiet")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			sources, err := batch.CollectSources(args)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return fmt.Errorf("no .pdf or .txt sources found")
			}

			batchConfig := batch.DefaultConfig()
			batchConfig.Concurrency = env.cfg.Batch.Concurrency
			if workers > 0 {
				batchConfig.Concurrency = workers
			}
			batchConfig.OutputDir = outputDir
			batchConfig.RunGates = enableGates
			if enableGates {
				if batchConfig.Validation, err = validationConfigFromFlags(cmd); err != nil {
					return err
				}
			}

			batchConverter := batch.New(batchConfig, env.extractor, env.converter, env.log)
			if !quiet {
				batchConverter.SetProgressCallback(func(progress *batch.Progress) {
					fmt.Fprintf(os.Stderr, "\r[%d/%d] %.0f%% %s",
						progress.Completed, progress.Total, progress.PercentComplete(),
						truncateString(progress.CurrentPath, 50))
				})
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(os.Stderr, "Converting %d sources with %d workers\n", len(sources), batchConfig.Concurrency)
			report, runErr := batchConverter.Run(ctx, sources)
			if !quiet {
				fmt.Fprintln(os.Stderr)
			}
			if report == nil {
				return runErr
			}

			switch reportFormat {
			case "json":
				data, err := report.ToJSON()
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			case "md", "markdown":
				fmt.Print(report.ToMarkdown())
			case "text", "":
				fmt.Print(report.String())
			default:
				return fmt.Errorf("unknown report format %q (want text, json or md)", reportFormat)
			}

			if runErr != nil {
				return fmt.Errorf("batch interrupted: %w", runErr)
			}
			if failed := report.Total - report.Converted; failed > 0 {
				return fmt.Errorf("%d of %d sources failed", failed, report.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringP("out", "o", "", "Directory for converted JSON files (none written when empty)")
	cmd.Flags().IntP("workers", "w", 0, "Concurrent conversions (default from config)")
	cmd.Flags().Bool("gates", false, "Run validation gates on every converted document")
	cmd.Flags().BoolP("quiet", "q", false, "Suppress progress output")
	addGateFlags(cmd)

	return cmd
}
