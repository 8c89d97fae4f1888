package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/coolbeans/listenconv/pkg/config"
	"github.com/coolbeans/listenconv/pkg/extract"
	"github.com/coolbeans/listenconv/pkg/library"
	"github.com/coolbeans/listenconv/pkg/logger"
	"github.com/coolbeans/listenconv/pkg/pdftext"
	"github.com/coolbeans/listenconv/pkg/server"
	"github.com/coolbeans/listenconv/pkg/types"
	"github.com/coolbeans/listenconv/pkg/validate"
	"github.com/coolbeans/listenconv/pkg/watch"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "listenconv",
		Short: "Listening test converter",
		Long: `Listenconv turns the text of IELTS-style listening test PDFs into
structured JSON documents.

It extracts text from PDF or plain-text sources and produces:
  - Sections with titles and instruction blocks
  - Gap-fill and multiple-choice questions with sequential ids
  - Validation reports on extraction quality and question coverage
  - A persistent library of converted tests, served over HTTP and MCP`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")

	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(libraryCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// runtimeEnv bundles the collaborators every command builds from --config.
type runtimeEnv struct {
	cfg       *config.Config
	log       *logger.Logger
	converter *extract.Converter
	extractor *pdftext.Extractor
}

func loadEnv(cmd *cobra.Command) (*runtimeEnv, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := cfg.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &runtimeEnv{
		cfg:       cfg,
		log:       log,
		converter: extract.NewConverter(cfg.ConverterOptions(log)),
		extractor: pdftext.New(pdftext.Config{MaxFileSize: cfg.Extraction.MaxFileSize, Logger: log}),
	}, nil
}

func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <source> [destination]",
		Short: "Convert a listening test PDF or text file to JSON",
		Long: `Extract the text of a listening test and convert it to a structured
JSON document. The JSON is written to destination, or to stdout when no
destination is given.

Examples:
  listenconv convert test1.pdf test1.json
  listenconv convert test1.pdf --gates --strict
  listenconv convert notes.txt --gates --profile scans.yaml --report-format md`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			enableGates, _ := cmd.Flags().GetBool("gates")
			reportFormat, _ := cmd.Flags().GetString("report-format")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			sourcePath := args[0]
			destination := ""
			if len(args) > 1 {
				destination = args[1]
			}

			// Progress lines go to stderr when the JSON itself goes to stdout.
			progress := os.Stdout
			if destination == "" {
				progress = os.Stderr
			}

			result, err := env.extractor.Extract(cmd.Context(), sourcePath)
			if err != nil {
				if errors.Is(err, pdftext.ErrNoText) {
					return fmt.Errorf("no text could be extracted from %s (is it a scanned PDF?)", sourcePath)
				}
				return fmt.Errorf("failed to extract %s: %w", sourcePath, err)
			}

			start := time.Now()
			doc := env.converter.Convert(result.Text)
			convertDuration := time.Since(start)

			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode document: %w", err)
			}

			if destination == "" {
				fmt.Println(string(data))
			} else if err := os.WriteFile(destination, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", destination, err)
			}

			fmt.Fprintf(progress, "Converted %s: %d sections, %d questions\n",
				sourcePath, len(doc.Parts.Sections), doc.Parts.Metadata.TotalQuestions)
			if destination != "" {
				fmt.Fprintf(progress, "Output: %s\n", destination)
			}

			if !enableGates {
				return nil
			}

			validationConfig, err := validationConfigFromFlags(cmd)
			if err != nil {
				return err
			}

			gatePipeline := validate.NewGatePipeline(validationConfig)
			gatePipeline.RegisterDefaultGates()
			gateReport := gatePipeline.Run(&validate.ValidationContext{
				SourceText:      result.Text,
				SourcePath:      sourcePath,
				Quality:         result.Quality,
				Document:        doc,
				Config:          validationConfig,
				ConvertDuration: convertDuration,
			})

			if err := writeGateReport(progress, gateReport, reportFormat); err != nil {
				return err
			}
			if gateReport.HaltedAt != "" {
				return fmt.Errorf("validation halted at gate %s", gateReport.HaltedAt)
			}
			return nil
		},
	}

	cmd.Flags().Bool("gates", false, "Run validation gates on the converted document")
	addGateFlags(cmd)

	return cmd
}

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [source]",
		Short: "Show the question format assigned to each line",
		Long: `Print the format the classifier assigns to every non-blank line of a
source, or list the classification rules in precedence order.

Examples:
  listenconv classify test1.pdf
  listenconv classify test1.txt --format json
  listenconv classify --rules`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			showRules, _ := cmd.Flags().GetBool("rules")
			formatStr, _ := cmd.Flags().GetString("format")

			if showRules {
				rules := extract.Rules()
				if formatStr == "json" {
					return printJSON(rules)
				}
				fmt.Printf("%-9s %-16s %s\n", "PRIORITY", "FORMAT", "RULE")
				for _, rule := range rules {
					fmt.Printf("%-9d %-16s %s\n", rule.Priority, rule.Format, rule.Rule)
				}
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("a source file is required unless --rules is set")
			}

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			result, err := env.extractor.Extract(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to extract %s: %w", args[0], err)
			}

			type classifiedLine struct {
				Line   string               `json:"line"`
				Format types.QuestionFormat `json:"format"`
			}
			lines := extract.SplitLines(result.Text)
			classified := make([]classifiedLine, 0, len(lines))
			counts := make(map[types.QuestionFormat]int)
			for _, line := range lines {
				format := extract.Classify(line)
				counts[format]++
				classified = append(classified, classifiedLine{Line: line, Format: format})
			}

			if formatStr == "json" {
				return printJSON(classified)
			}

			fmt.Printf("%-16s %s\n", "FORMAT", "LINE")
			fmt.Println(strings.Repeat("-", 80))
			for _, entry := range classified {
				fmt.Printf("%-16s %s\n", entry.Format, truncateString(entry.Line, 62))
			}
			fmt.Printf("\n%d line(s):", len(classified))
			for _, rule := range extract.Rules() {
				if counts[rule.Format] > 0 {
					fmt.Printf(" %s=%d", rule.Format, counts[rule.Format])
				}
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().Bool("rules", false, "List classification rules in precedence order")
	cmd.Flags().StringP("format", "f", "table", "Output format (table, json)")

	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document.json>",
		Short: "Run validation gates on a converted document",
		Long: `Run the validation gates against a converted JSON document.

Gates:
  V0  source text quality (needs --source)
  V1  section structure and question totals
  V2  question coverage
  V3  question identifiers and options

Examples:
  listenconv validate test1.json
  listenconv validate test1.json --source test1.pdf --format md
  listenconv validate test1.json --threshold V2.question_density=0.2 --strict`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourcePath, _ := cmd.Flags().GetString("source")
			reportFormat, _ := cmd.Flags().GetString("report-format")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read document: %w", err)
			}
			doc, err := library.DeserializeDocument(data)
			if err != nil {
				return err
			}

			validationConfig, err := validationConfigFromFlags(cmd)
			if err != nil {
				return err
			}

			validationContext := &validate.ValidationContext{
				Document: doc,
				Config:   validationConfig,
			}
			if sourcePath != "" {
				result, err := env.extractor.Extract(cmd.Context(), sourcePath)
				if err != nil && !errors.Is(err, pdftext.ErrNoText) {
					return fmt.Errorf("failed to extract %s: %w", sourcePath, err)
				}
				validationContext.SourcePath = sourcePath
				if result != nil {
					validationContext.SourceText = result.Text
					validationContext.Quality = result.Quality
				}
			}

			gatePipeline := validate.NewGatePipeline(validationConfig)
			gatePipeline.RegisterDefaultGates()
			gateReport := gatePipeline.Run(validationContext)

			if err := writeGateReport(os.Stdout, gateReport, reportFormat); err != nil {
				return err
			}
			if !gateReport.OverallPass {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}

	cmd.Flags().String("source", "", "Source file the document was converted from")
	addGateFlags(cmd)

	return cmd
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile [output.yaml]",
		Short: "Write a validation profile with the default thresholds",
		Long: `Write a YAML validation profile listing every gate metric at its
default threshold, ready to edit and pass to --profile.

Examples:
  listenconv profile scans.yaml
  listenconv profile --metrics`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			listMetrics, _ := cmd.Flags().GetBool("metrics")
			name, _ := cmd.Flags().GetString("name")

			if listMetrics {
				for _, key := range validate.MetricKeys() {
					fmt.Println(key)
				}
				return nil
			}

			validationConfig := validate.DefaultValidationConfig()
			for key, value := range validate.DefaultThresholds() {
				validationConfig.Thresholds[key] = value
			}
			profile := validate.ProfileFromConfig(name, validationConfig)

			if len(args) == 0 {
				data, err := profile.ToYAML()
				if err != nil {
					return err
				}
				fmt.Print(string(data))
				return nil
			}

			if err := validate.SaveProfileToFile(profile, args[0]); err != nil {
				return fmt.Errorf("failed to write profile: %w", err)
			}
			fmt.Printf("Profile written to: %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().Bool("metrics", false, "List gate metric keys")
	cmd.Flags().String("name", "default", "Profile name")

	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion HTTP API",
		Long: `Serve the conversion API:

  GET    /healthz
  POST   /api/v1/convert        (plain-text body, ?gates=true for a report)
  POST   /api/v1/classify       ({"lines": [...]} or {"text": "..."})
  GET    /api/v1/rules
  GET    /api/v1/tests
  POST   /api/v1/tests          (plain-text body, ?id=&name=&tag=&force=)
  GET    /api/v1/tests/{id}
  DELETE /api/v1/tests/{id}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			libraryPath, _ := cmd.Flags().GetString("path")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			if addr == "" {
				addr = env.cfg.Server.Addr
			}

			lib, err := openLibrary(env, libraryPath, true)
			if err != nil {
				return err
			}
			defer lib.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Config{
				Converter: env.converter,
				Extractor: env.extractor,
				Library:   lib,
				Logger:    env.log,
			})
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from config, :8086)")
	cmd.Flags().String("path", "", "Library directory path (default from config)")

	return cmd
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the converter tools over MCP on stdio",
		Long: `Run an MCP server on stdin/stdout exposing:

  listening_convert_text  convert extracted text
  listening_classify      classify lines
  listening_convert_file  extract and convert a .pdf or .txt file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Config{
				Converter: env.converter,
				Extractor: env.extractor,
				Logger:    env.log,
			})
			return srv.NewMCPServer(version).Run(ctx, &mcp.StdioTransport{})
		},
	}
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <inbox-dir>",
		Short: "Convert files dropped into a directory into the library",
		Long: `Watch a directory for .pdf and .txt files. Each new or modified file is
extracted, converted and stored in the library under an id derived from its
file name. Files already present are imported first.

Example:
  listenconv watch ./inbox --path ./listening-library`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			libraryPath, _ := cmd.Flags().GetString("path")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			lib, err := openLibrary(env, libraryPath, true)
			if err != nil {
				return err
			}
			defer lib.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			inbox := watch.NewInbox(args[0], lib, env.extractor, env.log)
			inbox.SetOnResult(func(event watch.Event) {
				if event.Err != nil {
					fmt.Printf("  [FAIL] %s: %v\n", event.Path, event.Err)
					return
				}
				fmt.Printf("  [OK] %-24s %d questions (%s)\n",
					event.Entry.ID, event.Entry.Stats.TotalQuestions, event.Op)
			})

			seedReport, err := inbox.Scan(ctx)
			if err != nil {
				return fmt.Errorf("failed to scan inbox: %w", err)
			}
			fmt.Printf("Initial scan: %d ingested, %d skipped, %d failed\n",
				seedReport.Succeeded, seedReport.Skipped, seedReport.Failed)

			if err := inbox.Start(ctx); err != nil {
				return err
			}
			defer inbox.Stop()

			fmt.Printf("Watching %s (Ctrl-C to stop)\n", args[0])
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().String("path", "", "Library directory path (default from config)")

	return cmd
}

// addGateFlags registers the flags shared by convert and validate.
func addGateFlags(cmd *cobra.Command) {
	cmd.Flags().String("profile", "", "YAML validation profile")
	cmd.Flags().StringSlice("skip-gates", []string{}, "Gates to skip (e.g., V0,V2)")
	cmd.Flags().StringSlice("threshold", []string{}, "Threshold override as Gate.metric=value (repeatable)")
	cmd.Flags().Bool("strict", false, "Halt on the first failing gate")
	cmd.Flags().Bool("fail-on-warn", false, "Halt on the first gate warning")
	cmd.Flags().String("report-format", "text", "Gate report format (text, json, md)")
}

// validationConfigFromFlags starts from --profile when given and layers the
// command-line overrides on top.
func validationConfigFromFlags(cmd *cobra.Command) (*validate.ValidationConfig, error) {
	profilePath, _ := cmd.Flags().GetString("profile")
	skipGates, _ := cmd.Flags().GetStringSlice("skip-gates")
	thresholds, _ := cmd.Flags().GetStringSlice("threshold")
	strictMode, _ := cmd.Flags().GetBool("strict")
	failOnWarn, _ := cmd.Flags().GetBool("fail-on-warn")

	validationConfig := validate.DefaultValidationConfig()
	if profilePath != "" {
		loaded, err := validate.LoadProfileFromFile(profilePath)
		if err != nil {
			return nil, err
		}
		validationConfig = loaded
	}

	validationConfig.SkipGates = append(validationConfig.SkipGates, skipGates...)
	validationConfig.StrictMode = validationConfig.StrictMode || strictMode
	validationConfig.FailOnWarn = validationConfig.FailOnWarn || failOnWarn

	for _, override := range thresholds {
		key, rawValue, found := strings.Cut(override, "=")
		if !found {
			return nil, fmt.Errorf("invalid --threshold %q (want Gate.metric=value)", override)
		}
		value, err := strconv.ParseFloat(rawValue, 64)
		if err != nil || value < 0 || value > 1 {
			return nil, fmt.Errorf("invalid --threshold %q: value must be between 0 and 1", override)
		}
		validationConfig.Thresholds[strings.TrimSpace(key)] = value
	}

	return validationConfig, nil
}

func writeGateReport(out *os.File, gateReport *validate.GateReport, reportFormat string) error {
	switch reportFormat {
	case "json":
		data, err := gateReport.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	case "md", "markdown":
		fmt.Fprint(out, gateReport.ToMarkdown())
	case "text", "":
		fmt.Fprintln(out, "\nValidation gates:")
		for _, gateResult := range gateReport.Results {
			printGateResult(out, gateResult)
		}
		fmt.Fprintf(out, "\nOverall: %s (score: %.0f%%)\n", passLabel(gateReport.OverallPass), gateReport.TotalScore*100)
	default:
		return fmt.Errorf("unknown report format %q (want text, json or md)", reportFormat)
	}
	return nil
}

func printGateResult(out *os.File, gateResult *validate.GateResult) {
	statusLabel := "PASS"
	if !gateResult.Passed {
		statusLabel = "FAIL"
	}
	if gateResult.Skipped {
		statusLabel = "SKIP"
	}
	fmt.Fprintf(out, "  [%s] Gate %s (score: %.0f%%)\n", statusLabel, gateResult.Gate, gateResult.Score*100)
	for _, gateError := range gateResult.Errors {
		fmt.Fprintf(out, "    ERROR: %s\n", gateError.Message)
	}
	for _, gateWarning := range gateResult.Warnings {
		fmt.Fprintf(out, "    WARN: %s\n", gateWarning.Message)
	}
}

func passLabel(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func truncateString(inputStr string, maxLength int) string {
	if len(inputStr) <= maxLength {
		return inputStr
	}
	return inputStr[:maxLength-3] + "..."
}

// openLibrary opens the library at libraryPath, or at the configured path
// when libraryPath is empty.
func openLibrary(env *runtimeEnv, libraryPath string, create bool) (*library.Library, error) {
	if libraryPath == "" {
		libraryPath = env.cfg.Library.Path
	}

	var lib *library.Library
	var err error
	if create {
		lib, err = library.OpenOrInit(libraryPath)
	} else {
		lib, err = library.Open(libraryPath)
	}
	if err != nil {
		return nil, fmt.Errorf("library not found at %s (run 'listenconv library init' first): %w", libraryPath, err)
	}

	lib.SetConverter(env.converter)
	lib.SetLogger(env.log)
	return lib, nil
}
