package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coolbeans/listenconv/pkg/library"
)

func libraryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage the listening test library",
		Long: `Manage a persistent library of converted listening tests.

The library keeps the extracted source text, the converted document and its
statistics on disk for every test.

Examples:
  listenconv library init
  listenconv library add --source test1.pdf --id cambridge-15-1
  listenconv library import ./pdfs
  listenconv library list
  listenconv library show cambridge-15-1
  listenconv library source cambridge-15-1
  listenconv library stats
  listenconv library remove cambridge-15-1`,
	}

	cmd.PersistentFlags().String("path", "", "Library directory path (default from config)")

	cmd.AddCommand(libraryInitCmd())
	cmd.AddCommand(libraryAddCmd())
	cmd.AddCommand(libraryImportCmd())
	cmd.AddCommand(libraryListCmd())
	cmd.AddCommand(libraryShowCmd())
	cmd.AddCommand(librarySourceCmd())
	cmd.AddCommand(libraryStatsCmd())
	cmd.AddCommand(libraryRemoveCmd())

	return cmd
}

func libraryInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new listening test library",
		RunE: func(cmd *cobra.Command, args []string) error {
			libraryPath, _ := cmd.Flags().GetString("path")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if libraryPath == "" {
				libraryPath = env.cfg.Library.Path
			}

			lib, err := library.Init(libraryPath)
			if err != nil {
				return fmt.Errorf("failed to initialize library: %w", err)
			}

			fmt.Printf("Library initialized at: %s\n", lib.Path())
			fmt.Println("\nNext steps:")
			fmt.Println("  listenconv library import path/to/pdfs")
			fmt.Println("  listenconv library add --source path/to/test.pdf --id my-test")
			return nil
		},
	}
}

func libraryAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Convert a source file and add it to the library",
		Long: `Extract and convert a listening test and store it in the library.

Examples:
  listenconv library add --source test1.pdf --id cambridge-15-1
  listenconv library add --source test1.txt --tags practice,cambridge
  listenconv library add --source test1.pdf --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sourcePath, _ := cmd.Flags().GetString("source")
			documentID, _ := cmd.Flags().GetString("id")
			documentName, _ := cmd.Flags().GetString("name")
			tags, _ := cmd.Flags().GetStringSlice("tags")
			force, _ := cmd.Flags().GetBool("force")
			libraryPath, _ := cmd.Flags().GetString("path")

			if sourcePath == "" {
				return fmt.Errorf("--source flag is required")
			}

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer env.log.Sync()

			lib, err := openLibrary(env, libraryPath, false)
			if err != nil {
				return err
			}

			sourceText, format, err := library.ExtractFile(cmd.Context(), env.extractor, sourcePath)
			if err != nil {
				return fmt.Errorf("failed to extract source: %w", err)
			}

			if documentID == "" {
				documentID = library.DeriveDocumentID(sourcePath)
			}

			fmt.Printf("Adding test: %s\n", documentID)
			fmt.Printf("  Source: %s (%s, %d bytes of text)\n", sourcePath, format, len(sourceText))

			entry, err := lib.AddDocument(documentID, sourceText, library.AddOptions{
				Name:         documentName,
				SourceFile:   sourcePath,
				SourceFormat: string(format),
				Tags:         tags,
				Force:        force,
			})
			if err != nil {
				return fmt.Errorf("failed to add test: %w", err)
			}

			fmt.Printf("  Status: %s\n", entry.Status)
			if entry.Stats != nil {
				fmt.Printf("  Sections: %d\n", entry.Stats.Sections)
				fmt.Printf("  Questions: %d (%d gap-fill, %d multiple-choice)\n",
					entry.Stats.TotalQuestions, entry.Stats.GapFill, entry.Stats.MultipleChoice)
			}
			return nil
		},
	}

	cmd.Flags().StringP("source", "s", "", "Source file path (.pdf or .txt)")
	cmd.Flags().String("id", "", "Test identifier (derived from filename if omitted)")
	cmd.Flags().String("name", "", "Human-readable name")
	cmd.Flags().StringSlice("tags", []string{}, "Tags for categorization")
	cmd.Flags().Bool("force", false, "Overwrite existing test")

	return cmd
}

func libraryImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Import every .pdf and .txt file in a directory",
		Long: `Convert every .pdf and .txt file in a directory (not recursive) and add
it to the library. Tests already in the library are skipped unless --force.
The library is created if it does not exist.

Example:
  listenconv library import ./pdfs`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
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

			fmt.Printf("Importing from %s\n\n", args[0])

			seedReport, err := library.SeedFromDirectory(cmd.Context(), lib, env.extractor, args[0], force)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			for _, entryState := range seedReport.Entries {
				switch entryState.Status {
				case "ingested":
					questionCount := 0
					if entry := lib.GetDocument(entryState.ID); entry != nil && entry.Stats != nil {
						questionCount = entry.Stats.TotalQuestions
					}
					fmt.Printf("  [OK] %-24s %d questions\n", entryState.ID, questionCount)
				case "skipped":
					fmt.Printf("  [SKIP] %-22s already in library\n", entryState.ID)
				case "failed":
					fmt.Printf("  [FAIL] %-22s %s\n", entryState.ID, entryState.Error)
				}
			}

			fmt.Printf("\nImport complete: %d ingested, %d skipped, %d failed\n",
				seedReport.Succeeded, seedReport.Skipped, seedReport.Failed)

			libraryStats := lib.Stats()
			fmt.Printf("Library totals: %d tests, %d questions\n",
				libraryStats.TotalDocuments, libraryStats.TotalQuestions)
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Re-convert tests already in the library")

	return cmd
}

func libraryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all tests in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			libraryPath, _ := cmd.Flags().GetString("path")
			formatStr, _ := cmd.Flags().GetString("format")
			tag, _ := cmd.Flags().GetString("tag")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			lib, err := openLibrary(env, libraryPath, false)
			if err != nil {
				return err
			}

			docs := lib.ListDocuments()

			if tag != "" {
				filtered := make([]*library.DocumentEntry, 0)
				for _, entry := range docs {
					for _, entryTag := range entry.Tags {
						if entryTag == tag {
							filtered = append(filtered, entry)
							break
						}
					}
				}
				docs = filtered
			}

			if formatStr == "json" {
				return printJSON(docs)
			}

			if len(docs) == 0 {
				fmt.Println("Library is empty. Run 'listenconv library import <dir>' to add tests.")
				return nil
			}

			fmt.Printf("%-26s %-26s %-7s %-6s %8s %9s\n",
				"ID", "NAME", "STATUS", "FORMAT", "SECTIONS", "QUESTIONS")
			fmt.Println(strings.Repeat("-", 88))

			for _, entry := range docs {
				sectionCount := 0
				questionCount := 0
				if entry.Stats != nil {
					sectionCount = entry.Stats.Sections
					questionCount = entry.Stats.TotalQuestions
				}
				fmt.Printf("%-26s %-26s %-7s %-6s %8d %9d\n",
					truncateString(entry.ID, 26),
					truncateString(entry.Name, 26),
					entry.Status,
					entry.SourceFormat,
					sectionCount,
					questionCount,
				)
			}

			fmt.Printf("\n%d test(s)\n", len(docs))
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "table", "Output format (table, json)")
	cmd.Flags().String("tag", "", "Filter by tag")

	return cmd
}

func libraryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <test-id>",
		Short: "Print a stored test",
		Long: `Print a stored test as JSON, or a per-section summary with --summary.

Examples:
  listenconv library show cambridge-15-1
  listenconv library show cambridge-15-1 --summary`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			libraryPath, _ := cmd.Flags().GetString("path")
			summary, _ := cmd.Flags().GetBool("summary")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			lib, err := openLibrary(env, libraryPath, false)
			if err != nil {
				return err
			}

			entry := lib.GetDocument(args[0])
			if entry == nil {
				return fmt.Errorf("test not found: %s", args[0])
			}
			if entry.Status != library.StatusReady {
				return fmt.Errorf("test %s failed to convert: %s", entry.ID, entry.Error)
			}

			doc, err := lib.LoadDocument(args[0])
			if err != nil {
				return err
			}

			if !summary {
				return printJSON(doc)
			}

			fmt.Printf("Test: %s (%s)\n", entry.ID, doc.Title)
			fmt.Printf("Source: %s\n", entry.SourceFile)
			fmt.Printf("Ingested: %s\n\n", entry.IngestedAt.Format("2006-01-02 15:04:05"))
			for _, section := range doc.Parts.Sections {
				fmt.Printf("  Section %d: %-40s %3d items, %3d questions\n",
					section.SectionNumber,
					truncateString(section.Title, 40),
					len(section.Content),
					section.Content.CountQuestions(),
				)
			}
			fmt.Printf("\nTotal questions: %d\n", doc.Parts.Metadata.TotalQuestions)
			return nil
		},
	}

	cmd.Flags().Bool("summary", false, "Print a per-section summary instead of JSON")

	return cmd
}

func librarySourceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "source <test-id>",
		Short: "Print the extracted source text of a stored test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			libraryPath, _ := cmd.Flags().GetString("path")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			lib, err := openLibrary(env, libraryPath, false)
			if err != nil {
				return err
			}

			sourceText, err := lib.LoadSourceText(args[0])
			if err != nil {
				return err
			}

			os.Stdout.Write(sourceText)
			return nil
		},
	}
}

func libraryStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show library statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			libraryPath, _ := cmd.Flags().GetString("path")
			formatStr, _ := cmd.Flags().GetString("format")

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			lib, err := openLibrary(env, libraryPath, false)
			if err != nil {
				return err
			}

			libraryStats := lib.Stats()
			if formatStr == "json" {
				return printJSON(libraryStats)
			}

			fmt.Printf("Library: %s\n\n", lib.Path())
			fmt.Printf("Tests:           %d\n", libraryStats.TotalDocuments)
			fmt.Printf("Sections:        %d\n", libraryStats.TotalSections)
			fmt.Printf("Questions:       %d\n", libraryStats.TotalQuestions)
			fmt.Printf("  gap-fill:        %d\n", libraryStats.GapFill)
			fmt.Printf("  multiple-choice: %d\n", libraryStats.MultipleChoice)

			printCounts("By Status", libraryStats.ByStatus)
			printCounts("By Source Format", libraryStats.BySourceFormat)
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")

	return cmd
}

func libraryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <test-id>",
		Short: "Remove a test from the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			libraryPath, _ := cmd.Flags().GetString("path")
			documentID := args[0]

			env, err := loadEnv(cmd)
			if err != nil {
				return err
			}

			lib, err := openLibrary(env, libraryPath, false)
			if err != nil {
				return err
			}

			if err := lib.RemoveDocument(documentID); err != nil {
				return fmt.Errorf("failed to remove test: %w", err)
			}

			fmt.Printf("Removed test: %s\n", documentID)
			return nil
		},
	}
}

func printCounts(heading string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Printf("\n%s:\n", heading)
	for _, key := range keys {
		fmt.Printf("  %-15s %d\n", key, counts[key])
	}
}
