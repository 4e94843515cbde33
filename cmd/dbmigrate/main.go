package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/koba/db-migrate/internal/apply"
	"github.com/koba/db-migrate/internal/database"
	"github.com/koba/db-migrate/internal/diff"
	"github.com/koba/db-migrate/internal/generator"
	"github.com/koba/db-migrate/internal/history"
	"github.com/koba/db-migrate/internal/repository"
	"github.com/koba/db-migrate/internal/schema"
	"github.com/koba/db-migrate/internal/snapshot"
)

var (
	modelPath     string
	outputDir     string
	repositoryDir string
	declarative   bool
	assumeYes     bool
	verbose       bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dbmigrate",
	Short: "Schema diff and migration tool",
	Long:  `A tool to diff a declared model against a live database schema and generate or apply migrations.`,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot [name]",
	Short: "Save the live database schema as a model snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshot,
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the model snapshot against the live database",
	Args:  cobra.NoArgs,
	RunE:  runCompare,
}

var createModelCmd = &cobra.Command{
	Use:   "create-model",
	Short: "Generate model source text from the live database",
	Args:  cobra.NoArgs,
	RunE:  runCreateModel,
}

var scriptCmd = &cobra.Command{
	Use:   "script <name>",
	Short: "Generate an upgrade/downgrade migration script into the repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runScript,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Apply model changes directly to the live database",
	Args:  cobra.NoArgs,
	RunE:  runUpdate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version of the live database",
	Args:  cobra.NoArgs,
	RunE:  runVersion,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&modelPath, "model", "model.snapshot", "Path to the model snapshot file")

	snapshotCmd.Flags().StringVar(&outputDir, "output-dir", ".", "Output directory for snapshots")
	createModelCmd.Flags().BoolVar(&declarative, "declarative", false, "Render class-based declarative style")
	scriptCmd.Flags().StringVar(&repositoryDir, "repository", "./migrations", "Migration script repository directory")
	updateCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Apply without confirmation")

	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(createModelCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func connect(log *zap.Logger) (database.Dialect, database.Config, error) {
	config, err := database.LoadConfig()
	if err != nil {
		return nil, config, fmt.Errorf("failed to load config: %w", err)
	}
	dialect, err := database.NewDialect(config, log)
	if err != nil {
		return nil, config, err
	}
	if err := dialect.Connect(); err != nil {
		return nil, config, fmt.Errorf("failed to connect to database: %w", err)
	}
	return dialect, config, nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	dialect, config, err := connect(log)
	if err != nil {
		return err
	}
	defer dialect.Close()

	var filename string
	if len(args) > 0 {
		filename = args[0]
		if !strings.HasSuffix(filename, ".snapshot") {
			filename += ".snapshot"
		}
	} else {
		timestamp := time.Now().Format("2006-01-02-15-04-05")
		filename = fmt.Sprintf("%s-%s.snapshot", config.Database, timestamp)
	}
	outputPath := filepath.Join(outputDir, filename)

	snap, err := dialect.Reflect(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to reflect database: %w", err)
	}

	if err := snapshot.Save(snap, outputPath, config.Type); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	fmt.Printf("Snapshot created: %s (%d tables)\n", outputPath, len(snap.Tables))
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	report, dialect, err := compareModel(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer dialect.Close()

	diff.Display(report)
	return nil
}

func runCreateModel(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	dialect, _, err := connect(log)
	if err != nil {
		return err
	}
	defer dialect.Close()

	dbSnap, err := dialect.Reflect(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to reflect database: %w", err)
	}

	// an empty model makes every database table a missing-in-model table
	report := diff.Compare(&schema.Snapshot{}, dbSnap)
	gen := generator.NewModelGenerator(declarative)
	fmt.Println(gen.Model(report))
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	report, dialect, err := compareModel(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer dialect.Close()

	if report.Empty() {
		fmt.Println("Model and database schemas match; nothing to generate.")
		return nil
	}

	gen := generator.NewModelGenerator(false)
	decls, upgrade, downgrade := gen.UpgradeDowngrade(report)

	repo, err := repository.New(afero.NewOsFs(), repositoryDir)
	if err != nil {
		return err
	}
	script, err := repo.Create(args[0], decls, upgrade, downgrade)
	if err != nil {
		return fmt.Errorf("failed to create script: %w", err)
	}

	fmt.Printf("Created migration script %03d: %s\n", script.Version, script.Path)
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	report, dialect, err := compareModel(cmd.Context(), log)
	if err != nil {
		return err
	}
	defer dialect.Close()

	if report.Empty() {
		fmt.Println("Model and database schemas match; nothing to apply.")
		return nil
	}

	diff.Display(report)
	if !assumeYes && !confirm("Apply these changes to the live database?") {
		fmt.Println("Aborted.")
		return nil
	}

	applier := apply.New(dialect, log)
	if err := applier.Apply(cmd.Context(), report); err != nil {
		return fmt.Errorf("failed to apply changes: %w", err)
	}

	if err := recordVersion(cmd.Context(), dialect); err != nil {
		return err
	}

	fmt.Println("Database updated.")
	return nil
}

func runVersion(cmd *cobra.Command, args []string) error {
	log := newLogger()
	defer log.Sync()

	dialect, _, err := connect(log)
	if err != nil {
		return err
	}
	defer dialect.Close()

	manager := history.NewManager(dialect.DB(), dialect.Name())
	if err := manager.InitTable(cmd.Context()); err != nil {
		return err
	}
	version, err := manager.Current(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Current schema version: %d\n", version)
	return nil
}

// compareModel loads the model snapshot, reflects the live database and
// diffs the two
func compareModel(ctx context.Context, log *zap.Logger) (*diff.Report, database.Dialect, error) {
	modelSnap, err := snapshot.Load(modelPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load model snapshot: %w", err)
	}

	dialect, _, err := connect(log)
	if err != nil {
		return nil, nil, err
	}

	dbSnap, err := dialect.Reflect(ctx)
	if err != nil {
		dialect.Close()
		return nil, nil, fmt.Errorf("failed to reflect database: %w", err)
	}

	return diff.Compare(modelSnap, dbSnap), dialect, nil
}

func recordVersion(ctx context.Context, dialect database.Dialect) error {
	manager := history.NewManager(dialect.DB(), dialect.Name())
	if err := manager.InitTable(ctx); err != nil {
		return err
	}
	current, err := manager.Current(ctx)
	if err != nil {
		return err
	}
	checksum, err := history.FileChecksum(modelPath)
	if err != nil {
		return err
	}
	return manager.Record(ctx, &history.Record{
		Version:   current + 1,
		Name:      "update_db_from_model",
		AppliedAt: time.Now(),
		Checksum:  checksum,
	})
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
