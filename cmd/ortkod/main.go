package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ortkod/internal/config"
	"ortkod/internal/logging"
	"ortkod/internal/pipeline"
	"ortkod/internal/refsheet"
	"ortkod/internal/storage"
)

// app holds the process wide dependencies. The database and the Sheets client
// are opened on first use so commands that need neither stay cheap.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	db     *storage.DB

	source   refsheet.Source
	importer *refsheet.Importer
}

func main() {
	a := &app{}
	defer a.close()

	rootCmd := &cobra.Command{
		Use:   "ortkod",
		Short: "Turn bill-of-materials spreadsheets into per-location label workbooks",
		Long: `ortkod reads an uploaded parts list, derives a product code for every row,
groups the rows by location and checks the codes against the reference list.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.AddCommand(
		newServeCmd(a),
		newProcessCmd(a),
		newOrtsCmd(a),
		newCheckCodesCmd(a),
		newImportCmd(a),
		newRunsCmd(a),
		newRulesCmd(a),
		newAbbreviationsCmd(a),
		newReplacementsCmd(a),
		newExclusionsCmd(a),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		a.close()
		os.Exit(1)
	}
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) database() (*storage.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := storage.Open(a.cfg.DBPath, a.cfg.DBTimeout)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

// sheets builds the Google Sheets client once. A client that cannot be built
// leaves the reference check failing open and imports rejected.
func (a *app) sheets(ctx context.Context) (refsheet.Source, *refsheet.Importer) {
	if a.source != nil {
		return a.source, a.importer
	}
	client, err := refsheet.NewClient(ctx, a.cfg)
	if err != nil {
		a.logger.Warn("google sheets client unavailable", zap.Error(err))
		a.source = refsheet.Unavailable{Err: err}
		a.importer = refsheet.NewImporter(nil)
		return a.source, a.importer
	}
	a.source = client
	a.importer = refsheet.NewImporter(client)
	return a.source, a.importer
}

func (a *app) validator(ctx context.Context) *refsheet.Validator {
	source, _ := a.sheets(ctx)
	return refsheet.NewValidator(source, a.cfg.SheetsTimeout, a.logger)
}

func (a *app) service(ctx context.Context) (*pipeline.Service, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	return pipeline.NewService(db, a.validator(ctx), db, a.logger), nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
