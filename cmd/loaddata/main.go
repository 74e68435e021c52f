// Command loaddata fills the tag and ingredient catalogs from CSV files.
// Rows that already exist are skipped, so the command can be rerun.
//
//	loaddata -ingredients ingredients.csv -tags tags.csv
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/config"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db"
	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/service"
)

func main() {
	ingredientsPath := flag.String("ingredients", "", "CSV file with name,measurement_unit rows")
	tagsPath := flag.String("tags", "", "CSV file with name,color,slug rows")
	flag.Parse()

	l, _ := zap.NewProduction()
	logger := l.Sugar()
	defer func() { _ = logger.Sync() }()

	if err := run(context.Background(), logger, *ingredientsPath, *tagsPath); err != nil {
		logger.Fatalw("load failed", "error", err)
	}
}

func run(ctx context.Context, logger *zap.SugaredLogger, ingredientsPath, tagsPath string) error {
	if ingredientsPath == "" && tagsPath == "" {
		return errors.New("nothing to load, pass -ingredients and/or -tags")
	}

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	gdb, err := db.NewGormClient(cfg, logger)
	if err != nil {
		return err
	}
	catalog := service.NewCatalog(gdb, logger)

	if ingredientsPath != "" {
		records, err := readCSV(ingredientsPath, 2)
		if err != nil {
			return err
		}
		rows := make([]db.Ingredient, 0, len(records))
		for _, r := range records {
			rows = append(rows, db.Ingredient{Name: r[0], MeasurementUnit: r[1]})
		}
		res, err := catalog.ImportIngredients(ctx, rows)
		if err != nil {
			return errors.Wrap(err, "import ingredients")
		}
		logger.Infow("ingredients loaded", "created", res.Created, "skipped", res.Skipped)
	}

	if tagsPath != "" {
		records, err := readCSV(tagsPath, 3)
		if err != nil {
			return err
		}
		rows := make([]db.Tag, 0, len(records))
		for _, r := range records {
			rows = append(rows, db.Tag{Name: r[0], Color: r[1], Slug: r[2]})
		}
		res, err := catalog.ImportTags(ctx, rows)
		if err != nil {
			return errors.Wrap(err, "import tags")
		}
		logger.Infow("tags loaded", "created", res.Created, "skipped", res.Skipped)
	}
	return nil
}

// readCSV returns the trimmed records of path. Every record must carry
// exactly fields columns.
func readCSV(path string, fields int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseCSV(f, fields)
}

func parseCSV(r io.Reader, fields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "parse csv")
	}
	for _, rec := range records {
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
	}
	return records, nil
}
