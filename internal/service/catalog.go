package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db"
)

// Catalog serves the read-only tag and ingredient dictionaries and their
// bulk import.
type Catalog struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewCatalog(db *gorm.DB, l *zap.SugaredLogger) *Catalog {
	return &Catalog{
		db:     db,
		logger: l,
	}
}

var colorValidator = validator.New()

// ImportResult counts rows created and rows skipped as already present.
type ImportResult struct {
	Created int64
	Skipped int64
}

func (s *Catalog) ListTags(ctx context.Context) ([]db.Tag, error) {
	tags := make([]db.Tag, 0)
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, errors.Wrap(err, "find tags")
	}
	return tags, nil
}

func (s *Catalog) GetTag(ctx context.Context, id uint64) (*db.Tag, error) {
	tag := db.Tag{}
	if err := s.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, notFound(err, "tag", "tag not found")
	}
	return &tag, nil
}

// ListIngredients returns ingredients whose name starts with prefix, ignoring
// case, ordered by name.
func (s *Catalog) ListIngredients(ctx context.Context, prefix string) ([]db.Ingredient, error) {
	q := s.db.WithContext(ctx).Order("name").Order("measurement_unit")
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, escapeLike(strings.ToLower(prefix))+"%")
	}

	ingredients := make([]db.Ingredient, 0)
	if err := q.Find(&ingredients).Error; err != nil {
		return nil, errors.Wrap(err, "find ingredients")
	}
	return ingredients, nil
}

func (s *Catalog) GetIngredient(ctx context.Context, id uint64) (*db.Ingredient, error) {
	ing := db.Ingredient{}
	if err := s.db.WithContext(ctx).First(&ing, id).Error; err != nil {
		return nil, notFound(err, "ingredient", "ingredient not found")
	}
	return &ing, nil
}

// ImportIngredients inserts the rows that are not present yet.
func (s *Catalog) ImportIngredients(ctx context.Context, rows []db.Ingredient) (ImportResult, error) {
	return importRows(ctx, s.db, rows)
}

// ImportTags inserts the rows that are not present yet. A row colliding on
// any of name, color or slug is skipped. Nothing is imported if a color is
// not a hex color.
func (s *Catalog) ImportTags(ctx context.Context, rows []db.Tag) (ImportResult, error) {
	for i, t := range rows {
		if err := colorValidator.Var(t.Color, "required,hexcolor"); err != nil {
			return ImportResult{}, fieldErr("color", ErrInvalidColor, "row %d: %q is not a hex color", i+1, t.Color)
		}
	}
	return importRows(ctx, s.db, rows)
}

func importRows[T any](ctx context.Context, gdb *gorm.DB, rows []T) (ImportResult, error) {
	res := ImportResult{}
	err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			r := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows[i])
			if r.Error != nil {
				return errors.Wrapf(r.Error, "import row %d", i+1)
			}
			if r.RowsAffected == 0 {
				res.Skipped++
			} else {
				res.Created++
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
