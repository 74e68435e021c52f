package db

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/config"
)

func NewGormClient(cfg *config.Config, l *zap.SugaredLogger) (*gorm.DB, error) {
	newLogger := logger.New(zap.NewStdLog(l.Desugar()), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLogLevel(cfg.ZapLevel()),
		Colorful:                  false,
		IgnoreRecordNotFoundError: true,
	})

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DBName + "?_foreign_keys=on")
	default:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		dialector = postgres.Open(dsn)
	}

	db, err := Open(dialector, newLogger)
	if err != nil {
		return nil, err
	}
	l.Infow("database ready", "driver", cfg.DBDriver, "name", cfg.DBName)

	return db, nil
}

// Open connects through the given dialector, registers the recipe_tags join
// model and migrates the schema.
func Open(dialector gorm.Dialector, l logger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         l,
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err := db.SetupJoinTable(&Recipe{}, "Tags", &RecipeTag{}); err != nil {
		return nil, errors.Wrap(err, "setup recipe_tags join table")
	}

	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			return nil, errors.Wrapf(err, "migrate %T", model)
		}
	}

	return db, nil
}

func gormLogLevel(lvl zapcore.Level) logger.LogLevel {
	switch {
	case lvl <= zapcore.DebugLevel:
		return logger.Info
	case lvl <= zapcore.WarnLevel:
		return logger.Warn
	default:
		return logger.Error
	}
}
