// Package dbtest opens throwaway SQLite databases with the production schema.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/db"
)

var counter int64

// New returns a migrated in-memory database private to the test. The pool is
// pinned to one connection so SQLite never reports a locked table when tests
// exercise concurrent writers.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("file:dbtest_%d?mode=memory&cache=shared&_foreign_keys=on", atomic.AddInt64(&counter, 1))
	gdb, err := db.Open(sqlite.Open(name), logger.Default.LogMode(logger.Silent))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return gdb
}

func CreateUser(t *testing.T, gdb *gorm.DB, username string) *db.User {
	t.Helper()

	u := db.User{
		Email:     username + "@example.org",
		Username:  username,
		FirstName: username,
		LastName:  "Tester",
		Password:  "x",
	}
	require.NoError(t, gdb.Create(&u).Error)
	return &u
}

func CreateTag(t *testing.T, gdb *gorm.DB, name, color string) *db.Tag {
	t.Helper()

	tag := db.Tag{Name: name, Color: color, Slug: name}
	require.NoError(t, gdb.Create(&tag).Error)
	return &tag
}

func CreateIngredient(t *testing.T, gdb *gorm.DB, name, unit string) *db.Ingredient {
	t.Helper()

	ing := db.Ingredient{Name: name, MeasurementUnit: unit}
	require.NoError(t, gdb.Create(&ing).Error)
	return &ing
}
