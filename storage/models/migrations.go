package models

import (
	"fmt"
	"gorm.io/gorm"
)

type migration struct {
	apply  func(db *gorm.DB) error
	revert func(db *gorm.DB) error
}

var tables = []interface{}{&Post{}, &Commentary{}, &LabAddress{}, &LabLocation{}}

var migrations = []migration{
	// 001
	{
		apply: func(db *gorm.DB) error {
			for _, table := range tables {
				if !db.Migrator().HasTable(table) {
					err := db.Migrator().CreateTable(table)
					if err != nil {
						return err
					}
				}
			}

			return nil
		},
		revert: func(db *gorm.DB) error {
			for i := len(tables) - 1; i >= 0; i-- {
				err := db.Migrator().DropTable(tables[i])
				if err != nil {
					return err
				}
			}

			return nil
		},
	},
}

// Migrate applies migrations up to toIndex, or all of them when toIndex is
// nil. Applying is idempotent.
func Migrate(db *gorm.DB, toIndex *int) error {
	limit, err := migrationLimit(toIndex)
	if err != nil {
		return err
	}
	for i := 0; i < limit; i++ {
		if err := migrations[i].apply(db); err != nil {
			return fmt.Errorf("apply migration %03d: %w", i+1, err)
		}
	}
	return nil
}

// Revert undoes migrations down from toIndex, or all of them when toIndex is nil.
func Revert(db *gorm.DB, toIndex *int) error {
	limit, err := migrationLimit(toIndex)
	if err != nil {
		return err
	}
	for i := limit - 1; i >= 0; i-- {
		if err := migrations[i].revert(db); err != nil {
			return fmt.Errorf("revert migration %03d: %w", i+1, err)
		}
	}
	return nil
}

func migrationLimit(toIndex *int) (int, error) {
	if toIndex == nil {
		return len(migrations), nil
	}
	if *toIndex < 0 || *toIndex > len(migrations) {
		return 0, fmt.Errorf("migration index %d out of range [0, %d]", *toIndex, len(migrations))
	}
	return *toIndex, nil
}
