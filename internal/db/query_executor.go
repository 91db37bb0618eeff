package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// QueryExecutor runs units of work against the database.
type QueryExecutor struct {
	DB *gorm.DB
}

// NewQueryExecutor creates a new instance of QueryExecutor.
func NewQueryExecutor(db *gorm.DB) *QueryExecutor {
	return &QueryExecutor{DB: db}
}

// Transaction executes fn within a database transaction bound to ctx. The
// transaction rolls back when fn returns an error or panics.
func (qe *QueryExecutor) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return qe.DB.WithContext(ctx).Transaction(fn)
}

// Count returns the number of rows of model matching the given conditions.
func (qe *QueryExecutor) Count(ctx context.Context, model interface{}, conditions map[string]interface{}) (int64, error) {
	var count int64
	err := qe.DB.WithContext(ctx).Model(model).Where(conditions).Count(&count).Error
	return count, err
}

// Exists reports whether a row of model matches the conditions.
func (qe *QueryExecutor) Exists(ctx context.Context, model interface{}, conditions map[string]interface{}) (bool, error) {
	count, err := qe.Count(ctx, model, conditions)
	return count > 0, err
}

// Ping checks connectivity for the health check.
func (qe *QueryExecutor) Ping(ctx context.Context) error {
	sqlDB, err := qe.DB.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
