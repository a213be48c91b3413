package db

import (
	types "github.com/yungbote/lookbook-backend/internal/domain"
)

func (s *PostgresService) AutoMigrateAll() error {
	return s.db.AutoMigrate(
		&types.Interaction{},
		&types.StyleProfile{},
		&types.ProductAnalytics{},
		&types.Product{},
		&types.JobRun{},
	)
}
