package di

import (
	"database/sql"
	"errors"
	"fmt"

	// registers the "postgres" driver
	_ "github.com/lib/pq"
)

// OpenDatabase opens a PostgreSQL handle for Config.DatabaseDSN. No connection is made
// until first use; wrap the handle with bun.NewDB to build go-repository-bun
// repositories for NewSQLService.
func (c *Container) OpenDatabase() (*sql.DB, error) {
	if c.config.DatabaseDSN == "" {
		return nil, errors.New("database_dsn: is required")
	}
	db, err := sql.Open("postgres", c.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	c.logger.Debug().Str("driver", "postgres").Msg("database handle opened")
	return db, nil
}
