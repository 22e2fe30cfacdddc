// Command migrate applies or inspects the versioned Postgres schema under
// migrations/ (goose SQL migrations). The sqlite/dev path never uses this
// binary -- it bootstraps via gorm.AutoMigrate at server startup instead
// (see cmd/server and internal/repo.AutoMigrate).
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type gooseFunc func(*sql.DB, string, ...goose.OptionsFunc) error

func main() {
	app := &cli.App{
		Name:  "migrate",
		Usage: "apply/inspect the messaging gateway's Postgres schema",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "postgres:// DSN; defaults to $DATABASE_URL",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "directory containing goose SQL migration files",
				Value: "migrations",
			},
		},
		Commands: []*cli.Command{
			{Name: "up", Usage: "apply all pending migrations", Action: runGoose(goose.Up)},
			{Name: "down", Usage: "roll back the most recent migration", Action: runGoose(goose.Down)},
			{Name: "status", Usage: "print migration status", Action: runGoose(goose.Status)},
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
}

func runGoose(fn gooseFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		db, err := sql.Open("pgx", c.String("database-url"))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		if err := goose.SetDialect("postgres"); err != nil {
			return fmt.Errorf("set dialect: %w", err)
		}
		return fn(db, c.String("dir"))
	}
}
