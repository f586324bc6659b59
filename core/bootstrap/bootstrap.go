// Package bootstrap prepares the infrastructure a bot needs before it runs.
package bootstrap

import (
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/creatorbot/core/config"
	coredatabase "github.com/m3rciful/creatorbot/core/database"
	"github.com/m3rciful/creatorbot/core/logger"
)

// Options select the infrastructure to prepare. The func fields replace the
// real steps in tests.
type Options struct {
	Config *coreconfig.Config
	// Database is nil when the bot runs without a SQL store.
	Database *coredatabase.Config
	// SkipMigrations leaves the schema untouched on startup.
	SkipMigrations bool

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result holds what Run opened.
type Result struct {
	DB *sqlx.DB
}

// Close releases the database pool, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

func (o Options) withDefaults() Options {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	return o
}

// Run configures logging first so later steps can log, then migrates the
// schema and opens the pool when a database is configured.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config")
	}
	opts = opts.withDefaults()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}
	db := opts.Database
	if db == nil {
		return &Result{}, nil
	}
	if !opts.SkipMigrations {
		if err := opts.Migrate(*db); err != nil {
			return nil, fmt.Errorf("bootstrap: migrations: %w", err)
		}
	}
	conn, err := opts.Connect(*db)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database: %w", err)
	}
	return &Result{DB: conn}, nil
}
