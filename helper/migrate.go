package helper

//nolint:revive
import (
	"errors"
	"fmt"
	"net"
	"net/url"

	"hotel/config"
	"hotel/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

type Action string

const (
	ActionUp     Action = "up"
	ActionDown   Action = "down"
	ActionStepUp Action = "step-up"
	ActionDrop   Action = "drop"
)

var actions = map[Action]struct {
	run     func(*migrate.Migrate) error
	success string
}{
	ActionUp:     {run: (*migrate.Migrate).Up, success: "Database migrations completed successfully"},
	ActionDown:   {run: func(m *migrate.Migrate) error { return m.Steps(-1) }, success: "Rolled back the last migration"},
	ActionStepUp: {run: func(m *migrate.Migrate) error { return m.Steps(1) }, success: "Applied the next migration"},
	ActionDrop:   {run: (*migrate.Migrate).Down, success: "Rolled back every migration"},
}

func databaseURL(cfg *config.Config) string {
	pg := cfg.DB.Postgres

	query := url.Values{}
	query.Set("sslmode", pg.Write.SSLMode)

	if pg.MigrationTable != "" {
		query.Set("x-migrations-table", pg.MigrationTable)
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(pg.Write.Username, pg.Write.Password),
		Host:     net.JoinHostPort(pg.Write.Host, pg.Write.Port),
		Path:     pg.Prefix + pg.Write.Name,
		RawQuery: query.Encode(),
	}

	return dsn.String()
}

func newMigrate(cfg *config.Config) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.Postgres, migrations.PostgresDir)
	if err != nil {
		return nil, fmt.Errorf("error opening embedded migrations: %w", err)
	}

	mig, err := migrate.NewWithSourceInstance("iofs", source, databaseURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("error creating migrate instance: %w", err)
	}

	return mig, nil
}

// Runner applies action against the write database. Having nothing to do is
// not an error.
func Runner(cfg *config.Config, action Action) error {
	step, ok := actions[action]
	if !ok {
		return fmt.Errorf("unknown migration action %q", action) //nolint:err113
	}

	mig, err := newMigrate(cfg)
	if err != nil {
		return err
	}

	defer func() {
		srcErr, dbErr := mig.Close()
		if srcErr != nil || dbErr != nil {
			log.Error().AnErr("source", srcErr).AnErr("database", dbErr).Msg("failed to close migrate instance")
		}
	}()

	if err := step.run(mig); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running %s migrations: %w", action, err)
	}

	version, dirty, err := mig.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("error reading migration version: %w", err)
	}

	log.Info().Uint("version", version).Bool("dirty", dirty).Msg(step.success)

	return nil
}

func Up(cfg *config.Config) error {
	return Runner(cfg, ActionUp)
}
