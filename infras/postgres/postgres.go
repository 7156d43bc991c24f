package postgres

//nolint:revive
import (
	"fmt"
	"net"
	"net/url"
	"time"

	"hotel/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	driverName = "postgres"

	maxIdleConnections = 10
	maxOpenConnections = 20
	connMaxLifetime    = 30 * time.Minute
)

// Connection holds the read replica and the primary. Booking transactions and
// every FOR UPDATE lock go through Write.
type Connection struct {
	Read  *sqlx.DB
	Write *sqlx.DB
}

type endpoint struct {
	role     string
	host     string
	port     string
	username string
	password string
	dbName   string
	sslMode  string
	timezone string
}

func (e endpoint) dsn() string {
	query := url.Values{}
	query.Set("sslmode", e.sslMode)

	if e.timezone != "" {
		query.Set("timezone", e.timezone)
	}

	dsn := url.URL{
		Scheme:   driverName,
		User:     url.UserPassword(e.username, e.password),
		Host:     net.JoinHostPort(e.host, e.port),
		Path:     e.dbName,
		RawQuery: query.Encode(),
	}

	return dsn.String()
}

func New(cfg *config.Config) *Connection {
	pg := cfg.DB.Postgres

	read := endpoint{
		role:     "read",
		host:     pg.Read.Host,
		port:     pg.Read.Port,
		username: pg.Read.Username,
		password: pg.Read.Password,
		dbName:   pg.Prefix + pg.Read.Name,
		sslMode:  pg.Read.SSLMode,
		timezone: pg.Read.Timezone,
	}

	write := endpoint{
		role:     "write",
		host:     pg.Write.Host,
		port:     pg.Write.Port,
		username: pg.Write.Username,
		password: pg.Write.Password,
		dbName:   pg.Prefix + pg.Write.Name,
		sslMode:  pg.Write.SSLMode,
		timezone: pg.Write.Timezone,
	}

	return &Connection{
		Read:  connect(read, pg.MaxRetry, time.Duration(pg.RetryWaitTime)*time.Second),
		Write: connect(write, pg.MaxRetry, time.Duration(pg.RetryWaitTime)*time.Second),
	}
}

// Close releases both pools.
func (c *Connection) Close() error {
	var firstErr error

	for _, db := range []*sqlx.DB{c.Read, c.Write} {
		if db == nil {
			continue
		}

		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close postgres pool: %w", err)
		}
	}

	return firstErr
}

func connect(e endpoint, maxRetry int, wait time.Duration) *sqlx.DB {
	logger := log.With().
		Str("name", e.role).
		Str("host", e.host).
		Str("port", e.port).
		Str("dbName", e.dbName).
		Logger()

	for attempt := 1; attempt <= max(maxRetry, 1); attempt++ {
		db, err := sqlx.Connect(driverName, e.dsn())
		if err == nil {
			db.SetMaxIdleConns(maxIdleConnections)
			db.SetMaxOpenConns(maxOpenConnections)
			db.SetConnMaxLifetime(connMaxLifetime)

			logger.Info().Msg("Connected to database")

			return db
		}

		logger.Error().Err(err).Int("attempt", attempt).Msg("Failed connecting to database, retrying")

		time.Sleep(wait)
	}

	logger.Fatal().Msg("Giving up connecting to database")

	return nil
}
