package timezone

import (
	"sync"
	"time"

	"hotel/config"

	"github.com/rs/zerolog/log"
)

const defaultTimezone = "UTC"

//nolint:gochecknoglobals
var location = sync.OnceValue(func() *time.Location {
	return Load(config.Get().App.Timezone)
})

// Load resolves an IANA name, falling back to UTC.
func Load(name string) *time.Location {
	if name == "" {
		log.Warn().Msg("No timezone configured, using UTC as default")

		return time.UTC
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Error().
			Err(err).
			Str("timezone", name).
			Msg("Failed to load timezone, falling back to " + defaultTimezone)

		return time.UTC
	}

	log.Info().Str("timezone", loc.String()).Msg("Application timezone initialized")

	return loc
}

// Location returns the application timezone.
func Location() *time.Location {
	return location()
}

// Now returns the current time in the application timezone.
func Now() time.Time {
	return time.Now().In(Location())
}

// FromUnix converts unix seconds into a time in the application timezone.
func FromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).In(Location())
}

// FormatUnix formats unix seconds in the application timezone.
func FormatUnix(sec int64, layout string) string {
	return FromUnix(sec).Format(layout)
}
