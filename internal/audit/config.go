package audit

import (
	"context"

	"github.com/johnayoung/legal-consensus/internal/config"
)

// FromConfig builds the sinks selected by cfg. The returned close function
// releases any database pool and is never nil. When the database cannot be
// reached the file sink is still returned alongside the error.
func FromConfig(ctx context.Context, cfg config.AuditConfig) (Sink, func(), error) {
	noop := func() {}
	if cfg.Disabled {
		return Discard{}, noop, nil
	}

	var sinks Multi
	if cfg.Dir != "" {
		sinks = append(sinks, NewFileSink(cfg.Dir))
	}

	closeFn := noop
	var connErr error
	if url := cfg.DatabaseURLOrEnv(); url != "" {
		pg, err := ConnectPostgres(ctx, url)
		if err != nil {
			connErr = err
		} else {
			sinks = append(sinks, pg)
			closeFn = pg.Close
		}
	}

	switch len(sinks) {
	case 0:
		return Discard{}, closeFn, connErr
	case 1:
		return sinks[0], closeFn, connErr
	default:
		return sinks, closeFn, connErr
	}
}
