package engine

import (
	"context"
	"fmt"

	"github.com/aqasim81/schemagate/internal/database"
)

// Provider hands out connections. *database.Pool satisfies it.
type Provider interface {
	Conn(ctx context.Context) (*database.Conn, error)
}

// WithConnection acquires a connection from p, runs fn on a Context bound to
// it, and closes the connection exactly once however fn returns. A close
// failure is logged and never replaces fn's result.
func (e *Engine) WithConnection(
	ctx context.Context,
	p Provider,
	changelogRef string,
	contexts string,
	fn func(ctx context.Context, mc Context) (Result, error),
) (Result, error) {
	conn, err := p.Conn(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrConnectivity, err)

		return Failed(err, 0), err
	}

	defer func() {
		if cerr := conn.Close(); cerr != nil {
			e.log.WithError(cerr).Warn("An error occurred closing connection after migrations")
		}
	}()

	return fn(ctx, NewContext(conn, changelogRef, contexts))
}
