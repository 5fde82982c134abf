package changelog

import (
	"fmt"

	"github.com/aqasim81/schemagate/internal/parser"
)

// splitPostgres splits sql into statements with the Postgres parser. A parse
// failure means the change set can never apply, so it is reported before
// anything runs.
func splitPostgres(sql string, allowNonTransactional bool) ([]string, error) {
	stmts, err := parser.Parse(sql)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(stmts))

	for _, stmt := range stmts {
		if stmt.NonTransactional != "" && !allowNonTransactional {
			return nil, fmt.Errorf("%w: %s", ErrNonTransactional, stmt.NonTransactional)
		}

		out = append(out, stmt.SQL)
	}

	return out, nil
}
