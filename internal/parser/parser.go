// Package parser splits Postgres SQL into statements with the real Postgres
// parser and flags the ones that cannot run inside a transaction block.
package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Statement is one parsed statement and its source text.
type Statement struct {
	SQL  string
	Node *pg_query.Node

	// NonTransactional names the construct that forbids a transaction
	// block, e.g. "CREATE INDEX CONCURRENTLY". Empty when none does.
	NonTransactional string
}

// Parse parses sql and returns its statements in order. Empty or
// whitespace-only input yields no statements.
func Parse(sql string) ([]Statement, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, nil
	}

	tree, err := pg_query.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	stmts := make([]Statement, 0, len(tree.Stmts))

	for _, raw := range tree.Stmts {
		start := int(raw.StmtLocation)
		end := len(sql)

		// The last statement has no length when it lacks a trailing semicolon.
		if raw.StmtLen > 0 {
			end = start + int(raw.StmtLen)
		}

		text := strings.TrimSpace(sql[start:end])
		if text == "" {
			continue
		}

		stmts = append(stmts, Statement{
			SQL:              text,
			Node:             raw.GetStmt(),
			NonTransactional: nonTransactional(raw.GetStmt()),
		})
	}

	return stmts, nil
}

func nonTransactional(node *pg_query.Node) string {
	switch n := node.GetNode().(type) {
	case *pg_query.Node_IndexStmt:
		if n.IndexStmt.GetConcurrent() {
			return "CREATE INDEX CONCURRENTLY"
		}
	case *pg_query.Node_DropStmt:
		if n.DropStmt.GetConcurrent() {
			return "DROP INDEX CONCURRENTLY"
		}
	case *pg_query.Node_ReindexStmt:
		if hasOption(n.ReindexStmt.GetParams(), "concurrently") {
			return "REINDEX CONCURRENTLY"
		}
	case *pg_query.Node_VacuumStmt:
		if n.VacuumStmt.GetIsVacuumcmd() {
			return "VACUUM"
		}
	case *pg_query.Node_CreatedbStmt:
		return "CREATE DATABASE"
	case *pg_query.Node_DropdbStmt:
		return "DROP DATABASE"
	case *pg_query.Node_AlterSystemStmt:
		return "ALTER SYSTEM"
	}

	return ""
}

func hasOption(opts []*pg_query.Node, name string) bool {
	for _, opt := range opts {
		if de, ok := opt.GetNode().(*pg_query.Node_DefElem); ok && de.DefElem.GetDefname() == name {
			return true
		}
	}

	return false
}
