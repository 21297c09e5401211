// Package cfgdb exports flow graphs to a SQLite database.
//
// The database has one row per graph in units, one row per peer in peers
// and one row per edge in edges. Peers are identified by (unit, idx), where
// idx is the peer index in its graph.
package cfgdb

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/nickng/flowcheck/cfg"
	"github.com/nickng/flowcheck/term"
)

const schema = `
CREATE TABLE units (
    id INTEGER PRIMARY KEY,
    description TEXT NOT NULL,
    file TEXT,
    line INTEGER,
    forward INTEGER NOT NULL
);

CREATE TABLE peers (
    unit INTEGER NOT NULL,
    idx INTEGER NOT NULL,
    kind TEXT NOT NULL,
    description TEXT NOT NULL,
    file TEXT,
    line INTEGER,
    col INTEGER,
    path TEXT,
    PRIMARY KEY (unit, idx)
);

CREATE TABLE edges (
    unit INTEGER NOT NULL,
    source INTEGER NOT NULL,
    target INTEGER NOT NULL,
    key TEXT NOT NULL
);
`

// Write replaces the database at path with the given graphs.
func Write(path string, graphs []*cfg.Graph) (err error) {
	_ = os.Remove(path)

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite)
	if err != nil {
		return errors.Wrap(err, "open sqlite")
	}
	defer func() { _ = conn.Close() }()

	if err := sqlitex.ExecuteTransient(conn, "PRAGMA synchronous = NORMAL", nil); err != nil {
		return err
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return errors.Wrap(err, "create tables")
	}

	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer endFn(&err)

	for i, g := range graphs {
		if err := insertUnit(conn, i, g); err != nil {
			return err
		}
		if err := insertPeers(conn, i, g); err != nil {
			return err
		}
		if err := insertEdges(conn, i, g); err != nil {
			return err
		}
	}
	return nil
}

func insertUnit(conn *sqlite.Conn, id int, g *cfg.Graph) error {
	stmt, err := conn.Prepare(`INSERT INTO units (id, description, file, line, forward) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare unit insert")
	}
	defer func() { _ = stmt.Finalize() }()

	pos := g.Root().Position()
	stmt.BindInt64(1, int64(id))
	stmt.BindText(2, term.Describe(g.Root()))
	stmt.BindText(3, pos.File)
	stmt.BindInt64(4, int64(pos.Line))
	stmt.BindBool(5, g.Forward())
	if _, err := stmt.Step(); err != nil {
		return errors.Wrapf(err, "insert unit %d", id)
	}
	return nil
}

func insertPeers(conn *sqlite.Conn, unit int, g *cfg.Graph) error {
	stmt, err := conn.Prepare(`INSERT INTO peers (unit, idx, kind, description, file, line, col, path) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare peer insert")
	}
	defer func() { _ = stmt.Finalize() }()

	for _, p := range g.Peers() {
		pos := p.Term.Position()
		stmt.BindInt64(1, int64(unit))
		stmt.BindInt64(2, int64(p.Index))
		stmt.BindText(3, kind(p.Term))
		stmt.BindText(4, term.Describe(p.Term))
		stmt.BindText(5, pos.File)
		stmt.BindInt64(6, int64(pos.Line))
		stmt.BindInt64(7, int64(pos.Col))
		if len(p.Path) > 0 {
			stmt.BindText(8, pathString(p.Path))
		} else {
			stmt.BindNull(8)
		}
		if _, err := stmt.Step(); err != nil {
			return errors.Wrapf(err, "insert peer %v", p)
		}
		_ = stmt.Reset()
	}
	return nil
}

func insertEdges(conn *sqlite.Conn, unit int, g *cfg.Graph) error {
	stmt, err := conn.Prepare(`INSERT INTO edges (unit, source, target, key) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "prepare edge insert")
	}
	defer func() { _ = stmt.Finalize() }()

	for _, p := range g.Peers() {
		for _, e := range p.Succs {
			stmt.BindInt64(1, int64(unit))
			stmt.BindInt64(2, int64(p.Index))
			stmt.BindInt64(3, int64(e.Peer.Index))
			stmt.BindText(4, e.Key.String())
			if _, err := stmt.Step(); err != nil {
				return errors.Wrapf(err, "insert edge %v -> %v", p, e.Peer)
			}
			_ = stmt.Reset()
		}
	}
	return nil
}

// kind returns the node kind of t, such as "If".
func kind(t term.Term) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", t), "*term.")
}

func pathString(path []term.Term) string {
	var parts []string
	for _, t := range path {
		parts = append(parts, fmt.Sprintf("%s@%s", term.Describe(t), t.Position()))
	}
	return strings.Join(parts, " / ")
}

// Summary is the number of rows in each table of an exported database.
type Summary struct {
	Units, Peers, Edges int
}

// Summarise counts the rows of the database at path.
func Summarise(path string) (Summary, error) {
	var s Summary
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return s, errors.Wrap(err, "open sqlite")
	}
	defer func() { _ = conn.Close() }()

	for _, c := range []struct {
		table string
		n     *int
	}{{"units", &s.Units}, {"peers", &s.Peers}, {"edges", &s.Edges}} {
		n := c.n
		err := sqlitex.ExecuteTransient(conn, "SELECT count(*) FROM "+c.table, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				*n = stmt.ColumnInt(0)
				return nil
			},
		})
		if err != nil {
			return s, errors.Wrapf(err, "count %s", c.table)
		}
	}
	return s, nil
}

// EdgeKeys returns the number of edges exported with each key.
func EdgeKeys(path string) (map[string]int, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	defer func() { _ = conn.Close() }()

	keys := make(map[string]int)
	err = sqlitex.ExecuteTransient(conn, "SELECT key, count(*) FROM edges GROUP BY key", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			keys[stmt.ColumnText(0)] = stmt.ColumnInt(1)
			return nil
		},
	})
	return keys, errors.Wrap(err, "count edge keys")
}
