// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dududaa/ppdrive/internal/pperr"
)

// ErrClientNotFound reports a lookup that matched no client row.
var ErrClientNotFound = pperr.New(pperr.KindAuthorization, "client not found")

// ClientRecord is one persisted client identity. Key never leaves the
// manager process except inside the encrypted token.
type ClientRecord struct {
	ID            uint64
	Key           string
	Name          string
	MaxBucketSize *float64
}

// InsertClient persists a new client row and returns the assigned id.
func (db *DB) InsertClient(ctx context.Context, key, name string, maxBucketSize *float64) (uint64, error) {
	switch db.dialect {
	case DialectMysql:
		res, err := db.ExecContext(ctx,
			db.rebind("INSERT INTO clients (`key`, name, max_bucket_size) VALUES (?, ?, ?)"),
			key, name, maxBucketSize)
		if err != nil {
			return 0, pperr.Wrapf(pperr.KindDatabase, err, "insert client")
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, pperr.Wrapf(pperr.KindDatabase, err, "read inserted client id")
		}
		return uint64(id), nil
	case DialectMssql:
		var id uint64
		err := db.QueryRowContext(ctx,
			db.rebind("INSERT INTO clients ([key], name, max_bucket_size) OUTPUT INSERTED.id VALUES (?, ?, ?)"),
			key, name, maxBucketSize).Scan(&id)
		if err != nil {
			return 0, pperr.Wrapf(pperr.KindDatabase, err, "insert client")
		}
		return id, nil
	default:
		// sqlite (3.35+) and postgres both support RETURNING.
		var id uint64
		err := db.QueryRowContext(ctx,
			db.rebind("INSERT INTO clients (key, name, max_bucket_size) VALUES (?, ?, ?) RETURNING id"),
			key, name, maxBucketSize).Scan(&id)
		if err != nil {
			return 0, pperr.Wrapf(pperr.KindDatabase, err, "insert client")
		}
		return id, nil
	}
}

// ClientByKey looks a client up by its opaque key.
func (db *DB) ClientByKey(ctx context.Context, key string) (*ClientRecord, error) {
	query := fmt.Sprintf("SELECT id, %s, name, max_bucket_size FROM clients WHERE %s = ?",
		db.quoteKey(), db.quoteKey())
	return db.scanClient(db.QueryRowContext(ctx, db.rebind(query), key))
}

// ClientByID looks a client up by its database-assigned id. The id
// arrives from the wire as text.
func (db *DB) ClientByID(ctx context.Context, clientID string) (*ClientRecord, error) {
	id, err := strconv.ParseUint(clientID, 10, 64)
	if err != nil {
		return nil, pperr.Newf(pperr.KindAuthorization, "invalid client id %q", clientID)
	}
	query := fmt.Sprintf("SELECT id, %s, name, max_bucket_size FROM clients WHERE id = ?", db.quoteKey())
	return db.scanClient(db.QueryRowContext(ctx, db.rebind(query), id))
}

// UpdateClientKey atomically replaces a client's key, invalidating
// every token derived from the previous one.
func (db *DB) UpdateClientKey(ctx context.Context, id uint64, newKey string) error {
	query := fmt.Sprintf("UPDATE clients SET %s = ? WHERE id = ?", db.quoteKey())
	res, err := db.ExecContext(ctx, db.rebind(query), newKey, id)
	if err != nil {
		return pperr.Wrapf(pperr.KindDatabase, err, "update client key")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrClientNotFound
	}
	return nil
}

// ListClients returns every stored client row.
func (db *DB) ListClients(ctx context.Context) ([]ClientRecord, error) {
	query := fmt.Sprintf("SELECT id, %s, name, max_bucket_size FROM clients ORDER BY id", db.quoteKey())
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, pperr.Wrapf(pperr.KindDatabase, err, "list clients")
	}
	defer rows.Close()

	var clients []ClientRecord
	for rows.Next() {
		var c ClientRecord
		var max sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.Key, &c.Name, &max); err != nil {
			return nil, pperr.Wrapf(pperr.KindDatabase, err, "scan client")
		}
		if max.Valid {
			c.MaxBucketSize = &max.Float64
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, pperr.Wrapf(pperr.KindDatabase, err, "list clients")
	}
	return clients, nil
}

func (db *DB) scanClient(row *sql.Row) (*ClientRecord, error) {
	var c ClientRecord
	var max sql.NullFloat64
	if err := row.Scan(&c.ID, &c.Key, &c.Name, &max); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, pperr.Wrapf(pperr.KindDatabase, err, "query client")
	}
	if max.Valid {
		c.MaxBucketSize = &max.Float64
	}
	return &c, nil
}

// quoteKey quotes the key column, which is reserved in mysql and
// mssql.
func (db *DB) quoteKey() string {
	switch db.dialect {
	case DialectMysql:
		return "`key`"
	case DialectMssql:
		return "[key]"
	default:
		return "key"
	}
}

// rebind rewrites ? placeholders into the dialect's native form.
func (db *DB) rebind(query string) string {
	switch db.dialect {
	case DialectPostgres, DialectMssql:
		var sb strings.Builder
		n := 0
		for _, r := range query {
			if r == '?' {
				n++
				if db.dialect == DialectPostgres {
					fmt.Fprintf(&sb, "$%d", n)
				} else {
					fmt.Fprintf(&sb, "@p%d", n)
				}
				continue
			}
			sb.WriteRune(r)
		}
		return sb.String()
	default:
		return query
	}
}
