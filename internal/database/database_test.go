// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dududaa/ppdrive/internal/pperr"
)

func openSqlite(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "db.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		dialect Dialect
		driver  string
		dsn     string
		wantErr string
	}{
		{name: "sqlite", url: "sqlite://db.sqlite", dialect: DialectSqlite, driver: "sqlite3", dsn: "db.sqlite"},
		{name: "postgres", url: "postgres://u:p@localhost:5432/ppd", dialect: DialectPostgres, driver: "pgx", dsn: "postgres://u:p@localhost:5432/ppd"},
		{name: "postgresql alias", url: "postgresql://localhost/ppd", dialect: DialectPostgres, driver: "pgx", dsn: "postgresql://localhost/ppd"},
		{name: "mysql", url: "mysql://u:p@localhost:3306/ppd", dialect: DialectMysql, driver: "mysql", dsn: "u:p@tcp(localhost:3306)/ppd"},
		{name: "mssql", url: "mssql://sa:p@localhost:1433?database=ppd", dialect: DialectMssql, driver: "sqlserver", dsn: "sqlserver://sa:p@localhost:1433?database=ppd"},
		{name: "mongodb", url: "mongodb://localhost/ppd", wantErr: "unsupported database type"},
		{name: "no scheme", url: "db.sqlite", wantErr: "invalid database url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialect, driver, dsn, err := resolve(tt.url)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, pperr.KindConfiguration, pperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, dialect)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.dsn, dsn)
		})
	}
}

func TestOpenUnsupportedScheme(t *testing.T) {
	_, err := Open(context.Background(), "mongodb://localhost/ppd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.sqlite")
	url := "sqlite://" + path

	db, err := Open(context.Background(), url)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// A second open runs goose against an already-migrated store.
	db, err = Open(context.Background(), url)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.InsertClient(context.Background(), "key-1", "Alice", nil)
	assert.NoError(t, err)
}

func TestClientCRUD(t *testing.T) {
	ctx := context.Background()
	db := openSqlite(t)

	maxBucket := 12.5
	id, err := db.InsertClient(ctx, "key-1", "Alice", &maxBucket)
	require.NoError(t, err)
	require.NotZero(t, id)

	t.Run("by key", func(t *testing.T) {
		client, err := db.ClientByKey(ctx, "key-1")
		require.NoError(t, err)
		assert.Equal(t, id, client.ID)
		assert.Equal(t, "Alice", client.Name)
		require.NotNil(t, client.MaxBucketSize)
		assert.InDelta(t, 12.5, *client.MaxBucketSize, 0.001)
	})

	t.Run("by id", func(t *testing.T) {
		client, err := db.ClientByID(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "key-1", client.Key)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := db.ClientByKey(ctx, "nope")
		assert.ErrorIs(t, err, ErrClientNotFound)
	})

	t.Run("invalid id text", func(t *testing.T) {
		_, err := db.ClientByID(ctx, "bogus-key")
		require.Error(t, err)
		assert.Equal(t, pperr.KindAuthorization, pperr.KindOf(err))
	})

	t.Run("duplicate key refused", func(t *testing.T) {
		_, err := db.InsertClient(ctx, "key-1", "Mallory", nil)
		require.Error(t, err)
		assert.Equal(t, pperr.KindDatabase, pperr.KindOf(err))
	})

	t.Run("update key", func(t *testing.T) {
		require.NoError(t, db.UpdateClientKey(ctx, id, "key-2"))

		_, err := db.ClientByKey(ctx, "key-1")
		assert.ErrorIs(t, err, ErrClientNotFound)

		client, err := db.ClientByKey(ctx, "key-2")
		require.NoError(t, err)
		assert.Equal(t, id, client.ID)
	})

	t.Run("update unknown id", func(t *testing.T) {
		err := db.UpdateClientKey(ctx, 9999, "key-3")
		assert.ErrorIs(t, err, ErrClientNotFound)
	})

	t.Run("list", func(t *testing.T) {
		_, err := db.InsertClient(ctx, "key-b", "Bob", nil)
		require.NoError(t, err)

		clients, err := db.ListClients(ctx)
		require.NoError(t, err)
		require.Len(t, clients, 2)
		assert.Equal(t, "Alice", clients[0].Name)
		assert.Equal(t, "Bob", clients[1].Name)
		assert.Nil(t, clients[1].MaxBucketSize)
	})
}

func TestRebind(t *testing.T) {
	query := "SELECT id FROM clients WHERE key = ? AND name = ?"

	pg := &DB{dialect: DialectPostgres}
	assert.Equal(t, "SELECT id FROM clients WHERE key = $1 AND name = $2", pg.rebind(query))

	ms := &DB{dialect: DialectMssql}
	assert.Equal(t, "SELECT id FROM clients WHERE key = @p1 AND name = @p2", ms.rebind(query))

	lite := &DB{dialect: DialectSqlite}
	assert.Equal(t, query, lite.rebind(query))
}

func TestMysqlDSN(t *testing.T) {
	dsn, err := mysqlDSN("mysql://root@localhost/ppd?parseTime=true")
	require.NoError(t, err)
	assert.Equal(t, "root@tcp(localhost)/ppd?parseTime=true", dsn)

	dsn, err = mysqlDSN("mysql:///ppd")
	require.NoError(t, err)
	assert.Equal(t, "tcp(127.0.0.1:3306)/ppd", dsn)
}
