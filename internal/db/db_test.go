package db

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mcourse/internal/config"
)

func TestBuildDSN(t *testing.T) {
	require.Equal(t, "postgres://u@h/db", BuildDSN(config.DatabaseConfig{DSN: "postgres://u@h/db", Host: "ignored"}))
	require.Equal(t,
		"host=db port=5432 user=mc password=pw dbname=mcourse sslmode=disable",
		BuildDSN(config.DatabaseConfig{Host: "db", User: "mc", Password: "pw", DBName: "mcourse"}),
	)
	require.Equal(t,
		"host=db port=6543 user=mc password= dbname=x sslmode=require",
		BuildDSN(config.DatabaseConfig{Host: "db", Port: 6543, User: "mc", DBName: "x", SSLMode: "require"}),
	)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(entries), 2)
}
