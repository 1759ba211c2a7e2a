package migrations

import "embed"

// PostgresFS holds the closed-position schema migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the PnL sample timeseries migrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
