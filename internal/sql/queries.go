package sql

import (
	"embed"
)

// Migrations holds the schema DDL applied by db.ApplyMigrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/delete_runs_for_log.sql
var DeleteRunsForLog string

//go:embed queries/insert_run.sql
var InsertRun string

//go:embed queries/select_run.sql
var SelectRun string

//go:embed queries/select_url_stats.sql
var SelectURLStats string

//go:embed queries/count_runs_for_log.sql
var CountRunsForLog string
