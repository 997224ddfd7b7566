// Package postgres implements account.Repository on PostgreSQL through
// database/sql and the pgx stdlib driver. Schema changes ship as embedded goose
// migrations; call [Migrate] once at startup.
package postgres
