// Package mssql wraps database/sql sessions against SQL Server instances and
// exposes the Resource Governor catalog operations the migration commands
// consume: server description, governor state and pool/group enumeration, DDL
// scripting, drops, batch execution, and reconfigure.
package mssql
