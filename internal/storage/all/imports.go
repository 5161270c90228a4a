// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each backend, which register their
// factories with the storage package. After the import, storage.New accepts
// the kinds "postgres", "mysql", "mssql" and "sqlite".
//
// A binary that needs only a subset of backends can blank-import those
// packages directly instead.
package all

import (
	_ "musicetl/internal/storage/mssql"
	_ "musicetl/internal/storage/mysql"
	_ "musicetl/internal/storage/postgres"
	_ "musicetl/internal/storage/sqlite"
)
