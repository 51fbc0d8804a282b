package libmysql

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

var (
	clientLib uintptr
	initOnce  sync.Once
	initErr   error
)

// MySQL client library function pointers - populated by purego
var (
	mysqlInit             func(mysql uintptr) uintptr
	mysqlOptions          func(mysql uintptr, option uint32, arg unsafe.Pointer) int32
	mysqlOptions4         func(mysql uintptr, option uint32, arg1, arg2 unsafe.Pointer) int32
	mysqlSSLSet           func(mysql uintptr, key, cert, ca, capath, cipher *byte) int32
	mysqlRealConnect      func(mysql uintptr, host, user, passwd, db *byte, port uint32, unixSocket *byte, clientFlag ulong) uintptr
	mysqlClose            func(mysql uintptr)
	mysqlPing             func(mysql uintptr) int32
	mysqlErrno            func(mysql uintptr) uint32
	mysqlError            func(mysql uintptr) string
	mysqlSqlstate         func(mysql uintptr) string
	mysqlRealQuery        func(mysql uintptr, stmt *byte, length ulong) int32
	mysqlStoreResult      func(mysql uintptr) uintptr
	mysqlUseResult        func(mysql uintptr) uintptr
	mysqlFreeResult       func(res uintptr)
	mysqlFetchRow         func(res uintptr) uintptr
	mysqlFetchLengths     func(res uintptr) uintptr
	mysqlFetchFields      func(res uintptr) uintptr
	mysqlNumFields        func(res uintptr) uint32
	mysqlNumRows          func(res uintptr) uint64
	mysqlFieldCount       func(mysql uintptr) uint32
	mysqlAffectedRows     func(mysql uintptr) uint64
	mysqlInsertID         func(mysql uintptr) uint64
	mysqlWarningCount     func(mysql uintptr) uint32
	mysqlThreadID         func(mysql uintptr) ulong
	mysqlCharacterSetName func(mysql uintptr) string
	mysqlSetCharacterSet  func(mysql uintptr, name *byte) int32
	mysqlEscapeQuote      func(mysql uintptr, to, from *byte, length ulong, quote byte) ulong
	mysqlHexString        func(to, from *byte, length ulong) ulong
	mysqlAutocommit       func(mysql uintptr, mode byte) byte
	mysqlCommit           func(mysql uintptr) byte
	mysqlRollback         func(mysql uintptr) byte
	mysqlChangeUser       func(mysql uintptr, user, passwd, db *byte) byte
	mysqlSelectDB         func(mysql uintptr, db *byte) int32
	mysqlResetConnection  func(mysql uintptr) int32
	mysqlRefresh          func(mysql uintptr, options uint32) int32
	mysqlShutdown         func(mysql uintptr, level uint32) int32
	mysqlStat             func(mysql uintptr) uintptr
	mysqlGetServerInfo    func(mysql uintptr) string
	mysqlGetServerVersion func(mysql uintptr) ulong
	mysqlGetClientInfo    func() string
	mysqlGetClientVersion func() ulong
	mysqlGetHostInfo      func(mysql uintptr) string
	mysqlGetProtoInfo     func(mysql uintptr) uint32
	mysqlGetSSLCipher     func(mysql uintptr) uintptr
	mysqlMoreResults      func(mysql uintptr) byte
	mysqlNextResult       func(mysql uintptr) int32
	mysqlBindParam        func(mysql uintptr, n uint32, binds *mysqlBind, names *uintptr) byte
	mysqlFindPlugin       func(mysql uintptr, name *byte, ptype int32) uintptr
	mysqlPluginOptions    func(plugin uintptr, option *byte, value unsafe.Pointer) int32

	mysqlStmtInit           func(mysql uintptr) uintptr
	mysqlStmtPrepare        func(stmt uintptr, q *byte, length ulong) int32
	mysqlStmtParamCount     func(stmt uintptr) ulong
	mysqlStmtBindParam      func(stmt uintptr, binds *mysqlBind) byte
	mysqlStmtExecute        func(stmt uintptr) int32
	mysqlStmtFetch          func(stmt uintptr) int32
	mysqlStmtFetchColumn    func(stmt uintptr, bind *mysqlBind, column uint32, offset ulong) int32
	mysqlStmtBindResult     func(stmt uintptr, binds *mysqlBind) byte
	mysqlStmtResultMetadata func(stmt uintptr) uintptr
	mysqlStmtErrno          func(stmt uintptr) uint32
	mysqlStmtError          func(stmt uintptr) string
	mysqlStmtSqlstate       func(stmt uintptr) string
	mysqlStmtClose          func(stmt uintptr) byte
	mysqlStmtFreeResult     func(stmt uintptr) byte
	mysqlStmtReset          func(stmt uintptr) byte
	mysqlStmtAffectedRows   func(stmt uintptr) uint64
	mysqlStmtNumRows        func(stmt uintptr) uint64
)

// getLibraryPath returns the platform-specific MySQL client library path.
// The LIBMYSQL_PATH environment variable can override the default path.
func getLibraryPath() string {
	if path := os.Getenv("LIBMYSQL_PATH"); path != "" {
		return path
	}

	switch runtime.GOOS {
	case "windows":
		return "libmysql.dll"
	case "darwin":
		paths := []string{
			"/opt/homebrew/opt/mysql-client/lib/libmysqlclient.dylib", // Apple Silicon Homebrew
			"/usr/local/opt/mysql-client/lib/libmysqlclient.dylib",    // Intel Homebrew
			"/opt/homebrew/lib/libmysqlclient.dylib",
			"/usr/local/lib/libmysqlclient.dylib",
		}
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		return "libmysqlclient.dylib" // Let purego search standard paths
	default:
		// Linux and other Unix-like systems
		return "libmysqlclient.so.21"
	}
}

// initClient loads the MySQL client library and registers all functions.
// If loading fails, set LIBMYSQL_PATH to specify a custom library location.
func initClient() error {
	initOnce.Do(func() {
		libPath := getLibraryPath()

		// Platform-specific loading (libmysql_unix.go and libmysql_windows.go)
		clientLib, initErr = loadClientLibrary(libPath)
		if initErr != nil {
			initErr = fmt.Errorf("failed to load MySQL client library %q: %w (set LIBMYSQL_PATH to override)", libPath, initErr)
			return
		}

		// Session management
		purego.RegisterLibFunc(&mysqlInit, clientLib, "mysql_init")
		purego.RegisterLibFunc(&mysqlOptions, clientLib, "mysql_options")
		purego.RegisterLibFunc(&mysqlOptions4, clientLib, "mysql_options4")
		purego.RegisterLibFunc(&mysqlSSLSet, clientLib, "mysql_ssl_set")
		purego.RegisterLibFunc(&mysqlRealConnect, clientLib, "mysql_real_connect")
		purego.RegisterLibFunc(&mysqlClose, clientLib, "mysql_close")
		purego.RegisterLibFunc(&mysqlPing, clientLib, "mysql_ping")
		purego.RegisterLibFunc(&mysqlChangeUser, clientLib, "mysql_change_user")
		purego.RegisterLibFunc(&mysqlSelectDB, clientLib, "mysql_select_db")
		purego.RegisterLibFunc(&mysqlResetConnection, clientLib, "mysql_reset_connection")
		purego.RegisterLibFunc(&mysqlRefresh, clientLib, "mysql_refresh")
		purego.RegisterLibFunc(&mysqlShutdown, clientLib, "mysql_shutdown")

		// Diagnostics
		purego.RegisterLibFunc(&mysqlErrno, clientLib, "mysql_errno")
		purego.RegisterLibFunc(&mysqlError, clientLib, "mysql_error")
		purego.RegisterLibFunc(&mysqlSqlstate, clientLib, "mysql_sqlstate")
		purego.RegisterLibFunc(&mysqlStat, clientLib, "mysql_stat")
		purego.RegisterLibFunc(&mysqlWarningCount, clientLib, "mysql_warning_count")
		purego.RegisterLibFunc(&mysqlThreadID, clientLib, "mysql_thread_id")
		purego.RegisterLibFunc(&mysqlGetServerInfo, clientLib, "mysql_get_server_info")
		purego.RegisterLibFunc(&mysqlGetServerVersion, clientLib, "mysql_get_server_version")
		purego.RegisterLibFunc(&mysqlGetClientInfo, clientLib, "mysql_get_client_info")
		purego.RegisterLibFunc(&mysqlGetClientVersion, clientLib, "mysql_get_client_version")
		purego.RegisterLibFunc(&mysqlGetHostInfo, clientLib, "mysql_get_host_info")
		purego.RegisterLibFunc(&mysqlGetProtoInfo, clientLib, "mysql_get_proto_info")
		purego.RegisterLibFunc(&mysqlGetSSLCipher, clientLib, "mysql_get_ssl_cipher")

		// Query execution and results
		purego.RegisterLibFunc(&mysqlRealQuery, clientLib, "mysql_real_query")
		purego.RegisterLibFunc(&mysqlStoreResult, clientLib, "mysql_store_result")
		purego.RegisterLibFunc(&mysqlUseResult, clientLib, "mysql_use_result")
		purego.RegisterLibFunc(&mysqlFreeResult, clientLib, "mysql_free_result")
		purego.RegisterLibFunc(&mysqlFetchRow, clientLib, "mysql_fetch_row")
		purego.RegisterLibFunc(&mysqlFetchLengths, clientLib, "mysql_fetch_lengths")
		purego.RegisterLibFunc(&mysqlFetchFields, clientLib, "mysql_fetch_fields")
		purego.RegisterLibFunc(&mysqlNumFields, clientLib, "mysql_num_fields")
		purego.RegisterLibFunc(&mysqlNumRows, clientLib, "mysql_num_rows")
		purego.RegisterLibFunc(&mysqlFieldCount, clientLib, "mysql_field_count")
		purego.RegisterLibFunc(&mysqlAffectedRows, clientLib, "mysql_affected_rows")
		purego.RegisterLibFunc(&mysqlInsertID, clientLib, "mysql_insert_id")
		purego.RegisterLibFunc(&mysqlMoreResults, clientLib, "mysql_more_results")
		purego.RegisterLibFunc(&mysqlNextResult, clientLib, "mysql_next_result")
		purego.RegisterLibFunc(&mysqlBindParam, clientLib, "mysql_bind_param")

		// Character sets and escaping
		purego.RegisterLibFunc(&mysqlCharacterSetName, clientLib, "mysql_character_set_name")
		purego.RegisterLibFunc(&mysqlSetCharacterSet, clientLib, "mysql_set_character_set")
		purego.RegisterLibFunc(&mysqlEscapeQuote, clientLib, "mysql_real_escape_string_quote")
		purego.RegisterLibFunc(&mysqlHexString, clientLib, "mysql_hex_string")

		// Transactions
		purego.RegisterLibFunc(&mysqlAutocommit, clientLib, "mysql_autocommit")
		purego.RegisterLibFunc(&mysqlCommit, clientLib, "mysql_commit")
		purego.RegisterLibFunc(&mysqlRollback, clientLib, "mysql_rollback")

		// Authentication plugins
		purego.RegisterLibFunc(&mysqlFindPlugin, clientLib, "mysql_client_find_plugin")
		purego.RegisterLibFunc(&mysqlPluginOptions, clientLib, "mysql_plugin_options")

		// Prepared statements
		purego.RegisterLibFunc(&mysqlStmtInit, clientLib, "mysql_stmt_init")
		purego.RegisterLibFunc(&mysqlStmtPrepare, clientLib, "mysql_stmt_prepare")
		purego.RegisterLibFunc(&mysqlStmtParamCount, clientLib, "mysql_stmt_param_count")
		purego.RegisterLibFunc(&mysqlStmtBindParam, clientLib, "mysql_stmt_bind_param")
		purego.RegisterLibFunc(&mysqlStmtExecute, clientLib, "mysql_stmt_execute")
		purego.RegisterLibFunc(&mysqlStmtFetch, clientLib, "mysql_stmt_fetch")
		purego.RegisterLibFunc(&mysqlStmtFetchColumn, clientLib, "mysql_stmt_fetch_column")
		purego.RegisterLibFunc(&mysqlStmtBindResult, clientLib, "mysql_stmt_bind_result")
		purego.RegisterLibFunc(&mysqlStmtResultMetadata, clientLib, "mysql_stmt_result_metadata")
		purego.RegisterLibFunc(&mysqlStmtErrno, clientLib, "mysql_stmt_errno")
		purego.RegisterLibFunc(&mysqlStmtError, clientLib, "mysql_stmt_error")
		purego.RegisterLibFunc(&mysqlStmtSqlstate, clientLib, "mysql_stmt_sqlstate")
		purego.RegisterLibFunc(&mysqlStmtClose, clientLib, "mysql_stmt_close")
		purego.RegisterLibFunc(&mysqlStmtFreeResult, clientLib, "mysql_stmt_free_result")
		purego.RegisterLibFunc(&mysqlStmtReset, clientLib, "mysql_stmt_reset")
		purego.RegisterLibFunc(&mysqlStmtAffectedRows, clientLib, "mysql_stmt_affected_rows")
		purego.RegisterLibFunc(&mysqlStmtNumRows, clientLib, "mysql_stmt_num_rows")
	})
	return initErr
}

// cstr returns a NUL-terminated copy of s, or nil for the empty string so
// optional C string arguments become NULL.
func cstr(s string) *byte {
	if s == "" {
		return nil
	}
	b := append([]byte(s), 0)
	return &b[0]
}

// cstrz returns a NUL-terminated copy of s even when s is empty.
func cstrz(s string) *byte {
	b := append([]byte(s), 0)
	return &b[0]
}

// ClientInfo returns the client library version string.
func ClientInfo() (string, error) {
	if err := initClient(); err != nil {
		return "", err
	}
	return mysqlGetClientInfo(), nil
}

// ClientVersion returns the client library version number.
func ClientVersion() (uint64, error) {
	if err := initClient(); err != nil {
		return 0, err
	}
	return uint64(mysqlGetClientVersion()), nil
}
