package libmysql

import (
	"runtime"
	"strings"
	"sync"
	"unsafe"

	goversion "github.com/hashicorp/go-version"
)

// queryAttrsMinVersion is the first server version that understands
// component-level query attributes.
var queryAttrsMinVersion = goversion.Must(goversion.NewVersion("8.0.23"))

// Conn is a session with a MySQL server over the native client library.
// A Conn is safe for concurrent use; every operation holds the connection
// mutex for the duration of the library call.
type Conn struct {
	mu        sync.Mutex
	cfg       Config
	mysql     uintptr
	connected bool

	serverVersion *goversion.Version

	// authTrampoline keeps the registered plugin callback reachable for the
	// lifetime of the connection.
	authTrampoline uintptr

	// active is the current unbuffered result set. It must be drained or
	// freed before the next command, mirroring the use_result contract.
	active *Result
}

// QueryAttr is a named query attribute sent alongside a statement. The
// value is converted with the same rules as prepared statement parameters.
type QueryAttr struct {
	Name  string
	Value interface{}
}

// Connect opens a session using cfg. Options are applied to the client
// handle in the same order the command-line client applies them, so later
// options win on conflict.
func Connect(cfg Config) (*Conn, error) {
	if err := initClient(); err != nil {
		return nil, err
	}

	mysql := mysqlInit(0)
	if mysql == 0 {
		return nil, &ProtocolError{Errno: ErrUnknown, SQLState: "HY000", Msg: "mysql_init failed"}
	}

	c := &Conn{cfg: cfg, mysql: mysql}
	if err := c.applyOptions(); err != nil {
		mysqlClose(mysql)
		return nil, err
	}

	flags := ulong(cfg.ClientFlags) | ulong(ClientMultiResults)
	if cfg.Database != "" {
		flags |= ulong(ClientConnectWithDB)
	}
	if cfg.LocalInfile {
		flags |= ulong(ClientLocalFiles)
	}
	if cfg.Compress {
		flags |= ulong(ClientCompress)
	}

	host := cstr(cfg.Host)
	user := cstr(cfg.User)
	passwd := cstrz(cfg.Password)
	db := cstr(cfg.Database)
	socket := cstr(cfg.UnixSocket)

	if mysqlRealConnect(mysql, host, user, passwd, db, cfg.Port, socket, flags) == 0 {
		err := sessionError(mysql, "cannot connect to "+cfg.address())
		mysqlClose(mysql)
		return nil, err
	}
	runtime.KeepAlive(host)
	runtime.KeepAlive(user)
	runtime.KeepAlive(passwd)
	runtime.KeepAlive(db)
	runtime.KeepAlive(socket)

	c.connected = true
	if v, err := goversion.NewVersion(serverVersionCore(mysqlGetServerInfo(mysql))); err == nil {
		c.serverVersion = v
	}
	return c, nil
}

// serverVersionCore strips suffixes like "-log" or "-0ubuntu0.22.04.1" from
// a server version string.
func serverVersionCore(info string) string {
	if i := strings.IndexByte(info, '-'); i >= 0 {
		return info[:i]
	}
	return info
}

func (c *Conn) applyOptions() error {
	cfg := &c.cfg

	setUint := func(opt uint32, v uint32) {
		mysqlOptions(c.mysql, opt, unsafe.Pointer(&v))
	}
	setBool := func(opt uint32, v bool) {
		b := byte(0)
		if v {
			b = 1
		}
		mysqlOptions(c.mysql, opt, unsafe.Pointer(&b))
	}
	setString := func(opt uint32, v string) {
		p := cstrz(v)
		mysqlOptions(c.mysql, opt, unsafe.Pointer(p))
		runtime.KeepAlive(p)
	}

	if cfg.ConnectTimeout > 0 {
		setUint(optConnectTimeout, uint32(cfg.ConnectTimeout.Seconds()))
	}
	if cfg.ReadTimeout > 0 {
		setUint(optReadTimeout, uint32(cfg.ReadTimeout.Seconds()))
	}
	if cfg.WriteTimeout > 0 {
		setUint(optWriteTimeout, uint32(cfg.WriteTimeout.Seconds()))
	}

	if cfg.LocalInfile {
		setUint(optLocalInfile, 1)
	} else {
		setUint(optLocalInfile, 0)
	}
	if cfg.LoadDataLocalDir != "" {
		setString(optLoadDataLocalDir, cfg.LoadDataLocalDir)
	}

	charset := cfg.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	setString(optSetCharsetName, charset)

	if cfg.PluginDir != "" {
		setString(optPluginDir, cfg.PluginDir)
	}
	if cfg.AuthPlugin != "" {
		setString(optDefaultAuth, cfg.AuthPlugin)
	}
	if cfg.EnableCleartext {
		setBool(optEnableCleartext, true)
	}

	if cfg.SSLKey != "" || cfg.SSLCert != "" || cfg.SSLCA != "" || cfg.SSLCAPath != "" || cfg.SSLCipher != "" {
		key, cert := cstr(cfg.SSLKey), cstr(cfg.SSLCert)
		ca, capath := cstr(cfg.SSLCA), cstr(cfg.SSLCAPath)
		cipher := cstr(cfg.SSLCipher)
		mysqlSSLSet(c.mysql, key, cert, ca, capath, cipher)
		runtime.KeepAlive(key)
		runtime.KeepAlive(cert)
		runtime.KeepAlive(ca)
		runtime.KeepAlive(capath)
		runtime.KeepAlive(cipher)
	}
	if mode, err := sslModeValue(cfg.SSLMode); err != nil {
		return err
	} else if mode != 0 {
		setUint(optSSLMode, mode)
	}
	if len(cfg.TLSVersions) > 0 {
		setString(optTLSVersion, strings.Join(cfg.TLSVersions, ","))
	}
	if cfg.ServerPublicKeyPath != "" {
		setString(optServerPublicKey, cfg.ServerPublicKeyPath)
	}
	if cfg.GetServerPublicKey {
		setBool(optGetServerPublicKey, true)
	}

	if cfg.UnixSocket != "" {
		setUint(optProtocol, protocolSocket)
	} else {
		setUint(optProtocol, protocolTCP)
	}

	for key, value := range cfg.ConnAttrs {
		k, v := cstrz(key), cstrz(value)
		mysqlOptions4(c.mysql, optConnectAttrAdd, unsafe.Pointer(k), unsafe.Pointer(v))
		runtime.KeepAlive(k)
		runtime.KeepAlive(v)
	}

	// Additional authentication factors for multi-factor accounts.
	for factor, password := range map[uint32]string{2: cfg.Password2, 3: cfg.Password3} {
		if password == "" {
			continue
		}
		f := factor
		p := cstrz(password)
		mysqlOptions4(c.mysql, optUserPassword, unsafe.Pointer(&f), unsafe.Pointer(p))
		runtime.KeepAlive(p)
	}

	if cfg.AuthMessageCallback != nil {
		c.registerAuthCallback()
	}
	return nil
}

func sslModeValue(mode string) (uint32, error) {
	switch strings.ToUpper(mode) {
	case "":
		return 0, nil
	case "DISABLED":
		return SSLModeDisabled, nil
	case "PREFERRED":
		return SSLModePreferred, nil
	case "REQUIRED":
		return SSLModeRequired, nil
	case "VERIFY_CA":
		return SSLModeVerifyCA, nil
	case "VERIFY_IDENTITY":
		return SSLModeVerifyIdentity, nil
	}
	return 0, &UsageError{Msg: "unknown ssl_mode " + mode}
}

// Close terminates the session. Closing an already closed connection is a
// no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	c.freeActiveLocked()
	mysqlClose(c.mysql)
	c.mysql = 0
	c.connected = false
	return nil
}

// Connected reports whether the session is open.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Conn) checkLocked() error {
	if !c.connected {
		return errNotConnected
	}
	return nil
}

// freeActiveLocked releases the current unbuffered result, draining any
// rows the server still has queued for it.
func (c *Conn) freeActiveLocked() {
	if c.active == nil {
		return
	}
	res := c.active
	c.active = nil
	if res.res != 0 {
		if !res.buffered {
			for mysqlFetchRow(res.res) != 0 {
			}
		}
		mysqlFreeResult(res.res)
		res.res = 0
	}
}

// Query sends a statement and returns its result set, or a nil Result for
// statements that produce none. Query attributes are forwarded when the
// server supports them and silently dropped otherwise, matching the
// behavior of the C client.
func (c *Conn) Query(stmt string, attrs ...QueryAttr) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	c.freeActiveLocked()

	if len(attrs) > 0 && c.supportsQueryAttrsLocked() {
		if err := c.bindQueryAttrsLocked(attrs); err != nil {
			return nil, err
		}
	}

	q := []byte(stmt)
	var qp *byte
	if len(q) > 0 {
		qp = &q[0]
	}
	if mysqlRealQuery(c.mysql, qp, ulong(len(q))) != 0 {
		return nil, sessionError(c.mysql, "query failed")
	}
	runtime.KeepAlive(q)
	return c.handleResultLocked()
}

func (c *Conn) bindQueryAttrsLocked(attrs []QueryAttr) error {
	binds := make([]mysqlBind, len(attrs))
	holds := make([]interface{}, 0, len(attrs))
	names := make([]uintptr, len(attrs))
	namePtrs := make([]*byte, len(attrs))

	for i, attr := range attrs {
		hold, err := bindValue(&binds[i], attr.Value, c.cfg.StrFallback)
		if err != nil {
			return err
		}
		holds = append(holds, hold)
		namePtrs[i] = cstrz(attr.Name)
		names[i] = uintptr(unsafe.Pointer(namePtrs[i]))
	}

	if mysqlBindParam(c.mysql, uint32(len(attrs)), &binds[0], &names[0]) != 0 {
		return sessionError(c.mysql, "cannot bind query attributes")
	}
	runtime.KeepAlive(holds)
	runtime.KeepAlive(namePtrs)
	runtime.KeepAlive(binds)
	return nil
}

// handleResultLocked collects the pending result set after a successful
// query or next-result call. It returns nil when the statement produced no
// rows (DML, DDL).
func (c *Conn) handleResultLocked() (*Result, error) {
	if mysqlFieldCount(c.mysql) == 0 {
		return nil, nil
	}

	var res uintptr
	if c.cfg.Buffered {
		res = mysqlStoreResult(c.mysql)
	} else {
		res = mysqlUseResult(c.mysql)
	}
	if res == 0 {
		return nil, sessionError(c.mysql, "cannot read result set")
	}

	fields, err := describeColumns(res, "utf8")
	if err != nil {
		mysqlFreeResult(res)
		return nil, err
	}

	r := &Result{
		conn:     c,
		res:      res,
		buffered: c.cfg.Buffered,
		fields:   fields,
	}
	if !c.cfg.Buffered {
		c.active = r
	}
	return r, nil
}

// ConsumeResult drains and frees the active unbuffered result so the
// connection can run another command.
func (c *Conn) ConsumeResult() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.freeActiveLocked()
}

// MoreResults reports whether the server has further result sets pending
// from a multi-statement or stored procedure call.
func (c *Conn) MoreResults() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return false
	}
	return mysqlMoreResults(c.mysql) != 0
}

// NextResult advances to the next pending result set. It returns the next
// Result (nil for row-less statements), or ErrExhausted when no further
// results remain.
func (c *Conn) NextResult() (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	c.freeActiveLocked()

	switch rc := mysqlNextResult(c.mysql); {
	case rc == 0:
		return c.handleResultLocked()
	case rc < 0:
		return nil, ErrExhausted
	default:
		return nil, sessionError(c.mysql, "cannot advance to next result")
	}
}

// Prepare creates a server-side prepared statement.
func (c *Conn) Prepare(stmt string) (*PrepStmt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	c.freeActiveLocked()

	handle := mysqlStmtInit(c.mysql)
	if handle == 0 {
		return nil, sessionError(c.mysql, "cannot allocate statement")
	}
	q := []byte(stmt)
	var qp *byte
	if len(q) > 0 {
		qp = &q[0]
	}
	if mysqlStmtPrepare(handle, qp, ulong(len(q))) != 0 {
		err := stmtError(handle, "prepare failed")
		mysqlStmtClose(handle)
		return nil, err
	}
	runtime.KeepAlive(q)

	return &PrepStmt{
		conn:       c,
		stmt:       handle,
		paramCount: int(mysqlStmtParamCount(handle)),
	}, nil
}

// supportsQueryAttrsLocked reports whether the connected server understands
// query attributes (8.0.23 and later).
func (c *Conn) supportsQueryAttrsLocked() bool {
	return c.serverVersion != nil && c.serverVersion.GreaterThanOrEqual(queryAttrsMinVersion)
}

// SupportsQueryAttributes reports whether query attributes passed to Query
// will reach the server.
func (c *Conn) SupportsQueryAttributes() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && c.supportsQueryAttrsLocked()
}

// Ping checks the connection, re-establishing it if the client library has
// reconnect enabled.
func (c *Conn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return err
	}
	if mysqlPing(c.mysql) != 0 {
		return sessionError(c.mysql, "ping failed")
	}
	return nil
}

// ChangeUser reauthenticates the session as a different user and resets
// session state.
func (c *Conn) ChangeUser(user, password, database string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return err
	}
	c.freeActiveLocked()
	u, p, d := cstrz(user), cstrz(password), cstr(database)
	if mysqlChangeUser(c.mysql, u, p, d) != 0 {
		return sessionError(c.mysql, "change user failed")
	}
	runtime.KeepAlive(u)
	runtime.KeepAlive(p)
	runtime.KeepAlive(d)
	return nil
}

// SelectDB switches the default database.
func (c *Conn) SelectDB(database string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return err
	}
	d := cstrz(database)
	if mysqlSelectDB(c.mysql, d) != 0 {
		return sessionError(c.mysql, "cannot select database")
	}
	runtime.KeepAlive(d)
	return nil
}

// SetCharacterSet changes the session character set for both directions of
// the connection.
func (c *Conn) SetCharacterSet(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return err
	}
	n := cstrz(name)
	if mysqlSetCharacterSet(c.mysql, n) != 0 {
		return sessionError(c.mysql, "cannot set character set")
	}
	runtime.KeepAlive(n)
	c.cfg.Charset = name
	return nil
}

// CharacterSetName returns the session character set as reported by the
// client library.
func (c *Conn) CharacterSetName() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return "", err
	}
	return mysqlCharacterSetName(c.mysql), nil
}

// Autocommit switches the session autocommit mode.
func (c *Conn) Autocommit(enable bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return err
	}
	mode := byte(0)
	if enable {
		mode = 1
	}
	if mysqlAutocommit(c.mysql, mode) != 0 {
		return sessionError(c.mysql, "cannot change autocommit mode")
	}
	return nil
}

// Commit commits the current transaction.
func (c *Conn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return err
	}
	if mysqlCommit(c.mysql) != 0 {
		return sessionError(c.mysql, "commit failed")
	}
	return nil
}

// Rollback rolls back the current transaction.
func (c *Conn) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return err
	}
	if mysqlRollback(c.mysql) != 0 {
		return sessionError(c.mysql, "rollback failed")
	}
	return nil
}

// ResetConnection resets the session state without reauthenticating.
func (c *Conn) ResetConnection() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return err
	}
	c.freeActiveLocked()
	if mysqlResetConnection(c.mysql) != 0 {
		return sessionError(c.mysql, "reset connection failed")
	}
	return nil
}

// Refresh flushes server caches. The options argument is a bitmask of
// REFRESH_* values.
func (c *Conn) Refresh(options uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return err
	}
	if mysqlRefresh(c.mysql, options) != 0 {
		return sessionError(c.mysql, "refresh failed")
	}
	return nil
}

// Shutdown asks the server to shut down. Requires the SHUTDOWN privilege.
func (c *Conn) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return err
	}
	if mysqlShutdown(c.mysql, shutdownDefault) != 0 {
		return sessionError(c.mysql, "shutdown failed")
	}
	c.connected = false
	return nil
}

// Stat returns the server status string.
func (c *Conn) Stat() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return "", err
	}
	p := mysqlStat(c.mysql)
	if p == 0 {
		return "", sessionError(c.mysql, "cannot read server status")
	}
	return goString(p), nil
}

// ThreadID returns the server-side connection id.
func (c *Conn) ThreadID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return 0
	}
	return uint64(mysqlThreadID(c.mysql))
}

// InsertID returns the auto-increment value generated by the previous
// statement.
func (c *Conn) InsertID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return 0
	}
	return mysqlInsertID(c.mysql)
}

// AffectedRows returns the row count of the previous DML statement.
func (c *Conn) AffectedRows() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return 0
	}
	return mysqlAffectedRows(c.mysql)
}

// WarningCount returns the warning count of the previous statement.
func (c *Conn) WarningCount() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return 0
	}
	return mysqlWarningCount(c.mysql)
}

// FieldCount returns the column count of the most recent statement.
func (c *Conn) FieldCount() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return 0
	}
	return mysqlFieldCount(c.mysql)
}

// ServerInfo returns the raw server version string.
func (c *Conn) ServerInfo() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return "", err
	}
	return mysqlGetServerInfo(c.mysql), nil
}

// ServerVersion returns the parsed server version, or nil when the version
// string was unparseable.
func (c *Conn) ServerVersion() *goversion.Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverVersion
}

// HostInfo returns a description of the transport in use.
func (c *Conn) HostInfo() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return "", err
	}
	return mysqlGetHostInfo(c.mysql), nil
}

// ProtocolVersion returns the wire protocol version.
func (c *Conn) ProtocolVersion() (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return 0, err
	}
	return mysqlGetProtoInfo(c.mysql), nil
}

// SSLCipher returns the negotiated TLS cipher, or "" for a plaintext
// connection.
func (c *Conn) SSLCipher() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return "", err
	}
	p := mysqlGetSSLCipher(c.mysql)
	if p == 0 {
		return "", nil
	}
	return goString(p), nil
}

// EscapeString escapes s for inclusion inside a single-quoted SQL literal,
// honoring the session character set and NO_BACKSLASH_ESCAPES mode.
func (c *Conn) EscapeString(s string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return "", err
	}
	return string(c.escapeLocked([]byte(s))), nil
}

// escapeLocked runs mysql_real_escape_string_quote over raw. The output
// buffer follows the documented worst case of 2n+1 bytes.
func (c *Conn) escapeLocked(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	out := make([]byte, 2*len(raw)+1)
	n := mysqlEscapeQuote(c.mysql, &out[0], &raw[0], ulong(len(raw)), '\'')
	runtime.KeepAlive(raw)
	return out[:n]
}

// HexString converts raw into a hexadecimal literal of the form X'...'.
func HexString(raw []byte) (string, error) {
	if err := initClient(); err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "X''", nil
	}
	out := make([]byte, 2*len(raw)+1)
	n := mysqlHexString(&out[0], &raw[0], ulong(len(raw)))
	runtime.KeepAlive(raw)
	return "X'" + string(out[:n]) + "'", nil
}

// ConvertToSQL renders values as SQL literal fragments ready for splicing
// into a statement, escaping through the session character set.
func (c *Conn) ConvertToSQL(values ...interface{}) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkLocked(); err != nil {
		return nil, err
	}
	return convertTuple(values, c.escapeLocked, c.cfg.StrFallback)
}
