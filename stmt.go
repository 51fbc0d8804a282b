package libmysql

import (
	"fmt"
	"runtime"
	"unsafe"
)

// PrepStmt is a server-side prepared statement. Results always stream
// through the binary protocol with per-row column fetches, so no row buffer
// larger than the current row is ever held.
type PrepStmt struct {
	conn       *Conn
	stmt       uintptr
	paramCount int
	closed     bool

	meta   uintptr
	fields []Field
	binds  []mysqlBind
	cols   []resultCol
}

// resultCol owns the C-visible buffers for one output column. Fixed-width
// numeric columns fetch inline; variable-length columns fetch in two phases
// through mysql_stmt_fetch_column.
type resultCol struct {
	i64    int64
	f32    float32
	f64    float64
	length ulong
	isNull byte
	errVal byte
	varLen bool
}

// ParamCount returns the number of placeholders in the statement.
func (s *PrepStmt) ParamCount() int {
	return s.paramCount
}

// Fields returns the result metadata of the last Execute, or nil when the
// statement produces no rows.
func (s *PrepStmt) Fields() []Field {
	return s.fields
}

func (s *PrepStmt) freeResultLocked() {
	if s.meta != 0 {
		mysqlFreeResult(s.meta)
		s.meta = 0
	}
	mysqlStmtFreeResult(s.stmt)
	s.fields = nil
	s.binds = nil
	s.cols = nil
}

// Execute runs the statement with the given parameters. It returns true
// when the statement produced a result set to fetch from.
func (s *PrepStmt) Execute(params ...interface{}) (bool, error) {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if s.closed {
		return false, errStmtClosed
	}
	s.freeResultLocked()

	if len(params) != s.paramCount {
		return false, &UsageError{Msg: fmt.Sprintf("statement expects %d parameters, got %d", s.paramCount, len(params))}
	}

	if s.paramCount > 0 {
		binds := make([]mysqlBind, s.paramCount)
		holds := make([]*bindHold, s.paramCount)
		for i, param := range params {
			hold, err := bindValue(&binds[i], param, s.conn.cfg.StrFallback)
			if err != nil {
				return false, err
			}
			holds[i] = hold
		}
		if mysqlStmtBindParam(s.stmt, &binds[0]) != 0 {
			return false, stmtError(s.stmt, "cannot bind parameters")
		}
		if mysqlStmtExecute(s.stmt) != 0 {
			return false, stmtError(s.stmt, "execute failed")
		}
		runtime.KeepAlive(binds)
		runtime.KeepAlive(holds)
	} else if mysqlStmtExecute(s.stmt) != 0 {
		return false, stmtError(s.stmt, "execute failed")
	}

	return s.bindResultLocked()
}

// bindResultLocked inspects the result metadata and sets up output binds.
// Fixed-width numerics land in inline buffers; everything else binds with a
// zero-length buffer so the fetch reports the true length for a second,
// exactly sized fetch. Non-numeric columns bind as STRING, which has the
// client library render temporal and decimal values in their text form.
func (s *PrepStmt) bindResultLocked() (bool, error) {
	meta := mysqlStmtResultMetadata(s.stmt)
	if meta == 0 {
		return false, nil
	}
	s.meta = meta
	fields, err := describeColumns(meta, "utf8")
	if err != nil {
		s.freeResultLocked()
		return false, err
	}
	s.fields = fields

	n := len(s.fields)
	s.binds = make([]mysqlBind, n)
	s.cols = make([]resultCol, n)
	for i := range s.fields {
		f := &s.fields[i]
		bind := &s.binds[i]
		col := &s.cols[i]
		bind.Length = &col.length
		bind.IsNull = &col.isNull
		bind.Error = &col.errVal

		switch f.Type {
		case TypeTiny, TypeShort, TypeLong, TypeLongLong, TypeInt24, TypeYear:
			bind.BufferType = TypeLongLong
			bind.Buffer = unsafe.Pointer(&col.i64)
			bind.BufferLength = 8
			if f.Flags&UnsignedFlag != 0 {
				bind.IsUnsigned = 1
			}
		case TypeFloat:
			bind.BufferType = TypeFloat
			bind.Buffer = unsafe.Pointer(&col.f32)
			bind.BufferLength = 4
		case TypeDouble:
			bind.BufferType = TypeDouble
			bind.Buffer = unsafe.Pointer(&col.f64)
			bind.BufferLength = 8
		case TypeBit:
			bind.BufferType = TypeBit
			col.varLen = true
		default:
			bind.BufferType = TypeString
			col.varLen = true
		}
	}
	if mysqlStmtBindResult(s.stmt, &s.binds[0]) != 0 {
		return false, stmtError(s.stmt, "cannot bind result")
	}
	return true, nil
}

// FetchRow returns the next row, or ErrExhausted once the result set is
// drained. Variable-length cells trigger a column fetch sized to the exact
// value length reported by the row fetch.
func (s *PrepStmt) FetchRow() ([]interface{}, error) {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if s.closed {
		return nil, errStmtClosed
	}
	if s.meta == 0 {
		return nil, errNoResult
	}

	// Zero-length buffers make truncation expected for var-length columns.
	for i := range s.cols {
		if s.cols[i].varLen {
			s.binds[i].Buffer = nil
			s.binds[i].BufferLength = 0
			s.cols[i].length = 0
		}
	}

	switch rc := mysqlStmtFetch(s.stmt); rc {
	case 0, fetchTruncated:
	case fetchNoData:
		return nil, ErrExhausted
	default:
		return nil, stmtError(s.stmt, "row fetch failed")
	}

	cfg := &s.conn.cfg
	row := make([]interface{}, len(s.fields))
	for i := range s.fields {
		f := &s.fields[i]
		col := &s.cols[i]
		if col.isNull != 0 {
			row[i] = nil
			continue
		}

		if !col.varLen {
			switch f.Type {
			case TypeFloat:
				row[i] = float64(col.f32)
			case TypeDouble:
				row[i] = col.f64
			default:
				if f.Flags&UnsignedFlag != 0 {
					row[i] = uint64(col.i64)
				} else {
					row[i] = col.i64
				}
			}
			continue
		}

		raw, err := s.fetchColumnLocked(i, int(col.length))
		if err != nil {
			return nil, err
		}
		if cfg.Raw {
			if cfg.RawAsString {
				row[i] = string(raw)
			} else {
				row[i] = raw
			}
			continue
		}
		value, err := convertTextCell(f, raw, cfg.Charset, cfg.UseUnicode)
		if err != nil {
			return nil, err
		}
		row[i] = value
	}
	return row, nil
}

// fetchColumnLocked pulls one variable-length cell at its exact size.
func (s *PrepStmt) fetchColumnLocked(i, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, size)
	bind := mysqlBind{
		BufferType:   s.binds[i].BufferType,
		Buffer:       unsafe.Pointer(&buf[0]),
		BufferLength: ulong(size),
		Length:       &s.cols[i].length,
		IsNull:       &s.cols[i].isNull,
		Error:        &s.cols[i].errVal,
	}
	if mysqlStmtFetchColumn(s.stmt, &bind, uint32(i), 0) != 0 {
		return nil, stmtError(s.stmt, "column fetch failed")
	}
	runtime.KeepAlive(buf)
	return buf, nil
}

// FetchAll drains the result set.
func (s *PrepStmt) FetchAll() ([][]interface{}, error) {
	var rows [][]interface{}
	for {
		row, err := s.FetchRow()
		if err == ErrExhausted {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// AffectedRows returns the row count of the last Execute for statements
// without a result set.
func (s *PrepStmt) AffectedRows() uint64 {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if s.closed {
		return 0
	}
	return mysqlStmtAffectedRows(s.stmt)
}

// NumRows returns the number of rows fetched so far from the current
// result set.
func (s *PrepStmt) NumRows() uint64 {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if s.closed {
		return 0
	}
	return mysqlStmtNumRows(s.stmt)
}

// Reset discards pending results and parameter state so the statement can
// be executed again from scratch.
func (s *PrepStmt) Reset() error {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if s.closed {
		return errStmtClosed
	}
	s.freeResultLocked()
	if mysqlStmtReset(s.stmt) != 0 {
		return stmtError(s.stmt, "reset failed")
	}
	return nil
}

// FreeResult releases the current result set without closing the
// statement.
func (s *PrepStmt) FreeResult() {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if s.closed {
		return
	}
	s.freeResultLocked()
}

// Close destroys the server-side statement. Closing twice is a no-op.
func (s *PrepStmt) Close() error {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if s.closed {
		return nil
	}
	s.freeResultLocked()
	mysqlStmtClose(s.stmt)
	s.stmt = 0
	s.closed = true
	return nil
}
