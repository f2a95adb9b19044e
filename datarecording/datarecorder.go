// Package datarecording stores simulation output in SQLite tables, one Go
// struct type per table.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// SQLite drivers. "sqlite" is pure Go, "sqlite3" needs cgo.
	_ "github.com/glebarez/go-sqlite"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// Driver names accepted by NewWithDriver.
const (
	DriverPureGo = "sqlite"
	DriverCgo    = "sqlite3"
)

// ErrInvalidEntry is returned when an entry cannot be stored as a table row.
var ErrInvalidEntry = errors.New("datarecording: entry is invalid")

// ErrUnknownTable is returned when inserting into a table that has not been
// created.
var ErrUnknownTable = errors.New("datarecording: table does not exist")

// DataRecorder is a backend that can record and store data.
type DataRecorder interface {
	// CreateTable creates a table whose columns are the fields of
	// sampleEntry. Creating a table that already exists in the database is
	// not an error, so a recorder can append to the output of a previous run.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of the tables created by this recorder.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush() error

	// Close flushes and releases the database.
	Close() error
}

type table struct {
	structType reflect.Type
	entries    []any
}

// SQLiteWriter is the writer that writes data into a SQLite database.
type SQLiteWriter struct {
	*sql.DB

	lock       sync.Mutex
	dbName     string
	tables     map[string]*table
	tableOrder []string
	batchSize  int
	entryCount int
	closed     bool
}

// New creates a recorder backed by the pure Go SQLite driver. An empty path
// picks a unique file name. A ".sqlite3" extension is added when the path has
// none.
func New(path string) (*SQLiteWriter, error) {
	return NewWithDriver(DriverPureGo, path)
}

// NewWithDriver creates a recorder using the named database/sql driver.
func NewWithDriver(driver, path string) (*SQLiteWriter, error) {
	if path == "" {
		path = "pktmux_data_" + xid.New().String()
	}

	if filepath.Ext(path) == "" {
		path += ".sqlite3"
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("datarecording: open %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("datarecording: open %s: %w", path, err)
	}

	fmt.Fprintf(os.Stderr, "Database opened for recording: %s\n", path)

	w := NewWithDB(db)
	w.dbName = path

	return w, nil
}

// NewWithDB creates a recorder with a given database.
func NewWithDB(db *sql.DB) *SQLiteWriter {
	w := &SQLiteWriter{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { _ = w.Flush() })

	return w
}

// WithBatchSize sets how many buffered entries trigger an automatic flush.
func (w *SQLiteWriter) WithBatchSize(n int) *SQLiteWriter {
	if n > 0 {
		w.batchSize = n
	}

	return w
}

// Path returns the database file name.
func (w *SQLiteWriter) Path() string {
	return w.dbName
}

func isAllowedType(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T is not a struct", ErrInvalidEntry, entry)
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !isAllowedType(field.Type.Kind()) {
			return fmt.Errorf("%w: field %s has kind %s",
				ErrInvalidEntry, field.Name, field.Type.Kind())
		}
	}

	return nil
}

// CreateTable creates a table named tableName shaped after sampleEntry.
func (w *SQLiteWriter) CreateTable(tableName string, sampleEntry any) error {
	if err := checkStructFields(sampleEntry); err != nil {
		return err
	}

	w.lock.Lock()
	defer w.lock.Unlock()

	fields := strings.Join(structs.Names(sampleEntry), ", \n\t")
	createTableSQL := `CREATE TABLE IF NOT EXISTS ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`

	if _, err := w.Exec(createTableSQL); err != nil {
		return fmt.Errorf("datarecording: create table %s: %w", tableName, err)
	}

	if _, exists := w.tables[tableName]; !exists {
		w.tableOrder = append(w.tableOrder, tableName)
	}

	w.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}

	return nil
}

// InsertData buffers an entry. The buffer is flushed once it holds the batch
// size.
func (w *SQLiteWriter) InsertData(tableName string, entry any) error {
	w.lock.Lock()
	defer w.lock.Unlock()

	t, exists := w.tables[tableName]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownTable, tableName)
	}

	if reflect.TypeOf(entry) != t.structType {
		return fmt.Errorf("%w: %T does not match table %s",
			ErrInvalidEntry, entry, tableName)
	}

	t.entries = append(t.entries, entry)
	w.entryCount++

	if w.entryCount >= w.batchSize {
		return w.flush()
	}

	return nil
}

// ListTables returns the tables in creation order.
func (w *SQLiteWriter) ListTables() []string {
	w.lock.Lock()
	defer w.lock.Unlock()

	out := make([]string, len(w.tableOrder))
	copy(out, w.tableOrder)

	return out
}

// Flush writes all the buffered entries in one transaction. Entries that
// fail to write are dropped, not retried.
func (w *SQLiteWriter) Flush() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.flush()
}

func (w *SQLiteWriter) flush() error {
	if w.entryCount == 0 || w.closed {
		return nil
	}

	tx, err := w.Begin()
	if err != nil {
		w.dropBuffered()
		return fmt.Errorf("datarecording: begin: %w", err)
	}

	for _, tableName := range w.tableOrder {
		if err := w.flushTable(tx, tableName, w.tables[tableName]); err != nil {
			_ = tx.Rollback()
			w.dropBuffered()
			return err
		}
	}

	w.dropBuffered()

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("datarecording: commit: %w", err)
	}

	return nil
}

func (w *SQLiteWriter) flushTable(tx *sql.Tx, tableName string, t *table) error {
	if len(t.entries) == 0 {
		return nil
	}

	n := t.structType.NumField()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
	stmt, err := tx.Prepare(
		"INSERT INTO " + tableName + " VALUES (" + placeholders + ")")
	if err != nil {
		return fmt.Errorf("datarecording: prepare %s: %w", tableName, err)
	}
	defer stmt.Close()

	for _, entry := range t.entries {
		v := reflect.ValueOf(entry)
		args := make([]any, 0, n)
		for i := 0; i < n; i++ {
			args = append(args, v.Field(i).Interface())
		}

		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("datarecording: insert into %s: %w", tableName, err)
		}
	}

	return nil
}

func (w *SQLiteWriter) dropBuffered() {
	for _, t := range w.tables {
		t.entries = nil
	}

	w.entryCount = 0
}

// Close flushes the remaining entries and closes the database.
func (w *SQLiteWriter) Close() error {
	w.lock.Lock()
	defer w.lock.Unlock()

	if w.closed {
		return nil
	}

	flushErr := w.flush()
	w.closed = true

	return errors.Join(flushErr, w.DB.Close())
}

var _ DataRecorder = (*SQLiteWriter)(nil)
