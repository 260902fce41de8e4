// Package datarecording stores flat Go structs into SQLite tables. Each table
// is described by a sample entry, and each exported field of the entry becomes
// a column.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table with given filename
	CreateTable(tableName string, sampleEntry any)

	// DataInsert writes a same-type task into table that already exists
	InsertData(tableName string, entry any)

	// ListTable returns a slice containing names of all tables
	ListTables() []string

	// Flush flushes all the buffered task into database
	Flush()
}

// New creates a new DataRecorder that writes to <path>.sqlite3. If path is
// empty, a unique name is generated.
func New(path string) DataRecorder {
	w := NewSQLiteWriter(path)
	w.Init()

	atexit.Register(func() { w.Flush() })

	return w
}

// NewWithDB creates a new DataRecorder with a given database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &SQLiteWriter{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// NewSQLiteWriter creates a writer without connecting to the database. Call
// Init before use.
func NewSQLiteWriter(path string) *SQLiteWriter {
	return &SQLiteWriter{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}
}

type table struct {
	structType reflect.Type
	entries    []any
}

// SQLiteWriter is the writer that writes data into SQLite database
type SQLiteWriter struct {
	*sql.DB

	lock       sync.Mutex
	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int
}

// Init establishes a connection to the database.
func (t *SQLiteWriter) Init() {
	if t.dbName == "" {
		t.dbName = "moesisim_recording_" + xid.New().String()
	}

	filename := t.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	t.DB = db
}

// Filename returns the file that the writer writes to.
func (t *SQLiteWriter) Filename() string {
	return t.dbName + ".sqlite3"
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
	types := reflect.TypeOf(entry)
	if types == nil || types.Kind() != reflect.Struct {
		return errors.New("entry must be a struct")
	}

	for i := 0; i < types.NumField(); i++ {
		field := types.Field(i)

		if !field.IsExported() {
			return fmt.Errorf("field %s is not exported", field.Name)
		}

		if !isAllowedType(field.Type.Kind()) {
			return fmt.Errorf("field %s has unsupported type %s",
				field.Name, field.Type)
		}
	}

	return nil
}

// CreateTable creates a table whose columns are the fields of sampleEntry.
func (t *SQLiteWriter) CreateTable(tableName string, sampleEntry any) {
	err := checkStructFields(sampleEntry)
	if err != nil {
		panic(err)
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if _, exists := t.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	n := structs.Names(sampleEntry)
	fields := strings.Join(n, ", \n\t")

	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`
	t.mustExecute(createTableSQL)

	t.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}
}

// InsertData buffers an entry. The entry is written at the next flush.
func (t *SQLiteWriter) InsertData(tableName string, entry any) {
	t.lock.Lock()

	table, exists := t.tables[tableName]
	if !exists {
		t.lock.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != table.structType {
		t.lock.Unlock()
		panic(fmt.Sprintf("entry type %s does not match table %s",
			reflect.TypeOf(entry), tableName))
	}

	table.entries = append(table.entries, entry)
	t.entryCount++
	full := t.entryCount >= t.batchSize

	t.lock.Unlock()

	if full {
		t.Flush()
	}
}

// ListTables returns the names of the tables created by the writer, sorted.
func (t *SQLiteWriter) ListTables() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	tables := make([]string, 0, len(t.tables))
	for table := range t.tables {
		tables = append(tables, table)
	}

	sort.Strings(tables)

	return tables
}

// Flush writes all the buffered entries in one transaction.
func (t *SQLiteWriter) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.entryCount == 0 {
		return
	}

	t.mustExecute("BEGIN TRANSACTION")
	defer t.mustExecute("COMMIT TRANSACTION")

	for tableName, table := range t.tables {
		if len(table.entries) == 0 {
			continue
		}

		stmt := t.prepareStatement(tableName, table.entries[0])

		for _, entry := range table.entries {
			_, err := stmt.Exec(structs.Values(entry)...)
			if err != nil {
				panic(err)
			}
		}

		table.entries = nil

		stmt.Close()
	}

	t.entryCount = 0
}

func (t *SQLiteWriter) mustExecute(query string) sql.Result {
	res, err := t.Exec(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}

func (t *SQLiteWriter) prepareStatement(table string, entry any) *sql.Stmt {
	n := structs.Names(entry)
	for i := 0; i < len(n); i++ {
		n[i] = "?"
	}

	entryToFill := "(" + strings.Join(n, ", ") + ")"
	sqlStr := "INSERT INTO " + table + " VALUES " + entryToFill

	stmt, err := t.Prepare(sqlStr)
	if err != nil {
		panic(err)
	}

	return stmt
}
