package tracing

import (
	"database/sql"
	"fmt"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// SQLiteTraceWriter writes trace data to a SQLite database.
type SQLiteTraceWriter struct {
	*sql.DB
	statement *sql.Stmt

	dbName           string
	tasksToWriteToDB []Task
	batchSize        int
}

// NewSQLiteTraceWriter creates a new SQLiteTraceWriter. If path is empty, a
// unique database name is generated.
func NewSQLiteTraceWriter(path string) *SQLiteTraceWriter {
	w := &SQLiteTraceWriter{
		dbName:    path,
		batchSize: 100000,
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// Init establishes a connection to the database and prepares the schema.
func (t *SQLiteTraceWriter) Init() {
	if t.dbName == "" {
		t.dbName = "trace_" + xid.New().String()
	}

	t.createDatabase()
	t.createTable()
	t.prepareStatement()
}

// Write buffers a task to be written to the database.
func (t *SQLiteTraceWriter) Write(task Task) {
	t.tasksToWriteToDB = append(t.tasksToWriteToDB, task)
	if len(t.tasksToWriteToDB) >= t.batchSize {
		t.Flush()
	}
}

// Flush writes all the buffered tasks to the database.
func (t *SQLiteTraceWriter) Flush() {
	if len(t.tasksToWriteToDB) == 0 {
		return
	}

	t.mustExecute("BEGIN TRANSACTION")
	defer t.mustExecute("COMMIT TRANSACTION")

	for _, task := range t.tasksToWriteToDB {
		_, err := t.statement.Exec(
			task.ID,
			task.ParentID,
			task.Kind,
			task.What,
			task.Where,
			float64(task.StartTime),
			float64(task.EndTime),
		)
		if err != nil {
			panic(err)
		}
	}

	t.tasksToWriteToDB = nil
}

func (t *SQLiteTraceWriter) createDatabase() {
	filename := t.dbName + ".sqlite3"

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}
	t.DB = db
}

func (t *SQLiteTraceWriter) createTable() {
	t.mustExecute(`
		CREATE TABLE IF NOT EXISTS trace (
			task_id    TEXT,
			parent_id  TEXT,
			kind       TEXT,
			what       TEXT,
			location   TEXT,
			start_time REAL,
			end_time   REAL
		)
	`)
	t.mustExecute(
		"CREATE INDEX IF NOT EXISTS trace_task_id ON trace (task_id)")
}

func (t *SQLiteTraceWriter) prepareStatement() {
	stmt, err := t.Prepare(`
		INSERT INTO trace (
			task_id, parent_id, kind, what, location, start_time, end_time
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		panic(err)
	}
	t.statement = stmt
}

func (t *SQLiteTraceWriter) mustExecute(query string) sql.Result {
	res, err := t.Exec(query)
	if err != nil {
		panic(fmt.Sprintf("%s: %s", err, query))
	}
	return res
}
