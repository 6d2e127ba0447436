package database

import (
	"database/sql"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
)

// requiredColumns lists, per table, the columns the store reads and writes
var requiredColumns = map[string][]string{
	"sessions": {
		"id", "course_id", "title", "date_label", "time_range", "host", "host_id",
		"status", "summary", "attendees", "meeting_id", "join_url", "start_url",
		"meeting_password", "created_at",
	},
	"session_participants": {
		"id", "session_id", "participant_id", "user_id", "name", "user_email",
		"joined_at", "left_at", "created_at",
	},
	"chats":             {"id", "user_id", "messages", "updated_at"},
	"users":             {"id", "name", "email", "role"},
	"courses":           {"id", "title"},
	"schema_migrations": {"version", "applied_at"},
}

var requiredIndexes = []string{
	"idx_sessions_course_created",
	"idx_sessions_meeting_id",
	"idx_participants_session_joined",
	"idx_chats_updated",
}

// SchemaValidator provides database schema validation functionality
// ARCHITECTURAL DISCOVERY: Separate validation component enables deployment
// verification without coupling to the migration system
type SchemaValidator struct {
	db     *sql.DB
	driver string
	psq    sq.StatementBuilderType
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator(db *sql.DB, driver string) *SchemaValidator {
	return &SchemaValidator{db: db, driver: driver, psq: StatementBuilder(driver)}
}

// Validate runs every structural check
func (v *SchemaValidator) Validate() error {
	if err := v.ValidateTablesExist(); err != nil {
		return err
	}
	if err := v.ValidateTableStructure(); err != nil {
		return err
	}
	return v.ValidateIndexes()
}

// ValidateTablesExist verifies that all required tables exist
func (v *SchemaValidator) ValidateTablesExist() error {
	for _, table := range sortedTables() {
		exists, err := v.tableExists(table)
		if err != nil {
			return fmt.Errorf("error checking table %s: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("required table %s does not exist", table)
		}
	}
	return nil
}

// ValidateTableStructure verifies every required column is present
func (v *SchemaValidator) ValidateTableStructure() error {
	for _, table := range sortedTables() {
		found, err := v.columns(table)
		if err != nil {
			return fmt.Errorf("error reading columns of %s: %w", table, err)
		}
		for _, col := range requiredColumns[table] {
			if !found[col] {
				return fmt.Errorf("%s table structure invalid: column %s not found", table, col)
			}
		}
	}
	return nil
}

// ValidateIndexes verifies that all lookup indexes exist
func (v *SchemaValidator) ValidateIndexes() error {
	for _, index := range requiredIndexes {
		exists, err := v.indexExists(index)
		if err != nil {
			return fmt.Errorf("error checking index %s: %w", index, err)
		}
		if !exists {
			return fmt.Errorf("required index %s does not exist", index)
		}
	}
	return nil
}

func (v *SchemaValidator) tableExists(table string) (bool, error) {
	q := v.psq.Select("COUNT(*)")
	if v.driver == DriverPostgres {
		q = q.From("information_schema.tables").Where(sq.Eq{"table_name": table, "table_schema": "public"})
	} else {
		q = q.From("sqlite_master").Where(sq.Eq{"type": "table", "name": table})
	}
	return v.count(q)
}

func (v *SchemaValidator) indexExists(index string) (bool, error) {
	q := v.psq.Select("COUNT(*)")
	if v.driver == DriverPostgres {
		q = q.From("pg_indexes").Where(sq.Eq{"indexname": index})
	} else {
		q = q.From("sqlite_master").Where(sq.Eq{"type": "index", "name": index})
	}
	return v.count(q)
}

func (v *SchemaValidator) count(q sq.SelectBuilder) (bool, error) {
	var n int
	if err := q.RunWith(v.db).QueryRow().Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (v *SchemaValidator) columns(table string) (map[string]bool, error) {
	var q sq.SelectBuilder
	if v.driver == DriverPostgres {
		q = v.psq.Select("column_name").From("information_schema.columns").
			Where(sq.Eq{"table_name": table, "table_schema": "public"})
	} else {
		q = v.psq.Select("name").From(fmt.Sprintf("pragma_table_info('%s')", table))
	}

	rows, err := q.RunWith(v.db).Query()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	found := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		found[name] = true
	}
	return found, rows.Err()
}

func sortedTables() []string {
	tables := make([]string, 0, len(requiredColumns))
	for t := range requiredColumns {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}
