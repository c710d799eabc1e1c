package migrate

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
)

var testFS = fstest.MapFS{
	"0001_init.up.sql": &fstest.MapFile{
		Data: []byte("create table widgets (id text primary key);\ncreate index widgets_id on widgets(id);"),
	},
	"0001_init.down.sql": &fstest.MapFile{
		Data: []byte("drop table widgets;"),
	},
	"0002_seed.up.sql": &fstest.MapFile{
		Data: []byte("insert into widgets(id) values ('a;b');"),
	},
	"0002_seed.down.sql": &fstest.MapFile{
		Data: []byte("delete from widgets where id = 'a;b';"),
	},
}

func expectEnsureTable(mock sqlmock.Sqlmock) {
	mock.ExpectExec("create table if not exists schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectStatus(mock sqlmock.Sqlmock, applied ...string) {
	expectEnsureTable(mock)
	rows := sqlmock.NewRows([]string{"name"})
	for _, name := range applied {
		rows.AddRow(name)
	}
	mock.ExpectQuery("select name from schema_migrations").WillReturnRows(rows)
}

func TestUpAppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	expectEnsureTable(mock)
	expectStatus(mock)

	// 0001: two statements in one transaction, then the bookkeeping row.
	mock.ExpectBegin()
	mock.ExpectExec("create table widgets").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create index widgets_id").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta("insert into schema_migrations(name, applied_at)")).
		WithArgs("0001_init.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// 0002: the quoted semicolon must not split the statement.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("insert into widgets(id) values ('a;b')")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta("insert into schema_migrations(name, applied_at)")).
		WithArgs("0002_seed.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewManager(db, testFS).Up(context.Background()); err != nil {
		t.Fatalf("up: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpSkipsApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	expectEnsureTable(mock)
	expectStatus(mock, "0001_init.up.sql", "0002_seed.up.sql")

	if err := NewManager(db, testFS).Up(context.Background()); err != nil {
		t.Fatalf("up: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDownRollsBackLast(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	expectEnsureTable(mock)
	expectStatus(mock, "0001_init.up.sql", "0002_seed.up.sql")

	mock.ExpectBegin()
	mock.ExpectExec("delete from widgets").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("delete from schema_migrations where name").
		WithArgs("0002_seed.up.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewManager(db, testFS).Down(context.Background()); err != nil {
		t.Fatalf("down: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDownWithNothingApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	expectEnsureTable(mock)
	expectStatus(mock)

	if err := NewManager(db, testFS).Down(context.Background()); err == nil {
		t.Fatal("expected error with no applied migrations")
	}
}

func TestWithTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists custom_history").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from custom_history").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	m := NewManager(db, testFS, WithTable("custom_history"))
	if _, err := m.Status(context.Background()); err != nil {
		t.Fatalf("status: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("select 1; insert into t values ('x;y'); select 2")
	if len(stmts) != 3 {
		t.Fatalf("statements = %d, want 3: %q", len(stmts), stmts)
	}
	if stmts[1] != " insert into t values ('x;y')" {
		t.Fatalf("quoted semicolon split: %q", stmts[1])
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	m := NewManager(nil, Embedded())
	ups, err := m.collect(".up.sql")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(ups) == 0 {
		t.Fatal("no embedded up migrations")
	}
	downs, err := m.collect(".down.sql")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(downs) != len(ups) {
		t.Fatalf("ups=%d downs=%d, want matching pairs", len(ups), len(downs))
	}
}
