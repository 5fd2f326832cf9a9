package models

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(
		mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{DisableAutomaticPing: true},
	)
	if err != nil {
		t.Fatal(err)
	}
	return gdb, mock
}

func TestNextHumanID_SerialFromLockedCount(t *testing.T) {
	gdb, mock := newMockDB(t)
	day := time.Date(2025, 8, 14, 10, 0, 0, 0, time.UTC)

	// The count must carry a row lock; two creators reading the same count
	// would collide on the unique booking-number index.
	mock.ExpectQuery(`SELECT count\(\*\) FROM .appointments. WHERE human_id LIKE .+ FOR UPDATE`).
		WithArgs("APT-20250814-%").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(2))

	id, err := NextHumanID(gdb, day)
	if err != nil {
		t.Fatal(err)
	}
	if id != "APT-20250814-0003" {
		t.Fatalf("expected APT-20250814-0003, got %s", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
