package services_test

import (
	"testing"
	"time"

	"pairing-system/services"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gdb, mock
}

func participantRow(id, sessionID, username string, submitted bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "session_id", "username", "password_hash", "has_submitted", "created_at"}).
		AddRow(id, sessionID, username, "x", submitted, time.Now())
}

func countRow(n int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func TestSanitizeRatings(t *testing.T) {
	clean := services.SanitizeRatings("alice", map[string]int{
		"alice":   70,  // self-rating, dropped
		"bob":     150, // out of range, dropped
		"carol":   -1,  // out of range, dropped
		"dave":    0,
		"erin":    100,
		"frankie": 55,
	})

	require.Equal(t, map[string]int{"dave": 0, "erin": 100, "frankie": 55}, clean)
}

func TestRecordSubmission_EmptyRatings(t *testing.T) {
	svc := services.NewPreferenceService(nil)

	_, _, err := svc.RecordSubmission("sess", "alice", nil)
	require.ErrorIs(t, err, services.ErrEmptyRatings)

	_, _, err = svc.RecordSubmission("sess", "alice", map[string]int{})
	require.ErrorIs(t, err, services.ErrEmptyRatings)
}

func TestRecordSubmission_UnknownParticipant(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := services.NewPreferenceService(gdb)

	mock.ExpectQuery(`SELECT \* FROM "participants"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, _, err := svc.RecordSubmission("sess", "ghost", map[string]int{"bob": 50})
	require.ErrorIs(t, err, services.ErrParticipantNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSubmission_ReplacesPriorRatings(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := services.NewPreferenceService(gdb)

	mock.ExpectQuery(`SELECT \* FROM "participants"`).
		WillReturnRows(participantRow("p1", "sess", "alice", false))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "preferences"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO "preferences"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE "participants" SET "has_submitted"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "participants"`).
		WillReturnRows(countRow(3))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "participants"`).
		WillReturnRows(countRow(2))

	submitted, total, err := svc.RecordSubmission("sess", "alice", map[string]int{
		"bob":   90,
		"carol": 40,
	})
	require.NoError(t, err)
	require.Equal(t, 2, submitted)
	require.Equal(t, 3, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSubmission_AllEntriesFiltered(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := services.NewPreferenceService(gdb)

	mock.ExpectQuery(`SELECT \* FROM "participants"`).
		WillReturnRows(participantRow("p1", "sess", "alice", false))

	// every entry is invalid: old rows are still cleared and the
	// submission still counts, with no insert in between
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "preferences"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "participants" SET "has_submitted"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "participants"`).
		WillReturnRows(countRow(2))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "participants"`).
		WillReturnRows(countRow(1))

	submitted, total, err := svc.RecordSubmission("sess", "alice", map[string]int{
		"alice": 50,  // self
		"bob":   999, // out of range
	})
	require.NoError(t, err)
	require.Equal(t, 1, submitted)
	require.Equal(t, 2, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsReadyForPairing(t *testing.T) {
	gdb, mock := newMockDB(t)
	svc := services.NewPreferenceService(gdb)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "participants"`).
		WillReturnRows(countRow(4))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "participants"`).
		WillReturnRows(countRow(4))

	ready, err := svc.IsReadyForPairing("sess")
	require.NoError(t, err)
	require.True(t, ready)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "participants"`).
		WillReturnRows(countRow(4))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "participants"`).
		WillReturnRows(countRow(3))

	ready, err = svc.IsReadyForPairing("sess")
	require.NoError(t, err)
	require.False(t, ready)

	// an empty roster is never ready
	mock.ExpectQuery(`SELECT count\(\*\) FROM "participants"`).
		WillReturnRows(countRow(0))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "participants"`).
		WillReturnRows(countRow(0))

	ready, err = svc.IsReadyForPairing("sess")
	require.NoError(t, err)
	require.False(t, ready)

	require.NoError(t, mock.ExpectationsWereMet())
}
