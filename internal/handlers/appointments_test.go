package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"clinic-booking-server/internal/booking"
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

// The availability reads must run inside the creating transaction and under
// FOR UPDATE, so two concurrent requests for the same slot serialize on the
// doctor's day instead of both passing a stale pre-check.
func TestPersistDraft_AvailabilityCheckedInsideTransaction(t *testing.T) {
	gdb, mock := newMockDB(t)

	when := time.Now().Add(48 * time.Hour)
	when = time.Date(when.Year(), when.Month(), when.Day(), 10, 0, 0, 0, time.UTC)

	base := booking.AvailabilityConfig{BusinessStart: 0, BusinessEnd: 24 * 60, SlotMinutes: 30}
	h := NewAppointmentHandler(gdb, base, nil, zerolog.Nop())

	patientID := "11111111-1111-1111-1111-111111111111"
	doctorID := "22222222-2222-2222-2222-222222222222"

	mock.ExpectQuery(`SELECT .+ FROM .users. WHERE id = .+ AND role = .+`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow(patientID, "patient"))
	mock.ExpectQuery(`SELECT .+ FROM .users. WHERE id = .+ AND role = .+`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow(doctorID, "doctor"))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .+ FROM .doctor_schedules. WHERE doctor_id = .+ FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "doctor_id", "weekday", "start_minute", "end_minute", "slot_minutes", "buffer_minutes", "is_active"},
		).AddRow("sched-1", doctorID, int(when.Weekday()), 0, 24*60, 30, 0, true))
	mock.ExpectQuery(`SELECT .+ FROM .appointments. WHERE doctor_id = .+ FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT count\(\*\) FROM .appointments. WHERE human_id LIKE .+ FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO .appointments.`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	draft := booking.Draft{
		PatientID:   patientID,
		DoctorID:    doctorID,
		Type:        booking.TypeConsultation,
		ScheduledAt: when,
		Mode:        booking.ModeOffline,
	}
	appointment, apiErr := h.persistDraft(draft)
	if apiErr != nil {
		t.Fatalf("persistDraft: %s", apiErr.Message)
	}
	if !strings.HasPrefix(appointment.HumanID, "APT-"+when.Format("20060102")) {
		t.Errorf("unexpected booking number %q", appointment.HumanID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpdateAppointmentStatus_RejectsBookedTarget(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPatch, "/appointments/abc/status", strings.NewReader(`{"status":"booked"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	// Rejection happens before any lookup, so no DB is needed.
	h := &AppointmentHandler{}
	h.UpdateAppointmentStatus(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for status=booked, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "reschedule") {
		t.Errorf("response should point at the reschedule endpoint: %s", w.Body.String())
	}
}
