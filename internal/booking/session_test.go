package booking

import (
	"testing"
	"time"
)

func newTestStore() *SessionStore {
	// Built directly so the tests control the clock and no sweep goroutine
	// runs in the background.
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      30 * time.Minute,
		now:      func() time.Time { return testNow },
	}
}

func TestSessionStore_StartAndMutate(t *testing.T) {
	store := newTestStore()
	sess := store.Start("user-1", clinicConfig())
	if sess.ID == "" || sess.OwnerID != "user-1" {
		t.Fatalf("bad session: %+v", sess)
	}

	err := store.With(sess.ID, "user-1", func(s *Session) error {
		s.Wizard.SelectPatient("patient-1", false)
		return s.Wizard.Advance()
	})
	if err != nil {
		t.Fatal(err)
	}

	err = store.With(sess.ID, "user-1", func(s *Session) error {
		if s.Wizard.Step() != StepType {
			t.Errorf("expected type step, got %s", s.Wizard.Step())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSessionStore_OwnerIsolation(t *testing.T) {
	store := newTestStore()
	sess := store.Start("user-1", clinicConfig())

	// Another user cannot see, mutate, or delete the session; the answer is
	// indistinguishable from an unknown ID.
	err := store.With(sess.ID, "user-2", func(*Session) error { return nil })
	if err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound for foreign owner, got %v", err)
	}
	if err := store.Delete(sess.ID, "user-2"); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound on foreign delete, got %v", err)
	}
	if err := store.With("no-such-id", "user-1", func(*Session) error { return nil }); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound for unknown ID, got %v", err)
	}
}

func TestSessionStore_SessionsAreIndependent(t *testing.T) {
	store := newTestStore()
	a := store.Start("user-1", clinicConfig())
	b := store.Start("user-1", clinicConfig())

	err := store.With(a.ID, "user-1", func(s *Session) error {
		s.Wizard.SelectPatient("patient-1", false)
		return s.Wizard.Advance()
	})
	if err != nil {
		t.Fatal(err)
	}

	_ = store.With(b.ID, "user-1", func(s *Session) error {
		if s.Wizard.Step() != StepPatient {
			t.Errorf("second session moved with the first: %s", s.Wizard.Step())
		}
		return nil
	})
}

func TestSessionStore_SlowRequestDoesNotBlockOtherSessions(t *testing.T) {
	store := newTestStore()
	a := store.Start("user-a", clinicConfig())
	b := store.Start("user-b", clinicConfig())

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = store.With(a.ID, "user-a", func(*Session) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	// user-b's own session must stay reachable while user-a's request is
	// still in flight.
	done := make(chan error, 1)
	go func() {
		done <- store.With(b.ID, "user-b", func(*Session) error { return nil })
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("a slow request on one session blocked another session")
	}
	close(release)
}

func TestSessionStore_RequestsOnOneSessionSerialize(t *testing.T) {
	store := newTestStore()
	sess := store.Start("user-1", clinicConfig())

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = store.With(sess.ID, "user-1", func(*Session) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	done := make(chan error, 1)
	go func() {
		done <- store.With(sess.ID, "user-1", func(*Session) error { return nil })
	}()
	select {
	case <-done:
		t.Fatal("second request ran while the first still held the session")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestSessionStore_DeleteDiscardsDraft(t *testing.T) {
	store := newTestStore()
	sess := store.Start("user-1", clinicConfig())
	if err := store.Delete(sess.ID, "user-1"); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, have %d sessions", store.Len())
	}
	err := store.With(sess.ID, "user-1", func(*Session) error { return nil })
	if err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestSessionStore_ExpireSweepsIdleSessions(t *testing.T) {
	store := newTestStore()
	stale := store.Start("user-1", clinicConfig())
	fresh := store.Start("user-2", clinicConfig())

	// Age the first session past the TTL, keep the second current.
	store.mu.Lock()
	store.sessions[stale.ID].UpdatedAt = testNow.Add(-time.Hour)
	store.mu.Unlock()

	store.expire()

	if err := store.With(stale.ID, "user-1", func(*Session) error { return nil }); err != ErrSessionNotFound {
		t.Errorf("stale session should be gone, got %v", err)
	}
	if err := store.With(fresh.ID, "user-2", func(*Session) error { return nil }); err != nil {
		t.Errorf("fresh session should survive the sweep: %v", err)
	}
}

func TestSessionStore_FailedMutationDoesNotTouchTimestamp(t *testing.T) {
	store := newTestStore()
	sess := store.Start("user-1", clinicConfig())

	later := testNow.Add(10 * time.Minute)
	store.now = func() time.Time { return later }

	// A closed gate returns the error and leaves UpdatedAt alone.
	err := store.With(sess.ID, "user-1", func(s *Session) error {
		return s.Wizard.Advance()
	})
	if err != ErrPatientRequired {
		t.Fatalf("expected gate error, got %v", err)
	}
	store.mu.Lock()
	updated := store.sessions[sess.ID].UpdatedAt
	store.mu.Unlock()
	if !updated.Equal(testNow) {
		t.Errorf("UpdatedAt changed on failed mutation: %v", updated)
	}
}
