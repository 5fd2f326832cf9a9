package booking

import (
	"testing"
	"time"
)

func newTestWizard() *Wizard {
	w := NewWizard(clinicConfig())
	w.now = func() time.Time { return testNow }
	return w
}

// Walks a consultation draft up to the confirmation step.
func draftAtConfirm(t *testing.T) *Wizard {
	t.Helper()
	w := newTestWizard()
	w.SelectPatient("patient-1", false)
	mustAdvance(t, w)
	if err := w.ChooseType(TypeConsultation, "", ""); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, w)
	if err := w.SelectDoctor("doctor-1"); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, w)
	w.SelectTime(at(14, 10, 0))
	mustAdvance(t, w)
	if err := w.SetDetails(ModeOffline, "first visit", "headache"); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, w)
	if w.Step() != StepConfirm {
		t.Fatalf("expected confirmation step, got %s", w.Step())
	}
	return w
}

func mustAdvance(t *testing.T, w *Wizard) {
	t.Helper()
	if err := w.Advance(); err != nil {
		t.Fatalf("advance from %s: %v", w.Step(), err)
	}
}

func TestWizard_HappyPathConsultation(t *testing.T) {
	w := draftAtConfirm(t)
	if err := w.SubmitSucceeded(); err != nil {
		t.Fatal(err)
	}
	if !w.Done() {
		t.Error("wizard should be done after successful submit")
	}
	d := w.Draft()
	if d.PatientID != "patient-1" || d.DoctorID != "doctor-1" || d.Type != TypeConsultation {
		t.Errorf("draft lost fields: %+v", d)
	}
}

func TestWizard_GateHoldsStepOnFailure(t *testing.T) {
	w := newTestWizard()

	// No patient selected: step must stay put.
	if err := w.Advance(); err != ErrPatientRequired {
		t.Fatalf("expected ErrPatientRequired, got %v", err)
	}
	if w.Step() != StepPatient {
		t.Fatalf("step moved despite closed gate: %s", w.Step())
	}

	w.SelectPatient("patient-1", false)
	mustAdvance(t, w)
	if err := w.Advance(); err != ErrTypeRequired {
		t.Fatalf("expected ErrTypeRequired, got %v", err)
	}
	if w.Step() != StepType {
		t.Fatalf("step moved despite closed gate: %s", w.Step())
	}
}

func TestWizard_DoctorStepRequiresChoiceOrSkip(t *testing.T) {
	w := newTestWizard()
	w.SelectPatient("patient-1", false)
	mustAdvance(t, w)
	if err := w.ChooseType(TypeConsultation, "", ""); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, w)

	if err := w.Advance(); err != ErrDoctorRequired {
		t.Fatalf("expected ErrDoctorRequired, got %v", err)
	}

	// Explicit skip is a legal gate: the appointment ends up unassigned.
	if err := w.SkipDoctor(); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, w)
	if w.Step() != StepDate {
		t.Fatalf("expected date step after skip, got %s", w.Step())
	}
	if d := w.Draft(); d.DoctorID != "" || !d.DoctorSkipped {
		t.Errorf("skip should leave doctor empty: %+v", d)
	}
}

func TestWizard_FollowUpSkipsDoctorStep(t *testing.T) {
	w := newTestWizard()
	w.SelectPatient("patient-1", false)
	mustAdvance(t, w)

	if err := w.ChooseType(TypeFollowUp, "appt-9", "doctor-7"); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, w)

	if w.Step() != StepDate {
		t.Fatalf("follow-up must advance straight to date selection, got %s", w.Step())
	}
	if d := w.Draft(); d.DoctorID != "doctor-7" || d.InheritedDoctorID != "doctor-7" {
		t.Errorf("follow-up must inherit the previous appointment's doctor: %+v", d)
	}

	// The inherited doctor cannot be overridden.
	if err := w.SelectDoctor("doctor-2"); err != ErrDoctorInherited {
		t.Fatalf("expected ErrDoctorInherited, got %v", err)
	}
	if err := w.SkipDoctor(); err != ErrDoctorInherited {
		t.Fatalf("expected ErrDoctorInherited on skip, got %v", err)
	}
}

func TestWizard_BackNeverLandsOnDoctorStepForFollowUps(t *testing.T) {
	w := newTestWizard()
	w.SelectPatient("patient-1", false)
	mustAdvance(t, w)
	if err := w.ChooseType(TypeFollowUp, "appt-9", "doctor-7"); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, w)
	if w.Step() != StepDate {
		t.Fatalf("expected date step, got %s", w.Step())
	}

	if err := w.Back(StepDoctor); err != nil {
		t.Fatal(err)
	}
	if w.Step() != StepType {
		t.Fatalf("follow-up landed on the doctor step, got %s", w.Step())
	}
}

func TestWizard_FollowUpWithoutSourceRejected(t *testing.T) {
	w := newTestWizard()
	if err := w.ChooseType(TypeFollowUp, "", ""); err != ErrFollowUpSource {
		t.Fatalf("expected ErrFollowUpSource, got %v", err)
	}
	if err := w.ChooseType(TypeFollowUp, "appt-9", ""); err != ErrFollowUpSource {
		t.Fatalf("expected ErrFollowUpSource without a doctor, got %v", err)
	}
}

func TestWizard_DateGateUsesAvailability(t *testing.T) {
	w := newTestWizard()
	w.SelectPatient("patient-1", false)
	mustAdvance(t, w)
	if err := w.ChooseType(TypeConsultation, "", ""); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, w)
	if err := w.SkipDoctor(); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, w)

	// Saturday Aug 16 2025 10:00: the gate stays closed.
	w.SelectTime(at(16, 10, 0))
	if err := w.Advance(); err != ErrExcludedWeekday {
		t.Fatalf("expected ErrExcludedWeekday, got %v", err)
	}
	if w.Step() != StepDate {
		t.Fatalf("step moved on unbookable time: %s", w.Step())
	}

	// Thursday Aug 14 2025 10:00 opens it.
	w.SelectTime(at(14, 10, 0))
	mustAdvance(t, w)
	if w.Step() != StepDetails {
		t.Fatalf("expected details step, got %s", w.Step())
	}
}

func TestWizard_BackKeepsDownstreamFields(t *testing.T) {
	w := draftAtConfirm(t)
	if err := w.Back(StepDoctor); err != nil {
		t.Fatal(err)
	}
	if w.Step() != StepDoctor {
		t.Fatalf("expected doctor step, got %s", w.Step())
	}
	d := w.Draft()
	if d.ScheduledAt.IsZero() || d.Notes != "first visit" || d.Symptoms != "headache" {
		t.Errorf("back navigation cleared downstream fields: %+v", d)
	}

	// Re-advancing overwrites nothing that was not touched.
	if err := w.SelectDoctor("doctor-2"); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, w)
	mustAdvance(t, w)
	mustAdvance(t, w)
	if w.Step() != StepConfirm {
		t.Fatalf("expected to be back at confirmation, got %s", w.Step())
	}
	if got := w.Draft().DoctorID; got != "doctor-2" {
		t.Errorf("expected overwritten doctor, got %q", got)
	}
}

func TestWizard_BackwardNavigationBounds(t *testing.T) {
	w := draftAtConfirm(t)
	if err := w.Back(StepConfirm); err != ErrInvalidBackStep {
		t.Fatalf("expected ErrInvalidBackStep for current step, got %v", err)
	}
	if err := w.Back(Step(99)); err != ErrInvalidBackStep {
		t.Fatalf("expected ErrInvalidBackStep for forward jump, got %v", err)
	}
	if err := w.SubmitSucceeded(); err != nil {
		t.Fatal(err)
	}
	if err := w.Back(StepPatient); err != ErrWizardDone {
		t.Fatalf("expected ErrWizardDone after receipt, got %v", err)
	}
}

func TestWizard_FailedSubmitPreservesDraft(t *testing.T) {
	w := draftAtConfirm(t)
	before := w.Draft()

	// The store rejected the draft (availability conflict): the wizard is
	// not told of success, so it stays at confirmation with everything
	// entered intact, ready for retry.
	if w.Step() != StepConfirm {
		t.Fatalf("expected confirmation step, got %s", w.Step())
	}
	if w.Draft() != before {
		t.Error("draft changed without a successful submit")
	}
	if err := w.Advance(); err != ErrNotAtConfirm {
		t.Fatalf("plain advance must not pass confirmation, got %v", err)
	}
}

func TestWizard_SubmitOnlyFromConfirm(t *testing.T) {
	w := newTestWizard()
	if err := w.SubmitSucceeded(); err != ErrNotAtConfirm {
		t.Fatalf("expected ErrNotAtConfirm, got %v", err)
	}
}

func TestWizard_ResetDiscardsEverything(t *testing.T) {
	w := draftAtConfirm(t)
	w.Reset()
	if w.Step() != StepPatient {
		t.Fatalf("expected first step after reset, got %s", w.Step())
	}
	if w.Draft() != (Draft{}) {
		t.Errorf("reset left draft state behind: %+v", w.Draft())
	}
}

func TestWizard_InvalidTypeAndMode(t *testing.T) {
	w := newTestWizard()
	if err := w.ChooseType("walk-in", "", ""); err != ErrInvalidType {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if err := w.SetDetails("hybrid", "", ""); err != ErrInvalidMode {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}
