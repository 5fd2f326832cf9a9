package booking

import (
	"errors"
	"time"
)

// Step is an ordinal in the booking wizard.
type Step int

const (
	StepPatient Step = iota
	StepType
	StepDoctor
	StepDate
	StepDetails
	StepConfirm
	StepReceipt
)

func (s Step) String() string {
	switch s {
	case StepPatient:
		return "patient-selection"
	case StepType:
		return "appointment-type"
	case StepDoctor:
		return "doctor-selection"
	case StepDate:
		return "date-selection"
	case StepDetails:
		return "additional-details"
	case StepConfirm:
		return "confirmation"
	case StepReceipt:
		return "receipt"
	}
	return "unknown"
}

// AppointmentType discriminates the draft variants.
type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow-up"
	TypeEmergency    AppointmentType = "emergency"
)

// Mode is how the encounter is held.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// Wizard gate and navigation errors.
var (
	ErrPatientRequired  = errors.New("a patient must be selected before continuing")
	ErrTypeRequired     = errors.New("an appointment type must be selected before continuing")
	ErrFollowUpSource   = errors.New("a follow-up requires a previous appointment with a doctor")
	ErrDoctorRequired   = errors.New("choose a doctor or skip doctor selection before continuing")
	ErrDoctorInherited  = errors.New("follow-up appointments inherit the previous appointment's doctor")
	ErrTimeRequired     = errors.New("an appointment time must be selected before continuing")
	ErrNotAtConfirm     = errors.New("the draft is not at the confirmation step")
	ErrWizardDone       = errors.New("the booking wizard has already completed")
	ErrInvalidBackStep  = errors.New("can only return to an earlier step")
	ErrInvalidType      = errors.New("unknown appointment type")
	ErrInvalidMode      = errors.New("unknown appointment mode")
)

// Draft is the in-progress booking. It lives only inside a wizard session and
// is never persisted: submission assembles a creation request from it.
type Draft struct {
	PatientID             string          `json:"patientId,omitempty"`
	Type                  AppointmentType `json:"type,omitempty"`
	DoctorID              string          `json:"doctorId,omitempty"`
	DoctorSkipped         bool            `json:"doctorSkipped,omitempty"`
	PreviousAppointmentID string          `json:"previousAppointmentId,omitempty"`
	InheritedDoctorID     string          `json:"inheritedDoctorId,omitempty"`
	ScheduledAt           time.Time       `json:"scheduledAt,omitzero"`
	Mode                  Mode            `json:"mode,omitempty"`
	Notes                 string          `json:"notes,omitempty"`
	Symptoms              string          `json:"symptoms,omitempty"`
	CreateNewPatient      bool            `json:"createNewPatient,omitempty"`
}

// Wizard drives the ordered, partially-conditional step sequence. Each
// setter only records input; Advance applies the gate for the current step
// and either moves forward or leaves the step untouched and reports why.
type Wizard struct {
	step  Step
	draft Draft
	cfg   AvailabilityConfig
	now   func() time.Time
}

// NewWizard starts a fresh wizard at patient selection.
func NewWizard(cfg AvailabilityConfig) *Wizard {
	return &Wizard{cfg: cfg, now: time.Now}
}

// Step returns the current step ordinal.
func (w *Wizard) Step() Step { return w.step }

// Draft returns a copy of the in-progress draft.
func (w *Wizard) Draft() Draft { return w.draft }

// SelectPatient records the chosen patient.
func (w *Wizard) SelectPatient(patientID string, createNew bool) {
	w.draft.PatientID = patientID
	w.draft.CreateNewPatient = createNew
}

// ChooseType records the appointment type. A follow-up must name the previous
// appointment and its doctor; the doctor is inherited immediately so the
// invariant holds even before the date step.
func (w *Wizard) ChooseType(t AppointmentType, previousID, previousDoctorID string) error {
	switch t {
	case TypeConsultation, TypeEmergency:
		w.draft.Type = t
		w.draft.PreviousAppointmentID = ""
		w.draft.InheritedDoctorID = ""
		return nil
	case TypeFollowUp:
		if previousID == "" || previousDoctorID == "" {
			return ErrFollowUpSource
		}
		w.draft.Type = t
		w.draft.PreviousAppointmentID = previousID
		w.draft.InheritedDoctorID = previousDoctorID
		w.draft.DoctorID = previousDoctorID
		w.draft.DoctorSkipped = false
		return nil
	}
	return ErrInvalidType
}

// SelectDoctor records the chosen doctor. Rejected for follow-ups, whose
// doctor is fixed by the previous appointment.
func (w *Wizard) SelectDoctor(doctorID string) error {
	if w.draft.Type == TypeFollowUp {
		return ErrDoctorInherited
	}
	w.draft.DoctorID = doctorID
	w.draft.DoctorSkipped = false
	return nil
}

// SkipDoctor leaves the appointment unassigned; legal for any non-follow-up.
func (w *Wizard) SkipDoctor() error {
	if w.draft.Type == TypeFollowUp {
		return ErrDoctorInherited
	}
	w.draft.DoctorID = ""
	w.draft.DoctorSkipped = true
	return nil
}

// SetAvailability swaps the config the date gate checks against. Called when
// a doctor is chosen so the gate sees that doctor's windows and bookings.
func (w *Wizard) SetAvailability(cfg AvailabilityConfig) {
	w.cfg = cfg
}

// SelectTime records the candidate appointment time.
func (w *Wizard) SelectTime(t time.Time) {
	w.draft.ScheduledAt = t
}

// SetDetails records the optional free-text fields and mode.
func (w *Wizard) SetDetails(mode Mode, notes, symptoms string) error {
	if mode != "" && mode != ModeOnline && mode != ModeOffline {
		return ErrInvalidMode
	}
	if mode != "" {
		w.draft.Mode = mode
	}
	w.draft.Notes = notes
	w.draft.Symptoms = symptoms
	return nil
}

// Advance applies the current step's gate and moves forward. A false gate
// leaves the step unchanged and returns the reason. The appointment-type step
// skips doctor selection for follow-ups. Advancing past confirmation is the
// submission path and goes through SubmitSucceeded instead.
func (w *Wizard) Advance() error {
	switch w.step {
	case StepPatient:
		if w.draft.PatientID == "" && !w.draft.CreateNewPatient {
			return ErrPatientRequired
		}
		w.step = StepType
	case StepType:
		switch w.draft.Type {
		case "":
			return ErrTypeRequired
		case TypeFollowUp:
			w.step = StepDate
		default:
			w.step = StepDoctor
		}
	case StepDoctor:
		if w.draft.DoctorID == "" && !w.draft.DoctorSkipped {
			return ErrDoctorRequired
		}
		w.step = StepDate
	case StepDate:
		if w.draft.ScheduledAt.IsZero() {
			return ErrTimeRequired
		}
		if err := CheckBookable(w.draft.ScheduledAt, w.now(), w.cfg); err != nil {
			return err
		}
		w.step = StepDetails
	case StepDetails:
		// Details are optional; confirmation is always reachable from here.
		w.step = StepConfirm
	case StepConfirm:
		return ErrNotAtConfirm
	case StepReceipt:
		return ErrWizardDone
	}
	return nil
}

// Back returns to an earlier step without clearing any downstream fields;
// they stay until overwritten. Not available once the receipt is shown.
func (w *Wizard) Back(to Step) error {
	if w.step == StepReceipt {
		return ErrWizardDone
	}
	if to < StepPatient || to >= w.step {
		return ErrInvalidBackStep
	}
	// A follow-up never presents the doctor step going forward, so going back
	// lands on the type step instead.
	if to == StepDoctor && w.draft.Type == TypeFollowUp {
		to = StepType
	}
	w.step = to
	return nil
}

// SubmitSucceeded moves confirmation to the terminal receipt step. It is the
// only way past confirmation and must be called after the store accepted the
// draft.
func (w *Wizard) SubmitSucceeded() error {
	if w.step != StepConfirm {
		return ErrNotAtConfirm
	}
	w.step = StepReceipt
	return nil
}

// Done reports whether the wizard reached the receipt.
func (w *Wizard) Done() bool { return w.step == StepReceipt }

// Reset discards the draft and returns to the first step. Used for an
// explicit cancel; no partial state survives.
func (w *Wizard) Reset() {
	w.step = StepPatient
	w.draft = Draft{}
}
