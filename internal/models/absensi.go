package models

import "time"

// Transition names the attendance state change requested by the caller.
type Transition string

const (
	TransitionMasuk  Transition = "masuk"
	TransitionPulang Transition = "pulang"
)

// Absensi is one attendance row. JamPulang is nil while the person is
// still checked in.
type Absensi struct {
	ID        int64      `json:"id" db:"id"`
	PersonID  int64      `json:"person_id" db:"person_id"`
	Nama      string     `json:"nama" db:"nama"`
	JamMasuk  time.Time  `json:"jam_masuk" db:"jam_masuk"`
	JamPulang *time.Time `json:"jam_pulang,omitempty" db:"jam_pulang"`
}

// AttendanceEvent is the message published to NATS after a successful
// transition and broadcast to WebSocket clients.
type AttendanceEvent struct {
	Type        Transition `json:"type"`
	PersonID    int64      `json:"person_id"`
	Nama        string     `json:"nama"`
	Jam         time.Time  `json:"jam"`
	Confidence  float64    `json:"confidence"`
	SnapshotKey string     `json:"snapshot_key,omitempty"`
}
