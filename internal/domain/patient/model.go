package patient

import (
	"time"

	"github.com/google/uuid"
)

// SeniorAge is the age from which a patient qualifies for senior priority.
const SeniorAge = 65

// Record maps to the patient table. QueueNumber is unique per QueueDate and
// monotonically assigned; IsServed transitions false to true exactly once.
type Record struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Age          int        `db:"age" json:"age"`
	IsEmergency  bool       `db:"is_emergency" json:"is_emergency"`
	IsServed     bool       `db:"is_served" json:"is_served"`
	QueueNumber  int        `db:"queue_number" json:"queue_number"`
	QueueDate    time.Time  `db:"queue_date" json:"queue_date"`
	RegisteredAt time.Time  `db:"registered_at" json:"registered_at"`
	ServedAt     *time.Time `db:"served_at" json:"served_at,omitempty"`
}

// IsSenior reports whether the patient qualifies for senior priority.
func (r *Record) IsSenior() bool {
	return r.Age >= SeniorAge
}

// QueueEntry is the view of a waiting patient exposed to queue displays.
// Served records never appear as entries.
type QueueEntry struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Age          int       `json:"age"`
	IsEmergency  bool      `json:"is_emergency"`
	IsSenior     bool      `json:"is_senior"`
	QueueNumber  int       `json:"queue_number"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Stats aggregates the day's queue counters for the dashboard.
type Stats struct {
	Waiting          int `json:"waiting"`
	EmergencyWaiting int `json:"emergency_waiting"`
	ServedToday      int `json:"served_today"`
}

func entryFromRecord(r *Record) *QueueEntry {
	return &QueueEntry{
		ID:           r.ID,
		Name:         r.Name,
		Age:          r.Age,
		IsEmergency:  r.IsEmergency,
		IsSenior:     r.IsSenior(),
		QueueNumber:  r.QueueNumber,
		RegisteredAt: r.RegisteredAt,
	}
}
