package alarm

import "time"

// Record is a persisted request plus its last known schedule.
type Record struct {
	Request   *Request  `json:"request"`
	Trigger   *Trigger  `json:"trigger"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy of the record so stores never leak internal references.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	cloned := &Record{
		Request:   r.Request.Clone(),
		UpdatedAt: r.UpdatedAt,
	}

	if r.Trigger != nil {
		trigger := *r.Trigger

		if r.Trigger.Match != nil {
			trigger.Match = make(CalendarMatch, len(r.Trigger.Match))
			for k, v := range r.Trigger.Match {
				trigger.Match[k] = v
			}
		}

		cloned.Trigger = &trigger
	}

	return cloned
}

// Scheduled pairs a record with its next occurrence.
// Next is zero for a one-shot alarm that has already fired.
type Scheduled struct {
	Record *Record
	Next   time.Time
}
