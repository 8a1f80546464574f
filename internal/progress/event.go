package progress

import (
	"encoding/json"
	"time"
)

// EventType discriminates progress events.
type EventType string

const (
	TypeStart     EventType = "start"
	TypeSchedule  EventType = "schedule"
	TypeItem      EventType = "item"
	TypeEnd       EventType = "end"
	TypeHeartbeat EventType = "heartbeat"
)

// ItemStatus is the outcome reported for one attempted contact.
type ItemStatus string

const (
	StatusSuccess ItemStatus = "success"
	StatusError   ItemStatus = "error"
	StatusSkipped ItemStatus = "skipped"
	StatusStopped ItemStatus = "stopped"
)

// EndReason explains an early run end. Empty means the run finished normally.
type EndReason string

const (
	ReasonDailyQuota EndReason = "daily_quota"
	ReasonManualStop EndReason = "manual_stop"
)

// Event is one progress notification. Which fields are meaningful depends
// on Type; MarshalJSON emits only those.
type Event struct {
	Type EventType
	At   time.Time

	Total int // start

	Planned        []time.Time // schedule
	RemainingToday int
	Cap            int

	Name   string // item
	Phone  string
	OK     bool
	Status ItemStatus

	Processed int // end
	Reason    EndReason
}

// StartEvent announces a run with the current queue size.
func StartEvent(total int, at time.Time) Event {
	return Event{Type: TypeStart, Total: total, At: at}
}

// ScheduleEvent announces the planned dispatch instants.
func ScheduleEvent(planned []time.Time, remainingToday, cap int, at time.Time) Event {
	return Event{Type: TypeSchedule, Planned: planned, RemainingToday: remainingToday, Cap: cap, At: at}
}

// ItemEvent reports one resolved contact.
func ItemEvent(name, phone string, ok bool, status ItemStatus, at time.Time) Event {
	return Event{Type: TypeItem, Name: name, Phone: phone, OK: ok, Status: status, At: at}
}

// EndEvent closes a run.
func EndEvent(processed int, reason EndReason, at time.Time) Event {
	return Event{Type: TypeEnd, Processed: processed, Reason: reason, At: at}
}

// HeartbeatEvent keeps idle streams alive. It is never buffered for replay.
func HeartbeatEvent(at time.Time) Event {
	return Event{Type: TypeHeartbeat, At: at}
}

const wireTime = time.RFC3339

// MarshalJSON renders the wire shape for the event's type.
func (e Event) MarshalJSON() ([]byte, error) {
	at := e.At.UTC().Format(wireTime)
	switch e.Type {
	case TypeStart:
		return json.Marshal(struct {
			Type  EventType `json:"type"`
			Total int       `json:"total"`
			At    string    `json:"at"`
		}{e.Type, e.Total, at})
	case TypeSchedule:
		planned := make([]string, len(e.Planned))
		for i, p := range e.Planned {
			planned[i] = p.UTC().Format(wireTime)
		}
		return json.Marshal(struct {
			Type           EventType `json:"type"`
			Planned        []string  `json:"planned"`
			RemainingToday int       `json:"remainingToday"`
			Cap            int       `json:"cap"`
		}{e.Type, planned, e.RemainingToday, e.Cap})
	case TypeItem:
		return json.Marshal(struct {
			Type   EventType  `json:"type"`
			Name   string     `json:"name"`
			Phone  string     `json:"phone"`
			OK     bool       `json:"ok"`
			Status ItemStatus `json:"status"`
			At     string     `json:"at"`
		}{e.Type, e.Name, e.Phone, e.OK, e.Status, at})
	case TypeEnd:
		return json.Marshal(struct {
			Type      EventType `json:"type"`
			Processed int       `json:"processed"`
			At        string    `json:"at"`
			Reason    EndReason `json:"reason,omitempty"`
		}{e.Type, e.Processed, at, e.Reason})
	default:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			At   string    `json:"at"`
		}{e.Type, at})
	}
}
