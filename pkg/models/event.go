package models

import (
	"encoding/json"
	"time"
)

// Properties is the opaque, JSON-serialisable payload attached to an event.
type Properties map[string]any

// Event is one recorded interaction. Events are never modified after creation.
type Event struct {
	Time       time.Time  `json:"-"`
	Type       string     `json:"-"`
	Properties Properties `json:"-"`
}

// State is the full blob a usage log persists through its storage backend.
type State struct {
	Events      []Event
	LastCleaned time.Time
}

type eventJSON struct {
	Time       int64      `json:"time"`
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
}

type stateJSON struct {
	Events      []Event `json:"events"`
	LastCleaned int64   `json:"lastCleaned,omitempty"`
}

// MarshalJSON encodes the event with its time as epoch milliseconds.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventJSON{
		Time:       e.Time.UnixMilli(),
		Type:       e.Type,
		Properties: e.Properties,
	})
}

// UnmarshalJSON decodes an event whose time is epoch milliseconds.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Time = time.UnixMilli(raw.Time)
	e.Type = raw.Type
	e.Properties = raw.Properties
	return nil
}

// MarshalJSON encodes the state in its persisted shape. A zero LastCleaned is
// omitted so readers substitute their own default.
func (s State) MarshalJSON() ([]byte, error) {
	out := stateJSON{Events: s.Events}
	if out.Events == nil {
		out.Events = []Event{}
	}
	if !s.LastCleaned.IsZero() {
		out.LastCleaned = s.LastCleaned.UnixMilli()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the persisted shape. Missing fields stay zero.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Events = raw.Events
	s.LastCleaned = time.Time{}
	if raw.LastCleaned != 0 {
		s.LastCleaned = time.UnixMilli(raw.LastCleaned)
	}
	return nil
}

// Clone returns a deep copy of the state. Property maps are copied one level
// deep; nested values are shared.
func (s State) Clone() State {
	out := State{LastCleaned: s.LastCleaned}
	if s.Events != nil {
		out.Events = make([]Event, len(s.Events))
		for i, ev := range s.Events {
			out.Events[i] = ev.Clone()
		}
	}
	return out
}

// Clone returns a copy of the event with its own property map.
func (e Event) Clone() Event {
	out := e
	out.Properties = e.Properties.Clone()
	return out
}

// Clone copies the map one level deep. Nil stays nil and empty stays empty.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
