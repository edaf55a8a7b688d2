package fetcher

import (
	"github.com/helixir/metasearch-service/internal/domain"
)

// EventKind names a streaming event.
type EventKind string

const (
	EventStart    EventKind = "start"
	EventProgress EventKind = "progress"
	EventResults  EventKind = "results"
	EventDone     EventKind = "done"
)

// Event is one message of a streaming search. Payload is one of
// StartPayload, ProgressPayload, ResultsPayload or DonePayload, matching Kind.
type Event struct {
	Kind    EventKind
	Payload any
}

// StartPayload opens a session.
type StartPayload struct {
	TotalProviders int `json:"totalProviders"`
}

// ProgressPayload is sent before a provider is called. Current is 1-based.
type ProgressPayload struct {
	Provider domain.Provider `json:"provider"`
	Current  int             `json:"current"`
	Total    int             `json:"total"`
}

// ResultsPayload carries the sources a provider contributed that no
// earlier provider in the session already delivered.
type ResultsPayload struct {
	Provider domain.Provider  `json:"provider"`
	Sources  []*domain.Source `json:"sources"`
}

// DonePayload closes a session.
type DonePayload struct {
	ProvidersSucceeded int `json:"providersSucceeded"`
	ProvidersFailed    int `json:"providersFailed"`
	TotalFound         int `json:"totalFound"`
}

// EmitFunc receives streaming events in order. Returning an error ends the
// session as if the caller had gone away.
type EmitFunc func(Event) error

func startEvent(total int) Event {
	return Event{Kind: EventStart, Payload: StartPayload{TotalProviders: total}}
}

func progressEvent(p domain.Provider, current, total int) Event {
	return Event{Kind: EventProgress, Payload: ProgressPayload{Provider: p, Current: current, Total: total}}
}

func resultsEvent(p domain.Provider, sources []*domain.Source) Event {
	if sources == nil {
		sources = []*domain.Source{}
	}
	return Event{Kind: EventResults, Payload: ResultsPayload{Provider: p, Sources: sources}}
}

func doneEvent(succeeded, failed, total int) Event {
	return Event{Kind: EventDone, Payload: DonePayload{
		ProvidersSucceeded: succeeded,
		ProvidersFailed:    failed,
		TotalFound:         total,
	}}
}
