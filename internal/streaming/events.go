// Package streaming pushes a council turn to an HTTP client as it unfolds,
// as Server-Sent Events carrying a small set of typed council events.
package streaming

import "council/internal/council"

// EventType names one frame in a turn's event stream. Consumers should
// switch on this field rather than on which optional fields are populated.
type EventType string

const (
	EventStageStart      EventType = "stage_start"
	EventStage1Complete  EventType = "stage1_complete"
	EventStage2Complete  EventType = "stage2_complete"
	EventStage3Complete  EventType = "stage3_complete"
	EventTitleComplete   EventType = "title_complete"
	EventComplete        EventType = "complete"
	EventError           EventType = "error"
)

// Event is one frame written to the SSE stream. Exactly one of the payload
// fields is populated, matching Type.
type Event struct {
	Type  EventType `json:"type"`
	Stage int       `json:"stage,omitempty"`

	Stage1 []council.Stage1Result `json:"stage1,omitempty"`
	Stage2 []council.Stage2Result `json:"stage2,omitempty"`
	Stage3 *council.Stage3Result  `json:"stage3,omitempty"`

	Title string `json:"title,omitempty"`

	ConversationID string `json:"conversationId,omitempty"`

	Error string `json:"error,omitempty"`
}

func stageStart(stage int) Event { return Event{Type: EventStageStart, Stage: stage} }

func stage1Complete(results []council.Stage1Result) Event {
	return Event{Type: EventStage1Complete, Stage: 1, Stage1: results}
}

func stage2Complete(results []council.Stage2Result) Event {
	return Event{Type: EventStage2Complete, Stage: 2, Stage2: results}
}

func stage3Complete(result council.Stage3Result) Event {
	return Event{Type: EventStage3Complete, Stage: 3, Stage3: &result}
}

func titleComplete(title string) Event {
	return Event{Type: EventTitleComplete, Title: title}
}

func complete(conversationID string) Event {
	return Event{Type: EventComplete, ConversationID: conversationID}
}

func errorEvent(err error) Event {
	return Event{Type: EventError, Error: err.Error()}
}
