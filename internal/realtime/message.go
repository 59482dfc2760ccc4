package realtime

import (
	"github.com/google/uuid"
)

type Event string

const (
	EventStudyGenerationState  Event = "StudyGenerationState"
	EventStudyUnitOutcome      Event = "StudyUnitOutcome"
	EventStudyGenerationDone   Event = "StudyGenerationDone"
	EventStudyGenerationFailed Event = "StudyGenerationFailed"
)

type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}

// UserChannel is the channel a user's generation progress is published on.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}
