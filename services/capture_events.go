package services

import (
	"strconv"

	"backend/models"
)

// CaptureEvents notifies the user about pipeline progress over whichever
// channels are configured. A nil receiver (or nil channels) is a no-op, so
// pipelines can emit unconditionally.
type CaptureEvents struct {
	hub  *RealtimeHub
	push *PushService
}

func NewCaptureEvents(hub *RealtimeHub, push *PushService) *CaptureEvents {
	return &CaptureEvents{hub: hub, push: push}
}

func (e *CaptureEvents) StatusChanged(userID, sessionID uint, status, provider string) {
	if e == nil {
		return
	}
	if e.hub != nil {
		e.hub.Broadcast(userID, map[string]any{
			"kind":       "capture.status",
			"session_id": sessionID,
			"status":     status,
			"provider":   provider,
		})
	}
	if e.push != nil && status == models.CaptureStatusCompleted {
		e.push.PushToUser(userID, "Meal analysis ready",
			"Your meal capture has been analyzed. Review it to log your meal.",
			map[string]string{"session_id": uitoa(sessionID)})
	}
}

func (e *CaptureEvents) Converted(userID, sessionID, logID uint) {
	if e == nil || e.hub == nil {
		return
	}
	e.hub.Broadcast(userID, map[string]any{
		"kind":             "capture.converted",
		"session_id":       sessionID,
		"nutrition_log_id": logID,
	})
}

func uitoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
