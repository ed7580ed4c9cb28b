package monitor

import (
	"time"

	"RiskSentinel/internal/model"
)

// DedupWindow suppresses an alert that repeats the symbol and type of one of
// the Size most recent alerts within Cooldown.
type DedupWindow struct {
	Size     int
	Cooldown time.Duration
}

// DefaultDedupWindow checks the last 10 alerts with a five minute cooldown.
func DefaultDedupWindow() DedupWindow {
	return DedupWindow{Size: 10, Cooldown: 300 * time.Second}
}

// IsDuplicate reports whether incoming matches a retained alert. Only the
// last Size entries of recent (oldest first) are considered.
func (w DedupWindow) IsDuplicate(recent []model.Alert, incoming model.Alert) bool {
	if len(recent) > w.Size {
		recent = recent[len(recent)-w.Size:]
	}
	for i := len(recent) - 1; i >= 0; i-- {
		r := recent[i]
		if r.Symbol != incoming.Symbol || r.Type != incoming.Type {
			continue
		}
		gap := incoming.Timestamp.Sub(r.Timestamp)
		if gap < 0 {
			gap = -gap
		}
		if gap < w.Cooldown {
			return true
		}
	}
	return false
}
