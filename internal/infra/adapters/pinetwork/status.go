package pinetwork

import (
	"encoding/json"
	"strings"

	"openapp-settlement/internal/domain/ports/adapter"
)

// The platform has shipped two encodings for payment status: a plain string
// and an object of developer/user flags. Both collapse here, and nowhere
// else, into the normalized enum.
func normalizeStatus(raw json.RawMessage) adapter.NetworkStatus {
	if len(raw) == 0 {
		return adapter.StatusUnknown
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(s) {
		case "authorized", "approved":
			return adapter.StatusApproved
		case "completed":
			return adapter.StatusCompleted
		case "cancelled", "user_cancelled":
			return adapter.StatusCancelled
		default:
			return adapter.StatusUnknown
		}
	}

	var flags struct {
		DeveloperApproved             bool `json:"developer_approved"`
		DeveloperCompletedTransaction bool `json:"developer_completed_transaction"`
		UserCancelled                 bool `json:"user_cancelled"`
		Cancelled                     bool `json:"cancelled"`
	}
	if err := json.Unmarshal(raw, &flags); err != nil {
		return adapter.StatusUnknown
	}
	switch {
	case flags.UserCancelled || flags.Cancelled:
		return adapter.StatusCancelled
	case flags.DeveloperCompletedTransaction:
		return adapter.StatusCompleted
	case flags.DeveloperApproved:
		return adapter.StatusApproved
	default:
		return adapter.StatusUnknown
	}
}
