package notification

import (
	"slices"

	adminDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/admin"
)

// Admin-facing event types. Admins mute these names individually.
const (
	TypeNewOrder       = "new_order"
	TypePaymentProof   = "payment_proof"
	TypeQRISVerified   = "qris_verified"
	TypeManualVerified = "manual_verified"
	TypePaymentFailed  = "payment_failed"
)

type Admin struct {
	ID                   int64
	ChatID               string
	Name                 string
	NotificationsEnabled bool
	MutedEvents          []string
}

// Wants reports whether the admin has opted in to eventType. Admins receive
// everything unless they disabled notifications or muted the type.
func (a *Admin) Wants(eventType string) bool {
	if !a.NotificationsEnabled {
		return false
	}
	return !slices.Contains(a.MutedEvents, eventType)
}

func AdminFromDataModel(m *adminDatamodel.Admin) *Admin {
	return &Admin{
		ID:                   m.ID,
		ChatID:               m.ChatID,
		Name:                 m.Name,
		NotificationsEnabled: m.NotificationsEnabled,
		MutedEvents:          []string(m.MutedEvents),
	}
}

// Result is the delivery outcome for one admin.
type Result struct {
	AdminID   int64  `json:"admin_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}
