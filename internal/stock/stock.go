package stock

import (
	"time"

	stockDatamodel "github.com/frahmantamala/shopbot-engine/internal/core/datamodel/stock"
)

const (
	ReasonSale       = "payment_verified"
	ReasonAdminSet   = "admin_set"
	ReasonRestock    = "restock"
	DefaultHistoryN  = 20
	MaxHistoryN      = 200
	ActorSystem      = "system"
	actorAdminPrefix = "admin:"
)

// Level is the read view of one product's stock.
type Level struct {
	ProductID          int64     `json:"product_id" db:"product_id"`
	ProductName        string    `json:"product_name" db:"product_name"`
	CurrentQuantity    int       `json:"current_quantity" db:"current_quantity"`
	ReservedQuantity   int       `json:"reserved_quantity" db:"reserved_quantity"`
	AvailableQuantity  int       `json:"available_quantity" db:"-"`
	AvailabilityStatus string    `json:"availability_status" db:"availability_status"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

func (l *Level) computeAvailable() {
	l.AvailableQuantity = l.CurrentQuantity - l.ReservedQuantity
	if l.AvailableQuantity < 0 {
		l.AvailableQuantity = 0
	}
}

// Change describes one committed ledger mutation.
type Change struct {
	ProductID          int64     `json:"product_id"`
	PreviousQuantity   int       `json:"previous_quantity"`
	NewQuantity        int       `json:"new_quantity"`
	ActorID            string    `json:"actor_id"`
	AvailabilityStatus string    `json:"availability_status"`
	ChangedAt          time.Time `json:"changed_at"`
}

type HistoryEntry struct {
	ID               int64     `json:"id"`
	ProductID        int64     `json:"product_id"`
	PreviousQuantity int       `json:"previous_quantity"`
	NewQuantity      int       `json:"new_quantity"`
	ActorID          string    `json:"actor_id"`
	Reason           string    `json:"reason"`
	CreatedAt        time.Time `json:"created_at"`
}

func HistoryFromDataModel(h *stockDatamodel.History) *HistoryEntry {
	return &HistoryEntry{
		ID:               h.ID,
		ProductID:        h.ProductID,
		PreviousQuantity: h.PreviousQuantity,
		NewQuantity:      h.NewQuantity,
		ActorID:          h.ActorID,
		Reason:           h.Reason,
		CreatedAt:        h.CreatedAt,
	}
}

// AdminActor formats an admin id as a history actor.
func AdminActor(adminID string) string {
	return actorAdminPrefix + adminID
}
