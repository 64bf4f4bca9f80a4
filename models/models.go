package models

import (
	"github.com/google/uuid"
)

// All lists every model in dependency order for migrations.
func All() []interface{} {
	return []interface{}{
		&Location{},
		&Product{},
		&Driver{},
		&DriverProductPrice{},
		&Client{},
		&Order{},
		&OrderItem{},
		&ScheduledOrder{},
		&ScheduledOrderItem{},
		&DriverPayment{},
		&PaymentTransaction{},
		&DriverWithdrawal{},
		&DriverEarning{},
		&Admin{},
	}
}

// ensureID assigns a fresh UUID when the row has none yet.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
