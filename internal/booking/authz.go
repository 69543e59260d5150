package booking

import "github.com/rentalhub/rentalhub-be/internal/models"

// CanManageBooking reports whether actor may approve/reject the booking or
// update its deposit state: admins, or the lister acting on their own
// listing's bookings.
func CanManageBooking(actor models.Actor, property models.Property) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	return actor.Role == property.ListerKind && actor.ID == property.ListerID
}

// CanCancelBooking reports whether actor may cancel: the booking's tenant,
// the property's lister, the booking's snapshotted broker, or an admin.
func CanCancelBooking(actor models.Actor, b models.Booking, property models.Property) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleTenant:
		return actor.ID == b.TenantID
	case models.RoleBroker:
		if b.BrokerID != nil && actor.ID == *b.BrokerID {
			return true
		}
	}
	return actor.Role == property.ListerKind && actor.ID == property.ListerID
}

// CanPayDeposit reports whether actor may pay the booking's deposit: only the
// booking's own tenant.
func CanPayDeposit(actor models.Actor, b models.Booking) bool {
	return actor.Role == models.RoleTenant && actor.ID == b.TenantID
}
