package chat

import "github.com/dukerupert/arena/internal/domain"

// Authorize allows the order's owner and admins into its chat.
func Authorize(order *domain.Order, viewer *domain.User) error {
	const op = "chat.authorize"

	if viewer == nil {
		return domain.ErrLoginRequired
	}
	if order.UserID != viewer.ID && !viewer.IsAdmin() {
		return domain.Forbidden(op, "You do not have access to this order")
	}
	return nil
}
