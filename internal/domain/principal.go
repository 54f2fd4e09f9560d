package domain

// Principal is the authenticated caller. Every owner-scoped operation takes one explicitly.
type Principal struct {
	UserID string
}

// Validate returns ErrUnauthenticated when the principal carries no user.
func (p Principal) Validate() error {
	if p.UserID == "" {
		return ErrUnauthenticated
	}
	return nil
}
