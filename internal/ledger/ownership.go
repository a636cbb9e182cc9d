package ledger

// Ownership says who a category belongs to. It is either System or
// UserOwned; system categories are shared and read-only to every user.
type Ownership interface {
	ownership()
	// CanModify reports whether userID may edit or delete the category.
	CanModify(userID string) bool
	// VisibleTo reports whether userID may see and attach the category.
	VisibleTo(userID string) bool
}

type System struct{}

func (System) ownership()            {}
func (System) CanModify(string) bool { return false }
func (System) VisibleTo(string) bool { return true }

type UserOwned struct {
	UserID string
}

func (UserOwned) ownership() {}

func (o UserOwned) CanModify(userID string) bool {
	return userID != "" && o.UserID == userID
}

func (o UserOwned) VisibleTo(userID string) bool {
	return o.CanModify(userID)
}

// OwnershipFromColumn maps the nullable user_id column.
func OwnershipFromColumn(userID *string) Ownership {
	if userID == nil || *userID == "" {
		return System{}
	}
	return UserOwned{UserID: *userID}
}

// OwnerColumn is the inverse of OwnershipFromColumn.
func OwnerColumn(o Ownership) *string {
	if owned, ok := o.(UserOwned); ok {
		id := owned.UserID
		return &id
	}
	return nil
}

func IsSystem(o Ownership) bool {
	_, ok := o.(System)
	return ok
}
