package domain

const (
	RoleUser   = "USER"
	RoleSeller = "ADMIN"
	RoleCenter = "CENTER"
)

type User struct {
	ID    string `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
	Hash  string `db:"password_hash"`
	Role  string `db:"role"`
}

// Capability is something an actor is allowed to do on products.
type Capability uint8

const (
	// CapOwner lets a member manage the products registered to them.
	CapOwner Capability = 1 << iota
	// CapElevated is the platform operator: every product, every coupon.
	CapElevated
)

// Actor is the caller of a service operation, resolved once per request.
type Actor struct {
	MemberID string
	Caps     Capability
}

func (a Actor) Has(c Capability) bool { return a.Caps&c != 0 }

func (a Actor) Elevated() bool { return a.Has(CapElevated) }

// CanManage reports whether the actor may use the product management surface at all.
func (a Actor) CanManage() bool { return a.Has(CapOwner) || a.Has(CapElevated) }

// ActorFor maps a stored role to the capability set. Unknown roles get nothing.
func ActorFor(u *User) Actor {
	if u == nil {
		return Actor{}
	}
	a := Actor{MemberID: u.ID}
	switch u.Role {
	case RoleCenter:
		a.Caps = CapElevated
	case RoleSeller:
		a.Caps = CapOwner
	}
	return a
}
