package domain

// ActorKind says who is acting on an order.
type ActorKind string

const (
	ActorVendor   ActorKind = "VENDOR"
	ActorAdmin    ActorKind = "ADMIN"
	ActorCustomer ActorKind = "CUSTOMER"
	ActorSystem   ActorKind = "SYSTEM"
)

// Actor is the identity supplied by the session layer. Authentication
// happens upstream; the engine only checks ownership.
type Actor struct {
	Kind ActorKind
	ID   string
}

func Vendor(id string) Actor   { return Actor{Kind: ActorVendor, ID: id} }
func Admin(id string) Actor    { return Actor{Kind: ActorAdmin, ID: id} }
func Customer(id string) Actor { return Actor{Kind: ActorCustomer, ID: id} }

// System is used for transitions the engine applies on its own, such as lazy expiry.
var System = Actor{Kind: ActorSystem, ID: "system"}

// String renders the actor as kind:id for logs and the activity trail.
func (a Actor) String() string {
	if a.Kind == "" {
		return a.ID
	}
	return string(a.Kind) + ":" + a.ID
}

// CanManage reports whether the actor may transition a sub-order owned by vendorID.
func (a Actor) CanManage(vendorID string) bool {
	switch a.Kind {
	case ActorAdmin, ActorSystem:
		return a.ID != ""
	case ActorVendor:
		return a.ID != "" && a.ID == vendorID
	}
	return false
}
