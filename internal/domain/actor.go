package domain

// ActorKind classifies who is performing a store mutation.
type ActorKind string

const (
	ActorEndUser   ActorKind = "user"
	ActorAdmin     ActorKind = "admin"
	ActorAssistant ActorKind = "ai"
)

// Actor is the capability-bearing identity behind a mutation. Services
// branch on capability here, at the start of each operation, rather than
// duplicating field-assignment paths per role.
type Actor struct {
	ID   string
	Kind ActorKind
}

// IsStaff reports whether the actor holds the administrative tier.
func (a Actor) IsStaff() bool {
	return a.Kind == ActorAdmin
}

// ChatRole maps the actor to the message role used in chat threads.
func (a Actor) ChatRole() MessageRole {
	if a.Kind == ActorAssistant {
		return MessageRoleAI
	}
	return MessageRoleUser
}

// TicketRole maps the actor to the message role used in ticket threads.
func (a Actor) TicketRole() MessageRole {
	if a.Kind == ActorAdmin {
		return MessageRoleAdmin
	}
	return MessageRoleUser
}

// ActorForUser builds an actor from an authenticated account.
func ActorForUser(u *User) Actor {
	kind := ActorEndUser
	if u.Role == UserRoleAdmin {
		kind = ActorAdmin
	}
	return Actor{ID: u.ID, Kind: kind}
}
