package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in-progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// ValidTicketStatus reports whether s is one of the four lifecycle states.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// ValidTicketPriority reports whether p is a known priority.
func ValidTicketPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// Resolution records how a ticket entered the resolved state. The record is
// kept when the ticket later leaves resolved, for audit.
type Resolution struct {
	ResolvedBy string
	Notes      string
	ResolvedAt time.Time
}

// Ticket is the aggregate for tracked support issues. TicketID is the
// human-facing key used for all external lookups; ID is the system key.
type Ticket struct {
	ID          string
	TicketID    string
	OwnerID     string
	Subject     string
	Description string
	Category    string
	Priority    TicketPriority
	Status      TicketStatus
	AssigneeID  *string
	Messages    []Message
	Resolution  *Resolution
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
