package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
)

func generateTicketKey() string {
	return "SD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func callerActor(caller auth.Caller) events.Actor {
	return events.Actor{
		Role:         caller.Role,
		UserID:       caller.UserID,
		TechnicianID: caller.TechnicianID,
	}
}

// aiActorID attributes automated mutations in audit rows and events.
const aiActorID = "system:ai"

func systemActor() events.Actor {
	return events.Actor{Role: domain.RoleSystem, UserID: aiActorID}
}

// auditEntry builds one ledger row attributed to the caller.
func auditEntry(ticketID string, action domain.AuditAction, oldValue, newValue *string, comment string, performedBy string) domain.AuditEntry {
	return domain.AuditEntry{
		TicketID:    ticketID,
		Action:      action,
		OldValue:    oldValue,
		NewValue:    newValue,
		Comment:     comment,
		PerformedBy: performedBy,
	}
}

func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func strPtr(v string) *string {
	return &v
}

func derefOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
