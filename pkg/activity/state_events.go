package activity

import (
	"strings"
	"time"
)

// Verbs and object type of persistence lifecycle events.
const (
	VerbHydrated      = "state.hydrated"
	VerbHydrateFailed = "state.hydrate_failed"
	VerbPersisted     = "state.persisted"
	VerbPersistFailed = "state.persist_failed"

	ObjectTypeState = "persisted_state"
)

// ScopeContext captures the layer that supplied a session setting.
type ScopeContext struct {
	Name       string
	Label      string
	Priority   int
	Metadata   map[string]any
	SnapshotID string
}

// StateEventInput describes the common fields of persistence events.
type StateEventInput struct {
	ActorID  string
	TenantID string
	// StoreID is the store the session belongs to. It becomes DefinitionCode.
	StoreID string
	// Key is the storage key. It becomes ObjectID.
	Key        string
	Index      int
	Op         string
	Channel    string
	Recipients []string
	Metadata   map[string]any
	Err        error
	Scope      ScopeContext
	OccurredAt time.Time
}

// BuildHydratedEvent constructs the event for a successful hydration.
func BuildHydratedEvent(input StateEventInput) Event {
	return buildStateEvent(VerbHydrated, input)
}

// BuildHydrateFailedEvent constructs the event for a contained hydration failure.
func BuildHydrateFailedEvent(input StateEventInput) Event {
	return buildStateEvent(VerbHydrateFailed, input)
}

// BuildPersistedEvent constructs the event for a successful write.
func BuildPersistedEvent(input StateEventInput) Event {
	return buildStateEvent(VerbPersisted, input)
}

// BuildPersistFailedEvent constructs the event for a contained write failure.
func BuildPersistFailedEvent(input StateEventInput) Event {
	return buildStateEvent(VerbPersistFailed, input)
}

// BuildStateEvent picks the verb from op ("hydrate" or "persist") and err.
func BuildStateEvent(input StateEventInput) Event {
	hydrate := strings.TrimSpace(input.Op) != "persist"
	switch {
	case hydrate && input.Err != nil:
		return BuildHydrateFailedEvent(input)
	case hydrate:
		return BuildHydratedEvent(input)
	case input.Err != nil:
		return BuildPersistFailedEvent(input)
	default:
		return BuildPersistedEvent(input)
	}
}

func buildStateEvent(verb string, input StateEventInput) Event {
	metadata := cloneMap(input.Metadata)
	metadata = ensureMetadata(metadata)
	metadata["store"] = strings.TrimSpace(input.StoreID)
	metadata["index"] = input.Index
	if op := strings.TrimSpace(input.Op); op != "" {
		metadata["op"] = op
	}
	if input.Err != nil {
		metadata["error"] = input.Err.Error()
	}
	if input.Scope.Name != "" {
		metadata["scope_name"] = input.Scope.Name
		metadata["scope_priority"] = input.Scope.Priority
		if input.Scope.Label != "" {
			metadata["scope_label"] = input.Scope.Label
		}
		if len(input.Scope.Metadata) > 0 {
			metadata["scope_metadata"] = cloneMap(input.Scope.Metadata)
		}
	}
	if input.Scope.SnapshotID != "" {
		metadata["snapshot_id"] = input.Scope.SnapshotID
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.Key)
	if objectID == "" {
		objectID = strings.TrimSpace(input.StoreID)
	}
	if objectID == "" {
		objectID = ObjectTypeState
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     ObjectTypeState,
		ObjectID:       objectID,
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.StoreID),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
