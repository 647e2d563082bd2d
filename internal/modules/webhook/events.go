package webhook

// EventType describes one kind of domain occurrence that can be subscribed to.
type EventType struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

// EventCategory groups event types for the admin selection UI.
type EventCategory struct {
	Name   string      `json:"name"`
	Events []EventType `json:"events"`
}

const (
	EventPartnerCreated   = "partner.created"
	EventPartnerApproved  = "partner.approved"
	EventPartnerRejected  = "partner.rejected"
	EventPartnerUpdated   = "partner.updated"
	EventPartnerSuspended = "partner.suspended"

	EventLeadCreated       = "lead.created"
	EventLeadUpdated       = "lead.updated"
	EventLeadStatusChanged = "lead.status_changed"
	EventLeadConverted     = "lead.converted"
	EventLeadLost          = "lead.lost"

	EventCommissionCreated  = "commission.created"
	EventCommissionApproved = "commission.approved"
	EventCommissionPaid     = "commission.paid"

	EventCertificationPassed = "certification.passed"
	EventCertificationFailed = "certification.failed"

	EventContentPublished = "content.published"

	EventTeamMemberAdded   = "team.member_added"
	EventTeamMemberRemoved = "team.member_removed"

	// EventTest marks synthetic deliveries sent by the tester. It is not
	// subscribable and never appears in the registry.
	EventTest = "webhook.test"
)

// eventTypes is the registry, in display order.
var eventTypes = [...]EventType{
	{Key: EventPartnerCreated, Label: "Partner created", Category: "Partner"},
	{Key: EventPartnerApproved, Label: "Partner approved", Category: "Partner"},
	{Key: EventPartnerRejected, Label: "Partner rejected", Category: "Partner"},
	{Key: EventPartnerUpdated, Label: "Partner updated", Category: "Partner"},
	{Key: EventPartnerSuspended, Label: "Partner suspended", Category: "Partner"},

	{Key: EventLeadCreated, Label: "Lead created", Category: "Lead"},
	{Key: EventLeadUpdated, Label: "Lead updated", Category: "Lead"},
	{Key: EventLeadStatusChanged, Label: "Lead status changed", Category: "Lead"},
	{Key: EventLeadConverted, Label: "Lead converted", Category: "Lead"},
	{Key: EventLeadLost, Label: "Lead lost", Category: "Lead"},

	{Key: EventCommissionCreated, Label: "Commission created", Category: "Commission"},
	{Key: EventCommissionApproved, Label: "Commission approved", Category: "Commission"},
	{Key: EventCommissionPaid, Label: "Commission paid", Category: "Commission"},

	{Key: EventCertificationPassed, Label: "Certification exam passed", Category: "Certification"},
	{Key: EventCertificationFailed, Label: "Certification exam failed", Category: "Certification"},

	{Key: EventContentPublished, Label: "Content published", Category: "Content"},

	{Key: EventTeamMemberAdded, Label: "Team member added", Category: "Team"},
	{Key: EventTeamMemberRemoved, Label: "Team member removed", Category: "Team"},
}

// eventIndex is a set built from eventTypes for O(1) lookup.
var eventIndex = func() map[string]int {
	out := make(map[string]int, len(eventTypes))
	for i, et := range eventTypes {
		out[et.Key] = i
	}
	return out
}()

// EventTypes returns the registry in display order. The slice is a copy.
func EventTypes() []EventType {
	out := make([]EventType, len(eventTypes))
	copy(out, eventTypes[:])
	return out
}

// IsValidEventType reports whether key is a subscribable event type.
func IsValidEventType(key string) bool {
	_, ok := eventIndex[key]
	return ok
}

// LookupEventType returns the registry entry for key.
func LookupEventType(key string) (EventType, bool) {
	i, ok := eventIndex[key]
	if !ok {
		return EventType{}, false
	}
	return eventTypes[i], true
}

// EventLabel returns a display label for key, including the test marker.
// Unknown keys are returned unchanged.
func EventLabel(key string) string {
	if key == EventTest {
		return "Test delivery"
	}
	if et, ok := LookupEventType(key); ok {
		return et.Label
	}
	return key
}

// EventCategories groups the registry by category, preserving order.
func EventCategories() []EventCategory {
	var out []EventCategory
	pos := map[string]int{}
	for _, et := range eventTypes {
		i, ok := pos[et.Category]
		if !ok {
			i = len(out)
			pos[et.Category] = i
			out = append(out, EventCategory{Name: et.Category})
		}
		out[i].Events = append(out[i].Events, et)
	}
	return out
}
