package lifecycle

import (
	"time"

	"github.com/partnerhub/core/internal/modules/webhook"
	"go.uber.org/zap"
)

// EventFirer is the fire-and-forget side of the webhook service.
type EventFirer interface {
	FireEvent(eventType string, data map[string]interface{})
}

// Partner is the subset of partner fields exposed to webhook receivers.
type Partner struct {
	ID          string
	CompanyName string
	Tier        string
	Status      string
}

type Lead struct {
	ID          string
	PartnerID   string
	CompanyName string
	ContactName string
	Status      string
	Value       float64
}

type Commission struct {
	ID        string
	PartnerID string
	LeadID    string
	Amount    float64
	Currency  string
	Status    string
}

type Certification struct {
	ID        string
	PartnerID string
	UserID    string
	Course    string
	Score     int
}

type Content struct {
	ID    string
	Type  string
	Title string
}

type TeamMember struct {
	PartnerID string
	UserID    string
	Email     string
	Role      string
}

// Notifier translates business state changes into webhook events.
type Notifier struct {
	firer  EventFirer
	logger *zap.Logger
	now    func() time.Time
}

func New(firer EventFirer, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{firer: firer, logger: logger.Named("Lifecycle"), now: time.Now}
}

func (n *Notifier) fire(eventType string, data map[string]interface{}) {
	if n == nil || n.firer == nil {
		return
	}
	n.logger.Debug("firing webhook event", zap.String("event", eventType))
	n.firer.FireEvent(eventType, data)
}

func partnerData(p Partner) map[string]interface{} {
	return map[string]interface{}{
		"partner_id":   p.ID,
		"company_name": p.CompanyName,
		"tier":         p.Tier,
		"status":       p.Status,
	}
}

func (n *Notifier) OnPartnerCreated(p Partner) {
	n.fire(webhook.EventPartnerCreated, partnerData(p))
}

func (n *Notifier) OnPartnerApproved(p Partner, approvedBy string) {
	data := partnerData(p)
	data["approved_by"] = approvedBy
	data["approved_at"] = n.now().UTC().Format(webhook.TimestampLayout)
	n.fire(webhook.EventPartnerApproved, data)
}

func (n *Notifier) OnPartnerRejected(p Partner, reason string) {
	data := partnerData(p)
	data["reason"] = reason
	n.fire(webhook.EventPartnerRejected, data)
}

// OnPartnerUpdated carries the names of the changed fields only.
func (n *Notifier) OnPartnerUpdated(p Partner, changed []string) {
	data := partnerData(p)
	data["changed_fields"] = changed
	n.fire(webhook.EventPartnerUpdated, data)
}

func (n *Notifier) OnPartnerSuspended(p Partner, reason string) {
	data := partnerData(p)
	data["reason"] = reason
	n.fire(webhook.EventPartnerSuspended, data)
}

func leadData(l Lead) map[string]interface{} {
	return map[string]interface{}{
		"lead_id":      l.ID,
		"partner_id":   l.PartnerID,
		"company_name": l.CompanyName,
		"contact_name": l.ContactName,
		"status":       l.Status,
		"value":        l.Value,
	}
}

func (n *Notifier) OnLeadCreated(l Lead) {
	n.fire(webhook.EventLeadCreated, leadData(l))
}

func (n *Notifier) OnLeadUpdated(l Lead) {
	n.fire(webhook.EventLeadUpdated, leadData(l))
}

// OnLeadStatusChanged fires lead.status_changed and, for the terminal
// statuses "won" and "lost", the matching lead.converted or lead.lost event.
func (n *Notifier) OnLeadStatusChanged(l Lead, previous string) {
	if previous == l.Status {
		return
	}
	data := leadData(l)
	data["previous_status"] = previous
	n.fire(webhook.EventLeadStatusChanged, data)

	switch l.Status {
	case "won":
		n.OnLeadConverted(l)
	case "lost":
		n.fire(webhook.EventLeadLost, leadData(l))
	}
}

func (n *Notifier) OnLeadConverted(l Lead) {
	data := leadData(l)
	data["converted_at"] = n.now().UTC().Format(webhook.TimestampLayout)
	n.fire(webhook.EventLeadConverted, data)
}

func commissionData(c Commission) map[string]interface{} {
	return map[string]interface{}{
		"commission_id": c.ID,
		"partner_id":    c.PartnerID,
		"lead_id":       c.LeadID,
		"amount":        c.Amount,
		"currency":      c.Currency,
		"status":        c.Status,
	}
}

func (n *Notifier) OnCommissionCreated(c Commission) {
	n.fire(webhook.EventCommissionCreated, commissionData(c))
}

func (n *Notifier) OnCommissionApproved(c Commission) {
	n.fire(webhook.EventCommissionApproved, commissionData(c))
}

func (n *Notifier) OnCommissionPaid(c Commission) {
	data := commissionData(c)
	data["paid_at"] = n.now().UTC().Format(webhook.TimestampLayout)
	n.fire(webhook.EventCommissionPaid, data)
}

// OnCertificationCompleted fires certification.passed or certification.failed.
func (n *Notifier) OnCertificationCompleted(c Certification, passed bool) {
	data := map[string]interface{}{
		"certification_id": c.ID,
		"partner_id":       c.PartnerID,
		"user_id":          c.UserID,
		"course":           c.Course,
		"score":            c.Score,
	}
	if passed {
		n.fire(webhook.EventCertificationPassed, data)
		return
	}
	n.fire(webhook.EventCertificationFailed, data)
}

func (n *Notifier) OnContentPublished(c Content) {
	n.fire(webhook.EventContentPublished, map[string]interface{}{
		"content_id": c.ID,
		"type":       c.Type,
		"title":      c.Title,
	})
}

func teamData(m TeamMember) map[string]interface{} {
	return map[string]interface{}{
		"partner_id": m.PartnerID,
		"user_id":    m.UserID,
		"email":      m.Email,
		"role":       m.Role,
	}
}

func (n *Notifier) OnTeamMemberAdded(m TeamMember) {
	n.fire(webhook.EventTeamMemberAdded, teamData(m))
}

func (n *Notifier) OnTeamMemberRemoved(m TeamMember) {
	n.fire(webhook.EventTeamMemberRemoved, teamData(m))
}
