// internal/domain/notification/notification.go
package notification

import (
	"time"

	"github.com/shopspring/decimal"
)

// Notification is one financial event addressed to an advisor. The concrete
// types are MarginCall, RetirementContribution, CorporateAction and
// OutgoingTransfer; they are plain values, so a Notification never changes
// after ingestion.
type Notification interface {
	Kind() Kind
	Common() Header
	isNotification()
}

// Header holds the fields shared by every notification kind.
type Header struct {
	ID            string    `json:"id"`
	ClientName    string    `json:"client_name"`
	ClientID      string    `json:"client_id"`
	AccountNumber string    `json:"account_number"`
	AdvisorID     string    `json:"advisor_id"`
	AdvisorEmail  string    `json:"advisor_email"`
	Priority      int       `json:"priority"`
	Timestamp     time.Time `json:"timestamp,omitzero"`
}

type MarginCall struct {
	Header
	CallAmount               decimal.Decimal `json:"call_amount"`
	DueDate                  time.Time       `json:"due_date"`
	CurrentMarginPercentage  float64         `json:"current_margin_percentage,omitempty"`
	RequiredMarginPercentage float64         `json:"required_margin_percentage,omitempty"`
}

type RetirementContribution struct {
	Header
	ContributionAmount decimal.Decimal `json:"contribution_amount"`
	ContributionType   string          `json:"contribution_type,omitempty"` // e.g. IRA, 401k
	TaxYear            int             `json:"tax_year,omitempty"`
}

// CorporateAction is a voluntary corporate action. It carries no amount.
type CorporateAction struct {
	Header
	SecurityID   string    `json:"security_id,omitempty"`
	SecurityName string    `json:"security_name,omitempty"`
	ActionType   string    `json:"action_type,omitempty"` // e.g. stock split, tender offer
	DeadlineDate time.Time `json:"deadline_date"`
	Description  string    `json:"description,omitempty"`
}

type OutgoingTransfer struct {
	Header
	AccountType  string          `json:"account_type,omitempty"`
	NetAmount    decimal.Decimal `json:"net_amount"`
	GrossAmount  decimal.Decimal `json:"gross_amount"`
	TransferType string          `json:"transfer_type,omitempty"` // e.g. ACH, Wire
	EntryDate    time.Time       `json:"entry_date"`
	PaymentDate  time.Time       `json:"payment_date"`
	Status       string          `json:"status,omitempty"`
	Description  string          `json:"description,omitempty"`
}

func (MarginCall) Kind() Kind             { return KindMarginCall }
func (RetirementContribution) Kind() Kind { return KindRetirementContribution }
func (CorporateAction) Kind() Kind        { return KindCorporateAction }
func (OutgoingTransfer) Kind() Kind       { return KindOutgoingTransfer }

func (n MarginCall) Common() Header             { return n.Header }
func (n RetirementContribution) Common() Header { return n.Header }
func (n CorporateAction) Common() Header        { return n.Header }
func (n OutgoingTransfer) Common() Header       { return n.Header }

func (MarginCall) isNotification()             {}
func (RetirementContribution) isNotification() {}
func (CorporateAction) isNotification()        {}
func (OutgoingTransfer) isNotification()       {}

// Amount returns the monetary amount carried by n. ok is false for kinds
// without an amount.
func Amount(n Notification) (amount decimal.Decimal, ok bool) {
	switch v := n.(type) {
	case MarginCall:
		return v.CallAmount, true
	case RetirementContribution:
		return v.ContributionAmount, true
	case OutgoingTransfer:
		return v.NetAmount, true
	case CorporateAction:
		return decimal.Zero, false
	default:
		return decimal.Zero, false
	}
}

// HasAmount reports whether notifications of kind k carry an amount.
func (k Kind) HasAmount() bool {
	return k != KindCorporateAction
}
