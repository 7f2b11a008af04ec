// internal/domain/notification/ingest.go
package notification

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is a raw notification as decoded from an upstream feed.
type Record = map[string]any

// IngestResult carries the notifications built from a batch together with
// the per-record failures. Notifications keep the input order.
type IngestResult struct {
	Notifications []Notification
	Failures      []error
}

// fieldAliases maps legacy envelope field names to their canonical names.
var fieldAliases = map[string]string{
	"recipient_id":    "advisor_id",
	"recipient_email": "advisor_email",
}

const dateLayout = "2006-01-02"

// Ingest converts raw records into notifications. A bad record never aborts
// the batch: its error is collected and the remaining records are processed.
func Ingest(records []Record) IngestResult {
	result := IngestResult{
		Notifications: make([]Notification, 0, len(records)),
	}
	for i, rec := range records {
		n, err := Parse(i, rec)
		if err != nil {
			result.Failures = append(result.Failures, err)
			continue
		}
		result.Notifications = append(result.Notifications, n)
	}
	return result
}

// Parse builds a single notification. index is only used for error context.
// Errors are *ValidationError or *UnknownNotificationTypeError.
func Parse(index int, rec Record) (Notification, error) {
	r := newFieldReader(index, rec)

	rawType, err := r.requiredString("type")
	if err != nil {
		return nil, err
	}
	kind, ok := ParseKind(rawType)
	if !ok {
		return nil, &UnknownNotificationTypeError{Index: index, RecordID: r.id, Type: rawType}
	}

	h, err := r.header()
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindMarginCall:
		return r.marginCall(h)
	case KindRetirementContribution:
		return r.retirementContribution(h)
	case KindCorporateAction:
		return r.corporateAction(h)
	case KindOutgoingTransfer:
		return r.outgoingTransfer(h)
	default:
		return nil, &UnknownNotificationTypeError{Index: index, RecordID: r.id, Type: rawType}
	}
}

type fieldReader struct {
	index  int
	id     string
	fields map[string]any
}

func newFieldReader(index int, rec Record) *fieldReader {
	fields := make(map[string]any, len(rec))
	if meta, ok := rec["metadata"].(map[string]any); ok {
		for k, v := range meta {
			fields[k] = v
		}
	}
	for k, v := range rec {
		if k == "metadata" {
			continue
		}
		fields[k] = v
	}
	for alias, canonical := range fieldAliases {
		if v, ok := fields[alias]; ok {
			if _, exists := fields[canonical]; !exists {
				fields[canonical] = v
			}
		}
	}

	r := &fieldReader{index: index, fields: fields}
	if id, err := r.optionalString("id"); err == nil {
		r.id = id
	}
	return r
}

func (r *fieldReader) fail(field, format string, args ...any) error {
	return &ValidationError{
		Index:    r.index,
		RecordID: r.id,
		Field:    field,
		Reason:   fmt.Sprintf(format, args...),
	}
}

func (r *fieldReader) header() (Header, error) {
	var h Header
	var err error
	if h.ID, err = r.requiredString("id"); err != nil {
		return h, err
	}
	if h.ClientName, err = r.requiredString("client_name"); err != nil {
		return h, err
	}
	if h.ClientID, err = r.requiredString("client_id"); err != nil {
		return h, err
	}
	if h.AccountNumber, err = r.requiredString("account_number"); err != nil {
		return h, err
	}
	if h.AdvisorID, err = r.requiredString("advisor_id"); err != nil {
		return h, err
	}
	if h.AdvisorEmail, err = r.requiredString("advisor_email"); err != nil {
		return h, err
	}
	if !strings.Contains(h.AdvisorEmail, "@") {
		return h, r.fail("advisor_email", "not an email address")
	}
	if h.Priority, err = r.priority(); err != nil {
		return h, err
	}
	if h.Timestamp, _, err = r.optionalDate("timestamp"); err != nil {
		return h, err
	}
	return h, nil
}

func (r *fieldReader) marginCall(h Header) (Notification, error) {
	n := MarginCall{Header: h}
	var err error
	if n.CallAmount, err = r.requiredMoney("call_amount"); err != nil {
		return nil, err
	}
	if n.DueDate, err = r.requiredDate("due_date"); err != nil {
		return nil, err
	}
	if n.CurrentMarginPercentage, err = r.optionalFloat("current_margin_percentage"); err != nil {
		return nil, err
	}
	if n.RequiredMarginPercentage, err = r.optionalFloat("required_margin_percentage"); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *fieldReader) retirementContribution(h Header) (Notification, error) {
	n := RetirementContribution{Header: h}
	var err error
	if n.ContributionAmount, err = r.requiredMoney("contribution_amount"); err != nil {
		return nil, err
	}
	if n.ContributionType, err = r.optionalString("contribution_type"); err != nil {
		return nil, err
	}
	if n.TaxYear, err = r.optionalInt("tax_year"); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *fieldReader) corporateAction(h Header) (Notification, error) {
	n := CorporateAction{Header: h}
	var err error
	if n.DeadlineDate, err = r.requiredDate("deadline_date"); err != nil {
		return nil, err
	}
	if n.SecurityID, err = r.optionalString("security_id"); err != nil {
		return nil, err
	}
	if n.SecurityName, err = r.optionalString("security_name"); err != nil {
		return nil, err
	}
	if n.ActionType, err = r.optionalString("action_type"); err != nil {
		return nil, err
	}
	if n.Description, err = r.optionalString("description"); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *fieldReader) outgoingTransfer(h Header) (Notification, error) {
	n := OutgoingTransfer{Header: h}
	var err error
	if n.NetAmount, err = r.requiredMoney("net_amount"); err != nil {
		return nil, err
	}
	if n.EntryDate, err = r.requiredDate("entry_date"); err != nil {
		return nil, err
	}
	if n.PaymentDate, err = r.requiredDate("payment_date"); err != nil {
		return nil, err
	}
	if gross, ok, err := r.optionalMoney("gross_amount"); err != nil {
		return nil, err
	} else if ok {
		n.GrossAmount = gross
	} else {
		n.GrossAmount = n.NetAmount
	}
	if n.AccountType, err = r.optionalString("account_type"); err != nil {
		return nil, err
	}
	if n.TransferType, err = r.optionalString("transfer_type"); err != nil {
		return nil, err
	}
	if n.Status, err = r.optionalString("status"); err != nil {
		return nil, err
	}
	if n.Description, err = r.optionalString("description"); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *fieldReader) lookup(name string) (any, bool) {
	v, ok := r.fields[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (r *fieldReader) requiredString(name string) (string, error) {
	v, ok := r.lookup(name)
	if !ok {
		return "", r.fail(name, "missing")
	}
	s, err := r.toString(name, v)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", r.fail(name, "empty")
	}
	return s, nil
}

func (r *fieldReader) optionalString(name string) (string, error) {
	v, ok := r.lookup(name)
	if !ok {
		return "", nil
	}
	return r.toString(name, v)
}

func (r *fieldReader) toString(name string, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case json.Number:
		return t.String(), nil
	case float64:
		if t != math.Trunc(t) {
			return "", r.fail(name, "expected a string, got %v", t)
		}
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	default:
		return "", r.fail(name, "expected a string, got %T", v)
	}
}

func (r *fieldReader) priority() (int, error) {
	v, ok := r.lookup("priority")
	if !ok {
		return 0, r.fail("priority", "missing")
	}
	p, err := r.toInt("priority", v)
	if err != nil {
		return 0, err
	}
	if p < MinPriority || p > MaxPriority {
		return 0, r.fail("priority", "must be between %d and %d, got %d", MinPriority, MaxPriority, p)
	}
	return p, nil
}

func (r *fieldReader) optionalInt(name string) (int, error) {
	v, ok := r.lookup(name)
	if !ok {
		return 0, nil
	}
	return r.toInt(name, v)
}

func (r *fieldReader) toInt(name string, v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, r.fail(name, "expected an integer, got %v", t)
		}
		return int(t), nil
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return 0, r.fail(name, "expected an integer, got %q", t.String())
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, r.fail(name, "expected an integer, got %q", t)
		}
		return i, nil
	default:
		return 0, r.fail(name, "expected an integer, got %T", v)
	}
}

func (r *fieldReader) optionalFloat(name string) (float64, error) {
	v, ok := r.lookup(name)
	if !ok {
		return 0, nil
	}
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, r.fail(name, "expected a number, got %q", t.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, r.fail(name, "expected a number, got %q", t)
		}
		return f, nil
	default:
		return 0, r.fail(name, "expected a number, got %T", v)
	}
}

func (r *fieldReader) requiredMoney(name string) (decimal.Decimal, error) {
	d, ok, err := r.optionalMoney(name)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, r.fail(name, "missing")
	}
	return d, nil
}

func (r *fieldReader) optionalMoney(name string) (decimal.Decimal, bool, error) {
	v, ok := r.lookup(name)
	if !ok {
		return decimal.Zero, false, nil
	}
	var d decimal.Decimal
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, false, r.fail(name, "not a finite amount")
		}
		d = decimal.NewFromFloat(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case int64:
		d = decimal.NewFromInt(t)
	case json.Number:
		parsed, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.Zero, false, r.fail(name, "expected an amount, got %q", t.String())
		}
		d = parsed
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Zero, false, r.fail(name, "expected an amount, got %q", t)
		}
		d = parsed
	case decimal.Decimal:
		d = t
	default:
		return decimal.Zero, false, r.fail(name, "expected an amount, got %T", v)
	}
	if d.IsNegative() {
		return decimal.Zero, false, r.fail(name, "must not be negative")
	}
	return d, true, nil
}

func (r *fieldReader) requiredDate(name string) (time.Time, error) {
	t, ok, err := r.optionalDate(name)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, r.fail(name, "missing")
	}
	return t, nil
}

func (r *fieldReader) optionalDate(name string) (time.Time, bool, error) {
	v, ok := r.lookup(name)
	if !ok {
		return time.Time{}, false, nil
	}
	switch t := v.(type) {
	case time.Time:
		return t, true, nil
	case string:
		s := strings.TrimSpace(t)
		if d, err := time.Parse(dateLayout, s); err == nil {
			return d, true, nil
		}
		if d, err := time.Parse(time.RFC3339, s); err == nil {
			return d, true, nil
		}
		return time.Time{}, false, r.fail(name, "expected a date (YYYY-MM-DD or RFC 3339), got %q", t)
	default:
		return time.Time{}, false, r.fail(name, "expected a date, got %T", v)
	}
}
