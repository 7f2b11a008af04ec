package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/telebot.v3"

	"financial_digest/internal/app"
	"financial_digest/internal/domain/digest"
)

const maxListedRejections = 5

// MessageSender sends a text message to a user or group chat.
// TelebotAdapter is the production implementation.
type MessageSender interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}

// OpsReporter posts run reports to the operations chat.
type OpsReporter struct {
	client MessageSender
	chatID int64
}

func NewOpsReporter(client MessageSender, chatID int64) *OpsReporter {
	return &OpsReporter{client: client, chatID: chatID}
}

func (r *OpsReporter) Report(ctx context.Context, report *app.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.client.SendMessage(r.chatID, FormatRunReport(report), nil); err != nil {
		return fmt.Errorf("failed to send run report to chat %d: %w", r.chatID, err)
	}
	return nil
}

// FormatRunReport renders a run report as a plain-text chat message.
func FormatRunReport(r *app.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Digest run %s for %s", r.RunID, digest.DateKey(r.Date))
	if r.Forced {
		b.WriteString(" (forced)")
	}
	fmt.Fprintf(&b, "\nRecords: %d read, %d accepted, %d rejected\n", r.Records, r.Accepted, len(r.Rejected))
	fmt.Fprintf(&b, "Advisors: %d delivered, %d built, %d skipped, %d failed\n",
		r.Count(app.StatusDelivered), r.Count(app.StatusBuilt), r.Count(app.StatusSkipped), r.Count(app.StatusFailed))
	fmt.Fprintf(&b, "Duration: %s\n", r.Duration().Round(time.Second))

	for _, a := range r.Advisors {
		if a.Status == app.StatusFailed {
			fmt.Fprintf(&b, "FAILED %s at %s: %v\n", a.AdvisorID, a.Stage, a.Err)
		}
	}
	for i, err := range r.Rejected {
		if i == maxListedRejections {
			fmt.Fprintf(&b, "... and %d more rejected records\n", len(r.Rejected)-maxListedRejections)
			break
		}
		fmt.Fprintf(&b, "REJECTED %v\n", err)
	}
	return strings.TrimRight(b.String(), "\n")
}
