// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"financial_digest/internal/app"
	"financial_digest/internal/domain/digest"
)

const (
	manualRunTimeout   = 30 * time.Minute
	defaultHistoryDays = 7
)

// DigestOperator is the digest service surface exposed to operators.
type DigestOperator interface {
	Run(ctx context.Context, opts app.RunOptions) (*app.RunReport, error)
	History(ctx context.Context, advisorID string, days int) ([]*digest.Digest, error)
}

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	adminService *app.AdminService,
	digests DigestOperator,
	baseLogger *logrus.Entry,
) {
	b.Handle("/start", startHandler(adminService, baseLogger))
	b.Handle("/help", helpHandler(adminService, baseLogger))
	b.Handle("/run_digest", runDigestHandler(ctx, adminService, digests, time.Now, baseLogger))
	b.Handle("/history", historyHandler(ctx, adminService, digests, baseLogger))
}

func startHandler(adminService *app.AdminService, baseLogger *logrus.Entry) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		log := handlerLogger(baseLogger, "/start", c)
		log.Info("Processing /start command")
		if adminService.IsAdmin(c.Sender().ID) {
			return c.Send(fmt.Sprintf("Hello %s! The digest service is running. Use /help for the list of commands.", c.Sender().FirstName))
		}
		return c.Send("Hello! This bot operates the financial digest service and only answers its administrators.")
	}
}

func helpHandler(adminService *app.AdminService, baseLogger *logrus.Entry) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		log := handlerLogger(baseLogger, "/help", c)
		log.Info("Processing /help command")
		if !adminService.IsAdmin(c.Sender().ID) {
			return c.Send("No commands are available to you.")
		}
		var helpText strings.Builder
		helpText.WriteString("Administrator commands:\n\n")
		helpText.WriteString("`/add_advisor <AdvisorID> <Email> <Name>`\n - Register an advisor or reactivate a removed one.\n\n")
		helpText.WriteString("`/remove_advisor <AdvisorID>`\n - Deactivate an advisor; no further digests are sent.\n\n")
		helpText.WriteString("`/list_advisors [active|all]`\n - List advisors. Defaults to active ones.\n\n")
		helpText.WriteString("`/link_advisor <AdvisorID> <TelegramID>`\n - Send urgent notices to this chat. 0 turns them off.\n\n")
		helpText.WriteString("`/run_digest [YYYY-MM-DD] [force]`\n - Run the digest now. 'force' resends digests already sent.\n\n")
		helpText.WriteString("`/history <AdvisorID> [days]`\n - Show the advisor's recent digests (default 7 days).\n\n")
		helpText.WriteString("`/help`\n - Show this message.")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	}
}

func runDigestHandler(ctx context.Context, adminService *app.AdminService, digests DigestOperator, now func() time.Time, baseLogger *logrus.Entry) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		log := handlerLogger(baseLogger, "/run_digest", c)
		if !adminService.IsAdmin(c.Sender().ID) {
			log.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		opts := app.RunOptions{Date: now()}
		for _, arg := range c.Args() {
			if strings.EqualFold(arg, "force") {
				opts.Force = true
				continue
			}
			date, err := time.ParseInLocation("2006-01-02", arg, time.Local)
			if err != nil {
				return c.Send("Invalid format. Use: /run_digest [YYYY-MM-DD] [force]")
			}
			opts.Date = date
		}
		log = log.WithFields(logrus.Fields{"date": digest.DateKey(opts.Date), "force": opts.Force})
		log.Info("Manual digest run requested")

		runCtx, cancel := context.WithTimeout(ctx, manualRunTimeout)
		defer cancel()
		report, err := digests.Run(runCtx, opts)
		if err != nil {
			log.WithError(err).Error("Manual digest run failed")
			return c.Send(fmt.Sprintf("Digest run failed: %v", err))
		}
		return c.Send(FormatRunReport(report))
	}
}

func historyHandler(ctx context.Context, adminService *app.AdminService, digests DigestOperator, baseLogger *logrus.Entry) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		log := handlerLogger(baseLogger, "/history", c)
		if !adminService.IsAdmin(c.Sender().ID) {
			log.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		args := c.Args()
		if len(args) < 1 || len(args) > 2 {
			return c.Send("Invalid format. Use: /history <AdvisorID> [days]")
		}
		advisorID, days := args[0], defaultHistoryDays
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return c.Send("Error: days must be a number.")
			}
			days = n
		}

		list, err := digests.History(ctx, advisorID, days)
		if err != nil {
			if errors.Is(err, app.ErrInvalidHistoryWindow) {
				return c.Send("Error: days must be at least 1.")
			}
			log.WithError(err).Error("Failed to load digest history")
			return c.Send("An error occurred while loading the history.")
		}
		if len(list) == 0 {
			return c.Send(fmt.Sprintf("No digests for %s in the last %d days.", advisorID, days))
		}

		var response strings.Builder
		fmt.Fprintf(&response, "Digests for %s (last %d days):\n", advisorID, days)
		for _, d := range list {
			urgent := ""
			if d.SummaryStats.HasUrgent {
				urgent = ", urgent"
			}
			fmt.Fprintf(&response, "%s: %d notifications%s\n", digest.DateKey(d.Date), d.SummaryStats.TotalNotifications, urgent)
		}
		return c.Send(response.String())
	}
}
