package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"financial_digest/internal/app"
	"financial_digest/internal/domain/advisor"
)

const msgUnauthorized = "Error: you are not allowed to run this command."

// RegisterAdminHandlers registers the advisor directory commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, baseLogger *logrus.Entry) {
	b.Handle("/add_advisor", addAdvisorHandler(ctx, adminService, baseLogger))
	b.Handle("/remove_advisor", removeAdvisorHandler(ctx, adminService, baseLogger))
	b.Handle("/list_advisors", listAdvisorsHandler(ctx, adminService, baseLogger))
	b.Handle("/link_advisor", linkAdvisorHandler(ctx, adminService, baseLogger))
}

func handlerLogger(baseLogger *logrus.Entry, command string, c telebot.Context) *logrus.Entry {
	return baseLogger.WithFields(logrus.Fields{
		"handler":   command,
		"sender_id": c.Sender().ID,
	})
}

func addAdvisorHandler(ctx context.Context, adminService *app.AdminService, baseLogger *logrus.Entry) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		log := handlerLogger(baseLogger, "/add_advisor", c)
		log.Info("Command received")

		if !adminService.IsAdmin(c.Sender().ID) {
			log.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		// Expected format: /add_advisor <AdvisorID> <Email> <Name...>
		args := c.Args()
		if len(args) < 3 {
			log.WithField("args_count", len(args)).Warn("Invalid command format")
			return c.Send("Invalid format. Use: /add_advisor <AdvisorID> <Email> <Name>")
		}
		id, email, name := args[0], args[1], strings.Join(args[2:], " ")
		log = log.WithField("advisor_id", id)

		added, err := adminService.AddAdvisor(ctx, c.Sender().ID, id, email, name)
		if err != nil {
			log := log.WithError(err)
			switch {
			case errors.Is(err, app.ErrAdvisorAlreadyExists):
				log.Warn("Advisor already exists")
				return c.Send(fmt.Sprintf("Error: advisor %s already exists.", id))
			case errors.Is(err, advisor.ErrDuplicateEmail):
				log.Warn("Email already registered")
				return c.Send(fmt.Sprintf("Error: %s is already registered to another advisor.", email))
			case errors.Is(err, app.ErrInvalidAdvisor):
				log.Warn("Invalid advisor data")
				return c.Send("Error: advisor id, name and a valid email are required.")
			case errors.Is(err, app.ErrAdminNotAuthorized):
				return c.Send(msgUnauthorized)
			default:
				log.Error("Failed to add advisor")
				return c.Send("An error occurred while adding the advisor.")
			}
		}

		log.Info("Advisor added successfully")
		return c.Send(fmt.Sprintf("Advisor %s (%s, %s) added.", added.Name, added.ID, added.Email))
	}
}

func removeAdvisorHandler(ctx context.Context, adminService *app.AdminService, baseLogger *logrus.Entry) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		log := handlerLogger(baseLogger, "/remove_advisor", c)
		log.Info("Command received")

		if !adminService.IsAdmin(c.Sender().ID) {
			log.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Invalid format. Use: /remove_advisor <AdvisorID>")
		}
		id := args[0]
		log = log.WithField("advisor_id", id)

		removed, err := adminService.RemoveAdvisor(ctx, c.Sender().ID, id)
		if err != nil {
			log := log.WithError(err)
			switch {
			case errors.Is(err, advisor.ErrAdvisorNotFound):
				log.Warn("Advisor to remove not found")
				return c.Send(fmt.Sprintf("Advisor %s not found.", id))
			case errors.Is(err, app.ErrAdvisorAlreadyInactive):
				log.Warn("Advisor already inactive")
				return c.Send(fmt.Sprintf("Advisor %s is already inactive.", id))
			case errors.Is(err, app.ErrAdminNotAuthorized):
				return c.Send(msgUnauthorized)
			default:
				log.Error("Failed to remove advisor")
				return c.Send("An error occurred while removing the advisor.")
			}
		}

		log.Info("Advisor deactivated successfully")
		return c.Send(fmt.Sprintf("Advisor %s (%s) deactivated. No further digests will be sent.", removed.Name, removed.ID))
	}
}

func linkAdvisorHandler(ctx context.Context, adminService *app.AdminService, baseLogger *logrus.Entry) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		log := handlerLogger(baseLogger, "/link_advisor", c)
		log.Info("Command received")

		if !adminService.IsAdmin(c.Sender().ID) {
			log.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		// Expected format: /link_advisor <AdvisorID> <TelegramID>, 0 unlinks
		args := c.Args()
		if len(args) != 2 {
			return c.Send("Invalid format. Use: /link_advisor <AdvisorID> <TelegramID>")
		}
		chatID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return c.Send("Error: Telegram ID must be a number.")
		}
		id := args[0]
		log = log.WithFields(logrus.Fields{"advisor_id": id, "chat_id": chatID})

		linked, err := adminService.LinkTelegram(ctx, c.Sender().ID, id, chatID)
		if err != nil {
			switch {
			case errors.Is(err, advisor.ErrAdvisorNotFound):
				log.WithError(err).Warn("Advisor to link not found")
				return c.Send(fmt.Sprintf("Advisor %s not found.", id))
			case errors.Is(err, app.ErrAdminNotAuthorized):
				return c.Send(msgUnauthorized)
			default:
				log.WithError(err).Error("Failed to link advisor")
				return c.Send("An error occurred while linking the advisor.")
			}
		}

		if !linked.TelegramID.Valid {
			log.Info("Advisor Telegram link removed")
			return c.Send(fmt.Sprintf("Urgent notices for %s are now off.", linked.ID))
		}
		log.Info("Advisor linked to Telegram")
		return c.Send(fmt.Sprintf("Urgent notices for %s (%s) will go to %d.", linked.Name, linked.ID, chatID))
	}
}

func listAdvisorsHandler(ctx context.Context, adminService *app.AdminService, baseLogger *logrus.Entry) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		log := handlerLogger(baseLogger, "/list_advisors", c)

		if !adminService.IsAdmin(c.Sender().ID) {
			log.Warn("Unauthorized access attempt")
			return c.Send(msgUnauthorized)
		}

		listType := "active"
		if args := c.Args(); len(args) > 0 {
			listType = strings.ToLower(args[0])
		}
		if listType != "active" && listType != "all" {
			return c.Send("Invalid argument. Use 'active' or 'all'.")
		}
		log = log.WithField("list_type", listType)

		advisors, err := adminService.ListAdvisors(ctx, c.Sender().ID, listType == "all")
		if err != nil {
			log.WithError(err).Error("Failed to list advisors")
			return c.Send("An error occurred while listing advisors.")
		}
		if len(advisors) == 0 {
			return c.Send("No advisors found.")
		}
		log.WithField("advisors_count", len(advisors)).Info("Advisor list sent")

		var response strings.Builder
		fmt.Fprintf(&response, "Advisors (%s):\n", listType)
		for _, a := range advisors {
			status := "inactive"
			if a.IsActive {
				status = "active"
			}
			if a.TelegramID.Valid {
			status += fmt.Sprintf(", telegram %d", a.TelegramID.Int64)
		}
		fmt.Fprintf(&response, "%s: %s <%s>, %s\n", a.ID, a.Name, a.Email, status)
		}
		return c.Send(response.String())
	}
}
