package middleware

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/stylistbot/stylist-bot/internal/contextkeys"
	"github.com/stylistbot/stylist-bot/types"
)

type Middlewares struct {
	users types.UserStore
}

func NewMessageAnalyzer(users types.UserStore) *Middlewares {
	return &Middlewares{
		users: users,
	}
}

// IdentifyUserMiddleware resolves who sent the update and puts the identity
// into the context. The registry upsert is best effort: a dead Postgres must
// not take the bot down.
func (m *Middlewares) IdentifyUserMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		var (
			from   *models.User
			chatID int64
		)

		switch {
		case update.Message != nil && update.Message.From != nil:
			from = update.Message.From
			chatID = update.Message.Chat.ID
		case update.CallbackQuery != nil:
			from = &update.CallbackQuery.From
			chatID = getChatIDFromMaybeInaccessibleMessage(update.CallbackQuery.Message)
			if chatID == 0 {
				return
			}
		case update.PreCheckoutQuery != nil:
			from = update.PreCheckoutQuery.From
			chatID = update.PreCheckoutQuery.From.ID
		default:
			return
		}

		if from == nil || from.ID == 0 || chatID == 0 {
			return
		}

		if m.users != nil {
			now := time.Now().UTC()
			err := m.users.UpsertUser(ctx, types.User{
				UserID:    from.ID,
				ChatID:    chatID,
				Username:  from.Username,
				FirstName: from.FirstName,
				LastName:  from.LastName,
				CreatedAt: now,
				UpdatedAt: now,
			})
			if err != nil {
				log.Printf("Error upserting user %d: %v", from.ID, err)
			}
		}

		ctx = contextkeys.WithUserInfo(ctx, contextkeys.UserInfo{
			UserID: from.ID,
			ChatID: chatID,
			Handle: from.Username,
			Lang:   from.LanguageCode,
		})
		next(ctx, b, update)
	}
}

func getChatIDFromMaybeInaccessibleMessage(m models.MaybeInaccessibleMessage) int64 {
	if m.Message != nil {
		return m.Message.Chat.ID
	}
	if m.InaccessibleMessage != nil {
		return m.InaccessibleMessage.Chat.ID
	}
	return 0
}

func (ma *Middlewares) AnalyzeMessageMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.CallbackQuery != nil && update.CallbackQuery.Data != "" {
			newCtx := contextkeys.WithUpdateType(ctx, contextkeys.UpdateTypeClickButton)
			newCtx = contextkeys.WithCallbackData(newCtx, update.CallbackQuery.Data)
			next(newCtx, b, update)
			return
		}

		if update.PreCheckoutQuery != nil {
			next(contextkeys.WithUpdateType(ctx, contextkeys.UpdateTypePreCheckout), b, update)
			return
		}

		next(contextkeys.WithUpdateType(ctx, ma.determineUpdateType(update.Message)), b, update)
	}
}

func (ma *Middlewares) determineUpdateType(msg *models.Message) contextkeys.UpdateType {
	if msg == nil {
		return contextkeys.UpdateTypeUnknown
	}

	if msg.SuccessfulPayment != nil {
		return contextkeys.UpdateTypePayment
	}

	if msg.Text != "" && strings.HasPrefix(msg.Text, "/") {
		return contextkeys.UpdateTypeCommand
	}

	if len(msg.Photo) > 0 {
		return contextkeys.UpdateTypePhoto
	}

	// A document that is actually an image counts as a photo too.
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return contextkeys.UpdateTypePhoto
	}

	if msg.Text != "" || msg.Caption != "" {
		return contextkeys.UpdateTypeText
	}

	return contextkeys.UpdateTypeUnknown
}
