package handlers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/stylistbot/stylist-bot/internal/billing"
	"github.com/stylistbot/stylist-bot/internal/contextkeys"
	"github.com/stylistbot/stylist-bot/internal/messages"
	"github.com/stylistbot/stylist-bot/internal/provider"
	"github.com/stylistbot/stylist-bot/store"
	"github.com/stylistbot/stylist-bot/types"
)

type Handlers struct {
	users     types.UserStore
	state     *store.RedisUserStore
	passes    types.PassStore
	quota     types.QuotaStore
	policy    *billing.Policy
	executor  *billing.Executor
	catalog   *billing.Catalog
	providers map[types.Service]provider.Provider
}

func NewHandlers(
	users types.UserStore,
	state *store.RedisUserStore,
	passes types.PassStore,
	quota types.QuotaStore,
	policy *billing.Policy,
	executor *billing.Executor,
	catalog *billing.Catalog,
	providers map[types.Service]provider.Provider,
) *Handlers {
	return &Handlers{
		users:     users,
		state:     state,
		passes:    passes,
		quota:     quota,
		policy:    policy,
		executor:  executor,
		catalog:   catalog,
		providers: providers,
	}
}

func (bh *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	info, ok := contextkeys.GetUserInfo(ctx)
	if !ok {
		return
	}

	updateType, _ := contextkeys.GetUpdateType(ctx)

	switch updateType {
	case contextkeys.UpdateTypeCommand:
		bh.HandleCommand(ctx, b, update, info)
	case contextkeys.UpdateTypePhoto:
		bh.HandlePhoto(ctx, b, update, info)
	case contextkeys.UpdateTypeClickButton:
		bh.HandleClickButton(ctx, b, update, info)
	case contextkeys.UpdateTypePreCheckout:
		bh.HandlePreCheckout(ctx, b, update)
	case contextkeys.UpdateTypePayment:
		bh.HandleSuccessfulPayment(ctx, b, update, info)
	case contextkeys.UpdateTypeText:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    info.ChatID,
			Text:      messages.SendPhotoHint(),
			ParseMode: messages.ParseModeHTML,
		})
	default:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    info.ChatID,
			Text:      messages.ErrorDefault(),
			ParseMode: messages.ParseModeHTML,
		})
	}
}

func (bh *Handlers) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update, info contextkeys.UserInfo) {
	if update.Message == nil {
		return
	}
	fields := strings.Fields(strings.TrimSpace(update.Message.Text))
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	if strings.Contains(cmd, "@") {
		cmd = strings.SplitN(cmd, "@", 2)[0]
	}

	switch cmd {
	case "/start", "/help":
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    info.ChatID,
			Text:      messages.StartWelcome(),
			ParseMode: messages.ParseModeHTML,
		})
	case "/status":
		bh.sendStatus(ctx, b, info)
	case "/buy":
		bh.sendBillingMenu(ctx, b, info)
	default:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    info.ChatID,
			Text:      messages.ErrorUnknownCommand(),
			ParseMode: messages.ParseModeHTML,
		})
	}
}

func (bh *Handlers) HandleClickButton(ctx context.Context, b *bot.Bot, update *models.Update, info contextkeys.UserInfo) {
	if update.CallbackQuery == nil {
		return
	}

	data, _ := contextkeys.GetCallbackData(ctx)
	if data == "" {
		data = update.CallbackQuery.Data
	}
	data = strings.TrimSpace(data)

	_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")

	switch {
	case data == "gen_style":
		bh.handleGenerate(ctx, b, info, types.ServiceFlux)
	case data == "gen_video":
		bh.handleGenerate(ctx, b, info, types.ServiceKling)
	case data == "menu_buy":
		bh.sendBillingMenu(ctx, b, info)
	case strings.HasPrefix(data, "buy_pass_"):
		bh.sendPassInvoice(ctx, b, info, strings.TrimPrefix(data, "buy_pass_"))
	case strings.HasPrefix(data, "buy_payg_"):
		bh.sendPaygInvoice(ctx, b, info, strings.TrimPrefix(data, "buy_payg_"))
	default:
		log.Printf("Unknown callback data %q from user %d", data, info.UserID)
	}
}

func (bh *Handlers) sendStatus(ctx context.Context, b *bot.Bot, info contextkeys.UserInfo) {
	now := time.Now().UTC()

	flux, err := bh.quota.Remaining(ctx, info.UserID, types.ServiceFlux, now)
	if err != nil {
		bh.sendError(ctx, b, info.ChatID, err)
		return
	}
	kling, err := bh.quota.Remaining(ctx, info.UserID, types.ServiceKling, now)
	if err != nil {
		bh.sendError(ctx, b, info.ChatID, err)
		return
	}

	pass, err := bh.passes.GetActivePass(ctx, info.UserID, now)
	if err != nil {
		bh.sendError(ctx, b, info.ChatID, err)
		return
	}

	text := messages.StatusNoPass(flux, kling)
	if pass != nil {
		name := pass.TierID
		if tier, ok := bh.catalog.Tier(pass.TierID); ok {
			name = tier.Name
		}
		text = messages.StatusPass(name, pass.ExpiresAt, flux, kling)
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    info.ChatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	})
}

func (bh *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, err error) {
	log.Printf("Handler error: %v", err)
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      messages.ErrorDefault(),
		ParseMode: messages.ParseModeHTML,
	})
}

func (bh *Handlers) answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string) error {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	return err
}
