package handlers

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/stylistbot/stylist-bot/internal/billing"
	"github.com/stylistbot/stylist-bot/internal/contextkeys"
	"github.com/stylistbot/stylist-bot/internal/messages"
	"github.com/stylistbot/stylist-bot/types"
)

const (
	passPayloadPrefix = "stars_pass_"
	paygPayloadPrefix = "stars_payg_"
)

func (bh *Handlers) buildBuyKeyboard() models.InlineKeyboardMarkup {
	pad := func(s string) string { return "  " + s + "  " }
	rows := make([][]models.InlineKeyboardButton, 0, 5)
	for _, tier := range bh.catalog.Tiers() {
		rows = append(rows, []models.InlineKeyboardButton{
			{
				Text:         pad(fmt.Sprintf("%s — %d⭐", tier.Name, tier.PriceStars)),
				CallbackData: "buy_pass_" + tier.ID,
			},
		})
	}
	for _, item := range bh.catalog.PaygItems() {
		rows = append(rows, []models.InlineKeyboardButton{
			{
				Text:         pad(fmt.Sprintf("%s — %d⭐", item.Name, item.PriceStars)),
				CallbackData: "buy_payg_" + item.ID,
			},
		})
	}
	return models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (bh *Handlers) sendBillingMenu(ctx context.Context, b *bot.Bot, info contextkeys.UserInfo) {
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

	keyboard := bh.buildBuyKeyboard()
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      info.ChatID,
		Text:        messages.BillingMenu(flux, kling),
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: &keyboard,
	})
}

func (bh *Handlers) sendPassInvoice(ctx context.Context, b *bot.Bot, info contextkeys.UserInfo, tierID string) {
	tier, ok := bh.catalog.Tier(tierID)
	if !ok {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    info.ChatID,
			Text:      messages.InvalidPlan(),
			ParseMode: messages.ParseModeHTML,
		})
		return
	}

	_, err := b.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:   info.ChatID,
		Title:    tier.Name,
		Description: fmt.Sprintf("%d style and %d video generations, valid %s",
			tier.Quota[types.ServiceFlux], tier.Quota[types.ServiceKling], formatDuration(tier.Duration)),
		Payload:       passPayloadPrefix + tier.ID,
		Currency:      "XTR",
		Prices:        []models.LabeledPrice{{Label: tier.Name, Amount: tier.PriceStars}},
		ProviderToken: "",
	})
	if err != nil {
		bh.sendError(ctx, b, info.ChatID, err)
	}
}

func (bh *Handlers) sendPaygInvoice(ctx context.Context, b *bot.Bot, info contextkeys.UserInfo, itemID string) {
	item, ok := bh.catalog.PaygItem(itemID)
	if !ok {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    info.ChatID,
			Text:      messages.InvalidPlan(),
			ParseMode: messages.ParseModeHTML,
		})
		return
	}

	_, err := b.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:        info.ChatID,
		Title:         item.Name,
		Description:   fmt.Sprintf("%d extra generation, valid 30 days", item.Quota),
		Payload:       paygPayloadPrefix + item.ID,
		Currency:      "XTR",
		Prices:        []models.LabeledPrice{{Label: item.Name, Amount: item.PriceStars}},
		ProviderToken: "",
	})
	if err != nil {
		bh.sendError(ctx, b, info.ChatID, err)
	}
}

// HandlePreCheckout approves the payment only when the payload still maps
// to a catalog entry at the advertised price.
func (bh *Handlers) HandlePreCheckout(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.PreCheckoutQuery == nil {
		return
	}
	q := update.PreCheckoutQuery
	payload := strings.TrimSpace(q.InvoicePayload)

	ok := false
	switch {
	case strings.HasPrefix(payload, passPayloadPrefix):
		tier, found := bh.catalog.Tier(strings.TrimPrefix(payload, passPayloadPrefix))
		ok = found && q.TotalAmount == tier.PriceStars
	case strings.HasPrefix(payload, paygPayloadPrefix):
		item, found := bh.catalog.PaygItem(strings.TrimPrefix(payload, paygPayloadPrefix))
		ok = found && q.TotalAmount == item.PriceStars
	}

	errMsg := ""
	if !ok {
		errMsg = "Invalid payment"
	}
	_, _ = b.AnswerPreCheckoutQuery(ctx, &bot.AnswerPreCheckoutQueryParams{
		PreCheckoutQueryID: q.ID,
		OK:                 ok,
		ErrorMessage:       errMsg,
	})
}

// HandleSuccessfulPayment records the charge and applies the purchase.
// Telegram retries this update, so the record is idempotent on the charge
// id and a duplicate applies nothing.
func (bh *Handlers) HandleSuccessfulPayment(ctx context.Context, b *bot.Bot, update *models.Update, info contextkeys.UserInfo) {
	if update.Message == nil || update.Message.SuccessfulPayment == nil {
		return
	}
	p := update.Message.SuccessfulPayment
	payload := strings.TrimSpace(p.InvoicePayload)

	inserted, err := bh.users.RecordPayment(ctx, types.Payment{
		UserID:                info.UserID,
		Currency:              strings.TrimSpace(p.Currency),
		TotalAmount:           int64(p.TotalAmount),
		InvoicePayload:        payload,
		TelegramPaymentCharge: strings.TrimSpace(p.TelegramPaymentChargeID),
		ProviderPaymentCharge: strings.TrimSpace(p.ProviderPaymentChargeID),
		CreatedAt:             time.Now().UTC(),
	})
	if err != nil {
		log.Printf("Error recording payment for user %d: %v", info.UserID, err)
		bh.sendPaymentFailed(ctx, b, info.ChatID)
		return
	}
	if !inserted {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    info.ChatID,
			Text:      messages.PaymentAlreadyProcessed(),
			ParseMode: messages.ParseModeHTML,
		})
		return
	}

	switch {
	case strings.HasPrefix(payload, passPayloadPrefix):
		bh.applyPassPurchase(ctx, b, info, strings.TrimPrefix(payload, passPayloadPrefix))
	case strings.HasPrefix(payload, paygPayloadPrefix):
		bh.applyPaygPurchase(ctx, b, info, strings.TrimPrefix(payload, paygPayloadPrefix))
	default:
		log.Printf("Paid payload %q from user %d matches nothing in the catalog", payload, info.UserID)
		bh.sendPaymentFailed(ctx, b, info.ChatID)
	}
}

func (bh *Handlers) applyPassPurchase(ctx context.Context, b *bot.Bot, info contextkeys.UserInfo, tierID string) {
	tier, ok := bh.catalog.Tier(tierID)
	if !ok {
		log.Printf("Paid tier %q from user %d is not in the catalog", tierID, info.UserID)
		bh.sendPaymentFailed(ctx, b, info.ChatID)
		return
	}

	pass, err := bh.passes.ActivatePass(ctx, info.UserID, tier, time.Now().UTC())
	if err != nil {
		log.Printf("Error activating pass %s for user %d: %v", tierID, info.UserID, err)
		bh.sendPaymentFailed(ctx, b, info.ChatID)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: info.ChatID,
		Text: messages.PassActivated(tier.Name, pass.ExpiresAt,
			pass.Quota[types.ServiceFlux], pass.Quota[types.ServiceKling]),
		ParseMode: messages.ParseModeHTML,
	})
}

func (bh *Handlers) applyPaygPurchase(ctx context.Context, b *bot.Bot, info contextkeys.UserInfo, itemID string) {
	item, ok := bh.catalog.PaygItem(itemID)
	if !ok {
		log.Printf("Paid item %q from user %d is not in the catalog", itemID, info.UserID)
		bh.sendPaymentFailed(ctx, b, info.ChatID)
		return
	}

	now := time.Now().UTC()
	if err := bh.quota.TopUp(ctx, info.UserID, item.Service, item.Quota, billing.PaygTTL, now); err != nil {
		log.Printf("Error topping up %s for user %d: %v", item.Service, info.UserID, err)
		bh.sendPaymentFailed(ctx, b, info.ChatID)
		return
	}

	total, err := bh.quota.Remaining(ctx, info.UserID, item.Service, now)
	if err != nil {
		total = item.Quota
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    info.ChatID,
		Text:      messages.PaygAdded(item.Quota, item.Service, total),
		ParseMode: messages.ParseModeHTML,
	})
}

func (bh *Handlers) sendPaymentFailed(ctx context.Context, b *bot.Bot, chatID int64) {
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      messages.PaymentFailed(),
		ParseMode: messages.ParseModeHTML,
	})
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days <= 1 {
		return "24 hours"
	}
	return fmt.Sprintf("%d days", days)
}
