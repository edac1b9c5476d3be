package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/stylistbot/stylist-bot/internal/billing"
	"github.com/stylistbot/stylist-bot/internal/contextkeys"
	"github.com/stylistbot/stylist-bot/internal/messages"
	"github.com/stylistbot/stylist-bot/internal/provider"
	"github.com/stylistbot/stylist-bot/internal/styles"
	"github.com/stylistbot/stylist-bot/types"
)

// generateTimeout bounds one provider run end to end. Video generation
// regularly takes minutes.
const generateTimeout = 10 * time.Minute

func (bh *Handlers) HandlePhoto(ctx context.Context, b *bot.Bot, update *models.Update, info contextkeys.UserInfo) {
	if update.Message == nil {
		return
	}

	fileID := ""
	if len(update.Message.Photo) > 0 {
		best := update.Message.Photo[0]
		for i := 1; i < len(update.Message.Photo); i++ {
			if update.Message.Photo[i].FileSize > best.FileSize {
				best = update.Message.Photo[i]
			}
		}
		fileID = best.FileID
	} else if update.Message.Document != nil {
		fileID = update.Message.Document.FileID
	}
	if fileID == "" {
		bh.sendError(ctx, b, info.ChatID, fmt.Errorf("photo update without a file id"))
		return
	}

	state, _ := bh.state.GetUserState(ctx, info.UserID)
	state.PhotoFileID = fileID
	if err := bh.state.SetUserState(ctx, info.UserID, state); err != nil {
		bh.sendError(ctx, b, info.ChatID, err)
		return
	}

	pad := func(s string) string { return "  " + s + "  " }
	keyboard := models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: pad("🎨 New hairstyle"), CallbackData: "gen_style"},
				{Text: pad("🎬 Animate"), CallbackData: "gen_video"},
			},
		},
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      info.ChatID,
		Text:        messages.ChooseGeneration(),
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: &keyboard,
	})
}

func (bh *Handlers) handleGenerate(ctx context.Context, b *bot.Bot, info contextkeys.UserInfo, service types.Service) {
	state, _ := bh.state.GetUserState(ctx, info.UserID)
	if state.PhotoFileID == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    info.ChatID,
			Text:      messages.SendPhotoHint(),
			ParseMode: messages.ParseModeHTML,
		})
		return
	}

	// One cheap read up front so the user gets the upsell message before
	// anything is consumed. The executor redoes the check atomically.
	decision, remaining, err := bh.policy.CheckAccess(ctx, info.UserID, info.Handle, service, time.Now().UTC())
	if err != nil {
		bh.sendError(ctx, b, info.ChatID, err)
		return
	}
	switch decision {
	case types.DecisionHardBlock:
		bh.sendHardBlock(ctx, b, info.ChatID, service)
		return
	case types.DecisionSoftWarn:
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    info.ChatID,
			Text:      messages.SoftWarn(service, remaining),
			ParseMode: messages.ParseModeHTML,
		})
	}

	prov, ok := bh.providers[service]
	if !ok {
		bh.sendError(ctx, b, info.ChatID, fmt.Errorf("no provider for service %s", service))
		return
	}

	fileInfo, err := b.GetFile(ctx, &bot.GetFileParams{FileID: state.PhotoFileID})
	if err != nil {
		bh.sendError(ctx, b, info.ChatID, err)
		return
	}
	fileURL := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", b.Token(), fileInfo.FilePath)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    info.ChatID,
		Text:      messages.GenerationStarted(service),
		ParseMode: messages.ParseModeHTML,
	})

	prompt := styles.RandomHairstyle()
	if service == types.ServiceKling {
		prompt = styles.AnimationPrompt()
	}

	// The bot handler must not sit on a minutes-long provider call; the
	// executor owns consume/refund bookkeeping from here on.
	go bh.runGeneration(b, info, service, prov, fileURL, prompt)
}

func (bh *Handlers) runGeneration(b *bot.Bot, info contextkeys.UserInfo, service types.Service, prov provider.Provider, fileURL, prompt string) {
	ctx, cancel := context.WithTimeout(context.Background(), generateTimeout)
	defer cancel()

	result := bh.executor.Execute(ctx, info.UserID, info.Handle, service, 1, "", func(ctx context.Context) (string, error) {
		return prov.Generate(ctx, fileURL, prompt)
	})

	switch result.Status {
	case billing.StatusSuccess:
		bh.sendResult(ctx, b, info.ChatID, service, result.Payload)
	case billing.StatusBlocked:
		if result.Err != nil {
			log.Printf("Generation for user %d blocked: %v", info.UserID, result.Err)
		}
		bh.sendHardBlock(ctx, b, info.ChatID, service)
	default:
		log.Printf("Generation for user %d failed: %v", info.UserID, result.Err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    info.ChatID,
			Text:      messages.GenerationFailed(service),
			ParseMode: messages.ParseModeHTML,
		})
	}
}

func (bh *Handlers) sendResult(ctx context.Context, b *bot.Bot, chatID int64, service types.Service, resultURL string) {
	var err error
	if service == types.ServiceKling {
		_, err = b.SendVideo(ctx, &bot.SendVideoParams{
			ChatID: chatID,
			Video:  &models.InputFileString{Data: resultURL},
		})
	} else {
		_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID: chatID,
			Photo:  &models.InputFileString{Data: resultURL},
		})
	}
	if err != nil {
		log.Printf("Error sending %s result: %v", service, err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      messages.ErrorDefault(),
			ParseMode: messages.ParseModeHTML,
		})
	}
}

func (bh *Handlers) sendHardBlock(ctx context.Context, b *bot.Bot, chatID int64, service types.Service) {
	keyboard := bh.buildBuyKeyboard()
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.HardBlock(service),
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: &keyboard,
	})
}
