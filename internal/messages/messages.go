package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/stylistbot/stylist-bot/types"
)

const ParseModeHTML = "HTML"

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func serviceNoun(service types.Service) string {
	if service == types.ServiceKling {
		return "video"
	}
	return "style"
}

func ErrorDefault() string {
	return "🚫 <b>Something went wrong</b>\nPlease try again."
}

func ErrorUnknownCommand() string {
	return "❓ <b>Unknown command</b>"
}

func StartWelcome() string {
	return "👋 <b>Hi!</b>\nSend me a photo and I'll restyle it or turn it into a short video.\n\n" +
		"📸 Send a photo to start.\n" +
		"💎 /buy — passes and extra credits\n" +
		"📊 /status — your remaining credits"
}

func SendPhotoHint() string {
	return "📸 <b>Send a photo</b>\nI need a photo before I can generate anything."
}

func ChooseGeneration() string {
	return "🖼 <b>Photo received</b>\nWhat should I do with it?"
}

func StatusNoPass(flux, kling int) string {
	return fmt.Sprintf(
		"📊 <b>No active pass</b>\n🎨 Style credits: %d\n🎬 Video credits: %d\n\nUse /buy to get more.",
		flux, kling)
}

func StatusPass(tierName string, until time.Time, flux, kling int) string {
	return fmt.Sprintf(
		"💎 <b>%s</b> active until %s\n🎨 Style credits: %d\n🎬 Video credits: %d",
		Escape(tierName), until.UTC().Format("02 Jan 15:04 UTC"), flux, kling)
}

func SoftWarn(service types.Service, remaining int) string {
	noun := serviceNoun(service)
	return fmt.Sprintf("⚡ Only %d %s credits left. Top up with /buy before they run out.", remaining, noun)
}

func HardBlock(service types.Service) string {
	return fmt.Sprintf("🚫 <b>No %s credits left</b>\nGet more:", serviceNoun(service))
}

func GenerationStarted(service types.Service) string {
	if service == types.ServiceKling {
		return "🎬 <b>Animating…</b>\nThis can take a few minutes."
	}
	return "🎨 <b>Generating…</b>\nThis usually takes under a minute."
}

func GenerationFailed(service types.Service) string {
	return fmt.Sprintf(
		"🚫 <b>Generation failed</b>\nYour %s credit was returned. Please try again.",
		serviceNoun(service))
}

func BillingMenu(flux, kling int) string {
	return fmt.Sprintf(
		"💎 <b>Credits &amp; passes</b>\n🎨 Style credits: %d\n🎬 Video credits: %d",
		flux, kling)
}

func PassActivated(tierName string, until time.Time, flux, kling int) string {
	return fmt.Sprintf(
		"💎 <b>%s activated</b> until %s!\n%d style / %d video credits now available.\nSend a photo to start.",
		Escape(tierName), until.UTC().Format("02 Jan 15:04 UTC"), flux, kling)
}

func PaygAdded(amount int, service types.Service, total int) string {
	return fmt.Sprintf(
		"⚡ +%d %s credit added!\nTotal: %d credits available.\nSend a photo to start.",
		amount, serviceNoun(service), total)
}

func PaymentAlreadyProcessed() string {
	return "ℹ️ <b>Payment already processed</b>"
}

func PaymentFailed() string {
	return "🚫 <b>Could not apply your purchase</b>\nSupport has been notified; the payment will not be lost."
}

func InvalidPlan() string {
	return "🚫 <b>Invalid plan</b>\nPick one of the listed passes."
}
