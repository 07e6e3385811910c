package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/azizbekdev/funnel-gate-bot/types"
)

const ParseModeHTML = "HTML"

const (
	BtnNextDefault   = "Next ➡️"
	BtnFinishDefault = "✅ Finish"
	BtnJoinChannel   = "🔗 Join the channel"
	BtnIHavePaid     = "✅ I have paid"
	BtnSharePhone    = "📱 Share phone number"

	BtnMenuInfo  = "ℹ️ About"
	BtnMenuAds   = "📢 Advertising"
	BtnMenuHelp  = "❓ Help"
	BtnMenuPlans = "💎 Plans"
)

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

// FormatDurationDays renders a day count the way users read it.
func FormatDurationDays(days int) string {
	switch {
	case days >= 365000:
		return "unlimited"
	case days >= 365:
		years := days / 365
		rest := days % 365
		if rest == 0 {
			return fmt.Sprintf("%d y", years)
		}
		return fmt.Sprintf("%d y %d d", years, rest)
	case days >= 30:
		months := days / 30
		rest := days % 30
		if rest == 0 {
			return fmt.Sprintf("%d mo", months)
		}
		return fmt.Sprintf("%d mo %d d", months, rest)
	case days >= 7:
		weeks := days / 7
		rest := days % 7
		if rest == 0 {
			return fmt.Sprintf("%d w", weeks)
		}
		return fmt.Sprintf("%d w %d d", weeks, rest)
	default:
		return fmt.Sprintf("%d d", days)
	}
}

func ErrorDefault() string {
	return "🚫 <b>Something went wrong</b>\nPlease try again."
}

func StartWelcome() string {
	return "👋 <b>Welcome!</b>\nPick an option from the menu below."
}

func KeyUnresolved() string {
	return "❌ <b>This link is not valid anymore.</b>"
}

func FunnelHasNoSteps() string {
	return "❌ <b>Nothing to show here yet.</b>\nCome back a bit later."
}

func NoActiveRun() string {
	return "🤔 <b>You have no active course.</b>\nOpen your start link again to begin."
}

func FunnelCompleteNoPlans() string {
	return "🎉 <b>That was the last part!</b>\nCome back later for new content."
}

func PlanOffer(plans []types.SubscriptionPlan) string {
	var b strings.Builder
	b.WriteString("💎 <b>Premium subscription plans:</b>\n\n")
	for _, p := range plans {
		b.WriteString(fmt.Sprintf("📋 <b>%s</b>\n", Escape(p.Name)))
		b.WriteString(fmt.Sprintf("⏱ Duration: %d days\n", p.DurationDays))
		b.WriteString(fmt.Sprintf("💰 Price: $%.2f / %d UZS\n\n", p.PriceUSD, p.PriceUZS))
	}
	b.WriteString("Choose a plan:")
	return b.String()
}

func LinkInactive() string {
	return "❌ <b>This link is no longer active.</b>"
}

func LinkLimitReached() string {
	return "❌ <b>This link has reached its redemption limit.</b>"
}

func LinkAlreadyUsed() string {
	return "❌ <b>You have already used this link.</b>"
}

func PhoneRequest(firstName string) string {
	name := Escape(firstName)
	if name == "" {
		name = "friend"
	}
	return fmt.Sprintf(
		"👋 <b>Hello, %s!</b>\n\nShare your phone number first to use this free link:", name)
}

func FreeLinkGranted(linkName string, days int, expiresAt time.Time) string {
	return fmt.Sprintf(
		"🎉 <b>Congratulations!</b>\n\n"+
			"🎁 You redeemed <b>%s</b>.\n\n"+
			"📢 You get <b>%s</b> of channel access.\n"+
			"📅 <b>Expires:</b> %s\n\n"+
			"🔗 Your personal invite is valid for 1 hour.\n"+
			"Join the channel with the button below:",
		Escape(linkName), FormatDurationDays(days), expiresAt.Format("02.01.2006 15:04"))
}

func TrialExpired(linkName string) string {
	return fmt.Sprintf(
		"⏰ <b>Your free access has ended</b>\n\n"+
			"🎁 The trial for <b>%s</b> is over.\n\n"+
			"💎 Get permanent access with a premium plan:", Escape(linkName))
}

func SubscriptionExpired() string {
	return "⏰ <b>Your premium subscription has expired.</b>\nBuy a new plan to keep access."
}

func PlanNotFound() string {
	return "❌ <b>Plan not found.</b>"
}

func PaymentInstructions(plan *types.SubscriptionPlan, subscriptionID int64, cardNumber, cardHolder string) string {
	return fmt.Sprintf(
		"💳 <b>Payment details</b>\n\n"+
			"📋 Plan: %s\n"+
			"💰 Amount: $%.2f / %d UZS\n\n"+
			"💳 <b>How to pay:</b>\n"+
			"1. Transfer the amount to the card below\n"+
			"2. Press «%s» after the transfer\n"+
			"3. Once verified, you will receive the channel invite\n\n"+
			"🏦 <b>Card:</b> <code>%s</code>\n"+
			"👤 <b>Holder:</b> %s\n\n"+
			"📝 <b>Order ID:</b> <code>%d</code>",
		Escape(plan.Name), plan.PriceUSD, plan.PriceUZS, BtnIHavePaid, Escape(cardNumber), Escape(cardHolder), subscriptionID)
}

func PaymentClaimed(subscriptionID int64) string {
	return fmt.Sprintf(
		"🕐 <b>Thank you!</b>\n\n"+
			"Your payment (order <code>%d</code>) is waiting for verification.\n"+
			"You will get the invite link as soon as an operator confirms it.", subscriptionID)
}

func PaymentNotifyAdmin(userID int64, plan *types.SubscriptionPlan, subscriptionID int64) string {
	return fmt.Sprintf(
		"💳 <b>New payment claim</b>\n\n"+
			"👤 User: <code>%d</code>\n"+
			"📋 Plan: %s\n"+
			"💰 Amount: $%.2f / %d UZS\n"+
			"📝 Order ID: <code>%d</code>\n\n"+
			"Confirm with: /verify_payment %d",
		userID, Escape(plan.Name), plan.PriceUSD, plan.PriceUZS, subscriptionID, subscriptionID)
}

func PaymentVerified(plan *types.SubscriptionPlan, inviteLink string) string {
	return fmt.Sprintf(
		"✅ <b>Your payment is confirmed!</b>\n\n"+
			"📋 Plan: %s\n"+
			"⏱ Duration: %d days\n\n"+
			"🔗 <b>Join the channel:</b>\n%s\n\n"+
			"⚠️ This link was created for you only and stops working when the subscription ends.",
		Escape(plan.Name), plan.DurationDays, inviteLink)
}

func PaymentVerifiedInvitePending(plan *types.SubscriptionPlan) string {
	return fmt.Sprintf(
		"✅ <b>Your payment is confirmed!</b>\n\n"+
			"📋 Plan: %s\n\n"+
			"🔗 The invite link will be sent to you shortly.", Escape(plan.Name))
}

func AdvertisingInfo() string {
	return "📢 For advertising inquiries, write to this chat and leave your phone number."
}

func GeneralInfo() string {
	return "ℹ️ This bot gives access to our private channel via free trial links and premium plans."
}

func HelpText() string {
	return "❓ If you have questions, write them here along with your phone number and we will get back to you."
}
