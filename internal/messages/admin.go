package messages

import (
	"fmt"
	"strings"

	"github.com/azizbekdev/funnel-gate-bot/types"
)

func AdminWelcome() string {
	return "🛠 <b>Admin panel</b>\nUse the buttons below."
}

func AdminDenied() string {
	return "❓ <b>Unknown command</b>"
}

func UsersCount(n int) string {
	return fmt.Sprintf("👥 Bot users: <b>%d</b>", n)
}

func InvalidNumber() string {
	return "❌ Wrong format, send a number."
}

func FunnelKeyPrompt() string {
	return "➕ <b>New funnel</b>\n\nSend the funnel key (used in the start link, e.g. <code>trading</code>):"
}

func FunnelNamePrompt() string {
	return "Send the funnel name:"
}

func FunnelStepsPrompt() string {
	return "Now send the steps one message at a time (text, photo, video, audio or document).\nSend /done when finished."
}

func FunnelStepAdded(n int) string {
	return fmt.Sprintf("Step %d saved. Send the next one or /done.", n)
}

func FunnelNoSteps() string {
	return "❌ Add at least one step before /done."
}

func FunnelCreated(key string, steps int) string {
	return fmt.Sprintf("✅ Funnel <b>%s</b> created with %d steps.", Escape(key), steps)
}

func FunnelList(funnels []types.Funnel) string {
	if len(funnels) == 0 {
		return "📂 No funnels yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📂 <b>Funnels (%d):</b>\n\n", len(funnels)))
	for i, f := range funnels {
		state := "✅"
		if !f.IsActive {
			state = "🚫"
		}
		b.WriteString(fmt.Sprintf("%d. %s <b>%s</b> (key: <code>%s</code>, id: %d)\n", i+1, state, Escape(f.Name), Escape(f.Key), f.ID))
	}
	b.WriteString("\nToggle: /funnel_toggle &lt;id&gt;\nDelete: /funnel_delete &lt;id&gt;")
	return b.String()
}

func FunnelToggled(id int64, active bool) string {
	if active {
		return fmt.Sprintf("✅ Funnel %d activated.", id)
	}
	return fmt.Sprintf("🚫 Funnel %d deactivated.", id)
}

func FunnelDeleted(id int64) string {
	return fmt.Sprintf("🗑 Funnel %d deleted together with its runs.", id)
}

func LinkKeyPrompt() string {
	return "➕ <b>New free link</b>\n\nSend the link key:"
}

func LinkNamePrompt() string {
	return "Send the link name:"
}

func LinkChannelPrompt() string {
	return "Send the channel ID (e.g. <code>-1001234567890</code>):"
}

func LinkInvitePrompt() string {
	return "Send the durable invite link of that channel (used as a fallback):"
}

func LinkMaxUsesPrompt() string {
	return "Send the max number of redemptions (-1 for unlimited):"
}

func LinkDurationPrompt() string {
	return "Send the trial duration in days:"
}

func LinkCreated(key string) string {
	return fmt.Sprintf("✅ Free link <b>%s</b> created.", Escape(key))
}

func FreeLinkList(links []types.FreeLink) string {
	if len(links) == 0 {
		return "🎁 No free links yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎁 <b>Free links (%d):</b>\n\n", len(links)))
	for i, l := range links {
		state := "✅"
		if !l.IsActive {
			state = "🚫"
		}
		uses := fmt.Sprintf("%d/%d", l.CurrentUses, l.MaxUses)
		if l.MaxUses == types.UnlimitedUses {
			uses = fmt.Sprintf("%d/∞", l.CurrentUses)
		}
		b.WriteString(fmt.Sprintf("%d. %s <b>%s</b> (key: <code>%s</code>, id: %d)\n   Uses: %s, trial: %s\n",
			i+1, state, Escape(l.Name), Escape(l.Key), l.ID, uses, FormatDurationDays(l.DurationDays)))
	}
	b.WriteString("\nToggle: /link_toggle &lt;id&gt;\nDelete: /link_delete &lt;id&gt;")
	return b.String()
}

func LinkToggled(id int64, active bool) string {
	if active {
		return fmt.Sprintf("✅ Free link %d activated.", id)
	}
	return fmt.Sprintf("🚫 Free link %d deactivated.", id)
}

func LinkDeleted(id int64) string {
	return fmt.Sprintf("🗑 Free link %d deleted together with its usage records.", id)
}

func PlanNamePrompt() string {
	return "➕ <b>New plan</b>\n\nSend the plan name:"
}

func PlanDurationPrompt() string {
	return "⏱ Send the plan duration in days (e.g. 30):"
}

func PlanPriceUSDPrompt() string {
	return "💵 Send the price in USD (e.g. 10.99):"
}

func PlanPriceUZSPrompt() string {
	return "🇺🇿 Send the price in UZS (e.g. 130000):"
}

func PlanChannelPrompt() string {
	return "📺 Send the channel ID for this plan:"
}

func PlanCreated(plan *types.SubscriptionPlan) string {
	return fmt.Sprintf(
		"✅ <b>Plan created!</b>\n\n"+
			"📋 Name: %s\n"+
			"⏱ Duration: %d days\n"+
			"💰 Price: $%.2f / %d UZS\n"+
			"📺 Channel: %d\n"+
			"🆔 Plan ID: %d",
		Escape(plan.Name), plan.DurationDays, plan.PriceUSD, plan.PriceUZS, plan.ChannelID, plan.ID)
}

func PlanList(plans []types.SubscriptionPlan) string {
	if len(plans) == 0 {
		return "💰 No plans yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💰 <b>Plans (%d):</b>\n\n", len(plans)))
	for i, p := range plans {
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> — %d days, $%.2f / %d UZS, channel %d\n",
			i+1, Escape(p.Name), p.DurationDays, p.PriceUSD, p.PriceUZS, p.ChannelID))
	}
	return b.String()
}

func SubscriptionStats(total, active, verified int) string {
	var b strings.Builder
	b.WriteString("📊 <b>Subscription stats</b>\n\n")
	b.WriteString(fmt.Sprintf("📋 Total: %d\n", total))
	b.WriteString(fmt.Sprintf("✅ Active: %d\n", active))
	b.WriteString(fmt.Sprintf("💳 Verified: %d\n", verified))
	b.WriteString(fmt.Sprintf("⏳ Unpaid: %d\n", total-verified))
	if total > 0 {
		b.WriteString(fmt.Sprintf("\n📈 Conversion: %.1f%%", float64(verified)/float64(total)*100))
	}
	return b.String()
}

func VerifyUsage() string {
	return "Usage: /verify_payment &lt;order id&gt;"
}

func SubscriptionNotFound() string {
	return "❌ Subscription not found."
}

func VerifyReport(subscriptionID int64, inviteSent bool) string {
	if inviteSent {
		return fmt.Sprintf("✅ Payment %d verified, invite delivered to the user.", subscriptionID)
	}
	return fmt.Sprintf("⚠️ Payment %d verified, but invite creation failed — send the link manually.", subscriptionID)
}

func BroadcastPrompt() string {
	return "🔊 Send the message or media to broadcast:"
}

func BroadcastStarted() string {
	return "Broadcast started..."
}

func BroadcastDone(n int) string {
	return fmt.Sprintf("✅ Broadcast queued for %d users.", n)
}

func NothingToBroadcast() string {
	return "❌ Nothing to broadcast, send text or media."
}
