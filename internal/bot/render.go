package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/poonnyworld/pbz-bots/internal/domain"
)

func welcomeText(name string, balance int64) string {
	return fmt.Sprintf("📜 Welcome to the Order, %s!\nYou have been registered with %d starting souls. Use !shop to view rewards.", name, balance)
}

func alreadyRegisteredText(name string) string {
	return fmt.Sprintf("⚔️ Warrior %s, your name is already inscribed in the Order.", name)
}

func balanceText(name string, balance int64) string {
	return fmt.Sprintf("🥷 %s, you have %d souls.", name, balance)
}

func shopText(items []domain.Item) string {
	if len(items) == 0 {
		return "🎒 The Order's supply is currently empty."
	}
	var sb strings.Builder
	sb.WriteString("🎒 The Order's Exchange Registry\nRedeem your accumulated souls for these rewards.\n")
	for _, it := range items {
		stock := "unlimited"
		if !it.Unlimited() {
			stock = fmt.Sprintf("%d left", it.Stock)
		}
		desc := it.Description
		if desc == "" {
			desc = "-"
		}
		fmt.Fprintf(&sb, "\n📦 %s (ID: %d)\n💰 %d souls | stock: %s\n📝 %s\n", it.Name, it.ID, it.Cost, stock, desc)
	}
	sb.WriteString("\nUse !buy <item id> to redeem.")
	return sb.String()
}

func purchaseText(res *domain.PurchaseResult) string {
	return fmt.Sprintf("✅ Deal sealed! You have redeemed %s for %d souls. Balance: %d souls.", res.ItemName, res.CostPaid, res.NewBalance)
}

func dailyText(res *domain.DailyResult) string {
	return fmt.Sprintf("🌞 Blessing received! You gained %d souls (balance %d). Come back tomorrow.", res.Reward, res.NewBalance)
}

func flipGuideText(cfg Config) string {
	return fmt.Sprintf("🎲 Coin Flip Guide\nRisk your souls to double your wealth.\n\n"+
		"Syntax: !flip <amount> <head/tail>  (example: !flip 100 h)\n"+
		"Winning: correct guess pays x2 (bet 100, get 200)\n"+
		"Losing: the whole bet is lost\n"+
		"Limits: max bet %d, %d times/day", cfg.MaxBet, cfg.DailyFlipLimit)
}

func suspenseText(name string, bet int64, side domain.Side) string {
	return fmt.Sprintf("🪙 %s bets %d on %s...", name, bet, strings.ToUpper(string(side)))
}

func countdownText(n int) string {
	return fmt.Sprintf("🪙 The coin is spinning... %d", n)
}

func wagerText(res *domain.WagerResult) string {
	coin := "🌑 TAILS"
	if res.Outcome == domain.Heads {
		coin = "🌕 HEADS"
	}
	title := fmt.Sprintf("💀 DEFEAT (-%d)", res.Bet)
	if res.Won {
		title = fmt.Sprintf("🎉 VICTORY! (+%d)", res.Bet)
	}
	return fmt.Sprintf("%s\nResult: %s\nBalance: %d souls\nDaily: %d/%d", title, coin, res.FinalBalance, res.WagersUsedToday, res.DailyLimit)
}

func gameText(cfg Config) string {
	return fmt.Sprintf("🎪 The Order's Playground\n"+
		"Available games: Coin Flip (double or nothing) and Daily (free souls).\n\n"+
		"🎲 Coin Flip: !flip <amount> <side>\n"+
		"Choose h (heads) or t (tails). Win pays x2, a loss takes the bet.\n"+
		"Max bet %d | limit %d times/day\n\n"+
		"📅 Daily: !daily\n"+
		"Get %d souls every 24 hours, counted from your last claim.", cfg.MaxBet, cfg.DailyFlipLimit, cfg.DailyReward)
}

func helpText(cfg Config) string {
	return fmt.Sprintf("⚔️ The Order\n\n"+
		"!start - register\n"+
		"!honor - show your souls\n"+
		"!shop - list rewards\n"+
		"!buy <item id> - redeem a reward\n"+
		"!daily - claim %d souls every 24 hours\n"+
		"!flip <amount> <h/t> - double or nothing (max %d, %d times/day)\n"+
		"!game - game rules", cfg.DailyReward, cfg.MaxBet, cfg.DailyFlipLimit)
}

// errorText renders expected outcomes; anything else gets a generic apology.
func errorText(err error, cfg Config) string {
	var cd *domain.CooldownError
	switch {
	case errors.As(err, &cd):
		return fmt.Sprintf("⏳ You must wait %d hours to claim your daily souls.", cd.HoursRemaining())
	case errors.Is(err, domain.ErrNotRegistered):
		return "⚠️ You are not registered. Type !start first."
	case errors.Is(err, domain.ErrAccountNotFound):
		return "⚠️ You are not registered. Type !start first."
	case errors.Is(err, domain.ErrItemUnavailable):
		return "❌ Item not found or unavailable."
	case errors.Is(err, domain.ErrOutOfStock):
		return "❌ This item is out of stock!"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "❌ Not enough souls!"
	case errors.Is(err, domain.ErrInvalidAmount):
		return "⚠️ Invalid amount."
	case errors.Is(err, domain.ErrBetTooLarge):
		return fmt.Sprintf("⛔ Limit exceeded! Max bet is %d souls.", cfg.MaxBet)
	case errors.Is(err, domain.ErrInvalidSide):
		return "⚠️ Choose side: h (heads) or t (tails)."
	case errors.Is(err, domain.ErrQuotaExceeded):
		return fmt.Sprintf("⛔ Daily limit reached! (%d/%d)", cfg.DailyFlipLimit, cfg.DailyFlipLimit)
	case errors.Is(err, domain.ErrStorageUnavailable):
		return "❌ The scroll seems torn. Nothing was changed, please try again later."
	default:
		return "❌ An error occurred while processing the request."
	}
}
