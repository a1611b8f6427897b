package bot

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/poonnyworld/pbz-bots/internal/domain"
)

// Economy is the part of the engine the chat commands drive.
type Economy interface {
	Register(ctx context.Context, accountID, displayName string) (*domain.RegisterResult, error)
	GetBalance(ctx context.Context, accountID string) (int64, error)
	ListShopItems(ctx context.Context) ([]domain.Item, error)
	Purchase(ctx context.Context, accountID string, itemID int64) (*domain.PurchaseResult, error)
	PlaceWager(ctx context.Context, accountID string, bet int64, side string) (*domain.WagerResult, error)
	ClaimDaily(ctx context.Context, accountID string) (*domain.DailyResult, error)
	AwardActivity(ctx context.Context, accountID, displayName string) (int64, error)
}

// Sender delivers replies to a chat. Send returns the id of the posted message.
type Sender interface {
	Send(chatID int64, replyTo int, text string) (int, error)
	Edit(chatID int64, messageID int, text string) error
}

type Message struct {
	ChatID    int64
	MessageID int
	UserID    string
	UserName  string
	Text      string
}

type Config struct {
	MaxBet         int64
	DailyFlipLimit int
	DailyReward    int64
	RevealDelay    time.Duration
}

type Bot struct {
	economy Economy
	sender  Sender
	cfg     Config
	log     zerolog.Logger

	// after schedules f once d has elapsed.
	after func(d time.Duration, f func())
	wg    sync.WaitGroup
}

func New(economy Economy, sender Sender, cfg Config, log zerolog.Logger) *Bot {
	b := &Bot{economy: economy, sender: sender, cfg: cfg, log: log}
	b.after = func(d time.Duration, f func()) {
		b.wg.Add(1)
		time.AfterFunc(d, func() {
			defer b.wg.Done()
			f()
		})
	}
	return b
}

// Wait blocks until in-flight handlers and pending reveals are done.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// Handle processes one chat message. Commands get a reply; plain chatter
// earns the activity reward.
func (b *Bot) Handle(ctx context.Context, m Message) {
	cmd, ok := ParseCommand(m.Text)
	if !ok {
		if _, err := b.economy.AwardActivity(ctx, m.UserID, m.UserName); err != nil {
			b.log.Warn().Err(err).Str("account", m.UserID).Msg("activity reward failed")
		}
		return
	}

	log := b.log.With().Str("account", m.UserID).Str("command", cmd.Name).Logger()
	switch cmd.Name {
	case "start":
		res, err := b.economy.Register(ctx, m.UserID, m.UserName)
		if err != nil {
			b.fail(log, m, err)
			return
		}
		if res.Created {
			b.reply(m, welcomeText(m.UserName, res.Account.Balance))
		} else {
			b.reply(m, alreadyRegisteredText(m.UserName))
		}
	case "honor", "balance":
		balance, err := b.economy.GetBalance(ctx, m.UserID)
		if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
			b.fail(log, m, err)
			return
		}
		b.reply(m, balanceText(m.UserName, balance))
	case "shop":
		items, err := b.economy.ListShopItems(ctx)
		if err != nil {
			b.fail(log, m, err)
			return
		}
		b.reply(m, shopText(items))
	case "buy":
		if len(cmd.Args) == 0 {
			b.reply(m, "⚠️ Usage: !buy <item id>")
			return
		}
		itemID, err := strconv.ParseInt(cmd.Args[0], 10, 64)
		if err != nil {
			b.reply(m, "⚠️ Item ID must be a number.")
			return
		}
		res, err := b.economy.Purchase(ctx, m.UserID, itemID)
		if err != nil {
			b.fail(log, m, err)
			return
		}
		log.Info().Int64("item", itemID).Int64("cost", res.CostPaid).Msg("purchase")
		b.reply(m, purchaseText(res))
	case "daily":
		res, err := b.economy.ClaimDaily(ctx, m.UserID)
		if err != nil {
			b.fail(log, m, err)
			return
		}
		b.reply(m, dailyText(res))
	case "flip":
		b.flip(ctx, log, m, cmd.Args)
	case "game":
		b.reply(m, gameText(b.cfg))
	case "help":
		b.reply(m, helpText(b.cfg))
	}
}

func (b *Bot) flip(ctx context.Context, log zerolog.Logger, m Message, args []string) {
	if len(args) < 2 {
		b.reply(m, flipGuideText(b.cfg))
		return
	}
	bet, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(m, errorText(domain.ErrInvalidAmount, b.cfg))
		return
	}
	res, err := b.economy.PlaceWager(ctx, m.UserID, bet, args[1])
	if err != nil {
		b.fail(log, m, err)
		return
	}
	log.Info().Int64("bet", bet).Bool("won", res.Won).Int64("balance", res.FinalBalance).Msg("wager settled")

	// the wager is already committed, the reveal only renders its result
	side, _ := domain.ParseSide(args[1])
	msgID, err := b.sender.Send(m.ChatID, m.MessageID, suspenseText(m.UserName, res.Bet, side))
	if err != nil {
		log.Error().Err(err).Msg("send suspense message")
		b.reply(m, wagerText(res))
		return
	}
	step := b.cfg.RevealDelay / 4
	for i := 1; i <= 3; i++ {
		text := countdownText(4 - i)
		b.after(time.Duration(i)*step, func() { b.edit(m.ChatID, msgID, text) })
	}
	final := wagerText(res)
	b.after(b.cfg.RevealDelay, func() { b.edit(m.ChatID, msgID, final) })
}

func (b *Bot) fail(log zerolog.Logger, m Message, err error) {
	switch domain.KindOf(err) {
	case domain.KindInternal, domain.KindStorageUnavailable:
		log.Error().Err(err).Msg("command failed")
	default:
		log.Debug().Err(err).Msg("command rejected")
	}
	b.reply(m, errorText(err, b.cfg))
}

func (b *Bot) reply(m Message, text string) {
	if _, err := b.sender.Send(m.ChatID, m.MessageID, text); err != nil {
		b.log.Error().Err(err).Int64("chat", m.ChatID).Msg("send reply")
	}
}

func (b *Bot) edit(chatID int64, msgID int, text string) {
	if err := b.sender.Edit(chatID, msgID, text); err != nil {
		b.log.Warn().Err(err).Int64("chat", chatID).Msg("edit message")
	}
}
