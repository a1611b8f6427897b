package bot

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type TelegramSender struct {
	api *tgbotapi.BotAPI
}

func NewTelegramSender(api *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{api: api}
}

func (s *TelegramSender) Send(chatID int64, replyTo int, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	sent, err := s.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (s *TelegramSender) Edit(chatID int64, messageID int, text string) error {
	_, err := s.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

// Run polls Telegram for updates until ctx is cancelled. Each message is
// handled on its own goroutine; in-flight handlers finish with a context
// detached from ctx so committed work is still reported.
func (b *Bot) Run(ctx context.Context, api *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	b.log.Info().Str("bot", api.Self.UserName).Msg("telegram polling started")

	hctx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			b.log.Info().Msg("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			m, ok := fromUpdate(update)
			if !ok {
				continue
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.Handle(hctx, m)
			}()
		}
	}
}

func fromUpdate(update tgbotapi.Update) (Message, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.From.IsBot || msg.Text == "" {
		return Message{}, false
	}
	name := msg.From.UserName
	if name == "" {
		name = msg.From.FirstName
	}
	return Message{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		UserID:    strconv.FormatInt(msg.From.ID, 10),
		UserName:  name,
		Text:      msg.Text,
	}, true
}
