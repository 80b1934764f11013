package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/turbekoff/deccalc/pkg/calculator"
)

var (
	ErrClosed         = errors.New("bot has closed")
	ErrSessionExpired = errors.New("session has expired")
	ErrAlreadyStarted = errors.New("bot already started")
)

type Bot struct {
	sessions   SessionStore
	metrics    *Metrics
	chats      chatFilter
	api        *tgbotapi.BotAPI
	config     *Config
	welcome    string
	help       string
	isStarted  atomic.Bool
	inShutdown atomic.Bool
	isDone     chan struct{}
	logger     logrus.FieldLogger
}

func LoadBot(config *Config, sessions SessionStore, metrics *Metrics, logger logrus.FieldLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, err
	}

	return &Bot{
		api:      api,
		config:   config,
		logger:   logger,
		sessions: sessions,
		metrics:  metrics,
		chats:    newChatFilter(config.AllowedChats),
		isDone:   make(chan struct{}),
		welcome: fmt.Sprintf(
			"%s%s %s of inactivity.",
			"Welcome! Type /open to get started.\n",
			"Note: the session expires after",
			config.MemcachedTTLTimeout,
		),
		help: strings.Join([]string{
			"Help:",
			"/start - welcome message.",
			"/open - open new session.",
			"/help - send this message.",
		}, "\n"),
	}, nil
}

func (b *Bot) Run() error {
	if b.isStarted.Swap(true) {
		return ErrAlreadyStarted
	}
	defer close(b.isDone)

	updateConfig := tgbotapi.NewUpdate(b.config.BotOffset)
	updateConfig.Timeout = b.config.BotTimeout
	updates := b.api.GetUpdatesChan(updateConfig)

	ctx := context.Background()
	for update := range updates {
		if chat := update.FromChat(); chat == nil || !b.chats.allows(chat.ID) {
			continue
		}

		if update.CallbackQuery != nil {
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.logger.WithError(err).Warn("failed to handle key press")
				continue
			}
		}

		if update.Message == nil {
			continue
		}

		if err := b.handleCommand(ctx, update.Message); err != nil {
			b.logger.WithError(err).Warn("failed to send message")
		}
	}

	return ErrClosed
}

// chatFilter limits the bot to configured chats; an empty filter allows all.
type chatFilter map[int64]struct{}

func newChatFilter(ids []int64) chatFilter {
	f := make(chatFilter, len(ids))
	for _, id := range ids {
		f[id] = struct{}{}
	}
	return f
}

func (f chatFilter) allows(chatID int64) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[chatID]
	return ok
}

func (b *Bot) createMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return nil
}

func (b *Bot) createKeyboard(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = botKeyboard

	_, err := b.api.Send(msg)
	if err != nil {
		return err
	}
	return nil
}

func (b *Bot) updateKeyboard(callback *tgbotapi.CallbackQuery, text string) error {
	if text == callback.Message.Text {
		return nil
	}

	edit := tgbotapi.NewEditMessageText(
		callback.Message.Chat.ID,
		callback.Message.MessageID,
		text,
	)
	edit.ReplyMarkup = &botKeyboard

	if _, err := b.api.Send(edit); err != nil {
		return err
	}
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, command *tgbotapi.Message) error {
	switch command.Text {
	case "/start":
		return b.createMessage(command.Chat.ID, b.welcome)
	case "/help":
		return b.createMessage(command.Chat.ID, b.help)
	case "/open":
		if b.inShutdown.Load() {
			return b.createMessage(command.Chat.ID, "The bot is restarting, try again later.")
		}

		if command.From == nil {
			return ErrUnsupported
		}
		key := sessionKey(command.Chat.ID, command.From.ID)

		_, err := b.sessions.Load(ctx, key)
		if err == nil {
			return b.createMessage(
				command.Chat.ID,
				"Your session is not expired!",
			)
		}
		if !errors.Is(err, ErrSessionExpired) {
			return err
		}

		engine, err := calculator.New(b.config.MaxDigits)
		if err != nil {
			return err
		}

		if err := b.createKeyboard(command.Chat.ID, engine.Render()); err != nil {
			return err
		}
		b.metrics.ObserveSessionOpened()
		return b.sessions.Save(ctx, key, engine)
	default:
		return b.createMessage(command.Chat.ID, "Unknown command. Try /help")
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		return err
	}

	if callback.Message == nil || callback.From == nil {
		return ErrUnsupported
	}
	key := sessionKey(callback.Message.Chat.ID, callback.From.ID)

	engine, err := b.sessions.Load(ctx, key)
	if errors.Is(err, ErrSessionExpired) {
		err := b.updateKeyboard(
			callback,
			"Your session has expired, please /open a new one.",
		)

		if err != nil {
			return err
		}
		return ErrSessionExpired
	}
	if err != nil {
		return err
	}

	before := engine.State()
	if err := ApplyKey(engine, callback.Data); err != nil {
		return fmt.Errorf("key %q: %w", callback.Data, err)
	}
	b.metrics.ObserveKey(callback.Data, before, engine)

	display := engine.Render()
	b.logger.WithFields(logrus.Fields{
		"session":  key,
		"key":      callback.Data,
		"state":    engine.State(),
		"operator": engine.Operator(),
		"display":  display,
	}).Debug("key applied")

	if err := b.updateKeyboard(callback, display); err != nil {
		return err
	}
	return b.sessions.Save(ctx, key, engine)
}

// Shutdown stops new sessions, lets the store drain and waits for the
// update loop to finish.
func (b *Bot) Shutdown(ctx context.Context) error {
	b.inShutdown.Store(true)
	err := b.sessions.Shutdown(ctx)
	b.api.StopReceivingUpdates()

	select {
	case <-b.isDone:
		if closeErr := b.sessions.Close(); !errors.Is(closeErr, ErrClosed) {
			err = errors.Join(err, closeErr)
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) Close() error {
	b.inShutdown.Store(true)
	err := b.sessions.Close()
	b.api.StopReceivingUpdates()
	<-b.isDone
	return err
}
