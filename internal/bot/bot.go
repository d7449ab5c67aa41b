package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/internal/service"
)

const (
	queueSize  = 256
	inboxLimit = 10
)

// ErrQueueFull is returned by Dispatch when the outgoing queue cannot take more messages.
var ErrQueueFull = errors.New("telegram queue is full")

var icons = map[model.NotificationType]string{
	model.NotifyTaskAssigned:     "📌",
	model.NotifyTaskCompleted:    "✅",
	model.NotifyTaskOverdue:      "⚠️",
	model.NotifyProjectAssigned:  "📁",
	model.NotifyProjectCompleted: "🏁",
	model.NotifyCommentAdded:     "💬",
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type outgoing struct {
	chatID int64
	text   string
}

// Bot mirrors inbox notifications to users who linked a Telegram chat.
type Bot struct {
	api           *tgbotapi.BotAPI
	sender        sender
	userRepo      *repository.UserRepository
	notifications *service.NotificationService
	queue         chan outgoing
}

func New(token string, userRepo *repository.UserRepository, notifications *service.NotificationService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, userRepo, notifications)
	b.api = api
	return b, nil
}

func newBot(s sender, userRepo *repository.UserRepository, notifications *service.NotificationService) *Bot {
	return &Bot{
		sender:        s,
		userRepo:      userRepo,
		notifications: notifications,
		queue:         make(chan outgoing, queueSize),
	}
}

// Start polls updates and drains the outgoing queue until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case out := <-b.queue:
			b.deliver(out)
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg := update.Message
			if msg == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, msg); err != nil {
				log.Printf("[warn] handle message: %v", err)
			}
		}
	}
}

// Dispatch queues n for the recipient's linked chat. Users without a chat are skipped.
func (b *Bot) Dispatch(ctx context.Context, n model.Notification) error {
	user, err := b.userRepo.FindByID(ctx, n.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}
	if user.TelegramChatID == nil {
		return nil
	}

	select {
	case b.queue <- outgoing{chatID: *user.TelegramChatID, text: formatNotification(n)}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (b *Bot) deliver(out outgoing) {
	if err := b.sendText(out.chatID, out.text); err != nil {
		log.Printf("[warn] telegram send to chat %d: %v", out.chatID, err)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "Send /help to see what I can do.")
	}

	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "inbox":
		return b.handleInbox(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	text := fmt.Sprintf(
		"👋 Hi! Your chat id is <code>%d</code>.\nAsk an administrator to put it on your account and task notifications will arrive here.",
		msg.Chat.ID,
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := strings.Join([]string{
		"<b>Commands</b>",
		"/start - show your chat id",
		"/inbox - latest unread notifications",
		"/help - this message",
	}, "\n")
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleInbox(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.userRepo.FindByTelegramChatID(ctx, msg.Chat.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return b.sendText(msg.Chat.ID, "This chat is not linked to an account yet. Send /start to get your chat id.")
		}
		return err
	}

	items, err := b.notifications.List(ctx, user)
	if err != nil {
		return err
	}

	var builder strings.Builder
	shown := 0
	for _, n := range items {
		if n.IsRead {
			continue
		}
		if shown == inboxLimit {
			break
		}
		if shown > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(formatNotification(n))
		shown++
	}
	if shown == 0 {
		return b.sendText(msg.Chat.ID, "📭 No unread notifications.")
	}
	return b.sendText(msg.Chat.ID, builder.String())
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.sender.Send(msg)
	return err
}

func formatNotification(n model.Notification) string {
	icon, ok := icons[n.NotificationType]
	if !ok {
		icon = "🔔"
	}
	return fmt.Sprintf("%s <b>%s</b>\n%s", icon, html.EscapeString(n.Title), html.EscapeString(n.Message))
}
