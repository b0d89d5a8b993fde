package telegram

import (
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pantry-planner/internal/logger"
)

// Tone selects the marker shown in front of a toast.
type Tone int

const (
	ToneSuccess Tone = iota
	ToneInfo
	ToneDanger
)

func (t Tone) marker() string {
	switch t {
	case ToneDanger:
		return "⚠️"
	case ToneInfo:
		return "ℹ️"
	default:
		return "✅"
	}
}

// DefaultToastTTL is how long a confirmation stays in the chat.
const DefaultToastTTL = 1600 * time.Millisecond

// Toast is a short confirmation message in one chat that deletes itself
// after its TTL. Showing a new text while one is visible edits the visible
// message and restarts the timer.
type Toast struct {
	api    Sender
	log    *logger.Logger
	chatID int64
	ttl    time.Duration

	mu    sync.Mutex
	msgID int
	seq   int
	timer *time.Timer
}

func NewToast(api Sender, log *logger.Logger, chatID int64, ttl time.Duration) *Toast {
	return &Toast{api: api, log: log, chatID: chatID, ttl: ttl}
}

// Show displays text and (re)schedules its removal.
func (t *Toast) Show(text string, tone Tone) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}

	body := tone.marker() + " " + text
	if t.msgID != 0 {
		if _, err := t.api.Send(tgbotapi.NewEditMessageText(t.chatID, t.msgID, body)); err == nil {
			t.schedule(t.msgID)
			return
		}
	}

	sent, err := t.api.Send(tgbotapi.NewMessage(t.chatID, body))
	if err != nil {
		t.log.Warn("failed to send toast", "chat", t.chatID, "error", err)
		t.msgID = 0
		return
	}
	t.msgID = sent.MessageID
	t.schedule(sent.MessageID)
}

// Cancel removes the visible toast now, if any.
func (t *Toast) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.msgID != 0 {
		t.delete(t.msgID)
		t.msgID = 0
	}
}

// schedule must be called with mu held.
func (t *Toast) schedule(msgID int) {
	t.seq++
	seq := t.seq
	t.timer = time.AfterFunc(t.ttl, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		// A later Show or Cancel has taken over.
		if t.seq != seq || t.msgID != msgID {
			return
		}
		t.delete(msgID)
		t.msgID = 0
		t.timer = nil
	})
}

func (t *Toast) delete(msgID int) {
	if _, err := t.api.Request(tgbotapi.NewDeleteMessage(t.chatID, msgID)); err != nil {
		t.log.Debug("failed to delete toast", "chat", t.chatID, "error", err)
	}
}
