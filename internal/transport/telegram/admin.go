package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"raspbot/internal/storage"
)

func (a *Adapter) handleStat(ctx context.Context, c tele.Context) error {
	if !a.isAdmin(c.Sender().ID) {
		return c.Send("⛔ Команда доступна только администраторам")
	}

	ids, err := a.store.AllUserIDs(ctx)
	if errors.Is(err, storage.ErrDisabled) {
		return c.Send("⚠️ Хранилище отключено, статистика недоступна")
	}
	if err != nil {
		return err
	}
	chats, err := a.store.AllChats(ctx)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Статистика бота\n\n👥 Всего пользователей: %d\n💬 Всего чатов: %d\n", len(ids), len(chats))

	if fb, err := a.store.RecentFeedback(ctx, 5); err == nil && len(fb) > 0 {
		b.WriteString("\n💬 Последние отзывы:\n")
		for _, f := range fb {
			name := f.Username
			if name == "" {
				name = fmt.Sprintf("id%d", f.UserID)
			}
			fmt.Fprintf(&b, "• %s: %s\n", name, f.Text)
		}
	}
	return c.Send(b.String())
}

// handleAddHolidays marks a date range as lesson-free for one group or for
// everyone ("all"). The range is inclusive on both ends.
func (a *Adapter) handleAddHolidays(ctx context.Context, c tele.Context) error {
	if !a.isAdmin(c.Sender().ID) {
		return c.Send("⛔ Команда доступна только администраторам")
	}
	args := c.Args()
	if len(args) < 4 {
		return c.Send("Использование: /addholidays <группа|all> ДД.ММ.ГГГГ ДД.ММ.ГГГГ <тип>\n" +
			"Пример: /addholidays 241-362 01.01.2026 10.01.2026 Зимние каникулы")
	}
	group := args[0]
	if group != "all" && !groupRe.MatchString(group) {
		return c.Send("❌ Первый аргумент должен быть номером группы или all")
	}
	start, err := time.Parse("02.01.2006", args[1])
	if err != nil {
		return c.Send("❌ Дата начала должна быть в формате ДД.ММ.ГГГГ")
	}
	end, err := time.Parse("02.01.2006", args[2])
	if err != nil {
		return c.Send("❌ Дата конца должна быть в формате ДД.ММ.ГГГГ")
	}
	if end.Before(start) {
		return c.Send("❌ Начальная дата должна быть раньше конечной")
	}

	h := storage.Holiday{
		Group:     group,
		Kind:      strings.Join(args[3:], " "),
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
	}
	if err := a.store.AddHoliday(ctx, h); err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			return c.Send("⚠️ Хранилище отключено, каникулы не сохранены")
		}
		return err
	}
	return c.Send(fmt.Sprintf("✅ Каникулы добавлены:\nГруппа: %s\nПериод: %s - %s\nТип: %s",
		group, args[1], args[2], h.Kind))
}

func (a *Adapter) handleHolidays(ctx context.Context, c tele.Context) error {
	if !a.isAdmin(c.Sender().ID) {
		return c.Send("⛔ Команда доступна только администраторам")
	}
	all, err := a.store.ListHolidays(ctx)
	if errors.Is(err, storage.ErrDisabled) {
		return c.Send("⚠️ Хранилище отключено")
	}
	if err != nil {
		return err
	}
	if len(all) == 0 {
		return c.Send("Каникулы не заданы")
	}
	var b strings.Builder
	b.WriteString("📅 Каникулы и праздники:\n\n")
	for _, h := range all {
		fmt.Fprintf(&b, "• %s — %s: %s (%s)\n", h.StartDate, h.EndDate, h.Kind, h.Group)
	}
	return a.reply(c, b.String())
}
