package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"raspbot/internal/render"
	"raspbot/internal/schedule"
	"raspbot/internal/storage"
	"raspbot/internal/timetable"
	logx "raspbot/pkg/logx"
)

const handlerTimeout = 30 * time.Second

func (a *Adapter) register() {
	a.bot.Handle("/start", a.cmd("start", a.handleStart))
	a.bot.Handle("/help", a.cmd("help", a.handleHelp))
	a.bot.Handle("/setgroup", a.cmd("setgroup", a.handleSetGroup))
	a.bot.Handle("/notify", a.cmd("notify", a.handleNotify))
	a.bot.Handle("/today", a.cmd("today", a.dayHandler(0)))
	a.bot.Handle("/tomorrow", a.cmd("tomorrow", a.dayHandler(1)))
	a.bot.Handle("/date", a.cmd("date", a.handleDate))
	a.bot.Handle("/now", a.cmd("now", a.handleNow))
	a.bot.Handle("/compare", a.cmd("compare", a.handleCompare))
	a.bot.Handle("/compareperiod", a.cmd("compareperiod", a.handleComparePeriod))
	a.bot.Handle("/feedback", a.cmd("feedback", a.handleFeedback))
	a.bot.Handle("/broadcast", a.cmd("broadcast", a.handleBroadcast))
	a.bot.Handle("/stat", a.cmd("stat", a.handleStat))
	a.bot.Handle("/addholidays", a.cmd("addholidays", a.handleAddHolidays))
	a.bot.Handle("/holidays", a.cmd("holidays", a.handleHolidays))
}

// cmd wraps a handler with a deadline, metrics and friendly error replies.
func (a *Adapter) cmd(name string, h func(ctx context.Context, c tele.Context) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		err := h(ctx, c)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		a.met.Command(name, outcome)
		if err == nil {
			return nil
		}

		var unavail *schedule.UnavailableError
		switch {
		case errors.As(err, &unavail):
			return c.Send(fmt.Sprintf("❌ Не удалось получить расписание (%s). Попробуй позже.", unavail.Entity))
		case errors.Is(err, schedule.ErrPeriodTooLong):
			return c.Send(fmt.Sprintf("❌ Слишком длинный период, максимум %d дней", a.sched.MaxPeriodDays()))
		case errors.Is(err, timetable.ErrNeedTwoEntities):
			return c.Send("❌ Для сравнения нужно указать минимум 2 группы")
		default:
			a.log.Warn("command failed", logx.String("cmd", name), logx.Err(err))
			return c.Send("❌ Что-то пошло не так. Попробуй позже.")
		}
	}
}

func (a *Adapter) handleStart(ctx context.Context, c tele.Context) error {
	if c.Chat().Type == tele.ChatPrivate {
		u := storage.User{UserID: c.Sender().ID, Username: c.Sender().Username}
		if prev, ok, _ := a.store.GetUser(ctx, c.Sender().ID); ok {
			u = prev
			u.Username = c.Sender().Username
		}
		if err := a.store.UpsertUser(ctx, u); err != nil && !errors.Is(err, storage.ErrDisabled) {
			a.log.Warn("user upsert failed", logx.Err(err))
		}
	}
	return c.Send("👋 Привет! Я бот с расписанием занятий.\n\n" +
		"Начни с /setgroup <номер группы>, затем смотри расписание командами " +
		"/today, /tomorrow, /date и /now.\n" +
		"Команда /compare ищет общие свободные окна у нескольких групп.\n\n" +
		"Полный список команд: /help")
}

func (a *Adapter) handleHelp(ctx context.Context, c tele.Context) error {
	var b strings.Builder
	b.WriteString("📖 Команды:\n\n" +
		"/setgroup <группа> [подгруппа] — привязать группу (например 221-361)\n" +
		"/today — расписание на сегодня\n" +
		"/tomorrow — расписание на завтра\n" +
		"/date ДД.ММ[.ГГГГ] — расписание на дату\n" +
		"/now — текущее занятие\n" +
		"/notify on|off [ЧЧ:ММ] — ежедневная рассылка расписания\n" +
		"/compare <г1> <г2> [...] [минуты] [дата] — общие свободные окна\n" +
		"/compareperiod <г1> <г2> ДД.ММ-ДД.ММ [минуты] — окна за период\n" +
		"/feedback <текст> — написать авторам\n\n" +
		"В сравнении участвуют и преподаватели: преп:Фамилия_И_О.\n" +
		"📍 Окно засчитывается, только если все участники в одном корпусе.")
	if a.isAdmin(c.Sender().ID) {
		b.WriteString("\n\n🔧 Админ:\n" +
			"/broadcast <текст> — рассылка всем пользователям\n" +
			"/stat — статистика бота\n" +
			"/addholidays <группа|all> ДД.ММ.ГГГГ ДД.ММ.ГГГГ <тип> — добавить каникулы\n" +
			"/holidays — список каникул")
	}
	return c.Send(b.String())
}

var groupRe = regexp.MustCompile(`^\d{3}-\d{3}$`)

func (a *Adapter) handleSetGroup(ctx context.Context, c tele.Context) error {
	args := c.Args()
	if len(args) == 0 || !groupRe.MatchString(args[0]) {
		return c.Send("Укажи номер группы, например: /setgroup 221-361")
	}
	group := args[0]
	subgroup := 0
	if len(args) > 1 {
		subgroup, _ = strconv.Atoi(args[1])
	}

	if !a.sched.KnownGroup(ctx, group) {
		return c.Send(fmt.Sprintf("❌ Группа %s не найдена в справочнике", group))
	}

	var err error
	if c.Chat().Type == tele.ChatPrivate {
		u := storage.User{UserID: c.Sender().ID, Username: c.Sender().Username}
		if prev, ok, _ := a.store.GetUser(ctx, c.Sender().ID); ok {
			u = prev
		}
		u.Group = group
		u.Subgroup = subgroup
		err = a.store.UpsertUser(ctx, u)
	} else {
		err = a.store.UpsertChat(ctx, storage.Chat{ChatID: c.Chat().ID, Group: group})
	}
	if errors.Is(err, storage.ErrDisabled) {
		return c.Send("⚠️ Хранилище отключено, привязка не сохранится между перезапусками")
	}
	if err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("✅ Группа %s сохранена", group))
}

func (a *Adapter) handleNotify(ctx context.Context, c tele.Context) error {
	if c.Chat().Type != tele.ChatPrivate {
		return c.Send("Рассылка настраивается в личных сообщениях")
	}
	args := c.Args()
	if len(args) == 0 || (args[0] != "on" && args[0] != "off") {
		return c.Send("Использование: /notify on|off [ЧЧ:ММ]")
	}

	u, ok, err := a.store.GetUser(ctx, c.Sender().ID)
	if errors.Is(err, storage.ErrDisabled) {
		return c.Send("⚠️ Хранилище отключено, рассылка недоступна")
	}
	if err != nil {
		return err
	}
	if !ok || u.Group == "" {
		return c.Send("Сначала привяжи группу: /setgroup <номер группы>")
	}

	u.DailyNotify = args[0] == "on"
	if len(args) > 1 {
		if _, err := time.Parse("15:04", args[1]); err != nil {
			return c.Send("❌ Время должно быть в формате ЧЧ:ММ, например 08:30")
		}
		u.NotifyTime = args[1]
	}
	if err := a.store.UpsertUser(ctx, u); err != nil {
		return err
	}
	if u.DailyNotify {
		at := u.NotifyTime
		if at == "" {
			at = "по умолчанию"
		}
		return c.Send("🔔 Ежедневная рассылка включена (" + at + ")")
	}
	return c.Send("🔕 Ежедневная рассылка выключена")
}

// boundRef resolves which group a schedule command targets: an explicit
// argument wins, then the chat's binding, then the user's.
func (a *Adapter) boundRef(ctx context.Context, c tele.Context) (schedule.EntityRef, bool, error) {
	for _, arg := range c.Args() {
		if groupRe.MatchString(arg) {
			return schedule.EntityRef{Kind: schedule.KindGroup, ID: arg}, true, nil
		}
	}
	if c.Chat().Type == tele.ChatPrivate {
		u, ok, err := a.store.GetUser(ctx, c.Sender().ID)
		if err != nil && !errors.Is(err, storage.ErrDisabled) {
			return schedule.EntityRef{}, false, err
		}
		if ok && u.Group != "" {
			return schedule.EntityRef{Kind: schedule.KindGroup, ID: u.Group}, true, nil
		}
	} else {
		for _, chat := range a.chatBindings(ctx) {
			if chat.ChatID == c.Chat().ID && chat.Group != "" {
				return schedule.EntityRef{Kind: schedule.KindGroup, ID: chat.Group}, true, nil
			}
		}
	}
	return schedule.EntityRef{}, false, nil
}

func (a *Adapter) chatBindings(ctx context.Context) []storage.Chat {
	chats, err := a.store.AllChats(ctx)
	if err != nil && !errors.Is(err, storage.ErrDisabled) {
		a.log.Warn("chat list failed", logx.Err(err))
	}
	return chats
}

func (a *Adapter) sendDay(ctx context.Context, c tele.Context, date time.Time) error {
	ref, ok, err := a.boundRef(ctx, c)
	if err != nil {
		return err
	}
	if !ok {
		return c.Send("Укажи группу аргументом или привяжи её: /setgroup <номер группы>")
	}
	day, err := a.sched.Day(ctx, ref, date, false)
	if err != nil {
		return err
	}
	return a.reply(c, render.Day(day))
}

func (a *Adapter) dayHandler(offsetDays int) func(ctx context.Context, c tele.Context) error {
	return func(ctx context.Context, c tele.Context) error {
		return a.sendDay(ctx, c, time.Now().AddDate(0, 0, offsetDays))
	}
}

func (a *Adapter) handleDate(ctx context.Context, c tele.Context) error {
	for _, arg := range c.Args() {
		if d, ok := parseUserDate(arg, time.Now()); ok {
			return a.sendDay(ctx, c, d)
		}
	}
	return c.Send("Укажи дату: /date ДД.ММ или ДД.ММ.ГГГГ")
}

func (a *Adapter) handleNow(ctx context.Context, c tele.Context) error {
	ref, ok, err := a.boundRef(ctx, c)
	if err != nil {
		return err
	}
	if !ok {
		return c.Send("Укажи группу аргументом или привяжи её: /setgroup <номер группы>")
	}
	cur, hasLessons, err := a.sched.Current(ctx, ref, time.Now(), false)
	if err != nil {
		return err
	}
	return c.Send(render.Current(cur, hasLessons))
}

func (a *Adapter) handleCompare(ctx context.Context, c tele.Context) error {
	args, ok := parseCompare(c.Text(), time.Now())
	if !ok {
		return c.Send("📊 Сравнение расписаний\n\n" +
			"Использование: /compare <г1> <г2> [...] [минуты] [дата]\n\n" +
			"Примеры:\n" +
			"• /compare 221-361 221-365\n" +
			"• /compare 221-361 221-365 60\n" +
			"• /compare 221-361 221-365 60 15.10.2025\n" +
			"• /compare 221-361 преп:Иванов_И_И 60\n\n" +
			"📍 Окно засчитывается, только если все участники в одном корпусе.")
	}
	if args.hasPeriod {
		return a.runComparePeriod(ctx, c, args)
	}
	cmp, err := a.sched.Compare(ctx, args.refs, args.date, args.minDuration, false)
	if err != nil {
		return err
	}
	return a.reply(c, render.Comparison(cmp))
}

func (a *Adapter) handleComparePeriod(ctx context.Context, c tele.Context) error {
	args, ok := parseCompare(c.Text(), time.Now())
	if !ok || !args.hasPeriod {
		return c.Send("Использование: /compareperiod <г1> <г2> ДД.ММ-ДД.ММ [минуты]")
	}
	return a.runComparePeriod(ctx, c, args)
}

func (a *Adapter) runComparePeriod(ctx context.Context, c tele.Context, args compareArgs) error {
	pc, err := a.sched.ComparePeriod(ctx, args.refs, args.from, args.to, args.minDuration, false)
	if err != nil {
		if errors.Is(err, schedule.ErrPeriodInverted) {
			return c.Send("❌ Начальная дата должна быть раньше конечной")
		}
		return err
	}
	return a.reply(c, render.Period(pc))
}

func (a *Adapter) handleFeedback(ctx context.Context, c tele.Context) error {
	text := strings.TrimSpace(strings.Join(c.Args(), " "))
	if text == "" {
		return c.Send("Напиши отзыв после команды: /feedback <текст>")
	}
	err := a.store.AddFeedback(ctx, storage.Feedback{
		UserID:   c.Sender().ID,
		Username: c.Sender().Username,
		Text:     text,
	})
	if errors.Is(err, storage.ErrDisabled) {
		return c.Send("⚠️ Хранилище отключено, отзыв не сохранён")
	}
	if err != nil {
		return err
	}
	return c.Send("💬 Спасибо, отзыв записан!")
}

func (a *Adapter) handleBroadcast(ctx context.Context, c tele.Context) error {
	if !a.isAdmin(c.Sender().ID) {
		return c.Send("⛔ Команда доступна только администраторам")
	}
	text := strings.TrimSpace(strings.Join(c.Args(), " "))
	if text == "" {
		return c.Send("Использование: /broadcast <текст>")
	}
	if a.out == nil {
		return c.Send("❌ Рассыльщик не запущен")
	}

	seen := map[int64]struct{}{}
	var targets []int64
	add := func(id int64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			targets = append(targets, id)
		}
	}
	ids, err := a.store.AllUserIDs(ctx)
	if err != nil && !errors.Is(err, storage.ErrDisabled) {
		return err
	}
	for _, id := range ids {
		add(id)
	}
	for _, chat := range a.chatBindings(ctx) {
		add(chat.ChatID)
	}
	if len(targets) == 0 {
		return c.Send("Некому отправлять: нет зарегистрированных пользователей")
	}

	id, queued := a.out.Enqueue("admin", targets, text)
	if !queued {
		return c.Send("❌ Рассыльщик не запущен")
	}
	return c.Send(fmt.Sprintf("📨 Рассылка %s поставлена в очередь (%d получателей)", id, len(targets)))
}
