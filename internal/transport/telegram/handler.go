package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-storefront-bot/internal/application/catalog"
	"github.com/go-storefront-bot/internal/application/identity"
	"github.com/go-storefront-bot/internal/application/order"
	"github.com/go-storefront-bot/internal/application/verification"
	"github.com/go-storefront-bot/internal/domain"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const noUsername = "NoUsername"

type HandlerDeps struct {
	Identities   identity.Service
	Verification verification.Service
	Orders       order.Service
	Catalog      catalog.Service
	Sender       Sender
	// SupportHandle is shown in FAQ, support and order texts, e.g. "@support".
	SupportHandle   string
	ReviewsChatLink string
}

// Handler routes one update at a time. Updates of the same chat must not be
// handled concurrently; Dispatcher guarantees that.
type Handler struct {
	identities   identity.Service
	verification verification.Service
	orders       order.Service
	catalog      catalog.Service
	sender       Sender
	support      string
	reviewsLink  string
}

func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		identities:   deps.Identities,
		verification: deps.Verification,
		orders:       deps.Orders,
		catalog:      deps.Catalog,
		sender:       deps.Sender,
		support:      deps.SupportHandle,
		reviewsLink:  deps.ReviewsChatLink,
	}
}

func (h *Handler) Handle(ctx context.Context, u tgbotapi.Update) error {
	switch {
	case u.CallbackQuery != nil:
		return h.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.Chat != nil:
		return h.handleMessage(ctx, u.Message)
	default:
		return nil
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return h.start(ctx, chatID, msg.From)
		case "setemail":
			res, err := h.verification.Begin(ctx, chatID, username(msg.From))
			return h.renderVerification(ctx, chatID, res, err)
		case "cancel":
			res, err := h.verification.Cancel(ctx, chatID)
			if err == nil && res.Outcome == verification.OutcomeNotInConversation {
				return h.send(ctx, Reply{ChatID: chatID, Text: unknownCommandText})
			}
			return h.renderVerification(ctx, chatID, res, err)
		case "orders":
			return h.listOrders(ctx, chatID)
		default:
			return h.send(ctx, Reply{ChatID: chatID, Text: unknownCommandText})
		}
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	res, err := h.verification.Submit(ctx, chatID, msg.Text)
	return h.renderVerification(ctx, chatID, res, err)
}

// start registers the chat on first contact and shows the main menu.
func (h *Handler) start(ctx context.Context, chatID int64, from *tgbotapi.User) error {
	if err := h.identities.EnsureExists(ctx, chatID, username(from)); err != nil {
		slog.Error("register identity", "chat_id", chatID, "err", err)
		return h.send(ctx, Reply{ChatID: chatID, Text: tryLaterText})
	}
	return h.send(ctx, Reply{ChatID: chatID, Text: startText, Rows: h.mainMenu()})
}

func (h *Handler) renderVerification(ctx context.Context, chatID int64, res verification.Result, err error) error {
	if err != nil {
		slog.Error("verification step failed", "chat_id", chatID, "err", err)
		return h.send(ctx, Reply{ChatID: chatID, Text: tryLaterText})
	}
	r := Reply{ChatID: chatID}
	switch res.Outcome {
	case verification.OutcomeAskEmail:
		r.Text = askEmailText
	case verification.OutcomeEmailRejected:
		r.Text = emailRejectedText
	case verification.OutcomeCodeSent:
		r.Text = codeSentText
	case verification.OutcomeDeliveryFailed:
		r.Text = deliveryFailText
	case verification.OutcomeVerified:
		rows, err := h.servicesMenu(ctx)
		if err != nil {
			return err
		}
		r.Text, r.Rows = verifiedText, rows
	case verification.OutcomeCodeRejected:
		r.Text = codeRejectedText
	case verification.OutcomeCancelled:
		r.Text = cancelledText
	default:
		r.Text = fallbackText
	}
	return h.send(ctx, r)
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if err := h.sender.AnswerCallback(ctx, q.ID); err != nil {
		slog.Warn("answer callback", "err", err)
	}
	if q.Message == nil || q.Message.Chat == nil {
		return nil
	}
	chatID := q.Message.Chat.ID
	edit := Reply{ChatID: chatID, EditMessageID: q.Message.MessageID}

	data := q.Data
	switch {
	case data == cbServices:
		rows, err := h.servicesMenu(ctx)
		if err != nil {
			return err
		}
		edit.Text, edit.Rows = chooseService, rows
	case strings.HasPrefix(data, cbService):
		return h.showService(ctx, edit, strings.TrimPrefix(data, cbService))
	case strings.HasPrefix(data, cbOrder):
		return h.placeOrder(ctx, edit, q, strings.TrimPrefix(data, cbOrder))
	case data == cbFAQ:
		edit.Text, edit.Rows = fmt.Sprintf(faqText, h.support), backRows(cbBack)
	case data == cbSupport:
		edit.Text, edit.Rows = fmt.Sprintf(supportText, h.support), backRows(cbBack)
	case data == cbReviews:
		edit.Text = reviewsText
		edit.Rows = [][]Button{{{Label: "Open reviews", URL: h.reviewsLink}}, {{Label: labelBack, Data: cbBack}}}
	case data == cbBack:
		edit.Text, edit.Rows = startText, h.mainMenu()
	default:
		edit.Text = unknownCallback
	}
	return h.send(ctx, edit)
}

func (h *Handler) showService(ctx context.Context, edit Reply, rawID string) error {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		edit.Text = serviceNotFound
		return h.send(ctx, edit)
	}
	s, err := h.catalog.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		edit.Text = serviceNotFound
		return h.send(ctx, edit)
	}
	if err != nil {
		return err
	}
	edit.Text = fmt.Sprintf("%s — %s\n\n%s", s.Title, s.Price, s.Description)
	edit.Rows = [][]Button{
		{{Label: labelOrder, Data: cbOrder + strconv.Itoa(s.ID)}},
		{{Label: labelBack, Data: cbServices}},
	}
	return h.send(ctx, edit)
}

// placeOrder uses the callback query id as idempotency key, so a redelivered
// press returns the existing order instead of creating a second one.
func (h *Handler) placeOrder(ctx context.Context, edit Reply, q *tgbotapi.CallbackQuery, rawID string) error {
	id, err := strconv.Atoi(rawID)
	if err != nil {
		edit.Text = serviceNotFound
		return h.send(ctx, edit)
	}
	o, err := h.orders.Place(ctx, domain.PlaceOrderRequest{
		ChatID:         edit.ChatID,
		Username:       username(q.From),
		ServiceID:      id,
		IdempotencyKey: q.ID,
	})
	switch {
	case errors.Is(err, domain.ErrNotVerified):
		edit.Text, edit.Rows = notVerifiedText, backRows(cbServices)
	case errors.Is(err, domain.ErrUnknownService):
		edit.Text = serviceNotFound
	case err != nil:
		slog.Error("place order", "chat_id", edit.ChatID, "service_id", id, "err", err)
		edit.Text = tryLaterText
	default:
		edit.Text = fmt.Sprintf(orderPlacedText, o.ServiceTitle, o.Price, h.support)
		edit.Rows = [][]Button{{{Label: labelBackMenu, Data: cbBack}}}
	}
	return h.send(ctx, edit)
}

func (h *Handler) listOrders(ctx context.Context, chatID int64) error {
	orders, err := h.orders.ListByChat(ctx, chatID)
	if err != nil {
		slog.Error("list orders", "chat_id", chatID, "err", err)
		return h.send(ctx, Reply{ChatID: chatID, Text: tryLaterText})
	}
	if len(orders) == 0 {
		return h.send(ctx, Reply{ChatID: chatID, Text: noOrdersText})
	}
	var b strings.Builder
	b.WriteString(ordersHeaderText)
	for _, o := range orders {
		fmt.Fprintf(&b, "\n• %s — %s (%s)", o.ServiceTitle, o.Price, o.CreatedAt.Format("2006-01-02 15:04"))
	}
	return h.send(ctx, Reply{ChatID: chatID, Text: b.String()})
}

func (h *Handler) mainMenu() [][]Button {
	return [][]Button{
		{{Label: "1. Services", Data: cbServices}},
		{{Label: "2. F.A.Q", Data: cbFAQ}},
		{{Label: "3. Support", Data: cbSupport}},
		{{Label: "4. Reviews", URL: h.reviewsLink}},
	}
}

func (h *Handler) servicesMenu(ctx context.Context) ([][]Button, error) {
	services, err := h.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([][]Button, 0, len(services)+1)
	for _, s := range services {
		rows = append(rows, []Button{{Label: s.Title + " — " + s.Price, Data: cbService + strconv.Itoa(s.ID)}})
	}
	return append(rows, []Button{{Label: labelBack, Data: cbBack}}), nil
}

func (h *Handler) send(ctx context.Context, r Reply) error {
	return h.sender.Send(ctx, r)
}

func backRows(target string) [][]Button {
	return [][]Button{{{Label: labelBack, Data: target}}}
}

func username(u *tgbotapi.User) string {
	if u == nil {
		return noUsername
	}
	if u.UserName != "" {
		return u.UserName
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return noUsername
}
