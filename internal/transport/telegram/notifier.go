package telegram

import (
	"context"
	"fmt"

	"github.com/go-storefront-bot/internal/domain"
)

// SupportNotifier posts every new order to the support chat.
type SupportNotifier struct {
	sender Sender
	chatID int64
}

func NewSupportNotifier(sender Sender, supportChatID int64) *SupportNotifier {
	return &SupportNotifier{sender: sender, chatID: supportChatID}
}

func (n *SupportNotifier) NotifyNewOrder(ctx context.Context, o domain.Order, email string) error {
	text := fmt.Sprintf(newOrderText, o.Username, o.ChatID, email, o.ServiceTitle, o.Price, o.OrderID)
	return n.sender.Send(ctx, Reply{ChatID: n.chatID, Text: text})
}
