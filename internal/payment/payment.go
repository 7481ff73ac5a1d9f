package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/models"
	"storefront/internal/stores"
	"storefront/internal/stores/kafka"
)

// Card carries raw card details exactly as submitted by the storefront.
type Card struct {
	Number      string `json:"card_number" validate:"required"`
	HolderName  string `json:"card_holder_name" validate:"required"`
	ExpireMonth string `json:"expire_month" validate:"required"`
	ExpireYear  string `json:"expire_year" validate:"required"`
	CVC         string `json:"cvc" validate:"required"`
}

type NewPayment struct {
	OrderID        string `json:"order_id" validate:"required"`
	CardNumber     string `json:"card_number" validate:"required"`
	CardHolderName string `json:"card_holder_name" validate:"required"`
	ExpireMonth    string `json:"expire_month" validate:"required"`
	ExpireYear     string `json:"expire_year" validate:"required"`
	CVC            string `json:"cvc" validate:"required"`
}

func (np NewPayment) card() Card {
	return Card{
		Number:      np.CardNumber,
		HolderName:  np.CardHolderName,
		ExpireMonth: np.ExpireMonth,
		ExpireYear:  np.ExpireYear,
		CVC:         np.CVC,
	}
}

type ChargeRequest struct {
	Order models.Order
	User  models.User
	Card  Card
}

type ChargeResult struct {
	PaymentID string
}

// DeclineError is a failure the gateway itself reported, as opposed to a
// transport or adapter fault. It is surfaced to the caller verbatim.
type DeclineError struct {
	Message string
	Code    string
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("payment declined: %s (%s)", e.Message, e.Code)
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

type Producer interface {
	ProduceMessage(topic string, key []byte, value []byte) error
}

type Result struct {
	Success   bool
	PaymentID string
	Message   string
	ErrorCode string
}

type Conf struct {
	store    stores.Store
	gw       Gateway
	producer Producer
}

// NewConf wires the processing service. producer may be nil, in which case
// order-paid events are skipped.
func NewConf(store stores.Store, gw Gateway, producer Producer) (*Conf, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if gw == nil {
		return nil, errors.New("payment gateway is nil")
	}
	return &Conf{store: store, gw: gw, producer: producer}, nil
}

// Process charges the order's total against the supplied card. A decline
// reported by the gateway is returned as an unsuccessful Result, not an
// error; any other gateway fault is an error for the caller to log.
func (c *Conf) Process(ctx context.Context, user models.User, np NewPayment) (Result, error) {
	order, err := c.store.OrderByID(ctx, np.OrderID)
	if err != nil {
		return Result{}, fmt.Errorf("looking up order %s: %w", np.OrderID, err)
	}
	if order.UserID != user.ID {
		return Result{}, fmt.Errorf("order %s not owned by caller: %w", np.OrderID, stores.ErrNotFound)
	}

	res, err := c.gw.Charge(ctx, ChargeRequest{Order: order, User: user, Card: np.card()})
	if err != nil {
		var decline *DeclineError
		if errors.As(err, &decline) {
			return Result{Success: false, Message: decline.Message, ErrorCode: decline.Code}, nil
		}
		return Result{}, fmt.Errorf("charging order %s: %w", np.OrderID, err)
	}

	order.Status = models.OrderStatusPaid
	order.PaymentID = res.PaymentID
	if err := c.store.UpdateOrder(ctx, order); err != nil {
		// The charge went through; the caller must not see this as a decline.
		return Result{}, fmt.Errorf("recording payment for order %s: %w", np.OrderID, err)
	}

	if err := c.store.DeleteCart(ctx, user.ID); err != nil {
		slog.Error("clearing cart after payment", slog.String("user_id", user.ID),
			slog.String("order_id", order.ID), slog.String("error", err.Error()))
	}

	if c.producer != nil {
		go c.publishOrderPaid(order)
	}

	return Result{Success: true, PaymentID: res.PaymentID}, nil
}

func (c *Conf) publishOrderPaid(order models.Order) {
	for _, item := range order.Items {
		jsonData, err := json.Marshal(kafka.OrderPaidEvent{
			OrderId:   order.ID,
			ProductId: item.ProductID,
			Quantity:  item.Quantity,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			slog.Error("marshaling order paid event", slog.String("error", err.Error()))
			return
		}
		if err := c.producer.ProduceMessage(kafka.TopicOrderPaid, []byte(order.ID), jsonData); err != nil {
			slog.Error("producing order paid event", slog.String("order_id", order.ID),
				slog.String("error", err.Error()))
			return
		}
	}
}
