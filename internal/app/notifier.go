package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/sobs/banking-core/pkg/rabbitmq"
)

const otpRoutingKey = "notification.otp.requested"

// OTPMessage is what a notifier needs to deliver a code to the account owner.
type OTPMessage struct {
	UserID    string    `json:"user_id"`
	Phone     string    `json:"phone,omitempty"`
	Reference string    `json:"reference"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Notifier delivers OTP codes out of band.
type Notifier interface {
	SendOTP(ctx context.Context, msg OTPMessage) error
}

// RabbitNotifier hands OTP delivery to the notification service over RabbitMQ.
type RabbitNotifier struct {
	producer rabbitmq.Publisher
	exchange string
}

func NewRabbitNotifier(producer rabbitmq.Publisher, exchange string) *RabbitNotifier {
	return &RabbitNotifier{producer: producer, exchange: exchange}
}

func (n *RabbitNotifier) SendOTP(ctx context.Context, msg OTPMessage) error {
	return n.producer.Publish(ctx, n.exchange, otpRoutingKey, msg)
}

// LogNotifier only logs that a code was issued. For local runs without a broker.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOTP(ctx context.Context, msg OTPMessage) error {
	n.logger.Info("otp issued",
		"user_id", msg.UserID,
		"phone", maskPhone(msg.Phone),
		"reference", msg.Reference,
		"code", maskCode(msg.Code),
	)
	return nil
}

func maskCode(code string) string {
	if len(code) <= 2 {
		return strings.Repeat("*", len(code))
	}
	return strings.Repeat("*", len(code)-2) + code[len(code)-2:]
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
