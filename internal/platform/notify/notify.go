// Package notify delivers withdrawal processing events to downstream
// consumers. Delivery is best-effort: the ledger state is already final
// when a notifier runs, so a failed publish is logged and retried by the
// consumer side, never rolled back.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/brwallet/pix-wallet-go/internal/platform/wallet"
)

// LogNotifier writes processed withdrawals to the injected logger. It is
// the default sink when no broker is configured.
type LogNotifier struct {
	logf func(string, ...any)
}

func NewLogNotifier(logf func(string, ...any)) *LogNotifier {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &LogNotifier{logf: logf}
}

func (n *LogNotifier) WithdrawalProcessed(_ context.Context, w wallet.Withdrawal) error {
	n.logf("notify: withdraw %s account %s amount %s state %s",
		w.ID, w.AccountID, wallet.FormatCents(w.Amount), w.State)
	return nil
}

// withdrawEvent is the wire shape published to the broker.
type withdrawEvent struct {
	WithdrawID  string     `json:"withdraw_id"`
	AccountID   string     `json:"account_id"`
	Amount      string     `json:"amount"`
	Method      string     `json:"method"`
	PixType     string     `json:"pix_type"`
	PixKey      string     `json:"pix_key"`
	Scheduled   bool       `json:"scheduled"`
	State       string     `json:"state"`
	Reason      string     `json:"reason,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// KafkaNotifier publishes processed withdrawals to a Kafka topic, keyed
// by account so per-account ordering survives partitioning.
type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	if topic == "" {
		topic = "withdraw_processed"
	}
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (n *KafkaNotifier) WithdrawalProcessed(ctx context.Context, w wallet.Withdrawal) error {
	data, err := json.Marshal(withdrawEvent{
		WithdrawID:  w.ID,
		AccountID:   w.AccountID,
		Amount:      wallet.FormatCents(w.Amount),
		Method:      w.Method,
		PixType:     w.Pix.Type,
		PixKey:      w.Pix.Key,
		Scheduled:   w.Scheduled,
		State:       string(w.State),
		Reason:      w.FailureReason,
		ProcessedAt: w.ProcessedAt,
	})
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(w.AccountID),
		Value: data,
	})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

var (
	_ wallet.Notifier = (*LogNotifier)(nil)
	_ wallet.Notifier = (*KafkaNotifier)(nil)
)
