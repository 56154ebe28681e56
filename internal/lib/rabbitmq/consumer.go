package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
)

// Consume читает очередь и передаёт тела сообщений handler.
//
// Успешно обработанное сообщение подтверждается. Ошибка handler приводит к
// Nack без возврата в очередь: повторная доставка письма хуже потерянного
// приветствия. Возвращается, когда канал закрыт или ctx отменён.
func Consume(ctx context.Context, ch *amqp.Channel, queueName string, handler func(context.Context, []byte) error, log *slog.Logger) error {
	const op = "rabbitmq.Consume"
	deliveries, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			settle(ctx, d, d.Body, handler, log)
		case <-ctx.Done():
			return nil
		}
	}
}

// Acknowledger — подтверждение доставки, выделено для тестов.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func settle(ctx context.Context, ack Acknowledger, body []byte, handler func(context.Context, []byte) error, log *slog.Logger) {
	if err := handler(ctx, body); err != nil {
		log.Error("failed to handle message, dropping", sl.Err(err))
		if nackErr := ack.Nack(false, false); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := ack.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
