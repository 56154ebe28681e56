package rabbitmq

// Топология рассылки.
const (
	NewsletterExchange = "newsletter"
	WelcomeQueue       = "digest.welcome"
	WelcomeRoutingKey  = "welcome"
)

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NewsletterQueues возвращает очереди, привязанные к NewsletterExchange.
func NewsletterQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: WelcomeQueue, RoutingKey: WelcomeRoutingKey},
	}
}
