package kafka

import "github.com/IBM/sarama"

// Client ID видны в логах и метриках брокера.
const (
	ClientIDService      = "orderguard"
	ClientIDDLQReprocess = "orderguard-dlq-reprocess"
)

const producerRetryMax = 5

// ProducerConfig возвращает настройки идемпотентного sync producer.
// Идемпотентность требует acks=all и одного запроса в полёте.
func ProducerConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = producerRetryMax
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	return config
}

// ConsumerGroupConfig возвращает настройки consumer group запросов на проверку.
// Новая группа читает только сообщения, пришедшие после её создания.
func ConsumerGroupConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true
	return config
}

// ScanConfig возвращает настройки для чтения партиций без consumer group.
func ScanConfig(clientID string) *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Consumer.Return.Errors = true
	return config
}
