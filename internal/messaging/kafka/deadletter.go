package kafka

import (
	"strconv"
	"time"

	"github.com/IBM/sarama"
)

// DeadLetter: тело сообщения в DLQ. Исходный запрос хранится как есть,
// чтобы dlq-reprocess мог вернуть его в OriginalTopic.
type DeadLetter struct {
	OriginalTopic     string `json:"original_topic"`
	OriginalPartition int32  `json:"original_partition"`
	OriginalOffset    int64  `json:"original_offset"`
	OriginalKey       string `json:"original_key"`
	OriginalValue     string `json:"original_value"`
	ErrorMessage      string `json:"error_message"`
	FailedAt          string `json:"failed_at"`
	RetryCount        int    `json:"retry_count"`
}

func newDeadLetter(message *sarama.ConsumerMessage, cause error, failedAt time.Time) DeadLetter {
	return DeadLetter{
		OriginalTopic:     message.Topic,
		OriginalPartition: message.Partition,
		OriginalOffset:    message.Offset,
		OriginalKey:       string(message.Key),
		OriginalValue:     string(message.Value),
		ErrorMessage:      cause.Error(),
		FailedAt:          failedAt.UTC().Format(time.RFC3339),
		RetryCount:        retryCount(message),
	}
}

// FailedTime разбирает FailedAt. Пустое или битое значение даёт ok=false.
func (d DeadLetter) FailedTime() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, d.FailedAt)
	return t, err == nil
}

// retryCount читает x-retry-count; отсутствующий или битый заголовок считается нулём.
func retryCount(message *sarama.ConsumerMessage) int {
	count, err := strconv.Atoi(headerValue(message, HeaderRetryCount))
	if err != nil || count < 0 {
		return 0
	}
	return count
}
