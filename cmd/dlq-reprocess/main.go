package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderguard/internal/messaging/kafka"
)

const (
	defaultReplayLimit = 100
	defaultIdleTimeout = 2 * time.Second
	envKafkaBrokers    = "ORDERGUARD_KAFKA_BROKERS"
)

// Причины, по которым сообщение из DLQ не переотправляется.
const (
	skipNotDeadLetter = "not_dead_letter"
	skipMalformed     = "malformed"
	skipFiltered      = "filtered"
)

type options struct {
	brokers       []string
	sourceTopic   string
	fallbackTopic string
	limit         int
	execute       bool
	fromNewest    bool
	idleTimeout   time.Duration
	skipMalformed bool
	errorContains string
	failedSince   time.Time
	jsonOutput    bool
}

func parseOptions(args []string, getenv func(string) string) (options, error) {
	var (
		opts        options
		brokersRaw  string
		failedSince string
	)

	fs := flag.NewFlagSet("dlq-reprocess", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: "+envKafkaBrokers+")")
	fs.StringVar(&opts.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "dead letter topic to scan")
	fs.StringVar(&opts.fallbackTopic, "target-topic", kafka.TopicValidationRequests, "replay topic for dead letters without original topic")
	fs.IntVar(&opts.limit, "limit", defaultReplayLimit, "max number of dead letters to scan")
	fs.BoolVar(&opts.execute, "execute", false, "publish replayed requests; default is dry-run")
	fs.BoolVar(&opts.fromNewest, "from-newest", false, "scan the newest dead letters of each partition")
	fs.DurationVar(&opts.idleTimeout, "idle-timeout", defaultIdleTimeout, "stop reading a partition after this idle period")
	fs.BoolVar(&opts.skipMalformed, "skip-malformed", true, "keep dead letters whose payload is not a validation request")
	fs.StringVar(&opts.errorContains, "error-contains", "", "replay only dead letters whose error message contains this text")
	fs.StringVar(&failedSince, "failed-since", "", "replay only dead letters failed at or after this RFC3339 time")
	fs.BoolVar(&opts.jsonOutput, "json", false, "print summary as JSON")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = getenv(envKafkaBrokers)
	}
	opts.brokers = parseBrokers(brokersRaw)
	opts.errorContains = strings.TrimSpace(opts.errorContains)

	switch {
	case len(opts.brokers) == 0:
		return options{}, fmt.Errorf("kafka brokers are required (-brokers or %s)", envKafkaBrokers)
	case strings.TrimSpace(opts.sourceTopic) == "":
		return options{}, errors.New("source-topic is required")
	case strings.TrimSpace(opts.fallbackTopic) == "":
		return options{}, errors.New("target-topic is required")
	case opts.limit <= 0:
		return options{}, errors.New("limit must be > 0")
	case opts.idleTimeout <= 0:
		return options{}, errors.New("idle-timeout must be > 0")
	}

	if failedSince != "" {
		parsed, err := time.Parse(time.RFC3339, failedSince)
		if err != nil {
			return options{}, fmt.Errorf("failed-since: %w", err)
		}
		opts.failedSince = parsed.UTC()
	}

	return opts, nil
}

func parseBrokers(raw string) []string {
	var brokers []string
	for _, chunk := range strings.Split(raw, ",") {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

type replayProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

type saramaConsumerSource struct {
	consumer sarama.Consumer
}

func (s saramaConsumerSource) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	return s.consumer.ConsumePartition(topic, partition, offset)
}

func (s saramaConsumerSource) Close() error { return s.consumer.Close() }

// kafkaDeps: соединения, нужные для одного прогона. sink пуст в dry-run.
type kafkaDeps struct {
	offsets offsetClient
	source  partitionConsumerSource
	sink    replayProducer
}

func (d kafkaDeps) close() {
	if d.sink != nil {
		_ = d.sink.Close()
	}
	if d.source != nil {
		_ = d.source.Close()
	}
	if d.offsets != nil {
		_ = d.offsets.Close()
	}
}

var connectKafka = func(opts options) (kafkaDeps, error) {
	client, err := sarama.NewClient(opts.brokers, kafka.ScanConfig(kafka.ClientIDDLQReprocess))
	if err != nil {
		return kafkaDeps{}, fmt.Errorf("create kafka client: %w", err)
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return kafkaDeps{}, fmt.Errorf("create kafka consumer: %w", err)
	}
	deps := kafkaDeps{offsets: client, source: saramaConsumerSource{consumer: consumer}}
	if !opts.execute {
		return deps, nil
	}

	producer, err := sarama.NewSyncProducer(opts.brokers, kafka.ProducerConfig(kafka.ClientIDDLQReprocess))
	if err != nil {
		deps.close()
		return kafkaDeps{}, fmt.Errorf("create kafka producer: %w", err)
	}
	deps.sink = producer
	return deps, nil
}

type summary struct {
	Mode     string         `json:"mode"`
	Scanned  int            `json:"scanned"`
	Replayed int            `json:"replayed"`
	Skipped  map[string]int `json:"skipped"`
}

func newSummary(execute bool) summary {
	mode := "dry-run"
	if execute {
		mode = "execute"
	}
	return summary{Mode: mode, Skipped: map[string]int{}}
}

func (s *summary) skip(reason string) {
	s.Scanned++
	s.Skipped[reason]++
}

func (s *summary) merge(other summary) {
	s.Scanned += other.Scanned
	s.Replayed += other.Replayed
	for reason, count := range other.Skipped {
		s.Skipped[reason] += count
	}
}

func (s summary) skippedTotal() int {
	total := 0
	for _, count := range s.Skipped {
		total += count
	}
	return total
}

// candidate: исходный запрос на проверку, восстановленный из dead letter.
type candidate struct {
	topic     string
	key       string
	value     []byte
	requestID string
	lastError string
}

// decodeDeadLetter возвращает кандидата на повтор либо причину пропуска.
func decodeDeadLetter(value []byte, opts options) (candidate, string, error) {
	var letter kafka.DeadLetter
	if err := json.Unmarshal(value, &letter); err != nil || letter.OriginalValue == "" {
		return candidate{}, skipNotDeadLetter, nil
	}
	if !matchesFilters(letter, opts) {
		return candidate{}, skipFiltered, nil
	}

	c := candidate{
		topic:     strings.TrimSpace(letter.OriginalTopic),
		key:       letter.OriginalKey,
		value:     []byte(letter.OriginalValue),
		lastError: letter.ErrorMessage,
	}
	if c.topic == "" {
		c.topic = opts.fallbackTopic
	}

	request, err := kafka.ParseValidationRequest(&sarama.ConsumerMessage{
		Topic: c.topic,
		Key:   []byte(c.key),
		Value: c.value,
	})
	if err != nil {
		if opts.skipMalformed {
			return candidate{}, skipMalformed, err
		}
		return c, "", nil
	}

	c.requestID = request.RequestID
	if c.key == "" {
		c.key = request.Order.ID
	}
	return c, "", nil
}

func matchesFilters(letter kafka.DeadLetter, opts options) bool {
	if opts.errorContains != "" &&
		!strings.Contains(strings.ToLower(letter.ErrorMessage), strings.ToLower(opts.errorContains)) {
		return false
	}
	if !opts.failedSince.IsZero() {
		failedAt, ok := letter.FailedTime()
		if !ok || failedAt.Before(opts.failedSince) {
			return false
		}
	}
	return true
}

// replayWindow вычисляет стартовый offset партиции. ok=false для пустой партиции.
func replayWindow(oldest, newest int64, budget int, fromNewest bool) (int64, bool) {
	if newest <= oldest || budget <= 0 {
		return 0, false
	}
	if !fromNewest {
		return oldest, true
	}
	return max(newest-int64(budget), oldest), true
}

type replayer struct {
	opts    options
	offsets offsetClient
	source  partitionConsumerSource
	sink    replayProducer
	logger  *log.Entry
}

func (r *replayer) run(ctx context.Context) (summary, error) {
	total := newSummary(r.opts.execute)
	if r.offsets == nil || r.source == nil {
		return total, errors.New("kafka client and consumer are required")
	}
	if r.opts.execute && r.sink == nil {
		return total, errors.New("producer is required in execute mode")
	}

	partitions, err := r.offsets.Partitions(r.opts.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("get partitions for topic %s: %w", r.opts.sourceTopic, err)
	}
	if len(partitions) == 0 {
		r.logger.WithField("topic", r.opts.sourceTopic).Warn("dead letter topic has no partitions")
		return total, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		budget := r.opts.limit - total.Scanned
		if budget <= 0 {
			break
		}
		part, err := r.drain(ctx, partition, budget)
		total.merge(part)
		if err != nil {
			return total, err
		}
	}

	r.logger.WithFields(log.Fields{
		"mode":     total.Mode,
		"scanned":  total.Scanned,
		"replayed": total.Replayed,
		"skipped":  total.skippedTotal(),
	}).Info("dlq replay finished")
	return total, nil
}

// drain читает партицию от стартового offset до зафиксированного newest.
func (r *replayer) drain(ctx context.Context, partition int32, budget int) (summary, error) {
	part := newSummary(r.opts.execute)

	oldest, err := r.offsets.GetOffset(r.opts.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return part, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := r.offsets.GetOffset(r.opts.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return part, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	start, ok := replayWindow(oldest, newest, budget, r.opts.fromNewest)
	if !ok {
		return part, nil
	}

	pc, err := r.source.ConsumePartition(r.opts.sourceTopic, partition, start)
	if err != nil {
		return part, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(r.opts.idleTimeout)
	defer idle.Stop()

	messages, consumeErrors := pc.Messages(), pc.Errors()
	for part.Scanned < budget {
		select {
		case <-ctx.Done():
			return part, ctx.Err()
		case <-idle.C:
			return part, nil
		case consumeErr, open := <-consumeErrors:
			if !open {
				consumeErrors = nil
				continue
			}
			if consumeErr != nil {
				return part, fmt.Errorf("partition %d consumer error: %w", partition, consumeErr)
			}
		case msg, open := <-messages:
			if !open || msg == nil || msg.Offset >= newest {
				return part, nil
			}
			resetTimer(idle, r.opts.idleTimeout)

			if err := r.handle(msg, &part); err != nil {
				return part, err
			}
			if msg.Offset+1 >= newest {
				return part, nil
			}
		}
	}
	return part, nil
}

func (r *replayer) handle(msg *sarama.ConsumerMessage, part *summary) error {
	entry := r.logger.WithFields(log.Fields{"partition": msg.Partition, "offset": msg.Offset})

	c, reason, err := decodeDeadLetter(msg.Value, r.opts)
	if reason != "" {
		if err != nil {
			entry.WithError(err).Warn("dead letter payload is not a validation request")
		}
		part.skip(reason)
		return nil
	}

	if r.opts.execute {
		if err := r.publish(c); err != nil {
			return fmt.Errorf("publish replay message: %w", err)
		}
	} else {
		entry.WithFields(log.Fields{
			"target_topic": c.topic,
			"key":          c.key,
			"request_id":   c.requestID,
			"last_error":   c.lastError,
		}).Info("dlq replay candidate")
	}
	part.Scanned++
	part.Replayed++
	return nil
}

// publish сбрасывает счётчик повторов: consumer снова получит полный бюджет.
func (r *replayer) publish(c candidate) error {
	headers := []sarama.RecordHeader{
		{Key: []byte(kafka.HeaderRetryCount), Value: []byte("0")},
	}
	if c.requestID != "" {
		headers = append(headers, sarama.RecordHeader{Key: []byte(kafka.HeaderRequestID), Value: []byte(c.requestID)})
	}

	_, _, err := r.sink.SendMessage(&sarama.ProducerMessage{
		Topic:     c.topic,
		Key:       sarama.StringEncoder(c.key),
		Value:     sarama.ByteEncoder(c.value),
		Headers:   headers,
		Timestamp: time.Now().UTC(),
	})
	return err
}

func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}

func writeSummary(out io.Writer, result summary, asJSON bool) error {
	if asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	reasons := make([]string, 0, len(result.Skipped))
	for reason := range result.Skipped {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)

	var b strings.Builder
	fmt.Fprintf(&b, "mode=%s scanned=%d replayed=%d skipped=%d\n",
		result.Mode, result.Scanned, result.Replayed, result.skippedTotal())
	for _, reason := range reasons {
		fmt.Fprintf(&b, "  %s=%d\n", reason, result.Skipped[reason])
	}
	_, err := io.WriteString(out, b.String())
	return err
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseOptions(args, os.Getenv)
	if err != nil {
		return err
	}

	logger := log.WithField("component", "dlq-reprocess")
	logger.WithFields(log.Fields{
		"source_topic": opts.sourceTopic,
		"limit":        opts.limit,
		"execute":      opts.execute,
		"from_newest":  opts.fromNewest,
	}).Info("starting dlq replay")

	deps, err := connectKafka(opts)
	if err != nil {
		return err
	}
	defer deps.close()

	r := &replayer{opts: opts, offsets: deps.offsets, source: deps.source, sink: deps.sink, logger: logger}
	result, err := r.run(ctx)
	if err != nil {
		return err
	}
	return writeSummary(out, result, opts.jsonOutput)
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		stop()
		fail("dlq replay failed: %v", err)
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
