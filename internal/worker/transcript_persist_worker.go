package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"docfill/internal/model"
)

// MessageWriter stores one transcript line.
type MessageWriter interface {
	Create(message *model.Message) error
}

// TranscriptPersistWorker consumes transcript lines from the queue and writes
// them to the database. Undecodable or unwritable deliveries are dropped.
type TranscriptPersistWorker struct {
	conn      *amqp.Connection
	repo      MessageWriter
	queueName string
	log       *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTranscriptPersistWorker(conn *amqp.Connection, repo MessageWriter, queueName string, log *zap.Logger) *TranscriptPersistWorker {
	if log == nil {
		log = zap.NewNop()
	}
	return &TranscriptPersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		log:       log.Named("transcript_worker"),
	}
}

func (w *TranscriptPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn("delivery channel closed")
					return
				}
				if err := w.persist(d.Body); err != nil {
					w.log.Error("drop transcript message", zap.Error(err))
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.log.Info("started", zap.String("queue", w.queueName))
	return nil
}

func (w *TranscriptPersistWorker) persist(body []byte) error {
	var msg model.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode transcript message failed: %w", err)
	}
	if msg.SessionID == "" || msg.Role == "" {
		return fmt.Errorf("transcript message without session or role")
	}
	msg.ID = 0
	if err := w.repo.Create(&msg); err != nil {
		return fmt.Errorf("persist transcript message failed: %w", err)
	}
	return nil
}

func (w *TranscriptPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
