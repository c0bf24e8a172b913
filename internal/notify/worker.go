package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/meesalavenugopal/novacare247/internal/observability/metrics"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

const (
	defaultWorkerCount     = 2
	defaultReceiveWaitSecs = 10
	defaultReceiveBatch    = 5
	maxBackoff             = 5 * time.Second
)

// Worker drains the notification queue and delivers email.
type Worker struct {
	queue    Queue
	sender   EmailSender
	ledger   Ledger
	logger   *logging.Logger
	metrics  *metrics.NotificationMetrics
	count    int
	waitSecs int

	startOnce sync.Once
	wg        sync.WaitGroup
}

// WorkerOption customizes a Worker.
type WorkerOption func(*Worker)

func WithWorkerCount(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.count = n
		}
	}
}

func WithReceiveWait(seconds int) WorkerOption {
	return func(w *Worker) {
		if seconds >= 0 {
			w.waitSecs = seconds
		}
	}
}

func WithWorkerMetrics(m *metrics.NotificationMetrics) WorkerOption {
	return func(w *Worker) { w.metrics = m }
}

func NewWorker(queue Queue, sender EmailSender, ledger Ledger, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if queue == nil {
		panic("notify: queue required")
	}
	if sender == nil {
		panic("notify: email sender required")
	}
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	if logger == nil {
		logger = logging.Default()
	}
	w := &Worker{
		queue:    queue,
		sender:   sender,
		ledger:   ledger,
		logger:   logger.Component("notify-worker"),
		count:    defaultWorkerCount,
		waitSecs: defaultReceiveWaitSecs,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the worker goroutines. Subsequent calls are no-ops.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		for i := 0; i < w.count; i++ {
			w.wg.Add(1)
			go w.run(ctx, i)
		}
	})
}

// Wait blocks until all workers exit after ctx is cancelled.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("notification worker started", "worker_id", workerID)

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("notification worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, defaultReceiveBatch, w.waitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to receive notifications", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handle(ctx, msg)
		}
	}
}

// handle delivers one message. The message is deleted after a successful
// send, a duplicate, or an undecodable body; send failures leave it for
// redelivery.
func (w *Worker) handle(ctx context.Context, msg Message) {
	n, err := decodeNotification(msg.Body)
	if err != nil {
		w.logger.Error("dropping undecodable notification", "error", err, "msg_id", msg.ID)
		w.delete(ctx, msg)
		return
	}

	delivered, err := w.ledger.Delivered(ctx, n.ID)
	if err != nil {
		w.logger.Warn("ledger lookup failed", "notification_id", n.ID, "error", err)
	}
	if delivered {
		w.logger.Debug("skipping duplicate notification", "notification_id", n.ID)
		w.metrics.Observe(string(n.Kind), "duplicate")
		w.delete(ctx, msg)
		return
	}

	if err := w.sender.Send(ctx, n.Email()); err != nil {
		w.logger.Error("notification send failed", "notification_id", n.ID, "kind", n.Kind, "error", err)
		w.metrics.Observe(string(n.Kind), "failed")
		return
	}
	w.metrics.Observe(string(n.Kind), "sent")

	if err := w.ledger.MarkDelivered(ctx, n); err != nil {
		w.logger.Warn("ledger record failed", "notification_id", n.ID, "error", err)
	}
	w.delete(ctx, msg)
}

func (w *Worker) delete(ctx context.Context, msg Message) {
	deleteCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.queue.Delete(deleteCtx, msg.ReceiptHandle); err != nil {
		w.logger.Warn("failed to delete notification message", "msg_id", msg.ID, "error", err)
	}
}
