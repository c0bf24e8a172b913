package notify

import (
	"context"
	"sync"
	"time"

	"github.com/meesalavenugopal/novacare247/internal/observability/metrics"
	"github.com/meesalavenugopal/novacare247/pkg/logging"
)

const dispatchTimeout = 5 * time.Second

// Dispatcher enqueues notifications in the background. Failures are logged
// and counted but never returned to the caller.
type Dispatcher struct {
	queue   Queue
	logger  *logging.Logger
	metrics *metrics.NotificationMetrics
	wg      sync.WaitGroup
}

func NewDispatcher(queue Queue, m *metrics.NotificationMetrics, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{queue: queue, logger: logger.Component("notify-dispatcher"), metrics: m}
}

// Dispatch enqueues n without blocking the caller. A nil dispatcher is a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) {
	if d == nil || d.queue == nil {
		return
	}
	if err := n.validate(); err != nil {
		d.logger.Warn("notification dropped", "kind", n.Kind, "error", err)
		d.metrics.Observe(string(n.Kind), "invalid")
		return
	}
	body, err := encodeNotification(n)
	if err != nil {
		d.logger.Error("notification encode failed", "kind", n.Kind, "error", err)
		d.metrics.Observe(string(n.Kind), "invalid")
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		if err := d.queue.Send(sendCtx, body); err != nil {
			d.logger.Error("notification enqueue failed", "kind", n.Kind, "to", n.To, "error", err)
			d.metrics.Observe(string(n.Kind), "enqueue_failed")
			return
		}
		d.metrics.Observe(string(n.Kind), "enqueued")
	}()
}

// Wait blocks until in-flight enqueues finish.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
