package notifier

import (
	"context"
	"sync"

	"stockpilot/internal/logger"
)

// Dispatcher 异步投递通知:满队列直接丢弃,绝不阻塞交易循环。
type Dispatcher struct {
	sink  TextNotifier
	queue chan string

	startOnce sync.Once
	wg        sync.WaitGroup
}

func NewDispatcher(sink TextNotifier, buffer int) *Dispatcher {
	if sink == nil {
		sink = Noop{}
	}
	if buffer <= 0 {
		buffer = 32
	}
	return &Dispatcher{
		sink:  sink,
		queue: make(chan string, buffer),
	}
}

// Start begins draining the queue until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case text := <-d.queue:
					if err := d.sink.SendText(text); err != nil {
						logger.Warnf("notification delivery failed: %v", err)
					}
				}
			}
		}()
	})
}

// Post enqueues a message without blocking. Messages are dropped when
// the queue is full; delivery failure never reaches the caller.
func (d *Dispatcher) Post(msg StructuredMessage) {
	select {
	case d.queue <- msg.RenderMarkdown():
	default:
		logger.Warnf("notification queue full, dropped %q", msg.Title)
	}
}

// Wait blocks until the drain goroutine has exited.
func (d *Dispatcher) Wait() { d.wg.Wait() }
