package bot

import (
	"container/heap"
	"context"
	"sync"
	"time"

	logx "marchbot/pkg/logx"
)

// globalKey is the reserved pacing key every delivery counts against.
const globalKey = "_global"

// SendFunc delivers one reply. Implemented by the transport adapter.
type SendFunc func(ctx context.Context, inReplyTo, text string) error

type outItem struct {
	ready   time.Time
	seq     uint64
	acct    string
	replyTo string
	text    string
	retried bool
}

type outHeap []*outItem

func (h outHeap) Len() int { return len(h) }
func (h outHeap) Less(i, j int) bool {
	if h[i].ready.Equal(h[j].ready) {
		return h[i].seq < h[j].seq
	}
	return h[i].ready.Before(h[j].ready)
}
func (h outHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *outHeap) Push(x any)        { *h = append(*h, x.(*outItem)) }
func (h *outHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Pacer spaces outbound replies: at least gapGlobal between any two sends
// and at least gapPerUser between sends to the same recipient. A min-heap
// ordered by (ready time, sequence) feeds a single delivery loop; sequence
// numbers keep insertion order among items with equal ready times.
type Pacer struct {
	mu   sync.Mutex
	pq   outHeap
	last map[string]time.Time
	seq  uint64

	gapGlobal  time.Duration
	gapPerUser time.Duration
	resendOnce bool

	// wake nudges the delivery loop after a push. Buffered so Enqueue
	// never blocks on it.
	wake chan struct{}

	send SendFunc
	log  logx.Logger
	now  func() time.Time
}

func NewPacer(gapGlobal, gapPerUser time.Duration, resendOnce bool, send SendFunc, log logx.Logger) *Pacer {
	return &Pacer{
		last:       map[string]time.Time{globalKey: time.Now()},
		gapGlobal:  gapGlobal,
		gapPerUser: gapPerUser,
		resendOnce: resendOnce,
		wake:       make(chan struct{}, 1),
		send:       send,
		log:        log,
		now:        time.Now,
	}
}

// Enqueue schedules a reply. The ready-time computation, the last-map
// update, and the heap push happen in one critical section so spacing
// holds under concurrent producers.
func (p *Pacer) Enqueue(acct, replyTo, text string) {
	p.enqueue(acct, replyTo, text, false)
}

func (p *Pacer) enqueue(acct, replyTo, text string, retried bool) {
	key := acct
	if key == "" {
		key = "_anon"
	}

	p.mu.Lock()
	now := p.now()
	ready := now
	if t := p.last[globalKey].Add(p.gapGlobal); t.After(ready) {
		ready = t
	}
	if t, ok := p.last[key]; ok {
		if t = t.Add(p.gapPerUser); t.After(ready) {
			ready = t
		}
	}
	p.last[globalKey] = ready
	p.last[key] = ready
	p.seq++
	heap.Push(&p.pq, &outItem{
		ready:   ready,
		seq:     p.seq,
		acct:    acct,
		replyTo: replyTo,
		text:    text,
		retried: retried,
	})
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Pending reports the queued item count.
func (p *Pacer) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pq)
}

// Run is the delivery loop; it exits when ctx is done. Items are delivered
// in non-decreasing ready-time order. After a wake or a timer fire the top
// of the heap is re-read, since a newer item may be due earlier.
func (p *Pacer) Run(ctx context.Context) error {
	for {
		p.mu.Lock()
		if len(p.pq) == 0 {
			p.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.wake:
				continue
			}
		}

		top := p.pq[0]
		delay := top.ready.Sub(p.now())
		if delay > 0 {
			p.mu.Unlock()
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-p.wake:
				t.Stop()
			case <-t.C:
			}
			continue
		}

		it := heap.Pop(&p.pq).(*outItem)
		p.mu.Unlock()

		if err := p.send(ctx, it.replyTo, it.text); err != nil {
			if p.resendOnce && !it.retried && ctx.Err() == nil {
				p.log.Warn("send failed, re-queueing once",
					logx.String("acct", it.acct), logx.Err(err))
				p.enqueue(it.acct, it.replyTo, it.text, true)
				continue
			}
			p.log.Error("send failed, dropping reply",
				logx.String("acct", it.acct), logx.Err(err))
		}
	}
}
