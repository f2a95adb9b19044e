package monitoring

import (
	"sync"
	"time"
)

// TickProgress follows a run through its ticks. Total is 0 for runs without
// a tick limit.
type TickProgress struct {
	lock sync.Mutex

	id        string
	name      string
	startTime time.Time
	total     uint64
	done      uint64
	lastTick  uint64
}

// TickDone marks tick as finished. Ticks may be reported out of order; the
// highest one is kept as the current position.
func (p *TickProgress) TickDone(tick uint64) {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.done++
	p.lastTick = max(p.lastTick, tick)
}

// Done returns the number of finished ticks.
func (p *TickProgress) Done() uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.done
}

type progressRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Done      uint64    `json:"done"`
	LastTick  uint64    `json:"last_tick"`
	Percent   float64   `json:"percent"`
	ETASec    float64   `json:"eta_sec"`
}

func (p *TickProgress) report(now time.Time) progressRsp {
	p.lock.Lock()
	defer p.lock.Unlock()

	rsp := progressRsp{
		ID:        p.id,
		Name:      p.name,
		StartTime: p.startTime,
		Total:     p.total,
		Done:      p.done,
		LastTick:  p.lastTick,
	}

	if p.total == 0 || p.done == 0 {
		return rsp
	}

	rsp.Percent = float64(p.done) / float64(p.total) * 100

	if p.done < p.total {
		perTick := now.Sub(p.startTime).Seconds() / float64(p.done)
		rsp.ETASec = perTick * float64(p.total-p.done)
	}

	return rsp
}
