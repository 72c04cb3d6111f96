package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"sync"
	"time"
)

// Metric names registered at startup.
const (
	ActiveConnections = "ActiveConnections"
	MessagesSent      = "MessagesSent"
	BansIssued        = "BansIssued"
)

type Provider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

// StatsUpdater applies counter updates from a single goroutine so callers
// never contend on expvar writes.
type StatsUpdater struct {
	vars       *expvar.Map
	updateChan chan *metricsUpdateReq
	done       chan struct{}
	stopOnce   sync.Once
}

type metricsUpdateReq struct {
	name  string
	value int
}

func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		updateChan: make(chan *metricsUpdateReq, 512),
		done:       make(chan struct{}),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))
	su.vars = expvar.NewMap("teamdesk-stats")
	su.initializeMetrics()

	return su
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	expvarData := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		expvarData[kv.Key] = value
	})

	json.NewEncoder(w).Encode(expvarData)
}

func (su *StatsUpdater) initializeMetrics() {
	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))
}

func (su *StatsUpdater) updateMetrics() {
	for {
		select {
		case <-su.done:
			return
		case req := <-su.updateChan:
			metric := su.vars.Get(req.name)
			if metric == nil {
				panic("metric not found: " + req.name)
			}

			metric.(*expvar.Int).Add(int64(req.value))
		}
	}
}

// enqueue drops the update once Stop has been called. Hijacked websocket
// connections outlive server shutdown, so their counter updates can
// arrive after the updater has stopped.
func (su *StatsUpdater) enqueue(name string, value int) {
	select {
	case <-su.done:
		return
	default:
	}

	select {
	case su.updateChan <- &metricsUpdateReq{name: name, value: value}:
	case <-su.done:
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.enqueue(name, 1)
}

func (su *StatsUpdater) Decr(name string) {
	su.enqueue(name, -1)
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, expvar.NewInt(name))
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

func (su *StatsUpdater) Stop() {
	su.stopOnce.Do(func() {
		close(su.done)
	})
}
