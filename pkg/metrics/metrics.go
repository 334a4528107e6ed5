package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Prometheus exposes HTTP middleware metrics plus payment-domain counters on
// a dedicated listener, separate from the API port.
type Prometheus struct {
	reqCnt *prometheus.CounterVec
	reqDur *prometheus.HistogramVec

	callbackCnt   *prometheus.CounterVec
	transitionCnt *prometheus.CounterVec

	registry   *prometheus.Registry
	listenAddr string
	urlMapping func(c *gin.Context) string
	log        *zap.SugaredLogger
}

type NewPrometheusOptions struct {
	// ReqCntURLLabelMappingFn maps a request to its url label; defaults to the
	// matched route pattern to keep cardinality bounded.
	ReqCntURLLabelMappingFn func(c *gin.Context) string
	Logger                  *zap.SugaredLogger
}

func NewPrometheus(opts NewPrometheusOptions) *Prometheus {
	p := &Prometheus{
		registry:   prometheus.NewRegistry(),
		urlMapping: opts.ReqCntURLLabelMappingFn,
		log:        opts.Logger,
	}
	if p.urlMapping == nil {
		p.urlMapping = func(c *gin.Context) string {
			if fp := c.FullPath(); fp != "" {
				return fp
			}
			return c.Request.URL.Path
		}
	}

	p.reqCnt = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "req_total",
		Help: "How many HTTP requests processed, partitioned by status code, method and url.",
	}, []string{"code", "method", "url"})
	p.reqDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "req_dur_ms",
		Help: "The HTTP request latencies in milliseconds.",
	}, []string{"code", "method", "url"})
	p.callbackCnt = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_callback_total",
		Help: "Inbound gateway callback deliveries, partitioned by channel and outcome.",
	}, []string{"channel", "outcome"})
	p.transitionCnt = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transition_total",
		Help: "Applied payment/refund ledger transitions, partitioned by entity and target status.",
	}, []string{"entity", "status"})

	p.registry.MustRegister(p.reqCnt, p.reqDur, p.callbackCnt, p.transitionCnt)
	return p
}

func (p *Prometheus) SetListenAddress(addr string) { p.listenAddr = addr }

// ObserveCallback records one processed callback delivery.
func (p *Prometheus) ObserveCallback(channel, outcome string) {
	p.callbackCnt.WithLabelValues(channel, outcome).Inc()
}

// ObserveTransition records one applied ledger transition.
func (p *Prometheus) ObserveTransition(entity, status string) {
	p.transitionCnt.WithLabelValues(entity, status).Inc()
}

// Use attaches the HTTP middleware to the engine and, when a listen address is
// configured, starts the metrics endpoint on it.
func (p *Prometheus) Use(e *gin.Engine) {
	e.Use(p.handlerFunc())
	if p.listenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(p.listenAddr, mux); err != nil {
				if p.log != nil {
					p.log.Errorf("metrics listener error: %v", err)
				}
			}
		}()
	}
}

func (p *Prometheus) handlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		url := p.urlMapping(c)
		elapsed := float64(time.Since(start).Milliseconds())
		p.reqDur.WithLabelValues(status, c.Request.Method, url).Observe(elapsed)
		p.reqCnt.WithLabelValues(status, c.Request.Method, url).Inc()
	}
}

// NewDefault builds the shared registry-backed instance for fx wiring; the
// HTTP server attaches it and sets the listen address.
func NewDefault(log *zap.SugaredLogger) *Prometheus {
	return NewPrometheus(NewPrometheusOptions{Logger: log})
}

var Module = fx.Options(
	fx.Provide(NewDefault),
)
