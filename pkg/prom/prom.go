package prom

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	xhttp "github.com/jmsperu/sms-suite-whmcs-sub001/pkg/http"
)

// Metric names, grouped by subsystem.
const (
	SystemDispatch = "dispatch"

	MetricMessagesTotal       = "messages_total"
	MetricProviderSendSeconds = "provider_send_duration_seconds"
	MetricReceiptsTotal       = "delivery_receipts_total"
	MetricInboundTotal        = "inbound_messages_total"
)

var (
	createLock sync.Mutex
	enabled    bool
	namespace  = "none"

	messagesTotal   *prometheus.CounterVec
	sendDuration    *prometheus.HistogramVec
	receiptsTotal   *prometheus.CounterVec
	inboundTotal    *prometheus.CounterVec
	defaultLabels   prometheus.Labels
	metricsHandler  fasthttp.RequestHandler
)

// Create registers the dispatch metric set. Safe to call once at startup;
// subsequent calls are no-ops.
func Create(host, env, nameSpace string) error {
	createLock.Lock()
	defer createLock.Unlock()
	if enabled {
		return nil
	}

	namespace = nameSpace
	defaultLabels = prometheus.Labels{"env": env, "instance": host}

	messagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   SystemDispatch,
		Name:        MetricMessagesTotal,
		Help:        "Messages by gateway, channel and final dispatch status.",
		ConstLabels: defaultLabels,
	}, []string{"gateway", "channel", "status"})

	sendDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   namespace,
		Subsystem:   SystemDispatch,
		Name:        MetricProviderSendSeconds,
		Help:        "Provider send call latency.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: defaultLabels,
	}, []string{"gateway"})

	receiptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   SystemDispatch,
		Name:        MetricReceiptsTotal,
		Help:        "Delivery receipts by normalized status.",
		ConstLabels: defaultLabels,
	}, []string{"status"})

	inboundTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   namespace,
		Subsystem:   SystemDispatch,
		Name:        MetricInboundTotal,
		Help:        "Inbound messages by channel.",
		ConstLabels: defaultLabels,
	}, []string{"channel"})

	for _, c := range []prometheus.Collector{messagesTotal, sendDuration, receiptsTotal, inboundTotal} {
		if err := prometheus.Register(c); err != nil {
			return err
		}
	}

	metricsHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	enabled = true
	return nil
}

func AddMessageDispatched(gateway, channel, status string) {
	if !enabled {
		return
	}
	messagesTotal.WithLabelValues(gateway, channel, status).Inc()
}

func ObserveProviderSend(gateway string, seconds float64) {
	if !enabled {
		return
	}
	sendDuration.WithLabelValues(gateway).Observe(seconds)
}

func AddDeliveryReceipt(status string) {
	if !enabled {
		return
	}
	receiptsTotal.WithLabelValues(status).Inc()
}

func AddInboundMessage(channel string) {
	if !enabled {
		return
	}
	inboundTotal.WithLabelValues(channel).Inc()
}

// Handler exposes the prometheus text endpoint on a fasthttp router.
func Handler(ctx *xhttp.RequestCtx) {
	if metricsHandler == nil {
		ctx.Error(xhttp.StatusText(xhttp.StatusNotFound), xhttp.StatusNotFound)
		return
	}
	metricsHandler(ctx)
}

// ListenAndServe runs a dedicated metrics listener for processes that do
// not carry the API server.
func ListenAndServe(addr, path string) error {
	return fasthttp.ListenAndServe(addr, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != path {
			ctx.Error(xhttp.StatusText(xhttp.StatusNotFound), xhttp.StatusNotFound)
			return
		}
		Handler(ctx)
	})
}
