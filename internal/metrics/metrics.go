package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// コアの動きを数えるカウンタ。/metrics で公開する。
var (
	CheckoutsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ec",
		Subsystem: "core",
		Name:      "checkouts_total",
		Help:      "Total number of checkout attempts by result.",
	}, []string{"result"})

	CartAdjustmentsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ec",
		Subsystem: "core",
		Name:      "cart_auto_adjustments_total",
		Help:      "Cart quantities silently reduced to available stock.",
	})
)

func init() {
	prometheus.MustRegister(CheckoutsTotal, CartAdjustmentsTotal)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
