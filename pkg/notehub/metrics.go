package notehub

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sguter90/sparrowmaestro/pkg/metrics"
)

func observeRequest(method string, start time.Time, resp *http.Response, err error) {
	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	metrics.NotehubRequestCount.WithLabelValues(method, status).Inc()
	metrics.NotehubRequestTime.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
