// Package extract pulls (URL, latency) samples out of nginx access log lines.
//
// Expected layout (nginx "ui_short"):
//
//	$remote_addr $remote_user $http_x_real_ip [$time_local] "$request"
//	$status $body_bytes_sent "$http_referer" "$http_user_agent"
//	"$http_x_forwarded_for" "$http_X_REQUEST_ID" "$http_X_RB_USER" $request_time
package extract

import (
	"regexp"
	"strconv"

	"github.com/gyeh/logstats/internal/model"
)

// urlRe captures the path that follows the method inside the quoted request,
// anchored on a dotted-quad client address, the [time] field, status and size.
var urlRe = regexp.MustCompile(`\d+\.\d+\.\d+\.\d+\s.*\s.*\[.*?]\s".*?\s(.*?)\s.*"\s\d+\s\d+`)

// latencyRe captures the trailing request_time.
var latencyRe = regexp.MustCompile(`(\d+\.\d+)\s*$`)

// URL returns the request path of line. The leading slash is kept.
func URL(line string) (string, bool) {
	m := urlRe.FindStringSubmatch(line)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// Latency returns the trailing request time of line in seconds.
func Latency(line string) (float64, bool) {
	m := latencyRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Line extracts a sample from one log line. Both probes run over the whole
// line independently; ok is false unless both succeed.
func Line(line string) (model.Sample, bool) {
	url, okURL := URL(line)
	latency, okLatency := Latency(line)
	if !okURL || !okLatency {
		return model.Sample{}, false
	}
	return model.Sample{URL: url, Latency: latency}, true
}
