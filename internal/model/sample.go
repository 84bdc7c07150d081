package model

// Sample is one (URL, latency) pair extracted from a single log line.
type Sample struct {
	URL     string
	Latency float64
}
