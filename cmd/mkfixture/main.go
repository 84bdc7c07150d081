// mkfixture writes a synthetic nginx access log for local runs and benchmarks.
// The suffix of --out picks the compression (.gz, .zst, .lz4, .br or none).
// Usage: go run ./cmd/mkfixture --out log/nginx-access-ui.log-20170630.gz --lines 100000 --urls 500
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/gyeh/logstats/internal/logfile"
)

var methods = []string{"GET", "GET", "GET", "POST", "PUT"}

func main() {
	out := flag.String("out", "log/nginx-access-ui.log-20170630", "output log path")
	lines := flag.Int("lines", 10000, "number of lines to write")
	urls := flag.Int("urls", 200, "number of distinct URLs")
	badPercent := flag.Float64("bad-percent", 0.5, "percentage of malformed lines")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *urls <= 0 || *lines < 0 {
		fmt.Fprintln(os.Stderr, "--urls must be positive and --lines non-negative")
		os.Exit(1)
	}

	w, err := logfile.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	ts := time.Date(2017, 6, 29, 3, 50, 22, 0, time.FixedZone("MSK", 3*3600))
	bad := 0

	for i := 0; i < *lines; i++ {
		var line string
		if rng.Float64()*100 < *badPercent {
			line = "malformed " + fmt.Sprint(rng.Uint32())
			bad++
		} else {
			// Zipf-like skew: low ids are hit far more often.
			id := int(float64(*urls) * rng.Float64() * rng.Float64())
			latency := rng.ExpFloat64() * (0.05 + float64(id%7)*0.1)
			line = fmt.Sprintf(`%d.%d.%d.%d -  - [%s] "%s /api/v2/item/%d HTTP/1.1" 200 %d "-" "Lynx/2.8.8dev.9 libwww-FM/2.14" "-" "%d-%d" "dc7161be3" %.3f`,
				rng.IntN(223)+1, rng.IntN(256), rng.IntN(256), rng.IntN(256),
				ts.Format("02/Jan/2006:15:04:05 -0700"),
				methods[rng.IntN(len(methods))], id, rng.IntN(20000),
				ts.Unix(), rng.Uint32(), latency)
		}
		if err := w.WriteLine(line); err != nil {
			fmt.Fprintf(os.Stderr, "write: %v\n", err)
			os.Exit(1)
		}
		ts = ts.Add(time.Duration(rng.IntN(50)) * time.Millisecond)
	}

	if err := w.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d lines (%d malformed) to %s [%s]\n", *lines, bad, *out, logfile.Compression(*out))
}
