/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
// Command ringstat prints the state of a ring file and can serve health and
// Prometheus endpoints for it.
package main

import (
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/srediag/shm-ring/pkg/health"
	"github.com/srediag/shm-ring/pkg/metrics"
	"github.com/srediag/shm-ring/pkg/ring"
)

func main() {
	file := flag.String("file", "", "ring file to inspect")
	listen := flag.String("listen", "", "serve /live, /ready and /metrics on this address")
	maxLag := flag.Uint64("max-lag", 0, "readiness fails at this lag, 0 disables the check")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := ring.DebugRingDetail(os.Stdout, *file); err != nil {
		log.Fatal(err)
	}
	if *listen == "" {
		return
	}

	src := ring.FileStats(*file)
	collector := metrics.NewCollector("")
	collector.Add(*file, src)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collector)

	checks := health.NewHandler(*file, src, *maxLag)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/live", checks.LiveEndpoint)
	mux.HandleFunc("/ready", checks.ReadyEndpoint)

	server := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("serving %s on %s", *file, *listen)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
