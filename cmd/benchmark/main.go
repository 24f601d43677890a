package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"guide/config"
	"guide/internal/adapter/cache"
	"guide/internal/adapter/fs"
	"guide/internal/adapter/memstore"
	"guide/internal/usecase"
)

func main() {
	root := flag.String("dir", ".", "Root directory holding the guideline corpus")
	paths := flag.String("paths", "", "Comma-separated file paths to query")
	iterations := flag.Int("n", 10000, "Queries per path")
	useCache := flag.Bool("cache", false, "Enable the composition cache")
	flag.Parse()

	if *iterations < 1 {
		*iterations = 1
	}

	if *paths == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -dir . -paths src/app/app.component.ts,main.go [-n 10000] [-cache]")
		fmt.Println("\nMeasures:")
		fmt.Println("  1. Corpus load time (walk, parse, index build)")
		fmt.Println("  2. Query latency per path (p50, p99, max)")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	loader := usecase.NewLoadUseCase(
		memstore.NewMemoryStore(),
		fs.NewWalker(cfg.Corpus.Includes, cfg.Corpus.Excludes),
		nil,
	)

	start := time.Now()
	idx, result, err := loader.Load(context.Background(), cfg.CorpusDirs(*root), cfg.Corpus.SkipInvalid, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading corpus: %v\n", err)
		os.Exit(1)
	}
	loadTime := time.Since(start)

	var opts []usecase.EngineOption
	if *useCache {
		opts = append(opts, usecase.WithCache(cache.NewCompositionCache(cfg.Cache.MaxEntries, cfg.Cache.TTL)))
	}
	engine := usecase.NewEngine(idx, opts...)

	fmt.Println("GUIDELINE QUERY BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Documents loaded: %d (%d files parsed)\n", idx.Len(), result.FilesParsed)
	fmt.Printf("Load time:        %s\n", loadTime)
	fmt.Printf("Cache:            %v\n", *useCache)
	fmt.Println(strings.Repeat("-", 70))

	for _, p := range strings.Split(*paths, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		latencies := make([]time.Duration, *iterations)
		var applied, sections int
		for i := range latencies {
			t0 := time.Now()
			res := engine.Query(p)
			latencies[i] = time.Since(t0)
			applied, sections = len(res.AppliedDocuments), len(res.MergedSections)
		}
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

		fmt.Printf("%s\n", p)
		fmt.Printf("  documents: %d  sections: %d\n", applied, sections)
		fmt.Printf("  p50: %s  p99: %s  max: %s\n\n",
			percentile(latencies, 0.50), percentile(latencies, 0.99), latencies[len(latencies)-1])
	}
}

func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	i := int(float64(len(sorted)-1) * q)
	return sorted[i]
}
