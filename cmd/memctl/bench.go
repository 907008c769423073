package main

import (
	"math/rand"
	"time"
	"unsafe"

	"github.com/spf13/cobra"

	"github.com/ivanyangcn/rt-thread/memheap"
)

var (
	benchPool  int
	benchIters int
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().IntVar(&benchPool, "pool", 1<<20, "Pool size in bytes")
	cmd.Flags().IntVar(&benchIters, "iters", 100000, "Alloc or free operations to run")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Time an alloc/free churn workload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
}

func runBench() error {
	h, err := memheap.New("bench", benchPool)
	if err != nil {
		return err
	}
	defer h.Detach()

	rng := rand.New(rand.NewSource(1))
	live := make([]unsafe.Pointer, 0, 1024)

	start := time.Now()
	for i := 0; i < benchIters; i++ {
		if len(live) < 1024 && rng.Intn(2) == 0 {
			p, allocErr := h.Alloc(16 + rng.Intn(240))
			if allocErr == nil {
				live = append(live, p)
				continue
			}
		}
		if len(live) > 0 {
			j := rng.Intn(len(live))
			if freeErr := memheap.Free(live[j]); freeErr != nil {
				return freeErr
			}
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}
	for _, p := range live {
		if freeErr := memheap.Free(p); freeErr != nil {
			return freeErr
		}
	}
	elapsed := time.Since(start)

	printInfo("%d ops in %v (%.0f ops/sec)\n",
		benchIters, elapsed, float64(benchIters)/elapsed.Seconds())
	return printStats(h)
}
