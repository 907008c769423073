package main

import (
	"math/rand"
	"os"
	"unsafe"

	"github.com/spf13/cobra"

	"github.com/ivanyangcn/rt-thread/memheap"
)

var (
	tracePool int
	traceOps  int
	traceSeed int64
)

func init() {
	cmd := newTraceCmd()
	cmd.Flags().IntVar(&tracePool, "pool", 64*1024, "Pool size in bytes")
	cmd.Flags().IntVar(&traceOps, "ops", 64, "Number of random operations")
	cmd.Flags().Int64Var(&traceSeed, "seed", 1, "Workload seed")
	rootCmd.AddCommand(cmd)
}

func newTraceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trace",
		Short: "Run a random workload and dump the resulting heap layout",
		Long: `The trace command initializes a fresh heap, applies a seeded random
alloc/free/realloc workload, and prints the final block layout and
accounting.

Example:
  memctl trace --pool 65536 --ops 200 --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace()
		},
	}
}

func runTrace() error {
	h, err := memheap.New("trace", tracePool)
	if err != nil {
		return err
	}
	defer h.Detach()

	rng := rand.New(rand.NewSource(traceSeed))
	live := make([]unsafe.Pointer, 0, traceOps)

	for i := 0; i < traceOps; i++ {
		switch rng.Intn(3) {
		case 0:
			size := 8 + rng.Intn(512)
			p, allocErr := h.Alloc(size)
			if allocErr != nil {
				printVerbose("op %d: alloc %d: %v\n", i, size, allocErr)
				continue
			}
			memheap.SetTag(p, "trace")
			live = append(live, p)
			printVerbose("op %d: alloc %d -> %p\n", i, size, p)
		case 1:
			if len(live) == 0 {
				continue
			}
			j := rng.Intn(len(live))
			if freeErr := memheap.Free(live[j]); freeErr != nil {
				return freeErr
			}
			printVerbose("op %d: free %p\n", i, live[j])
			live = append(live[:j], live[j+1:]...)
		case 2:
			if len(live) == 0 {
				continue
			}
			j := rng.Intn(len(live))
			size := 8 + rng.Intn(512)
			np, reallocErr := h.Realloc(live[j], size)
			if reallocErr != nil {
				printVerbose("op %d: realloc %d: %v\n", i, size, reallocErr)
				continue
			}
			printVerbose("op %d: realloc %p -> %d bytes at %p\n", i, live[j], size, np)
			live[j] = np
		}
	}

	if err := h.Dump(os.Stdout); err != nil {
		return err
	}
	return printStats(h)
}

func printStats(h *memheap.Heap) error {
	s, err := h.Stats()
	if err != nil {
		return err
	}
	printInfo("pool %d, available %d, max used %d\n", s.PoolSize, s.Available, s.MaxUsed)
	printInfo("allocs %d, frees %d, reallocs %d, splits %d, merges %d\n",
		s.AllocCalls, s.FreeCalls, s.ReallocCalls, s.Splits, s.Merges)
	return nil
}
