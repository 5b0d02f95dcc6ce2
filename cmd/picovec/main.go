package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/picovec/picovec"
	"github.com/picovec/picovec/kmeans"
	"github.com/picovec/picovec/testutil"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "picovec",
	Short: "Minimal in-memory IVF vector index",
	Long: `picovec is a minimal approximate-nearest-neighbor vector index.

It stores fixed-dimension float32 vectors, builds a k-means based
inverted-file (IVF) index over them and answers nearest-vector queries
with either an exhaustive scan or a cluster-pruned approximate scan.`,
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the two-vector walkthrough",
	RunE:  runDemo,
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Compare BruteForce and IVF on a random dataset",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().Int("count", 10000, "number of vectors to generate")
	benchCmd.Flags().Int("dim", 64, "vector dimension")
	benchCmd.Flags().Int("clusters", 16, "k-means cluster count")
	benchCmd.Flags().Int("iters", 10, "k-means iteration budget")
	benchCmd.Flags().Int("queries", 100, "number of search queries")
	benchCmd.Flags().Int64("seed", 42, "random seed")
	benchCmd.Flags().String("snapshot", "", "optional path to snapshot the dataset")
	benchCmd.Flags().Bool("verbose", false, "enable debug logging")

	viper.SetEnvPrefix("PICOVEC")
	viper.AutomaticEnv()
	_ = viper.BindPFlags(benchCmd.Flags())

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(benchCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	store := picovec.New(picovec.WithLogger(picovec.NewTextLogger(slog.LevelInfo)))

	// Vector A (target) and vector B (far away).
	if _, err := store.Add([]float32{1, 1, 1, 1}); err != nil {
		return err
	}
	if _, err := store.Add([]float32{10, 10, 10, 10}); err != nil {
		return err
	}

	query := []float32{1.2, 1.2, 1.2, 1.2}

	res, ok := store.Search(query, picovec.BruteForce)
	if !ok {
		return fmt.Errorf("no result for query %v", query)
	}

	fmt.Printf("Found vector at handle: %d\n", res.Handle)
	fmt.Printf("Exact distance: %g\n", res.Distance)
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	var (
		count   = viper.GetInt("count")
		dim     = viper.GetInt("dim")
		k       = viper.GetInt("clusters")
		iters   = viper.GetInt("iters")
		queries = viper.GetInt("queries")
		seed    = viper.GetInt64("seed")
	)

	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	logger := picovec.NewTextLogger(level)

	vectors, err := generateVectors(count, dim, seed)
	if err != nil {
		return err
	}

	store := picovec.New(
		picovec.WithLogger(logger),
		picovec.WithSampler(kmeans.NewSampler(seed)),
	)
	for _, v := range vectors {
		if _, err := store.Add(v); err != nil {
			return err
		}
	}

	start := time.Now()
	if err := store.BuildIndex(k, iters); err != nil {
		return err
	}
	fmt.Printf("indexed %d vectors (dim=%d, k=%d) in %s\n", count, dim, k, time.Since(start))

	rng := testutil.NewRNG(seed + 1)
	query := make([]float32, dim)

	var bruteTotal, ivfTotal time.Duration
	agree, answered := 0, 0

	for range queries {
		rng.FillUniform(query)

		t0 := time.Now()
		brute, _ := store.Search(query, picovec.BruteForce)
		bruteTotal += time.Since(t0)

		t0 = time.Now()
		ivf, ok := store.Search(query, picovec.IVF)
		ivfTotal += time.Since(t0)

		if ok {
			answered++
			if ivf.Handle == brute.Handle {
				agree++
			}
		}
	}

	fmt.Printf("brute force: %s/query\n", bruteTotal/time.Duration(queries))
	fmt.Printf("ivf:         %s/query (%d/%d answered, %d agree with brute force)\n",
		ivfTotal/time.Duration(queries), answered, queries, agree)

	if path := viper.GetString("snapshot"); path != "" {
		if err := store.SaveToFile(path); err != nil {
			return err
		}
		fmt.Printf("snapshot written to %s\n", path)
	}

	return nil
}

// generateVectors builds the dataset in parallel chunks, one seeded RNG
// per chunk so the output is stable for a given seed and GOMAXPROCS-
// independent.
func generateVectors(count, dim int, seed int64) ([][]float32, error) {
	workers := runtime.GOMAXPROCS(0)
	if workers > count {
		workers = 1
	}
	chunk := (count + workers - 1) / workers

	vectors := make([][]float32, count)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, count)
		if lo >= hi {
			break
		}
		rng := testutil.NewRNG(seed + int64(w))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				vec := make([]float32, dim)
				rng.FillUniform(vec)
				vectors[i] = vec
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
