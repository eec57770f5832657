//go:build ignore

// generate_testdata.go creates standard graph documents for benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//   tests/testdata/benchmark/small.json   (10 containers x 10 nodes)
//   tests/testdata/benchmark/medium.json  (25 containers x 40 nodes)
//   tests/testdata/benchmark/large.json   (50 containers x 100 nodes)
//   tests/testdata/benchmark/flat.json    (2000-node DAG, no containers)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/loomview/pkg/model"
	"github.com/vanderheijden86/loomview/pkg/testutil"
)

type datasetSpec struct {
	name string
	desc string
	gen  func(g *testutil.Generator) *model.Document
}

var datasets = []datasetSpec{
	{"small", "10 containers x 10 nodes, chained clusters", func(g *testutil.Generator) *model.Document {
		return g.ToDocument(g.Clustered(10, 10))
	}},
	{"medium", "25 containers x 40 nodes, chained clusters", func(g *testutil.Generator) *model.Document {
		return g.ToDocument(g.Clustered(25, 40))
	}},
	{"large", "50 containers x 100 nodes, chained clusters", func(g *testutil.Generator) *model.Document {
		return g.ToDocument(g.Clustered(50, 100))
	}},
	{"flat", "2000-node sparse random DAG with no containers", func(g *testutil.Generator) *model.Document {
		return g.ToDocument(g.RandomDAG(2000, 0.002))
	}},
}

func main() {
	outputDir := "tests/testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%s)...\n", ds.name, ds.desc)

		g := testutil.New(testutil.GeneratorConfig{
			Seed:              1, // Reproducible across runs
			IDPrefix:          "bench",
			IncludeTags:       true,
			IncludeLongLabels: true,
			NodeTypeMix:       []string{"service", "queue", "store", "job"},
			EdgeTypeMix:       []string{"data", "control", "dependency"},
		})
		doc := ds.gen(g)

		outputPath := filepath.Join(outputDir, ds.name+".json")
		if err := os.WriteFile(outputPath, []byte(testutil.ToJSON(doc)), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}

		nodes, edges, containers := doc.Counts()
		fmt.Printf("  Written %s (%d nodes, %d edges, %d containers)\n",
			outputPath, nodes, edges, containers)
	}

	fmt.Println("\nDone! Benchmark documents created in", outputDir)
	fmt.Println("Try: go run ./cmd/lv tests/testdata/benchmark/large.json")
}
