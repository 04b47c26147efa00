// Command dataset-report summarizes a collection catalog: per-camera sample
// counts and gap statistics, split fractions, and a samples-over-time plot.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/datacollector/internal/dataset"
)

var (
	catalogPath = flag.String("catalog", "", "Path to the catalog sqlite file")
	plotPath    = flag.String("plot", "samples.png", "Output path for the samples-over-time PNG (empty to skip)")
)

func main() {
	flag.Parse()

	if *catalogPath == "" {
		fmt.Fprintln(os.Stderr, "usage: dataset-report -catalog <path> [-plot <png>]")
		os.Exit(1)
	}

	catalog, err := dataset.OpenCatalog(*catalogPath)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer catalog.Close()

	if err := printReport(catalog); err != nil {
		log.Fatalf("Failed to build report: %v", err)
	}

	if *plotPath != "" {
		if err := writeSamplesPlot(catalog, *plotPath); err != nil {
			log.Fatalf("Failed to write plot: %v", err)
		}
		fmt.Printf("\nwrote %s\n", *plotPath)
	}
}

func printReport(catalog *dataset.Catalog) error {
	splits, err := catalog.CountsBySplit()
	if err != nil {
		return err
	}
	series, err := catalog.TimestampsByCamera()
	if err != nil {
		return err
	}

	total := 0
	for _, n := range splits {
		total += n
	}

	fmt.Printf("samples: %d\n", total)
	for _, split := range []string{dataset.SplitTrain, dataset.SplitVal} {
		frac := 0.0
		if total > 0 {
			frac = float64(splits[split]) / float64(total)
		}
		fmt.Printf("  %-5s %6d (%.1f%%)\n", split, splits[split], frac*100)
	}

	cameras := make([]string, 0, len(series))
	for id := range series {
		cameras = append(cameras, id)
	}
	sort.Strings(cameras)

	fmt.Println("\nper camera:")
	for _, id := range cameras {
		timestamps := series[id]
		mean, stddev := gapStats(timestamps)
		if len(timestamps) < 2 {
			fmt.Printf("  %-12s %6d samples\n", id, len(timestamps))
			continue
		}
		fmt.Printf("  %-12s %6d samples, gap %.1fs ± %.1fs\n", id, len(timestamps), mean, stddev)
	}
	return nil
}

// gapStats returns the mean and standard deviation of the spacing between
// consecutive timestamps.
func gapStats(timestamps []float64) (mean, stddev float64) {
	if len(timestamps) < 2 {
		return 0, 0
	}
	gaps := make([]float64, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		gaps = append(gaps, timestamps[i]-timestamps[i-1])
	}
	mean, variance := stat.MeanVariance(gaps, nil)
	if len(gaps) < 2 || variance <= 0 {
		return mean, 0
	}
	return mean, math.Sqrt(variance)
}

// writeSamplesPlot draws cumulative sample count over time, one line per
// camera.
func writeSamplesPlot(catalog *dataset.Catalog, path string) error {
	series, err := catalog.TimestampsByCamera()
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return fmt.Errorf("catalog is empty, nothing to plot")
	}

	cameras := make([]string, 0, len(series))
	for id := range series {
		cameras = append(cameras, id)
	}
	sort.Strings(cameras)

	// Use the earliest timestamp as the x origin.
	origin := series[cameras[0]][0]
	for _, id := range cameras {
		if ts := series[id]; len(ts) > 0 && ts[0] < origin {
			origin = ts[0]
		}
	}

	p := plot.New()
	p.Title.Text = "Dataset samples over time"
	p.X.Label.Text = "seconds since first sample"
	p.Y.Label.Text = "cumulative samples"

	for _, id := range cameras {
		timestamps := series[id]
		pts := make(plotter.XYs, 0, len(timestamps))
		for i, ts := range timestamps {
			pts = append(pts, plotter.XY{X: ts - origin, Y: float64(i + 1)})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("failed to build line for %s: %w", id, err)
		}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(id, line)
	}

	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}
