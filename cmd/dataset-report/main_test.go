package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/datacollector/internal/dataset"
)

func TestGapStats(t *testing.T) {
	mean, stddev := gapStats([]float64{0, 10, 20, 30})
	if mean != 10 {
		t.Errorf("mean = %v, want 10", mean)
	}
	if stddev != 0 {
		t.Errorf("stddev = %v, want 0 for uniform gaps", stddev)
	}

	mean, stddev = gapStats([]float64{0, 5, 20})
	if mean != 10 {
		t.Errorf("mean = %v, want 10", mean)
	}
	// Gaps 5 and 15: sample stddev is sqrt(50).
	if math.Abs(stddev-math.Sqrt(50)) > 1e-9 {
		t.Errorf("stddev = %v, want %v", stddev, math.Sqrt(50))
	}

	if mean, stddev = gapStats([]float64{42}); mean != 0 || stddev != 0 {
		t.Errorf("single timestamp produced %v ± %v, want zeros", mean, stddev)
	}
}

func TestWriteSamplesPlot(t *testing.T) {
	dir := t.TempDir()
	catalog, err := dataset.OpenCatalog(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("OpenCatalog: %v", err)
	}
	defer catalog.Close()

	for i, rec := range []dataset.FrameRecord{
		{ID: "cam1_1", CameraID: "cam1", Timestamp: 100, Split: "train", ImagePath: "p"},
		{ID: "cam1_2", CameraID: "cam1", Timestamp: 110, Split: "val", ImagePath: "p"},
		{ID: "cam2_1", CameraID: "cam2", Timestamp: 105, Split: "train", ImagePath: "p"},
	} {
		if err := catalog.InsertFrame(rec); err != nil {
			t.Fatalf("InsertFrame %d: %v", i, err)
		}
	}

	out := filepath.Join(dir, "samples.png")
	if err := writeSamplesPlot(catalog, out); err != nil {
		t.Fatalf("writeSamplesPlot: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("plot not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("plot file is empty")
	}
}

func TestWriteSamplesPlotEmptyCatalog(t *testing.T) {
	catalog, err := dataset.OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenCatalog: %v", err)
	}
	defer catalog.Close()

	if err := writeSamplesPlot(catalog, "unused.png"); err == nil {
		t.Error("empty catalog plotted without error")
	}
}
