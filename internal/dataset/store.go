package dataset

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math/rand"
	"path/filepath"
	"strings"

	"github.com/banshee-data/datacollector/internal/camera"
	"github.com/banshee-data/datacollector/internal/config"
	"github.com/banshee-data/datacollector/internal/fsutil"
	"github.com/banshee-data/datacollector/internal/monitoring"
	"github.com/banshee-data/datacollector/internal/timeutil"
)

const (
	// SplitTrain and SplitVal are the two dataset partitions.
	SplitTrain = "train"
	SplitVal   = "val"

	jpegQuality = 90

	dirMode      = 0o755
	artifactMode = 0o644
)

// Store writes accepted samples to the dataset tree and indexes them in the
// catalog. Artifacts are always written before the catalog row, so a row's
// existence implies its files exist; the reverse does not hold.
type Store struct {
	fs    fsutil.FileSystem
	clock timeutil.Clock
	rng   *rand.Rand

	catalog *Catalog
	runID   string

	basePath   string
	imagesDir  string
	labelsDir  string
	trainSplit float64
}

// SavedSample describes one persisted sample. Paths are relative to the
// dataset base path.
type SavedSample struct {
	ID        string
	Split     string
	ImagePath string
	LabelPath string
}

// NewStore creates the dataset directory layout, opens the catalog, and
// records a new run. The random generator drives the train/val split draw
// and is owned by the store. A relative database_path is resolved under the
// base path; an absolute one is used as-is.
func NewStore(cfg config.StorageConfig, fs fsutil.FileSystem, clock timeutil.Clock, rng *rand.Rand) (*Store, error) {
	for _, dir := range []string{cfg.ImagesDir, cfg.LabelsDir} {
		for _, split := range []string{SplitTrain, SplitVal} {
			path := filepath.Join(cfg.BasePath, dir, split)
			if err := fs.MkdirAll(path, dirMode); err != nil {
				return nil, fmt.Errorf("failed to create %s: %w", path, err)
			}
		}
	}

	dbPath := cfg.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(cfg.BasePath, dbPath)
	}
	catalog, err := OpenCatalog(dbPath)
	if err != nil {
		return nil, err
	}

	runID, err := catalog.StartRun(epochSeconds(clock))
	if err != nil {
		catalog.Close()
		return nil, err
	}
	monitoring.Logf("dataset store ready at %s (run %s)", cfg.BasePath, runID)

	return &Store{
		fs:         fs,
		clock:      clock,
		rng:        rng,
		catalog:    catalog,
		runID:      runID,
		basePath:   cfg.BasePath,
		imagesDir:  cfg.ImagesDir,
		labelsDir:  cfg.LabelsDir,
		trainSplit: cfg.TrainSplit,
	}, nil
}

// Catalog exposes the underlying index for read-side consumers.
func (s *Store) Catalog() *Catalog { return s.catalog }

// RunID returns the current collection run's id.
func (s *Store) RunID() string { return s.runID }

// Close closes the catalog. Artifacts need no teardown.
func (s *Store) Close() error {
	return s.catalog.Close()
}

// SaveSample persists one frame and its label lines: image first, label
// second, catalog row last. A failure at any step aborts the later steps;
// already-written artifacts are never rolled back.
func (s *Store) SaveSample(frame *camera.Frame, labels []string) (SavedSample, error) {
	now := s.clock.Now()
	id := fmt.Sprintf("%s_%d", frame.CameraID, now.UnixMilli())

	split := SplitVal
	if s.rng.Float64() < s.trainSplit {
		split = SplitTrain
	}

	jpg, err := encodeJPEG(frame)
	if err != nil {
		return SavedSample{}, fmt.Errorf("failed to encode %s: %w", id, err)
	}

	imagePath := filepath.Join(s.imagesDir, split, id+".jpg")
	labelPath := filepath.Join(s.labelsDir, split, id+".txt")

	if err := s.fs.WriteFile(filepath.Join(s.basePath, imagePath), jpg, artifactMode); err != nil {
		return SavedSample{}, fmt.Errorf("failed to write image for %s: %w", id, err)
	}
	labelData := []byte(strings.Join(labels, "\n") + "\n")
	if err := s.fs.WriteFile(filepath.Join(s.basePath, labelPath), labelData, artifactMode); err != nil {
		return SavedSample{}, fmt.Errorf("failed to write labels for %s: %w", id, err)
	}

	rec := FrameRecord{
		ID:        id,
		CameraID:  frame.CameraID,
		Timestamp: float64(now.UnixMilli()) / 1000.0,
		Split:     split,
		ImagePath: imagePath,
	}
	if err := s.catalog.InsertFrame(rec); err != nil {
		monitoring.Logf("failed to index sample %s: %v", id, err)
		return SavedSample{}, err
	}

	if err := s.catalog.IncrementRunSamples(s.runID); err != nil {
		monitoring.Logf("failed to count sample %s against run %s: %v", id, s.runID, err)
	}

	return SavedSample{ID: id, Split: split, ImagePath: imagePath, LabelPath: labelPath}, nil
}

// ScanOrphans checks every catalog row's artifacts and returns the ids whose
// image or label file is missing. Artifacts without a catalog row are not
// reported; they are the expected residue of a crash between write and
// index.
func (s *Store) ScanOrphans() ([]string, error) {
	records, err := s.catalog.AllFrames()
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, rec := range records {
		imagePath := filepath.Join(s.basePath, rec.ImagePath)
		labelPath := filepath.Join(s.basePath, s.labelsDir, rec.Split, rec.ID+".txt")
		if !s.fs.Exists(imagePath) || !s.fs.Exists(labelPath) {
			missing = append(missing, rec.ID)
		}
	}
	return missing, nil
}

// encodeJPEG converts a BGR frame to a JPEG byte stream.
func encodeJPEG(frame *camera.Frame) ([]byte, error) {
	want := frame.Width * frame.Height * 3
	if len(frame.Pixels) != want {
		return nil, fmt.Errorf("frame has %d pixel bytes, want %d", len(frame.Pixels), want)
	}

	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			si := (y*frame.Width + x) * 3
			di := y*img.Stride + x*4
			img.Pix[di+0] = frame.Pixels[si+2]
			img.Pix[di+1] = frame.Pixels[si+1]
			img.Pix[di+2] = frame.Pixels[si+0]
			img.Pix[di+3] = 0xff
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func epochSeconds(clock timeutil.Clock) float64 {
	return float64(clock.Now().UnixMilli()) / 1000.0
}
