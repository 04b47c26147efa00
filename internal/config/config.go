// Package config loads the collector's JSON configuration document.
//
// The document is parsed once at startup and treated as immutable
// thereafter. Fields omitted from the JSON file fall back to defaults, so
// partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Defaults applied to fields omitted from the config file.
const (
	DefaultIntervalSeconds = 5.0
	DefaultMinConfidence   = 0.6
	DefaultTrainSplit      = 0.8
	DefaultImagesDir       = "images"
	DefaultLabelsDir       = "labels"
	DefaultDatabasePath    = "datacollector.db"
	DefaultInputWidth      = 640
	DefaultInputHeight     = 640
)

// CameraConfig identifies one video source. Immutable after load.
type CameraConfig struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Name    string `json:"name,omitempty"`
	Enabled bool   `json:"enabled"`
}

// InferenceConfig holds detector model settings.
type InferenceConfig struct {
	ModelPath      string   `json:"model_path"`
	InputWidth     int      `json:"input_width,omitempty"`
	InputHeight    int      `json:"input_height,omitempty"`
	ScoreThreshold float64  `json:"score_threshold,omitempty"`
	ClassNames     []string `json:"class_names,omitempty"`
}

// CollectionConfig holds the sampling policy.
type CollectionConfig struct {
	IntervalSeconds float64  `json:"interval_seconds,omitempty"`
	MinConfidence   float64  `json:"min_confidence,omitempty"`
	TargetClasses   []string `json:"target_classes,omitempty"`
}

// StorageConfig holds the dataset layout settings.
type StorageConfig struct {
	BasePath     string  `json:"base_path"`
	ImagesDir    string  `json:"images_dir,omitempty"`
	LabelsDir    string  `json:"labels_dir,omitempty"`
	DatabasePath string  `json:"database_path,omitempty"`
	TrainSplit   float64 `json:"train_split,omitempty"`
}

// Config is the root configuration document.
type Config struct {
	Cameras    []CameraConfig   `json:"cameras"`
	Inference  InferenceConfig  `json:"inference"`
	Collection CollectionConfig `json:"collection"`
	Storage    StorageConfig    `json:"storage"`
}

// Load reads and validates a Config from a JSON file. The file must have a
// .json extension and be under the max file size.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes a Config from JSON, applies defaults, and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Collection.IntervalSeconds == 0 {
		c.Collection.IntervalSeconds = DefaultIntervalSeconds
	}
	if c.Collection.MinConfidence == 0 {
		c.Collection.MinConfidence = DefaultMinConfidence
	}
	if c.Storage.TrainSplit == 0 {
		c.Storage.TrainSplit = DefaultTrainSplit
	}
	if c.Storage.ImagesDir == "" {
		c.Storage.ImagesDir = DefaultImagesDir
	}
	if c.Storage.LabelsDir == "" {
		c.Storage.LabelsDir = DefaultLabelsDir
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = DefaultDatabasePath
	}
	if c.Inference.InputWidth == 0 {
		c.Inference.InputWidth = DefaultInputWidth
	}
	if c.Inference.InputHeight == 0 {
		c.Inference.InputHeight = DefaultInputHeight
	}
}

func (c *Config) validate() error {
	seen := make(map[string]bool)
	for i, cam := range c.Cameras {
		if cam.ID == "" {
			return fmt.Errorf("camera %d: id is required", i)
		}
		if seen[cam.ID] {
			return fmt.Errorf("camera %d: duplicate id %q", i, cam.ID)
		}
		seen[cam.ID] = true
		if cam.Enabled && cam.URL == "" {
			return fmt.Errorf("camera %q: url is required for enabled cameras", cam.ID)
		}
	}

	if c.Storage.BasePath == "" {
		return fmt.Errorf("storage.base_path is required")
	}
	if c.Storage.TrainSplit < 0 || c.Storage.TrainSplit > 1 {
		return fmt.Errorf("storage.train_split must be in [0,1], got %v", c.Storage.TrainSplit)
	}
	if c.Collection.IntervalSeconds < 0 {
		return fmt.Errorf("collection.interval_seconds must be >= 0, got %v", c.Collection.IntervalSeconds)
	}
	if c.Collection.MinConfidence < 0 || c.Collection.MinConfidence > 1 {
		return fmt.Errorf("collection.min_confidence must be in [0,1], got %v", c.Collection.MinConfidence)
	}
	return nil
}

// EnabledCameras returns the cameras with the enabled flag set.
func (c *Config) EnabledCameras() []CameraConfig {
	var out []CameraConfig
	for _, cam := range c.Cameras {
		if cam.Enabled {
			out = append(out, cam)
		}
	}
	return out
}

// ClassName resolves a class id through the configured names, falling back
// to the numeric id when the model reports a class outside the list.
func (c *Config) ClassName(classID int) string {
	if classID >= 0 && classID < len(c.Inference.ClassNames) {
		return c.Inference.ClassNames[classID]
	}
	return fmt.Sprintf("%d", classID)
}
