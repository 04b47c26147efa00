package vision

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/banshee-data/datacollector/internal/camera"
	"github.com/banshee-data/datacollector/internal/monitoring"
)

// nmsThreshold is the IoU cutoff for suppressing overlapping boxes.
const nmsThreshold = 0.45

// maskCoefficients is the number of per-instance mask coefficients emitted
// by YOLO segmentation heads.
const maskCoefficients = 32

// DNNDetector runs a YOLO segmentation model through OpenCV's DNN module.
// The network is loaded in Start and released in Stop; Detect is called
// synchronously from the collector loop.
type DNNDetector struct {
	modelPath      string
	inputWidth     int
	inputHeight    int
	scoreThreshold float64

	net    gocv.Net
	loaded bool
}

// NewDNNDetector configures a detector for the given ONNX model. The model
// is not loaded until Start.
func NewDNNDetector(modelPath string, inputWidth, inputHeight int, scoreThreshold float64) *DNNDetector {
	return &DNNDetector{
		modelPath:      modelPath,
		inputWidth:     inputWidth,
		inputHeight:    inputHeight,
		scoreThreshold: scoreThreshold,
	}
}

// Start loads the network.
func (d *DNNDetector) Start() error {
	net := gocv.ReadNet(d.modelPath, "")
	if net.Empty() {
		return fmt.Errorf("failed to load model %q", d.modelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)
	d.net = net
	d.loaded = true
	monitoring.Logf("loaded segmentation model %s (%dx%d input)", d.modelPath, d.inputWidth, d.inputHeight)
	return nil
}

// Stop releases the network.
func (d *DNNDetector) Stop() {
	if !d.loaded {
		return
	}
	if err := d.net.Close(); err != nil {
		monitoring.Logf("failed to close network: %v", err)
	}
	d.loaded = false
}

// Detect runs the model on one frame and decodes boxes, scores, and
// instance masks.
func (d *DNNDetector) Detect(frame *camera.Frame) (DetectionResult, error) {
	if !d.loaded {
		return DetectionResult{}, fmt.Errorf("detector not started")
	}

	img, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC3, frame.Pixels)
	if err != nil {
		return DetectionResult{}, fmt.Errorf("failed to wrap frame: %w", err)
	}
	defer img.Close()

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(d.inputWidth, d.inputHeight),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	outs := d.net.ForwardLayers([]string{"output0", "output1"})
	if len(outs) != 2 {
		for i := range outs {
			outs[i].Close()
		}
		return DetectionResult{}, fmt.Errorf("model produced %d outputs, want 2", len(outs))
	}
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()

	return d.decode(outs[0], outs[1], frame)
}

type candidate struct {
	box     image.Rectangle // input scale
	classID int
	score   float64
	coeffs  []float32
}

// decode turns the raw head outputs into frame-resolution masks. The
// detection head is [1, 4+nc+32, N]; the proto head is [1, 32, ph, pw].
func (d *DNNDetector) decode(detOut, protoOut gocv.Mat, frame *camera.Frame) (DetectionResult, error) {
	detSize := detOut.Size()
	if len(detSize) != 3 {
		return DetectionResult{}, fmt.Errorf("unexpected detection head shape %v", detSize)
	}
	channels, anchors := detSize[1], detSize[2]
	numClasses := channels - 4 - maskCoefficients
	if numClasses < 1 {
		return DetectionResult{}, fmt.Errorf("detection head has %d channels, too few for a segmentation model", channels)
	}

	det := detOut.Reshape(1, channels)
	defer det.Close()

	var cands []candidate
	var rects []image.Rectangle
	var scores []float32

	for j := 0; j < anchors; j++ {
		best := -1
		bestScore := float32(0)
		for c := 0; c < numClasses; c++ {
			if s := det.GetFloatAt(4+c, j); s > bestScore {
				bestScore = s
				best = c
			}
		}
		if best < 0 || float64(bestScore) < d.scoreThreshold {
			continue
		}

		cx := det.GetFloatAt(0, j)
		cy := det.GetFloatAt(1, j)
		bw := det.GetFloatAt(2, j)
		bh := det.GetFloatAt(3, j)
		box := image.Rect(
			int(cx-bw/2), int(cy-bh/2),
			int(cx+bw/2), int(cy+bh/2),
		)

		coeffs := make([]float32, maskCoefficients)
		for k := 0; k < maskCoefficients; k++ {
			coeffs[k] = det.GetFloatAt(4+numClasses+k, j)
		}

		cands = append(cands, candidate{box: box, classID: best, score: float64(bestScore), coeffs: coeffs})
		rects = append(rects, box)
		scores = append(scores, bestScore)
	}

	if len(cands) == 0 {
		return DetectionResult{}, nil
	}

	keep := gocv.NMSBoxes(rects, scores, float32(d.scoreThreshold), nmsThreshold)

	protoSize := protoOut.Size()
	if len(protoSize) != 4 || protoSize[1] != maskCoefficients {
		return DetectionResult{}, fmt.Errorf("unexpected proto head shape %v", protoSize)
	}
	ph, pw := protoSize[2], protoSize[3]

	proto := protoOut.Reshape(1, maskCoefficients)
	defer proto.Close()

	var res DetectionResult
	for _, idx := range keep {
		c := cands[idx]
		res.Masks = append(res.Masks, d.buildMask(c, proto, ph, pw, frame))
		res.ClassIDs = append(res.ClassIDs, c.classID)
		res.Scores = append(res.Scores, c.score)
	}
	return res, res.Validate()
}

// buildMask combines one detection's coefficients with the proto masks and
// rasterizes the result at frame resolution, cropped to the detection box.
func (d *DNNDetector) buildMask(c candidate, proto gocv.Mat, ph, pw int, frame *camera.Frame) Mask {
	// Per-cell mask logits for this instance.
	logits := make([]float64, ph*pw)
	for k, coeff := range c.coeffs {
		if coeff == 0 {
			continue
		}
		cf := float64(coeff)
		for p := 0; p < ph*pw; p++ {
			logits[p] += cf * float64(proto.GetFloatAt(k, p))
		}
	}

	// Detection box: input scale -> frame scale.
	x0 := c.box.Min.X * frame.Width / d.inputWidth
	y0 := c.box.Min.Y * frame.Height / d.inputHeight
	x1 := c.box.Max.X * frame.Width / d.inputWidth
	y1 := c.box.Max.Y * frame.Height / d.inputHeight

	mask := NewMask(frame.Width, frame.Height)
	for y := max(y0, 0); y < min(y1, frame.Height); y++ {
		py := y * ph / frame.Height
		for x := max(x0, 0); x < min(x1, frame.Width); x++ {
			px := x * pw / frame.Width
			if sigmoid(logits[py*pw+px]) > 0.5 {
				mask.Set(x, y)
			}
		}
	}
	return mask
}

func sigmoid(v float64) float64 {
	return 1.0 / (1.0 + math.Exp(-v))
}
