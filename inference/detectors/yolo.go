package detectors

import (
	"context"
	"image"
	"sync"

	"github.com/nvr-ai/horti-vision/common"
	"github.com/nvr-ai/horti-vision/inference"
	"github.com/nvr-ai/horti-vision/models"
	"github.com/nvr-ai/horti-vision/models/yolov8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// YOLO runs an Ultralytics YOLO export through ONNX Runtime.
//
// The underlying session binds a single pair of tensors, so Detect calls
// are serialized.
type YOLO struct {
	mu      sync.Mutex
	model   models.Model
	session *inference.Session
	decode  yolov8.Config
	log     *logrus.Entry
}

// NewLoader returns an inference.Loader that builds YOLO detectors.
func NewLoader(cfg Config) inference.Loader {
	return func(m models.Model) (inference.Detector, error) {
		return NewYOLO(m, cfg)
	}
}

// NewYOLO loads the model file and prepares its session.
//
// Arguments:
//   - m: The model to load.
//   - cfg: The provider and NMS configuration.
//
// Returns:
//   - *YOLO: The detector. The caller must Close it.
//   - error: An error if the runtime or the model fails to load.
func NewYOLO(m models.Model, cfg Config) (*YOLO, error) {
	if err := inference.InitializeRuntime(""); err != nil {
		return nil, err
	}

	decode := yolov8.DefaultConfig()
	decode.NMSThreshold = cfg.NMSThreshold
	outputShape := yolov8.OutputShape(decode.Head, decode.Classes.Len())

	_, outputs, err := ort.GetInputOutputInfo(m.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to inspect %s", m.Path)
	}
	for _, o := range outputs {
		if o.Name != yolov8.OutputName {
			continue
		}
		dims := []int64(o.Dimensions)
		if err := yolov8.CheckOutputShape(dims, decode.Classes.Len()); err != nil {
			return nil, errors.Wrapf(err, "unsupported output in %s", m.Path)
		}
		decode.Head = yolov8.HeadForShape(dims)
		if isStatic(dims) {
			outputShape = dims
			if decode.Head == yolov8.HeadAnchors {
				decode.Anchors = int(dims[2])
			}
		} else {
			outputShape = yolov8.OutputShape(decode.Head, decode.Classes.Len())
		}
	}

	session, err := inference.NewSession(inference.NewSessionArgs{
		ModelPath:   m.Path,
		InputName:   yolov8.InputName,
		OutputName:  yolov8.OutputName,
		InputShape:  []int64{1, 3, yolov8.InputSize, yolov8.InputSize},
		OutputShape: outputShape,
		Provider:    cfg.Provider,
	})
	if err != nil {
		return nil, err
	}

	y := &YOLO{
		model:   m,
		session: session,
		decode:  decode,
		log: logrus.WithFields(logrus.Fields{
			"model": m.Name,
			"head":  decode.Head,
		}),
	}

	for i := 0; i < cfg.Warmup; i++ {
		if err := session.Run(); err != nil {
			session.Close()
			return nil, errors.Wrap(err, "warmup inference failed")
		}
	}

	y.log.WithField("path", m.Path).Info("model loaded")
	return y, nil
}

// Detect runs inference on the provided image.
//
// Arguments:
//   - ctx: The context for the detection.
//   - img: The image to detect tomato heads in.
//   - confidence: Detections scoring below this are dropped.
//
// Returns:
//   - The detections in original image pixels, most confident first.
//   - error: An error if inference fails.
func (y *YOLO) Detect(ctx context.Context, img image.Image, confidence float32) ([]common.BoundingBox, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	y.mu.Lock()
	defer y.mu.Unlock()

	if y.session == nil {
		return nil, errors.New("model not loaded")
	}

	if err := yolov8.PreProcess(img, y.session.Input.GetData()); err != nil {
		return nil, errors.Wrap(err, "failed to prepare input")
	}
	if err := y.session.Run(); err != nil {
		return nil, errors.Wrap(err, "failed to run inference")
	}

	b := img.Bounds()
	return yolov8.PostProcess(y.session.Output.GetData(), y.decode, confidence, b.Dx(), b.Dy())
}

// Model returns the loaded model.
func (y *YOLO) Model() models.Model {
	return y.model
}

// Close releases the session.
func (y *YOLO) Close() error {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.session == nil {
		return nil
	}
	err := y.session.Close()
	y.session = nil
	return err
}

func isStatic(dims []int64) bool {
	if len(dims) == 0 {
		return false
	}
	for _, d := range dims {
		if d <= 0 {
			return false
		}
	}
	return true
}
