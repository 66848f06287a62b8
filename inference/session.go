// Package inference - Detector contract and ONNX Runtime sessions.
package inference

import (
	"github.com/nvr-ai/horti-vision/inference/providers"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Session represents a model session from the onnxruntime with its
// preallocated input and output tensors.
type Session struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

// NewSessionArgs describes the single-input, single-output graph to load.
type NewSessionArgs struct {
	ModelPath   string
	InputName   string
	OutputName  string
	InputShape  []int64
	OutputShape []int64
	Provider    providers.Config
}

// NewSession loads a model and binds preallocated tensors to it.
//
// InitializeRuntime must have been called first.
//
// Arguments:
//   - args: The model path, tensor names and shapes, and provider.
//
// Returns:
//   - *Session: The session. The caller must Close it.
//   - error: An error if tensor allocation or model loading fails.
func NewSession(args NewSessionArgs) (*Session, error) {
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(args.InputShape...))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(args.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	options, err := providers.SessionOptions(args.Provider)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		args.ModelPath,
		[]string{args.InputName},
		[]string{args.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(err, "error creating ORT session for %s", args.ModelPath)
	}

	return &Session{
		Session: session,
		Input:   input,
		Output:  output,
	}, nil
}

// Run executes the graph on the bound tensors.
func (s *Session) Run() error {
	if s.Session == nil {
		return errors.New("session is closed")
	}
	return s.Session.Run()
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.Session != nil {
		keep(s.Session.Destroy())
		s.Session = nil
	}
	if s.Input != nil {
		keep(s.Input.Destroy())
		s.Input = nil
	}
	if s.Output != nil {
		keep(s.Output.Destroy())
		s.Output = nil
	}
	return firstErr
}
