package providers

import ort "github.com/yalue/onnxruntime_go"

// CoreML provider flags as defined by coreml_provider_factory.h.
const (
	coreMLFlagUseCPUOnly        uint32 = 0x001
	coreMLFlagEnableOnSubgraph  uint32 = 0x002
	coreMLFlagOnlyWithANE       uint32 = 0x004
	coreMLFlagStaticInputShapes uint32 = 0x008
	coreMLFlagCreateMLProgram   uint32 = 0x010
)

// CoreMLOptions contains arguments for the CoreML provider.
// See: https://onnxruntime.ai/docs/execution-providers/CoreML-ExecutionProvider.html
type CoreMLOptions struct {
	// Limit CoreML to running on CPU only.
	CPUOnly bool `json:"cpuOnly"                  yaml:"cpuOnly"`
	// Run on subgraphs in the body of control flow operators.
	EnableOnSubgraphs bool `json:"enableOnSubgraphs"        yaml:"enableOnSubgraphs"`
	// Only enable the provider on devices with an Apple Neural Engine.
	OnlyWithANE bool `json:"onlyWithANE"              yaml:"onlyWithANE"`
	// Only take nodes whose inputs have static shapes.
	RequireStaticInputShapes bool `json:"requireStaticInputShapes" yaml:"requireStaticInputShapes"`
	// Create an MLProgram instead of a NeuralNetwork model.
	MLProgram bool `json:"mlProgram"                yaml:"mlProgram"`
}

// Flags packs the options into the bit set the provider expects.
func (o CoreMLOptions) Flags() uint32 {
	var flags uint32
	if o.CPUOnly {
		flags |= coreMLFlagUseCPUOnly
	}
	if o.EnableOnSubgraphs {
		flags |= coreMLFlagEnableOnSubgraph
	}
	if o.OnlyWithANE {
		flags |= coreMLFlagOnlyWithANE
	}
	if o.RequireStaticInputShapes {
		flags |= coreMLFlagStaticInputShapes
	}
	if o.MLProgram {
		flags |= coreMLFlagCreateMLProgram
	}
	return flags
}

func appendCoreML(options *ort.SessionOptions, o CoreMLOptions) error {
	return options.AppendExecutionProviderCoreML(o.Flags())
}
