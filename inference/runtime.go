package inference

import (
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// SharedLibEnv overrides the platform default library location.
const SharedLibEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

var (
	runtimeOnce sync.Once
	runtimeErr  error
)

// SharedLibPath returns the path to the onnxruntime shared library for the
// current platform.
//
// Returns:
//   - string: The path from SharedLibEnv when set, else the bundled library.
//   - error: An error when the platform has no bundled library.
func SharedLibPath() (string, error) {
	if p := os.Getenv(SharedLibEnv); p != "" {
		return p, nil
	}
	switch runtime.GOOS {
	case "windows":
		if runtime.GOARCH == "amd64" {
			return "./third_party/onnxruntime.dll", nil
		}
	case "darwin":
		return "./third_party/libonnxruntime.1.21.0.dylib", nil
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so", nil
		}
		return "./third_party/onnxruntime.so", nil
	}
	return "", errors.Errorf("no onnxruntime library for %s/%s", runtime.GOOS, runtime.GOARCH)
}

// InitializeRuntime loads the onnxruntime library and prepares the native
// environment. Only the first call does any work; later calls return the
// first result.
//
// Arguments:
//   - libPath: The shared library. Empty uses SharedLibPath.
//
// Returns:
//   - error: An error if the library is missing or fails to initialize.
func InitializeRuntime(libPath string) error {
	runtimeOnce.Do(func() {
		if libPath == "" {
			libPath, runtimeErr = SharedLibPath()
			if runtimeErr != nil {
				return
			}
		}
		if _, err := os.Stat(libPath); err != nil {
			runtimeErr = errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
			return
		}

		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			runtimeErr = errors.Wrap(err, "error initializing ORT environment")
			return
		}
		logrus.WithField("library", libPath).Info("onnxruntime initialized")
	})
	return runtimeErr
}

// ShutdownRuntime releases the native environment.
func ShutdownRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
