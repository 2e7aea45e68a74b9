package system

import (
	"fmt"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ortInit sync.Mutex

// InitONNXRuntime loads the onnxruntime shared library once per process.
// libPath may be empty to use the library's default search path.
func InitONNXRuntime(libPath string) error {
	ortInit.Lock()
	defer ortInit.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// NewSessionOptions builds session options for device: "cpu", "cuda" or
// "cuda:<id>". The caller must Destroy the result.
func NewSessionOptions(device string) (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}

	name, id, _ := strings.Cut(strings.ToLower(device), ":")
	switch name {
	case "", "cpu":
		return opts, nil
	case "cuda":
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			opts.Destroy()
			return nil, fmt.Errorf("cuda provider options: %w", err)
		}
		defer cuda.Destroy()
		if id != "" {
			if err := cuda.Update(map[string]string{"device_id": id}); err != nil {
				opts.Destroy()
				return nil, fmt.Errorf("cuda device %q: %w", id, err)
			}
		}
		if err := opts.AppendExecutionProviderCUDA(cuda); err != nil {
			opts.Destroy()
			return nil, fmt.Errorf("append cuda provider: %w", err)
		}
		return opts, nil
	default:
		opts.Destroy()
		return nil, fmt.Errorf("unsupported device %q", device)
	}
}
