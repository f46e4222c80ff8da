// Package device selects the compute device used for model inference.
package device

import (
	"os"
	"os/exec"
	"strings"
)

// Device identifies a compute device for model inference.
type Device string

const (
	CUDA Device = "cuda"
	CPU  Device = "cpu"
)

// IsAccelerator reports whether the device supports half-precision inference.
func (d Device) IsAccelerator() bool {
	return d == CUDA
}

func (d Device) String() string {
	return string(d)
}

// Detect probes for an NVIDIA accelerator and falls back to the CPU.
func Detect() Device {
	if hasNvidiaDriver() {
		return CUDA
	}
	return CPU
}

// Resolve honors an explicit configuration choice, with "auto" or empty
// deferring to detection. Unknown values fall back to the CPU.
func Resolve(configured string) Device {
	switch strings.ToLower(strings.TrimSpace(configured)) {
	case "", "auto":
		return Detect()
	case string(CUDA):
		return CUDA
	default:
		return CPU
	}
}

func hasNvidiaDriver() bool {
	if _, err := os.Stat("/proc/driver/nvidia/version"); err == nil {
		return true
	}
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}
