package piper

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultSampleRate is used when the voice metadata does not expose a rate.
// Guessing wrong makes the audio play at the wrong speed and pitch, so the
// probes below are preferred whenever the metadata carries the value.
const DefaultSampleRate = 22050

// voiceMetadata is the decoded voice configuration JSON shipped next to a
// Piper ONNX model.
type voiceMetadata map[string]any

// rateProbe extracts the output sample rate from one known metadata shape.
type rateProbe struct {
	name    string
	extract func(meta voiceMetadata) (int, bool)
}

// sampleRateProbes is evaluated in order; the first hit wins. Keeping the
// chain explicit makes the fallback behavior auditable.
var sampleRateProbes = []rateProbe{
	{
		name: "audio.sample_rate",
		extract: func(meta voiceMetadata) (int, bool) {
			section, ok := meta["audio"].(map[string]any)
			if !ok {
				return 0, false
			}
			return intValue(section["sample_rate"])
		},
	},
	{
		name: "sample_rate",
		extract: func(meta voiceMetadata) (int, bool) {
			return intValue(meta["sample_rate"])
		},
	},
}

// resolveSampleRate walks the probe chain and reports which probe produced
// the rate, or "default" when the fallback was used.
func resolveSampleRate(meta voiceMetadata) (int, string) {
	for _, probe := range sampleRateProbes {
		if rate, ok := probe.extract(meta); ok && rate > 0 {
			return rate, probe.name
		}
	}
	return DefaultSampleRate, "default"
}

func loadVoiceMetadata(path string) (voiceMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read voice metadata: %w", err)
	}
	var meta voiceMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse voice metadata: %w", err)
	}
	return meta, nil
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
