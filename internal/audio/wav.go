// Package audio frames synthesized waveforms as 16-bit PCM WAV and converts
// between raw PCM and float samples.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/voxgate/voxgate/internal/models"
)

const (
	// BitsPerSample is the bit depth used for all WAV output.
	BitsPerSample = 16
	// Channels is the channel count; synthesis output is always mono.
	Channels = 1

	wavHeaderSize = 44
)

// EncodeWAV writes the waveform as a mono 16-bit PCM WAV stream.
// Samples outside [-1, 1] are clamped.
func EncodeWAV(w io.Writer, samples models.Waveform, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	dataSize := len(samples) * BitsPerSample / 8
	if err := writeWAVHeader(w, dataSize, sampleRate); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	buf := make([]byte, 2)
	for _, s := range samples {
		binary.LittleEndian.PutUint16(buf, uint16(sampleToPCM16(s)))
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write wav data: %w", err)
		}
	}
	return nil
}

// EncodeWAVBytes renders the waveform into an in-memory WAV buffer.
func EncodeWAVBytes(samples models.Waveform, sampleRate int) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(samples)*2))
	if err := EncodeWAV(buf, samples, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PCM16ToWaveform converts little-endian 16-bit PCM bytes into float samples.
// A trailing odd byte is ignored.
func PCM16ToWaveform(data []byte) models.Waveform {
	samples := make(models.Waveform, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		v := int16(binary.LittleEndian.Uint16(data[i:]))
		samples = append(samples, float32(v)/32768.0)
	}
	return samples
}

func sampleToPCM16(s float32) int16 {
	scaled := float64(s) * 32767.0
	switch {
	case scaled > 32767:
		return 32767
	case scaled < -32768:
		return -32768
	default:
		return int16(math.Round(scaled))
	}
}

func writeWAVHeader(w io.Writer, dataSize, sampleRate int) error {
	byteRate := sampleRate * Channels * BitsPerSample / 8
	blockAlign := Channels * BitsPerSample / 8

	if _, err := w.Write([]byte("RIFF")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(36+dataSize)); err != nil {
		return err
	}
	if _, err := w.Write([]byte("WAVE")); err != nil {
		return err
	}
	if _, err := w.Write([]byte("fmt ")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(1)); err != nil { // PCM
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(Channels)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(sampleRate)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(byteRate)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(blockAlign)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(BitsPerSample)); err != nil {
		return err
	}
	if _, err := w.Write([]byte("data")); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, uint32(dataSize))
}

// Info describes a parsed WAV header.
type Info struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataBytes     int
}

// SampleCount reports the number of per-channel samples in the data chunk.
func (i Info) SampleCount() int {
	bytesPerFrame := i.Channels * i.BitsPerSample / 8
	if bytesPerFrame == 0 {
		return 0
	}
	return i.DataBytes / bytesPerFrame
}

// ParseWAV reads the canonical 44-byte header produced by EncodeWAV.
func ParseWAV(data []byte) (Info, error) {
	if len(data) < wavHeaderSize {
		return Info{}, fmt.Errorf("wav too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Info{}, fmt.Errorf("not a RIFF/WAVE stream")
	}
	if string(data[12:16]) != "fmt " {
		return Info{}, fmt.Errorf("missing fmt chunk")
	}
	if format := binary.LittleEndian.Uint16(data[20:]); format != 1 {
		return Info{}, fmt.Errorf("unsupported wav format %d", format)
	}
	if string(data[36:40]) != "data" {
		return Info{}, fmt.Errorf("missing data chunk")
	}
	info := Info{
		Channels:      int(binary.LittleEndian.Uint16(data[22:])),
		SampleRate:    int(binary.LittleEndian.Uint32(data[24:])),
		BitsPerSample: int(binary.LittleEndian.Uint16(data[34:])),
		DataBytes:     int(binary.LittleEndian.Uint32(data[40:])),
	}
	if info.DataBytes != len(data)-wavHeaderSize {
		return Info{}, fmt.Errorf("data chunk size %d does not match payload %d", info.DataBytes, len(data)-wavHeaderSize)
	}
	return info, nil
}
