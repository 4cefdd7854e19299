package services

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"time"
)

// Tone describes the beep pattern played when no other audio can be loaded.
type Tone struct {
	Frequency  float64
	SampleRate int
	Beep       time.Duration
	Gap        time.Duration
	Beeps      int
	Volume     float64 // 0..1
}

// DefaultTone is three short 880 Hz beeps.
func DefaultTone() Tone {
	return Tone{
		Frequency:  880,
		SampleRate: 22050,
		Beep:       250 * time.Millisecond,
		Gap:        150 * time.Millisecond,
		Beeps:      3,
		Volume:     0.8,
	}
}

// Samples renders the tone as signed 16-bit mono PCM.
func (t Tone) Samples() []int16 {
	beepN := int(t.Beep.Seconds() * float64(t.SampleRate))
	gapN := int(t.Gap.Seconds() * float64(t.SampleRate))
	amp := t.Volume * math.MaxInt16

	out := make([]int16, 0, t.Beeps*(beepN+gapN))
	for b := range t.Beeps {
		for i := range beepN {
			v := amp * math.Sin(2*math.Pi*t.Frequency*float64(i)/float64(t.SampleRate))
			out = append(out, int16(v))
		}
		if b < t.Beeps-1 {
			out = append(out, make([]int16, gapN)...)
		}
	}
	return out
}

// WriteWAV encodes the tone as a PCM WAV file and returns the bytes written.
func (t Tone) WriteWAV(w io.Writer) (int64, error) {
	samples := t.Samples()
	dataLen := uint32(len(samples) * 2)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, struct {
		Size          uint32
		Format        uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}{16, 1, 1, uint32(t.SampleRate), uint32(t.SampleRate * 2), 2, 16})

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	_ = binary.Write(&buf, binary.LittleEndian, samples)

	return buf.WriteTo(w)
}
