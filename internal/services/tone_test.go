package services

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func TestTone(t *testing.T) {
	t.Run("Samples", func(t *testing.T) {
		tone := Tone{Frequency: 440, SampleRate: 1000, Beep: 100 * time.Millisecond, Gap: 50 * time.Millisecond, Beeps: 3, Volume: 1}
		samples := tone.Samples()
		if want := 3*100 + 2*50; len(samples) != want {
			t.Fatalf("expected %d samples, got %d", want, len(samples))
		}
		for i := 100; i < 150; i++ {
			if samples[i] != 0 {
				t.Fatalf("expected silence in gap at %d, got %d", i, samples[i])
			}
		}
	})

	t.Run("WriteWAV", func(t *testing.T) {
		tone := DefaultTone()
		var buf bytes.Buffer
		n, err := tone.WriteWAV(&buf)
		if err != nil {
			t.Fatalf("WriteWAV failed: %v", err)
		}
		data := buf.Bytes()
		if int64(len(data)) != n {
			t.Errorf("reported %d bytes, wrote %d", n, len(data))
		}

		checks := []struct {
			name   string
			offset int
			want   string
		}{
			{"riff", 0, "RIFF"},
			{"wave", 8, "WAVE"},
			{"fmt", 12, "fmt "},
			{"data", 36, "data"},
		}
		for _, c := range checks {
			if got := string(data[c.offset : c.offset+4]); got != c.want {
				t.Errorf("%s chunk: expected %q, got %q", c.name, c.want, got)
			}
		}

		dataLen := binary.LittleEndian.Uint32(data[40:44])
		if int(dataLen) != len(tone.Samples())*2 {
			t.Errorf("data chunk length %d does not match samples", dataLen)
		}
		if riff := binary.LittleEndian.Uint32(data[4:8]); int(riff) != len(data)-8 {
			t.Errorf("riff length %d, want %d", riff, len(data)-8)
		}
		if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 22050 {
			t.Errorf("expected sample rate 22050, got %d", rate)
		}
	})
}
