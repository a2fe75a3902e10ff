package log

import (
	"bytes"
	"testing"
)

func TestDirectionString(t *testing.T) {
	tests := []struct {
		dir  Direction
		want string
	}{
		{DirectionIn, "IN"},
		{DirectionOut, "OUT"},
		{Direction(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.dir.String(); got != tt.want {
			t.Errorf("Direction(%d).String() = %q, want %q", tt.dir, got, tt.want)
		}
	}
}

func TestLayerString(t *testing.T) {
	tests := []struct {
		layer Layer
		want  string
	}{
		{LayerSocket, "SOCKET"},
		{LayerTransport, "TRANSPORT"},
		{LayerRetry, "RETRY"},
		{Layer(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.layer.String(); got != tt.want {
			t.Errorf("Layer(%d).String() = %q, want %q", tt.layer, got, tt.want)
		}
	}
}

func TestCategoryString(t *testing.T) {
	tests := []struct {
		cat  Category
		want string
	}{
		{CategoryMessage, "MESSAGE"},
		{CategoryLifecycle, "LIFECYCLE"},
		{CategoryState, "STATE"},
		{CategoryError, "ERROR"},
		{CategoryRetry, "RETRY"},
		{Category(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.cat.String(); got != tt.want {
			t.Errorf("Category(%d).String() = %q, want %q", tt.cat, got, tt.want)
		}
	}
}

func TestNewFrameEvent(t *testing.T) {
	t.Run("small payload kept whole", func(t *testing.T) {
		data := []byte("ping")
		fe := NewFrameEvent(data, "text")

		if fe.Size != 4 || fe.Truncated || fe.Mode != "text" {
			t.Errorf("unexpected frame event: %+v", fe)
		}
		if !bytes.Equal(fe.Data, data) {
			t.Errorf("Data = %q, want %q", fe.Data, data)
		}

		// The capture must not alias the caller's buffer.
		data[0] = 'P'
		if fe.Data[0] != 'p' {
			t.Error("frame data aliases the input slice")
		}
	})

	t.Run("large payload truncated", func(t *testing.T) {
		data := bytes.Repeat([]byte{0xAB}, MaxFrameCapture+10)
		fe := NewFrameEvent(data, "binary")

		if fe.Size != MaxFrameCapture+10 {
			t.Errorf("Size = %d, want %d", fe.Size, MaxFrameCapture+10)
		}
		if !fe.Truncated {
			t.Error("Truncated = false, want true")
		}
		if len(fe.Data) != MaxFrameCapture {
			t.Errorf("len(Data) = %d, want %d", len(fe.Data), MaxFrameCapture)
		}
	})
}
