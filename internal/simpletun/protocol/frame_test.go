package protocol

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"
	"testing/iotest"
)

func randomBytes(l int) []byte {
	result := make([]byte, l)
	for i := 0; i < l; i++ {
		result[i] = byte(rand.Intn(256))
	}
	return result
}

func TestEncode(t *testing.T) {
	type args struct {
		packet []byte
	}
	tests := []struct {
		name    string
		args    args
		want    []byte
		wantErr error
	}{
		{
			name: "empty packet",
			args: args{packet: []byte{}},
			want: []byte{0x00, 0x00},
		},
		{
			name: "ten bytes",
			args: args{packet: []byte("0123456789")},
			want: append([]byte{0x00, 0x0A}, []byte("0123456789")...),
		},
		{
			name: "max size",
			args: args{packet: make([]byte, MaxPacketSize)},
			want: append([]byte{0xFF, 0xFF}, make([]byte, MaxPacketSize)...),
		},
		{
			name:    "too large",
			args:    args{packet: make([]byte, MaxPacketSize+1)},
			wantErr: ErrPacketTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.args.packet)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Encode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode() = % x, want % x", got, tt.want)
			}
		})
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	sizes := []int{0, 1, 2, 1500, 2000, MaxPacketSize}
	for i := 0; i < 20; i++ {
		sizes = append(sizes, rand.Intn(MaxPacketSize+1))
	}
	for _, size := range sizes {
		want := randomBytes(size)
		frame, err := Encode(want)
		if err != nil {
			t.Fatalf("Encode(%d bytes) error = %v", size, err)
		}
		// one byte per Read: short reads must be tolerated
		got, err := Decode(iotest.OneByteReader(bytes.NewReader(frame)))
		if err != nil {
			t.Fatalf("Decode(%d bytes) error = %v", size, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Decode(Encode(p)) != p for %d bytes", size)
		}
	}
}

func TestDecode_Stream(t *testing.T) {
	wants := [][]byte{[]byte("first"), {}, []byte("third packet")}
	var stream bytes.Buffer
	for _, p := range wants {
		if err := WriteFrame(&stream, p); err != nil {
			t.Fatalf("WriteFrame() error = %v", err)
		}
	}
	reader := iotest.HalfReader(&stream)
	for i, want := range wants {
		got, err := Decode(reader)
		if err != nil {
			t.Fatalf("Decode() #%d error = %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Decode() #%d = %q, want %q", i, got, want)
		}
	}
	if _, err := Decode(reader); !errors.Is(err, ErrPeerClosed) {
		t.Errorf("Decode() at end = %v, want ErrPeerClosed", err)
	}
}

// zeroReader - returns (0, nil) after the data is consumed
type zeroReader struct {
	data []byte
}

func (r *zeroReader) Read(p []byte) (int, error) {
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestDecode_Closed(t *testing.T) {
	tests := []struct {
		name   string
		reader io.Reader
		want   error
	}{
		{
			name:   "ends after 0 bytes",
			reader: bytes.NewReader(nil),
			want:   ErrPeerClosed,
		},
		{
			name:   "ends after 1 byte",
			reader: bytes.NewReader([]byte{0x00}),
			want:   ErrTruncatedFrame,
		},
		{
			name:   "ends inside payload",
			reader: bytes.NewReader([]byte{0x00, 0x05, 'a', 'b'}),
			want:   ErrTruncatedFrame,
		},
		{
			name:   "ends inside payload with data and EOF together",
			reader: iotest.DataErrReader(bytes.NewReader([]byte{0x00, 0x05, 'a', 'b'})),
			want:   ErrTruncatedFrame,
		},
		{
			name:   "zero byte read at frame boundary",
			reader: &zeroReader{},
			want:   ErrPeerClosed,
		},
		{
			name:   "zero byte read inside frame",
			reader: &zeroReader{data: []byte{0x00, 0x03, 'x'}},
			want:   ErrTruncatedFrame,
		},
		{
			name:   "read error",
			reader: iotest.ErrReader(io.ErrClosedPipe),
			want:   io.ErrClosedPipe,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.reader)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
			if got != nil {
				t.Errorf("Decode() returned partial packet %q", got)
			}
		})
	}
}

// shortWriter - accepts at most `max` bytes per Write
type shortWriter struct {
	bytes.Buffer
	max int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.max {
		p = p[:w.max]
	}
	return w.Buffer.Write(p)
}

func TestWriteFrame_ShortWrites(t *testing.T) {
	packet := randomBytes(1000)
	w := &shortWriter{max: 7}
	if err := WriteFrame(w, packet); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	want, _ := Encode(packet)
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("WriteFrame() wrote %d bytes, want %d", w.Len(), len(want))
	}
}

func TestDecodeFromReader(t *testing.T) {
	var stream bytes.Buffer
	WriteFrame(&stream, []byte("a"))
	WriteFrame(&stream, []byte("bc"))
	stream.Write([]byte{0x00})
	done := make(chan struct{})
	defer close(done)
	packets, closed := DecodeFromReader(&stream, done)
	for _, want := range []string{"a", "bc"} {
		if got := <-packets; string(got) != want {
			t.Errorf("DecodeFromReader() = %q, want %q", got, want)
		}
	}
	if err := <-closed; !errors.Is(err, ErrTruncatedFrame) {
		t.Errorf("DecodeFromReader() closed with %v, want ErrTruncatedFrame", err)
	}
}
