package mp4demuxer

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Eyevinn/mp4ff/avc"
	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/mediaplay/pkg/media"
)

var (
	testSPS = []byte{0x67, 0x42, 0x00, 0x1e, 0xab, 0x40}
	testPPS = []byte{0x68, 0xce, 0x38, 0x80}
)

// buildFragmentedMP4 writes a video-only fragmented MP4 with the given
// number of frames at 25 fps and a keyframe every keyInterval frames.
func buildFragmentedMP4(t *testing.T, frames, keyInterval int) []byte {
	t.Helper()

	const timescale = 90000
	const dur = timescale / 25

	init := mp4.CreateEmptyInit()
	init.AddEmptyTrack(timescale, "video", "en")
	trak := init.Moov.Trak

	avcC := &mp4.AvcCBox{DecConfRec: avc.DecConfRec{
		AVCProfileIndication: 66,
		AVCLevelIndication:   30,
		SPSnalus:             [][]byte{testSPS},
		PPSnalus:             [][]byte{testPPS},
		NoTrailingInfo:       true,
	}}
	trak.Mdia.Minf.Stbl.Stsd.AddChild(mp4.CreateVisualSampleEntryBox("avc1", 64, 48, avcC))
	trak.Tkhd.Width = mp4.Fixed32(64 << 16)
	trak.Tkhd.Height = mp4.Fixed32(48 << 16)

	frag, err := mp4.CreateFragment(1, 1)
	if err != nil {
		t.Fatalf("create fragment: %v", err)
	}
	for i := 0; i < frames; i++ {
		flags := mp4.NonSyncSampleFlags
		naluType := byte(0x01)
		if i%keyInterval == 0 {
			flags = mp4.SyncSampleFlags
			naluType = 0x65
		}
		data := []byte{0, 0, 0, 2, naluType, byte(i)}
		frag.AddFullSample(mp4.FullSample{
			Sample:     mp4.Sample{Flags: flags, Size: uint32(len(data)), Dur: dur},
			DecodeTime: uint64(i * dur),
			Data:       data,
		})
	}

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "avc1", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		t.Fatalf("encode ftyp: %v", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		t.Fatalf("encode moov: %v", err)
	}
	if err := frag.Encode(&buf); err != nil {
		t.Fatalf("encode fragment: %v", err)
	}
	return buf.Bytes()
}

func readAll(t *testing.T, d *Demuxer) []*media.Unit {
	t.Helper()
	var units []*media.Unit
	for {
		u, err := d.ReadUnit()
		if errors.Is(err, io.EOF) {
			return units
		}
		if err != nil {
			t.Fatalf("ReadUnit: %v", err)
		}
		units = append(units, u)
	}
}

func TestDemuxer_Fragmented(t *testing.T) {
	d, err := NewFromReader(bytes.NewReader(buildFragmentedMP4(t, 10, 5)))
	if err != nil {
		t.Fatalf("NewFromReader: %v", err)
	}
	defer d.Close()

	streams := d.Streams()
	if len(streams) != 1 {
		t.Fatalf("expected 1 stream, got %d", len(streams))
	}
	v := streams[0]
	if v.Role != media.RoleVideo || v.Codec != "h264" || v.Width != 64 || v.Height != 48 {
		t.Errorf("unexpected descriptor: %+v", v)
	}
	if v.FrameRate < 24.9 || v.FrameRate > 25.1 {
		t.Errorf("expected 25 fps, got %f", v.FrameRate)
	}
	if d.Duration() != 400*time.Millisecond {
		t.Errorf("expected 400ms duration, got %v", d.Duration())
	}

	units := readAll(t, d)
	if len(units) != 10 {
		t.Fatalf("expected 10 units, got %d", len(units))
	}
	for i, u := range units {
		if u.PTS != time.Duration(i)*40*time.Millisecond {
			t.Errorf("unit %d: pts %v", i, u.PTS)
		}
		if u.Keyframe != (i%5 == 0) {
			t.Errorf("unit %d: keyframe %v", i, u.Keyframe)
		}
		if !bytes.HasPrefix(u.Data, []byte{0, 0, 0, 1}) {
			t.Errorf("unit %d: expected annex b start code, got % x", i, u.Data[:4])
		}
	}

	// Keyframes carry SPS and PPS ahead of the slice.
	key := units[0].Data
	want := []byte{0, 0, 0, 1}
	want = append(want, testSPS...)
	if !bytes.HasPrefix(key, want) {
		t.Errorf("expected keyframe to start with SPS, got % x", key)
	}
	if bytes.Contains(units[1].Data, testSPS) {
		t.Error("expected non-keyframe without parameter sets")
	}
}

func TestDemuxer_SeekToKeyframe(t *testing.T) {
	d, err := NewFromReader(bytes.NewReader(buildFragmentedMP4(t, 20, 5)))
	if err != nil {
		t.Fatalf("NewFromReader: %v", err)
	}

	tests := []struct {
		pos  time.Duration
		want time.Duration
	}{
		{0, 0},
		{190 * time.Millisecond, 0},
		{200 * time.Millisecond, 200 * time.Millisecond},
		{500 * time.Millisecond, 400 * time.Millisecond},
		{10 * time.Second, 600 * time.Millisecond},
	}
	for _, tt := range tests {
		if err := d.Seek(tt.pos); err != nil {
			t.Fatalf("Seek(%v): %v", tt.pos, err)
		}
		u, err := d.ReadUnit()
		if err != nil {
			t.Fatalf("ReadUnit after seek: %v", err)
		}
		if u.PTS != tt.want || !u.Keyframe {
			t.Errorf("Seek(%v): got pts %v keyframe %v, want keyframe at %v", tt.pos, u.PTS, u.Keyframe, tt.want)
		}
	}

	if err := d.Seek(-time.Second); err == nil {
		t.Error("expected error for negative position")
	}
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, buildFragmentedMP4(t, 5, 5), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if n := len(readAll(t, d)); n != 5 {
		t.Errorf("expected 5 units, got %d", n)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "junk.mp4")
	if err := os.WriteFile(path, []byte("definitely not an mp4 file"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected error for invalid file")
	}
}
