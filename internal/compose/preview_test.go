package compose

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/meetframe/meetframe/internal/meeting"
	"github.com/meetframe/meetframe/internal/video"
)

// checkFFmpeg skips the test if ffmpeg or ffprobe is not available.
func checkFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH, skipping test", bin)
		}
	}
}

// createClip renders a short silent test clip.
func createClip(t *testing.T, path string) {
	t.Helper()
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", fmt.Sprintf("testsrc=duration=%d:size=320x240:rate=10", 1),
		"-pix_fmt", "yuv420p",
		"-an",
		path,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test clip: %v: %s", err, out)
	}
}

// createBackground writes a solid PNG backdrop.
func createBackground(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 30
		img.Pix[i+1] = 60
		img.Pix[i+2] = 90
		img.Pix[i+3] = 255
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create background: %v", err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode background: %v", err)
	}
}

func TestPreview(t *testing.T) {
	checkFFmpeg(t)

	dir := t.TempDir()
	bg := filepath.Join(dir, "bg.png")
	s1 := filepath.Join(dir, "s1.mp4")
	s2 := filepath.Join(dir, "s2.mp4")
	out := filepath.Join(dir, "preview.jpg")

	createBackground(t, bg, 640, 360)
	createClip(t, s1)
	createClip(t, s2)

	inputs := meeting.JobInputs{
		BackgroundPath: bg,
		Speaker1Path:   s1,
		Speaker2Path:   s2,
		Speaker1Name:   "Alice",
		Speaker2Name:   "Bob",
		OutputPath:     filepath.Join(dir, "out.mp4"),
	}
	layout := meeting.DefaultSpeakerLayout()
	layout.Width, layout.Height = 200, 150
	target := meeting.DefaultExportTarget()
	target.Width, target.Height = 640, 360

	p := NewPreviewer(video.NewProber(""), "", nil)
	if err := p.Preview(context.Background(), inputs, layout, target, out); err != nil {
		t.Fatalf("Preview: %v", err)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("preview not written: %v", err)
	}
	if info.Size() == 0 {
		t.Error("preview file is empty")
	}
}

func TestPreview_MissingSourceFails(t *testing.T) {
	checkFFmpeg(t)

	dir := t.TempDir()
	bg := filepath.Join(dir, "bg.png")
	createBackground(t, bg, 640, 360)

	inputs := meeting.JobInputs{
		BackgroundPath: bg,
		Speaker1Path:   filepath.Join(dir, "absent.mp4"),
		Speaker2Path:   filepath.Join(dir, "absent.mp4"),
		Speaker1Name:   "Alice",
		Speaker2Name:   "Bob",
	}

	p := NewPreviewer(video.NewProber(""), "", nil)
	err := p.Preview(context.Background(), inputs, meeting.DefaultSpeakerLayout(), meeting.DefaultExportTarget(), filepath.Join(dir, "p.jpg"))
	if err == nil {
		t.Fatal("expected error for missing sources")
	}
}
