package export

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetframe/meetframe/internal/meeting"
)

// recordingRunner fakes ffmpeg invocations and fails the codecs listed in
// failCodecs.
type recordingRunner struct {
	failCodecs map[string]bool
	calls      [][]string
}

func (r *recordingRunner) Run(ctx context.Context, args []string) error {
	r.calls = append(r.calls, args)
	codec := ""
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-c:v" {
			codec = args[i+1]
			break
		}
	}
	if r.failCodecs[codec] {
		return errors.New("encoder rejected input")
	}
	// A real run produces the output file.
	out := args[len(args)-1]
	return os.WriteFile(out, []byte("encoded with "+codec), 0o600)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestPipeline(t *testing.T, runner CommandRunner, encoders string) *Pipeline {
	t.Helper()
	return NewPipeline("ffmpeg", "ffprobe", t.TempDir(), testLogger(),
		WithRunner(runner),
		WithEncoderProbe(fakeProbe(encoders, nil)),
	)
}

func writeIntermediate(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "intermediate.mp4")
	require.NoError(t, os.WriteFile(path, []byte("raw intermediate frames"), 0o600))
	return path
}

func TestEncode_HardwareSucceeds(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{}
	p := newTestPipeline(t, runner, "h264_nvenc")

	intermediate := writeIntermediate(t, dir)
	out := filepath.Join(dir, "out.mp4")
	err := p.encode(context.Background(), meeting.DefaultExportTarget(), intermediate, "", out)

	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "encoded with h264_nvenc", string(data))
}

func TestEncode_HardwareFailsSoftwareSucceeds(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{failCodecs: map[string]bool{"h264_nvenc": true}}
	p := newTestPipeline(t, runner, "h264_nvenc")

	intermediate := writeIntermediate(t, dir)
	out := filepath.Join(dir, "out.mp4")
	err := p.encode(context.Background(), meeting.DefaultExportTarget(), intermediate, "", out)

	require.NoError(t, err)
	require.Len(t, runner.calls, 2)
	assert.Contains(t, runner.calls[0], "h264_nvenc")
	assert.Contains(t, runner.calls[1], "libx264")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "encoded with libx264", string(data))
}

func TestEncode_BothFailDeliversIntermediate(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{failCodecs: map[string]bool{"h264_nvenc": true, "libx264": true}}
	p := newTestPipeline(t, runner, "h264_nvenc")

	intermediate := writeIntermediate(t, dir)
	out := filepath.Join(dir, "out.mp4")
	err := p.encode(context.Background(), meeting.DefaultExportTarget(), intermediate, "", out)

	require.NoError(t, err)
	require.Len(t, runner.calls, 2)

	want, err := os.ReadFile(intermediate)
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, want, got, "output must be the intermediate verbatim")
}

func TestEncode_SoftwarePlanFailsWithoutRetry(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{failCodecs: map[string]bool{"libx264": true}}
	// No hardware encoders available, so the plan is software from the start.
	p := newTestPipeline(t, runner, "libx264 only")

	intermediate := writeIntermediate(t, dir)
	out := filepath.Join(dir, "out.mp4")
	err := p.encode(context.Background(), meeting.DefaultExportTarget(), intermediate, "", out)

	// No second attempt with the same codec; the intermediate is delivered.
	require.NoError(t, err)
	require.Len(t, runner.calls, 1)
	want, err := os.ReadFile(intermediate)
	require.NoError(t, err)
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEncode_GPUDisabledNeverProbesHardware(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{}
	p := NewPipeline("ffmpeg", "ffprobe", t.TempDir(), testLogger(),
		WithRunner(runner),
		WithEncoderProbe(fakeProbe("h264_nvenc", nil)),
	)

	target := meeting.DefaultExportTarget()
	target.Acceleration.UseGPU = false

	intermediate := writeIntermediate(t, dir)
	out := filepath.Join(dir, "out.mp4")
	require.NoError(t, p.encode(context.Background(), target, intermediate, "", out))

	require.Len(t, runner.calls, 1)
	assert.Contains(t, runner.calls[0], "libx264")
	assert.NotContains(t, runner.calls[0], "h264_nvenc")
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o600))

	require.NoError(t, moveFile(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err), "source should be gone")
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestCopyFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := copyFile(filepath.Join(dir, "absent.bin"), filepath.Join(dir, "dst.bin"))
	assert.Error(t, err)
}

func TestEncode_PlanFollowsEachJobTarget(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{}
	probeCalls := 0
	p := NewPipeline("ffmpeg", "ffprobe", t.TempDir(), testLogger(),
		WithRunner(runner),
		WithEncoderProbe(func(ctx context.Context) (string, error) {
			probeCalls++
			return "h264_nvenc", nil
		}),
	)

	intermediate := writeIntermediate(t, dir)

	// First job opts out of acceleration; the probe must not run and the
	// software codec is used.
	noGPU := meeting.DefaultExportTarget()
	noGPU.Acceleration.UseGPU = false
	out1 := filepath.Join(dir, "out1.mp4")
	require.NoError(t, p.encode(context.Background(), noGPU, intermediate, "", out1))
	assert.Equal(t, 0, probeCalls)
	assert.Contains(t, runner.calls[0], "libx264")

	// A later job requesting acceleration still gets the hardware encoder.
	gpu := meeting.DefaultExportTarget()
	out2 := filepath.Join(dir, "out2.mp4")
	require.NoError(t, p.encode(context.Background(), gpu, intermediate, "", out2))
	assert.Equal(t, 1, probeCalls)
	assert.Contains(t, runner.calls[1], "h264_nvenc")

	// The capability list is cached; a third accelerated job reuses it.
	out3 := filepath.Join(dir, "out3.mp4")
	require.NoError(t, p.encode(context.Background(), gpu, intermediate, "", out3))
	assert.Equal(t, 1, probeCalls)
	assert.Contains(t, runner.calls[2], "h264_nvenc")
}

func TestEncode_SoftwareCodecFollowsJobTarget(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{}
	p := newTestPipeline(t, runner, "no hardware here")

	custom := meeting.DefaultExportTarget()
	custom.Video.Codec = "libx265"

	intermediate := writeIntermediate(t, dir)
	out := filepath.Join(dir, "out.mp4")
	require.NoError(t, p.encode(context.Background(), custom, intermediate, "", out))

	require.Len(t, runner.calls, 1)
	assert.Contains(t, runner.calls[0], "libx265")
	assert.NotContains(t, runner.calls[0], "libx264")
}
