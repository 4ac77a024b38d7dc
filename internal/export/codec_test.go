package export

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetframe/meetframe/internal/meeting"
)

func fakeProbe(output string, err error) EncoderProbe {
	return func(ctx context.Context) (string, error) {
		return output, err
	}
}

func TestResolvePlan(t *testing.T) {
	gpu := meeting.AccelerationPreference{UseGPU: true}

	tests := []struct {
		name  string
		pref  meeting.AccelerationPreference
		probe EncoderProbe
		want  CodecPlan
	}{
		{
			name:  "gpu disabled skips probing",
			pref:  meeting.AccelerationPreference{UseGPU: false},
			probe: fakeProbe("h264_nvenc", nil),
			want:  CodecPlan{Codec: "libx264", Hardware: false},
		},
		{
			name:  "nvenc preferred over qsv and vaapi",
			pref:  gpu,
			probe: fakeProbe("h264_vaapi\nh264_qsv\nh264_nvenc", nil),
			want:  CodecPlan{Codec: "h264_nvenc", Hardware: true},
		},
		{
			name:  "qsv when nvenc absent",
			pref:  gpu,
			probe: fakeProbe("h264_qsv\nh264_vaapi", nil),
			want:  CodecPlan{Codec: "h264_qsv", Hardware: true},
		},
		{
			name:  "vaapi as last hardware choice",
			pref:  gpu,
			probe: fakeProbe("libx265\nh264_vaapi", nil),
			want:  CodecPlan{Codec: "h264_vaapi", Hardware: true},
		},
		{
			name:  "no hardware encoders",
			pref:  gpu,
			probe: fakeProbe("libx264\nlibx265\nlibvpx", nil),
			want:  CodecPlan{Codec: "libx264", Hardware: false},
		},
		{
			name:  "probe failure falls back to software",
			pref:  gpu,
			probe: fakeProbe("", errors.New("ffmpeg not found")),
			want:  CodecPlan{Codec: "libx264", Hardware: false},
		},
		{
			name:  "nil probe falls back to software",
			pref:  gpu,
			probe: nil,
			want:  CodecPlan{Codec: "libx264", Hardware: false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolvePlan(context.Background(), tt.pref, "libx264", tt.probe)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVideoCodecArgs(t *testing.T) {
	params := meeting.VideoCodecParams{Codec: "libx264", Preset: "fast", CRF: 23, Bitrate: "5000k"}

	t.Run("nvenc", func(t *testing.T) {
		got := videoCodecArgs("h264_nvenc", params)
		want := []string{
			"-c:v", "h264_nvenc",
			"-preset", "fast",
			"-rc", "vbr",
			"-cq", "23",
			"-b:v", "5000k",
			"-maxrate", "5000k",
			"-bufsize", "10000k",
		}
		assert.Equal(t, want, got)
	})

	t.Run("qsv", func(t *testing.T) {
		got := videoCodecArgs("h264_qsv", params)
		want := []string{
			"-c:v", "h264_qsv",
			"-preset", "fast",
			"-global_quality", "23",
			"-b:v", "5000k",
		}
		assert.Equal(t, want, got)
	})

	t.Run("vaapi", func(t *testing.T) {
		got := videoCodecArgs("h264_vaapi", params)
		want := []string{
			"-c:v", "h264_vaapi",
			"-qp", "23",
			"-b:v", "5000k",
		}
		assert.Equal(t, want, got)
	})

	t.Run("software uses configured preset and crf", func(t *testing.T) {
		got := videoCodecArgs("libx264", params)
		want := []string{
			"-c:v", "libx264",
			"-preset", "fast",
			"-crf", "23",
			"-b:v", "5000k",
		}
		assert.Equal(t, want, got)
	})
}

func TestDoubleBitrate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"5000k", "10000k"},
		{"128k", "256k"},
		{"1k", "2k"},
		{"weird", "weird"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := doubleBitrate(tt.in); got != tt.want {
			t.Errorf("doubleBitrate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMuxArgs(t *testing.T) {
	target := meeting.DefaultExportTarget()

	t.Run("with audio", func(t *testing.T) {
		args := muxArgs("/tmp/intermediate.mp4", "/tmp/mixed.wav", "/tmp/out.mp4", "libx264", target)

		require.GreaterOrEqual(t, len(args), 4)
		assert.Equal(t, []string{"-i", "/tmp/intermediate.mp4", "-i", "/tmp/mixed.wav"}, args[:4])
		assert.Contains(t, args, "-shortest")
		assert.Contains(t, args, "+faststart")
		assert.Contains(t, args, "aac")
		assert.Equal(t, "/tmp/out.mp4", args[len(args)-1])
		assert.Equal(t, "-y", args[len(args)-2])
	})

	t.Run("without audio", func(t *testing.T) {
		args := muxArgs("/tmp/intermediate.mp4", "", "/tmp/out.mp4", "libx264", target)

		assert.Equal(t, []string{"-i", "/tmp/intermediate.mp4"}, args[:2])
		assert.NotContains(t, args, "-shortest")
		assert.NotContains(t, args, "-c:a")
		assert.Contains(t, args, "+faststart")
	})

	t.Run("thread hint", func(t *testing.T) {
		threaded := target
		threaded.Threads = 4
		args := muxArgs("/tmp/intermediate.mp4", "", "/tmp/out.mp4", "libx264", threaded)
		assert.Contains(t, args, "-threads")
		assert.Contains(t, args, "4")
	})
}
