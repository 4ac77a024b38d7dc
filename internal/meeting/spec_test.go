package meeting

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalSpec = `
inputs:
  background: bg.jpg
  speaker1: s1.mp4
  speaker2: s2.mp4
  speaker1_name: Alice
  speaker2_name: Bob
  output: out.mp4
`

func TestParseJobSpec_Defaults(t *testing.T) {
	spec, err := ParseJobSpec([]byte(minimalSpec))
	require.NoError(t, err)

	assert.Equal(t, "bg.jpg", spec.Inputs.BackgroundPath)
	assert.Equal(t, 400, spec.Layout.Width)
	assert.Equal(t, 300, spec.Layout.Height)
	assert.Equal(t, 1920, spec.Target.Width)
	assert.Equal(t, 1080, spec.Target.Height)
	assert.Equal(t, 30, spec.Target.FPS)
	assert.Equal(t, "libx264", spec.Target.Video.Codec)
	assert.Equal(t, "5000k", spec.Target.Video.Bitrate)
	assert.True(t, spec.Target.Acceleration.UseGPU)
	assert.Equal(t, uint8(180), spec.Layout.PlateBackground.A)
}

func TestParseJobSpec_Overrides(t *testing.T) {
	doc := minimalSpec + `
speaker:
  width: 320
  height: 240
  font_size: 30
  font_color: "#ff0000"
  plate_bg_color: "#102030"
  plate_bg_alpha: 200
  plate_padding: 8
export:
  width: 1280
  height: 720
  fps: 25
  use_gpu: false
  video:
    codec: libx265
    preset: medium
    crf: 28
    bitrate: 3000k
  audio:
    codec: aac
    bitrate: 96k
    sample_rate: 48000
    channels: 1
`
	spec, err := ParseJobSpec([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, 320, spec.Layout.Width)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, spec.Layout.FontColor)
	assert.Equal(t, color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 200}, spec.Layout.PlateBackground)
	assert.Equal(t, 1280, spec.Target.Width)
	assert.Equal(t, 25, spec.Target.FPS)
	assert.False(t, spec.Target.Acceleration.UseGPU)
	assert.Equal(t, "libx265", spec.Target.Video.Codec)
	assert.Equal(t, 48000, spec.Target.Audio.SampleRate)
	// padding 8 is clamped up to 1% of output height
	assert.Equal(t, ClampPadding(720, 8), spec.Layout.PlatePadding)
	assert.Equal(t, ClampFontSize(240, 30), spec.Layout.FontSize)
}

func TestParseJobSpec_InvalidInputs(t *testing.T) {
	_, err := ParseJobSpec([]byte(`
inputs:
  background: bg.jpg
  speaker1: s1.mp4
  speaker2: s2.mp4
  speaker1_name: "Ali|ce"
  speaker2_name: Bob
  output: out.mp4
`))
	require.Error(t, err)
}

func TestParseJobSpec_SpeakerLargerThanOutput(t *testing.T) {
	_, err := ParseJobSpec([]byte(minimalSpec + `
speaker:
  width: 2000
`))
	require.Error(t, err)
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#ffffff", color.RGBA{255, 255, 255, 255}, false},
		{"000000", color.RGBA{0, 0, 0, 255}, false},
		{"#a1B2c3", color.RGBA{0xa1, 0xb2, 0xc3, 255}, false},
		{"#fff", color.RGBA{}, true},
		{"#gggggg", color.RGBA{}, true},
		{"", color.RGBA{}, true},
	}

	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
