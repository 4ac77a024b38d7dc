package export

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/meetframe/meetframe/internal/meeting"
)

// Hardware encoder names in selection priority order.
const (
	codecNVENC = "h264_nvenc"
	codecQSV   = "h264_qsv"
	codecVAAPI = "h264_vaapi"
)

// EncoderProbe returns the external encoder's capability list (the raw
// output of "ffmpeg -encoders"). The list is treated as an opaque versioned
// interface; probing failure resolves to the software codec, never an
// error. Tests inject fakes.
type EncoderProbe func(ctx context.Context) (string, error)

// NewEncoderProbe returns a probe that shells out to ffmpeg.
func NewEncoderProbe(ffmpegPath string) EncoderProbe {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return func(ctx context.Context) (string, error) {
		// #nosec G204 - ffmpegPath is set by the application, not user input
		cmd := exec.CommandContext(ctx, ffmpegPath, "-encoders")
		var stdout bytes.Buffer
		cmd.Stdout = &stdout
		if err := cmd.Run(); err != nil {
			return "", fmt.Errorf("export: query encoders: %w", err)
		}
		return stdout.String(), nil
	}
}

// CodecPlan is the immutable, runtime-resolved encoding decision. It is
// produced once per pipeline and threaded explicitly into the encode
// phase; the user-supplied configuration is never mutated.
type CodecPlan struct {
	// Codec is the resolved encoder name.
	Codec string
	// Hardware reports whether Codec is a hardware encoder, which enables
	// the software retry on encode failure.
	Hardware bool
}

// ResolvePlan decides the encoder once per pipeline. Acceleration disabled
// resolves directly to the software codec; otherwise the first available
// encoder of {NVENC, QSV, VA-API} wins, falling back to software when none
// are present or the probe itself fails.
func ResolvePlan(ctx context.Context, pref meeting.AccelerationPreference, software string, probe EncoderProbe) CodecPlan {
	sw := CodecPlan{Codec: software, Hardware: false}
	if !pref.UseGPU || probe == nil {
		return sw
	}

	encoders, err := probe(ctx)
	if err != nil {
		return sw
	}
	for _, hw := range []string{codecNVENC, codecQSV, codecVAAPI} {
		if strings.Contains(encoders, hw) {
			return CodecPlan{Codec: hw, Hardware: true}
		}
	}
	return sw
}

// videoCodecArgs builds the encoder flags for the resolved codec. Hardware
// codecs express quality through their own flags; the software path uses
// -crf. The NVIDIA path derives max-rate and buffer size as twice the
// target bitrate.
func videoCodecArgs(codec string, params meeting.VideoCodecParams) []string {
	crf := strconv.Itoa(params.CRF)
	switch codec {
	case codecNVENC:
		return []string{
			"-c:v", codecNVENC,
			"-preset", "fast",
			"-rc", "vbr",
			"-cq", crf,
			"-b:v", params.Bitrate,
			"-maxrate", params.Bitrate,
			"-bufsize", doubleBitrate(params.Bitrate),
		}
	case codecQSV:
		return []string{
			"-c:v", codecQSV,
			"-preset", "fast",
			"-global_quality", crf,
			"-b:v", params.Bitrate,
		}
	case codecVAAPI:
		return []string{
			"-c:v", codecVAAPI,
			"-qp", crf,
			"-b:v", params.Bitrate,
		}
	default:
		return []string{
			"-c:v", codec,
			"-preset", params.Preset,
			"-crf", crf,
			"-b:v", params.Bitrate,
		}
	}
}

// doubleBitrate returns twice a "<n>k" bitrate for NVENC buffer sizing.
// An unparseable bitrate is passed through unchanged.
func doubleBitrate(bitrate string) string {
	n, err := strconv.Atoi(strings.TrimSuffix(bitrate, "k"))
	if err != nil {
		return bitrate
	}
	return strconv.Itoa(2*n) + "k"
}

// muxArgs builds the full argument list for the final encode: the silent
// intermediate plus the mixed-audio WAV (or video alone), codec flags,
// fixed AAC 128k audio, shortest-stream trimming, and the fast-start flag
// for progressive playback.
func muxArgs(intermediatePath, audioPath, outputPath, codec string, target meeting.ExportTarget) []string {
	args := []string{"-i", intermediatePath}
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}
	args = append(args, videoCodecArgs(codec, target.Video)...)
	if target.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(target.Threads))
	}
	if audioPath != "" {
		args = append(args,
			"-c:a", "aac",
			"-b:a", "128k",
			"-shortest",
		)
	}
	args = append(args, "-movflags", "+faststart", "-y", outputPath)
	return args
}
