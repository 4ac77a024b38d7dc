package meeting

import (
	"testing"
)

func validInputs() JobInputs {
	return JobInputs{
		BackgroundPath: "bg.jpg",
		Speaker1Path:   "s1.mp4",
		Speaker2Path:   "s2.mp4",
		Speaker1Name:   "Alice",
		Speaker2Name:   "Bob",
		OutputPath:     "out.mp4",
	}
}

func TestJobInputs_Validate(t *testing.T) {
	in := validInputs()
	if err := in.Validate(); err != nil {
		t.Fatalf("expected valid inputs, got %v", err)
	}
}

func TestJobInputs_ValidateRejectsBadNames(t *testing.T) {
	tests := []struct {
		name        string
		speakerName string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"path breaking", "Ali<ce"},
		{"pipe", "Bob|Smith"},
		{"control character", "Ali\x00ce"},
		{"too long", string(make([]byte, 101))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInputs()
			in.Speaker1Name = tt.speakerName
			if err := in.Validate(); err == nil {
				t.Errorf("expected error for name %q", tt.speakerName)
			}
		})
	}
}

func TestJobInputs_ValidateRequiresPaths(t *testing.T) {
	in := validInputs()
	in.Speaker2Path = ""
	if err := in.Validate(); err == nil {
		t.Error("expected error for missing speaker path")
	}
}

func TestSpeakerLayout_ValidateAgainstOutput(t *testing.T) {
	layout := DefaultSpeakerLayout()
	if err := layout.Validate(1920, 1080); err != nil {
		t.Fatalf("default layout should fit 1920x1080: %v", err)
	}

	layout.Width = 2000
	if err := layout.Validate(1920, 1080); err == nil {
		t.Error("expected error when speaker box wider than output")
	}

	layout = DefaultSpeakerLayout()
	layout.Height = 1200
	if err := layout.Validate(1920, 1080); err == nil {
		t.Error("expected error when speaker box taller than output")
	}
}

func TestClampFontSize(t *testing.T) {
	tests := []struct {
		name          string
		speakerHeight int
		requested     int
		want          int
	}{
		{"within range", 300, 24, 24},
		{"below minimum", 300, 4, 12},
		{"above maximum", 300, 200, 45},
		{"tiny speaker uses floor", 100, 8, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampFontSize(tt.speakerHeight, tt.requested); got != tt.want {
				t.Errorf("ClampFontSize(%d, %d) = %d, want %d",
					tt.speakerHeight, tt.requested, got, tt.want)
			}
		})
	}
}

func TestClampPadding(t *testing.T) {
	tests := []struct {
		name         string
		outputHeight int
		requested    int
		want         int
	}{
		{"within range", 1080, 10, 10},
		{"below minimum", 1080, 1, 10},
		{"above limit", 1080, 80, 50},
		{"small output floor", 100, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampPadding(tt.outputHeight, tt.requested); got != tt.want {
				t.Errorf("ClampPadding(%d, %d) = %d, want %d",
					tt.outputHeight, tt.requested, got, tt.want)
			}
		})
	}
}

func TestExportTarget_Validate(t *testing.T) {
	target := DefaultExportTarget()
	if err := target.Validate(); err != nil {
		t.Fatalf("default target should validate: %v", err)
	}

	target.FPS = 240
	if err := target.Validate(); err == nil {
		t.Error("expected error for fps above 120")
	}

	target = DefaultExportTarget()
	target.Video.CRF = 52
	if err := target.Validate(); err == nil {
		t.Error("expected error for crf above 51")
	}

	target = DefaultExportTarget()
	target.Audio.Channels = 9
	if err := target.Validate(); err == nil {
		t.Error("expected error for more than 8 audio channels")
	}
}
