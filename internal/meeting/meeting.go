// Package meeting defines the domain value types for a composition job:
// the input file set, the speaker layout, and the export target. All types
// are plain values validated up front; the pipeline never mutates them.
package meeting

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Static errors for input validation.
var (
	// ErrEmptyPath is returned when a required file path is empty.
	ErrEmptyPath = errors.New("meeting: file path must not be empty")
	// ErrInvalidName is returned when a speaker name is empty, too long,
	// or contains forbidden characters.
	ErrInvalidName = errors.New("meeting: invalid speaker name")
)

// forbiddenNameChars are characters that would break file paths or shell
// handling when the name ends up embedded in artifact names.
const forbiddenNameChars = `<>:"|?*`

// JobInputs identifies the source material and destination for one
// composition job.
type JobInputs struct {
	// BackgroundPath is the still image used as the meeting backdrop.
	BackgroundPath string `yaml:"background" validate:"required"`
	// Speaker1Path and Speaker2Path are the two speaker video files.
	Speaker1Path string `yaml:"speaker1" validate:"required"`
	Speaker2Path string `yaml:"speaker2" validate:"required"`
	// Speaker1Name and Speaker2Name are the display names rendered on the
	// name plates. 1-100 characters, no control or path-breaking characters.
	Speaker1Name string `yaml:"speaker1_name" validate:"required,min=1,max=100"`
	Speaker2Name string `yaml:"speaker2_name" validate:"required,min=1,max=100"`
	// OutputPath is where the final video is written.
	OutputPath string `yaml:"output" validate:"required"`
}

// Validate checks paths and names. It uses struct tags for presence/length
// and a custom check for forbidden characters.
func (in *JobInputs) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("meeting: %w", err)
	}
	for _, name := range []string{in.Speaker1Name, in.Speaker2Name} {
		if err := validateSpeakerName(name); err != nil {
			return err
		}
	}
	return nil
}

// validateSpeakerName rejects names with control characters or characters
// that are unsafe in file names.
func validateSpeakerName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.ContainsAny(trimmed, forbiddenNameChars) {
		return fmt.Errorf("%w: %q contains a forbidden character", ErrInvalidName, name)
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains a control character", ErrInvalidName, name)
		}
	}
	return nil
}

// validate is the shared validator instance for this package. Validator
// instances cache struct metadata, so a single instance is reused.
var validate = validator.New()
