package nn

import (
	"fmt"
	"path/filepath"
)

// Stage names one of the four transcription sub-models.
type Stage string

const (
	StageContour     Stage = "contour"
	StageNote        Stage = "note"
	StageOnsetInput  Stage = "onset_input"
	StageOnsetOutput Stage = "onset_output"
)

// Stages lists the sub-models in evaluation order.
func Stages() []Stage {
	return []Stage{StageContour, StageNote, StageOnsetInput, StageOnsetOutput}
}

// DefaultModelFiles maps each stage to its weight file name.
func DefaultModelFiles() map[Stage]string {
	return map[Stage]string{
		StageContour:     "cnn_contour_model.json",
		StageNote:        "cnn_note_model.json",
		StageOnsetInput:  "cnn_onset_1_model.json",
		StageOnsetOutput: "cnn_onset_2_model.json",
	}
}

// LoadStage loads the weight file for stage from dir. files overrides the
// default file names; nil uses DefaultModelFiles.
func LoadStage(dir string, stage Stage, files map[Stage]string, opts ...Option) (*Graph, error) {
	if files == nil {
		files = DefaultModelFiles()
	}

	file, ok := files[stage]
	if !ok {
		return nil, fmt.Errorf("%w: no weight file for stage %q", ErrWeightLoad, stage)
	}

	return Load(string(stage), filepath.Join(dir, file), opts...)
}
