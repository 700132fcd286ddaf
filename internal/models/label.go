package models

import "time"

// Emotion is the fixed label taxonomy shown to labelers.
type Emotion string

const (
	EmotionAnger     Emotion = "Anger"
	EmotionSadness   Emotion = "Sadness"
	EmotionHappiness Emotion = "Happiness"
	EmotionFear      Emotion = "Fear"
	EmotionNone      Emotion = "None"
)

// EmotionOptions lists the selectable emotions in display order.
var EmotionOptions = []Emotion{
	EmotionAnger,
	EmotionSadness,
	EmotionHappiness,
	EmotionFear,
	EmotionNone,
}

// Valid reports whether e is one of the fixed options.
func (e Emotion) Valid() bool {
	switch e {
	case EmotionAnger, EmotionSadness, EmotionHappiness, EmotionFear, EmotionNone:
		return true
	}
	return false
}

// LabelingMode selects which label fields a deployment collects.
type LabelingMode string

const (
	// ModeEmotion collects the emotion plus the irrelevance flag.
	ModeEmotion LabelingMode = "emotion"
	// ModeAspect additionally requires an aspect-term target span.
	ModeAspect LabelingMode = "aspect"
	// ModeTriage additionally collects the urgency flag.
	ModeTriage LabelingMode = "triage"
)

func (m LabelingMode) Valid() bool {
	switch m {
	case ModeEmotion, ModeAspect, ModeTriage:
		return true
	}
	return false
}

// LabelRecord is one persisted annotation result.
type LabelRecord struct {
	ID         int64     `json:"id" db:"id"`
	Author     string    `json:"author" db:"author"`
	RowIndex   int       `json:"row_index" db:"row_index"`
	MessageID  int64     `json:"message_id" db:"message_id"`
	Text       string    `json:"text" db:"text"`
	Source     string    `json:"source" db:"source"`
	Emotion    Emotion   `json:"emotion" db:"emotion"`
	Target     string    `json:"target,omitempty" db:"target"`
	Urgent     bool      `json:"urgent" db:"urgent"`
	Irrelevant bool      `json:"irrelevant" db:"irrelevant"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// FormDefaults are the reset values the presentation layer uses to
// re-initialize the label form after an accepted submission.
type FormDefaults struct {
	Emotion    Emotion `json:"emotion"`
	Target     string  `json:"target"`
	Urgent     bool    `json:"urgent"`
	Irrelevant bool    `json:"irrelevant"`
}

// NeutralFormDefaults returns the unlabeled form state.
func NeutralFormDefaults() FormDefaults {
	return FormDefaults{Emotion: EmotionNone}
}

// LabelFields are the user-supplied parts of a submission. Target is an
// opaque span captured by the front end and stored uninterpreted.
type LabelFields struct {
	Emotion    Emotion `json:"emotion"`
	Target     string  `json:"target"`
	Urgent     bool    `json:"urgent"`
	Irrelevant bool    `json:"irrelevant"`
}

// ValidateLabelFields checks f against the schema for mode.
func ValidateLabelFields(mode LabelingMode, f LabelFields) error {
	if !f.Emotion.Valid() {
		return &LabelSchemaError{Field: "emotion", Reason: "must be one of Anger, Sadness, Happiness, Fear, None"}
	}
	if mode == ModeAspect && !f.Irrelevant && f.Emotion != EmotionNone && f.Target == "" {
		return &LabelSchemaError{Field: "target", Reason: "aspect mode requires a target span for emotional rows"}
	}
	if mode != ModeAspect && f.Target != "" {
		return &LabelSchemaError{Field: "target", Reason: "target spans are only collected in aspect mode"}
	}
	if mode != ModeTriage && f.Urgent {
		return &LabelSchemaError{Field: "urgent", Reason: "urgency flags are only collected in triage mode"}
	}
	return nil
}

// LabelSchemaError describes a label field that violates the configured schema.
type LabelSchemaError struct {
	Field  string
	Reason string
}

func (e *LabelSchemaError) Error() string {
	return "invalid label field " + e.Field + ": " + e.Reason
}
