// Package status implements the per-prompt progress fabric: a Status record
// per prompt id, mutated by sparse patches, fanned out to live subscribers.
package status

import "time"

// StepStatus is the state of one pipeline step.
type StepStatus string

const (
	NotStarted StepStatus = "NOT_STARTED"
	InProgress StepStatus = "IN_PROGRESS"
	Done       StepStatus = "DONE"
	Failed     StepStatus = "FAILED"
)

// Language is a persona's preferred language.
type Language string

const (
	LanguageEN Language = "en"
	LanguageDE Language = "de"
)

// Role is the requesting user's role.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

// Preferences biases LLM prompt tone/length/depth; the core never mutates it.
type Preferences struct {
	AnswerLength    string `json:"answerLength,omitempty"`
	LanguageLevel   string `json:"languageLevel,omitempty"`
	ExpertiseLevel  string `json:"expertiseLevel,omitempty"`
	IncludePictures bool   `json:"includePictures,omitempty"`
}

// Persona carries the requesting user's profile into every LLM prompt.
type Persona struct {
	Language        Language    `json:"language"`
	Preferences     Preferences `json:"preferences"`
	EnrolledCourses []string    `json:"enrolledCourses,omitempty"`
	Role            Role        `json:"role"`
}

// PromptRequest is the immutable root of one pipeline run.
type PromptRequest struct {
	PromptID   string  `json:"promptId"`
	CourseID   string  `json:"courseId"`
	Prompt     string  `json:"prompt"`
	UserPersona Persona `json:"userPersona"`
}

// DocumentChunk is an opaque retrieval result item.
type DocumentChunk struct {
	Content []string           `json:"content"`
	Images  []DocumentImage    `json:"images,omitempty"`
	Score   float64            `json:"score"`
}

// DocumentImage is an image attached to a retrieved chunk.
type DocumentImage struct {
	ImageBase64 string `json:"imageBase64"`
	Description string `json:"description"`
}

// LectureAsset is an image or other binary referenced by a lecture script.
type LectureAsset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
	Data        string `json:"data"` // base64
}

// LectureScript is produced once per prompt and feeds slide structuring and narration.
type LectureScript struct {
	Text   string         `json:"text"`
	Assets []LectureAsset `json:"assets,omitempty"`
}

// SlideDraft is one self-contained chunk of the lecture script tagged with a layout.
type SlideDraft struct {
	Index      int    `json:"index"`
	Content    string `json:"content"`
	LayoutName string `json:"layoutName"`
}

// SlideStructure is the ordered sequence of slide drafts for a prompt.
type SlideStructure struct {
	Pages []SlideDraft `json:"pages"`
}

// AvatarElementStatus tracks audio/video rendering progress for one slide.
type AvatarElementStatus struct {
	Audio StepStatus `json:"audio"`
	Video StepStatus `json:"video"`
}

// Status is the per-prompt aggregate progress record.
type Status struct {
	StepUnderstanding            StepStatus            `json:"stepUnderstanding"`
	StepLookup                   StepStatus            `json:"stepLookup"`
	StepLectureScriptGeneration  StepStatus            `json:"stepLectureScriptGeneration"`
	StepSlideStructureGeneration StepStatus            `json:"stepSlideStructureGeneration"`
	StepSlideGeneration          int                   `json:"stepSlideGeneration"`
	StepSlidePostprocessing      StepStatus            `json:"stepSlidePostprocessing"`
	StepsAvatarGeneration        []AvatarElementStatus `json:"stepsAvatarGeneration"`
	LectureSummary               *string               `json:"lectureSummary,omitempty"`
	SlideStructure                *SlideStructure       `json:"slideStructure,omitempty"`
}

// InitialStatus returns the Status of a prompt id that has never been
// observed: every step NOT_STARTED, no avatar slots, no summary or structure.
func InitialStatus() Status {
	return Status{
		StepUnderstanding:            NotStarted,
		StepLookup:                   NotStarted,
		StepLectureScriptGeneration:  NotStarted,
		StepSlideStructureGeneration: NotStarted,
		StepSlideGeneration:          0,
		StepSlidePostprocessing:      NotStarted,
		StepsAvatarGeneration:        []AvatarElementStatus{},
	}
}

// StatusPatch is a sparse update; nil/zero-value fields mean "unchanged"
// except where noted. Pointer and map fields distinguish "absent" from
// "present but zero".
type StatusPatch struct {
	StepUnderstanding            *StepStatus `json:"stepUnderstanding,omitempty"`
	StepLookup                   *StepStatus `json:"stepLookup,omitempty"`
	StepLectureScriptGeneration  *StepStatus `json:"stepLectureScriptGeneration,omitempty"`
	StepSlideStructureGeneration *StepStatus `json:"stepSlideStructureGeneration,omitempty"`
	StepSlideGeneration          *int        `json:"stepSlideGeneration,omitempty"`
	StepSlidePostprocessing      *StepStatus `json:"stepSlidePostprocessing,omitempty"`
	// StepsAvatarGeneration is keyed by stringified slide index so a single
	// slide's slot can be patched without transmitting the whole list.
	StepsAvatarGeneration map[string]AvatarElementStatus `json:"stepsAvatarGeneration,omitempty"`
	LectureSummary        *string                        `json:"lectureSummary,omitempty"`
	SlideStructure        *SlideStructure                `json:"slideStructure,omitempty"`
}

// entry is the store's bookkeeping wrapper around a Status.
type entry struct {
	status      Status
	lastUpdated time.Time
}
