package api

import "encoding/json"

// Voice is a text-to-speech voice offered by the backend.
type Voice struct {
	ID          string            `json:"id" yaml:"id"`
	VoiceID     string            `json:"voice_id" yaml:"voice_id"`
	Name        string            `json:"name" yaml:"name"`
	Category    string            `json:"category,omitempty" yaml:"category,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	PreviewURL  string            `json:"preview_url,omitempty" yaml:"preview_url,omitempty"`
}

type VoicePreview struct {
	AudioURL string  `json:"audio_url" yaml:"audio_url"`
	Duration float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
	VoiceID  string  `json:"voice_id" yaml:"voice_id"`
}

// Video is a narrated video owned by the signed-in user.
type Video struct {
	ID               int64  `json:"id" yaml:"id"`
	OriginalFilename string `json:"original_filename" yaml:"original_filename"`
	StorageURL       string `json:"storage_url,omitempty" yaml:"storage_url,omitempty"`
	FileSize         int64  `json:"file_size,omitempty" yaml:"file_size,omitempty"`
	Status           string `json:"status" yaml:"status"`
	CreatedAt        string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	CompletedAt      string `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

type SocialAccount struct {
	ID          int64  `json:"id" yaml:"id"`
	Platform    string `json:"platform" yaml:"platform"`
	Username    string `json:"username,omitempty" yaml:"username,omitempty"`
	PictureURL  string `json:"picture_url,omitempty" yaml:"picture_url,omitempty"`
	ConnectedAt string `json:"connected_at,omitempty" yaml:"connected_at,omitempty"`
}

// ScriptRequest asks the backend to write a reel script for a topic.
type ScriptRequest struct {
	Topic    string `json:"topic"`
	Style    string `json:"style,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

// ReelScript is the generated script. Its scene structure is owned by the
// backend and passed back verbatim to CreateReel.
type ReelScript struct {
	Status string          `json:"status"`
	Script json.RawMessage `json:"script"`
}

type ReelRequest struct {
	Script  json.RawMessage `json:"script"`
	VoiceID string          `json:"voice_id,omitempty"`
	BgMusic string          `json:"bg_music,omitempty"`
}

// AnalyzeOptions are the narration settings sent alongside an uploaded video.
type AnalyzeOptions struct {
	Style           string
	Pace            string
	VoiceID         string
	Stability       *float64
	SimilarityBoost *float64
	Speed           *float64
	OriginalVolume  float64
}

type Beat struct {
	ID            int      `json:"id" yaml:"id"`
	StartS        float64  `json:"start_s" yaml:"start_s"`
	EndS          float64  `json:"end_s" yaml:"end_s"`
	VisualSummary string   `json:"visual_summary,omitempty" yaml:"visual_summary,omitempty"`
	KeyVisuals    []string `json:"key_visuals,omitempty" yaml:"key_visuals,omitempty"`
	Voiceover     struct {
		Script string `json:"script,omitempty" yaml:"script,omitempty"`
	} `json:"voiceover" yaml:"voiceover"`
}

type Analysis struct {
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	Overall  struct {
		Hook               string `json:"hook,omitempty" yaml:"hook,omitempty"`
		OneSentenceSummary string `json:"one_sentence_summary,omitempty" yaml:"one_sentence_summary,omitempty"`
		Tone               string `json:"tone,omitempty" yaml:"tone,omitempty"`
	} `json:"overall" yaml:"overall"`
	Beats []Beat `json:"beats" yaml:"beats"`
}

// AnalysisResult is returned by /analyze once the narrated video is ready.
type AnalysisResult struct {
	Status      string   `json:"status" yaml:"status"`
	OutputVideo string   `json:"output_video,omitempty" yaml:"output_video,omitempty"`
	StorageURL  string   `json:"storage_url,omitempty" yaml:"storage_url,omitempty"`
	Analysis    Analysis `json:"analysis" yaml:"analysis"`
}
