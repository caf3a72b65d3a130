package resumes

// Pipeline stages, in run order. Every stage is a potential terminal
// failure point; the stage name is surfaced to the caller on failure.
const (
	StagePreconditions  = "preconditions"
	StageUploadDocument = "upload-document"
	StageConvert        = "convert"
	StageUploadImage    = "upload-image"
	StagePrepare        = "prepare"
	StageAnalyzing      = "analyzing"
	StagePersist        = "persist"
)

// Record-level statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// StatusUpdate is one progress event surfaced to the caller while a run
// is in flight. PreviewPNG is set at most once, as soon as the page
// render exists, and is retained for display even when a later stage
// fails.
type StatusUpdate struct {
	Stage      string
	Message    string
	PreviewPNG []byte
}

// ProgressFunc receives status updates during a run. It is called from
// the running goroutine; implementations must not block for long.
type ProgressFunc func(StatusUpdate)

var stageMessages = map[string]string{
	StageUploadDocument: "Uploading the file...",
	StageConvert:        "Converting to image...",
	StageUploadImage:    "Uploading the image...",
	StagePrepare:        "Preparing data...",
	StageAnalyzing:      "Analyzing...",
	StagePersist:        "Saving the analysis...",
}
