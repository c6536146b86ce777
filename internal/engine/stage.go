package engine

// Stage is the current step of a recording task's lifecycle. A task moves
// through the stages strictly in order; any stage can jump straight to
// StageReleased on failure.
type Stage string

const (
	StageClaimed      Stage = "claimed"
	StageResolving    Stage = "resolving"
	StageRecording    Stage = "recording"
	StageValidating   Stage = "validating"
	StageDiscarded    Stage = "discarded"
	StageWatermarking Stage = "watermarking"
	StageUploading    Stage = "uploading"
	StagePersisting   Stage = "persisting"
	StageReleased     Stage = "released"
)
