package config

type WorkerKeyStruct struct {
	PersistAnswersQueue      string
	PersistDistractionsQueue string
	PersistScoresQueue       string
	CaptureUploadQueue       string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue:      "persist_answers_queue",
	PersistDistractionsQueue: "persist_distractions_queue",
	PersistScoresQueue:       "persist_scores_queue",
	CaptureUploadQueue:       "capture_upload_queue",
}
