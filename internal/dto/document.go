package dto

// Upload outcome statuses. A failed file never aborts its batch; callers
// aggregate per-file results and continue with the remaining set.
const (
	UploadStatusSuccess  = "success"
	UploadStatusFailed   = "failed"
	UploadStatusNotFound = "not_found"
)

// TemplateUpload is one file in a template batch. When ExistingFileID is set
// and Content is empty, the orchestrator copies the existing remote item
// into the destination instead of uploading.
type TemplateUpload struct {
	FileName       string
	Content        []byte
	ExistingFileID string
}

// TemplateUploadResult is the per-file outcome of a batch upload.
type TemplateUploadResult struct {
	FileName string `json:"file_name"`
	Status   string `json:"status"`
	FileID   string `json:"file_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// AnswerUploadResponse reports a stored client submission.
type AnswerUploadResponse struct {
	FileName string `json:"file_name"`
	FileID   string `json:"file_id"`
}
