package network

import "context"

// PartUploader uploads and finalizes a single part.
type PartUploader interface {
	UploadPart(ctx context.Context, part *FilePart, creds Credentials, sink ProgressSink) (string, error)
}

// ManifestSubmitter publishes finalized parts as one work.
type ManifestSubmitter interface {
	Submit(ctx context.Context, creds Credentials, parts []*FilePart, metadata Metadata) (SubmitResult, error)
}
