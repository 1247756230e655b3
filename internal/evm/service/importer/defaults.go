package importer

const (
	// DefaultSuffix matches the archives produced by the exporter.
	DefaultSuffix = ".tar.gz"

	defaultSourceDir    = "source"
	defaultProcessedDir = "processed"
	defaultFailedDir    = "failed"
)
