package runner

const (
	// TracerName is the OpenTelemetry tracer used for profile and batch spans
	TracerName = "citest runner"

	// DefaultIdentifier is used when no test name is configured
	DefaultIdentifier = "citest"

	// summaryFilePerm is the permission of the persisted summary file
	summaryFilePerm = 0644

	// summaryIndent is the indentation of the persisted summary JSON
	summaryIndent = "  "
)
