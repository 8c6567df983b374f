package hermes

const (
	SubjectRefreshRequest   = "tariffindex.refresh.request"
	SubjectRefreshCompleted = "tariffindex.refresh.completed"
	SubjectRefreshFailed    = "tariffindex.refresh.failed"

	StreamName   = "TARIFFINDEX_EVENTS"
	StreamMaxAge = "2160h" // 90 days
)

func SubjectIndexComputed(kind string) string { return "tariffindex.index." + kind + ".computed" }
func SubjectIndexFailed(kind string) string   { return "tariffindex.index." + kind + ".failed" }
