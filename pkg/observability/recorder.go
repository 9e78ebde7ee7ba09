package observability

import "time"

// Recorder receives the service metrics. Prometheus backs it on servers and
// CloudWatch in Lambda.
type Recorder interface {
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
	ObserveFetch(diagramType string, duration time.Duration, err error)
	ObserveCompile(diagramType string, nodes, droppedEdges int, duration time.Duration)
	ObserveRender(duration time.Duration, err error)
	IncClick(outcome string)
	IncStaleCompletion(stage string)
	IncMutation(kind string)
	SetActiveCanvases(n int)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) ObserveHTTPRequest(string, string, int, time.Duration) {}
func (NopRecorder) ObserveFetch(string, time.Duration, error) {}
func (NopRecorder) ObserveCompile(string, int, int, time.Duration) {}
func (NopRecorder) ObserveRender(time.Duration, error) {}
func (NopRecorder) IncClick(string) {}
func (NopRecorder) IncStaleCompletion(string) {}
func (NopRecorder) IncMutation(string) {}
func (NopRecorder) SetActiveCanvases(int) {}

func statusLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
