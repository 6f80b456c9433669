package types

// Service is a long-running component started alongside the NFLOG queues,
// such as the metrics endpoint or the HTTP API.
type Service interface {
	Run(<-chan struct{})
	Cleanup() error
	String() string
}
