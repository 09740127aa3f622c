package relay

// Drop reasons reported to the Observer.
const (
	DropMalformed     = "malformed"
	DropUnknownType   = "unknown_type"
	DropMissingTarget = "missing_target"
	DropSlowConsumer  = "slow_consumer"
	DropPublishFailed = "publish_failed"
)

// Observer is notified of session and message events, e.g. for metrics.
type Observer interface {
	SessionOpened(roomID string)
	SessionClosed(roomID string)
	AdmissionRejected(reason string)
	MessageRouted(msgType string)
	MessageDropped(reason string)
}

type nopObserver struct{}

func (nopObserver) SessionOpened(string)     {}
func (nopObserver) SessionClosed(string)     {}
func (nopObserver) AdmissionRejected(string) {}
func (nopObserver) MessageRouted(string)     {}
func (nopObserver) MessageDropped(string)    {}
