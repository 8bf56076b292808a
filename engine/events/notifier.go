package events

// Notice kinds published on the technical channel.
const (
	NoticeStep             = "step"
	NoticeIntentUnresolved = "intent_unresolved"
	NoticeRejected         = "command_rejected"
	NoticeVetoed           = "command_vetoed"
	NoticeReplayLoaded     = "replay_loaded"
)

// Notice is a non-authoritative step-boundary notification.
type Notice struct {
	Kind        string
	Step        int
	Status      string
	CommandType string
	Detail      string
}

// Listener observes notices. Listeners run synchronously.
type Listener func(Notice)

// Notifier fans notices out to listeners. Nothing it carries is logged or
// replayed.
type Notifier struct {
	listeners []Listener
}

// Listen registers a listener.
func (n *Notifier) Listen(l Listener) {
	n.listeners = append(n.listeners, l)
}

// Notify calls every listener in registration order.
func (n *Notifier) Notify(notice Notice) {
	for _, l := range n.listeners {
		l(notice)
	}
}
