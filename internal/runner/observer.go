package runner

// Observer receives progress events while a run executes. Calls happen on the
// runner's goroutine, in order.
type Observer interface {
	RunStarted(target string)
	WaitingForServer()
	ServerReady()
	ServerNotReady(err error)
	CheckStarted(name string)
	CheckFinished(result Result)
	RunFinished(summary *Summary)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) RunStarted(string)    {}
func (NopObserver) WaitingForServer()    {}
func (NopObserver) ServerReady()         {}
func (NopObserver) ServerNotReady(error) {}
func (NopObserver) CheckStarted(string)  {}
func (NopObserver) CheckFinished(Result) {}
func (NopObserver) RunFinished(*Summary) {}
