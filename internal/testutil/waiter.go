package testutil

// RecordingWaiter counts suspend transitions.
type RecordingWaiter struct {
	Begins int
	Ends   int
}

// Begin implements modifier.Waiter.
func (w *RecordingWaiter) Begin() { w.Begins++ }

// End implements modifier.Waiter.
func (w *RecordingWaiter) End() { w.Ends++ }

// Active reports whether a begin is outstanding.
func (w *RecordingWaiter) Active() bool {
	return w.Begins > w.Ends
}
