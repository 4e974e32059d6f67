// Package timer drives a periodic interrupt from an 8-bit compare-match
// counter, such as AVR Timer0 in CTC mode.
//
// [Period] converts a period in microseconds to a clock prescaler and an
// 8-bit compare value. [Timer] programs a [Counter] with it and dispatches
// the compare-match interrupt to a user handler. [Ticker] is a Counter
// backed by [time.Ticker] for running on a host.
//
// Foreground loops use the timer to poll state that interrupt handlers
// publish, for example a flag set by a slave receive callback:
//
//	tk := timer.NewTicker(16_000_000)
//	t := timer.New(tk, 16_000_000)
//	tk.Attach(t.HandleInterrupt)
//	t.Initialize(10_000)
//	t.AttachInterrupt(poll, 0)
//	defer tk.Close()
package timer
