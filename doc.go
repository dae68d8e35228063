// Package cooptask schedules resumable tasks across two execution backends.
//
// A task is a step-sequence: an iter.Seq[Instruction] that yields once per
// step. Each task is owned by exactly one backend at a time:
//
//   - Cooperative: one step per Scheduler.Tick, all on the goroutine calling
//     Tick (the cooperative thread). Nothing here ever blocks that goroutine.
//   - Background: a dedicated worker goroutine runs steps back to back.
//
// A task moves between backends by yielding ToBackground or ToCooperative,
// pauses with Wait(d), and requests its own abort with AbortNow.
//
// # Quick Start
//
// Initialize the global scheduler at application startup:
//
//	cooptask.InitGlobalScheduler(16 * time.Millisecond)
//	defer cooptask.ShutdownGlobalScheduler()
//
// Schedule work:
//
//	t, _ := cooptask.RunSteps(func(yield func(cooptask.Instruction) bool) {
//		if !yield(cooptask.ToBackground) {
//			return // aborted
//		}
//		data := loadFromDisk()
//		if !yield(cooptask.ToCooperative) {
//			return
//		}
//		apply(data)
//	}, cooptask.Cooperative)
//
//	t.OnComplete(func(*cooptask.Task) { fmt.Println("done") })
//
// # Key Concepts
//
// Scheduler: owns a TaskRegistry, a CooperativeScheduler and a
// BackgroundWorkerPool. Schedulers are independent values; the global one is
// only a convenience.
//
// TickDriver: a goroutine that calls Tick at a fixed interval, making that
// goroutine the cooperative thread.
//
// Listeners: Complete and Aborted are one-shot ListenerSets. They always run
// on the cooperative thread, inside Tick, even for background tasks.
//
// # Abort
//
// Task.Abort only requests cancellation. The owning backend finalizes the
// task as Aborted later; a sequence parked in yield sees yield return false
// and should clean up and return.
package cooptask
