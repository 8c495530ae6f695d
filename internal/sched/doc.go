// Package sched provides the refined-sleep loop substrate and the notifier's
// trigger-time arithmetic.
//
// Long waits are split into short quanta so SIGTERM response stays bounded
// and host suspension cannot skew a single long sleep. Deadlines are
// calendar-based ("next trigger at 16:30 local"), so the wall clock is
// re-read at every quantum instead of trusting one monotonic timer.
package sched
