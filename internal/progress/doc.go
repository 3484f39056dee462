// Package progress draws a single-line "working..." animation on a
// terminal while a blocking call runs. It carries no state that affects
// results; Stop always returns within a bounded wait.
package progress
