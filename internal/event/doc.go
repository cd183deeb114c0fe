// Package event delivers change notifications from the suggestion engine to
// observers.
//
// Two event families exist:
//
//	StatusEvent - a change moved to Accepted or Rejected
//	StoreEvent  - the set of tracked changes was updated
//
// A Notifier fans an event out to every subscribed observer. Delivery is
// synchronous by default; WithAsync moves delivery to a single goroutine fed
// by a buffered channel, preserving publish order.
package event
