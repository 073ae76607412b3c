// Package notify connects the inventory cache to a NATS bus.
//
// A Listener subscribes to the refresh subject. Plain messages start a
// background refresh; requests (messages with a reply subject) wait for
// the coalesced refresh and are answered with a RefreshReply.
//
// A Publisher announces every newly published snapshot on the update
// subject as an InventoryUpdate event, so consumers can re-read the
// inventory instead of polling. Its Hook method plugs into the refresher's
// publish hooks.
package notify
