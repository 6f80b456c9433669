// Package nflog binds the kernel's NFLOG facility through libnetfilter_log.
//
// Packets matched by an iptables/nftables rule with a `log group N` target are
// copied by the kernel onto a NETLINK_NETFILTER socket. libnetfilter_log parses
// the datagrams read from that socket and invokes a callback once per logged
// packet. This package wraps that interaction so Go code only ever deals with
// a [Handler] receiving a [*Message] per logged packet.
//
// A [Queue] is built from a [Config]. It can then be driven in one of two ways:
//
//   - Blocking: [Queue.Recv] (or [Queue.Run]) reads one datagram at a time on
//     the calling goroutine, blocking in the kernel until data arrives.
//   - Readiness driven: [Queue.Socket] returns a [Socket] whose [Socket.Recv]
//     parks the goroutine on the runtime's network poller until the descriptor
//     is readable. It honours context cancellation.
//
// Either way every record contained in the datagram is handed to the handler
// synchronously, in the order the kernel emitted them, before the receive call
// returns. A [*Message] is only valid for the duration of the handler call: it
// borrows the receive buffer and accessing it afterwards panics with
// [ErrMessageExpired]. Use [Message.Record] to keep an owned copy around.
//
// The native library never sees Go pointers. Handlers are kept in a process
// wide slot table and C is handed an opaque integer identifying the slot.
//
// Bear in mind binding groups requires CAP_NET_ADMIN. Be sure to check
// libnetfilter_log's documentation [0] and the kernel's nfnetlink_log
// implementation [1] for further information.
//
// 0: https://netfilter.org/projects/libnetfilter_log/doxygen/html/
//
// 1: https://elixir.bootlin.com/linux/v6.12.4/source/net/netfilter/nfnetlink_log.c
package nflog
