// Package governor implements the Resource Governor migration workflow: it
// gates on server version and edition, replays server-wide settings, copies
// resource pools with their workload groups between two server sessions, and
// triggers the final reconfigure, honoring force and dry-run semantics.
package governor
