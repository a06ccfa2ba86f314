/*
Package rollout implements the host-pool rollout control loop.

One run is a strict sequence with no fan-out:

	watcher → gate → materializer → deployment → desktop rename
	        → propagation delay → wave 1 → warmup → wave 2 → done

The gate makes a stale repository a successful no-op. The deployment is
create-or-update, so re-running with identical parameters never produces a
second pool. Both restart waves enumerate hosts fresh and issue exactly
one fire-and-forget restart per host; per-host failures are collected and
reported, never aborting the wave.

The pipeline owns the pool it creates for the duration of the run.
Concurrent runs against the same pool are not guarded against.
*/
package rollout
