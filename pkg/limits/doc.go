/*
Package limits enforces per-agent request quotas.

Each agent gets a sliding-window request budget, checked before any
source is contacted. Windows are bucketed counters rather than fixed
intervals, so an agent cannot double its effective rate by straddling
a window boundary.

The Manager keeps live windows in memory and snapshots them through a
storage backend so quotas survive a restart. Storage failures degrade
to in-memory enforcement rather than failing requests.
*/
package limits
