/*
Package cache provides payload caches for the fan-out stage.

A cache sits between the coordinator and the sources: fetches whose
policy grants a cache lifetime are answered from here when a fresh
copy exists, and stored here after a live fetch. Policies that demand
real-time data bypass the cache entirely, so a cache never has to
distinguish the two cases.

Two backends are available: an in-process memory cache and a shared
Redis cache for multi-instance deployments. Both return a miss as
(nil, nil); errors are reserved for backend failures, which the
coordinator treats as misses rather than request failures.
*/
package cache
