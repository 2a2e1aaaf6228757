/*
Package workers sizes worker pools in containerized environments.

runtime.NumCPU reports the host's CPUs even when a cgroup limits the
container to a fraction of them. GOMAXPROCS follows the container limit
(Go 1.19+), so worker counts are derived from it:

	// 2 workers per available CPU, at most 8
	n := workers.ForIO(0, 8)

An operator-supplied count (SCAN_WORKERS) takes precedence:

	n := workers.ForIO(cfg.ScanWorkers, 8)

A Kubernetes pod limited to 2 CPUs gets GOMAXPROCS=2 and therefore
ForIO(0, 8) == 4 scan workers.
*/
package workers
