// Package memory keeps the server inside its container memory limit.
//
// Go detects CPU limits through GOMAXPROCS but not memory limits, so
// [ConfigureLimit] derives GOMEMLIMIT from MEMORY_LIMIT (bytes, usually
// injected with the Kubernetes Downward API) and MEMORY_RATIO (default 0.75).
// An explicit GOMEMLIMIT always wins. The remainder of the container limit
// is left for ffprobe and ffmpeg, which run as child processes.
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//
// [Monitor] samples heap usage and provides backpressure: scan workers call
// [Monitor.Wait] before each file, which blocks while usage is above
// Config.PauseAt and releases once it drops below Config.ResumeAt. With no
// limit configured the monitor never pauses.
//
// Exported metrics: mytube_memory_usage_ratio, mytube_memory_paused and
// mytube_memory_pauses_total.
package memory
