// Package config handles host configuration and state paths for shadowctl.
//
// Configuration is read from <state-dir>/config.toml (default ~/.shadow).
// The file is optional; every field has a working default:
//
//	image = "shadow-env:local"
//	runtime = "podman"          # or "docker"; empty auto-detects
//	memory_limit = "4g"
//	pids_limit = 256
//	snapshot_workers = 4
//	host_ready_timeout = "60s"
//	exec_timeout = "5m"
//	state_dir = "/var/lib/shadow"
//
// The package also owns environment-name validation (container name rules)
// and the environment directory layout under the state dir.
package config
