package config

import (
	"fmt"
	"os"
)

// exampleTOML is the commented starting configuration written by
// --generate-config.
const exampleTOML = `[server]
ip = "127.0.0.1"        # listen address
port = 11451            # TCP port for both the NFS and MOUNT programs
log_level = "error"     # trace | debug | info | warn | error
verbose = false         # true forces log_level = "debug"
read_only = false       # true refuses every write on every mount
max_connections = 100   # concurrent clients; extra connections are rejected
read_timeout = "30s"    # per-request read deadline
write_timeout = "30s"   # per-reply write deadline
allow_ips = []          # bare IPs or CIDRs; empty allows everyone
pid_file = ""           # optional pid file, removed at shutdown
work_dir = ""           # optional working directory change before serving

# Each [[mounts]] block exposes one local directory inside the exported
# tree. Targets may nest; the longest target prefix wins.

[[mounts]]
source = "/srv/data"
target = "/data"
read_only = false
description = "primary data"

# [[mounts]]
# source = "/var/log"
# target = "/logs"
# read_only = true
# description = "logs, read-only"
`

// WriteExample writes the example configuration to path. It refuses to
// overwrite an existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.WriteFile(path, []byte(exampleTOML), 0644); err != nil {
		return fmt.Errorf("write example config: %w", err)
	}
	return nil
}
