package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/robolink/internal/protocol/codes"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "host":
		return hostTemplate, nil
	case "codes":
		return string(codes.DefaultSchema()), nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const hostTemplate = `# robolink host configuration
port = "/dev/ttyUSB0"
baud = 115200
read_timeout = "2ms"
read_chunk = 1024

# Backlog ceiling in bytes; reaching it applies overflow_policy.
buffer_ceiling = 2000
overflow_policy = "reset" # reset | keep_last_start

# Optional code schema shared with the firmware (.toml or .yaml).
# schema = "codes.toml"

http_addr = "127.0.0.1:9300"
cors_origins = ["http://localhost:3000"]
# Required as "Authorization: Bearer <token>" on /control when set.
# control_token = ""

pid_history = 128
odometry_front_offset = 0.235

reconnect_max_attempts = 0
backoff_initial = "250ms"
backoff_max = "5s"
`
