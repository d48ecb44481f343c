package status

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ParseWireless extracts the signal level in dBm for iface from the
// contents of /proc/net/wireless. An empty iface matches the first
// interface listed.
func ParseWireless(r io.Reader, iface string) (int, bool) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if iface != "" && name != iface {
			continue
		}
		// status, link, level, noise, ...
		fields := strings.Fields(rest)
		if len(fields) < 3 {
			continue
		}
		level, err := strconv.ParseFloat(strings.TrimSuffix(fields[2], "."), 64)
		if err != nil {
			continue
		}
		return int(level), true
	}
	return 0, false
}
