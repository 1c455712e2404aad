// Package sysinfo auto-detects the host's CPU core count and total
// physical memory, used to seed limits.json on first run if the
// operator has not already written one. Structurally ported from
// azcopy's common/sysinfo_linux.go, which solves the identical
// /proc/meminfo-parsing problem on the same OS.
package sysinfo

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// NumCores returns the number of usable CPU cores.
func NumCores() int {
	return runtime.NumCPU()
}

// TotalMemMB returns total physical memory in megabytes, parsed from
// /proc/meminfo's MemTotal line.
func TotalMemMB() (int, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, fmt.Errorf("open /proc/meminfo: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "MemTotal") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return 0, fmt.Errorf("unexpected MemTotal line %q", line)
		}
		if fields[2] != "kB" {
			return 0, fmt.Errorf("unexpected MemTotal unit %q", fields[2])
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, fmt.Errorf("parse MemTotal value %q: %w", fields[1], err)
		}
		return kb / 1024, nil
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan /proc/meminfo: %w", err)
	}

	var uts unix.Utsname
	_ = unix.Uname(&uts)
	return 0, fmt.Errorf("MemTotal not found in /proc/meminfo, kernel: %s", charsToString(uts.Release[:]))
}

func charsToString(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}
