// Package config resolves the scheduler's tunables from command-line
// flags and the JQS_ROOT environment variable, with flags taking
// precedence — the same override order as
// ompp/config.New's "command line arguments take precedence over
// ini-file", adapted from an ini file to a single environment variable
// since this project has no configuration file of its own (spec §4:
// all persistent state is the job store itself).
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

const (
	// EnvRoot names the environment variable read when -root is not
	// given on the command line.
	EnvRoot = "JQS_ROOT"

	// DefaultTick is T_tick from spec §4.6.
	DefaultTick = time.Second
	// DefaultKillGrace is T_kill_grace from spec §4.6.
	DefaultKillGrace = 10 * time.Second
	// DefaultCgroupRoot is where the scheduler creates one cgroup v2
	// leaf per running job.
	DefaultCgroupRoot = "/sys/fs/cgroup/jqs"
)

// Scheduler holds the resolved tunables for the scheduler subcommand.
type Scheduler struct {
	Root       string
	Tick       time.Duration
	KillGrace  time.Duration
	CgroupRoot string
}

// ResolveRoot returns flagRoot if set, else EnvRoot, else
// $HOME/jqs (spec §6: "JQS_ROOT may override the root directory;
// defaults to $HOME/jqs").
func ResolveRoot(flagRoot string) (string, error) {
	if flagRoot != "" {
		return flagRoot, nil
	}
	if v := os.Getenv(EnvRoot); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory for default store root")
	}
	return filepath.Join(home, "jqs"), nil
}
