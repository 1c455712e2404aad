package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"jqs/internal/directive"
	"jqs/internal/jobfile"
)

var submitCmd = &cobra.Command{
	Use:   "submit <script>",
	Short: "Parse a script's #JS directives, assign a jobid, and enqueue it",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubmit,
}

func runSubmit(cmd *cobra.Command, args []string) error {
	scriptPath, err := filepath.Abs(args[0])
	if err != nil {
		return withExit(3, err)
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return withExit(3, err)
	}

	req, err := directive.ParseFile(scriptPath)
	if err != nil {
		var bad *directive.BadDirective
		if errors.As(err, &bad) {
			return err // exitCodeFor maps *directive.BadDirective to 2
		}
		return withExit(3, err)
	}

	s, err := openStore()
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return withExit(3, err)
	}

	workdir := req.Workdir
	if workdir == "" {
		workdir = cwd
	} else if !filepath.IsAbs(workdir) {
		workdir = filepath.Join(cwd, workdir)
	}

	name := req.Name
	if name == "" {
		name = filepath.Base(scriptPath)
	}
	cores := req.Cores
	if cores == 0 {
		cores = 1
	}
	memMB := req.MemMB
	if memMB == 0 {
		memMB = 512
	}
	stdout := req.Stdout
	if stdout == "" {
		stdout = filepath.Join(workdir, fmt.Sprintf("%s.out", name))
	} else if !filepath.IsAbs(stdout) {
		stdout = filepath.Join(workdir, stdout)
	}
	stderr := req.Stderr
	if stderr == "" {
		stderr = filepath.Join(workdir, fmt.Sprintf("%s.err", name))
	} else if !filepath.IsAbs(stderr) {
		stderr = filepath.Join(workdir, stderr)
	}

	jobid, err := s.NewJobID()
	if err != nil {
		return withExit(3, err)
	}

	submit := time.Now().Unix()
	job := &jobfile.Job{
		JobID:        jobid,
		Name:         name,
		ScriptPath:   scriptPath,
		Workdir:      workdir,
		Cores:        cores,
		MemMB:        memMB,
		StdoutPath:   stdout,
		StderrPath:   stderr,
		TimeLimitSec: req.TimeLimitSec,
		SubmitTime:   &submit,
	}
	if err := s.Enqueue(job); err != nil {
		return withExit(3, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), jobid)
	return nil
}
