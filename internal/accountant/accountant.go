// Package accountant tracks total vs. in-use CPU cores and memory and
// gates job admission against them (spec §4.4). Its persisted state is
// limits.json (operator-set, re-read every tick) and usage.json
// (accountant-owned), both under the Store root.
package accountant

import (
	"path/filepath"

	"jqs/internal/fsutil"
	"jqs/internal/jqslog"
)

// Limits is the operator-configured total resource budget.
type Limits struct {
	CoresTotal int `json:"cores_total"`
	MemMBTotal int `json:"mem_mb_total"`
}

// Usage is the accountant-owned in-use resource count.
type Usage struct {
	CoresUsed int `json:"cores_used"`
	MemMBUsed int `json:"mem_mb_used"`
}

// Request is the subset of a job's resource request the accountant
// cares about.
type Request struct {
	Cores int
	MemMB int
}

// Accountant is grounded on oms/runJob.go's selectJobFromQueue resource
// comparison (ComputeRes{Cpu, Mem} vs. available), generalized from the
// teacher's in-memory RunCatalog fields into explicit, file-persisted
// totals so any process (scheduler, CLI) can construct one against the
// same root.
type Accountant struct {
	root   string
	Limits Limits
	Usage  Usage
}

// New constructs an Accountant for root without touching the filesystem;
// call Reload to populate Limits/Usage.
func New(root string) *Accountant {
	return &Accountant{root: root}
}

func (a *Accountant) limitsPath() string { return filepath.Join(a.root, "limits.json") }
func (a *Accountant) usagePath() string  { return filepath.Join(a.root, "usage.json") }

// Reload re-reads limits.json and usage.json from disk. Called at the
// start of every scheduler tick per spec §9's resolution of the "limits
// edited while running" open question: a shrink takes effect on the
// very next tick and simply blocks further admission.
func (a *Accountant) Reload() error {
	var lim Limits
	ok, err := fsutil.ReadJSON(a.limitsPath(), &lim)
	if err != nil {
		return err
	}
	if ok {
		a.Limits = lim
	}

	var use Usage
	ok, err = fsutil.ReadJSON(a.usagePath(), &use)
	if err != nil {
		return err
	}
	if ok {
		a.Usage = use
	}
	return nil
}

// InitLimits writes limits.json if it does not already exist.
func (a *Accountant) InitLimits(lim Limits) error {
	exists := fsutil.FileExist(a.limitsPath())
	if exists {
		return nil
	}
	a.Limits = lim
	return fsutil.WriteJSONAtomic(a.limitsPath(), lim)
}

// Oversized reports whether req can never fit even against the full
// total budget (spec §4.4: classified unschedulable, finalized
// FAILED(OversizedRequest) on first inspection).
func (a *Accountant) Oversized(req Request) bool {
	return req.Cores > a.Limits.CoresTotal || req.MemMB > a.Limits.MemMBTotal
}

// Fits reports whether req can be admitted given currently free
// resources (spec §4.4).
func (a *Accountant) Fits(req Request) bool {
	return req.Cores+a.Usage.CoresUsed <= a.Limits.CoresTotal &&
		req.MemMB+a.Usage.MemMBUsed <= a.Limits.MemMBTotal
}

// Reserve adds req to the used totals and persists usage.json. The
// caller must have already confirmed Fits(req) and must hold the
// resources.lock for the whole check-then-reserve section (spec §4.1,
// §4.4).
func (a *Accountant) Reserve(req Request) error {
	a.Usage.CoresUsed += req.Cores
	a.Usage.MemMBUsed += req.MemMB
	return fsutil.WriteJSONAtomic(a.usagePath(), a.Usage)
}

// Release subtracts req from the used totals, saturating at zero. A
// negative result indicates a prior accounting bug (a release without a
// matching reserve) and is logged rather than allowed to go negative,
// per spec §4.4.
func (a *Accountant) Release(req Request) error {
	if req.Cores > a.Usage.CoresUsed {
		jqslog.Warnf("releasing %d cores but only %d in use; accounting bug, saturating at zero", req.Cores, a.Usage.CoresUsed)
		a.Usage.CoresUsed = 0
	} else {
		a.Usage.CoresUsed -= req.Cores
	}
	if req.MemMB > a.Usage.MemMBUsed {
		jqslog.Warnf("releasing %d MB but only %d in use; accounting bug, saturating at zero", req.MemMB, a.Usage.MemMBUsed)
		a.Usage.MemMBUsed = 0
	} else {
		a.Usage.MemMBUsed -= req.MemMB
	}
	return fsutil.WriteJSONAtomic(a.usagePath(), a.Usage)
}
