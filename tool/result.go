// Package tool runs the external collaborators of the pipeline (GATK, picard,
// samtools, bcftools) and reduces each run to a Result.
package tool

import (
	"bufio"
	"strings"
)

// Kind classifies how a collaborator run ended.
type Kind int

const (
	NotRun Kind = iota
	Succeeded
	Failed
	TimedOut
)

func (k Kind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed out"
	}
	return "not run"
}

// Result is the outcome of one collaborator run.
type Result struct {
	Success    bool
	Log        string
	ExitStatus int
	Kind       Kind
}

// Ok is the Result of work that did not need to run.
var Ok = Result{Success: true, Kind: Succeeded}

// Fail returns a failed Result carrying msg as its log.
func Fail(msg string) Result {
	return Result{Kind: Failed, Log: msg, ExitStatus: -1}
}

// And fails r unless ok holds, used for success markers beyond the exit code.
func (r Result) And(ok bool, why string) Result {
	if r.Success && !ok {
		r.Success = false
		r.Kind = Failed
		r.Log += why + "\n"
	}
	return r
}

// GATKStatus reports whether a GATK log ends with a successful "Tool returned:"
// block. A zero exit code with any other marker is a failure.
func GATKStatus(log string) bool {
	status := false
	sc := bufio.NewScanner(strings.NewReader(log))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, "Tool returned:") {
			status = true
		} else if status {
			return strings.Contains(line, "SUCCESS")
		}
	}
	return false
}
