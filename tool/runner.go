package tool

import (
	"context"
	"io/ioutil"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/brentp/go-athenaeum/tempclean"
	"github.com/tumorpair/mutect2parallel/shared"
)

// Runner executes shell commands. A zero Timeout means no limit.
type Runner struct {
	Timeout time.Duration
}

func tempFile(suffix, content string) (string, error) {
	f, err := tempclean.TempFile("", suffix)
	if err != nil {
		return "", err
	}
	if _, err = f.WriteString(content); err != nil {
		f.Close()
		return "", err
	}
	return f.Name(), f.Close()
}

// Run writes command to a temporary bash script and runs it with
// "set -euo pipefail". Output is captured in Result.Log and, if logPath is
// set, kept in that file. A run that outlives the timeout is killed along with
// its children and reported as TimedOut.
func (r *Runner) Run(ctx context.Context, name, command, logPath string) Result {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	// use a script so long commands are not an issue.
	script, err := tempFile("mutect2parallel-"+name+".sh", "set -euo pipefail\n"+command+"\n")
	if err != nil {
		return Fail(err.Error())
	}
	defer os.Remove(script)

	if logPath == "" {
		if logPath, err = tempFile("mutect2parallel-"+name+".log", ""); err != nil {
			return Fail(err.Error())
		}
		defer os.Remove(logPath)
	}
	lf, err := os.Create(logPath)
	if err != nil {
		return Fail(err.Error())
	}

	p := exec.Command("bash", script)
	p.Stdout = lf
	p.Stderr = lf
	p.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err = p.Start(); err != nil {
		lf.Close()
		return Fail(err.Error())
	}
	done := make(chan error, 1)
	go func() { done <- p.Wait() }()

	res := Result{Kind: Succeeded, Success: true}
	select {
	case err = <-done:
	case <-ctx.Done():
		syscall.Kill(-p.Process.Pid, syscall.SIGKILL)
		err = <-done
		res.Kind = TimedOut
		if ctx.Err() != context.DeadlineExceeded {
			res.Kind = Failed
		}
	}
	lf.Close()

	if b, rerr := ioutil.ReadFile(logPath); rerr == nil {
		res.Log = string(b)
	}
	if p.ProcessState != nil {
		res.ExitStatus = p.ProcessState.ExitCode()
	}
	switch {
	case res.Kind == TimedOut:
		res.Success = false
		res.Log += "timed out after " + r.Timeout.String() + "\n"
	case res.Kind == Failed || err != nil:
		res.Success, res.Kind = false, Failed
		if err != nil {
			res.Log += err.Error() + "\n"
		}
	}
	if !res.Success {
		shared.Warnf("%s %s: %s", name, res.Kind, firstLine(command))
	}
	return res
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
