package engine

import (
	"errors"
	"os/exec"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/andresousadotpt/hkd/internal/binding"
)

// DefaultShell is used when no shell is configured and $SHELL is empty.
const DefaultShell = "/bin/sh"

// ShellExecutor runs actions as `<shell...> -c <action>` in their own
// process group with stdio on /dev/null. Nothing waits for the command
// except a goroutine that logs how it ended.
type ShellExecutor struct {
	shell  []string
	expand func(string) string
	log    *logrus.Entry
}

// NewShellExecutor splits shell on whitespace, so "bash --norc" works.
// expand, if not nil, rewrites the action text right before each spawn.
func NewShellExecutor(shell string, expand func(string) string, log *logrus.Entry) *ShellExecutor {
	fields := strings.Fields(shell)
	if len(fields) == 0 {
		fields = []string{DefaultShell}
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ShellExecutor{shell: fields, expand: expand, log: log.WithField("component", "exec")}
}

func (e *ShellExecutor) Execute(b binding.Binding) {
	go e.spawn(b)
}

func (e *ShellExecutor) command(action string) *exec.Cmd {
	if e.expand != nil {
		action = e.expand(action)
	}
	args := make([]string, 0, len(e.shell)+1)
	args = append(args, e.shell[1:]...)
	args = append(args, "-c", action)
	cmd := exec.Command(e.shell[0], args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

func (e *ShellExecutor) spawn(b binding.Binding) {
	cmd := e.command(b.Action)
	log := e.log.WithFields(logrus.Fields{"trigger": b.Trigger, "command": b.Action})
	if err := cmd.Start(); err != nil {
		log.WithError(err).Error("spawn failed")
		return
	}
	log = log.WithField("pid", cmd.Process.Pid)
	log.Debug("spawned")

	err := cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		log.WithField("code", 0).Debug("exited")
	case errors.As(err, &exitErr):
		log.WithField("code", exitErr.ExitCode()).Debug("exited")
	default:
		log.WithError(err).Debug("wait failed")
	}
}
