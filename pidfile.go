package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// pidFile holds an exclusive lock on the pid file for the life of the
// daemon.
type pidFile struct {
	path string
	f    *os.File
}

// acquirePidFile locks path and writes our pid into it. It fails if another
// instance holds the lock.
func acquirePidFile(path string) (*pidFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open pid file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			if pid, perr := readPid(path); perr == nil {
				return nil, fmt.Errorf("already running (pid %d)", pid)
			}
			return nil, errors.New("already running")
		}
		return nil, fmt.Errorf("lock pid file: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncate pid file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return &pidFile{path: path, f: f}, nil
}

func (p *pidFile) Release() {
	os.Remove(p.path)
	p.f.Close()
}

func readPid(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%s: no pid", path)
	}
	return pid, nil
}

// killRunning asks the daemon recorded in path to shut down.
func killRunning(path string) (int, error) {
	pid, err := readPid(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, errors.New("not running")
		}
		return 0, err
	}
	if err := unix.Kill(pid, unix.SIGINT); err != nil {
		if errors.Is(err, unix.ESRCH) {
			os.Remove(path)
			return pid, fmt.Errorf("pid %d is not running (stale pid file removed)", pid)
		}
		return pid, fmt.Errorf("signal pid %d: %w", pid, err)
	}
	return pid, nil
}

func refuseRoot() error {
	if unix.Geteuid() == 0 {
		return errors.New("refusing to run as root; add your user to the 'input' group instead")
	}
	return nil
}
