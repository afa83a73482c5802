// Package procinfo lists running processes and their binary paths, which
// integrations use to detect platform clients and running games.
package procinfo

import (
	"os"
	"path/filepath"
	"strconv"
)

const procRoot = "/proc"

// ProcessID identifies one running process.
type ProcessID int

// ProcessInfo describes one running process. BinaryPath is empty when the
// executable path is not readable, typically for other users' processes.
type ProcessInfo struct {
	PID        ProcessID
	BinaryPath string
}

// Pids returns the ids of all running processes.
func Pids() ([]ProcessID, error) {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return nil, err
	}
	pids := make([]ProcessID, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		pids = append(pids, ProcessID(pid))
	}
	return pids, nil
}

// Get returns what is known about the given process. Permission failures
// leave BinaryPath empty rather than erroring.
func Get(pid ProcessID) ProcessInfo {
	info := ProcessInfo{PID: pid}
	path, err := os.Readlink(filepath.Join(procRoot, strconv.Itoa(int(pid)), "exe"))
	if err == nil {
		info.BinaryPath = path
	}
	return info
}

// Iter returns info for every running process.
func Iter() ([]ProcessInfo, error) {
	pids, err := Pids()
	if err != nil {
		return nil, err
	}
	infos := make([]ProcessInfo, 0, len(pids))
	for _, pid := range pids {
		infos = append(infos, Get(pid))
	}
	return infos, nil
}
