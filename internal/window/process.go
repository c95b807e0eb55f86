package window

import (
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// processMatches reports whether pid belongs to an executable called name.
// An empty name matches every process.
func processMatches(pid int32, name string) bool {
	if name == "" {
		return true
	}
	proc, err := process.NewProcess(pid)
	if err != nil {
		return false
	}
	procName, err := proc.Name()
	if err != nil {
		return false
	}
	return strings.EqualFold(procName, name)
}

// findProcessIDs lists the pids whose executable is called name
func findProcessIDs(name string) ([]int32, error) {
	pids, err := process.Pids()
	if err != nil {
		return nil, err
	}
	var matches []int32
	for _, pid := range pids {
		if processMatches(pid, name) {
			matches = append(matches, pid)
		}
	}
	return matches, nil
}
