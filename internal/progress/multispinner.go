/*
Package progress provides per-configuration status lines for long-running
build and simulation phases.
*/
package progress

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

var spinChars = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// MultiSpinnerUpdateFunc updates the status text of the spinner with the given label.
type MultiSpinnerUpdateFunc func(label string, status string) error

type spinnerState struct {
	label       string
	status      string
	statusIsNew bool
	spinIndex   int
}

type multiSpinner struct {
	mu       sync.Mutex
	spinners []spinnerState
	ticker   *time.Ticker
	done     chan bool
	spinning bool
}

// NewMultiSpinner creates a new MultiSpinner
func NewMultiSpinner() *multiSpinner {
	ms := multiSpinner{}
	ms.done = make(chan bool)
	return &ms
}

// AddSpinner adds a spinner with the given label. Labels must be unique.
func (ms *multiSpinner) AddSpinner(label string) (err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for _, spinner := range ms.spinners {
		if spinner.label == label {
			err = fmt.Errorf("spinner with label %s already exists", label)
			return
		}
	}
	ms.spinners = append(ms.spinners, spinnerState{label: label, status: "?"})
	return
}

// Start starts the spinner
func (ms *multiSpinner) Start() {
	ms.draw(true)
	ms.ticker = time.NewTicker(250 * time.Millisecond)
	ms.spinning = true
	go ms.onTick()
}

// Finish stops the spinner
func (ms *multiSpinner) Finish() {
	if ms.spinning {
		ms.ticker.Stop()
		ms.done <- true
		ms.draw(false)
		ms.spinning = false
	}
}

// Status updates the status of the spinner with the given label.
func (ms *multiSpinner) Status(label string, status string) (err error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for spinnerIdx, spinner := range ms.spinners {
		if spinner.label == label {
			if status != spinner.status {
				ms.spinners[spinnerIdx].status = status
				ms.spinners[spinnerIdx].statusIsNew = true
			}
			return
		}
	}
	err = fmt.Errorf("did not find spinner with label %s", label)
	return
}

func (ms *multiSpinner) onTick() {
	for {
		select {
		case <-ms.done:
			return
		case <-ms.ticker.C:
			ms.draw(true)
		}
	}
}

func (ms *multiSpinner) draw(goUp bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	onTerminal := term.IsTerminal(int(os.Stderr.Fd()))
	for i := range ms.spinners {
		spinner := &ms.spinners[i]
		if !onTerminal && !spinner.statusIsNew {
			continue
		}
		fmt.Fprintf(os.Stderr, "%-32s  %s  %-48s\n", spinner.label, spinChars[spinner.spinIndex], spinner.status)
		spinner.statusIsNew = false
		spinner.spinIndex = (spinner.spinIndex + 1) % len(spinChars)
	}
	if goUp && onTerminal {
		for range ms.spinners {
			fmt.Fprintf(os.Stderr, "\x1b[1A")
		}
	}
}
