package progress

// Copyright (C) 2025 The simsweep authors
// SPDX-License-Identifier: BSD-3-Clause

import (
	"testing"
)

func TestNewMultiSpinner(t *testing.T) {
	spinner := NewMultiSpinner()
	if spinner == nil {
		t.Fatal("failed to create a spinner")
	}
}

func TestMultiSpinner(t *testing.T) {
	spinner := NewMultiSpinner()
	if spinner == nil {
		t.Fatal("failed to create a spinner")
	}
	if spinner.AddSpinner("DMA_INFLIGHT_REQUESTS_1") != nil {
		t.Fatal("failed to add spinner")
	}
	if spinner.AddSpinner("DMA_INFLIGHT_REQUESTS_4") != nil {
		t.Fatal("failed to add spinner")
	}
	if spinner.AddSpinner("DMA_INFLIGHT_REQUESTS_1") == nil {
		t.Fatal("added spinner with same label")
	}
	spinner.Start()

	if spinner.Status("DMA_INFLIGHT_REQUESTS_1", "building") != nil {
		t.Fatal("failed to update spinner status")
	}
	if spinner.Status("DMA_INFLIGHT_REQUESTS_4", "simulating") != nil {
		t.Fatal("failed to update spinner status")
	}
	if spinner.Status("DMA_INFLIGHT_REQUESTS_8", "nope") == nil {
		t.Fatal("updated status of non-existent spinner")
	}
	spinner.Finish()
}
