// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vechain/cvm/co"
)

func TestGoes(t *testing.T) {
	var g co.Goes
	var n atomic.Int32
	for i := 0; i < 10; i++ {
		g.Go(func() { n.Add(1) })
	}
	g.Wait()
	assert.Equal(t, int32(10), n.Load())
	assert.NoError(t, g.Err())
}

func TestGoesCapturesPanic(t *testing.T) {
	var g co.Goes
	g.Go(func() { panic("worker exploded") })
	g.Go(func() {})

	select {
	case <-g.Done():
	case <-time.After(time.Second):
		t.Fatal("routines not done")
	}
	assert.EqualError(t, g.Err(), "panic: worker exploded")
}
