package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fx "github.com/ramonhpr/zephyr-knot-sdk/pkg/framework"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/proxy"
	"github.com/ramonhpr/zephyr-knot-sdk/pkg/knot/sm"
)

func TestSensors(t *testing.T) {
	clock := fx.NewManualClock(time.Unix(0, 0))
	reg := proxy.NewRegistry(4, clock)
	s := NewSensors()
	require.NoError(t, s.Register(reg))

	cfg, _ := reg.Config(0)
	assert.Equal(t, knot.NewConfig(knot.OnTime(5), knot.OnUpperThreshold(knot.Int(HighTemp))), cfg)
	cfg, _ = reg.Config(2)
	assert.Equal(t, knot.NewConfig(knot.OnTime(10)), cfg)

	v, n, ok := reg.Read(1, false)
	require.True(t, ok, "LED starts on")
	assert.Equal(t, knot.Bool(true), v)
	assert.Equal(t, 1, n)
	_, err := reg.Write(1, knot.Bool(false))
	require.NoError(t, err)
	assert.False(t, s.led.Load())

	clock.Advance(10 * time.Second)
	v, _, ok = reg.Read(2, false)
	require.True(t, ok)
	assert.Len(t, v, 7)
	assert.Equal(t, "KNT", string(v.(knot.Raw)[:3]))

	require.Error(t, s.Register(reg), "already registered")
}

func TestToggleLED(t *testing.T) {
	s := NewSensors()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ToggleLED(time.Millisecond).Run(ctx) }()
	assert.Eventually(t, func() bool { return !s.led.Load() }, time.Second, time.Millisecond)
	cancel()
	assert.Equal(t, context.Canceled, <-done)
}

func TestStatusPeriod(t *testing.T) {
	assert.Equal(t, StatusConnPeriod, StatusPeriod(sm.StateOnline))
	assert.Equal(t, StatusErrorPeriod, StatusPeriod(sm.StateError))
	assert.Equal(t, StatusDisconnPeriod, StatusPeriod(sm.StateAuth))
}
