package adsb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerDeliversLatestToNewSubscriber(t *testing.T) {
	b := NewBroker(1)
	b.Publish(Snapshot{Sequence: 1})

	ch, cancel := b.Subscribe()
	defer cancel()

	s := <-ch
	assert.Equal(t, uint64(1), s.Sequence)
}

func TestBrokerCoalescesSlowSubscriber(t *testing.T) {
	b := NewBroker(1)
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := uint64(1); i <= 5; i++ {
		b.Publish(Snapshot{Sequence: i})
	}

	s := <-ch
	assert.Equal(t, uint64(5), s.Sequence)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra snapshot %d", extra.Sequence)
	default:
	}

	latest, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(5), latest.Sequence)
}

func TestBrokerCancelAndClose(t *testing.T) {
	b := NewBroker(2)
	ch1, cancel1 := b.Subscribe()
	ch2, _ := b.Subscribe()
	assert.Equal(t, 2, b.Subscribers())

	cancel1()
	cancel1()
	_, open := <-ch1
	assert.False(t, open)
	assert.Equal(t, 1, b.Subscribers())

	b.Close()
	_, open = <-ch2
	assert.False(t, open)

	// Publishing and subscribing after close are harmless
	b.Publish(Snapshot{Sequence: 9})
	ch3, cancel3 := b.Subscribe()
	cancel3()
	_, open = <-ch3
	assert.False(t, open)
}
