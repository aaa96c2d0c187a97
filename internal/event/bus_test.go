package event

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribersReceivePublishedEvents(t *testing.T) {
	b := NewBus()
	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	b.Publish(Event{Day: 1, Type: TypeMoneyChanged, Message: "Sold a carrot", Amount: 18})

	got := <-ch
	assert.Equal(t, TypeMoneyChanged, got.Type)
	assert.Equal(t, int64(18), got.Amount)
}

func TestRecentReturnsOldestFirst(t *testing.T) {
	b := NewBus()
	for i := 1; i <= 3; i++ {
		b.Publish(Event{Day: i, Type: TypeDayAdvanced, Message: fmt.Sprintf("Day %d", i)})
	}

	got := b.Recent(2)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Day)
	assert.Equal(t, 3, got[1].Day)

	all := b.Recent(0)
	assert.Len(t, all, 3)
}

func TestLogIsTrimmedToBound(t *testing.T) {
	b := NewBus()
	for i := 0; i < logKeep+50; i++ {
		b.Publish(Event{Day: 1, Type: TypeMoneyChanged})
	}
	assert.Len(t, b.Recent(0), logKeep)
}

func TestTickEventsAreNotLogged(t *testing.T) {
	b := NewBus()
	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	b.Publish(Event{Day: 1, Type: TypeTick})

	// Delivered live but absent from the catch-up log.
	got := <-ch
	assert.Equal(t, TypeTick, got.Type)
	assert.Empty(t, b.Recent(0))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	id, ch := b.Subscribe()
	b.Unsubscribe(id)

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Day: 1, Type: TypeDayAdvanced})
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBus()
	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	for i := 0; i < subBuffer+10; i++ {
		b.Publish(Event{Day: 1, Type: TypeMoneyChanged})
	}
	// The buffer holds subBuffer events; the overflow was dropped and the
	// publisher never stalled.
	assert.Len(t, ch, subBuffer)
}

func TestNilBusIsSafe(t *testing.T) {
	var b *Bus
	b.Publish(Event{Day: 1, Type: TypeGameWon})
	assert.Nil(t, b.Recent(5))
}

func TestRestoreReplacesLog(t *testing.T) {
	b := NewBus()
	b.Publish(Event{Day: 1, Type: TypeMoneyChanged})

	b.Restore([]Event{
		{Day: 3, Type: TypeDayAdvanced, Message: "Day 3"},
		{Day: 3, Type: TypeMilestone, Amount: 500},
	})

	got := b.Recent(0)
	require.Len(t, got, 2)
	assert.Equal(t, TypeDayAdvanced, got[0].Type)
	assert.Equal(t, TypeMilestone, got[1].Type)
}
