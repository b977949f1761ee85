package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoom_Add_Enforces_Capacity(t *testing.T) {
	req := require.New(t)
	room := NewRoom()

	_, err := room.Add("alice")
	req.NoError(err)
	_, err = room.Add("bob")
	req.NoError(err)

	// When a third distinct username joins
	_, err = room.Add("clara")

	// Then the room refuses and stays at capacity
	req.Error(err)
	req.Equal(2, room.Count())
}

func TestRoom_Add_Is_Idempotent_On_Same_Username(t *testing.T) {
	req := require.New(t)
	room := NewRoom()

	first, err := room.Add("alice")
	req.NoError(err)

	// When joining again with the exact same username
	second, err := room.Add("alice")

	// Then the existing participant comes back, count unchanged
	req.NoError(err)
	req.Equal(first.ID, second.ID)
	req.Equal(1, room.Count())
}

func TestRoom_Username_Match_Is_Case_Sensitive(t *testing.T) {
	req := require.New(t)
	room := NewRoom()

	_, err := room.Add("alice")
	req.NoError(err)

	// "Alice" is a different identity than "alice"
	_, err = room.Add("Alice")
	req.NoError(err)
	req.Equal(2, room.Count())
}

func TestRoom_Status_Derives_From_Count(t *testing.T) {
	req := require.New(t)
	room := NewRoom()
	req.Equal(StatusWaiting, room.Status())

	_, _ = room.Add("alice")
	req.Equal(StatusWaiting, room.Status())

	_, _ = room.Add("bob")
	req.Equal(StatusReady, room.Status())

	room.Remove("bob")
	req.Equal(StatusWaiting, room.Status())
}

func TestRoom_Other_Returns_The_Peer(t *testing.T) {
	req := require.New(t)
	room := NewRoom()

	_, _ = room.Add("alice")
	_, alone := room.Other("alice")
	req.False(alone)

	bob, _ := room.Add("bob")
	other, ok := room.Other("alice")
	req.True(ok)
	req.Equal(bob, other)
}

func TestRoom_Remove_Absent_Is_NoOp(t *testing.T) {
	req := require.New(t)
	room := NewRoom()
	_, _ = room.Add("alice")

	req.False(room.Remove("bob"))
	req.Equal(1, room.Count())
}
