package room

import (
	"sync"
	"testing"

	"github.com/rocketscienceinc/ticroom-backend/internal/apperror"
	"github.com/rocketscienceinc/ticroom-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(feed <-chan Event) []Event {
	events := make([]Event, 0, len(feed))
	for {
		select {
		case ev := <-feed:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestRoom_Join(t *testing.T) {
	t.Run("Second player join starts the match and emits begin to everyone", func(t *testing.T) {
		// Given: a room with alice seated and an observer watching
		gameRoom := New("room1")
		_, aliceFeed, err := gameRoom.Join("alice", RolePlayer)
		require.NoError(t, err)

		_, viewerFeed, err := gameRoom.Join("carol", RoleObserver)
		require.NoError(t, err)

		// When: bob joins as the second player
		slot, bobFeed, err := gameRoom.Join("bob", RolePlayer)
		require.NoError(t, err)
		require.Equal(t, 1, slot)

		// Then: every occupant receives the begin event
		for _, feed := range []<-chan Event{aliceFeed, bobFeed, viewerFeed} {
			events := drain(feed)
			require.Len(t, events, 1)
			assert.Equal(t, EventBegin, events[0].Kind)
			assert.Equal(t, "alice", events[0].PlayerX)
			assert.Equal(t, "bob", events[0].PlayerO)
		}

		// And: the match is in progress
		assert.Equal(t, entity.StatusOngoing, gameRoom.Snapshot().Status)
	})

	t.Run("Player join fails with RoomFull when both slots are taken", func(t *testing.T) {
		// Given: a room with two seated players
		gameRoom := New("room1")
		_, _, err := gameRoom.Join("alice", RolePlayer)
		require.NoError(t, err)
		_, _, err = gameRoom.Join("bob", RolePlayer)
		require.NoError(t, err)

		// When: a third player tries to join
		_, _, err = gameRoom.Join("carol", RolePlayer)

		// Then: the join is rejected
		require.Error(t, err)
		assert.True(t,
			err == apperror.ErrRoomFull || err == apperror.ErrGameAlreadyStarted,
			"got %v", err)
	})

	t.Run("Observer join always succeeds regardless of occupancy", func(t *testing.T) {
		// Given: a full, running room
		gameRoom := New("room1")
		_, _, err := gameRoom.Join("alice", RolePlayer)
		require.NoError(t, err)
		_, _, err = gameRoom.Join("bob", RolePlayer)
		require.NoError(t, err)

		// When: an observer joins mid-match
		slot, feed, err := gameRoom.Join("carol", RoleObserver)

		// Then: the join succeeds and the observer catches up
		require.NoError(t, err)
		assert.Equal(t, -1, slot)

		events := drain(feed)
		require.Len(t, events, 2)
		assert.Equal(t, EventBegin, events[0].Kind)
		assert.Equal(t, EventBoard, events[1].Kind)
	})
}

func TestRoom_Place(t *testing.T) {
	newRunningRoom := func(t *testing.T) (*Room, <-chan Event, <-chan Event) {
		t.Helper()

		gameRoom := New("room1")
		_, aliceFeed, err := gameRoom.Join("alice", RolePlayer)
		require.NoError(t, err)
		_, bobFeed, err := gameRoom.Join("bob", RolePlayer)
		require.NoError(t, err)
		drain(aliceFeed)
		drain(bobFeed)

		return gameRoom, aliceFeed, bobFeed
	}

	t.Run("Column win scenario broadcasts win to players and observers", func(t *testing.T) {
		// Given: alice vs bob with an observer attached
		gameRoom, aliceFeed, bobFeed := newRunningRoom(t)
		_, viewerFeed, err := gameRoom.Join("carol", RoleObserver)
		require.NoError(t, err)
		drain(viewerFeed)

		// When: alice completes the left column
		moves := []struct {
			who      string
			col, row int
		}{
			{"alice", 0, 0},
			{"bob", 1, 1},
			{"alice", 1, 0},
			{"bob", 1, 2},
			{"alice", 2, 0},
		}
		var last []Event
		for _, move := range moves {
			last, err = gameRoom.Place(move.who, move.col, move.row)
			require.NoError(t, err)
		}

		// Then: the final operation yields a board update and the win
		require.Len(t, last, 2)
		assert.Equal(t, EventBoard, last[0].Kind)
		assert.Equal(t, EventWin, last[1].Kind)
		assert.Equal(t, "alice", last[1].Winner)

		// And: every occupant saw the same five boards plus the win
		for _, feed := range []<-chan Event{aliceFeed, bobFeed, viewerFeed} {
			events := drain(feed)
			require.Len(t, events, 6)
			assert.Equal(t, EventWin, events[5].Kind)
			assert.Equal(t, "alice", events[5].Winner)
		}
	})

	t.Run("Place from the non-active player fails and changes nothing", func(t *testing.T) {
		// Given: a running match with alice (X) to move
		gameRoom, _, _ := newRunningRoom(t)
		before := gameRoom.Snapshot().Board

		// When: bob plays out of turn
		events, err := gameRoom.Place("bob", 0, 0)

		// Then: the move is rejected and the board unchanged
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		assert.Nil(t, events)
		assert.Equal(t, before, gameRoom.Snapshot().Board)
	})

	t.Run("Place before the match starts fails with a state error", func(t *testing.T) {
		// Given: a room waiting for its second player
		gameRoom := New("room1")
		_, _, err := gameRoom.Join("alice", RolePlayer)
		require.NoError(t, err)

		// When: the sole player tries to place
		_, err = gameRoom.Place("alice", 0, 0)

		// Then: the room reports the match has not started
		require.ErrorIs(t, err, apperror.ErrGameIsNotStarted)
	})

	t.Run("Place by an observer fails", func(t *testing.T) {
		gameRoom, _, _ := newRunningRoom(t)
		_, _, err := gameRoom.Join("carol", RoleObserver)
		require.NoError(t, err)

		_, err = gameRoom.Place("carol", 0, 0)

		require.ErrorIs(t, err, apperror.ErrNotAPlayer)
	})

	t.Run("Finished room accepts no further placements", func(t *testing.T) {
		// Given: a match alice already won
		gameRoom, _, _ := newRunningRoom(t)
		for _, move := range []struct {
			who      string
			col, row int
		}{
			{"alice", 0, 0}, {"bob", 1, 1}, {"alice", 0, 1}, {"bob", 2, 1}, {"alice", 0, 2},
		} {
			_, err := gameRoom.Place(move.who, move.col, move.row)
			require.NoError(t, err)
		}

		// When: bob tries to keep playing
		_, err := gameRoom.Place("bob", 2, 2)

		// Then: the room reports the match is over
		require.ErrorIs(t, err, apperror.ErrGameFinished)
	})
}

func TestRoom_Forfeit(t *testing.T) {
	t.Run("Forfeit awards the win to the opponent immediately", func(t *testing.T) {
		// Given: a running match
		gameRoom := New("room1")
		_, _, err := gameRoom.Join("alice", RolePlayer)
		require.NoError(t, err)
		_, bobFeed, err := gameRoom.Join("bob", RolePlayer)
		require.NoError(t, err)
		drain(bobFeed)

		// When: bob forfeits on alice's turn
		events, err := gameRoom.Forfeit("bob")

		// Then: alice wins by forfeit
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, EventForfeit, events[0].Kind)
		assert.Equal(t, "alice", events[0].Winner)
		assert.Equal(t, entity.StatusFinished, gameRoom.Snapshot().Status)
	})

	t.Run("Sole player cannot forfeit before the match starts", func(t *testing.T) {
		// Given: a room with only its creator
		gameRoom := New("room1")
		_, _, err := gameRoom.Join("alice", RolePlayer)
		require.NoError(t, err)

		// When: the creator forfeits
		_, err = gameRoom.Forfeit("alice")

		// Then: the operation is a state error, no transition happens
		require.ErrorIs(t, err, apperror.ErrGameIsNotStarted)
		assert.Equal(t, entity.StatusWaiting, gameRoom.Snapshot().Status)
	})
}

func TestRoom_Leave(t *testing.T) {
	t.Run("Leaving an in-progress match forfeits it for the opponent", func(t *testing.T) {
		// Given: a running match
		gameRoom := New("room1")
		_, _, err := gameRoom.Join("alice", RolePlayer)
		require.NoError(t, err)
		_, bobFeed, err := gameRoom.Join("bob", RolePlayer)
		require.NoError(t, err)
		drain(bobFeed)

		// When: alice disconnects
		empty := gameRoom.Leave("alice")

		// Then: bob wins by forfeit and the room is not yet empty
		assert.False(t, empty)
		events := drain(bobFeed)
		require.Len(t, events, 1)
		assert.Equal(t, EventForfeit, events[0].Kind)
		assert.Equal(t, "bob", events[0].Winner)
	})

	t.Run("Concurrent leave from both players finishes exactly once", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			// Given: a running match with an observer counting forfeits
			gameRoom := New("room1")
			_, _, err := gameRoom.Join("alice", RolePlayer)
			require.NoError(t, err)
			_, _, err = gameRoom.Join("bob", RolePlayer)
			require.NoError(t, err)
			_, viewerFeed, err := gameRoom.Join("carol", RoleObserver)
			require.NoError(t, err)
			drain(viewerFeed)

			// When: both players leave at the same time
			var wg sync.WaitGroup
			wg.Add(2)
			for _, name := range []string{"alice", "bob"} {
				go func(name string) {
					defer wg.Done()
					gameRoom.Leave(name)
				}(name)
			}
			wg.Wait()

			// Then: the observer saw exactly one forfeit
			forfeits := 0
			for _, ev := range drain(viewerFeed) {
				if ev.Kind == EventForfeit {
					forfeits++
				}
			}
			assert.Equal(t, 1, forfeits)
			assert.False(t, gameRoom.Empty())

			// And: the room empties once the observer leaves too
			assert.True(t, gameRoom.Leave("carol"))
		}
	})

	t.Run("Observer leave never touches the match", func(t *testing.T) {
		gameRoom := New("room1")
		_, _, err := gameRoom.Join("alice", RolePlayer)
		require.NoError(t, err)
		_, _, err = gameRoom.Join("carol", RoleObserver)
		require.NoError(t, err)

		empty := gameRoom.Leave("carol")

		assert.False(t, empty)
		assert.Equal(t, entity.StatusWaiting, gameRoom.Snapshot().Status)
	})

	t.Run("Feed is closed when its occupant leaves", func(t *testing.T) {
		gameRoom := New("room1")
		_, feed, err := gameRoom.Join("alice", RolePlayer)
		require.NoError(t, err)

		gameRoom.Leave("alice")

		_, open := <-feed
		assert.False(t, open)
	})
}

func TestRoom_DrawScenario(t *testing.T) {
	// Given: a running match
	gameRoom := New("room1")
	_, _, err := gameRoom.Join("alice", RolePlayer)
	require.NoError(t, err)
	_, bobFeed, err := gameRoom.Join("bob", RolePlayer)
	require.NoError(t, err)
	drain(bobFeed)

	// When: the players fill the board without a winning line
	moves := []struct {
		who      string
		col, row int
	}{
		{"alice", 0, 0}, {"bob", 1, 0}, {"alice", 2, 0},
		{"bob", 1, 1}, {"alice", 0, 1}, {"bob", 2, 1},
		{"alice", 1, 2}, {"bob", 0, 2}, {"alice", 2, 2},
	}
	var last []Event
	for _, move := range moves {
		last, err = gameRoom.Place(move.who, move.col, move.row)
		require.NoError(t, err)
	}

	// Then: the final move yields a board update followed by the draw
	require.Len(t, last, 2)
	assert.Equal(t, EventBoard, last[0].Kind)
	assert.Equal(t, EventDraw, last[1].Kind)
	assert.Equal(t, entity.StatusFinished, gameRoom.Snapshot().Status)
}
