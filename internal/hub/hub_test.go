package hub

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drak905/replit-kara/internal/domain"
	"github.com/drak905/replit-kara/internal/protocol"
	"github.com/drak905/replit-kara/internal/service"
)

type fakeRoomFinder struct {
	room  *domain.Room
	queue []domain.QueueItem
	err   error
}

func (f *fakeRoomFinder) GetRoomByCode(ctx context.Context, code string) (*domain.Room, []domain.QueueItem, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.room, f.queue, nil
}

type fakeQueueController struct {
	playingRoom     *domain.Room
	advanceRes      *service.AdvanceResult
	err             error
	setPlayingCalls int
	advanceCalls    int
}

func (f *fakeQueueController) SetPlaying(ctx context.Context, roomID uuid.UUID, playing bool) (*domain.Room, error) {
	f.setPlayingCalls++
	if f.err != nil {
		return nil, f.err
	}
	if f.playingRoom != nil {
		f.playingRoom.IsPlaying = playing
	}
	return f.playingRoom, nil
}

func (f *fakeQueueController) Advance(ctx context.Context, roomID uuid.UUID) (*service.AdvanceResult, error) {
	f.advanceCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.advanceRes, nil
}

func newHubForTest(room *domain.Room, queue []domain.QueueItem) (*Hub, *fakeRoomFinder, *fakeQueueController) {
	finder := &fakeRoomFinder{room: room, queue: queue}
	controller := &fakeQueueController{playingRoom: room}
	return NewHub(finder, controller), finder, controller
}

func readEnvelope(t *testing.T, client *Client) map[string]json.RawMessage {
	t.Helper()
	select {
	case payload := <-client.send:
		var msg map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		return msg
	default:
		t.Fatal("expected a message on the client send channel")
		return nil
	}
}

func msgType(t *testing.T, envelope map[string]json.RawMessage) string {
	t.Helper()
	var typ string
	require.NoError(t, json.Unmarshal(envelope["type"], &typ))
	return typ
}

func TestHub_JoinRoom_SendsRoomState(t *testing.T) {
	room := &domain.Room{ID: uuid.New(), Code: "ABC234"}
	queue := []domain.QueueItem{{ID: uuid.New(), RoomID: room.ID, VideoID: "vid-1", Position: 1, Status: domain.StatusPlaying}}
	h, _, _ := newHubForTest(room, queue)
	client := NewClient(h, nil)

	h.handleInbound(HubMessage{Type: msgInbound, Client: client, RawData: []byte(`{"type":"join_room","roomCode":"abc234"}`)})

	roomID, joined := client.Room()
	assert.True(t, joined)
	assert.Equal(t, room.ID, roomID)
	assert.True(t, h.RoomOccupied(room.ID))

	envelope := readEnvelope(t, client)
	assert.Equal(t, protocol.TypeRoomState, msgType(t, envelope))
	var gotQueue []domain.QueueItem
	require.NoError(t, json.Unmarshal(envelope["queue"], &gotQueue))
	assert.Len(t, gotQueue, 1)
}

func TestHub_JoinRoom_UnknownCode(t *testing.T) {
	h := NewHub(&fakeRoomFinder{err: service.ErrRoomNotFound}, &fakeQueueController{})
	client := NewClient(h, nil)

	h.handleInbound(HubMessage{Type: msgInbound, Client: client, RawData: []byte(`{"type":"join_room","roomCode":"ZZZZZZ"}`)})

	_, joined := client.Room()
	assert.False(t, joined)

	envelope := readEnvelope(t, client)
	assert.Equal(t, protocol.TypeError, msgType(t, envelope))
	var message string
	require.NoError(t, json.Unmarshal(envelope["message"], &message))
	assert.Equal(t, "Room not found", message)
}

func TestHub_MalformedMessage(t *testing.T) {
	h, _, _ := newHubForTest(&domain.Room{ID: uuid.New()}, nil)
	client := NewClient(h, nil)

	h.handleInbound(HubMessage{Type: msgInbound, Client: client, RawData: []byte(`{not json`)})

	envelope := readEnvelope(t, client)
	assert.Equal(t, protocol.TypeError, msgType(t, envelope))
}

func TestHub_UnknownMessageType(t *testing.T) {
	h, _, _ := newHubForTest(&domain.Room{ID: uuid.New()}, nil)
	client := NewClient(h, nil)

	h.handleInbound(HubMessage{Type: msgInbound, Client: client, RawData: []byte(`{"type":"teleport"}`)})

	envelope := readEnvelope(t, client)
	assert.Equal(t, protocol.TypeError, msgType(t, envelope))
}

func TestHub_PlaybackIntentBeforeJoinIsIgnored(t *testing.T) {
	room := &domain.Room{ID: uuid.New(), Code: "ABC234"}
	h, _, controller := newHubForTest(room, nil)
	client := NewClient(h, nil)

	h.handleInbound(HubMessage{Type: msgInbound, Client: client, RawData: []byte(`{"type":"play"}`)})
	h.handleInbound(HubMessage{Type: msgInbound, Client: client, RawData: []byte(`{"type":"skip_song"}`)})

	assert.Zero(t, controller.setPlayingCalls)
	assert.Zero(t, controller.advanceCalls)
	select {
	case payload := <-client.send:
		t.Fatalf("expected no message, got %s", payload)
	default:
	}
}

func TestHub_PlayBroadcastsPlaybackState(t *testing.T) {
	room := &domain.Room{ID: uuid.New(), Code: "ABC234"}
	h, _, controller := newHubForTest(room, nil)
	client := NewClient(h, nil)
	other := NewClient(h, nil)
	h.join(room.ID, client)
	h.join(room.ID, other)

	h.handleInbound(HubMessage{Type: msgInbound, Client: client, RawData: []byte(`{"type":"play"}`)})

	assert.Equal(t, 1, controller.setPlayingCalls)
	for _, c := range []*Client{client, other} {
		envelope := readEnvelope(t, c)
		assert.Equal(t, protocol.TypePlaybackState, msgType(t, envelope))
		var playing bool
		require.NoError(t, json.Unmarshal(envelope["isPlaying"], &playing))
		assert.True(t, playing)
	}
}

func TestHub_SkipBroadcastsFullUpdate(t *testing.T) {
	room := &domain.Room{ID: uuid.New(), Code: "ABC234"}
	next := &domain.QueueItem{ID: uuid.New(), RoomID: room.ID, VideoID: "vid-next", Title: "Next", Thumbnail: "t", Position: 2, Status: domain.StatusPlaying}
	room.SetCurrent(next)

	h, _, controller := newHubForTest(room, nil)
	controller.advanceRes = &service.AdvanceResult{Room: room, Current: next, Queue: []domain.QueueItem{*next}}
	client := NewClient(h, nil)
	h.join(room.ID, client)

	h.handleInbound(HubMessage{Type: msgInbound, Client: client, RawData: []byte(`{"type":"skip_song"}`)})

	assert.Equal(t, 1, controller.advanceCalls)
	types := []string{
		msgType(t, readEnvelope(t, client)),
		msgType(t, readEnvelope(t, client)),
		msgType(t, readEnvelope(t, client)),
	}
	assert.Equal(t, []string{protocol.TypeCurrentSong, protocol.TypeQueueUpdated, protocol.TypePlaybackState}, types)
}

func TestHub_Broadcast_ExcludesSender(t *testing.T) {
	room := &domain.Room{ID: uuid.New()}
	h, _, _ := newHubForTest(room, nil)
	sender := NewClient(h, nil)
	receiver := NewClient(h, nil)
	h.join(room.ID, sender)
	h.join(room.ID, receiver)

	h.Broadcast(room.ID, []byte(`{"type":"queue_updated","queue":[]}`), sender)

	select {
	case <-sender.send:
		t.Fatal("sender should not receive an excluded broadcast")
	default:
	}
	select {
	case payload := <-receiver.send:
		assert.JSONEq(t, `{"type":"queue_updated","queue":[]}`, string(payload))
	default:
		t.Fatal("receiver should have gotten the broadcast")
	}
}

func TestHub_UnregisterKeepsPendingMessages(t *testing.T) {
	room := &domain.Room{ID: uuid.New()}
	h, _, _ := newHubForTest(room, nil)
	client := NewClient(h, nil)
	h.join(room.ID, client)

	pending := []byte(`{"type":"playback_state","isPlaying":true}`)
	client.send <- pending

	h.unregisterClient(client)
	h.unregisterClient(client) // repeated unregister must not panic

	// The buffered message survives the close for the write pump to
	// flush; only then does the channel report closed.
	payload, ok := <-client.send
	assert.True(t, ok)
	assert.Equal(t, pending, payload)
	_, ok = <-client.send
	assert.False(t, ok)
}

func TestHub_UnregisterDropsEmptyRoom(t *testing.T) {
	room := &domain.Room{ID: uuid.New()}
	h, _, _ := newHubForTest(room, nil)
	client := NewClient(h, nil)
	h.join(room.ID, client)
	require.True(t, h.RoomOccupied(room.ID))

	h.unregisterClient(client)

	assert.False(t, h.RoomOccupied(room.ID))
	_, open := <-client.send
	assert.False(t, open)
}
