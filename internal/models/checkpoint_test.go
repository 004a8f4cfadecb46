package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u64(v uint64) *uint64 { return &v }

func sampleMessage(id, rxTime uint64) *Message {
	port := TextMessagePort
	return &Message{
		ID:          id,
		RxTime:      rxTime,
		RxISO:       "2025-11-27T00:00:00Z",
		FromID:      "!abcd1234",
		ToID:        "^all",
		Channel:     1,
		PortNum:     &port,
		Text:        "Ping",
		LoraFreq:    868,
		ModemPreset: "MediumFast",
		ChannelName: "TEST",
		NodeID:      "!abcd1234",
	}
}

func TestCheckpoint_FreshStateAdmitsAll(t *testing.T) {
	var cp Checkpoint
	for _, msg := range []*Message{sampleMessage(0, 0), sampleMessage(42, 0), sampleMessage(1, 1<<40)} {
		assert.True(t, cp.ShouldForward(msg))
	}
}

func TestCheckpoint_TracksLatestRxTimeAndSkipsOlder(t *testing.T) {
	var cp Checkpoint
	m1 := sampleMessage(10, 10)
	m2 := sampleMessage(20, 20)
	m3 := sampleMessage(15, 15)

	require.True(t, cp.ShouldForward(m1))
	cp.Record(m1)
	assert.Equal(t, u64(10), cp.LastMessageID)
	assert.Equal(t, u64(10), cp.LastRxTime)

	require.True(t, cp.ShouldForward(m2))
	cp.Record(m2)
	assert.Equal(t, u64(20), cp.LastMessageID)
	assert.Equal(t, u64(20), cp.LastRxTime)

	assert.False(t, cp.ShouldForward(m3))
	assert.Equal(t, u64(20), cp.LastMessageID)
	assert.Equal(t, u64(20), cp.LastRxTime)
}

func TestCheckpoint_LegacyIDFallback(t *testing.T) {
	cp := Checkpoint{LastMessageID: u64(10)}

	assert.False(t, cp.ShouldForward(sampleMessage(9, 0)))
	assert.False(t, cp.ShouldForward(sampleMessage(10, 0)))
	assert.True(t, cp.ShouldForward(sampleMessage(11, 0)))
}

func TestCheckpoint_DedupesSameTimestamp(t *testing.T) {
	var cp Checkpoint
	m1 := sampleMessage(10, 100)
	m2 := sampleMessage(9, 100)
	dup := sampleMessage(10, 100)
	older := sampleMessage(50, 99)

	require.True(t, cp.ShouldForward(m1))
	cp.Record(m1)
	require.True(t, cp.ShouldForward(m2))
	cp.Record(m2)

	assert.False(t, cp.ShouldForward(dup))
	assert.False(t, cp.ShouldForward(m2))
	assert.False(t, cp.ShouldForward(older))
	assert.Equal(t, u64(100), cp.LastRxTime)
	assert.Equal(t, []uint64{10, 9}, cp.LastRxTimeIDs)
}

func TestCheckpoint_WorkedExample(t *testing.T) {
	cp := Checkpoint{
		LastMessageID: u64(20),
		LastRxTime:    u64(20),
		LastRxTimeIDs: []uint64{10, 9},
	}

	assert.False(t, cp.ShouldForward(sampleMessage(10, 20)))
	assert.True(t, cp.ShouldForward(sampleMessage(11, 21)))
}

func TestCheckpoint_RecordIsIdempotent(t *testing.T) {
	var cp Checkpoint
	msg := sampleMessage(7, 300)

	cp.Record(msg)
	cp.Record(msg)

	assert.Equal(t, []uint64{7}, cp.LastRxTimeIDs)
	assert.False(t, cp.ShouldForward(msg))
}

func TestCheckpoint_Monotonic(t *testing.T) {
	sequence := []*Message{
		sampleMessage(5, 100),
		sampleMessage(3, 100),
		sampleMessage(8, 120),
		sampleMessage(2, 90), // precondition violation, must not regress
		sampleMessage(1, 120),
		sampleMessage(9, 130),
	}

	var cp Checkpoint
	var prevID, prevRx uint64
	for _, msg := range sequence {
		cp.Record(msg)
		require.NotNil(t, cp.LastMessageID)
		require.NotNil(t, cp.LastRxTime)
		assert.GreaterOrEqual(t, *cp.LastMessageID, prevID)
		assert.GreaterOrEqual(t, *cp.LastRxTime, prevRx)
		prevID, prevRx = *cp.LastMessageID, *cp.LastRxTime

		for _, id := range cp.LastRxTimeIDs {
			found := false
			for _, seen := range sequence {
				if seen.ID == id && seen.RxTime == *cp.LastRxTime {
					found = true
				}
			}
			assert.True(t, found, "id %d does not share the checkpoint receipt time", id)
		}
	}
	assert.Equal(t, uint64(9), *cp.LastMessageID)
	assert.Equal(t, []uint64{9}, cp.LastRxTimeIDs)
}

func TestCheckpoint_NormalizeMigratesLegacyField(t *testing.T) {
	var cp Checkpoint
	require.NoError(t, json.Unmarshal([]byte(`{"last_message_id":42,"last_checked_at":1710000000}`), &cp))

	cp.Normalize()

	assert.Equal(t, u64(42), cp.LastMessageID)
	assert.Equal(t, u64(1_710_000_000), cp.LastRxTime)
	assert.Empty(t, cp.LastRxTimeIDs)
	assert.Nil(t, cp.LastCheckedAt)

	data, err := json.Marshal(&cp)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "last_checked_at")
}

func TestCheckpoint_NormalizeKeepsExistingRxTime(t *testing.T) {
	cp := Checkpoint{LastMessageID: u64(1), LastRxTime: u64(99), LastRxTimeIDs: []uint64{1}, LastCheckedAt: u64(77)}

	cp.Normalize()

	assert.Equal(t, u64(99), cp.LastRxTime)
	assert.Equal(t, []uint64{1}, cp.LastRxTimeIDs)
	assert.Nil(t, cp.LastCheckedAt)
}

func TestCheckpoint_CloneIsDeep(t *testing.T) {
	cp := Checkpoint{LastMessageID: u64(1), LastRxTime: u64(2), LastRxTimeIDs: []uint64{1}}

	clone := cp.Clone()
	cp.Record(sampleMessage(3, 2))

	assert.Equal(t, []uint64{1}, clone.LastRxTimeIDs)
	assert.Equal(t, u64(1), clone.LastMessageID)
	assert.True(t, (&Checkpoint{}).IsEmpty())
	assert.False(t, clone.IsEmpty())
}

func TestMessage_IsText(t *testing.T) {
	msg := sampleMessage(1, 1)
	assert.True(t, msg.IsText())

	position := "POSITION_APP"
	msg.PortNum = &position
	assert.False(t, msg.IsText())

	msg.PortNum = nil
	assert.True(t, msg.IsText())
}
