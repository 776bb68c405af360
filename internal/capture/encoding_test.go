package capture

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectEncoding(t *testing.T) {
	prefs := []string{"audio/webm;codecs=opus", "audio/webm"}

	all := func(string) bool { return true }
	none := func(string) bool { return false }
	bareOnly := func(m string) bool { return m == "audio/webm" }

	assert.Equal(t, "audio/webm;codecs=opus", SelectEncoding(all, prefs))
	assert.Equal(t, "audio/webm", SelectEncoding(bareOnly, prefs))
	assert.Equal(t, "audio/webm", SelectEncoding(none, prefs), "falls back to the bare container")
	assert.Equal(t, "", SelectEncoding(all, nil))
}

func TestRecordingResultPayload(t *testing.T) {
	result := RecordingResult{
		AudioData: base64.StdEncoding.EncodeToString([]byte("voice")),
		MimeType:  "audio/webm",
	}

	payload, err := result.Payload()
	require.NoError(t, err)
	assert.JSONEq(t, `{"audioData":"dm9pY2U=","mimeType":"audio/webm"}`, payload)

	raw, err := result.Decode()
	require.NoError(t, err)
	assert.Equal(t, []byte("voice"), raw)

	_, err = RecordingResult{AudioData: "%%%"}.Decode()
	assert.Error(t, err)
}

func TestMailbox(t *testing.T) {
	var box Mailbox[string]

	_, ok := box.Take()
	assert.False(t, ok)

	box.Put("first")
	box.Put("second")
	v, ok := box.Take()
	assert.True(t, ok)
	assert.Equal(t, "second", v, "last write wins")

	_, ok = box.Take()
	assert.False(t, ok, "take clears the slot")

	box.Put("third")
	box.Clear()
	_, ok = box.Take()
	assert.False(t, ok)
}
