package capture

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// RecordingResult is the finished recording handed to the host
type RecordingResult struct {
	AudioData string `json:"audioData"`
	MimeType  string `json:"mimeType"`
}

// Payload serializes the result into its transport form
func (r RecordingResult) Payload() (string, error) {
	out, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to serialize recording: %w", err)
	}
	return string(out), nil
}

// Decode returns the raw audio bytes
func (r RecordingResult) Decode() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(r.AudioData)
	if err != nil {
		return nil, fmt.Errorf("invalid audio payload: %w", err)
	}
	return data, nil
}

// Encoder converts the assembled recording into its transportable form
type Encoder interface {
	Encode(blob []byte) (string, error)
}

// EncoderFunc adapts a function to Encoder
type EncoderFunc func(blob []byte) (string, error)

// Encode calls f
func (f EncoderFunc) Encode(blob []byte) (string, error) { return f(blob) }

// Base64Encoder is the default Encoder
var Base64Encoder Encoder = EncoderFunc(func(blob []byte) (string, error) {
	return base64.StdEncoding.EncodeToString(blob), nil
})

// SelectEncoding returns the first supported preference. When none is
// supported the last preference, the bare container, is used anyway.
func SelectEncoding(supported func(mimeType string) bool, preferences []string) string {
	for _, mimeType := range preferences {
		if supported(mimeType) {
			return mimeType
		}
	}
	if len(preferences) == 0 {
		return ""
	}
	return preferences[len(preferences)-1]
}
