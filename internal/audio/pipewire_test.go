package audio

import (
	"errors"
	"strings"
	"testing"
)

const pwLinkOutput = `alsa_input.pci-0000_00_1f.3.analog-stereo:capture_FL
alsa_input.pci-0000_00_1f.3.analog-stereo:capture_FR
alsa_output.pci-0000_00_1f.3.analog-stereo:monitor_FL
alsa_output.pci-0000_00_1f.3.analog-stereo:monitor_FR
echo-cancel-source:capture_FL
Firefox:output_FL
`

func TestParsePorts_SkipsHeadersAndBlanks(t *testing.T) {
	ports := parsePorts("Output ports:\n  system:capture_1  \n\nInput ports:\n")

	if len(ports) != 1 || ports[0] != "system:capture_1" {
		t.Errorf("Expected only system:capture_1, got %v", ports)
	}
}

func TestCaptureNodes_FiltersMonitorsAndDeduplicates(t *testing.T) {
	sources := captureNodes(parsePorts(pwLinkOutput))

	if len(sources) != 2 {
		t.Fatalf("Expected 2 capture nodes, got %d: %v", len(sources), sources)
	}
	if sources[0].Name != "alsa_input.pci-0000_00_1f.3.analog-stereo" || sources[0].EchoCancel {
		t.Errorf("Unexpected first source: %+v", sources[0])
	}
	if sources[1].Name != "echo-cancel-source" || !sources[1].EchoCancel {
		t.Errorf("Unexpected echo cancel source: %+v", sources[1])
	}
}

func TestCaptureNodes_NoMicrophone(t *testing.T) {
	sources := captureNodes([]string{"alsa_output.usb:monitor_FL", "Chrome:output_FL"})

	if len(sources) != 0 {
		t.Errorf("Expected no capture nodes, got %v", sources)
	}
}

func TestParsePactlSources(t *testing.T) {
	output := "0\talsa_output.usb.monitor\tmodule-alsa-card.c\ts16le 2ch 48000Hz\tSUSPENDED\n" +
		"1\talsa_input.usb-mic.mono-fallback\tmodule-alsa-card.c\ts16le 1ch 44100Hz\tRUNNING\n"

	sources := parsePactlSources(output)

	if len(sources) != 1 || sources[0].Name != "alsa_input.usb-mic.mono-fallback" {
		t.Errorf("Expected only the USB microphone, got %v", sources)
	}
}

func TestSelectSource(t *testing.T) {
	sources := []Source{{Name: "mic"}, {Name: "echo-cancel-source", EchoCancel: true}}

	if _, err := selectSource(nil, Constraints{}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice without sources, got %v", err)
	}

	if got, _ := selectSource(sources, Constraints{EchoCancellation: true}); got != "echo-cancel-source" {
		t.Errorf("Expected echo cancel source, got %s", got)
	}

	if got, _ := selectSource(sources, Constraints{}); got != "default" {
		t.Errorf("Expected default source, got %s", got)
	}

	if got, _ := selectSource(sources, Constraints{Device: "mic", EchoCancellation: true}); got != "mic" {
		t.Errorf("Expected explicit device to win, got %s", got)
	}

	if _, err := selectSource(sources, Constraints{Device: "ghost"}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice for unknown device, got %v", err)
	}
}

func TestClassifyCommandError(t *testing.T) {
	err := classifyCommandError("pw-link", errors.New("exit status 1"), "failed to connect: Permission denied")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Expected ErrPermissionDenied, got %v", err)
	}

	err = classifyCommandError("ffmpeg", errors.New("exit status 1"), "default: No such device")
	if !errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice, got %v", err)
	}

	err = classifyCommandError("ffmpeg", errors.New("exit status 1"), "codec not found")
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrNoDevice) {
		t.Errorf("Expected generic error, got %v", err)
	}
	if !strings.Contains(err.Error(), "codec not found") {
		t.Errorf("Expected output in error, got %v", err)
	}
}

func TestEncodingArgs(t *testing.T) {
	args, ok := encodingArgs("audio/webm; codecs=opus")
	if !ok || strings.Join(args, " ") != "-c:a libopus -f webm" {
		t.Errorf("Expected webm/opus args, got %v (%v)", args, ok)
	}

	if _, ok := encodingArgs("audio/mp4"); ok {
		t.Errorf("Expected audio/mp4 to be unsupported")
	}
}

func TestBuildArgs_AppliesConstraints(t *testing.T) {
	stream := &deviceStream{
		id:          "stream-test",
		source:      "echo-cancel-source",
		constraints: Constraints{EchoCancellation: true, NoiseSuppression: true, SampleRate: 44100},
		tracks:      []*deviceTrack{{label: "echo-cancel-source"}},
	}
	codecArgs, _ := encodingArgs("audio/webm")
	r := newFFmpegRecorder("ffmpeg", stream, "audio/webm", codecArgs, RecorderEvents{})

	cmdline := strings.Join(r.buildArgs(), " ")

	for _, want := range []string{"-f pulse -i echo-cancel-source", "-ar 44100", "-af afftdn", "-f webm pipe:1"} {
		if !strings.Contains(cmdline, want) {
			t.Errorf("Expected %q in %q", want, cmdline)
		}
	}
}
