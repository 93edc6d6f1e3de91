package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/teslashibe/go-moodlight/pkg/emotions"
)

func TestEmotionEvent_Bytes(t *testing.T) {
	data, err := NewEmotionEvent(emotions.Happy).Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	want := `{"source":"ai","type":"emotion","emotion":"Happy"}`
	if string(data) != want {
		t.Errorf("Bytes() = %s, want %s", data, want)
	}
}

func TestStatusUpdate_Bytes(t *testing.T) {
	data, err := NewStatusUpdate(emotions.Setting{Color: "#FFFF00", Brightness: 90}).Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	want := `{"color":"#FFFF00","brightness":90}`
	if string(data) != want {
		t.Errorf("Bytes() = %s, want %s", data, want)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		kind    Kind
		ai      bool
		wantErr error
	}{
		{"control_true", `{"source":"web","ai":true}`, KindControl, true, nil},
		{"control_false", `{"source":"web","ai":false}`, KindControl, false, nil},
		{"control_string_true", `{"source":"web","ai":"TRUE"}`, KindControl, true, nil},
		{"control_string_other", `{"source":"web","ai":"yes"}`, KindControl, false, nil},
		{"control_number", `{"source":"web","ai":1}`, KindControl, false, nil},
		{"web_ai_null_is_data", `{"source":"web","ai":null}`, KindData, false, nil},
		{"web_without_ai_is_data", `{"source":"web","emotion":"Sad"}`, KindData, false, nil},
		{"ai_flag_from_other_source_is_data", `{"source":"ai","ai":true}`, KindData, false, nil},
		{"emotion_event", `{"source":"ai","type":"emotion","emotion":"Happy"}`, KindData, false, nil},
		{"whitespace", "  {\"source\":\"web\",\"ai\":true}\n", KindControl, true, nil},
		{"invalid_json", `{"source":`, 0, false, ErrMalformed},
		{"array", `[1,2]`, 0, false, ErrMalformed},
		{"null", `null`, 0, false, ErrMalformed},
		{"empty", ``, 0, false, ErrEmptyPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Classify([]byte(tt.payload))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Classify() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if env.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", env.Kind, tt.kind)
			}
			if tt.kind == KindControl {
				if env.Control == nil {
					t.Fatal("Control is nil")
				}
				if env.Control.AI != tt.ai {
					t.Errorf("AI = %v, want %v", env.Control.AI, tt.ai)
				}
			}
			if string(env.Raw) != tt.payload {
				t.Errorf("Raw = %q, want payload unchanged", env.Raw)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Command
		wantErr error
	}{
		{"emotion_event", `{"source":"ai","type":"emotion","emotion":"Happy"}`, Command{TypeEmotion, "Happy"}, nil},
		{"bare_emotion", `{"emotion":"Sad"}`, Command{TypeEmotion, "Sad"}, nil},
		{"typed_emotion_value", `{"type":"emotion","value":"Fear"}`, Command{TypeEmotion, "Fear"}, nil},
		{"color", `{"type":"color","value":"#00FF00"}`, Command{TypeColor, "#00FF00"}, nil},
		{"brightness_number", `{"type":"brightness","value":120}`, Command{TypeBrightness, "120"}, nil},
		{"brightness_string", `{"type":"brightness","value":"75"}`, Command{TypeBrightness, "75"}, nil},
		{"color_without_value", `{"type":"color"}`, Command{}, ErrNoCommand},
		{"empty_emotion", `{"emotion":""}`, Command{}, ErrNoCommand},
		{"nothing", `{"source":"ai"}`, Command{}, ErrNoCommand},
		{"control", `{"source":"web","ai":true}`, Command{}, ErrNotData},
		{"garbage", `not json`, Command{}, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand([]byte(tt.payload))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseCommand() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseCommand() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCommand_Emotion(t *testing.T) {
	l, ok := NewEmotionCommand(emotions.Surprised).Emotion()
	if !ok || l != emotions.Surprised {
		t.Errorf("Emotion() = (%q, %v)", l, ok)
	}

	if _, ok := NewColorCommand("#FFFFFF").Emotion(); ok {
		t.Error("color command should not resolve to an emotion")
	}
	if _, ok := (Command{Type: TypeEmotion, Value: "Joy"}).Emotion(); ok {
		t.Error("unknown label should not resolve")
	}
}

func TestCommand_Valid(t *testing.T) {
	if !NewBrightnessCommand(90).Valid() {
		t.Error("brightness command should be valid")
	}
	if (Command{Type: "blink", Value: "1"}).Valid() {
		t.Error("unknown type should be invalid")
	}
	if (Command{Type: TypeColor}).Valid() {
		t.Error("empty value should be invalid")
	}
}

func TestControlMessage_Bytes(t *testing.T) {
	data, err := ControlMessage{Source: SourceWeb, AI: true}.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	var back map[string]any
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back["source"] != "web" || back["ai"] != true {
		t.Errorf("unexpected payload %s", data)
	}
}
