package transport

import "fmt"

// Default topic names.
const (
	// TopicEmotion carries emotion events on both transports.
	TopicEmotion = "emotion_topic"

	// TopicUpdate carries actuator status updates upstream on the remote
	// transport.
	TopicUpdate = "emotion_update"

	// TopicRaw carries per-frame labels from the face-analysis process on
	// the local transport.
	TopicRaw = "emotion_raw"
)

// Topics names the topics the gateway uses.
type Topics struct {
	Emotion string `yaml:"emotion" json:"emotion"`
	Update  string `yaml:"update" json:"update"`
	Raw     string `yaml:"raw" json:"raw"`
}

// DefaultTopics returns the default topic names.
func DefaultTopics() Topics {
	return Topics{
		Emotion: TopicEmotion,
		Update:  TopicUpdate,
		Raw:     TopicRaw,
	}
}

// WithPrefix returns a copy with every non-empty topic prefixed.
func (t Topics) WithPrefix(prefix string) Topics {
	if prefix == "" {
		return t
	}
	join := func(topic string) string {
		if topic == "" {
			return ""
		}
		return fmt.Sprintf("%s/%s", prefix, topic)
	}
	return Topics{
		Emotion: join(t.Emotion),
		Update:  join(t.Update),
		Raw:     join(t.Raw),
	}
}

// Validate checks that the emotion topic is set. Update and raw topics
// are optional stages.
func (t *Topics) Validate() error {
	if t.Emotion == "" {
		return fmt.Errorf("emotion topic is required")
	}
	return nil
}
